package fetch

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"io"
	"net/http"
	"strings"
	"time"

	"torrentsearch/searchd/internal/domain"
)

const (
	defaultTimeout   = 15 * time.Second
	defaultUserAgent = "torrentsearch/1.0"

	maxBodyBytes = 8 * 1024 * 1024
)

// Client is the shared outbound HTTP client used by every provider. It pins a
// single timeout and User-Agent and converts all failures into *Error values.
type Client struct {
	http      *http.Client
	userAgent string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if strings.TrimSpace(ua) != "" {
			c.userAgent = ua
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		http:      &http.Client{Timeout: defaultTimeout},
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetJSON fetches url and decodes the JSON body into out.
func (c *Client) GetJSON(ctx context.Context, url string, out any) error {
	body, err := c.get(ctx, url, "application/json")
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &Error{Kind: domain.FailureParse, Err: err}
	}
	return nil
}

// GetXML fetches url and decodes the XML body into out.
func (c *Client) GetXML(ctx context.Context, url string, out any) error {
	body, err := c.get(ctx, url, "application/xml, text/xml")
	if err != nil {
		return err
	}
	if err := xml.Unmarshal(body, out); err != nil {
		return &Error{Kind: domain.FailureParse, Err: err}
	}
	return nil
}

// GetHTML fetches url and returns the raw page text.
func (c *Client) GetHTML(ctx context.Context, url string) (string, error) {
	body, err := c.get(ctx, url, "text/html")
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func (c *Client) get(ctx context.Context, url, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &Error{Kind: domain.FailureTransport, Err: err}
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", accept)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classify(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 2048))
		return nil, &Error{Kind: domain.FailureHTTP, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, classify(err)
	}
	return body, nil
}
