package torrentscsv

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"torrentsearch/searchd/internal/domain"
	"torrentsearch/searchd/internal/fetch"
	"torrentsearch/searchd/internal/providers/common"
)

const defaultBaseURL = "https://torrents-csv.com"

type Config struct {
	BaseURL string
	Client  *fetch.Client
}

// Provider searches the torrents-csv.com open dataset API.
type Provider struct {
	client  *fetch.Client
	baseURL string
}

type apiResponse struct {
	Torrents []apiTorrent `json:"torrents"`
}

type apiTorrent struct {
	InfoHash  string `json:"infohash"`
	Name      string `json:"name"`
	SizeBytes int64  `json:"size_bytes"`
	Seeders   int    `json:"seeders"`
	Leechers  int    `json:"leechers"`
	Created   int64  `json:"created_unix"`
}

func NewProvider(cfg Config) *Provider {
	client := cfg.Client
	if client == nil {
		client = fetch.NewClient()
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Provider{client: client, baseURL: baseURL}
}

func (p *Provider) Info() domain.ProviderInfo {
	return domain.ProviderInfo{
		ID:               "torrentscsv",
		Name:             "Torrents CSV",
		URL:              "https://torrents-csv.com",
		SpecializedTo:    domain.CategoryAll,
		Safety:           domain.SafetySafe,
		EnabledByDefault: true,
	}
}

func (p *Provider) Search(ctx context.Context, query string, category domain.Category) ([]domain.Torrent, error) {
	endpoint := fmt.Sprintf("%s/service/search?q=%s&size=100", p.baseURL, url.QueryEscape(strings.TrimSpace(query)))

	var payload apiResponse
	if err := p.client.GetJSON(ctx, endpoint, &payload); err != nil {
		return nil, err
	}

	info := p.Info()
	torrents := make([]domain.Torrent, 0, len(payload.Torrents))
	for _, item := range payload.Torrents {
		name := strings.TrimSpace(item.Name)
		infoHash := common.NormalizeInfoHash(item.InfoHash)
		if name == "" || infoHash == "" {
			continue
		}
		uploadedAt := time.Time{}
		if item.Created > 0 {
			uploadedAt = time.Unix(item.Created, 0).UTC()
		}
		torrents = append(torrents, domain.Torrent{
			Name:         name,
			Magnet:       common.BuildMagnet(infoHash, name, nil),
			InfoHash:     infoHash,
			SizeBytes:    item.SizeBytes,
			Seeders:      item.Seeders,
			Leechers:     item.Leechers,
			UploadedAt:   uploadedAt,
			Category:     domain.CategoryAll,
			ProviderID:   info.ID,
			ProviderName: info.Name,
		})
	}
	return torrents, nil
}
