package nyaa

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/url"
	"strings"

	"torrentsearch/searchd/internal/domain"
	"torrentsearch/searchd/internal/fetch"
	"torrentsearch/searchd/internal/providers/common"
)

const defaultBaseURL = "https://nyaa.si"

type Config struct {
	BaseURL string
	Client  *fetch.Client
}

// Provider reads the nyaa.si RSS feed, which carries seeders, leechers and
// the info hash as namespaced item elements.
type Provider struct {
	client  *fetch.Client
	baseURL string
}

type rssFeed struct {
	XMLName xml.Name `xml:"rss"`
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title    string `xml:"title"`
	Link     string `xml:"link"`
	GUID     string `xml:"guid"`
	PubDate  string `xml:"pubDate"`
	Seeders  string `xml:"seeders"`
	Leechers string `xml:"leechers"`
	InfoHash string `xml:"infoHash"`
	Size     string `xml:"size"`
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
		ID:               "nyaa",
		Name:             "Nyaa",
		URL:              "https://nyaa.si",
		SpecializedTo:    domain.CategoryAnime,
		Safety:           domain.SafetySafe,
		EnabledByDefault: true,
	}
}

func (p *Provider) Search(ctx context.Context, query string, category domain.Category) ([]domain.Torrent, error) {
	endpoint := fmt.Sprintf("%s/?page=rss&q=%s&c=0_0&f=0", p.baseURL, url.QueryEscape(strings.TrimSpace(query)))

	var feed rssFeed
	if err := p.client.GetXML(ctx, endpoint, &feed); err != nil {
		return nil, err
	}

	info := p.Info()
	torrents := make([]domain.Torrent, 0, len(feed.Channel.Items))
	for _, item := range feed.Channel.Items {
		name := strings.TrimSpace(item.Title)
		if name == "" {
			continue
		}
		infoHash := common.NormalizeInfoHash(item.InfoHash)
		descriptionURL := strings.TrimSpace(item.GUID)
		if infoHash == "" && descriptionURL == "" {
			continue
		}
		torrents = append(torrents, domain.Torrent{
			Name:           name,
			Magnet:         common.BuildMagnet(infoHash, name, nil),
			DescriptionURL: descriptionURL,
			InfoHash:       infoHash,
			SizeBytes:      common.ParseHumanSize(item.Size),
			Seeders:        common.ParseInt(item.Seeders),
			Leechers:       common.ParseInt(item.Leechers),
			UploadedAt:     common.ParseUploadTime(item.PubDate),
			Category:       domain.CategoryAnime,
			ProviderID:     info.ID,
			ProviderName:   info.Name,
		})
	}
	return torrents, nil
}
