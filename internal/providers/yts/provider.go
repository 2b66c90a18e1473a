package yts

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

const defaultBaseURL = "https://yts.mx"

type Config struct {
	BaseURL string
	Client  *fetch.Client
}

// Provider searches the YTS movie API. Every listed movie fans out into one
// record per release quality.
type Provider struct {
	client  *fetch.Client
	baseURL string
}

type apiResponse struct {
	Status string `json:"status"`
	Data   struct {
		MovieCount int        `json:"movie_count"`
		Movies     []apiMovie `json:"movies"`
	} `json:"data"`
}

type apiMovie struct {
	TitleLong string       `json:"title_long"`
	URL       string       `json:"url"`
	Torrents  []apiTorrent `json:"torrents"`
}

type apiTorrent struct {
	Hash         string `json:"hash"`
	Quality      string `json:"quality"`
	Type         string `json:"type"`
	SizeBytes    int64  `json:"size_bytes"`
	Seeds        int    `json:"seeds"`
	Peers        int    `json:"peers"`
	DateUploaded int64  `json:"date_uploaded_unix"`
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
		ID:               "yts",
		Name:             "YTS",
		URL:              "https://yts.mx",
		SpecializedTo:    domain.CategoryMovies,
		Safety:           domain.SafetySafe,
		EnabledByDefault: true,
	}
}

func (p *Provider) Search(ctx context.Context, query string, category domain.Category) ([]domain.Torrent, error) {
	endpoint := fmt.Sprintf("%s/api/v2/list_movies.json?query_term=%s&limit=50", p.baseURL, url.QueryEscape(strings.TrimSpace(query)))

	var payload apiResponse
	if err := p.client.GetJSON(ctx, endpoint, &payload); err != nil {
		return nil, err
	}

	info := p.Info()
	var torrents []domain.Torrent
	for _, movie := range payload.Data.Movies {
		title := strings.TrimSpace(movie.TitleLong)
		if title == "" {
			continue
		}
		for _, release := range movie.Torrents {
			infoHash := common.NormalizeInfoHash(release.Hash)
			if infoHash == "" && strings.TrimSpace(movie.URL) == "" {
				continue
			}
			name := title
			if quality := strings.TrimSpace(release.Quality); quality != "" {
				name = fmt.Sprintf("%s [%s]", title, quality)
			}
			uploadedAt := time.Time{}
			if release.DateUploaded > 0 {
				uploadedAt = time.Unix(release.DateUploaded, 0).UTC()
			}
			torrents = append(torrents, domain.Torrent{
				Name:           name,
				Magnet:         common.BuildMagnet(infoHash, name, nil),
				DescriptionURL: strings.TrimSpace(movie.URL),
				InfoHash:       infoHash,
				SizeBytes:      release.SizeBytes,
				Seeders:        release.Seeds,
				Leechers:       release.Peers,
				UploadedAt:     uploadedAt,
				Category:       domain.CategoryMovies,
				ProviderID:     info.ID,
				ProviderName:   info.Name,
			})
		}
	}
	return torrents, nil
}
