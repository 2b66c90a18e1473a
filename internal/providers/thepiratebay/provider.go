package thepiratebay

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"torrentsearch/searchd/internal/domain"
	"torrentsearch/searchd/internal/fetch"
	"torrentsearch/searchd/internal/providers/common"
)

const defaultBaseURL = "https://apibay.org"

type Config struct {
	BaseURL string
	Client  *fetch.Client
}

// Provider searches The Pirate Bay through the apibay JSON API.
type Provider struct {
	client  *fetch.Client
	baseURL string
}

type apiItem struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	InfoHash string `json:"info_hash"`
	Size     string `json:"size"`
	Seeders  string `json:"seeders"`
	Leechers string `json:"leechers"`
	Added    string `json:"added"`
	Category string `json:"category"`
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
		ID:               "thepiratebay",
		Name:             "The Pirate Bay",
		URL:              "https://thepiratebay.org",
		SpecializedTo:    domain.CategoryAll,
		Safety:           domain.SafetyUnsafe,
		EnabledByDefault: true,
	}
}

func (p *Provider) Search(ctx context.Context, query string, category domain.Category) ([]domain.Torrent, error) {
	endpoint := fmt.Sprintf("%s/q.php?q=%s", p.baseURL, url.QueryEscape(strings.TrimSpace(query)))

	var items []apiItem
	if err := p.client.GetJSON(ctx, endpoint, &items); err != nil {
		return nil, err
	}

	torrents := make([]domain.Torrent, 0, len(items))
	for _, item := range items {
		torrent, ok := p.toTorrent(item)
		if !ok {
			continue
		}
		torrents = append(torrents, torrent)
	}
	return torrents, nil
}

func (p *Provider) toTorrent(item apiItem) (domain.Torrent, bool) {
	name := strings.TrimSpace(item.Name)
	infoHash := common.NormalizeInfoHash(item.InfoHash)
	if name == "" || infoHash == "" {
		return domain.Torrent{}, false
	}
	// apibay answers empty searches with a single placeholder row.
	if strings.EqualFold(name, "no results returned") {
		return domain.Torrent{}, false
	}

	descriptionURL := ""
	if id := strings.TrimSpace(item.ID); id != "" && id != "0" {
		descriptionURL = "https://thepiratebay.org/description.php?id=" + url.QueryEscape(id)
	}

	info := p.Info()
	return domain.Torrent{
		Name:           name,
		Magnet:         common.BuildMagnet(infoHash, name, nil),
		DescriptionURL: descriptionURL,
		InfoHash:       infoHash,
		SizeBytes:      common.ParseInt64(item.Size),
		Seeders:        common.ParseInt(item.Seeders),
		Leechers:       common.ParseInt(item.Leechers),
		UploadedAt:     common.ParseUploadTime(item.Added),
		Category:       categoryFromCode(item.Category),
		ProviderID:     info.ID,
		ProviderName:   info.Name,
	}, true
}

// categoryFromCode maps apibay numeric category codes onto the shared
// taxonomy. Codes are grouped by hundreds: 1xx audio, 2xx video, 3xx
// applications, 4xx games, 5xx porn, 6xx other.
func categoryFromCode(raw string) domain.Category {
	code, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return domain.CategoryAll
	}
	switch code / 100 {
	case 1:
		return domain.CategoryMusic
	case 2:
		return domain.CategoryMovies
	case 3:
		return domain.CategoryApps
	case 4:
		return domain.CategoryGames
	case 5:
		return domain.CategoryPorn
	default:
		return domain.CategoryAll
	}
}
