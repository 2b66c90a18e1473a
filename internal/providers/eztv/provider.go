package eztv

import (
	"context"
	"html"
	"net/url"
	"regexp"
	"strings"

	"torrentsearch/searchd/internal/domain"
	"torrentsearch/searchd/internal/fetch"
	"torrentsearch/searchd/internal/providers/common"
)

const defaultBaseURL = "https://eztvx.to"

var (
	rowPattern    = regexp.MustCompile(`(?is)<tr[^>]*class="forum_header_border"[^>]*>(.*?)</tr>`)
	titlePattern  = regexp.MustCompile(`(?is)<a[^>]+href="(/ep/[^"]+)"[^>]+class="epinfo"[^>]*>(.*?)</a>`)
	magnetPattern = regexp.MustCompile(`magnet:\?xt=urn:btih:[a-zA-Z0-9]{32,40}[^\s"'<>]*`)
	sizePattern   = regexp.MustCompile(`(?is)<td[^>]*>\s*([0-9.,]+\s*[KMGT]?i?B)\s*</td>`)
	seedsPattern  = regexp.MustCompile(`(?is)<font color="green">\s*([0-9,]+)\s*</font>`)
)

type Config struct {
	BaseURL string
	Client  *fetch.Client
}

// Provider scrapes the EZTV episode listing. All rows of a search page carry
// a magnet link directly, so a single request serves the whole round.
type Provider struct {
	client  *fetch.Client
	baseURL string
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
		ID:               "eztv",
		Name:             "Eztv",
		URL:              "https://eztvx.to",
		SpecializedTo:    domain.CategorySeries,
		Safety:           domain.SafetySafe,
		EnabledByDefault: true,
	}
}

func (p *Provider) Search(ctx context.Context, query string, category domain.Category) ([]domain.Torrent, error) {
	searchURL := p.baseURL + "/search/" + url.PathEscape(strings.ReplaceAll(strings.TrimSpace(query), " ", "-"))

	page, err := p.client.GetHTML(ctx, searchURL)
	if err != nil {
		return nil, err
	}
	return p.parsePage(page), nil
}

func (p *Provider) parsePage(page string) []domain.Torrent {
	rows := rowPattern.FindAllStringSubmatch(page, -1)
	info := p.Info()

	torrents := make([]domain.Torrent, 0, len(rows))
	for _, row := range rows {
		body := row[1]

		magnet := strings.TrimSpace(html.UnescapeString(magnetPattern.FindString(body)))
		descriptionURL := ""
		name := ""
		if m := titlePattern.FindStringSubmatch(body); len(m) == 3 {
			descriptionURL = p.baseURL + strings.TrimSpace(m[1])
			name = common.CleanHTMLText(m[2])
		}
		if magnet == "" && descriptionURL == "" {
			continue
		}
		infoHash := common.MagnetInfoHash(magnet)
		if name == "" {
			name = infoHash
		}
		if name == "" {
			continue
		}

		sizeBytes := int64(0)
		if m := sizePattern.FindStringSubmatch(body); len(m) == 2 {
			sizeBytes = common.ParseHumanSize(m[1])
		}
		seeders := 0
		if m := seedsPattern.FindStringSubmatch(body); len(m) == 2 {
			seeders = common.ParseInt(m[1])
		}

		torrents = append(torrents, domain.Torrent{
			Name:           name,
			Magnet:         magnet,
			DescriptionURL: descriptionURL,
			InfoHash:       infoHash,
			SizeBytes:      sizeBytes,
			Seeders:        seeders,
			Category:       domain.CategorySeries,
			ProviderID:     info.ID,
			ProviderName:   info.Name,
		})
	}
	return torrents
}
