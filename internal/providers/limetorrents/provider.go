package limetorrents

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"torrentsearch/searchd/internal/domain"
	"torrentsearch/searchd/internal/fetch"
	"torrentsearch/searchd/internal/providers/common"
)

const defaultBaseURL = "https://www.limetorrents.lol"

var (
	rowPattern     = regexp.MustCompile(`(?is)<tr[^>]*>\s*<td class="tdleft">(.*?)</tr>`)
	torrentPattern = regexp.MustCompile(`(?is)href="[^"]*/torrent/([a-fA-F0-9]{40})\.torrent[^"]*"`)
	pagePattern    = regexp.MustCompile(`(?is)<a href="(/[^"]+-torrent-[0-9]+\.html)"[^>]*>(.*?)</a>`)
	sizePattern    = regexp.MustCompile(`(?is)<td class="tdnormal">\s*([0-9.,]+\s*[KMGT]?B)[^<]*</td>`)
	seedPattern    = regexp.MustCompile(`(?is)<td class="tdseed">\s*([0-9,]+)\s*</td>`)
	leechPattern   = regexp.MustCompile(`(?is)<td class="tdleech">\s*([0-9,]+)\s*</td>`)
)

type Config struct {
	BaseURL string
	Client  *fetch.Client
}

// Provider scrapes LimeTorrents search listings. The info hash is lifted from
// the .torrent mirror link present in every row.
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
		ID:               "limetorrents",
		Name:             "LimeTorrents",
		URL:              "https://www.limetorrents.lol",
		SpecializedTo:    domain.CategoryAll,
		Safety:           domain.SafetyUnsafe,
		EnabledByDefault: false,
	}
}

func (p *Provider) Search(ctx context.Context, query string, category domain.Category) ([]domain.Torrent, error) {
	searchURL := p.baseURL + "/search/all/" + url.PathEscape(strings.TrimSpace(query)) + "/"

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

		infoHash := ""
		if m := torrentPattern.FindStringSubmatch(body); len(m) == 2 {
			infoHash = common.NormalizeInfoHash(m[1])
		}
		name := ""
		descriptionURL := ""
		if m := pagePattern.FindStringSubmatch(body); len(m) == 3 {
			descriptionURL = p.baseURL + strings.TrimSpace(m[1])
			name = common.CleanHTMLText(m[2])
		}
		if name == "" || (infoHash == "" && descriptionURL == "") {
			continue
		}

		sizeBytes := int64(0)
		if m := sizePattern.FindStringSubmatch(body); len(m) == 2 {
			sizeBytes = common.ParseHumanSize(m[1])
		}
		seeders := 0
		if m := seedPattern.FindStringSubmatch(body); len(m) == 2 {
			seeders = common.ParseInt(m[1])
		}
		leechers := 0
		if m := leechPattern.FindStringSubmatch(body); len(m) == 2 {
			leechers = common.ParseInt(m[1])
		}

		torrents = append(torrents, domain.Torrent{
			Name:           name,
			Magnet:         common.BuildMagnet(infoHash, name, nil),
			DescriptionURL: descriptionURL,
			InfoHash:       infoHash,
			SizeBytes:      sizeBytes,
			Seeders:        seeders,
			Leechers:       leechers,
			Category:       domain.CategoryAll,
			ProviderID:     info.ID,
			ProviderName:   info.Name,
		})
	}
	return torrents
}
