package torznab

import (
	"context"
	"net/url"
	"strings"

	"torrentsearch/searchd/internal/domain"
	"torrentsearch/searchd/internal/fetch"
	"torrentsearch/searchd/internal/providers/common"
)

// Config describes one Torznab endpoint. Instances come from the persisted
// config store, so the provider is entirely data-driven.
type Config struct {
	ID       string
	Name     string
	URL      string
	APIKey   string
	Category domain.Category
	Client   *fetch.Client
}

// Provider queries a single Torznab-compatible indexer (Jackett, Prowlarr,
// NZBHydra and friends speak the same dialect).
type Provider struct {
	client   *fetch.Client
	id       string
	name     string
	endpoint string
	apiKey   string
	category domain.Category
}

func NewProvider(cfg Config) *Provider {
	client := cfg.Client
	if client == nil {
		client = fetch.NewClient()
	}
	category := cfg.Category
	if category == "" {
		category = domain.CategoryAll
	}
	return &Provider{
		client:   client,
		id:       strings.TrimSpace(cfg.ID),
		name:     strings.TrimSpace(cfg.Name),
		endpoint: strings.TrimRight(strings.TrimSpace(cfg.URL), "/"),
		apiKey:   strings.TrimSpace(cfg.APIKey),
		category: category,
	}
}

func (p *Provider) Info() domain.ProviderInfo {
	return domain.ProviderInfo{
		ID:               p.id,
		Name:             p.name,
		URL:              p.endpoint,
		SpecializedTo:    p.category,
		Safety:           domain.SafetySafe,
		EnabledByDefault: true,
	}
}

func (p *Provider) Search(ctx context.Context, query string, category domain.Category) ([]domain.Torrent, error) {
	uri, err := url.Parse(p.endpoint)
	if err != nil {
		return nil, &fetch.Error{Kind: domain.FailureTransport, Err: err}
	}

	// A restricted config always requests its own category; an unrestricted
	// one narrows to whatever the round asked for.
	effective := p.category
	if effective == domain.CategoryAll {
		effective = category
	}

	params := uri.Query()
	params.Set("t", "search")
	params.Set("q", strings.TrimSpace(query))
	// Jackett only includes seeders/infohash attrs with extended output.
	params.Set("extended", "1")
	if ids := torznabCategoryIDs(effective); ids != "" {
		params.Set("cat", ids)
	}
	if p.apiKey != "" {
		params.Set("apikey", p.apiKey)
	}
	uri.RawQuery = params.Encode()

	var rss torznabResponse
	if err := p.client.GetXML(ctx, uri.String(), &rss); err != nil {
		return nil, err
	}

	info := p.Info()
	items := rss.Channel.Items
	torrents := make([]domain.Torrent, 0, len(items))
	for _, item := range items {
		torrent, ok := p.itemToTorrent(item, uri.Host, effective)
		if !ok {
			continue
		}
		torrent.ProviderID = info.ID
		torrent.ProviderName = info.Name
		torrents = append(torrents, torrent)
	}
	return torrents, nil
}

// torznabCategoryIDs maps the shared taxonomy onto the standard Torznab
// numeric category tree (2000 movies, 3000 audio, 4000 PC, 5000 TV and the
// 5070 TV/Anime leaf, 6000 XXX, 7000 books; games span console and PC).
func torznabCategoryIDs(c domain.Category) string {
	switch c {
	case domain.CategoryAnime:
		return "5070"
	case domain.CategoryApps:
		return "4000"
	case domain.CategoryBooks:
		return "7000"
	case domain.CategoryGames:
		return "1000,4050"
	case domain.CategoryMovies:
		return "2000"
	case domain.CategoryMusic:
		return "3000"
	case domain.CategoryPorn:
		return "6000"
	case domain.CategorySeries:
		return "5000"
	default:
		return ""
	}
}

func (p *Provider) itemToTorrent(item torznabItem, endpointHost string, category domain.Category) (domain.Torrent, bool) {
	name := strings.TrimSpace(item.Title)
	if name == "" {
		return domain.Torrent{}, false
	}

	attrs := make(map[string]string, len(item.Attrs))
	for _, attr := range item.Attrs {
		key := strings.ToLower(strings.TrimSpace(attr.Name))
		if key == "" {
			continue
		}
		if _, exists := attrs[key]; exists {
			continue
		}
		attrs[key] = strings.TrimSpace(attr.Value)
	}

	magnet := firstMagnet(item.Guid, item.Link, item.Enclosure.URL)
	infoHash := common.NormalizeInfoHash(attrs["infohash"])
	if infoHash == "" {
		infoHash = common.MagnetInfoHash(magnet)
	}
	if magnet == "" && infoHash != "" {
		magnet = common.BuildMagnet(infoHash, name, nil)
	}

	descriptionURL := detailsURL(item, attrs, endpointHost)
	if magnet == "" && descriptionURL == "" {
		return domain.Torrent{}, false
	}

	sizeBytes := common.ParseInt64(attrs["size"])
	if sizeBytes <= 0 && item.Enclosure.Length > 0 {
		sizeBytes = item.Enclosure.Length
	}

	seeders := common.ParseInt(attrs["seeders"])
	leechers := common.ParseInt(attrs["leechers"])
	if leechers == 0 {
		if peers := common.ParseInt(attrs["peers"]); peers > seeders {
			leechers = peers - seeders
		}
	}

	return domain.Torrent{
		Name:           name,
		Magnet:         magnet,
		DescriptionURL: descriptionURL,
		InfoHash:       infoHash,
		SizeBytes:      sizeBytes,
		Seeders:        seeders,
		Leechers:       leechers,
		UploadedAt:     common.ParseUploadTime(item.PubDate),
		Category:       category,
	}, true
}

// detailsURL picks the best human-facing page for an item, preferring the
// tracker's own site over the indexer proxy.
func detailsURL(item torznabItem, attrs map[string]string, endpointHost string) string {
	proxyHost := normalizeHost(endpointHost)
	candidates := []string{
		item.Comments,
		attrs["comments"],
		attrs["details"],
		attrs["infourl"],
		item.Link,
		item.Guid,
	}
	for _, candidate := range candidates {
		value := strings.TrimSpace(candidate)
		lower := strings.ToLower(value)
		if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
			continue
		}
		parsed, err := url.Parse(value)
		if err != nil || parsed.Host == "" {
			continue
		}
		if proxyHost != "" && normalizeHost(parsed.Host) == proxyHost {
			continue
		}
		return parsed.String()
	}
	return ""
}

func normalizeHost(raw string) string {
	host := strings.ToLower(strings.TrimSpace(raw))
	if idx := strings.Index(host, ":"); idx >= 0 {
		host = host[:idx]
	}
	return strings.TrimPrefix(host, "www.")
}

type torznabResponse struct {
	Channel torznabChannel `xml:"channel"`
}

type torznabChannel struct {
	Items []torznabItem `xml:"item"`
}

type torznabItem struct {
	Title     string           `xml:"title"`
	Guid      string           `xml:"guid"`
	Link      string           `xml:"link"`
	Comments  string           `xml:"comments"`
	PubDate   string           `xml:"pubDate"`
	Enclosure torznabEnclosure `xml:"enclosure"`
	Attrs     []torznabAttr    `xml:"attr"`
}

type torznabEnclosure struct {
	URL    string `xml:"url,attr"`
	Length int64  `xml:"length,attr"`
}

type torznabAttr struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

func firstMagnet(candidates ...string) string {
	for _, candidate := range candidates {
		value := strings.TrimSpace(candidate)
		if strings.HasPrefix(strings.ToLower(value), "magnet:?") {
			return value
		}
	}
	return ""
}
