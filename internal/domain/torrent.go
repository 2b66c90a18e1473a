package domain

import "time"

// Category is the shared content taxonomy. Providers declare which categories
// they can serve and every torrent record carries the category of the round
// that produced it.
type Category string

const (
	CategoryAll    Category = "all"
	CategoryAnime  Category = "anime"
	CategoryApps   Category = "apps"
	CategoryBooks  Category = "books"
	CategoryGames  Category = "games"
	CategoryMovies Category = "movies"
	CategoryMusic  Category = "music"
	CategoryPorn   Category = "porn"
	CategorySeries Category = "series"
)

// Categories lists every valid category, All first.
func Categories() []Category {
	return []Category{
		CategoryAll,
		CategoryAnime,
		CategoryApps,
		CategoryBooks,
		CategoryGames,
		CategoryMovies,
		CategoryMusic,
		CategoryPorn,
		CategorySeries,
	}
}

// NormalizeCategory maps raw input to a known category, falling back to All.
func NormalizeCategory(raw string) Category {
	for _, c := range Categories() {
		if Category(raw) == c {
			return c
		}
	}
	return CategoryAll
}

// IsNSFW reports whether the category carries adult content.
func (c Category) IsNSFW() bool {
	return c == CategoryPorn
}

// Torrent is one normalized search record. A usable record has a magnet URI,
// a description page URL, or both. Records with neither are dropped at the
// provider boundary.
type Torrent struct {
	Name           string    `json:"name"`
	Magnet         string    `json:"magnet,omitempty"`
	DescriptionURL string    `json:"descriptionUrl,omitempty"`
	InfoHash       string    `json:"infoHash,omitempty"`
	SizeBytes      int64     `json:"sizeBytes,omitempty"`
	Seeders        int       `json:"seeders"`
	Leechers       int       `json:"leechers"`
	UploadedAt     time.Time `json:"uploadedAt,omitempty"`
	Category       Category  `json:"category,omitempty"`
	ProviderID     string    `json:"providerId"`
	ProviderName   string    `json:"providerName"`
}

// Usable reports whether the record satisfies the minimum contract: it can
// either be downloaded (magnet) or inspected (description page).
func (t Torrent) Usable() bool {
	return t.Magnet != "" || t.DescriptionURL != ""
}
