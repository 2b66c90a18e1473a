package search

import (
	"strings"

	"torrentsearch/searchd/internal/domain"
)

// Filters narrow an already fetched result set. All criteria are conjunctive
// and order independent; a zero Filters passes everything through.
type Filters struct {
	// NameContains keeps torrents whose name contains the term, case
	// insensitively.
	NameContains string
	// Providers keeps only torrents from the listed provider ids. Empty
	// means all providers.
	Providers []string
	// ExcludeDead drops torrents with zero seeders.
	ExcludeDead bool
}

func (f Filters) Apply(torrents []domain.Torrent) []domain.Torrent {
	term := strings.ToLower(strings.TrimSpace(f.NameContains))
	allowed := make(map[string]struct{}, len(f.Providers))
	for _, id := range f.Providers {
		id = strings.TrimSpace(id)
		if id != "" {
			allowed[id] = struct{}{}
		}
	}

	out := make([]domain.Torrent, 0, len(torrents))
	for _, torrent := range torrents {
		if term != "" && !strings.Contains(strings.ToLower(torrent.Name), term) {
			continue
		}
		if len(allowed) > 0 {
			if _, ok := allowed[torrent.ProviderID]; !ok {
				continue
			}
		}
		if f.ExcludeDead && torrent.Seeders == 0 {
			continue
		}
		out = append(out, torrent)
	}
	return out
}
