package search

import (
	"sort"
	"strings"

	"torrentsearch/searchd/internal/domain"
)

// SortTorrents orders results in place. The sort is stable so equal elements
// keep their arrival order, and SortDefault leaves the slice untouched.
func SortTorrents(torrents []domain.Torrent, criteria domain.SortCriteria, order domain.SortOrder) {
	if criteria == domain.SortDefault {
		return
	}

	less := func(a, b domain.Torrent) bool {
		switch criteria {
		case domain.SortName:
			return strings.ToLower(a.Name) < strings.ToLower(b.Name)
		case domain.SortSizeB:
			return a.SizeBytes < b.SizeBytes
		case domain.SortUploaded:
			return a.UploadedAt.Before(b.UploadedAt)
		case domain.SortSeeders:
			return a.Seeders < b.Seeders
		default:
			return false
		}
	}

	sort.SliceStable(torrents, func(i, j int) bool {
		if order == domain.SortDesc {
			return less(torrents[j], torrents[i])
		}
		return less(torrents[i], torrents[j])
	})
}
