package search

import (
	"testing"
	"time"

	"torrentsearch/searchd/internal/domain"
)

func sampleTorrents() []domain.Torrent {
	return []domain.Torrent{
		{Name: "beta", SizeBytes: 300, Seeders: 5, UploadedAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{Name: "Alpha", SizeBytes: 100, Seeders: 20, UploadedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{Name: "gamma", SizeBytes: 200, Seeders: 5, UploadedAt: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)},
	}
}

func names(torrents []domain.Torrent) []string {
	out := make([]string, len(torrents))
	for i, t := range torrents {
		out[i] = t.Name
	}
	return out
}

func assertOrder(t *testing.T, got []domain.Torrent, want ...string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %v, want %v", names(got), want)
	}
	for i := range want {
		if got[i].Name != want[i] {
			t.Fatalf("order mismatch: got %v, want %v", names(got), want)
		}
	}
}

func TestSortDefaultPreservesArrivalOrder(t *testing.T) {
	torrents := sampleTorrents()
	SortTorrents(torrents, domain.SortDefault, domain.SortDesc)
	assertOrder(t, torrents, "beta", "Alpha", "gamma")
}

func TestSortByNameIsCaseInsensitive(t *testing.T) {
	torrents := sampleTorrents()
	SortTorrents(torrents, domain.SortName, domain.SortAsc)
	assertOrder(t, torrents, "Alpha", "beta", "gamma")
}

func TestSortBySizeDescending(t *testing.T) {
	torrents := sampleTorrents()
	SortTorrents(torrents, domain.SortSizeB, domain.SortDesc)
	assertOrder(t, torrents, "beta", "gamma", "Alpha")
}

func TestSortByUploadDateAscending(t *testing.T) {
	torrents := sampleTorrents()
	SortTorrents(torrents, domain.SortUploaded, domain.SortAsc)
	assertOrder(t, torrents, "Alpha", "gamma", "beta")
}

func TestSortBySeedersIsStableForTies(t *testing.T) {
	torrents := sampleTorrents()
	SortTorrents(torrents, domain.SortSeeders, domain.SortDesc)
	// beta and gamma tie on seeders and must keep their arrival order.
	assertOrder(t, torrents, "Alpha", "beta", "gamma")
}

func TestSortOrderReversalIsStable(t *testing.T) {
	torrents := sampleTorrents()
	SortTorrents(torrents, domain.SortSeeders, domain.SortAsc)
	assertOrder(t, torrents, "beta", "gamma", "Alpha")
}
