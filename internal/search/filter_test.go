package search

import (
	"testing"

	"torrentsearch/searchd/internal/domain"
)

func filterFixture() []domain.Torrent {
	return []domain.Torrent{
		{Name: "Ubuntu 24.04 LTS", Seeders: 120, ProviderID: "thepiratebay"},
		{Name: "Debian 12 netinst", Seeders: 0, ProviderID: "thepiratebay"},
		{Name: "ubuntu server", Seeders: 3, ProviderID: "torrentscsv"},
		{Name: "Fedora 40", Seeders: 9, ProviderID: "nyaa"},
	}
}

func TestZeroFiltersPassEverything(t *testing.T) {
	got := Filters{}.Apply(filterFixture())
	if len(got) != 4 {
		t.Fatalf("expected all 4 torrents, got %d", len(got))
	}
}

func TestNameFilterIsCaseInsensitive(t *testing.T) {
	got := Filters{NameContains: "UBUNTU"}.Apply(filterFixture())
	if len(got) != 2 {
		t.Fatalf("expected 2 matches, got %d: %+v", len(got), got)
	}
}

func TestProviderFilterKeepsOnlyListed(t *testing.T) {
	got := Filters{Providers: []string{"nyaa", "torrentscsv"}}.Apply(filterFixture())
	if len(got) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(got))
	}
	for _, torrent := range got {
		if torrent.ProviderID == "thepiratebay" {
			t.Fatalf("provider filter leaked %+v", torrent)
		}
	}
}

func TestExcludeDeadDropsZeroSeeders(t *testing.T) {
	got := Filters{ExcludeDead: true}.Apply(filterFixture())
	if len(got) != 3 {
		t.Fatalf("expected 3 live torrents, got %d", len(got))
	}
	for _, torrent := range got {
		if torrent.Seeders == 0 {
			t.Fatalf("dead torrent survived: %+v", torrent)
		}
	}
}

func TestCombinedFiltersAreConjunctive(t *testing.T) {
	filters := Filters{
		NameContains: "ubuntu",
		Providers:    []string{"thepiratebay", "torrentscsv"},
		ExcludeDead:  true,
	}
	got := filters.Apply(filterFixture())
	if len(got) != 2 {
		t.Fatalf("expected 2 matches, got %d: %+v", len(got), got)
	}

	// Filter order must not matter: the same criteria applied as separate
	// passes in a different order give the same set.
	step1 := Filters{ExcludeDead: true}.Apply(filterFixture())
	step2 := Filters{Providers: []string{"thepiratebay", "torrentscsv"}}.Apply(step1)
	step3 := Filters{NameContains: "ubuntu"}.Apply(step2)
	if len(step3) != len(got) {
		t.Fatalf("filter application is order dependent: %d != %d", len(step3), len(got))
	}
}
