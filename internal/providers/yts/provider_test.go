package yts

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"torrentsearch/searchd/internal/domain"
)

const listPayload = `{
	"status": "ok",
	"data": {
		"movie_count": 1,
		"movies": [{
			"title_long": "Inception (2010)",
			"url": "https://yts.example/movies/inception-2010",
			"torrents": [
				{"hash":"AABBCCDDEEFF00112233445566778899AABBCCDD","quality":"1080p","type":"bluray","size_bytes":2147483648,"seeds":250,"peers":30,"date_uploaded_unix":1600000000},
				{"hash":"","quality":"720p","type":"bluray","size_bytes":1073741824,"seeds":90,"peers":12,"date_uploaded_unix":1600000000}
			]
		}]
	}
}`

func TestSearchFansOutPerQuality(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/list_movies.json" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(listPayload))
	}))
	defer srv.Close()

	provider := NewProvider(Config{BaseURL: srv.URL})
	torrents, err := provider.Search(context.Background(), "inception", domain.CategoryMovies)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(torrents) != 2 {
		t.Fatalf("expected 2 releases, got %d", len(torrents))
	}

	first := torrents[0]
	if first.Name != "Inception (2010) [1080p]" {
		t.Errorf("unexpected name: %q", first.Name)
	}
	if first.Category != domain.CategoryMovies {
		t.Errorf("expected movies category, got %s", first.Category)
	}

	// The hashless release still carries a description URL, so it stays.
	second := torrents[1]
	if second.Magnet != "" {
		t.Errorf("expected empty magnet for hashless release, got %q", second.Magnet)
	}
	if !second.Usable() {
		t.Error("hashless release with description URL must remain usable")
	}
}

func TestSearchNoMovies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok","data":{"movie_count":0,"movies":[]}}`))
	}))
	defer srv.Close()

	provider := NewProvider(Config{BaseURL: srv.URL})
	torrents, err := provider.Search(context.Background(), "zzzz", domain.CategoryMovies)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(torrents) != 0 {
		t.Fatalf("expected no torrents, got %d", len(torrents))
	}
}
