package torrentscsv

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"torrentsearch/searchd/internal/domain"
)

func TestSearchParsesResults(t *testing.T) {
	payload := `{"torrents":[
		{"infohash":"aabbccddeeff00112233445566778899aabbccdd","name":"Debian 12 netinst","size_bytes":659554304,"seeders":88,"leechers":2,"created_unix":1690000000},
		{"infohash":"","name":"missing hash","size_bytes":1,"seeders":0,"leechers":0,"created_unix":0}
	]}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/service/search" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(payload))
	}))
	defer srv.Close()

	provider := NewProvider(Config{BaseURL: srv.URL})
	torrents, err := provider.Search(context.Background(), "debian", domain.CategoryAll)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(torrents) != 1 {
		t.Fatalf("expected 1 torrent, got %d", len(torrents))
	}
	got := torrents[0]
	if got.Name != "Debian 12 netinst" || got.Seeders != 88 {
		t.Errorf("unexpected record: %+v", got)
	}
	if got.UploadedAt.IsZero() {
		t.Error("expected uploadedAt to be set")
	}
	if got.ProviderID != "torrentscsv" {
		t.Errorf("unexpected provider id %q", got.ProviderID)
	}
}

func TestSearchEmptyDataset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"torrents":[]}`))
	}))
	defer srv.Close()

	provider := NewProvider(Config{BaseURL: srv.URL})
	torrents, err := provider.Search(context.Background(), "nothing", domain.CategoryAll)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(torrents) != 0 {
		t.Fatalf("expected no torrents, got %d", len(torrents))
	}
}
