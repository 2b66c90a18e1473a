package eztv

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"torrentsearch/searchd/internal/domain"
)

const searchPage = `<html><body><table>
<tr class="forum_header_border">
  <td><a href="/ep/12345/show-s01e01-1080p/" class="epinfo">Show S01E01 1080p</a></td>
  <td><a href="magnet:?xt=urn:btih:aabbccddeeff00112233445566778899aabbccdd&dn=Show.S01E01">Magnet</a></td>
  <td>1.4 GB</td>
  <td><font color="green">321</font></td>
</tr>
<tr class="forum_header_border">
  <td><a href="/ep/12346/show-s01e02-1080p/" class="epinfo">Show S01E02 1080p</a></td>
  <td></td>
  <td>1.2 GB</td>
  <td><font color="green">12</font></td>
</tr>
<tr class="forum_header_border">
  <td>malformed row with nothing useful</td>
</tr>
</table></body></html>`

func TestSearchParsesRows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(searchPage))
	}))
	defer srv.Close()

	provider := NewProvider(Config{BaseURL: srv.URL})
	torrents, err := provider.Search(context.Background(), "show", domain.CategorySeries)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(torrents) != 2 {
		t.Fatalf("expected 2 rows (malformed dropped), got %d", len(torrents))
	}

	first := torrents[0]
	if first.Name != "Show S01E01 1080p" {
		t.Errorf("unexpected name: %q", first.Name)
	}
	if first.InfoHash != "aabbccddeeff00112233445566778899aabbccdd" {
		t.Errorf("unexpected info hash: %q", first.InfoHash)
	}
	if first.Seeders != 321 {
		t.Errorf("unexpected seeders: %d", first.Seeders)
	}
	if first.Category != domain.CategorySeries {
		t.Errorf("unexpected category: %s", first.Category)
	}

	// Second row has no magnet but keeps its episode page.
	second := torrents[1]
	if second.Magnet != "" {
		t.Errorf("expected empty magnet, got %q", second.Magnet)
	}
	if second.DescriptionURL == "" || !second.Usable() {
		t.Errorf("expected usable record via description URL: %+v", second)
	}
}

func TestSearchEmptyPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body>No results</body></html>"))
	}))
	defer srv.Close()

	provider := NewProvider(Config{BaseURL: srv.URL})
	torrents, err := provider.Search(context.Background(), "nothing", domain.CategorySeries)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(torrents) != 0 {
		t.Fatalf("expected no torrents, got %d", len(torrents))
	}
}
