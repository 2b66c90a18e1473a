package apihttp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"torrentsearch/searchd/internal/domain"
	"torrentsearch/searchd/internal/jackett"
	"torrentsearch/searchd/internal/search"
	"torrentsearch/searchd/internal/store"
)

type fakeSearch struct {
	emissions []domain.SearchResults
	err       error
	lastQuery string
}

func (f *fakeSearch) SearchTorrents(ctx context.Context, query string, category domain.Category) (<-chan domain.SearchResults, error) {
	f.lastQuery = query
	if f.err != nil {
		return nil, f.err
	}
	ch := make(chan domain.SearchResults, len(f.emissions))
	for _, emission := range f.emissions {
		ch <- emission
	}
	close(ch)
	return ch, nil
}

func (f *fakeSearch) Builtins() []domain.ProviderInfo {
	return []domain.ProviderInfo{
		{ID: "yts", Name: "YTS", SpecializedTo: domain.CategoryMovies, Safety: domain.SafetySafe, EnabledByDefault: true},
	}
}

func (f *fakeSearch) Diagnostics() []domain.ProviderDiagnostics {
	return []domain.ProviderDiagnostics{
		{ProviderInfo: domain.ProviderInfo{ID: "yts", Name: "YTS"}, TotalRequests: 2},
	}
}

type fakeSyncer struct {
	report    jackett.Report
	err       error
	synced    bool
	allCalled bool
}

func (f *fakeSyncer) Sync(ctx context.Context, baseURL, apiKey string) (jackett.Report, error) {
	if f.err != nil {
		return jackett.Report{}, f.err
	}
	f.synced = true
	return f.report, nil
}

func (f *fakeSyncer) SyncAll(ctx context.Context) ([]jackett.Report, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.allCalled = true
	return []jackett.Report{f.report}, nil
}

func (f *fakeSyncer) LastReport() (jackett.Report, bool) {
	return f.report, f.synced
}

func newTestServer(t *testing.T, searchService SearchService, options ...ServerOption) (*httptest.Server, *store.Store) {
	t.Helper()
	s, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	server := httptest.NewServer(NewServer(searchService, s, options...).Handler())
	t.Cleanup(server.Close)
	return server, s
}

func decodeBody(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHealthEndpoint(t *testing.T) {
	server, _ := newTestServer(t, &fakeSearch{})

	resp, err := http.Get(server.URL + "/health")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	var payload map[string]any
	decodeBody(t, resp, &payload)
	if resp.StatusCode != http.StatusOK || payload["status"] != "ok" {
		t.Fatalf("unexpected health response: %d %v", resp.StatusCode, payload)
	}
}

func TestSearchRequiresQuery(t *testing.T) {
	server, _ := newTestServer(t, &fakeSearch{})

	resp, err := http.Get(server.URL + "/search")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestSearchReturnsShapedFinal(t *testing.T) {
	fake := &fakeSearch{emissions: []domain.SearchResults{
		{
			Query: "ubuntu",
			Torrents: []domain.Torrent{
				{Name: "ubuntu desktop", Seeders: 3, Magnet: "magnet:?xt=a", ProviderID: "yts"},
				{Name: "ubuntu server", Seeders: 90, Magnet: "magnet:?xt=b", ProviderID: "yts"},
				{Name: "dead mirror", Seeders: 0, Magnet: "magnet:?xt=c", ProviderID: "yts"},
			},
			Final: true,
		},
	}}
	server, s := newTestServer(t, fake)

	resp, err := http.Get(server.URL + "/search?q=ubuntu&sortBy=seeders&sortOrder=desc&excludeDead=true")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	var payload domain.SearchResults
	decodeBody(t, resp, &payload)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if len(payload.Torrents) != 2 {
		t.Fatalf("expected dead torrent filtered, got %d results", len(payload.Torrents))
	}
	if payload.Torrents[0].Seeders != 90 {
		t.Fatalf("expected seeders sort desc, got %+v", payload.Torrents)
	}

	// Default settings save the query to history.
	entries, err := s.ListHistory(context.Background())
	if err != nil || len(entries) != 1 || entries[0].Query != "ubuntu" {
		t.Fatalf("expected history entry, got %v, %v", entries, err)
	}
}

func TestSearchMapsNetworkUnavailable(t *testing.T) {
	server, _ := newTestServer(t, &fakeSearch{err: search.ErrNetworkUnavailable})

	resp, err := http.Get(server.URL + "/search?q=anything")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
}

func TestSearchStreamEmitsSSE(t *testing.T) {
	fake := &fakeSearch{emissions: []domain.SearchResults{
		{Torrents: []domain.Torrent{{Name: "partial", Magnet: "magnet:?xt=a"}}, Pending: 1},
		{Torrents: []domain.Torrent{{Name: "partial", Magnet: "magnet:?xt=a"}, {Name: "full", Magnet: "magnet:?xt=b"}}, Final: true},
	}}
	server, _ := newTestServer(t, fake)

	resp, err := http.Get(server.URL + "/search/stream?q=ubuntu")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if contentType := resp.Header.Get("Content-Type"); !strings.HasPrefix(contentType, "text/event-stream") {
		t.Fatalf("unexpected content type %q", contentType)
	}

	var body bytes.Buffer
	if _, err := body.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read body: %v", err)
	}
	raw := body.String()
	for _, want := range []string{"event: bootstrap", "event: update", "event: done"} {
		if !strings.Contains(raw, want) {
			t.Fatalf("missing %q in stream:\n%s", want, raw)
		}
	}
	if strings.Count(raw, "event: update") != 2 {
		t.Fatalf("expected 2 update events:\n%s", raw)
	}
}

func TestProvidersIncludeTorznabConfigs(t *testing.T) {
	server, s := newTestServer(t, &fakeSearch{})

	if _, err := s.InsertTorznabConfig(context.Background(), store.TorznabConfig{
		Name: "Private", URL: "http://indexer.local/api", Category: domain.CategorySeries,
	}); err != nil {
		t.Fatalf("insert config: %v", err)
	}

	resp, err := http.Get(server.URL + "/search/providers")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	var payload struct {
		Items []domain.ProviderInfo `json:"items"`
	}
	decodeBody(t, resp, &payload)
	if len(payload.Items) != 2 {
		t.Fatalf("expected builtin + torznab provider, got %d", len(payload.Items))
	}
}

func TestSettingsRoundTripOverHTTP(t *testing.T) {
	server, _ := newTestServer(t, &fakeSearch{})

	body := `{"enabledProviderIds":["yts"],"defaultCategory":"movies","defaultSortCriteria":"size","defaultSortOrder":"asc","maxResults":25,"saveSearchHistory":false,"showSearchHistory":true}`
	req, _ := http.NewRequest(http.MethodPut, server.URL+"/settings", strings.NewReader(body))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	var saved store.Settings
	decodeBody(t, resp, &saved)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if saved.DefaultCategory != domain.CategoryMovies || saved.MaxResults != 25 || saved.SaveSearchHistory {
		t.Fatalf("unexpected saved settings: %+v", saved)
	}
}

func TestTorznabConfigLifecycleOverHTTP(t *testing.T) {
	server, _ := newTestServer(t, &fakeSearch{})

	resp, err := http.Post(server.URL+"/torznab/configs", "application/json",
		strings.NewReader(`{"name":"Indexer","url":"http://indexer.local/api/","apiKey":"k","category":"series"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	var created store.TorznabConfig
	decodeBody(t, resp, &created)
	if resp.StatusCode != http.StatusCreated || created.ID == "" {
		t.Fatalf("unexpected create response: %d %+v", resp.StatusCode, created)
	}

	req, _ := http.NewRequest(http.MethodPatch, server.URL+"/torznab/configs/"+created.ID,
		strings.NewReader(`{"name":"Renamed"}`))
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("patch: %v", err)
	}
	var updated store.TorznabConfig
	decodeBody(t, resp, &updated)
	if updated.Name != "Renamed" || updated.Category != domain.CategorySeries {
		t.Fatalf("unexpected patch result: %+v", updated)
	}

	req, _ = http.NewRequest(http.MethodDelete, server.URL+"/torznab/configs/"+created.ID, nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}

	resp, err = http.Get(server.URL + "/torznab/configs/" + created.ID)
	if err != nil {
		t.Fatalf("get deleted: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", resp.StatusCode)
	}
}

func TestBookmarkEndpoints(t *testing.T) {
	server, _ := newTestServer(t, &fakeSearch{})

	resp, err := http.Post(server.URL+"/bookmarks", "application/json",
		strings.NewReader(`{"name":"Ubuntu","magnet":"magnet:?xt=urn:btih:aabbccddeeff00112233445566778899aabbccdd"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	var created store.Bookmark
	decodeBody(t, resp, &created)
	if resp.StatusCode != http.StatusCreated || created.ID == 0 {
		t.Fatalf("unexpected create response: %d %+v", resp.StatusCode, created)
	}

	resp, err = http.Post(server.URL+"/bookmarks", "application/json",
		strings.NewReader(`{"name":"no links"}`))
	if err != nil {
		t.Fatalf("post unusable: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unusable torrent, got %d", resp.StatusCode)
	}

	resp, err = http.Get(server.URL + "/bookmarks")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var list struct {
		Items []store.Bookmark `json:"items"`
	}
	decodeBody(t, resp, &list)
	if len(list.Items) != 1 {
		t.Fatalf("expected 1 bookmark, got %d", len(list.Items))
	}

	resp, err = http.Get(fmt.Sprintf("%s/bookmarks/%d", server.URL, created.ID))
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	var fetched store.Bookmark
	decodeBody(t, resp, &fetched)
	if resp.StatusCode != http.StatusOK || fetched.ID != created.ID || fetched.Torrent.Name != "Ubuntu" {
		t.Fatalf("unexpected get response: %d %+v", resp.StatusCode, fetched)
	}

	resp, err = http.Get(server.URL + "/bookmarks/9999")
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown bookmark, got %d", resp.StatusCode)
	}
}

func TestHistoryHiddenWhenDisabled(t *testing.T) {
	server, s := newTestServer(t, &fakeSearch{})
	ctx := context.Background()

	if err := s.AddHistory(ctx, "ubuntu"); err != nil {
		t.Fatalf("seed history: %v", err)
	}
	settings, _ := s.Settings(ctx)
	settings.ShowSearchHistory = false
	if err := s.SaveSettings(ctx, settings); err != nil {
		t.Fatalf("save settings: %v", err)
	}

	resp, err := http.Get(server.URL + "/history")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	var payload struct {
		Items []store.HistoryEntry `json:"items"`
	}
	decodeBody(t, resp, &payload)
	if len(payload.Items) != 0 {
		t.Fatalf("expected hidden history, got %d items", len(payload.Items))
	}
}

func TestJackettSyncEndpoints(t *testing.T) {
	syncer := &fakeSyncer{report: jackett.Report{Inserted: 3, Skipped: 1}}
	server, s := newTestServer(t, &fakeSearch{}, WithSyncer(syncer))

	if _, err := s.InsertTorznabConfig(context.Background(), store.TorznabConfig{
		Name: "Seeded", URL: "http://indexer.local/api",
	}); err != nil {
		t.Fatalf("seed config: %v", err)
	}

	resp, err := http.Get(server.URL + "/torznab/sync/status")
	if err != nil {
		t.Fatalf("status before sync: %v", err)
	}
	var status map[string]any
	decodeBody(t, resp, &status)
	if status["synced"] != false {
		t.Fatalf("expected synced=false before any run: %v", status)
	}
	if status["configCount"] != float64(1) {
		t.Fatalf("expected configCount=1: %v", status)
	}

	resp, err = http.Post(server.URL+"/torznab/sync", "application/json",
		strings.NewReader(`{"baseUrl":"http://jackett.local:9117","apiKey":"key"}`))
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	var report jackett.Report
	decodeBody(t, resp, &report)
	if resp.StatusCode != http.StatusOK || report.Inserted != 3 {
		t.Fatalf("unexpected sync response: %d %+v", resp.StatusCode, report)
	}

	resp, err = http.Get(server.URL + "/torznab/sync/status")
	if err != nil {
		t.Fatalf("status after sync: %v", err)
	}
	status = nil
	decodeBody(t, resp, &status)
	if status["synced"] != true {
		t.Fatalf("expected synced=true after run: %v", status)
	}
}

func TestJackettSyncWithoutBaseURLResyncsAll(t *testing.T) {
	syncer := &fakeSyncer{report: jackett.Report{Updated: 2}}
	server, _ := newTestServer(t, &fakeSearch{}, WithSyncer(syncer))

	resp, err := http.Post(server.URL+"/torznab/sync", "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatalf("sync all: %v", err)
	}
	var payload struct {
		Reports []jackett.Report `json:"reports"`
	}
	decodeBody(t, resp, &payload)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if !syncer.allCalled {
		t.Fatal("expected the all-instances path, not a single sync")
	}
	if len(payload.Reports) != 1 || payload.Reports[0].Updated != 2 {
		t.Fatalf("unexpected reports: %+v", payload.Reports)
	}
}

func TestUnknownRouteReturns404(t *testing.T) {
	server, _ := newTestServer(t, &fakeSearch{})

	resp, err := http.Get(server.URL + "/search/unknown")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}
