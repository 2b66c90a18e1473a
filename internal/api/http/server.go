package apihttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"torrentsearch/searchd/internal/domain"
	"torrentsearch/searchd/internal/jackett"
	"torrentsearch/searchd/internal/search"
	"torrentsearch/searchd/internal/store"
)

type SearchService interface {
	SearchTorrents(ctx context.Context, query string, category domain.Category) (<-chan domain.SearchResults, error)
	Builtins() []domain.ProviderInfo
	Diagnostics() []domain.ProviderDiagnostics
}

// Storage is the persistence surface the API exposes. *store.Store
// satisfies it.
type Storage interface {
	Settings(ctx context.Context) (store.Settings, error)
	SaveSettings(ctx context.Context, settings store.Settings) error

	ListTorznabConfigs(ctx context.Context) ([]store.TorznabConfig, error)
	CountTorznabConfigs(ctx context.Context) (int, error)
	FindTorznabConfig(ctx context.Context, id string) (store.TorznabConfig, error)
	InsertTorznabConfig(ctx context.Context, cfg store.TorznabConfig) (store.TorznabConfig, error)
	UpdateTorznabConfig(ctx context.Context, cfg store.TorznabConfig) error
	DeleteTorznabConfig(ctx context.Context, id string) error

	AddBookmark(ctx context.Context, torrent domain.Torrent) (store.Bookmark, error)
	ListBookmarks(ctx context.Context) ([]store.Bookmark, error)
	FindBookmark(ctx context.Context, id int64) (store.Bookmark, error)
	DeleteBookmark(ctx context.Context, id int64) error

	AddHistory(ctx context.Context, query string) error
	ListHistory(ctx context.Context) ([]store.HistoryEntry, error)
	DeleteHistory(ctx context.Context, id int64) error
	ClearHistory(ctx context.Context) error
}

type SyncService interface {
	Sync(ctx context.Context, baseURL, apiKey string) (jackett.Report, error)
	SyncAll(ctx context.Context) ([]jackett.Report, error)
	LastReport() (jackett.Report, bool)
}

type Server struct {
	search  SearchService
	storage Storage
	syncer  SyncService
	logger  *slog.Logger
}

const maxQueryLength = 500

type ServerOption func(*Server)

func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

func WithSyncer(syncer SyncService) ServerOption {
	return func(s *Server) {
		s.syncer = syncer
	}
}

func NewServer(searchService SearchService, storage Storage, options ...ServerOption) *Server {
	server := &Server{
		search:  searchService,
		storage: storage,
		logger:  slog.Default(),
	}
	for _, option := range options {
		if option != nil {
			option(server)
		}
	}
	if server.logger == nil {
		server.logger = slog.Default()
	}
	return server
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/search/providers", s.handleProviders)
	mux.HandleFunc("/search/providers/health", s.handleProvidersHealth)
	mux.HandleFunc("/search/stream", s.handleSearchStream)
	mux.HandleFunc("/search", s.handleSearch)
	mux.HandleFunc("/settings", s.handleSettings)
	mux.HandleFunc("/torznab/configs", s.handleTorznabConfigs)
	mux.HandleFunc("/torznab/configs/", s.handleTorznabConfigByID)
	mux.HandleFunc("/torznab/sync", s.handleTorznabSync)
	mux.HandleFunc("/torznab/sync/status", s.handleTorznabSyncStatus)
	mux.HandleFunc("/bookmarks", s.handleBookmarks)
	mux.HandleFunc("/bookmarks/", s.handleBookmarkByID)
	mux.HandleFunc("/history", s.handleHistory)
	mux.HandleFunc("/history/", s.handleHistoryByID)
	traced := otelhttp.NewHandler(loggingMiddleware(s.logger, mux), "torrentsearch",
		otelhttp.WithFilter(func(r *http.Request) bool {
			p := r.URL.Path
			return p != "/metrics" && p != "/health"
		}),
	)
	return recoveryMiddleware(s.logger, rateLimitMiddleware(50, 100, metricsMiddleware(traced)))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}

// searchParams is everything both search endpoints share.
type searchParams struct {
	query    string
	category domain.Category
	criteria domain.SortCriteria
	order    domain.SortOrder
	filters  search.Filters
	limit    int
}

func (s *Server) parseSearchParams(r *http.Request) (searchParams, error) {
	q := r.URL.Query()

	query := strings.TrimSpace(q.Get("q"))
	if query == "" {
		return searchParams{}, errors.New("query is required")
	}
	if len(query) > maxQueryLength {
		return searchParams{}, fmt.Errorf("query too long (max %d characters)", maxQueryLength)
	}

	limit, err := parseNonNegativeInt(r, "limit", 0)
	if err != nil {
		return searchParams{}, errors.New("invalid limit")
	}

	return searchParams{
		query:    query,
		category: domain.NormalizeCategory(q.Get("category")),
		criteria: domain.NormalizeSortCriteria(q.Get("sortBy")),
		order:    domain.NormalizeSortOrder(q.Get("sortOrder")),
		filters: search.Filters{
			NameContains: strings.TrimSpace(q.Get("name")),
			Providers:    parseCSV(q.Get("providers")),
			ExcludeDead:  parseOptionalBool(q.Get("excludeDead")),
		},
		limit: limit,
	}, nil
}

// shapeResults applies the presentation pipeline to one emission: filters,
// then the stable sort, then the result cap.
func shapeResults(results domain.SearchResults, params searchParams, settings store.Settings) domain.SearchResults {
	torrents := params.filters.Apply(results.Torrents)

	criteria := params.criteria
	order := params.order
	if criteria == domain.SortDefault && settings.DefaultSortCriteria != domain.SortDefault {
		criteria = settings.DefaultSortCriteria
		order = settings.DefaultSortOrder
	}
	search.SortTorrents(torrents, criteria, order)

	limit := params.limit
	if limit == 0 {
		limit = settings.MaxResults
	}
	if limit > 0 && len(torrents) > limit {
		torrents = torrents[:limit]
	}

	results.Torrents = torrents
	return results
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/search" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	params, err := s.parseSearchParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	settings, err := s.storage.Settings(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "settings unavailable")
		return
	}

	ch, err := s.search.SearchTorrents(r.Context(), params.query, params.category)
	if err != nil {
		s.writeSearchError(w, params.query, err)
		return
	}

	var final domain.SearchResults
	for results := range ch {
		final = results
	}
	final = shapeResults(final, params, settings)

	if settings.SaveSearchHistory {
		if err := s.storage.AddHistory(r.Context(), params.query); err != nil {
			s.logger.Warn("history write failed", slog.String("error", err.Error()))
		}
	}

	s.logger.Info("search completed",
		slog.String("query", truncate(params.query, 80)),
		slog.String("category", string(params.category)),
		slog.Int("results", len(final.Torrents)),
		slog.Int("failures", len(final.Failures)),
		slog.Int64("elapsedMs", final.ElapsedMS),
	)
	writeJSON(w, http.StatusOK, final)
}

func (s *Server) handleSearchStream(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/search/stream" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "internal_error", "streaming is not supported")
		return
	}

	params, err := s.parseSearchParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	settings, err := s.storage.Settings(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "settings unavailable")
		return
	}

	ch, err := s.search.SearchTorrents(r.Context(), params.query, params.category)
	if err != nil {
		s.writeSearchError(w, params.query, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	if err := writeSSEEvent(w, flusher, "bootstrap", map[string]any{
		"query":  params.query,
		"final":  false,
		"status": "started",
	}); err != nil {
		return // Client disconnected
	}

	for results := range ch {
		select {
		case <-r.Context().Done():
			return // Client disconnected
		default:
		}
		if err := writeSSEEvent(w, flusher, "update", shapeResults(results, params, settings)); err != nil {
			return // Client disconnected
		}
	}

	if settings.SaveSearchHistory {
		if err := s.storage.AddHistory(r.Context(), params.query); err != nil {
			s.logger.Warn("history write failed", slog.String("error", err.Error()))
		}
	}
	_ = writeSSEEvent(w, flusher, "done", map[string]any{"final": true})
}

func (s *Server) writeSearchError(w http.ResponseWriter, query string, err error) {
	s.logger.Warn("search request failed",
		slog.String("query", truncate(query, 80)),
		slog.String("error", err.Error()),
	)
	switch {
	case errors.Is(err, search.ErrInvalidQuery):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, search.ErrNetworkUnavailable):
		writeError(w, http.StatusServiceUnavailable, "network_unavailable", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "search failed")
	}
}

func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/search/providers" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	items := s.search.Builtins()
	configs, err := s.storage.ListTorznabConfigs(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "storage unavailable")
		return
	}
	for _, cfg := range configs {
		items = append(items, domain.ProviderInfo{
			ID:               cfg.ID,
			Name:             cfg.Name,
			URL:              cfg.URL,
			SpecializedTo:    cfg.Category,
			Safety:           domain.SafetyUnsafe,
			EnabledByDefault: true,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) handleProvidersHealth(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/search/providers/health" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"checkedAt": time.Now().UTC(),
		"items":     s.search.Diagnostics(),
	})
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/settings" {
		http.NotFound(w, r)
		return
	}
	switch r.Method {
	case http.MethodGet:
		settings, err := s.storage.Settings(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", "settings unavailable")
			return
		}
		writeJSON(w, http.StatusOK, settings)
	case http.MethodPut:
		var settings store.Settings
		if err := decodeJSONBody(r, &settings); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		if err := s.storage.SaveSettings(r.Context(), settings); err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", "save settings failed")
			return
		}
		saved, err := s.storage.Settings(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", "settings unavailable")
			return
		}
		writeJSON(w, http.StatusOK, saved)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func parseCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		value := strings.TrimSpace(part)
		if value == "" {
			continue
		}
		if _, exists := seen[value]; exists {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}

func decodeJSONBody(r *http.Request, dest any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read request body: %w", err)
	}
	if len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}

	decoder := json.NewDecoder(bytes.NewReader(payload))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("invalid json body: %w", err)
	}
	return nil
}

func parseNonNegativeInt(r *http.Request, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed < 0 {
		return 0, errors.New("invalid value")
	}
	return parsed, nil
}

func parseOptionalBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}

func writeSSEEvent(w http.ResponseWriter, flusher http.Flusher, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if event != "" {
		if _, err := fmt.Fprintf(w, "event: %s\n", event); err != nil {
			return err // Client disconnected
		}
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err // Client disconnected
	}
	flusher.Flush()
	return nil
}
