package apihttp

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"torrentsearch/searchd/internal/domain"
	"torrentsearch/searchd/internal/jackett"
	"torrentsearch/searchd/internal/store"
)

type torznabConfigPayload struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	APIKey   string `json:"apiKey"`
	Category string `json:"category"`
}

func (s *Server) handleTorznabConfigs(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/torznab/configs" {
		http.NotFound(w, r)
		return
	}
	switch r.Method {
	case http.MethodGet:
		configs, err := s.storage.ListTorznabConfigs(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", "storage unavailable")
			return
		}
		if configs == nil {
			configs = []store.TorznabConfig{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": configs})
	case http.MethodPost:
		var payload torznabConfigPayload
		if err := decodeJSONBody(r, &payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		if strings.TrimSpace(payload.URL) == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "url is required")
			return
		}
		created, err := s.storage.InsertTorznabConfig(r.Context(), store.TorznabConfig{
			Name:     strings.TrimSpace(payload.Name),
			URL:      payload.URL,
			APIKey:   payload.APIKey,
			Category: domain.NormalizeCategory(payload.Category),
		})
		if err != nil {
			writeError(w, http.StatusConflict, "conflict", err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, created)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleTorznabConfigByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/torznab/configs/")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		cfg, err := s.storage.FindTorznabConfig(r.Context(), id)
		if err != nil {
			s.writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, cfg)
	case http.MethodPut, http.MethodPatch:
		existing, err := s.storage.FindTorznabConfig(r.Context(), id)
		if err != nil {
			s.writeStorageError(w, err)
			return
		}
		var payload torznabConfigPayload
		if err := decodeJSONBody(r, &payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		if name := strings.TrimSpace(payload.Name); name != "" {
			existing.Name = name
		}
		if url := strings.TrimSpace(payload.URL); url != "" {
			existing.URL = url
		}
		if payload.APIKey != "" {
			existing.APIKey = payload.APIKey
		}
		if payload.Category != "" {
			existing.Category = domain.NormalizeCategory(payload.Category)
		}
		if err := s.storage.UpdateTorznabConfig(r.Context(), existing); err != nil {
			s.writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, existing)
	case http.MethodDelete:
		if err := s.storage.DeleteTorznabConfig(r.Context(), id); err != nil {
			s.writeStorageError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleTorznabSync(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/torznab/sync" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.syncer == nil {
		writeError(w, http.StatusNotImplemented, "not_configured", "jackett sync is not configured")
		return
	}

	var payload struct {
		BaseURL string `json:"baseUrl"`
		APIKey  string `json:"apiKey"`
	}
	if err := decodeJSONBody(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	// Without a base URL the request re-syncs every known instance.
	if strings.TrimSpace(payload.BaseURL) == "" {
		reports, err := s.syncer.SyncAll(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}
		if reports == nil {
			reports = []jackett.Report{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"reports": reports})
		return
	}

	report, err := s.syncer.Sync(r.Context(), payload.BaseURL, payload.APIKey)
	if err != nil {
		s.logger.Warn("jackett sync failed",
			slog.String("baseUrl", payload.BaseURL),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadGateway, "upstream_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleTorznabSyncStatus(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/torznab/sync/status" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.syncer == nil {
		writeError(w, http.StatusNotImplemented, "not_configured", "jackett sync is not configured")
		return
	}

	configCount, err := s.storage.CountTorznabConfigs(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "storage unavailable")
		return
	}

	report, ok := s.syncer.LastReport()
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"synced": false, "configCount": configCount})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"synced": true, "configCount": configCount, "report": report})
}

func (s *Server) handleBookmarks(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/bookmarks" {
		http.NotFound(w, r)
		return
	}
	switch r.Method {
	case http.MethodGet:
		bookmarks, err := s.storage.ListBookmarks(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", "storage unavailable")
			return
		}
		if bookmarks == nil {
			bookmarks = []store.Bookmark{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": bookmarks})
	case http.MethodPost:
		var torrent domain.Torrent
		if err := decodeJSONBody(r, &torrent); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		saved, err := s.storage.AddBookmark(r.Context(), torrent)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, saved)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleBookmarkByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseTrailingID(w, r, "/bookmarks/")
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		bookmark, err := s.storage.FindBookmark(r.Context(), id)
		if err != nil {
			s.writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, bookmark)
	case http.MethodDelete:
		if err := s.storage.DeleteBookmark(r.Context(), id); err != nil {
			s.writeStorageError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/history" {
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
		if !settings.ShowSearchHistory {
			writeJSON(w, http.StatusOK, map[string]any{"items": []store.HistoryEntry{}})
			return
		}
		entries, err := s.storage.ListHistory(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", "storage unavailable")
			return
		}
		if entries == nil {
			entries = []store.HistoryEntry{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": entries})
	case http.MethodDelete:
		if err := s.storage.ClearHistory(r.Context()); err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", "storage unavailable")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleHistoryByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseTrailingID(w, r, "/history/")
	if !ok {
		return
	}
	if r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := s.storage.DeleteHistory(r.Context(), id); err != nil {
		s.writeStorageError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseTrailingID(w http.ResponseWriter, r *http.Request, prefix string) (int64, bool) {
	raw := strings.TrimPrefix(r.URL.Path, prefix)
	if raw == "" || strings.Contains(raw, "/") {
		http.NotFound(w, r)
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid id")
		return 0, false
	}
	return id, true
}

func (s *Server) writeStorageError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "resource not found")
		return
	}
	writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
}
