package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"torrentsearch/searchd/internal/domain"
)

// Settings is the persisted user configuration consumed by the search engine.
// EnabledProviderIDs empty means "use every provider's default".
type Settings struct {
	EnabledProviderIDs  []string            `json:"enabledProviderIds"`
	DefaultCategory     domain.Category     `json:"defaultCategory"`
	DefaultSortCriteria domain.SortCriteria `json:"defaultSortCriteria"`
	DefaultSortOrder    domain.SortOrder    `json:"defaultSortOrder"`
	MaxResults          int                 `json:"maxResults"`
	SaveSearchHistory   bool                `json:"saveSearchHistory"`
	ShowSearchHistory   bool                `json:"showSearchHistory"`
}

func DefaultSettings() Settings {
	return Settings{
		DefaultCategory:     domain.CategoryAll,
		DefaultSortCriteria: domain.SortSeeders,
		DefaultSortOrder:    domain.SortDesc,
		MaxResults:          0,
		SaveSearchHistory:   true,
		ShowSearchHistory:   true,
	}
}

const (
	keyEnabledProviders = "enabled_search_providers_id"
	keyDefaultCategory  = "default_category"
	keyDefaultCriteria  = "default_sort_criteria"
	keyDefaultOrder     = "default_sort_order"
	keyMaxResults       = "max_num_results"
	keySaveHistory      = "save_search_history"
	keyShowHistory      = "show_search_history"
)

// Settings loads the stored configuration, falling back to defaults for any
// key never written.
func (s *Store) Settings(ctx context.Context) (Settings, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return Settings{}, fmt.Errorf("load settings: %w", err)
	}
	defer rows.Close()

	settings := DefaultSettings()
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return Settings{}, fmt.Errorf("scan setting: %w", err)
		}
		switch key {
		case keyEnabledProviders:
			if value != "" {
				settings.EnabledProviderIDs = strings.Split(value, ",")
			}
		case keyDefaultCategory:
			settings.DefaultCategory = domain.NormalizeCategory(value)
		case keyDefaultCriteria:
			settings.DefaultSortCriteria = domain.NormalizeSortCriteria(value)
		case keyDefaultOrder:
			settings.DefaultSortOrder = domain.NormalizeSortOrder(value)
		case keyMaxResults:
			if parsed, err := strconv.Atoi(value); err == nil && parsed >= 0 {
				settings.MaxResults = parsed
			}
		case keySaveHistory:
			settings.SaveSearchHistory = value == "true"
		case keyShowHistory:
			settings.ShowSearchHistory = value == "true"
		}
	}
	return settings, rows.Err()
}

// SaveSettings persists the whole configuration atomically.
func (s *Store) SaveSettings(ctx context.Context, settings Settings) error {
	pairs := map[string]string{
		keyEnabledProviders: strings.Join(settings.EnabledProviderIDs, ","),
		keyDefaultCategory:  string(domain.NormalizeCategory(string(settings.DefaultCategory))),
		keyDefaultCriteria:  string(domain.NormalizeSortCriteria(string(settings.DefaultSortCriteria))),
		keyDefaultOrder:     string(domain.NormalizeSortOrder(string(settings.DefaultSortOrder))),
		keyMaxResults:       strconv.Itoa(settings.MaxResults),
		keySaveHistory:      strconv.FormatBool(settings.SaveSearchHistory),
		keyShowHistory:      strconv.FormatBool(settings.ShowSearchHistory),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	defer tx.Rollback()

	for key, value := range pairs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO settings (key, value) VALUES (?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
			key, value,
		)
		if err != nil {
			return fmt.Errorf("save setting %s: %w", key, err)
		}
	}
	return tx.Commit()
}
