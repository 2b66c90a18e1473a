package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"torrentsearch/searchd/internal/domain"
)

// TorznabConfig is one persisted Torznab endpoint. The URL is stored without
// a trailing slash so exact-URL matching stays reliable.
type TorznabConfig struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	URL       string          `json:"url"`
	APIKey    string          `json:"apiKey"`
	Category  domain.Category `json:"category"`
	CreatedAt time.Time       `json:"createdAt"`
}

func normalizeTorznabURL(raw string) string {
	return strings.TrimRight(strings.TrimSpace(raw), "/")
}

// InsertTorznabConfig stores a new config, assigning an ID when absent.
func (s *Store) InsertTorznabConfig(ctx context.Context, cfg TorznabConfig) (TorznabConfig, error) {
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	cfg.URL = normalizeTorznabURL(cfg.URL)
	if cfg.URL == "" {
		return TorznabConfig{}, fmt.Errorf("torznab config: url is required")
	}
	if cfg.Category == "" {
		cfg.Category = domain.CategoryAll
	}
	cfg.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO torznab_configs (id, name, url, api_key, category, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		cfg.ID, cfg.Name, cfg.URL, cfg.APIKey, string(cfg.Category), cfg.CreatedAt,
	)
	if err != nil {
		return TorznabConfig{}, fmt.Errorf("insert torznab config: %w", err)
	}
	return cfg, nil
}

// UpdateTorznabConfig rewrites an existing config by ID.
func (s *Store) UpdateTorznabConfig(ctx context.Context, cfg TorznabConfig) error {
	cfg.URL = normalizeTorznabURL(cfg.URL)
	result, err := s.db.ExecContext(ctx,
		`UPDATE torznab_configs SET name = ?, url = ?, api_key = ?, category = ? WHERE id = ?`,
		cfg.Name, cfg.URL, cfg.APIKey, string(cfg.Category), cfg.ID,
	)
	if err != nil {
		return fmt.Errorf("update torznab config: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) DeleteTorznabConfig(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM torznab_configs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete torznab config: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) FindTorznabConfig(ctx context.Context, id string) (TorznabConfig, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, url, api_key, category, created_at FROM torznab_configs WHERE id = ?`, id)
	return scanTorznabConfig(row)
}

// FindTorznabConfigByURL matches on the exact normalized URL.
func (s *Store) FindTorznabConfigByURL(ctx context.Context, url string) (TorznabConfig, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, url, api_key, category, created_at FROM torznab_configs WHERE url = ?`,
		normalizeTorznabURL(url))
	return scanTorznabConfig(row)
}

// ListTorznabConfigs returns every config ordered by name. The engine calls
// this once per round to snapshot the dynamic provider set.
func (s *Store) ListTorznabConfigs(ctx context.Context) ([]TorznabConfig, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, url, api_key, category, created_at FROM torznab_configs ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list torznab configs: %w", err)
	}
	defer rows.Close()

	var configs []TorznabConfig
	for rows.Next() {
		cfg, err := scanTorznabConfig(rows)
		if err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}
	return configs, rows.Err()
}

func (s *Store) CountTorznabConfigs(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(id) FROM torznab_configs`).Scan(&count)
	return count, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTorznabConfig(row rowScanner) (TorznabConfig, error) {
	var cfg TorznabConfig
	var category string
	err := row.Scan(&cfg.ID, &cfg.Name, &cfg.URL, &cfg.APIKey, &category, &cfg.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return TorznabConfig{}, ErrNotFound
	}
	if err != nil {
		return TorznabConfig{}, fmt.Errorf("scan torznab config: %w", err)
	}
	cfg.Category = domain.NormalizeCategory(category)
	return cfg, nil
}
