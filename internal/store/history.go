package store

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// HistoryEntry is one remembered search query.
type HistoryEntry struct {
	ID        int64     `json:"id"`
	Query     string    `json:"query"`
	CreatedAt time.Time `json:"createdAt"`
}

// AddHistory records a query. Queries are trimmed before keying, and a repeat
// of an existing query bumps it to the top instead of duplicating it.
func (s *Store) AddHistory(ctx context.Context, query string) error {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO search_history (query, created_at) VALUES (?, ?)
		 ON CONFLICT(query) DO UPDATE SET created_at = excluded.created_at`,
		query, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("add history: %w", err)
	}
	return nil
}

// ListHistory returns remembered queries, newest first.
func (s *Store) ListHistory(ctx context.Context) ([]HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, query, created_at FROM search_history ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var entry HistoryEntry
		if err := rows.Scan(&entry.ID, &entry.Query, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (s *Store) DeleteHistory(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM search_history WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete history: %w", err)
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

func (s *Store) ClearHistory(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM search_history`); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}
