package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"torrentsearch/searchd/internal/domain"
)

// Bookmark is a saved torrent record.
type Bookmark struct {
	ID        int64          `json:"id"`
	Torrent   domain.Torrent `json:"torrent"`
	CreatedAt time.Time      `json:"createdAt"`
}

func (s *Store) AddBookmark(ctx context.Context, torrent domain.Torrent) (Bookmark, error) {
	if !torrent.Usable() {
		return Bookmark{}, fmt.Errorf("bookmark: torrent has neither magnet nor description URL")
	}
	now := time.Now().UTC()
	var uploadedAt any
	if !torrent.UploadedAt.IsZero() {
		uploadedAt = torrent.UploadedAt
	}
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO bookmarks
			(name, magnet, description_url, info_hash, size_bytes, seeders, leechers, uploaded_at, category, provider_id, provider_name, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		torrent.Name, torrent.Magnet, torrent.DescriptionURL, torrent.InfoHash,
		torrent.SizeBytes, torrent.Seeders, torrent.Leechers, uploadedAt,
		string(torrent.Category), torrent.ProviderID, torrent.ProviderName, now,
	)
	if err != nil {
		return Bookmark{}, fmt.Errorf("add bookmark: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return Bookmark{}, err
	}
	return Bookmark{ID: id, Torrent: torrent, CreatedAt: now}, nil
}

func (s *Store) DeleteBookmark(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM bookmarks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete bookmark: %w", err)
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

// ListBookmarks returns saved torrents, newest first.
func (s *Store) ListBookmarks(ctx context.Context) ([]Bookmark, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, magnet, description_url, info_hash, size_bytes, seeders, leechers, uploaded_at, category, provider_id, provider_name, created_at
		 FROM bookmarks ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list bookmarks: %w", err)
	}
	defer rows.Close()

	var bookmarks []Bookmark
	for rows.Next() {
		var b Bookmark
		var category string
		var uploadedAt sql.NullTime
		err := rows.Scan(&b.ID, &b.Torrent.Name, &b.Torrent.Magnet, &b.Torrent.DescriptionURL,
			&b.Torrent.InfoHash, &b.Torrent.SizeBytes, &b.Torrent.Seeders, &b.Torrent.Leechers,
			&uploadedAt, &category, &b.Torrent.ProviderID, &b.Torrent.ProviderName, &b.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan bookmark: %w", err)
		}
		if uploadedAt.Valid {
			b.Torrent.UploadedAt = uploadedAt.Time
		}
		b.Torrent.Category = domain.NormalizeCategory(category)
		bookmarks = append(bookmarks, b)
	}
	return bookmarks, rows.Err()
}

// FindBookmark returns one saved torrent by row ID.
func (s *Store) FindBookmark(ctx context.Context, id int64) (Bookmark, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, magnet, description_url, info_hash, size_bytes, seeders, leechers, uploaded_at, category, provider_id, provider_name, created_at
		 FROM bookmarks WHERE id = ?`, id)

	var b Bookmark
	var category string
	var uploadedAt sql.NullTime
	err := row.Scan(&b.ID, &b.Torrent.Name, &b.Torrent.Magnet, &b.Torrent.DescriptionURL,
		&b.Torrent.InfoHash, &b.Torrent.SizeBytes, &b.Torrent.Seeders, &b.Torrent.Leechers,
		&uploadedAt, &category, &b.Torrent.ProviderID, &b.Torrent.ProviderName, &b.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Bookmark{}, ErrNotFound
	}
	if err != nil {
		return Bookmark{}, fmt.Errorf("scan bookmark: %w", err)
	}
	if uploadedAt.Valid {
		b.Torrent.UploadedAt = uploadedAt.Time
	}
	b.Torrent.Category = domain.NormalizeCategory(category)
	return b, nil
}
