package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"github.com/Makar-aka/jellysay/internal/model"
	"github.com/Makar-aka/jellysay/migrations"
)

const timeLayout = "2006-01-02T15:04:05Z"

const selectedLibrariesKey = "selected_libraries"

// SQLite implements Storage backed by a SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=OFF"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("disable foreign keys: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// IsNotified checks whether an item with the given key was already announced.
func (s *SQLite) IsNotified(ctx context.Context, key string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notified_items WHERE key = ?`, key,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check notified: %w", err)
	}
	return count > 0, nil
}

// MarkNotified records an announcement. Inserting a duplicate key is a no-op.
func (s *SQLite) MarkNotified(ctx context.Context, item model.NotifiedItem) error {
	sentAt := item.SentAt
	if sentAt.IsZero() {
		sentAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO notified_items (key, display_name, item_type, sent_at)
		 VALUES (?, ?, ?, ?)`,
		item.Key, item.DisplayName, item.ItemType, sentAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("mark notified: %w", err)
	}
	return nil
}

// EvictOldest removes the single oldest-inserted record if the total count
// exceeds maxEntries. Insertion order, not access order.
func (s *SQLite) EvictOldest(ctx context.Context, maxEntries int) error {
	if maxEntries <= 0 {
		return nil
	}
	count, err := s.CountNotified(ctx)
	if err != nil {
		return err
	}
	if count <= maxEntries {
		return nil
	}
	_, err = s.db.ExecContext(ctx,
		`DELETE FROM notified_items WHERE id = (SELECT MIN(id) FROM notified_items)`,
	)
	if err != nil {
		return fmt.Errorf("evict oldest: %w", err)
	}
	return nil
}

// PurgeNotified clears every notification record.
func (s *SQLite) PurgeNotified(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM notified_items`)
	if err != nil {
		return fmt.Errorf("purge notified: %w", err)
	}
	return nil
}

// CountNotified returns the number of notification records.
func (s *SQLite) CountNotified(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notified_items`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count notified: %w", err)
	}
	return count, nil
}

// ListNotified returns notification records, most recently sent first.
func (s *SQLite) ListNotified(ctx context.Context, limit, offset int) ([]model.NotifiedItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, display_name, item_type, sent_at FROM notified_items
		 ORDER BY sent_at DESC, id DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("query notified: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var items []model.NotifiedItem
	for rows.Next() {
		var it model.NotifiedItem
		var sentAt string
		if err := rows.Scan(&it.Key, &it.DisplayName, &it.ItemType, &sentAt); err != nil {
			return nil, fmt.Errorf("scan notified: %w", err)
		}
		it.SentAt, _ = time.Parse(timeLayout, sentAt)
		items = append(items, it)
	}
	return items, rows.Err()
}

// SetSelectedLibraries persists the library IDs the poller is restricted to.
// An empty set removes the restriction.
func (s *SQLite) SetSelectedLibraries(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		_, err := s.db.ExecContext(ctx, `DELETE FROM settings WHERE key = ?`, selectedLibrariesKey)
		if err != nil {
			return fmt.Errorf("clear selected libraries: %w", err)
		}
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		selectedLibrariesKey, strings.Join(ids, ","),
	)
	if err != nil {
		return fmt.Errorf("set selected libraries: %w", err)
	}
	return nil
}

// SelectedLibraries returns the persisted library restriction, nil when unset.
func (s *SQLite) SelectedLibraries(ctx context.Context) ([]string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = ?`, selectedLibrariesKey,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get selected libraries: %w", err)
	}
	var ids []string
	for _, id := range strings.Split(value, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
