// Package storage defines the persistence interface and its implementations.
package storage

import (
	"context"

	"github.com/Makar-aka/jellysay/internal/model"
)

// Storage is the interface for all persistence operations.
//
// MarkNotified is idempotent: inserting an already-present key is a silent
// no-op. Callers treat IsNotified errors as "not yet notified" (fail-open) so
// a transient store outage cannot permanently block new announcements.
type Storage interface {
	IsNotified(ctx context.Context, key string) (bool, error)
	MarkNotified(ctx context.Context, item model.NotifiedItem) error
	EvictOldest(ctx context.Context, maxEntries int) error
	PurgeNotified(ctx context.Context) error
	CountNotified(ctx context.Context) (int, error)
	ListNotified(ctx context.Context, limit, offset int) ([]model.NotifiedItem, error)

	SetSelectedLibraries(ctx context.Context, ids []string) error
	SelectedLibraries(ctx context.Context) ([]string, error)

	Close() error
}
