// Package storage defines the snapshot persistence interface and its implementations.
package storage

import (
	"context"
	"errors"

	"gh_notifier/internal/model"
)

var (
	// ErrWriteFailed is returned when a snapshot could not be committed.
	// The previously saved snapshot is left intact.
	ErrWriteFailed = errors.New("snapshot write failed")
	// ErrReadCorrupt marks an unreadable snapshot. Load never returns it;
	// it only appears in logs.
	ErrReadCorrupt = errors.New("snapshot unreadable")
)

// SnapshotStore persists the last seen notification set and alert time.
type SnapshotStore interface {
	// Load returns the saved snapshot, or an empty one when nothing was
	// saved yet or the stored data cannot be read.
	Load(ctx context.Context) model.Snapshot
	// Save replaces the stored snapshot atomically. Concurrent calls are
	// serialized.
	Save(ctx context.Context, snap model.Snapshot) error

	Close() error
}
