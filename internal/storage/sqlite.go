package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"gh_notifier/internal/model"
	"gh_notifier/migrations"
)

// Alert times are stored with nanosecond precision.
const timeLayout = time.RFC3339Nano

// SQLite implements SnapshotStore backed by a SQLite database.
type SQLite struct {
	db  *sql.DB
	log *slog.Logger

	mu sync.Mutex
	// beforeCommit runs inside the save transaction after all writes.
	// Tests use it to interrupt a save midway.
	beforeCommit func(tx *sql.Tx) error
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string, log *slog.Logger) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection: the store has a single writer, and ":memory:"
	// databases are per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA synchronous=FULL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set synchronous: %w", err)
	}

	if _, err := migrations.Run(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db, log: log}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Load returns the saved snapshot. Read failures are logged and yield an
// empty snapshot.
func (s *SQLite) Load(ctx context.Context) model.Snapshot {
	snap, err := s.load(ctx)
	if err != nil {
		s.log.Warn("load snapshot, starting from empty",
			"error", fmt.Errorf("%w: %w", ErrReadCorrupt, err))
		return model.EmptySnapshot()
	}
	return snap
}

func (s *SQLite) load(ctx context.Context) (model.Snapshot, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, `SELECT id FROM seen_notifications`)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("query seen: %w", err)
	}
	defer func() { _ = rows.Close() }()

	snap := model.EmptySnapshot()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return model.Snapshot{}, fmt.Errorf("scan seen: %w", err)
		}
		snap.SeenIDs[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return model.Snapshot{}, fmt.Errorf("iterate seen: %w", err)
	}

	var last sql.NullString
	err = tx.QueryRowContext(ctx, `SELECT last_alert_at FROM alert_state WHERE id = 0`).Scan(&last)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return model.Snapshot{}, fmt.Errorf("query alert state: %w", err)
	case last.Valid:
		t, err := time.Parse(timeLayout, last.String)
		if err != nil {
			return model.Snapshot{}, fmt.Errorf("parse last alert %q: %w", last.String, err)
		}
		snap.LastAlertAt = &t
	}

	return snap, nil
}

// Save replaces the stored snapshot in a single transaction. A failure at
// any point rolls back, leaving the previous snapshot readable.
func (s *SQLite) Save(ctx context.Context, snap model.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.save(ctx, snap); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	return nil
}

func (s *SQLite) save(ctx context.Context, snap model.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM seen_notifications`); err != nil {
		return fmt.Errorf("clear seen: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO seen_notifications (id) VALUES (?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, id := range sortedIDs(snap) {
		if _, err := stmt.ExecContext(ctx, id); err != nil {
			return fmt.Errorf("insert seen %q: %w", id, err)
		}
	}

	var last sql.NullString
	if snap.LastAlertAt != nil {
		last = sql.NullString{String: snap.LastAlertAt.UTC().Format(timeLayout), Valid: true}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO alert_state (id, last_alert_at) VALUES (0, ?)
		 ON CONFLICT(id) DO UPDATE SET last_alert_at = excluded.last_alert_at`,
		last,
	); err != nil {
		return fmt.Errorf("update alert state: %w", err)
	}

	if s.beforeCommit != nil {
		if err := s.beforeCommit(tx); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func sortedIDs(snap model.Snapshot) []string {
	ids := make([]string, 0, len(snap.SeenIDs))
	for id := range snap.SeenIDs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
