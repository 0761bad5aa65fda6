package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"gh_notifier/internal/config"
	"gh_notifier/internal/model"
	"gh_notifier/internal/storage"
	"gh_notifier/migrations"
)

const usage = `Usage: snapshot <command> [flags]

Commands:
  status   Show the schema state, the seen notifications and the last alert
  up       Apply the snapshot schema
  down     Roll back the snapshot schema
  forget   Clear seen notifications and the alert time (next cycle is a cold start)

Flags are the notifier's own, e.g. --database-path or --config.`

var errUsage = errors.New(usage)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd := args[0]

	cfg, err := config.Load(args[1:])
	if err != nil {
		return err
	}
	path := cfg.DatabasePath
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	switch cmd {
	case "status":
		return status(ctx, path, log, out)
	case "up":
		return up(ctx, path, out)
	case "down":
		return down(ctx, path, out)
	case "forget":
		return forget(ctx, path, log, out)
	default:
		return fmt.Errorf("unknown command %q\n\n%w", cmd, errUsage)
	}
}

func withProvider(ctx context.Context, path string, fn func(p *goose.Provider) error) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open database %s: %w", path, err)
	}
	defer func() { _ = db.Close() }()

	p, err := migrations.NewProvider(db)
	if err != nil {
		return err
	}
	return fn(p)
}

func status(ctx context.Context, path string, log *slog.Logger, out io.Writer) error {
	pending := false
	err := withProvider(ctx, path, func(p *goose.Provider) error {
		statuses, err := p.Status(ctx)
		if err != nil {
			return fmt.Errorf("schema status: %w", err)
		}
		fmt.Fprintf(out, "database: %s\n", path)
		for _, s := range statuses {
			if s.State == goose.StatePending {
				pending = true
				fmt.Fprintf(out, "schema: %s pending\n", filepath.Base(s.Source.Path))
				continue
			}
			fmt.Fprintf(out, "schema: %s applied %s\n", filepath.Base(s.Source.Path), s.AppliedAt.UTC().Format(time.RFC3339))
		}
		return nil
	})
	if err != nil || pending {
		return err
	}

	store, err := storage.NewSQLite(path, log)
	if err != nil {
		return fmt.Errorf("open snapshot: %w", err)
	}
	defer func() { _ = store.Close() }()

	printSnapshot(out, store.Load(ctx))
	return nil
}

func printSnapshot(out io.Writer, snap model.Snapshot) {
	fmt.Fprintf(out, "seen notifications: %d\n", len(snap.SeenIDs))
	if snap.LastAlertAt == nil {
		fmt.Fprintln(out, "last alert: never")
		return
	}
	fmt.Fprintf(out, "last alert: %s\n", snap.LastAlertAt.UTC().Format(time.RFC3339Nano))
}

func up(ctx context.Context, path string, out io.Writer) error {
	return withProvider(ctx, path, func(p *goose.Provider) error {
		results, err := p.Up(ctx)
		if err != nil {
			return fmt.Errorf("up: %w", err)
		}
		if len(results) == 0 {
			fmt.Fprintln(out, "schema already up to date")
		}
		for _, r := range results {
			fmt.Fprintf(out, "applied %s in %s\n", filepath.Base(r.Source.Path), r.Duration.Round(time.Millisecond))
		}
		return nil
	})
}

func down(ctx context.Context, path string, out io.Writer) error {
	return withProvider(ctx, path, func(p *goose.Provider) error {
		r, err := p.Down(ctx)
		if err != nil {
			return fmt.Errorf("down: %w", err)
		}
		fmt.Fprintf(out, "rolled back %s\n", filepath.Base(r.Source.Path))
		return nil
	})
}

func forget(ctx context.Context, path string, log *slog.Logger, out io.Writer) error {
	store, err := storage.NewSQLite(path, log)
	if err != nil {
		return fmt.Errorf("open snapshot: %w", err)
	}
	defer func() { _ = store.Close() }()

	before := store.Load(ctx)
	if err := store.Save(ctx, model.EmptySnapshot()); err != nil {
		return err
	}
	fmt.Fprintf(out, "forgot %d seen notifications\n", len(before.SeenIDs))
	return nil
}
