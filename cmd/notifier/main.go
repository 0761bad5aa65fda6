package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"gh_notifier/internal/alert"
	"gh_notifier/internal/config"
	"gh_notifier/internal/credential"
	"gh_notifier/internal/feed"
	"gh_notifier/internal/indicator"
	"gh_notifier/internal/scheduler"
	"gh_notifier/internal/storage"
)

func main() {
	args := os.Args[1:]
	if len(args) > 0 && args[0] == "set-token" {
		if err := setToken(args[1:]); err != nil {
			fmt.Fprintln(os.Stderr, "set-token:", err)
			os.Exit(1)
		}
		return
	}

	cfg, err := config.Load(args)
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	if err := ensureDir(cfg.DatabasePath); err != nil {
		slog.Error("create data directory", "error", err)
		os.Exit(1)
	}

	logOut := io.Writer(os.Stderr)
	if !cfg.Headless {
		// stderr belongs to the indicator while it runs.
		logPath := filepath.Join(filepath.Dir(cfg.DatabasePath), "notifier.log")
		f, err := tea.LogToFile(logPath, "")
		if err != nil {
			slog.Error("open log file", "path", logPath, "error", err)
			os.Exit(1)
		}
		defer func() { _ = f.Close() }()
		logOut = f
	}
	log := newLogger(cfg.LogLevel, logOut)

	store, err := storage.NewSQLite(cfg.DatabasePath, log)
	if err != nil {
		log.Error("open database", "path", cfg.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	deps := scheduler.Deps{
		Credentials: credential.NewKeyring(cfg.KeyringKey, cfg.TokenEnv),
		Feed:        newFeed(cfg, log),
		Store:       store,
		Alerts:      newAlerts(cfg, log),
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.Headless {
		deps.Indicator = indicator.NewLog(log)
		sched := newScheduler(cfg, deps, log)
		log.Info("starting notifier", "feed", cfg.Feed, "headless", true)
		sched.Run(ctx)
		log.Info("notifier stopped")
		return
	}

	outcomes := indicator.NewChannel()
	deps.Indicator = outcomes
	sched := newScheduler(cfg, deps, log)

	log.Info("starting notifier", "feed", cfg.Feed)
	done := make(chan struct{})
	go func() {
		defer close(done)
		sched.Run(ctx)
	}()

	m := indicator.NewModel(outcomes.Outcomes(), cfg.FeedWebURL(), indicator.OpenURL, sched.Trigger)
	if _, err := tea.NewProgram(m, tea.WithContext(ctx)).Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		log.Error("run indicator", "error", err)
	}
	cancel()
	<-done

	log.Info("notifier stopped")
}

func newScheduler(cfg *config.Config, deps scheduler.Deps, log *slog.Logger) *scheduler.Scheduler {
	return scheduler.New(scheduler.Settings{
		RefreshPeriod:      cfg.RefreshPeriod,
		NotificationPeriod: cfg.NotificationPeriod,
		PageSize:           cfg.PageSize,
		FetchTimeout:       cfg.FetchTimeout,
	}, deps, log)
}

func newFeed(cfg *config.Config, log *slog.Logger) feed.Fetcher {
	client := &http.Client{}
	if cfg.Feed == config.FeedAtom {
		return feed.NewAtom(client, cfg.FeedURL)
	}
	return feed.NewGitHub(client, cfg.APIURL, cfg.TraceRequests, log)
}

func newAlerts(cfg *config.Config, log *slog.Logger) alert.Sink {
	var sinks alert.Multi
	if cfg.DesktopAlerts {
		d, err := alert.NewDesktop()
		if err != nil {
			log.Warn("desktop alerts disabled", "error", err)
		} else {
			sinks = append(sinks, d)
		}
	}
	if cfg.TelegramToken != "" {
		t, err := alert.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID, cfg.FeedWebURL())
		if err != nil {
			log.Warn("telegram alerts disabled", "error", err)
		} else {
			sinks = append(sinks, t)
		}
	}
	if len(sinks) == 0 {
		log.Warn("no alert sink configured")
	}
	return sinks
}

// setToken stores a token in the keyring. It prompts when stdin is a
// terminal and reads a single line otherwise.
func setToken(args []string) error {
	cfg, err := config.Load(args)
	if err != nil {
		return err
	}

	token, err := inputToken(os.Stdin, cfg.KeyringKey)
	if err != nil {
		return err
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("empty token")
	}
	return credential.NewKeyring(cfg.KeyringKey, "").Store(token)
}

// inputToken prompts with a masked input when f is a terminal and reads
// one line from it otherwise.
func inputToken(f *os.File, key string) (string, error) {
	if !term.IsTerminal(int(f.Fd())) {
		return readToken(f)
	}
	var token string
	err := huh.NewInput().
		Title("GitHub token").
		Description(fmt.Sprintf("Stored as %q in the %q keyring item", key, credential.ServiceName)).
		EchoMode(huh.EchoModePassword).
		Value(&token).
		Validate(func(s string) error {
			if strings.TrimSpace(s) == "" {
				return errors.New("token is required")
			}
			return nil
		}).
		Run()
	return token, err
}

func readToken(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read token: %w", err)
	}
	return line, nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("%s: %w", dir, err)
	}
	return nil
}

func newLogger(level string, w io.Writer) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}
