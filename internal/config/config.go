// Package config handles application configuration from flags, environment
// variables and an optional config file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Feed kinds.
const (
	FeedGitHub = "github"
	FeedAtom   = "atom"
)

const (
	envPrefix        = "GHN"
	maxPageSize      = 100
	notificationsURL = "/notifications?query=reason%3Aparticipating+is%3Aunread"
)

// Config holds the application configuration. It is built once at startup
// and never modified.
type Config struct {
	RefreshPeriod      time.Duration
	NotificationPeriod time.Duration
	PageSize           int
	TraceRequests      bool
	FetchTimeout       time.Duration

	LogLevel     string
	DatabasePath string

	TokenEnv   string
	KeyringKey string

	Feed    string
	FeedURL string
	APIURL  string
	WebURL  string

	DesktopAlerts  bool
	TelegramToken  string
	TelegramChatID int64

	Headless bool
}

// FeedWebURL returns the page the indicator opens on click.
func (c *Config) FeedWebURL() string {
	return strings.TrimRight(c.WebURL, "/") + notificationsURL
}

// DefaultDatabasePath returns the per-user database location.
func DefaultDatabasePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", "data", "notifier.db")
	}
	return filepath.Join(dir, "gh-notifier", "notifier.db")
}

// NewFlagSet declares every option with its default.
func NewFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.Float64("refresh-period", 60, "Refresh period (in seconds).")
	fs.Float64("notification-period", 3600, "Notification period (in seconds).")
	fs.Int("page-size", 20, "Maximum number of notifications requested per refresh.")
	fs.Bool("trace-requests", false, "Enable debug output of the requests tracer.")
	fs.Float64("fetch-timeout", 30, "Timeout of a single feed request (in seconds).")
	fs.Bool("debug", false, "Enable debug output.")
	fs.String("log-level", "info", "Log level: debug, info, warn, error.")
	fs.String("database-path", DefaultDatabasePath(), "Path to the state database.")
	fs.String("token-env", "", "Environment variable that overrides the keyring token.")
	fs.String("keyring-key", "token", "Keyring item holding the token.")
	fs.String("feed", FeedGitHub, "Feed kind: github or atom.")
	fs.String("feed-url", "", "Atom feed URL (feed=atom).")
	fs.String("api-url", "https://api.github.com", "GitHub API base URL.")
	fs.String("web-url", "https://github.com", "GitHub web base URL.")
	fs.Bool("desktop-alerts", true, "Post alerts to the desktop notification service.")
	fs.String("telegram-token", "", "Telegram bot token; enables the Telegram alert sink.")
	fs.Int64("telegram-chat-id", 0, "Telegram chat receiving alerts.")
	fs.Bool("headless", false, "Log outcomes instead of showing the indicator.")
	fs.String("config", "", "Optional config file (yaml, toml or json).")
	return fs
}

// Load parses args and resolves every option. Flags beat environment
// variables (GHN_*), which beat the config file, which beats defaults.
func Load(args []string) (*Config, error) {
	fs := NewFlagSet("notifier")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &Config{
		RefreshPeriod:      seconds(v.GetFloat64("refresh-period")),
		NotificationPeriod: seconds(v.GetFloat64("notification-period")),
		PageSize:           v.GetInt("page-size"),
		TraceRequests:      v.GetBool("trace-requests"),
		FetchTimeout:       seconds(v.GetFloat64("fetch-timeout")),
		LogLevel:           strings.ToLower(v.GetString("log-level")),
		DatabasePath:       v.GetString("database-path"),
		TokenEnv:           v.GetString("token-env"),
		KeyringKey:         v.GetString("keyring-key"),
		Feed:               strings.ToLower(v.GetString("feed")),
		FeedURL:            v.GetString("feed-url"),
		APIURL:             v.GetString("api-url"),
		WebURL:             v.GetString("web-url"),
		DesktopAlerts:      v.GetBool("desktop-alerts"),
		TelegramToken:      v.GetString("telegram-token"),
		TelegramChatID:     v.GetInt64("telegram-chat-id"),
		Headless:           v.GetBool("headless"),
	}
	if v.GetBool("debug") {
		cfg.LogLevel = "debug"
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.RefreshPeriod <= 0 {
		errs = append(errs, fmt.Errorf("refresh-period must be positive, got %v", c.RefreshPeriod))
	}
	if c.NotificationPeriod < 0 {
		errs = append(errs, fmt.Errorf("notification-period must not be negative, got %v", c.NotificationPeriod))
	}
	if c.PageSize < 1 || c.PageSize > maxPageSize {
		errs = append(errs, fmt.Errorf("page-size must be between 1 and %d, got %d", maxPageSize, c.PageSize))
	}
	if c.FetchTimeout <= 0 {
		errs = append(errs, fmt.Errorf("fetch-timeout must be positive, got %v", c.FetchTimeout))
	}
	switch c.Feed {
	case FeedGitHub:
	case FeedAtom:
		if c.FeedURL == "" {
			errs = append(errs, errors.New("feed-url is required for the atom feed"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown feed %q", c.Feed))
	}
	if c.TelegramToken != "" && c.TelegramChatID == 0 {
		errs = append(errs, errors.New("telegram-chat-id is required with telegram-token"))
	}
	return errors.Join(errs...)
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
