package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"gh_notifier/internal/model"
)

// DefaultAPIURL is the public GitHub REST endpoint.
const DefaultAPIURL = "https://api.github.com"

type thread struct {
	ID      string `json:"id"`
	Subject struct {
		Title string `json:"title"`
	} `json:"subject"`
}

// GitHub reads participating, unread notifications from the GitHub REST API.
type GitHub struct {
	client  HTTPClient
	baseURL string
	trace   bool
	log     *slog.Logger
}

// NewGitHub creates a GitHub client. With trace set, request and response
// headers are logged at debug level.
func NewGitHub(client HTTPClient, baseURL string, trace bool, log *slog.Logger) *GitHub {
	if baseURL == "" {
		baseURL = DefaultAPIURL
	}
	return &GitHub{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		trace:   trace,
		log:     log,
	}
}

// Fetch performs a single bounded request. No further pages are requested
// when the first one is full.
func (g *GitHub) Fetch(ctx context.Context, secret string, pageSize int) ([]model.NotificationItem, error) {
	q := url.Values{}
	q.Set("all", "false")
	q.Set("participating", "true")
	q.Set("per_page", strconv.Itoa(pageSize))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/notifications?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+secret)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("User-Agent", userAgent)

	if g.trace {
		g.log.Debug("request", "method", req.Method, "url", req.URL.String(), "headers", redact(req.Header))
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, transportError(fmt.Errorf("http get: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	if g.trace {
		g.log.Debug("response", "status", resp.StatusCode, "headers", resp.Header)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}

	body, err := readBody(resp.Body)
	if err != nil {
		return nil, err
	}

	var threads []thread
	if err := json.Unmarshal(body, &threads); err != nil {
		return nil, fmt.Errorf("%w: decode: %w", ErrMalformedItem, err)
	}

	if pageSize > 0 && len(threads) > pageSize {
		threads = threads[:pageSize]
	}

	items := make([]model.NotificationItem, 0, len(threads))
	for _, th := range threads {
		items = append(items, model.NotificationItem{ID: th.ID, Title: th.Subject.Title})
	}
	if err := validate(items); err != nil {
		return nil, err
	}
	return items, nil
}

func redact(h http.Header) http.Header {
	out := h.Clone()
	if out.Get("Authorization") != "" {
		out.Set("Authorization", "<redacted>")
	}
	return out
}
