package feed

import (
	"context"
	"fmt"
	"net/http"

	"github.com/mmcdole/gofeed"

	"gh_notifier/internal/model"
)

// Atom reads notifications from an Atom or RSS feed, such as a private
// GitHub feed URL. Entry GUIDs become notification IDs.
type Atom struct {
	client HTTPClient
	url    string
}

// NewAtom creates an Atom client for the given feed URL.
func NewAtom(client HTTPClient, url string) *Atom {
	return &Atom{client: client, url: url}
}

// Fetch downloads and parses the feed. A non-empty secret is sent as a
// bearer token.
func (a *Atom) Fetch(ctx context.Context, secret string, pageSize int) ([]model.NotificationItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	if secret != "" {
		req.Header.Set("Authorization", "Bearer "+secret)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, transportError(fmt.Errorf("http get: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}

	body, err := readBody(resp.Body)
	if err != nil {
		return nil, err
	}

	parsed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("%w: parse feed: %w", ErrMalformedItem, err)
	}

	entries := parsed.Items
	if pageSize > 0 && len(entries) > pageSize {
		entries = entries[:pageSize]
	}

	items := make([]model.NotificationItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, model.NotificationItem{ID: e.GUID, Title: e.Title})
	}
	if err := validate(items); err != nil {
		return nil, err
	}
	return items, nil
}
