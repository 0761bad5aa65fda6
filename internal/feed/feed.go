// Package feed fetches notification threads from the remote feed.
package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"gh_notifier/internal/model"
)

// Errors returned by Fetch. They are wrapped; use errors.Is.
var (
	ErrTransport     = errors.New("transport failure")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrMalformedItem = errors.New("malformed notification")
)

const (
	userAgent    = "gh-notifier/1.0"
	maxBodyBytes = 5 * 1024 * 1024
)

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Fetcher retrieves the current notification set.
type Fetcher interface {
	// Fetch returns at most pageSize items. Any item without an ID or a
	// title fails the whole fetch.
	Fetch(ctx context.Context, secret string, pageSize int) ([]model.NotificationItem, error)
}

// Truncated reports whether a result filled the whole page, meaning more
// notifications may exist. It is informational only.
func Truncated(items []model.NotificationItem, pageSize int) bool {
	return pageSize > 0 && len(items) >= pageSize
}

func transportError(err error) error {
	return fmt.Errorf("%w: %w", ErrTransport, err)
}

// readBody reads at most maxBodyBytes; a longer body is a transport error.
func readBody(r io.Reader) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, maxBodyBytes+1))
	if err != nil {
		return nil, transportError(fmt.Errorf("read body: %w", err))
	}
	if len(body) > maxBodyBytes {
		return nil, fmt.Errorf("%w: response body exceeds %d bytes", ErrTransport, maxBodyBytes)
	}
	return body, nil
}

func statusError(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: status %d", ErrUnauthorized, resp.StatusCode)
	default:
		return fmt.Errorf("%w: unexpected status %d", ErrTransport, resp.StatusCode)
	}
}

func validate(items []model.NotificationItem) error {
	for i, it := range items {
		if it.ID == "" {
			return fmt.Errorf("%w: item %d has no id", ErrMalformedItem, i)
		}
		if it.Title == "" {
			return fmt.Errorf("%w: item %s has no title", ErrMalformedItem, it.ID)
		}
	}
	return nil
}
