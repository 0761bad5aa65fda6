// Package alert delivers "new notifications" alerts to the user.
package alert

import (
	"context"
	"errors"
	"fmt"
)

// Sink presents an alert about newCount new notifications.
type Sink interface {
	Notify(ctx context.Context, newCount int) error
}

// Message returns the alert title and body.
func Message(newCount int) (title, body string) {
	return fmt.Sprintf("%d new notifications", newCount), "Check them out!"
}

// Multi fans an alert out to several sinks. Every sink is tried; the
// errors are joined.
type Multi []Sink

// Notify calls every sink in order.
func (m Multi) Notify(ctx context.Context, newCount int) error {
	var errs []error
	for _, s := range m {
		if err := s.Notify(ctx, newCount); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
