// Package model defines the domain types used across the application.
package model

import "time"

// NotificationItem is one remote notification thread. Items are compared by
// ID only.
type NotificationItem struct {
	ID    string
	Title string
}

// Snapshot is the persisted record of what has been seen.
type Snapshot struct {
	// SeenIDs mirrors the notification set of the last successful fetch.
	SeenIDs map[string]struct{}
	// LastAlertAt is nil if no alert was ever raised.
	LastAlertAt *time.Time
}

// EmptySnapshot returns the snapshot of a first run.
func EmptySnapshot() Snapshot {
	return Snapshot{SeenIDs: map[string]struct{}{}}
}

// NewSnapshot builds a snapshot from a list of IDs.
func NewSnapshot(ids []string, lastAlertAt *time.Time) Snapshot {
	s := Snapshot{SeenIDs: make(map[string]struct{}, len(ids)), LastAlertAt: lastAlertAt}
	for _, id := range ids {
		s.SeenIDs[id] = struct{}{}
	}
	return s
}

// Has reports whether id is in the seen set.
func (s Snapshot) Has(id string) bool {
	_, ok := s.SeenIDs[id]
	return ok
}

// ErrorKind classifies why a cycle failed.
type ErrorKind string

// Supported error kinds.
const (
	KindCredentialNotFound ErrorKind = "credential_not_found"
	KindCredential         ErrorKind = "credential"
	KindTransport          ErrorKind = "transport"
	KindUnauthorized       ErrorKind = "unauthorized"
	KindMalformedItem      ErrorKind = "malformed_item"
	KindStoreWrite         ErrorKind = "store_write"
	KindUnknown            ErrorKind = "unknown"
)

// CycleOutcome is the result of one fetch/diff/persist/alert cycle.
// Exactly one of the success fields or Reason is meaningful, see Failed.
type CycleOutcome struct {
	Count    int
	NewCount int

	Reason ErrorKind
	Err    error

	At time.Time
}

// Success returns a successful outcome.
func Success(count, newCount int, at time.Time) CycleOutcome {
	return CycleOutcome{Count: count, NewCount: newCount, At: at}
}

// Failure returns a failed outcome.
func Failure(reason ErrorKind, err error, at time.Time) CycleOutcome {
	return CycleOutcome{Reason: reason, Err: err, At: at}
}

// Failed reports whether the cycle failed.
func (o CycleOutcome) Failed() bool {
	return o.Reason != ""
}

// Describe returns the text shown to the user for a failed cycle.
func (o CycleOutcome) Describe() string {
	if !o.Failed() {
		return ""
	}
	if o.Err == nil {
		return string(o.Reason)
	}
	return string(o.Reason) + ": " + o.Err.Error()
}
