// Package delta implements the notification diffing engine.
package delta

import (
	"sort"
	"time"

	"gh_notifier/internal/model"
)

// Result holds the outcome of comparing a fresh fetch against a snapshot.
type Result struct {
	NewIDs   []string
	NewCount int
	AlertDue bool
	Next     model.Snapshot
	Outcome  model.CycleOutcome
}

// Compute diffs fresh against prev and decides whether an alert is due.
// Items are new when their ID is not in prev.SeenIDs; on a cold start every
// item is new. An alert is due only when something is new and period has
// elapsed since the last alert. The next snapshot replaces the seen set with
// the fresh IDs, so new items arriving inside the debounce window are
// absorbed without alerting.
func Compute(fresh []model.NotificationItem, prev model.Snapshot, now time.Time, period time.Duration) Result {
	next := model.Snapshot{
		SeenIDs:     make(map[string]struct{}, len(fresh)),
		LastAlertAt: prev.LastAlertAt,
	}

	var newIDs []string
	for _, item := range fresh {
		if _, dup := next.SeenIDs[item.ID]; dup {
			continue
		}
		next.SeenIDs[item.ID] = struct{}{}
		if !prev.Has(item.ID) {
			newIDs = append(newIDs, item.ID)
		}
	}
	sort.Strings(newIDs)

	due := len(newIDs) > 0 && windowElapsed(prev.LastAlertAt, now, period)
	if due {
		at := now
		next.LastAlertAt = &at
	}

	return Result{
		NewIDs:   newIDs,
		NewCount: len(newIDs),
		AlertDue: due,
		Next:     next,
		Outcome:  model.Success(len(fresh), len(newIDs), now),
	}
}

func windowElapsed(last *time.Time, now time.Time, period time.Duration) bool {
	if last == nil {
		return true
	}
	return now.Sub(*last) >= period
}
