// Package scheduler drives the periodic fetch, diff, persist and alert cycle.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"gh_notifier/internal/alert"
	"gh_notifier/internal/credential"
	"gh_notifier/internal/delta"
	"gh_notifier/internal/feed"
	"gh_notifier/internal/model"
	"gh_notifier/internal/storage"
)

// Indicator receives the outcome of every cycle.
type Indicator interface {
	Update(outcome model.CycleOutcome)
}

// Settings are the scheduler's knobs, taken from the application config.
type Settings struct {
	RefreshPeriod      time.Duration
	NotificationPeriod time.Duration
	PageSize           int
	FetchTimeout       time.Duration
}

// Deps are the collaborators of a cycle.
type Deps struct {
	Credentials credential.Provider
	Feed        feed.Fetcher
	Store       storage.SnapshotStore
	Alerts      alert.Sink
	Indicator   Indicator
}

// Scheduler runs one cycle at a time: immediately on Run, then every
// RefreshPeriod, plus on demand through Trigger.
type Scheduler struct {
	settings Settings
	deps     Deps
	log      *slog.Logger
	now      func() time.Time

	cycle   sync.Mutex
	trigger chan struct{}

	mu   sync.Mutex
	last model.CycleOutcome
}

// New creates a Scheduler.
func New(settings Settings, deps Deps, log *slog.Logger) *Scheduler {
	return &Scheduler{
		settings: settings,
		deps:     deps,
		log:      log,
		now:      time.Now,
		trigger:  make(chan struct{}, 1),
	}
}

// SetClock overrides the time source (useful for testing).
func (s *Scheduler) SetClock(now func() time.Time) {
	s.now = now
}

// Run starts the scheduler loop, blocking until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.RunCycle(ctx)

	ticker := time.NewTicker(s.settings.RefreshPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunCycle(ctx)
		case <-s.trigger:
			s.RunCycle(ctx)
		}
	}
}

// Trigger asks Run for an extra cycle. Requests made while one is already
// pending are coalesced.
func (s *Scheduler) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Last returns the outcome of the most recent cycle.
func (s *Scheduler) Last() model.CycleOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// RunCycle runs a single cycle and reports its outcome. If another cycle is
// still in flight the call is dropped and ok is false.
func (s *Scheduler) RunCycle(ctx context.Context) (outcome model.CycleOutcome, ok bool) {
	if !s.cycle.TryLock() {
		s.log.Warn("previous cycle still running, dropping tick")
		return model.CycleOutcome{}, false
	}
	defer s.cycle.Unlock()

	log := s.log.With("cycle_id", uuid.NewString())
	outcome = s.runCycle(ctx, log)

	s.mu.Lock()
	s.last = outcome
	s.mu.Unlock()

	if outcome.Failed() {
		log.Error("cycle failed", "reason", outcome.Reason, "error", outcome.Err)
	}
	if s.deps.Indicator != nil {
		s.deps.Indicator.Update(outcome)
	}
	return outcome, true
}

func (s *Scheduler) runCycle(ctx context.Context, log *slog.Logger) model.CycleOutcome {
	secret, err := s.deps.Credentials.Resolve(ctx)
	if err != nil {
		kind := model.KindCredential
		if errors.Is(err, credential.ErrNotFound) {
			kind = model.KindCredentialNotFound
		}
		return model.Failure(kind, err, s.now())
	}

	log.Debug("fetching notifications", "page_size", s.settings.PageSize)
	fetchCtx, cancel := context.WithTimeout(ctx, s.settings.FetchTimeout)
	items, err := s.deps.Feed.Fetch(fetchCtx, secret, s.settings.PageSize)
	cancel()
	if err != nil {
		return s.fail(err)
	}
	log.Debug("fetched notifications", "count", len(items), "page_full", feed.Truncated(items, s.settings.PageSize))
	for _, it := range items {
		log.Debug("notification", "id", it.ID, "title", it.Title)
	}

	prev := s.deps.Store.Load(ctx)
	res := delta.Compute(items, prev, s.now(), s.settings.NotificationPeriod)

	if err := s.deps.Store.Save(ctx, res.Next); err != nil {
		return s.fail(err)
	}

	if res.NewCount > 0 {
		log.Info("new notifications", "count", res.NewCount, "alert_due", res.AlertDue)
	}
	if res.AlertDue && s.deps.Alerts != nil {
		if err := s.deps.Alerts.Notify(ctx, res.NewCount); err != nil {
			log.Error("post alert", "new_count", res.NewCount, "error", err)
		}
	}

	return res.Outcome
}

func (s *Scheduler) fail(err error) model.CycleOutcome {
	return model.Failure(Classify(err), err, s.now())
}

// Classify maps a cycle error onto an ErrorKind.
func Classify(err error) model.ErrorKind {
	switch {
	case errors.Is(err, credential.ErrNotFound):
		return model.KindCredentialNotFound
	case errors.Is(err, feed.ErrUnauthorized):
		return model.KindUnauthorized
	case errors.Is(err, feed.ErrMalformedItem):
		return model.KindMalformedItem
	case errors.Is(err, feed.ErrTransport):
		return model.KindTransport
	case errors.Is(err, storage.ErrWriteFailed):
		return model.KindStoreWrite
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return model.KindTransport
	default:
		return model.KindUnknown
	}
}
