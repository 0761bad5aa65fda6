package delta

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"gh_notifier/internal/model"
)

const hour = time.Hour

func items(ids ...string) []model.NotificationItem {
	out := make([]model.NotificationItem, 0, len(ids))
	for _, id := range ids {
		out = append(out, model.NotificationItem{ID: id, Title: "thread " + id})
	}
	return out
}

func ptr(t time.Time) *time.Time { return &t }

func TestCompute(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		fresh        []model.NotificationItem
		prev         model.Snapshot
		wantNew      []string
		wantDue      bool
		wantSeen     model.Snapshot
		wantLastSame bool
	}{
		{
			name:     "set difference",
			fresh:    items("2", "4", "5"),
			prev:     model.NewSnapshot([]string{"1", "2", "3"}, nil),
			wantNew:  []string{"4", "5"},
			wantDue:  true,
			wantSeen: model.NewSnapshot([]string{"2", "4", "5"}, nil),
		},
		{
			name:     "cold start counts everything",
			fresh:    items("a", "b", "c"),
			prev:     model.EmptySnapshot(),
			wantNew:  []string{"a", "b", "c"},
			wantDue:  true,
			wantSeen: model.NewSnapshot([]string{"a", "b", "c"}, nil),
		},
		{
			name:         "empty fetch clears snapshot and never alerts",
			fresh:        nil,
			prev:         model.NewSnapshot([]string{"1"}, ptr(now.Add(-2*hour))),
			wantNew:      nil,
			wantDue:      false,
			wantSeen:     model.EmptySnapshot(),
			wantLastSame: true,
		},
		{
			name:         "no-op cycle",
			fresh:        items("1", "2"),
			prev:         model.NewSnapshot([]string{"1", "2"}, ptr(now.Add(-5*hour))),
			wantNew:      nil,
			wantDue:      false,
			wantSeen:     model.NewSnapshot([]string{"1", "2"}, nil),
			wantLastSame: true,
		},
		{
			name:         "inside debounce window",
			fresh:        items("1", "2", "3"),
			prev:         model.NewSnapshot([]string{"1"}, ptr(now.Add(-30*time.Minute))),
			wantNew:      []string{"2", "3"},
			wantDue:      false,
			wantSeen:     model.NewSnapshot([]string{"1", "2", "3"}, nil),
			wantLastSame: true,
		},
		{
			name:     "window exactly elapsed",
			fresh:    items("1", "2"),
			prev:     model.NewSnapshot([]string{"1"}, ptr(now.Add(-hour))),
			wantNew:  []string{"2"},
			wantDue:  true,
			wantSeen: model.NewSnapshot([]string{"1", "2"}, nil),
		},
		{
			name:     "duplicate ids in fetch",
			fresh:    items("7", "7", "8"),
			prev:     model.NewSnapshot([]string{"8"}, nil),
			wantNew:  []string{"7"},
			wantDue:  true,
			wantSeen: model.NewSnapshot([]string{"7", "8"}, nil),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compute(tt.fresh, tt.prev, now, hour)

			if diff := cmp.Diff(tt.wantNew, got.NewIDs); diff != "" {
				t.Errorf("new IDs mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(len(tt.wantNew), got.NewCount); diff != "" {
				t.Errorf("new count mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantDue, got.AlertDue); diff != "" {
				t.Errorf("alert due mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantSeen.SeenIDs, got.Next.SeenIDs); diff != "" {
				t.Errorf("next seen IDs mismatch (-want +got):\n%s", diff)
			}

			switch {
			case tt.wantDue:
				if diff := cmp.Diff(ptr(now), got.Next.LastAlertAt); diff != "" {
					t.Errorf("last alert mismatch (-want +got):\n%s", diff)
				}
			case tt.wantLastSame:
				if diff := cmp.Diff(tt.prev.LastAlertAt, got.Next.LastAlertAt); diff != "" {
					t.Errorf("last alert should be unchanged (-want +got):\n%s", diff)
				}
			}

			want := model.Success(len(tt.fresh), len(tt.wantNew), now)
			if diff := cmp.Diff(want, got.Outcome); diff != "" {
				t.Errorf("outcome mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestComputeDebounceLaw(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	prev := model.NewSnapshot(nil, ptr(t0))

	for _, elapsed := range []time.Duration{0, time.Second, 30 * time.Minute, hour - time.Nanosecond} {
		got := Compute(items("x", "y"), prev, t0.Add(elapsed), hour)
		if got.NewCount != 2 {
			t.Fatalf("elapsed %v: expected 2 new items, got %d", elapsed, got.NewCount)
		}
		if got.AlertDue {
			t.Errorf("elapsed %v: alert must be suppressed inside the window", elapsed)
		}
	}
}

func TestComputeIdempotent(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	first := Compute(items("1", "2", "3"), model.EmptySnapshot(), now, hour)
	if !first.AlertDue {
		t.Fatal("expected cold start to alert")
	}

	second := Compute(items("3", "1", "2"), first.Next, now.Add(2*hour), hour)
	if second.NewCount != 0 || second.AlertDue {
		t.Errorf("expected no-op cycle, got new=%d due=%v", second.NewCount, second.AlertDue)
	}
	if diff := cmp.Diff(first.Next, second.Next); diff != "" {
		t.Errorf("snapshot changed on no-op cycle (-want +got):\n%s", diff)
	}
}

func TestComputeDoesNotMutatePrev(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	prev := model.NewSnapshot([]string{"1"}, nil)

	_ = Compute(items("2"), prev, now, hour)

	if diff := cmp.Diff(model.NewSnapshot([]string{"1"}, nil), prev); diff != "" {
		t.Errorf("prev mutated (-want +got):\n%s", diff)
	}
}
