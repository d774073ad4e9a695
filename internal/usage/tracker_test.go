// CourseCompass - Course Discovery Platform Usage Metrics
// Copyright 2026 CourseCompass Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coursecompass/coursecompass

package usage

import (
	"context"
	"testing"
	"time"

	"github.com/coursecompass/coursecompass/internal/kv"
)

func newTestTracker(t *testing.T, now time.Time) (*Tracker, *CounterStore) {
	t.Helper()
	store := kv.NewMemoryStore()
	t.Cleanup(func() { store.Close() })
	counters := NewCounterStore(store)
	tracker := NewTracker(store, counters, 100, 10)
	tracker.SetClock(fixedClock(now))
	return tracker, counters
}

// Three visits by one identity within an hour: the first counts, the rest
// are acknowledged as duplicates and the counter holds at one.
func TestTracker_VisitorCountedOncePerSession(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 15, 14, 30, 0, 0, time.UTC)
	tracker, counters := newTestTracker(t, now)
	h1 := HashIdentity("203.0.113.7", "Mozilla/5.0")

	first, err := tracker.TrackVisitor(ctx, h1)
	if err != nil {
		t.Fatalf("TrackVisitor() error: %v", err)
	}
	if first.AlreadyCounted || first.Limited {
		t.Fatalf("first visit = %+v, want counted", first)
	}

	for i := 0; i < 2; i++ {
		res, err := tracker.TrackVisitor(ctx, h1)
		if err != nil {
			t.Fatalf("TrackVisitor() repeat %d error: %v", i+2, err)
		}
		if !res.AlreadyCounted {
			t.Fatalf("repeat visit %d = %+v, want alreadyCounted", i+2, res)
		}
	}

	metrics, _, err := counters.ReadCurrent(ctx)
	if err != nil {
		t.Fatalf("ReadCurrent() error: %v", err)
	}
	if metrics.TotalVisitors != 1 {
		t.Errorf("total visitors = %d, want 1", metrics.TotalVisitors)
	}
}

// Once the 24-hour session marker lapses, the same identity counts again.
func TestTracker_VisitorCountsAgainAfterSessionExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 15, 14, 30, 0, 0, time.UTC)

	store := kv.NewMemoryStore()
	t.Cleanup(func() { store.Close() })
	counters := NewCounterStore(store)
	tracker := NewTracker(store, counters, 100, 10)
	tracker.SetClock(fixedClock(now))
	store.SetClock(fixedClock(now))
	h1 := HashIdentity("203.0.113.7", "Mozilla/5.0")

	if _, err := tracker.TrackVisitor(ctx, h1); err != nil {
		t.Fatalf("TrackVisitor() error: %v", err)
	}

	later := now.Add(SessionTTL + time.Minute)
	tracker.SetClock(fixedClock(later))
	store.SetClock(fixedClock(later))

	res, err := tracker.TrackVisitor(ctx, h1)
	if err != nil {
		t.Fatalf("TrackVisitor() after expiry error: %v", err)
	}
	if res.AlreadyCounted || res.Limited {
		t.Fatalf("result after expiry = %+v, want counted", res)
	}

	metrics, _, err := counters.ReadCurrent(ctx)
	if err != nil {
		t.Fatalf("ReadCurrent() error: %v", err)
	}
	if metrics.TotalVisitors != 2 {
		t.Errorf("total visitors = %d, want 2", metrics.TotalVisitors)
	}
}

func TestTracker_VisitorRateLimited(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 15, 14, 30, 0, 0, time.UTC)

	store := kv.NewMemoryStore()
	t.Cleanup(func() { store.Close() })
	counters := NewCounterStore(store)
	tracker := NewTracker(store, counters, 1, 10)
	tracker.SetClock(fixedClock(now))

	if _, err := tracker.TrackVisitor(ctx, "h1"); err != nil {
		t.Fatalf("TrackVisitor() error: %v", err)
	}

	res, err := tracker.TrackVisitor(ctx, "h1")
	if err != nil {
		t.Fatalf("TrackVisitor() error: %v", err)
	}
	if !res.Limited {
		t.Fatalf("result = %+v, want limited", res)
	}
	if want := SecondsUntilNextHour(now); res.RetryAfter != want {
		t.Errorf("retry after = %d, want %d", res.RetryAfter, want)
	}

	metrics, _, err := counters.ReadCurrent(ctx)
	if err != nil {
		t.Fatalf("ReadCurrent() error: %v", err)
	}
	if metrics.TotalVisitors != 1 {
		t.Errorf("total visitors = %d, want 1 (rejected call must not count)", metrics.TotalVisitors)
	}
}

func TestTracker_AssessmentDedupByID(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 15, 14, 30, 0, 0, time.UTC)
	tracker, counters := newTestTracker(t, now)

	first, err := tracker.TrackAssessment(ctx, "h1", "assessment-42")
	if err != nil {
		t.Fatalf("TrackAssessment() error: %v", err)
	}
	if first.AlreadyCounted {
		t.Fatal("first submission reported as duplicate")
	}

	// Same id from a different identity is still the same assessment.
	repeat, err := tracker.TrackAssessment(ctx, "h2", "assessment-42")
	if err != nil {
		t.Fatalf("TrackAssessment() error: %v", err)
	}
	if !repeat.AlreadyCounted {
		t.Fatalf("repeat = %+v, want alreadyCounted", repeat)
	}

	metrics, _, err := counters.ReadCurrent(ctx)
	if err != nil {
		t.Fatalf("ReadCurrent() error: %v", err)
	}
	if metrics.TotalAssessments != 1 {
		t.Errorf("total assessments = %d, want 1", metrics.TotalAssessments)
	}
}

func TestTracker_AssessmentDedupWithoutID(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 15, 14, 30, 0, 0, time.UTC)
	tracker, counters := newTestTracker(t, now)

	first, err := tracker.TrackAssessment(ctx, "h1", "")
	if err != nil {
		t.Fatalf("TrackAssessment() error: %v", err)
	}
	if first.AlreadyCounted {
		t.Fatal("first submission reported as duplicate")
	}

	// No id: the fallback marker is one per identity per hour.
	repeat, err := tracker.TrackAssessment(ctx, "h1", "")
	if err != nil {
		t.Fatalf("TrackAssessment() error: %v", err)
	}
	if !repeat.AlreadyCounted {
		t.Fatalf("repeat = %+v, want alreadyCounted", repeat)
	}

	// A different identity in the same hour counts separately.
	other, err := tracker.TrackAssessment(ctx, "h2", "")
	if err != nil {
		t.Fatalf("TrackAssessment() error: %v", err)
	}
	if other.AlreadyCounted {
		t.Fatalf("other identity = %+v, want counted", other)
	}

	metrics, _, err := counters.ReadCurrent(ctx)
	if err != nil {
		t.Fatalf("ReadCurrent() error: %v", err)
	}
	if metrics.TotalAssessments != 2 {
		t.Errorf("total assessments = %d, want 2", metrics.TotalAssessments)
	}
}

func TestTracker_VisitorAndAssessmentWindowsIndependent(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 15, 14, 30, 0, 0, time.UTC)

	store := kv.NewMemoryStore()
	t.Cleanup(func() { store.Close() })
	counters := NewCounterStore(store)
	tracker := NewTracker(store, counters, 100, 1)
	tracker.SetClock(fixedClock(now))

	if _, err := tracker.TrackAssessment(ctx, "h1", "a-1"); err != nil {
		t.Fatalf("TrackAssessment() error: %v", err)
	}
	res, err := tracker.TrackAssessment(ctx, "h1", "a-2")
	if err != nil {
		t.Fatalf("TrackAssessment() error: %v", err)
	}
	if !res.Limited {
		t.Fatalf("second assessment = %+v, want limited by stricter ceiling", res)
	}

	// Visitor tracking for the same identity uses its own window.
	visit, err := tracker.TrackVisitor(ctx, "h1")
	if err != nil {
		t.Fatalf("TrackVisitor() error: %v", err)
	}
	if visit.Limited {
		t.Fatalf("visit = %+v, want allowed", visit)
	}
}

func TestWithinFreshnessWindow(t *testing.T) {
	now := time.Date(2026, 3, 15, 14, 30, 0, 0, time.UTC)
	tests := []struct {
		name        string
		completedAt time.Time
		want        bool
	}{
		{"just now", now, true},
		{"four minutes ago", now.Add(-4 * time.Minute), true},
		{"exactly five minutes ago", now.Add(-5 * time.Minute), true},
		{"six minutes ago", now.Add(-6 * time.Minute), false},
		{"one minute in the future", now.Add(time.Minute), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WithinFreshnessWindow(tt.completedAt, now); got != tt.want {
				t.Errorf("WithinFreshnessWindow(%v) = %v, want %v", tt.completedAt, got, tt.want)
			}
		})
	}
}
