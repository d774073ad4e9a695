// CourseCompass - Course Discovery Platform Usage Metrics
// Copyright 2026 CourseCompass Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coursecompass/coursecompass

package usage

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/coursecompass/coursecompass/internal/kv"
)

func newTestCounters(t *testing.T, now time.Time) *CounterStore {
	t.Helper()
	store := kv.NewMemoryStore()
	t.Cleanup(func() { store.Close() })
	counters := NewCounterStore(store)
	counters.SetClock(fixedClock(now))
	return counters
}

func TestCounterStore_RecordOnce(t *testing.T) {
	ctx := context.Background()
	counters := newTestCounters(t, time.Date(2026, 3, 15, 14, 30, 0, 0, time.UTC))

	first, err := counters.RecordOnce(ctx, SessionKey("h1"), SessionTTL)
	if err != nil {
		t.Fatalf("RecordOnce() error: %v", err)
	}
	if !first {
		t.Fatal("first RecordOnce() = false, want true")
	}

	second, err := counters.RecordOnce(ctx, SessionKey("h1"), SessionTTL)
	if err != nil {
		t.Fatalf("RecordOnce() error: %v", err)
	}
	if second {
		t.Fatal("second RecordOnce() = true, want false")
	}
}

func TestCounterStore_RecordOnce_ConcurrentSingleWinner(t *testing.T) {
	ctx := context.Background()
	counters := newTestCounters(t, time.Date(2026, 3, 15, 14, 30, 0, 0, time.UTC))

	const goroutines = 32
	var wg sync.WaitGroup
	wins := make(chan bool, goroutines)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			won, err := counters.RecordOnce(ctx, SessionKey("h1"), SessionTTL)
			if err != nil {
				t.Errorf("RecordOnce() error: %v", err)
				return
			}
			wins <- won
		}()
	}
	wg.Wait()
	close(wins)

	winners := 0
	for won := range wins {
		if won {
			winners++
		}
	}
	if winners != 1 {
		t.Errorf("winners = %d, want exactly 1", winners)
	}
}

func TestCounterStore_IncrementMetric(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 15, 14, 30, 0, 0, time.UTC)
	counters := newTestCounters(t, now)

	t.Run("creates record from zeroes", func(t *testing.T) {
		got, err := counters.IncrementMetric(ctx, MetricVisitors)
		if err != nil {
			t.Fatalf("IncrementMetric() error: %v", err)
		}
		if got.TotalVisitors != 1 || got.TotalAssessments != 0 {
			t.Errorf("counters = %d/%d, want 1/0", got.TotalVisitors, got.TotalAssessments)
		}
		if got.HourKey != "2026-03-15-14" {
			t.Errorf("hour key = %q, want 2026-03-15-14", got.HourKey)
		}
		if !got.LastUpdated.Equal(now) {
			t.Errorf("last updated = %v, want %v", got.LastUpdated, now)
		}
	})

	t.Run("counters move independently", func(t *testing.T) {
		got, err := counters.IncrementMetric(ctx, MetricAssessments)
		if err != nil {
			t.Fatalf("IncrementMetric() error: %v", err)
		}
		if got.TotalVisitors != 1 || got.TotalAssessments != 1 {
			t.Errorf("counters = %d/%d, want 1/1", got.TotalVisitors, got.TotalAssessments)
		}
	})

	t.Run("unknown metric rejected", func(t *testing.T) {
		if _, err := counters.IncrementMetric(ctx, Metric("bogus")); err == nil {
			t.Fatal("IncrementMetric(bogus) returned nil error")
		}
	})
}

func TestCounterStore_IncrementMetric_ConcurrentNoLostUpdates(t *testing.T) {
	ctx := context.Background()
	counters := newTestCounters(t, time.Date(2026, 3, 15, 14, 30, 0, 0, time.UTC))

	const goroutines = 50
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := counters.IncrementMetric(ctx, MetricVisitors); err != nil {
				t.Errorf("IncrementMetric() error: %v", err)
			}
		}()
	}
	wg.Wait()

	metrics, found, err := counters.ReadCurrent(ctx)
	if err != nil {
		t.Fatalf("ReadCurrent() error: %v", err)
	}
	if !found {
		t.Fatal("ReadCurrent() found = false after increments")
	}
	if metrics.TotalVisitors != goroutines {
		t.Errorf("total visitors = %d, want %d", metrics.TotalVisitors, goroutines)
	}
}

func TestCounterStore_ReadCurrent_Missing(t *testing.T) {
	ctx := context.Background()
	counters := newTestCounters(t, time.Date(2026, 3, 15, 14, 30, 0, 0, time.UTC))

	metrics, found, err := counters.ReadCurrent(ctx)
	if err != nil {
		t.Fatalf("ReadCurrent() error: %v", err)
	}
	if found {
		t.Error("found = true on empty store")
	}
	if metrics.TotalVisitors != 0 || metrics.TotalAssessments != 0 {
		t.Errorf("zero value expected, got %+v", metrics)
	}
}

func TestCounterStore_WriteCurrent(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 15, 14, 30, 0, 0, time.UTC)
	counters := newTestCounters(t, now)

	written, err := counters.WriteCurrent(ctx, CurrentMetrics{TotalVisitors: 500, TotalAssessments: 42})
	if err != nil {
		t.Fatalf("WriteCurrent() error: %v", err)
	}
	if written.HourKey != "2026-03-15-14" || !written.LastUpdated.Equal(now) {
		t.Errorf("stamps not applied: %+v", written)
	}

	metrics, found, err := counters.ReadCurrent(ctx)
	if err != nil || !found {
		t.Fatalf("ReadCurrent() = found %v, err %v", found, err)
	}
	if metrics.TotalVisitors != 500 || metrics.TotalAssessments != 42 {
		t.Errorf("counters = %d/%d, want 500/42", metrics.TotalVisitors, metrics.TotalAssessments)
	}
}
