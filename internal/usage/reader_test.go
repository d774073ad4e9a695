// CourseCompass - Course Discovery Platform Usage Metrics
// Copyright 2026 CourseCompass Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coursecompass/coursecompass

package usage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/coursecompass/coursecompass/internal/kv"
)

// brokenStore fails every operation, standing in for an unreachable
// backend.
type brokenStore struct{}

func (brokenStore) Get(ctx context.Context, key string) ([]byte, error) {
	return nil, errors.New("store unreachable")
}

func (brokenStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return errors.New("store unreachable")
}

func (brokenStore) SetIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	return false, errors.New("store unreachable")
}

func (brokenStore) Update(ctx context.Context, key string, ttl time.Duration, fn func(current []byte) ([]byte, error)) error {
	return errors.New("store unreachable")
}

func (brokenStore) Delete(ctx context.Context, key string) error {
	return errors.New("store unreachable")
}

func (brokenStore) Close() error { return nil }

var testStats = PlatformStats{Universities: 191, Courses: 153, Continents: 3}

func TestReader_Read(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 15, 14, 30, 0, 0, time.UTC)

	t.Run("returns stored counters with platform stats", func(t *testing.T) {
		store := kv.NewMemoryStore()
		defer store.Close()
		counters := NewCounterStore(store)
		counters.SetClock(fixedClock(now))
		if _, err := counters.WriteCurrent(ctx, CurrentMetrics{TotalVisitors: 42, TotalAssessments: 7}); err != nil {
			t.Fatalf("WriteCurrent() error: %v", err)
		}

		reader := NewReader(counters, testStats)
		reader.SetClock(fixedClock(now))

		got := reader.Read(ctx)
		if got.TotalVisitors != 42 || got.TotalAssessments != 7 {
			t.Errorf("counters = %d/%d, want 42/7", got.TotalVisitors, got.TotalAssessments)
		}
		if got.PlatformStats != testStats {
			t.Errorf("platform stats = %+v, want %+v", got.PlatformStats, testStats)
		}
	})

	t.Run("empty store yields zero payload", func(t *testing.T) {
		store := kv.NewMemoryStore()
		defer store.Close()
		reader := NewReader(NewCounterStore(store), testStats)
		reader.SetClock(fixedClock(now))

		got := reader.Read(ctx)
		if got.TotalVisitors != 0 || got.TotalAssessments != 0 {
			t.Errorf("counters = %d/%d, want zeroes", got.TotalVisitors, got.TotalAssessments)
		}
		if !got.LastUpdated.Equal(now) {
			t.Errorf("last updated = %v, want %v", got.LastUpdated, now)
		}
		if got.PlatformStats != testStats {
			t.Errorf("platform stats = %+v, want %+v", got.PlatformStats, testStats)
		}
	})

	t.Run("store failure degrades to zero payload", func(t *testing.T) {
		reader := NewReader(NewCounterStore(brokenStore{}), testStats)
		reader.SetClock(fixedClock(now))

		got := reader.Read(ctx)
		if got.TotalVisitors != 0 || got.TotalAssessments != 0 {
			t.Errorf("counters = %d/%d, want zeroes", got.TotalVisitors, got.TotalAssessments)
		}
		if got.HourKey != "2026-03-15-14" {
			t.Errorf("hour key = %q, want 2026-03-15-14", got.HourKey)
		}
	})
}

func TestReader_CacheMaxAge(t *testing.T) {
	reader := NewReader(nil, testStats)
	tests := []struct {
		name string
		at   time.Time
		want int
	}{
		{
			name: "mid hour capped at ceiling",
			at:   time.Date(2026, 3, 15, 14, 30, 0, 0, time.UTC),
			want: 300,
		},
		{
			name: "near boundary uses remaining seconds",
			at:   time.Date(2026, 3, 15, 14, 58, 0, 0, time.UTC),
			want: 120,
		},
		{
			name: "exactly at ceiling distance",
			at:   time.Date(2026, 3, 15, 14, 55, 0, 0, time.UTC),
			want: 300,
		},
		{
			name: "last second clamps to one",
			at:   time.Date(2026, 3, 15, 14, 59, 59, 500000000, time.UTC),
			want: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := reader.CacheMaxAge(tt.at); got != tt.want {
				t.Errorf("CacheMaxAge(%v) = %d, want %d", tt.at, got, tt.want)
			}
		})
	}
}
