// CourseCompass - Course Discovery Platform Usage Metrics
// Copyright 2026 CourseCompass Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coursecompass/coursecompass

package usage

import (
	"context"
	"time"

	"github.com/coursecompass/coursecompass/internal/logging"
)

// PublicMetrics is the payload served to anonymous readers: the live
// counters plus the static platform figures.
type PublicMetrics struct {
	CurrentMetrics

	PlatformStats PlatformStats `json:"platform"`
}

// Reader serves the public metrics view. Reads never fail: any storage
// problem degrades to an all-zero payload, because a marketing counter is
// not worth a 500 on the landing page.
type Reader struct {
	counters *CounterStore
	stats    PlatformStats
	now      func() time.Time
}

// NewReader creates a metrics reader attaching the given platform stats to
// every payload.
func NewReader(counters *CounterStore, stats PlatformStats) *Reader {
	return &Reader{
		counters: counters,
		stats:    stats,
		now:      time.Now,
	}
}

// SetClock replaces the reader's clock. Test helper.
func (r *Reader) SetClock(now func() time.Time) {
	r.now = now
}

// Read returns the current public metrics. A store that has never seen
// traffic, or one that is temporarily unreadable, yields zero counters
// stamped with the current time; the error is logged, never returned.
func (r *Reader) Read(ctx context.Context) PublicMetrics {
	metrics, found, err := r.counters.ReadCurrent(ctx)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("Metrics read failed, serving zero fallback")
	}
	if err != nil || !found {
		now := r.now()
		metrics = CurrentMetrics{
			LastUpdated: now,
			HourKey:     HourKey(now),
		}
	}
	return PublicMetrics{
		CurrentMetrics: metrics,
		PlatformStats:  r.stats,
	}
}

// CacheMaxAge returns the shared-cache lifetime in seconds for a metrics
// response read at t: the time left in the current hour, capped so a
// response never outlives the five-minute ceiling. Clamped to at least one
// second right at the boundary.
func (r *Reader) CacheMaxAge(t time.Time) int {
	secs := SecondsUntilNextHour(t)
	if ceiling := int(EdgeCacheCeiling.Seconds()); secs > ceiling {
		secs = ceiling
	}
	if secs < 1 {
		secs = 1
	}
	return secs
}
