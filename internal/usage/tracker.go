// CourseCompass - Course Discovery Platform Usage Metrics
// Copyright 2026 CourseCompass Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coursecompass/coursecompass

package usage

import (
	"context"
	"fmt"
	"time"

	"github.com/coursecompass/coursecompass/internal/kv"
	"github.com/coursecompass/coursecompass/internal/telemetry"
)

// FreshnessWindow bounds how stale a reported assessment completion may be.
// Completions older than this, or timestamped in the future, are rejected
// as client errors rather than silently counted.
const FreshnessWindow = 5 * time.Minute

// assessmentNamespace prefixes the identity handed to the assessment rate
// limiter so visitor and assessment windows count independently.
const assessmentNamespace = "assessment:"

// TrackResult is the outcome of one tracked event.
type TrackResult struct {
	// Limited is true when the rate ceiling rejected the event. RetryAfter
	// then carries the seconds until the window resets.
	Limited    bool
	RetryAfter int

	// AlreadyCounted is true when the dedup marker already existed and the
	// counter was left untouched. This is a success, not an error.
	AlreadyCounted bool
}

// Tracker runs the tracked-event sequence shared by every counting
// endpoint: resolve the rate window, claim the dedup marker, and only then
// increment. The marker is committed before the increment so a retry
// arriving between the two steps cannot double count; the worst case for a
// crash in that gap is an under-count, corrected by reconciliation.
type Tracker struct {
	counters          *CounterStore
	visitorLimiter    *RateLimiter
	assessmentLimiter *RateLimiter
	now               func() time.Time
}

// NewTracker creates a tracker. The two limiters carry independent
// ceilings; the assessment ceiling is typically far stricter.
func NewTracker(store kv.Store, counters *CounterStore, visitorCeiling, assessmentCeiling int) *Tracker {
	return &Tracker{
		counters:          counters,
		visitorLimiter:    NewRateLimiter(store, visitorCeiling),
		assessmentLimiter: NewRateLimiter(store, assessmentCeiling),
		now:               time.Now,
	}
}

// SetClock replaces the tracker's clock, including both limiters'. Test
// helper.
func (t *Tracker) SetClock(now func() time.Time) {
	t.now = now
	t.visitorLimiter.SetClock(now)
	t.assessmentLimiter.SetClock(now)
	t.counters.SetClock(now)
}

// TrackVisitor counts one visit for the identity, at most once per session
// window.
func (t *Tracker) TrackVisitor(ctx context.Context, identity string) (TrackResult, error) {
	return t.track(ctx, "visitor", t.visitorLimiter, identity, SessionKey(identity), MetricVisitors)
}

// TrackAssessment counts one completed assessment. Submissions carrying an
// assessment identifier dedup on it across any client; submissions without
// one fall back to at most one per identity per hour.
func (t *Tracker) TrackAssessment(ctx context.Context, identity, assessmentID string) (TrackResult, error) {
	key := AssessmentSessionKey(identity, HourKey(t.now()))
	if assessmentID != "" {
		key = AssessmentIdempotencyKey(assessmentID)
	}
	return t.track(ctx, "assessment", t.assessmentLimiter, assessmentNamespace+identity, key, MetricAssessments)
}

func (t *Tracker) track(ctx context.Context, event string, limiter *RateLimiter, limitIdentity, dedupKey string, metric Metric) (TrackResult, error) {
	limit, err := limiter.Check(ctx, limitIdentity)
	if err != nil {
		telemetry.RecordTrackedEvent(event, "error")
		return TrackResult{}, fmt.Errorf("track %s: %w", event, err)
	}
	if !limit.Allowed {
		telemetry.RecordRateLimitRejection(event)
		telemetry.RecordTrackedEvent(event, "rate_limited")
		return TrackResult{
			Limited:    true,
			RetryAfter: SecondsUntilNextHour(t.now()),
		}, nil
	}

	counted, err := t.counters.RecordOnce(ctx, dedupKey, SessionTTL)
	if err != nil {
		telemetry.RecordTrackedEvent(event, "error")
		return TrackResult{}, fmt.Errorf("track %s: %w", event, err)
	}
	if !counted {
		telemetry.RecordTrackedEvent(event, "duplicate")
		return TrackResult{AlreadyCounted: true}, nil
	}

	if _, err := t.counters.IncrementMetric(ctx, metric); err != nil {
		telemetry.RecordTrackedEvent(event, "error")
		return TrackResult{}, fmt.Errorf("track %s: %w", event, err)
	}
	telemetry.RecordTrackedEvent(event, "counted")
	return TrackResult{}, nil
}

// WithinFreshnessWindow reports whether a claimed completion time falls in
// the accepted interval [now-FreshnessWindow, now]. A small forward skew
// tolerance is deliberately absent; clients report completion after the
// fact, so a future timestamp is always a client bug.
func WithinFreshnessWindow(completedAt, now time.Time) bool {
	if completedAt.After(now) {
		return false
	}
	return now.Sub(completedAt) <= FreshnessWindow
}
