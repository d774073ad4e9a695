// CourseCompass - Course Discovery Platform Usage Metrics
// Copyright 2026 CourseCompass Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coursecompass/coursecompass

package usage

import (
	"context"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"

	"github.com/coursecompass/coursecompass/internal/kv"
)

// recordedMarker is the value stored under dedup and idempotency keys. The
// key's existence is the signal; the value is never read back.
const recordedMarker = "1"

// CounterStore owns the CurrentMetrics singleton and the idempotency
// markers guarding it. All mutations go through the underlying store's
// transactional primitives, so concurrent writers never lose updates and a
// duplicate submission never counts twice.
type CounterStore struct {
	store kv.Store
	now   func() time.Time
}

// NewCounterStore creates a counter store backed by the given key-value
// store.
func NewCounterStore(store kv.Store) *CounterStore {
	return &CounterStore{
		store: store,
		now:   time.Now,
	}
}

// SetClock replaces the store's clock. Test helper.
func (c *CounterStore) SetClock(now func() time.Time) {
	c.now = now
}

// RecordOnce claims the given idempotency key. It returns true exactly once
// per key per TTL window, no matter how many callers race on it: the claim
// is a single atomic conditional write, so two concurrent calls cannot both
// win.
func (c *CounterStore) RecordOnce(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	stored, err := c.store.SetIfAbsent(ctx, key, []byte(recordedMarker), ttl)
	if err != nil {
		return false, fmt.Errorf("record once %q: %w", key, err)
	}
	return stored, nil
}

// IncrementMetric adds one to the named counter and stamps the mutation
// time and hour bucket. The record is created from zeroes if it does not
// exist yet, so the very first tracked event works without any seeding
// step. Returns the metrics as written.
func (c *CounterStore) IncrementMetric(ctx context.Context, metric Metric) (CurrentMetrics, error) {
	var written CurrentMetrics
	err := c.store.Update(ctx, CurrentMetricsKey, 0, func(current []byte) ([]byte, error) {
		metrics, err := decodeCurrent(current)
		if err != nil {
			return nil, err
		}
		switch metric {
		case MetricVisitors:
			metrics.TotalVisitors++
		case MetricAssessments:
			metrics.TotalAssessments++
		default:
			return nil, fmt.Errorf("unknown metric %q", metric)
		}
		now := c.now()
		metrics.LastUpdated = now
		metrics.HourKey = HourKey(now)
		written = metrics
		return json.Marshal(metrics)
	})
	if err != nil {
		return CurrentMetrics{}, fmt.Errorf("increment %s: %w", metric, err)
	}
	return written, nil
}

// ReadCurrent loads the metrics singleton. The second return is false when
// no traffic has ever been recorded.
func (c *CounterStore) ReadCurrent(ctx context.Context) (CurrentMetrics, bool, error) {
	raw, err := c.store.Get(ctx, CurrentMetricsKey)
	if errors.Is(err, kv.ErrKeyNotFound) {
		return CurrentMetrics{}, false, nil
	}
	if err != nil {
		return CurrentMetrics{}, false, fmt.Errorf("read current metrics: %w", err)
	}
	var metrics CurrentMetrics
	if err := json.Unmarshal(raw, &metrics); err != nil {
		return CurrentMetrics{}, false, fmt.Errorf("decode current metrics: %w", err)
	}
	return metrics, true, nil
}

// WriteCurrent overwrites the metrics singleton. Reconciliation only; every
// normal mutation goes through IncrementMetric. The caller supplies the
// counters, this method stamps the mutation time and hour bucket.
func (c *CounterStore) WriteCurrent(ctx context.Context, metrics CurrentMetrics) (CurrentMetrics, error) {
	now := c.now()
	metrics.LastUpdated = now
	metrics.HourKey = HourKey(now)

	raw, err := json.Marshal(metrics)
	if err != nil {
		return CurrentMetrics{}, fmt.Errorf("encode current metrics: %w", err)
	}
	if err := c.store.Set(ctx, CurrentMetricsKey, raw, 0); err != nil {
		return CurrentMetrics{}, fmt.Errorf("write current metrics: %w", err)
	}
	return metrics, nil
}

// decodeCurrent parses a stored CurrentMetrics record, treating a missing
// record as all zeroes.
func decodeCurrent(raw []byte) (CurrentMetrics, error) {
	if raw == nil {
		return CurrentMetrics{}, nil
	}
	var metrics CurrentMetrics
	if err := json.Unmarshal(raw, &metrics); err != nil {
		return CurrentMetrics{}, fmt.Errorf("decode current metrics: %w", err)
	}
	return metrics, nil
}
