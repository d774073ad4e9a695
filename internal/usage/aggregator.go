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
	"github.com/coursecompass/coursecompass/internal/logging"
	"github.com/coursecompass/coursecompass/internal/telemetry"
)

// RunResult summarizes one aggregation run.
type RunResult struct {
	// HourKey is the bucket the run executed in.
	HourKey string `json:"hourKey"`

	// Initialized is true when the run found no metrics record and seeded
	// a zero one instead of snapshotting.
	Initialized bool `json:"initialized"`

	// Totals as captured by the snapshot. Zero when Initialized.
	TotalVisitors    int64 `json:"totalVisitors"`
	TotalAssessments int64 `json:"totalAssessments"`

	// Deltas versus the previous hour's snapshot. Equal to the totals when
	// no previous snapshot exists.
	NewVisitors    int64 `json:"newVisitors"`
	NewAssessments int64 `json:"newAssessments"`
}

// Aggregator writes the hourly snapshot trail. It is driven by an external
// scheduler; the run itself is idempotent, so a retried trigger within the
// same hour overwrites the hour's snapshot rather than duplicating it.
type Aggregator struct {
	store    kv.Store
	counters *CounterStore
	now      func() time.Time
}

// NewAggregator creates an aggregator over the given store.
func NewAggregator(store kv.Store, counters *CounterStore) *Aggregator {
	return &Aggregator{
		store:    store,
		counters: counters,
		now:      time.Now,
	}
}

// SetClock replaces the aggregator's clock. Test helper.
func (a *Aggregator) SetClock(now func() time.Time) {
	a.now = now
}

// Run performs one aggregation pass for the current hour.
//
// When no metrics record exists yet the run seeds a zero record and stops;
// the first real snapshot happens an hour after first traffic at the
// earliest. Otherwise it copies the current counters into an immutable
// snapshot keyed by hour bucket, with deltas computed against the previous
// hour's snapshot, and leaves the live record untouched.
func (a *Aggregator) Run(ctx context.Context) (RunResult, error) {
	start := time.Now()
	result, err := a.run(ctx)
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	telemetry.RecordSnapshotRun(outcome, time.Since(start))
	return result, err
}

func (a *Aggregator) run(ctx context.Context) (RunResult, error) {
	now := a.now()
	hour := HourKey(now)

	current, found, err := a.counters.ReadCurrent(ctx)
	if err != nil {
		return RunResult{}, fmt.Errorf("aggregate hour %s: %w", hour, err)
	}
	if !found {
		if _, err := a.counters.WriteCurrent(ctx, CurrentMetrics{}); err != nil {
			return RunResult{}, fmt.Errorf("seed metrics record: %w", err)
		}
		logging.Ctx(ctx).Info().Str("hour_key", hour).Msg("No metrics record found, seeded zero record")
		return RunResult{HourKey: hour, Initialized: true}, nil
	}

	previous, err := a.readSnapshot(ctx, PreviousHourKey(now))
	if err != nil {
		return RunResult{}, fmt.Errorf("aggregate hour %s: %w", hour, err)
	}

	snapshot := HourlySnapshot{
		CurrentMetrics: current,
		ID:             "snapshot-" + hour,
		NewVisitors:    current.TotalVisitors - previous.TotalVisitors,
		NewAssessments: current.TotalAssessments - previous.TotalAssessments,
	}

	raw, err := json.Marshal(snapshot)
	if err != nil {
		return RunResult{}, fmt.Errorf("encode snapshot %s: %w", hour, err)
	}
	if err := a.store.Set(ctx, SnapshotKey(hour), raw, SnapshotRetention); err != nil {
		return RunResult{}, fmt.Errorf("write snapshot %s: %w", hour, err)
	}

	logging.Ctx(ctx).Info().
		Str("hour_key", hour).
		Int64("new_visitors", snapshot.NewVisitors).
		Int64("new_assessments", snapshot.NewAssessments).
		Msg("Hourly snapshot written")

	return RunResult{
		HourKey:          hour,
		TotalVisitors:    current.TotalVisitors,
		TotalAssessments: current.TotalAssessments,
		NewVisitors:      snapshot.NewVisitors,
		NewAssessments:   snapshot.NewAssessments,
	}, nil
}

// Snapshot loads the snapshot for the given hour bucket. The second return
// is false when none exists.
func (a *Aggregator) Snapshot(ctx context.Context, hourKey string) (HourlySnapshot, bool, error) {
	raw, err := a.store.Get(ctx, SnapshotKey(hourKey))
	if errors.Is(err, kv.ErrKeyNotFound) {
		return HourlySnapshot{}, false, nil
	}
	if err != nil {
		return HourlySnapshot{}, false, fmt.Errorf("read snapshot %s: %w", hourKey, err)
	}
	var snapshot HourlySnapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return HourlySnapshot{}, false, fmt.Errorf("decode snapshot %s: %w", hourKey, err)
	}
	return snapshot, true, nil
}

// readSnapshot is Snapshot with a zero-value fallback for missing hours,
// which is what delta computation wants.
func (a *Aggregator) readSnapshot(ctx context.Context, hourKey string) (HourlySnapshot, error) {
	snapshot, _, err := a.Snapshot(ctx, hourKey)
	return snapshot, err
}
