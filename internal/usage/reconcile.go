// CourseCompass - Course Discovery Platform Usage Metrics
// Copyright 2026 CourseCompass Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coursecompass/coursecompass

package usage

import (
	"context"
	"errors"
	"fmt"

	"github.com/coursecompass/coursecompass/internal/logging"
	"github.com/coursecompass/coursecompass/internal/telemetry"
)

// AssessmentSource answers the authoritative completed-assessment count.
// Implemented by the content database; the live counters reconcile against
// it when drift is suspected.
type AssessmentSource interface {
	CompletedAssessments(ctx context.Context) (int64, error)
}

// ErrNoSource is returned by SyncFromSource when no content database is
// configured.
var ErrNoSource = errors.New("usage: no assessment source configured")

// ReconcileResult reports a counter correction.
type ReconcileResult struct {
	Previous   int64 `json:"previous"`
	New        int64 `json:"new"`
	Difference int64 `json:"difference"`
}

// Reconciler applies administrative corrections to the live counters.
// These are the only writes allowed to move a counter backwards.
type Reconciler struct {
	counters *CounterStore
	source   AssessmentSource
}

// NewReconciler creates a reconciler. source may be nil when no content
// database is configured; SyncFromSource then fails with ErrNoSource.
func NewReconciler(counters *CounterStore, source AssessmentSource) *Reconciler {
	return &Reconciler{
		counters: counters,
		source:   source,
	}
}

// SetBaseline overwrites the assessment counter with an operator-supplied
// authoritative value, preserving the visitor counter. Used to correct a
// known-bad baseline when the content database cannot be queried directly.
func (r *Reconciler) SetBaseline(ctx context.Context, assessments int64) (result ReconcileResult, err error) {
	defer func() { telemetry.RecordReconciliation("set_baseline", err) }()

	current, _, err := r.counters.ReadCurrent(ctx)
	if err != nil {
		return ReconcileResult{}, fmt.Errorf("set baseline: %w", err)
	}

	previous := current.TotalAssessments
	current.TotalAssessments = assessments
	if _, err = r.counters.WriteCurrent(ctx, current); err != nil {
		return ReconcileResult{}, fmt.Errorf("set baseline: %w", err)
	}

	logging.Ctx(ctx).Info().
		Int64("previous", previous).
		Int64("new", assessments).
		Msg("Assessment baseline set")

	return ReconcileResult{
		Previous:   previous,
		New:        assessments,
		Difference: assessments - previous,
	}, nil
}

// SyncFromSource replaces the assessment counter with the authoritative
// count from the content database, preserving the visitor counter. Use
// SetBaseline instead when the correct count is known but the content
// database is unavailable.
func (r *Reconciler) SyncFromSource(ctx context.Context) (result ReconcileResult, err error) {
	defer func() { telemetry.RecordReconciliation("sync_from_source", err) }()

	if r.source == nil {
		return ReconcileResult{}, ErrNoSource
	}

	authoritative, err := r.source.CompletedAssessments(ctx)
	if err != nil {
		return ReconcileResult{}, fmt.Errorf("sync from source: %w", err)
	}

	current, _, err := r.counters.ReadCurrent(ctx)
	if err != nil {
		return ReconcileResult{}, fmt.Errorf("sync from source: %w", err)
	}

	previous := current.TotalAssessments
	current.TotalAssessments = authoritative
	if _, err = r.counters.WriteCurrent(ctx, current); err != nil {
		return ReconcileResult{}, fmt.Errorf("sync from source: %w", err)
	}

	logging.Ctx(ctx).Info().
		Int64("previous", previous).
		Int64("new", authoritative).
		Msg("Assessment counter synced from content database")

	return ReconcileResult{
		Previous:   previous,
		New:        authoritative,
		Difference: authoritative - previous,
	}, nil
}
