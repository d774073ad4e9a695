// CourseCompass - Course Discovery Platform Usage Metrics
// Copyright 2026 CourseCompass Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coursecompass/coursecompass

// Package telemetry defines the service's Prometheus instrumentation.
//
// All metrics are registered at package load via promauto and exposed on
// /metrics/prometheus. This is operational observability for the service
// itself, distinct from the usage counters the service exists to maintain.
package telemetry

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	httpActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_active_requests",
			Help: "Number of HTTP requests currently being served",
		},
	)

	// Tracked-event metrics
	trackedEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracked_events_total",
			Help: "Total number of tracked events by outcome",
		},
		[]string{"event", "outcome"}, // event: visitor, assessment; outcome: counted, duplicate, rate_limited, rejected, error
	)

	// RateLimitRejectionsTotal counts fixed-window rejections. Spikes
	// indicate abuse rather than service failures; rejections are not
	// logged as errors.
	rateLimitRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_rejections_total",
			Help: "Total number of tracked events rejected by the hourly rate limit",
		},
		[]string{"event"},
	)

	// Aggregator metrics
	snapshotRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapshot_runs_total",
			Help: "Total number of hourly aggregation runs by outcome",
		},
		[]string{"outcome"}, // success, initialized, failure
	)

	snapshotRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "snapshot_run_duration_seconds",
			Help:    "Duration of hourly aggregation runs in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// KV store metrics
	kvOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kv_operation_duration_seconds",
			Help:    "Duration of key-value store operations in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"operation", "outcome"},
	)

	// Reconciliation metrics
	reconciliationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reconciliations_total",
			Help: "Total number of administrative reconciliation writes",
		},
		[]string{"kind", "outcome"}, // kind: set_baseline, sync_from_source
	)
)

// RecordHTTPRequest records a completed HTTP request.
func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// TrackActiveRequest adjusts the in-flight request gauge.
func TrackActiveRequest(start bool) {
	if start {
		httpActiveRequests.Inc()
	} else {
		httpActiveRequests.Dec()
	}
}

// RecordTrackedEvent records the outcome of a tracked-event request.
func RecordTrackedEvent(event, outcome string) {
	trackedEventsTotal.WithLabelValues(event, outcome).Inc()
}

// RecordRateLimitRejection records a fixed-window rate limit rejection.
func RecordRateLimitRejection(event string) {
	rateLimitRejectionsTotal.WithLabelValues(event).Inc()
}

// RecordSnapshotRun records an aggregation run and its duration.
func RecordSnapshotRun(outcome string, duration time.Duration) {
	snapshotRunsTotal.WithLabelValues(outcome).Inc()
	snapshotRunDuration.Observe(duration.Seconds())
}

// ObserveKVOperation records the duration and outcome of a KV operation.
func ObserveKVOperation(operation string, start time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	kvOperationDuration.WithLabelValues(operation, outcome).Observe(time.Since(start).Seconds())
}

// RecordReconciliation records an administrative reconciliation write.
func RecordReconciliation(kind string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	reconciliationsTotal.WithLabelValues(kind, outcome).Inc()
}
