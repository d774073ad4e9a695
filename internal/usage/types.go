// CourseCompass - Course Discovery Platform Usage Metrics
// Copyright 2026 CourseCompass Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coursecompass/coursecompass

package usage

import "time"

// CurrentMetrics is the singleton record holding the live counters. It is
// created lazily on first traffic and mutated by every accepted tracked
// event. Both counters are monotonically non-decreasing except through an
// explicit administrative reconciliation write.
type CurrentMetrics struct {
	// TotalVisitors is the cumulative de-duplicated visitor count.
	TotalVisitors int64 `json:"totalVisitors"`

	// TotalAssessments is the cumulative de-duplicated completed-assessment count.
	TotalAssessments int64 `json:"totalAssessments"`

	// LastUpdated is the time of the most recent mutation.
	LastUpdated time.Time `json:"lastUpdated"`

	// HourKey is the UTC hour bucket (YYYY-MM-DD-HH) of the last mutation.
	HourKey string `json:"hourKey"`
}

// HourlySnapshot is an immutable point-in-time copy of CurrentMetrics plus
// the delta versus the immediately preceding hour's snapshot. One snapshot
// exists per hour bucket; the deterministic ID guarantees re-runs overwrite
// rather than duplicate.
type HourlySnapshot struct {
	CurrentMetrics

	// ID is derived from the hour bucket: "snapshot-<hourKey>".
	ID string `json:"id"`

	// NewVisitors is the visitor delta versus the previous hour's snapshot.
	// May be negative after an administrative reconciliation lowered the
	// counter between snapshots.
	NewVisitors int64 `json:"newVisitors"`

	// NewAssessments is the assessment delta versus the previous hour's snapshot.
	NewAssessments int64 `json:"newAssessments"`
}

// PlatformStats are static platform-wide descriptive figures attached to
// the public metrics payload. They are configured, not computed.
type PlatformStats struct {
	Universities int `json:"universities" koanf:"universities"`
	Courses      int `json:"courses" koanf:"courses"`
	Continents   int `json:"continents" koanf:"continents"`
}

// Metric names a counter field of CurrentMetrics.
type Metric string

// Counter fields.
const (
	MetricVisitors    Metric = "totalVisitors"
	MetricAssessments Metric = "totalAssessments"
)

// TTL windows and retention.
const (
	// SessionTTL bounds the dedup window for visitor sessions. Idempotency
	// markers share it since 24 hours also bounds the realistic retry
	// horizon.
	SessionTTL = 24 * time.Hour

	// RateLimitTTL is the lifetime of a fixed-window rate limit counter.
	RateLimitTTL = time.Hour

	// SnapshotRetention is how long hourly snapshots are kept before the
	// store expires them.
	SnapshotRetention = 30 * 24 * time.Hour

	// EdgeCacheCeiling caps the cache lifetime advertised on metric reads.
	EdgeCacheCeiling = 5 * time.Minute
)

// Key-value store key layout. All state shares one namespace-prefixed
// string keyspace.
const (
	// CurrentMetricsKey holds the CurrentMetrics singleton.
	CurrentMetricsKey = "metrics:current"

	snapshotKeyPrefix    = "snapshot:"
	sessionKeyPrefix     = "session:"
	rateLimitKeyPrefix   = "ratelimit:"
	assessmentKeyPrefix  = "assessment:completed:"
	assessmentSessPrefix = "assessment:session:"
)

// SnapshotKey builds the store key for an hour's snapshot.
func SnapshotKey(hourKey string) string {
	return snapshotKeyPrefix + hourKey
}

// SessionKey builds the store key marking an identity's counted visit.
func SessionKey(identityHash string) string {
	return sessionKeyPrefix + identityHash
}

// RateLimitKey builds the store key for a fixed-window counter. The hour
// key in the name is what makes the window fixed: a new hour means a new
// key, and the old one expires on its own.
func RateLimitKey(identifier, hourKey string) string {
	return rateLimitKeyPrefix + identifier + ":" + hourKey
}

// AssessmentIdempotencyKey builds the idempotency key for a caller-supplied
// assessment identifier.
func AssessmentIdempotencyKey(assessmentID string) string {
	return assessmentKeyPrefix + assessmentID
}

// AssessmentSessionKey builds the fallback idempotency key for assessments
// submitted without an identifier: one per (identity, hour).
func AssessmentSessionKey(identityHash, hourKey string) string {
	return assessmentSessPrefix + identityHash + ":" + hourKey
}
