// CourseCompass - Course Discovery Platform Usage Metrics
// Copyright 2026 CourseCompass Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coursecompass/coursecompass

// Package usage implements the privacy-preserving usage-metrics subsystem:
// pseudonymous visitor identity, fixed-window rate limiting, idempotent
// counter updates, cached metric reads, hourly immutable snapshots, and
// administrative reconciliation against the content database.
//
// All shared mutable state lives in the key-value store (internal/kv);
// request handlers are stateless and rely on the store's atomic primitives
// for correctness under concurrent, at-least-once-delivered traffic.
package usage
