// CourseCompass - Course Discovery Platform Usage Metrics
// Copyright 2026 CourseCompass Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coursecompass/coursecompass

// Package kv provides the key-value store abstraction the metrics subsystem
// runs on: namespaced string keys, per-key TTL, and the two atomic primitives
// every tracked-event write depends on.
//
// Correctness requirements (these are contracts, not implementation details):
//
//   - SetIfAbsent MUST be a single atomic conditional write. A check followed
//     by a separate set is a race under concurrent retries and would break
//     the at-most-once guarantee for dedup and idempotency markers.
//   - Update MUST serialize the read-modify-write per key. Naive read-then-
//     write under concurrent load loses increments and under-counts.
//
// Two implementations are provided: BadgerStore (durable, TTL handled by
// BadgerDB itself) for production, and MemoryStore for tests.
package kv

import (
	"context"
	"errors"
	"time"
)

// Store errors.
var (
	// ErrKeyNotFound indicates the key does not exist or its TTL has expired.
	ErrKeyNotFound = errors.New("kv: key not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("kv: store is closed")
)

// Store is a key-value store with per-key TTL support.
//
// A ttl of zero means the entry never expires. All operations honor the
// caller's context deadline; a timed-out operation returns the context error
// so callers can surface a retryable failure instead of hanging.
type Store interface {
	// Get returns the value for key, or ErrKeyNotFound if the key is absent
	// or expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set writes the value unconditionally with the given TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// SetIfAbsent atomically writes the value only if the key does not
	// already exist (or has expired). Returns true if the write happened,
	// false if the key was already present. This is the primitive behind
	// dedup and idempotency markers.
	SetIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)

	// Update applies fn to the current value of key (nil if absent) and
	// writes the result back with the given TTL, as one serialized
	// read-modify-write. Concurrent Updates on the same key never lose
	// writes. If fn returns an error the update is abandoned and the error
	// is returned unchanged.
	Update(ctx context.Context, key string, ttl time.Duration, fn func(current []byte) ([]byte, error)) error

	// Delete removes the key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases store resources.
	Close() error
}
