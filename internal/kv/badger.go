// CourseCompass - Course Discovery Platform Usage Metrics
// Copyright 2026 CourseCompass Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coursecompass/coursecompass

package kv

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/coursecompass/coursecompass/internal/logging"
	"github.com/coursecompass/coursecompass/internal/telemetry"
)

// conflictRetries bounds the retry loop for Update under transaction
// conflicts. Badger detects read-write conflicts between concurrent
// transactions; retrying re-reads the committed value, so no increment is
// ever lost.
const conflictRetries = 16

// BadgerStore implements Store on BadgerDB. TTL expiry is handled natively
// by Badger (entries written with WithTTL), so ephemeral markers need no
// background sweep.
type BadgerStore struct {
	db     *badger.DB
	mu     sync.RWMutex
	closed bool

	// owned is true when the store opened the DB itself and must close it.
	owned bool
}

// BadgerOptions configures OpenBadger.
type BadgerOptions struct {
	// Path is the on-disk location. Ignored when InMemory is true.
	Path string

	// InMemory runs BadgerDB without persistence. Used in tests and
	// ephemeral deployments.
	InMemory bool
}

// OpenBadger opens a BadgerDB-backed store.
func OpenBadger(opts BadgerOptions) (*BadgerStore, error) {
	badgerOpts := badger.DefaultOptions(opts.Path).WithLogger(nil)
	if opts.InMemory {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	}

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", opts.Path, err)
	}

	return &BadgerStore{db: db, owned: true}, nil
}

// NewBadgerStore wraps an existing BadgerDB instance. The caller retains
// ownership of the DB; Close does not close it.
func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

// Get returns the value for key.
func (s *BadgerStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrKeyNotFound
		}
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	telemetry.ObserveKVOperation("get", start, err)

	if err != nil {
		return nil, err
	}
	return value, nil
}

// Set writes the value unconditionally.
func (s *BadgerStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.check(ctx); err != nil {
		return err
	}

	start := time.Now()
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(entry(key, value, ttl))
	})
	telemetry.ObserveKVOperation("set", start, err)
	return err
}

// SetIfAbsent atomically writes the value only if the key is absent. The
// existence check and the write run inside one Badger transaction, so two
// concurrent calls for the same key commit exactly one marker.
func (s *BadgerStore) SetIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if err := s.check(ctx); err != nil {
		return false, err
	}

	start := time.Now()
	var stored bool
	var err error
	for attempt := 0; attempt < conflictRetries; attempt++ {
		stored = false
		err = s.db.Update(func(txn *badger.Txn) error {
			_, getErr := txn.Get([]byte(key))
			if getErr == nil {
				return nil // already present
			}
			if !errors.Is(getErr, badger.ErrKeyNotFound) {
				return getErr
			}
			stored = true
			return txn.SetEntry(entry(key, value, ttl))
		})
		if !errors.Is(err, badger.ErrConflict) {
			break
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
			break
		}
	}
	telemetry.ObserveKVOperation("set_if_absent", start, err)

	if err != nil {
		return false, err
	}
	return stored, nil
}

// Update applies fn inside a Badger transaction and retries on conflict.
// Badger's conflict detection serializes concurrent read-modify-writes on
// the same key: the loser re-runs fn against the winner's committed value.
func (s *BadgerStore) Update(ctx context.Context, key string, ttl time.Duration, fn func(current []byte) ([]byte, error)) error {
	if err := s.check(ctx); err != nil {
		return err
	}

	start := time.Now()
	var err error
	for attempt := 0; attempt < conflictRetries; attempt++ {
		err = s.db.Update(func(txn *badger.Txn) error {
			var current []byte
			item, getErr := txn.Get([]byte(key))
			if getErr == nil {
				current, getErr = item.ValueCopy(nil)
			}
			if getErr != nil && !errors.Is(getErr, badger.ErrKeyNotFound) {
				return getErr
			}

			next, fnErr := fn(current)
			if fnErr != nil {
				return fnErr
			}
			return txn.SetEntry(entry(key, next, ttl))
		})
		if !errors.Is(err, badger.ErrConflict) {
			break
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
			break
		}
	}
	telemetry.ObserveKVOperation("update", start, err)

	if errors.Is(err, badger.ErrConflict) {
		return fmt.Errorf("update %q: conflict retries exhausted: %w", key, err)
	}
	return err
}

// Delete removes the key.
func (s *BadgerStore) Delete(ctx context.Context, key string) error {
	if err := s.check(ctx); err != nil {
		return err
	}

	start := time.Now()
	err := s.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
	telemetry.ObserveKVOperation("delete", start, err)
	return err
}

// Close closes the store, and the underlying DB if this store opened it.
func (s *BadgerStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.owned {
		return s.db.Close()
	}
	return nil
}

// StartGC runs Badger value-log garbage collection on a fixed interval until
// ctx is cancelled. Expired TTL entries are reclaimed during GC.
func (s *BadgerStore) StartGC(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.db.RunValueLogGC(0.5); err != nil && !errors.Is(err, badger.ErrNoRewrite) {
					logging.Debug().Err(err).Msg("Badger value log GC skipped")
				}
			}
		}
	}()
}

// check verifies the store is usable and the context is live.
func (s *BadgerStore) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	return nil
}

// entry builds a Badger entry with optional TTL.
func entry(key string, value []byte, ttl time.Duration) *badger.Entry {
	e := badger.NewEntry([]byte(key), value)
	if ttl > 0 {
		e = e.WithTTL(ttl)
	}
	return e
}
