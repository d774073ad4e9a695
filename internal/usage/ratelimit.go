// CourseCompass - Course Discovery Platform Usage Metrics
// Copyright 2026 CourseCompass Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coursecompass/coursecompass

package usage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/coursecompass/coursecompass/internal/kv"
)

// RateLimiter bounds tracked events per identity per calendar hour.
//
// This is a FIXED-window limiter: the counter key embeds the current hour
// bucket, so a burst straddling an hour boundary can momentarily pass close
// to twice the ceiling. That is an accepted tradeoff for simplicity and a
// single TTL'd counter per window; replacing it with a sliding window would
// be a behavior change, not a fix.
type RateLimiter struct {
	store   kv.Store
	ceiling int
	now     func() time.Time
}

// RateLimitResult reports a limiter decision.
type RateLimitResult struct {
	// Allowed is false once the identity has exhausted the current window.
	Allowed bool

	// Remaining is the number of further events permitted this window.
	// Zero when not allowed, and also zero on the last allowed event.
	Remaining int
}

// NewRateLimiter creates a limiter with the given hourly ceiling. Callers
// that need a stricter ceiling for high-value events construct a second
// limiter and namespace the identity string per event type.
func NewRateLimiter(store kv.Store, ceiling int) *RateLimiter {
	return &RateLimiter{
		store:   store,
		ceiling: ceiling,
		now:     time.Now,
	}
}

// SetClock replaces the limiter's clock. Test helper.
func (l *RateLimiter) SetClock(now func() time.Time) {
	l.now = now
}

// Check consumes one event slot for the identity if the window permits it.
//
// The count read and increment run as one serialized read-modify-write so
// concurrent requests cannot sneak past the ceiling. The counter is created
// with a one-hour TTL; the store expires it on its own.
func (l *RateLimiter) Check(ctx context.Context, identity string) (RateLimitResult, error) {
	key := RateLimitKey(identity, HourKey(l.now()))

	var count int64
	err := l.store.Update(ctx, key, RateLimitTTL, func(current []byte) ([]byte, error) {
		count = 0
		if current != nil {
			parsed, err := strconv.ParseInt(string(current), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("corrupt rate limit counter %q: %w", key, err)
			}
			count = parsed
		}
		if count >= int64(l.ceiling) {
			return nil, errLimitExceeded
		}
		return []byte(strconv.FormatInt(count+1, 10)), nil
	})

	if errors.Is(err, errLimitExceeded) {
		return RateLimitResult{Allowed: false, Remaining: 0}, nil
	}
	if err != nil {
		return RateLimitResult{}, fmt.Errorf("check rate limit: %w", err)
	}

	return RateLimitResult{
		Allowed:   true,
		Remaining: l.ceiling - int(count) - 1,
	}, nil
}

// errLimitExceeded aborts the counter update without an error surfacing to
// the caller; rejection is a normal outcome, not a failure.
var errLimitExceeded = errors.New("rate limit ceiling reached")
