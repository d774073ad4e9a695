// CourseCompass - Course Discovery Platform Usage Metrics
// Copyright 2026 CourseCompass Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coursecompass/coursecompass

package usage

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHashIdentity(t *testing.T) {
	t.Run("stable for same inputs", func(t *testing.T) {
		a := HashIdentity("203.0.113.7", "Mozilla/5.0")
		b := HashIdentity("203.0.113.7", "Mozilla/5.0")
		if a != b {
			t.Errorf("same inputs produced different hashes: %q vs %q", a, b)
		}
	})

	t.Run("differs across inputs", func(t *testing.T) {
		a := HashIdentity("203.0.113.7", "Mozilla/5.0")
		b := HashIdentity("203.0.113.8", "Mozilla/5.0")
		c := HashIdentity("203.0.113.7", "curl/8.0")
		if a == b || a == c {
			t.Error("different inputs produced identical hashes")
		}
	})

	t.Run("is sha256 hex of addr colon agent", func(t *testing.T) {
		sum := sha256.Sum256([]byte("203.0.113.7:Mozilla/5.0"))
		want := hex.EncodeToString(sum[:])
		if got := HashIdentity("203.0.113.7", "Mozilla/5.0"); got != want {
			t.Errorf("HashIdentity = %q, want %q", got, want)
		}
	})

	t.Run("never exposes raw inputs", func(t *testing.T) {
		got := HashIdentity("203.0.113.7", "Mozilla/5.0")
		if strings.Contains(got, "203.0.113.7") || strings.Contains(got, "Mozilla") {
			t.Errorf("hash %q leaks an input", got)
		}
		if len(got) != 64 {
			t.Errorf("hash length = %d, want 64", len(got))
		}
	})

	t.Run("empty inputs use sentinels", func(t *testing.T) {
		sum := sha256.Sum256([]byte("anonymous:unknown"))
		want := hex.EncodeToString(sum[:])
		if got := HashIdentity("", ""); got != want {
			t.Errorf("HashIdentity(\"\", \"\") = %q, want %q", got, want)
		}
	})
}

func TestIdentityFromRequest(t *testing.T) {
	t.Run("prefers forwarded-for first hop", func(t *testing.T) {
		r := httptest.NewRequest("POST", "/", nil)
		r.RemoteAddr = "10.0.0.1:4567"
		r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.2")
		r.Header.Set("X-Real-IP", "10.0.0.3")
		r.Header.Set("User-Agent", "Mozilla/5.0")
		if got, want := IdentityFromRequest(r), HashIdentity("203.0.113.7", "Mozilla/5.0"); got != want {
			t.Errorf("identity = %q, want %q", got, want)
		}
	})

	t.Run("falls back to real-ip", func(t *testing.T) {
		r := httptest.NewRequest("POST", "/", nil)
		r.RemoteAddr = "10.0.0.1:4567"
		r.Header.Set("X-Real-IP", "203.0.113.9")
		r.Header.Set("User-Agent", "Mozilla/5.0")
		if got, want := IdentityFromRequest(r), HashIdentity("203.0.113.9", "Mozilla/5.0"); got != want {
			t.Errorf("identity = %q, want %q", got, want)
		}
	})

	t.Run("falls back to remote addr", func(t *testing.T) {
		r := httptest.NewRequest("POST", "/", nil)
		r.RemoteAddr = "10.0.0.1:4567"
		r.Header.Set("User-Agent", "Mozilla/5.0")
		if got, want := IdentityFromRequest(r), HashIdentity("10.0.0.1:4567", "Mozilla/5.0"); got != want {
			t.Errorf("identity = %q, want %q", got, want)
		}
	})
}
