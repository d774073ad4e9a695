// CourseCompass - Course Discovery Platform Usage Metrics
// Copyright 2026 CourseCompass Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coursecompass/coursecompass

package api

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/coursecompass/coursecompass/internal/logging"
)

// RequireBearer guards a route subtree with a shared bearer secret. An
// empty configured secret fails closed: every request is rejected rather
// than letting a misconfigured deployment run an open admin surface.
func RequireBearer(secret, surface string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := NewResponseWriter(w, r)

			if secret == "" {
				logging.Ctx(r.Context()).Error().
					Str("surface", surface).
					Msg("Admin request rejected, no secret configured")
				rw.Unauthorized("Endpoint not configured")
				return
			}

			token, ok := bearerToken(r)
			if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
				logging.Ctx(r.Context()).Warn().
					Str("surface", surface).
					Str("remote", r.RemoteAddr).
					Msg("Admin request with missing or invalid credentials")
				rw.Unauthorized("Invalid or missing credentials")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// bearerToken extracts the token from an Authorization: Bearer header.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return header[len(prefix):], true
}
