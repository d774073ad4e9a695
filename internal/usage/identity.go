// CourseCompass - Course Discovery Platform Usage Metrics
// Copyright 2026 CourseCompass Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coursecompass/coursecompass

package usage

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
)

// Sentinel values used when a request carries no usable address or agent.
const (
	anonymousAddress = "anonymous"
	unknownAgent     = "unknown"
)

// HashIdentity derives the pseudonymous identity token from a client
// address and agent string: the SHA-256 hex digest of "addr:agent".
//
// The same input yields the same token within the dedup window, which is
// what makes deduplication work; the hash is one-way, so the raw address
// cannot be recovered, and neither input is ever persisted.
func HashIdentity(address, userAgent string) string {
	if address == "" {
		address = anonymousAddress
	}
	if userAgent == "" {
		userAgent = unknownAgent
	}
	sum := sha256.Sum256([]byte(address + ":" + userAgent))
	return hex.EncodeToString(sum[:])
}

// IdentityFromRequest extracts the client address and agent from an inbound
// request and returns the identity hash. The address preference order is
// X-Forwarded-For (first hop), X-Real-IP, then the direct connection
// address.
func IdentityFromRequest(r *http.Request) string {
	return HashIdentity(clientAddress(r), r.Header.Get("User-Agent"))
}

// clientAddress resolves the best available client network address.
func clientAddress(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		// The header may carry a proxy chain; the left-most entry is the
		// original client.
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			fwd = fwd[:i]
		}
		return strings.TrimSpace(fwd)
	}
	if real := r.Header.Get("X-Real-IP"); real != "" {
		return real
	}
	return r.RemoteAddr
}
