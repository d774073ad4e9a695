// CourseCompass - Course Discovery Platform Usage Metrics
// Copyright 2026 CourseCompass Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coursecompass/coursecompass

package api

import (
	"fmt"
	"net/http"
	"time"

	json "github.com/goccy/go-json"

	"github.com/coursecompass/coursecompass/internal/validation"
)

// maxBodyBytes bounds request bodies; every payload this API accepts is a
// handful of fields.
const maxBodyBytes = 4 << 10

// TrackAssessmentRequest is the body of POST /api/v1/track/assessment.
type TrackAssessmentRequest struct {
	// CompletedAt is when the client finished the assessment, RFC3339.
	CompletedAt string `json:"completedAt" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`

	// AssessmentID optionally identifies the assessment for cross-client
	// deduplication.
	AssessmentID string `json:"assessmentId" validate:"omitempty,max=128"`
}

// CompletedAtTime parses the validated timestamp.
func (r *TrackAssessmentRequest) CompletedAtTime() (time.Time, error) {
	return time.Parse(time.RFC3339, r.CompletedAt)
}

// SetBaselineRequest is the body of POST /api/v1/admin/set-baseline.
type SetBaselineRequest struct {
	// TotalAssessments is the authoritative assessment count to install.
	// A pointer so an explicit zero survives the required check.
	TotalAssessments *int64 `json:"totalAssessments" validate:"required,gte=0"`
}

// decodeBody reads and decodes a JSON request body into dst, rejecting
// unknown fields and oversized payloads.
func decodeBody(r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

// validateRequest runs struct validation, returning the API error to send
// or nil.
func validateRequest(v interface{}) *validation.RequestValidationError {
	return validation.ValidateStruct(v)
}
