// CourseCompass - Course Discovery Platform Usage Metrics
// Copyright 2026 CourseCompass Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coursecompass/coursecompass

package validation

import (
	"strings"
	"testing"
)

type trackAssessmentFixture struct {
	CompletedAt  string `validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	AssessmentID string `validate:"omitempty,max=128"`
}

func TestValidateStruct(t *testing.T) {
	t.Run("valid struct passes", func(t *testing.T) {
		req := trackAssessmentFixture{CompletedAt: "2026-03-15T14:30:00Z", AssessmentID: "a-1"}
		if err := ValidateStruct(&req); err != nil {
			t.Errorf("ValidateStruct() = %v, want nil", err)
		}
	})

	t.Run("omitempty skips empty optional field", func(t *testing.T) {
		req := trackAssessmentFixture{CompletedAt: "2026-03-15T14:30:00Z"}
		if err := ValidateStruct(&req); err != nil {
			t.Errorf("ValidateStruct() = %v, want nil", err)
		}
	})

	t.Run("missing required field", func(t *testing.T) {
		err := ValidateStruct(&trackAssessmentFixture{})
		if err == nil {
			t.Fatal("ValidateStruct() = nil, want error")
		}
		if len(err.Errors()) != 1 {
			t.Fatalf("errors = %d, want 1", len(err.Errors()))
		}
		if got := err.Errors()[0]; got.Field() != "CompletedAt" || got.Tag() != "required" {
			t.Errorf("error = %s/%s, want CompletedAt/required", got.Field(), got.Tag())
		}
	})

	t.Run("malformed timestamp", func(t *testing.T) {
		err := ValidateStruct(&trackAssessmentFixture{CompletedAt: "yesterday"})
		if err == nil {
			t.Fatal("ValidateStruct() = nil, want error")
		}
		if !strings.Contains(err.Error(), "RFC3339") {
			t.Errorf("message %q should mention RFC3339", err.Error())
		}
	})

	t.Run("oversized optional field", func(t *testing.T) {
		req := trackAssessmentFixture{
			CompletedAt:  "2026-03-15T14:30:00Z",
			AssessmentID: strings.Repeat("x", 129),
		}
		err := ValidateStruct(&req)
		if err == nil {
			t.Fatal("ValidateStruct() = nil, want error")
		}
		if !strings.Contains(err.Error(), "at most 128 characters") {
			t.Errorf("message %q should mention the character limit", err.Error())
		}
	})
}

func TestToAPIError(t *testing.T) {
	t.Run("single failure", func(t *testing.T) {
		apiErr := ValidateStruct(&trackAssessmentFixture{}).ToAPIError()
		if apiErr.Code != "VALIDATION_ERROR" {
			t.Errorf("code = %q, want VALIDATION_ERROR", apiErr.Code)
		}
		if apiErr.Details["field"] != "CompletedAt" {
			t.Errorf("details field = %v, want CompletedAt", apiErr.Details["field"])
		}
	})

	t.Run("multiple failures listed", func(t *testing.T) {
		req := trackAssessmentFixture{
			CompletedAt:  "yesterday",
			AssessmentID: strings.Repeat("x", 129),
		}
		apiErr := ValidateStruct(&req).ToAPIError()
		fields, ok := apiErr.Details["fields"].([]map[string]interface{})
		if !ok {
			t.Fatalf("details fields missing: %v", apiErr.Details)
		}
		if len(fields) != 2 {
			t.Errorf("fields = %d, want 2", len(fields))
		}
	})
}
