// CourseCompass - Course Discovery Platform Usage Metrics
// Copyright 2026 CourseCompass Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coursecompass/coursecompass

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/coursecompass/coursecompass/internal/content"
	"github.com/coursecompass/coursecompass/internal/kv"
	"github.com/coursecompass/coursecompass/internal/logging"
	"github.com/coursecompass/coursecompass/internal/usage"
)

// Handler carries the domain collaborators for all endpoints.
type Handler struct {
	tracker    *usage.Tracker
	reader     *usage.Reader
	counters   *usage.CounterStore
	aggregator *usage.Aggregator
	reconciler *usage.Reconciler
	store      kv.Store
	content    *content.Store
	now        func() time.Time
}

// HandlerConfig bundles the collaborators for NewHandler. Content may be
// nil when no content database is configured.
type HandlerConfig struct {
	Tracker    *usage.Tracker
	Reader     *usage.Reader
	Counters   *usage.CounterStore
	Aggregator *usage.Aggregator
	Reconciler *usage.Reconciler
	Store      kv.Store
	Content    *content.Store
}

// NewHandler creates the endpoint handler set.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{
		tracker:    cfg.Tracker,
		reader:     cfg.Reader,
		counters:   cfg.Counters,
		aggregator: cfg.Aggregator,
		reconciler: cfg.Reconciler,
		store:      cfg.Store,
		content:    cfg.Content,
		now:        time.Now,
	}
}

// SetClock replaces the handler's clock. Test helper; the domain
// collaborators keep their own clocks.
func (h *Handler) SetClock(now func() time.Time) {
	h.now = now
}

// trackResponse is the payload for both tracking endpoints.
type trackResponse struct {
	AlreadyCounted bool `json:"alreadyCounted"`
}

// TrackVisitor handles POST /api/v1/track/visitor.
func (h *Handler) TrackVisitor(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	identity := usage.IdentityFromRequest(r)

	result, err := h.tracker.TrackVisitor(r.Context(), identity)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Visitor tracking failed")
		rw.InternalError("Failed to track visit")
		return
	}
	if result.Limited {
		rw.TooManyRequests("Rate limit exceeded", result.RetryAfter)
		return
	}
	rw.Success(trackResponse{AlreadyCounted: result.AlreadyCounted})
}

// TrackAssessment handles POST /api/v1/track/assessment.
func (h *Handler) TrackAssessment(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req TrackAssessmentRequest
	if err := decodeBody(r, &req); err != nil {
		rw.BadRequest("Invalid JSON body")
		return
	}
	if verr := validateRequest(&req); verr != nil {
		apiErr := verr.ToAPIError()
		rw.ValidationError(apiErr.Message, apiErr.Details)
		return
	}

	completedAt, err := req.CompletedAtTime()
	if err != nil {
		rw.BadRequest("completedAt must be a valid RFC3339 timestamp")
		return
	}
	if !usage.WithinFreshnessWindow(completedAt, h.now()) {
		rw.BadRequest("completedAt must be within the last 5 minutes")
		return
	}

	identity := usage.IdentityFromRequest(r)
	result, err := h.tracker.TrackAssessment(r.Context(), identity, req.AssessmentID)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Assessment tracking failed")
		rw.InternalError("Failed to track assessment")
		return
	}
	if result.Limited {
		rw.TooManyRequests("Rate limit exceeded", result.RetryAfter)
		return
	}
	rw.Success(trackResponse{AlreadyCounted: result.AlreadyCounted})
}

// Metrics handles GET /api/v1/metrics. The read never fails; cache headers
// keep edge copies from straddling an hour-boundary snapshot.
func (h *Handler) Metrics(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	payload := h.reader.Read(r.Context())
	rw.CachedSuccess(payload, h.reader.CacheMaxAge(h.now()))
}

// healthResponse is the payload of GET /api/v1/health.
type healthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components"`
}

// Health handles GET /api/v1/health. The key-value store is required;
// the content database is optional and only degrades the status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	components := map[string]string{}
	healthy := true

	if err := h.checkStore(r.Context()); err != nil {
		components["kv"] = "unreachable"
		healthy = false
	} else {
		components["kv"] = "ok"
	}

	if h.content != nil {
		if err := h.content.Ping(r.Context()); err != nil {
			components["content"] = "unreachable"
		} else {
			components["content"] = "ok"
		}
	} else {
		components["content"] = "disabled"
	}

	if !healthy {
		rw.w.Header().Set("Cache-Control", "no-store")
		rw.writeJSON(http.StatusServiceUnavailable, APIResponse{
			Success: false,
			Data:    healthResponse{Status: "unhealthy", Components: components},
			Meta:    rw.meta(),
		})
		return
	}
	rw.Success(healthResponse{Status: "ok", Components: components})
}

// checkStore verifies the key-value store answers reads. A missing key is
// a healthy answer.
func (h *Handler) checkStore(ctx context.Context) error {
	_, err := h.store.Get(ctx, usage.CurrentMetricsKey)
	if errors.Is(err, kv.ErrKeyNotFound) {
		return nil
	}
	return err
}

// Aggregate handles POST /api/v1/admin/aggregate, the scheduler-triggered
// snapshot run.
func (h *Handler) Aggregate(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	result, err := h.aggregator.Run(r.Context())
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Aggregation run failed")
		rw.InternalError("Aggregation failed")
		return
	}
	rw.Success(result)
}

// debugMetricsResponse is the payload of GET /api/v1/admin/debug-metrics.
type debugMetricsResponse struct {
	Exists  bool                  `json:"exists"`
	Metrics *usage.CurrentMetrics `json:"metrics,omitempty"`
	Content string                `json:"content"`
}

// DebugMetrics handles GET /api/v1/admin/debug-metrics: the raw counter
// record without fallbacks, for operators chasing drift.
func (h *Handler) DebugMetrics(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	metrics, found, err := h.counters.ReadCurrent(r.Context())
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Debug metrics read failed")
		rw.InternalError("Failed to read metrics record")
		return
	}

	resp := debugMetricsResponse{Exists: found, Content: "disabled"}
	if found {
		resp.Metrics = &metrics
	}
	if h.content != nil {
		resp.Content = "ok"
		if err := h.content.Ping(r.Context()); err != nil {
			resp.Content = "unreachable"
		}
	}
	rw.Success(resp)
}

// SetBaseline handles POST /api/v1/admin/set-baseline.
func (h *Handler) SetBaseline(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req SetBaselineRequest
	if err := decodeBody(r, &req); err != nil {
		rw.BadRequest("Invalid JSON body")
		return
	}
	if verr := validateRequest(&req); verr != nil {
		apiErr := verr.ToAPIError()
		rw.ValidationError(apiErr.Message, apiErr.Details)
		return
	}

	result, err := h.reconciler.SetBaseline(r.Context(), *req.TotalAssessments)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Baseline update failed")
		rw.InternalError("Failed to set baseline")
		return
	}
	rw.Success(result)
}

// SyncFromSource handles POST /api/v1/admin/sync-from-source.
func (h *Handler) SyncFromSource(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	result, err := h.reconciler.SyncFromSource(r.Context())
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Source sync failed")
		if errors.Is(err, content.ErrUnavailable) {
			rw.ServiceUnavailable("Content database unavailable")
			return
		}
		rw.InternalError("Failed to sync from source")
		return
	}
	rw.Success(result)
}
