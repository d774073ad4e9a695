// CourseCompass - Course Discovery Platform Usage Metrics
// Copyright 2026 CourseCompass Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coursecompass/coursecompass

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/coursecompass/coursecompass/internal/middleware"
)

// RouterConfig holds the transport-level policy for the router.
type RouterConfig struct {
	CORSOrigins []string

	// CronSecret authorizes the aggregation trigger; AdminToken the rest
	// of the admin surface.
	CronSecret string
	AdminToken string
}

// NewRouter assembles the chi router with the full middleware stack and
// route tree.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         86400,
	}))
	r.Use(middleware.Prometheus)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/track/visitor", h.TrackVisitor)
		r.Post("/track/assessment", h.TrackAssessment)
		r.Get("/metrics", h.Metrics)
		r.Get("/health", h.Health)

		r.Route("/admin", func(r chi.Router) {
			// Transport-level brake on top of bearer auth; the admin
			// surface has no business seeing sustained traffic.
			r.Use(httprate.LimitByIP(30, time.Minute))

			r.Group(func(r chi.Router) {
				r.Use(RequireBearer(cfg.CronSecret, "aggregate"))
				r.Post("/aggregate", h.Aggregate)
			})
			r.Group(func(r chi.Router) {
				r.Use(RequireBearer(cfg.AdminToken, "admin"))
				r.Get("/debug-metrics", h.DebugMetrics)
				r.Post("/set-baseline", h.SetBaseline)
				r.Post("/sync-from-source", h.SyncFromSource)
			})
		})
	})

	// Scrape endpoint, distinct from the public metrics payload.
	r.Handle("/metrics/prometheus", promhttp.Handler())

	return r
}
