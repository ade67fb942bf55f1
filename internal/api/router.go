// Tiggy Advisor - Conversational Course Recommendation Engine
// Copyright 2026 Tiggy Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tiggyapp/advisor

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tiggyapp/advisor/internal/config"
)

// NewRouter assembles the full HTTP handler tree.
func NewRouter(cfg config.ServerConfig, handler *Handler) http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to all routes in order.
	r.Use(requestIDMiddleware)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	// Health endpoints: no rate limit so probes never get throttled.
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Get("/live", handler.HealthLive)
		r.Get("/ready", handler.HealthReady)
	})

	// Data endpoints.
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httprate.LimitByIP(cfg.RateLimitPerMinute, time.Minute))
		r.Use(metricsMiddleware)
		r.Use(accessLogMiddleware)

		r.Get("/recommendations/courses", handler.RecommendCourses)

		r.Route("/chat", func(r chi.Router) {
			r.Post("/send-message", handler.SendMessage)
		})
		r.Route("/chats", func(r chi.Router) {
			r.Post("/", handler.CreateChat)
			r.Get("/", handler.ListChats)
			r.Get("/{chatID}", handler.GetChat)
			r.Delete("/{chatID}", handler.DeleteChat)
		})
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
