// Curatarr - Media Recommendation Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/curatarr/internal/auth"
	"github.com/tomtom215/curatarr/internal/middleware"
)

// Router wires handlers to routes and middleware.
type Router struct {
	handler       *Handler
	middleware    *auth.Middleware
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a router. authMiddleware decides how /api/v1 routes
// are authenticated; health, login and /metrics are open.
func NewRouter(handler *Handler, authMiddleware *auth.Middleware, chiMw *ChiMiddleware) *Router {
	if chiMw == nil {
		chiMw = NewChiMiddleware(nil)
	}
	return &Router{
		handler:       handler,
		middleware:    authMiddleware,
		chiMiddleware: chiMw,
	}
}

// AuthDenied writes the 401 envelope for rejected requests. Pass it to
// auth.NewMiddleware.
func AuthDenied(w http.ResponseWriter, r *http.Request, message string) {
	NewResponseWriter(w, r).Unauthorized(message)
}

// SetupChi configures all HTTP routes.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	// Global middleware, in order
	r.Use(middleware.RequestID)
	r.Use(RequestLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(APISecurityHeaders())
	r.Use(router.chiMiddleware.CORS()) // global so OPTIONS preflights are answered

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		NewResponseWriter(w, req).NotFound("route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		NewResponseWriter(w, req).Error(http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitCustom(RateLimitHealth))
		r.Use(middleware.PrometheusMetrics)
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitCustom(RateLimitLogin))
		r.Use(middleware.PrometheusMetrics)
		r.Post("/login", router.handler.Login)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(middleware.PrometheusMetrics)
		r.Use(router.middleware.Authenticate)

		r.With(router.chiMiddleware.RateLimitCustom(RateLimitRuns)).Post("/runs", router.handler.TriggerRun)
		r.Get("/runs", router.handler.ListRuns)
		r.Get("/runs/status", router.handler.RunStatus)

		r.Route("/recommendations", func(r chi.Router) {
			r.Get("/", router.handler.ListRecommendations)
			r.Get("/{id}", router.handler.GetRecommendation)
			r.Put("/{id}/status", router.handler.UpdateRecommendationStatus)
			r.Post("/{id}/commit", router.handler.CommitRecommendation)
		})

		r.Route("/backups", func(r chi.Router) {
			r.Get("/", router.handler.ListBackups)
			r.With(router.chiMiddleware.RateLimitCustom(RateLimitBackups)).Post("/", router.handler.CreateBackup)
			r.With(router.chiMiddleware.RateLimitCustom(RateLimitBackups)).Post("/{id}/verify", router.handler.VerifyBackup)
		})

		r.Get("/logs", router.handler.ListLogs)
		r.Get("/ws", router.handler.WebSocket)
	})

	return r
}
