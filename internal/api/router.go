// Settlement - Order Settlement Core for the BazaarHQ Commerce Platform
// Copyright 2026 BazaarHQ Engineering
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bazaarhq/settlement

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bazaarhq/settlement/internal/auth"
	"github.com/bazaarhq/settlement/internal/config"
	"github.com/bazaarhq/settlement/internal/middleware"
)

// Router wires the API handlers onto a chi mux.
type Router struct {
	handler        *Handler
	authMiddleware *auth.Middleware
	security       *config.SecurityConfig
}

// NewRouter creates the router.
func NewRouter(handler *Handler, authMiddleware *auth.Middleware, security *config.SecurityConfig) *Router {
	return &Router{
		handler:        handler,
		authMiddleware: authMiddleware,
		security:       security,
	}
}

// Setup configures all routes and returns the root handler.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   router.security.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Customer-ID"},
		AllowCredentials: false,
		MaxAge:           86400,
	}))

	// Health and metrics are unauthenticated and use a permissive rate
	// limit so monitoring stays cheap.
	r.Group(func(r chi.Router) {
		r.Use(httprate.LimitByIP(1000, time.Minute))
		r.Get("/api/v1/health", router.handler.Health)
		r.Handle("/metrics", promhttp.Handler())
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.rateLimit())
		r.Use(middleware.PrometheusMetrics)
		r.Use(router.authMiddleware.Authenticate)

		r.Post("/checkout", router.handler.Checkout)
		r.Post("/checkout/verify", router.handler.VerifyCheckout)

		r.Get("/orders", router.handler.ListOrders)
		r.Get("/orders/{id}", router.handler.GetOrder)
		r.Post("/orders/{id}/cancel", router.handler.CancelOrder)

		r.Get("/ws", router.handler.WebSocket)

		// Privileged operations.
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(auth.RoleAdmin))
			r.Put("/orders/{id}/status", router.handler.UpdateOrderStatus)
			r.Post("/admin/reconcile", router.handler.Reconcile)
		})
	})

	return r
}

// rateLimit builds the per-IP limiter from config; a non-positive request
// count disables limiting.
func (router *Router) rateLimit() func(http.Handler) http.Handler {
	reqs := router.security.RateLimitReqs
	window := router.security.RateLimitWindow
	if reqs <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if window <= 0 {
		window = time.Minute
	}
	return httprate.LimitByIP(reqs, window)
}
