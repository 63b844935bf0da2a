package main

import (
	"net/http"
	"time"

	"stock-scout/config"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter creates and configures a Chi router with all routes
func NewRouter(h *APIHandler, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(time.Duration(cfg.HTTP.RequestTimeoutSec) * time.Second))
	r.Use(corsMiddleware(cfg.HTTP.CORSAllowedOrigins))
	r.Use(metricsMiddleware)

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler())

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Health check
		r.Get("/health", h.handleHealth)

		// Conversational pipeline
		r.Post("/chat", h.handleChat)
		r.Get("/conversation", h.handleGetConversation)
		r.Get("/conversations", h.handleListConversations)

		// Direct screening
		r.Post("/screen", h.handleScreen)
		r.Post("/screen/spec", h.handleScreenSpec)
		r.Post("/parse", h.handleParse)

		// Snapshot management
		r.Get("/snapshot", h.handleGetSnapshot)
		r.Get("/snapshot/builds", h.handleGetSnapshotBuilds)
		r.Post("/refresh", h.handleRefresh)
	})

	return r
}

// corsMiddleware returns CORS middleware with the specified allowed origins
func corsMiddleware(allowedOrigins string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", allowedOrigins)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
