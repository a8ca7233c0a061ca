/**
 * @description
 * This file sets up the HTTP router for the generation-service using the
 * go-chi/chi router. It defines the API routes and applies middleware for
 * logging, CORS, authentication, and per-user rate limiting.
 */
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterConfig carries everything the router needs beyond the handlers.
type RouterConfig struct {
	Auth            AuthConfig
	Limiter         RequestLimiter
	RateLimit       int
	RateLimitWindow time.Duration
	Logger          *slog.Logger
}

// NewRouter creates a new Chi router and registers the generation routes.
func NewRouter(h *Handler, cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Setup middleware. The generous timeout covers slow video renders.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Generation service is healthy"))
	})

	// Protected routes that require authentication
	r.Group(func(r chi.Router) {
		r.Use(ClerkAuthMiddleware(cfg.Auth))
		r.Use(RateLimitMiddleware(cfg.Limiter, cfg.RateLimit, cfg.RateLimitWindow, cfg.Logger))

		r.Get("/api/limit", h.handleGetLimit)
		r.Post("/api/chat", h.handleChat)
		r.Post("/api/code", h.handleCode)
		r.Post("/api/image", h.handleImage)
		r.Post("/api/music", h.handleMusic)
		r.Post("/api/video", h.handleVideo)
	})

	return r
}
