package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/eldtechnologies/roomrelay/internal/api/middleware"
	"github.com/eldtechnologies/roomrelay/internal/handlers"
)

// maxBodyBytes fits an SDP offer with many media sections.
const maxBodyBytes = 64 * 1024

// Options configures optional router features.
type Options struct {
	// RateLimitClient enables Redis-backed rate limiting when non-nil.
	RateLimitClient *redis.Client
	RateLimit       middleware.RateLimiterConfig
}

// NewRouter creates and configures the HTTP router.
func NewRouter(logger zerolog.Logger, h *handlers.Handler, opts Options) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware (first to capture all requests)
	r.Use(middleware.Metrics)

	// CORS - allow all origins (browser peers call from anywhere). Preflights
	// are answered here, before any other processing.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:       []string{"*"},
		AllowedMethods:       []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:       []string{"Content-Type"},
		ExposedHeaders:       []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials:     false,
		MaxAge:               86400,
		OptionsSuccessStatus: http.StatusNoContent,
	}))

	// Security middleware (order matters!)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.MaxBodySize(maxBodyBytes))
	r.Use(middleware.ValidateRequest)

	// Standard middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)

	if opts.RateLimitClient != nil {
		limiter := middleware.NewRateLimiter(opts.RateLimitClient, logger, opts.RateLimit)
		r.Use(limiter.Middleware)
	}

	// Metrics endpoint (for Prometheus scraping)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/health", h.Health)
	r.Get("/api", h.Root)

	// Signaling mailbox. The root path serves older single-endpoint clients.
	r.Post("/", h.PostSignal)
	r.Get("/", h.GetSignals)
	r.Post("/signal", h.PostSignal)
	r.Get("/signal", h.GetSignals)

	// Media broker pass-through
	r.Route("/relay/sessions", func(r chi.Router) {
		r.Post("/", h.CreateSession)
		r.Put("/{id}", h.Renegotiate)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		h.Error(w, http.StatusNotFound, "Not found")
	})

	return r
}
