package chi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/birdmatch/internal/metrics"
)

// RouterConfig selects the optional middlewares. Nil limiters disable rate limiting.
type RouterConfig struct {
	APIKeys       []string
	Limiter       *RateLimiter
	SearchLimiter *RateLimiter
	// TrustProxy takes the client IP from X-Forwarded-For / X-Real-IP.
	TrustProxy bool
}

// NewRouter mounts the API routes and middleware chain.
func NewRouter(s *Server, cfg RouterConfig, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(JSONRecoverer(logger))
	if cfg.TrustProxy {
		r.Use(chiMiddleware.RealIP)
	}
	r.Use(chiMiddleware.RequestID)
	r.Use(WideEventMiddleware(logger))
	r.Use(metrics.Middleware())
	r.Use(BearerAuthMiddleware(cfg.APIKeys))
	r.Use(cfg.Limiter.Middleware)

	r.NotFound(s.NotFound)
	r.MethodNotAllowed(s.MethodNotAllowed)

	r.Get("/health", s.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.With(cfg.SearchLimiter.Middleware).Post("/search", s.Search)
		r.Get("/search", s.SearchMethodNotAllowed)
		r.Get("/species/{id}", s.GetSpecies)
		r.Get("/taxonomy", s.GetTaxonomy)
	})

	return r
}
