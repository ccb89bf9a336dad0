package handler

import (
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"roomtoken/internal/pkg/logx"
	"roomtoken/internal/pkg/metrics"
)

// Router builds the public API: global middleware, the token endpoints and, when a
// PoW manager is configured, the challenge endpoints.
func Router(deps *AppDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(corsHandler(deps.Config.AllowedOrigins))

	r.Use(middleware.RequestID)
	if deps.Config.TrustProxyHeaders {
		r.Use(middleware.RealIP)
	}
	r.Use(logx.RequestLogger())
	r.Use(Recoverer)

	if deps.MeterProvider != nil {
		r.Use(metrics.HTTPMiddleware(deps.MeterProvider, deps.Config.MetricsNamespace))
	}

	r.Get("/", HandleHealth(deps))
	r.Get("/health", HandleHealth(deps))

	var issue http.Handler = HandleIssueToken(deps)
	if deps.PoW != nil {
		issue = deps.PoW.Middleware(issue)
	}
	if deps.TokenLimiter != nil {
		issue = deps.TokenLimiter.Middleware(issue)
	}
	r.Method(http.MethodPost, "/token", issue)
	r.Post("/validate", HandleValidateToken(deps))

	if deps.PoW != nil {
		r.Route("/pow", func(p chi.Router) {
			p.Get("/challenge", HandlePowChallenge(deps))
			p.Post("/verify", HandlePowVerify(deps))
		})
	}

	return r
}

// corsHandler allows cross-origin requests from origins only. An empty list allows
// none; rs/cors would otherwise treat it as allow-all. Credentials are never allowed
// together with the "*" wildcard.
func corsHandler(origins []string) func(http.Handler) http.Handler {
	opts := cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-PoW-Token"},
		AllowCredentials: len(origins) > 0 && !slices.Contains(origins, "*"),
		MaxAge:           300,
	}
	if len(origins) == 0 {
		opts.AllowOriginFunc = func(string) bool { return false }
	}
	return cors.New(opts).Handler
}

// MetricsRouter serves the Prometheus endpoint on its own listener.
func MetricsRouter(provider *metrics.Provider) http.Handler {
	r := chi.NewRouter()
	r.Use(Recoverer)
	r.Method(http.MethodGet, "/metrics", provider.Handler())
	return r
}
