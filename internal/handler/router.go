package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/alanjrogers/aws-s3/internal/repository"
)

// RequestIDHeader carries the per-request correlation ID.
const RequestIDHeader = "X-Request-Id"

// Router assembles the gateway's HTTP surface: health and metrics endpoints,
// the admin API, and the authenticated reverse proxy for everything else.
type Router struct {
	adminHandler   *AdminHandler
	proxyHandler   *ProxyHandler
	authMiddleware func(http.Handler) http.Handler
	metrics        *Metrics
	dbHealth       repository.DatabaseHealth
	logger         zerolog.Logger
}

// RouterConfig contains the dependencies for the router.
type RouterConfig struct {
	AdminHandler   *AdminHandler
	ProxyHandler   *ProxyHandler
	AuthMiddleware func(http.Handler) http.Handler
	Metrics        *Metrics
	DBHealth       repository.DatabaseHealth
	Logger         zerolog.Logger
}

// NewRouter creates a new Router.
func NewRouter(cfg RouterConfig) *Router {
	return &Router{
		adminHandler:   cfg.AdminHandler,
		proxyHandler:   cfg.ProxyHandler,
		authMiddleware: cfg.AuthMiddleware,
		metrics:        cfg.Metrics,
		dbHealth:       cfg.DBHealth,
		logger:         cfg.Logger.With().Str("component", "router").Logger(),
	}
}

// Handler returns the assembled HTTP handler.
func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(rt.requestLogger)
	r.Use(middleware.Recoverer)
	if rt.metrics != nil {
		r.Use(rt.metrics.Middleware)
	}

	r.Get("/health", rt.handleHealth)
	if rt.metrics != nil {
		r.Method(http.MethodGet, "/metrics", rt.metrics.Handler())
	}

	// Both the admin API and the proxy sit behind signature verification.
	// The middleware's skip list keeps /health and /metrics reachable.
	r.Group(func(r chi.Router) {
		r.Use(rt.authMiddleware)

		r.Route("/admin", rt.adminHandler.RegisterRoutes)

		// Everything else is signed S3 traffic bound for the upstream.
		r.Handle("/*", rt.proxyHandler)
	})

	return r
}

// handleHealth reports gateway and database health.
func (rt *Router) handleHealth(w http.ResponseWriter, r *http.Request) {
	if rt.dbHealth != nil {
		if err := rt.dbHealth.Ping(r.Context()); err != nil {
			rt.logger.Error().Err(err).Msg("database health check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status":   "unhealthy",
				"database": "unreachable",
			})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// requestID assigns a correlation ID to each request, honoring one supplied
// by the client.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
			r.Header.Set(RequestIDHeader, id)
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

// requestLogger logs each request with its outcome and latency.
func (rt *Router) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(recorder, r)

		rt.logger.Info().
			Str("request_id", r.Header.Get(RequestIDHeader)).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Str("remote_addr", r.RemoteAddr).
			Msg("request")
	})
}
