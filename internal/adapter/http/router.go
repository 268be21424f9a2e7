package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/iho/goposition/internal/adapter/http/handler"
	"github.com/iho/goposition/internal/adapter/http/middleware"
)

// RouterConfig holds dependencies for the ops router.
type RouterConfig struct {
	HealthHandler  *handler.HealthHandler
	BatchStatus    *handler.BatchStatus
	MetricsHandler http.Handler
	Logger         zerolog.Logger
}

// NewRouter creates the ops HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.MetricsHandler == nil {
		cfg.MetricsHandler = promhttp.Handler()
	}

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.RequestLogger(cfg.Logger))
	r.Use(middleware.Metrics)

	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)

	if cfg.BatchStatus != nil {
		r.Method(http.MethodGet, "/status", cfg.BatchStatus)
	}

	return r
}
