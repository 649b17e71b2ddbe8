// Package httptransport assembles the public HTTP surface.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"kycengine/internal/platform/metrics"
	"kycengine/pkg/platform/middleware/admin"
	"kycengine/pkg/platform/middleware/metadata"
	"kycengine/pkg/platform/middleware/requesttime"
)

// Registrar mounts a module's routes.
type Registrar interface {
	Register(r chi.Router)
}

// RouterConfig lists what the router serves. Nil fields are skipped.
type RouterConfig struct {
	Logger     *slog.Logger
	Metrics    *metrics.HTTP
	AdminToken string
	Catalog    CatalogRegistry
	Health     map[string]HealthCheck
	Modules    []Registrar
}

// NewRouter wires the middleware chain, module routes and operator endpoints.
// The handler stays thin: every route delegates to a service.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(metadata.RequestMetadata)
	r.Use(requesttime.Middleware)
	r.Use(cfg.Metrics.Middleware)

	r.Get("/healthz", healthHandler(cfg.Health, logger))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	if cfg.Catalog != nil {
		h := &catalogHandler{registry: cfg.Catalog, logger: logger}
		r.Get("/catalog", h.handleShow)
		r.With(admin.RequireAdminToken(cfg.AdminToken, logger)).Post("/catalog/reload", h.handleReload)
	}
	for _, m := range cfg.Modules {
		m.Register(r)
	}
	return r
}
