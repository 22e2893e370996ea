// Package server implements the HTTP transport layer for the CEP tracker.
package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	ceptracker "github.com/eugener/ceptracker/internal"
	"github.com/eugener/ceptracker/internal/telemetry"
)

// ReadyChecker reports whether the system is ready to serve traffic.
type ReadyChecker func(ctx context.Context) error

// Resolver runs the CEP resolution pipeline.
type Resolver interface {
	Resolve(ctx context.Context, cep string, meta ceptracker.CallerMeta) (*ceptracker.Address, error)
}

// AuditQuerier answers reporting queries over the audit trail.
type AuditQuerier interface {
	List(ctx context.Context, f ceptracker.AuditFilter) ([]ceptracker.AuditEntry, int, error)
	Get(ctx context.Context, id int64) (*ceptracker.AuditEntry, error)
	Stats(ctx context.Context) (*ceptracker.AuditStats, error)
}

// Cache is the maintenance surface of the resolution cache.
type Cache interface {
	Delete(ctx context.Context, key string) error
	Purge(ctx context.Context) error
}

// Deps holds all dependencies for the HTTP server.
type Deps struct {
	Resolver       Resolver
	Audit          AuditQuerier
	Cache          Cache              // nil = cache admin routes return 501
	ReadyCheck     ReadyChecker       // nil = always ready (for tests)
	Metrics        *telemetry.Metrics // nil = no request metrics
	MetricsHandler http.Handler       // nil = /metrics not mounted
}

// New creates an http.Handler with all routes and middleware wired.
func New(deps Deps) http.Handler {
	s := &server{deps: deps}

	r := chi.NewRouter()

	// Global middleware
	r.Use(s.recovery)
	r.Use(s.requestID)
	r.Use(s.logging)
	if deps.Metrics != nil {
		r.Use(metricsMiddleware(deps.Metrics))
	}

	// System endpoints
	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/cep/{cep}", s.handleGetCEP)

		r.Route("/audit", func(r chi.Router) {
			r.Get("/logs", s.handleListAudit)
			r.Get("/logs/cep/{cep}", s.handleListAuditByCEP)
			r.Get("/logs/{id}", s.handleGetAudit)
			r.Get("/stats", s.handleAuditStats)
		})
	})

	r.Route("/admin/v1/cache", func(r chi.Router) {
		r.Delete("/", s.handleCachePurge)
		r.Delete("/{cep}", s.handleCacheEvict)
	})

	return r
}

type server struct {
	deps Deps
}
