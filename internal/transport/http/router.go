// Package httptransport composes the public HTTP surface: shared middleware,
// operational endpoints and the gated resource routes.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"pawnshop/internal/access"
	categoryhandler "pawnshop/internal/category/handler"
	clienthandler "pawnshop/internal/client/handler"
	pawnhandler "pawnshop/internal/pawn/handler"
	"pawnshop/internal/platform/metrics"
	"pawnshop/internal/platform/middleware"
	dErrors "pawnshop/pkg/domain-errors"
	"pawnshop/pkg/platform/httputil"
	"pawnshop/pkg/platform/middleware/metadata"
	"pawnshop/pkg/platform/middleware/requesttime"
)

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Config carries everything the router mounts. Metrics and Checks are optional.
type Config struct {
	Logger     *slog.Logger
	Gate       *access.Gate
	Metrics    *metrics.Metrics
	Checks     map[string]HealthCheck
	Clients    *clienthandler.Handler
	Categories *categoryhandler.Handler
	Pawns      *pawnhandler.Handler
}

// NewRouter wires the middleware chain and every endpoint. Resource routes
// sit behind the gate; /health and /metrics do not.
func NewRouter(cfg Config) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(metadata.ClientMetadata)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(requesttime.Middleware)
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "Route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusMethodNotAllowed, httputil.Envelope{Message: "Method not allowed"})
	})
	r.Get("/health", healthHandler(cfg.Checks))

	r.Group(func(protected chi.Router) {
		protected.Use(cfg.Gate.RequireAuth)
		cfg.Clients.Register(protected, cfg.Gate)
		cfg.Categories.Register(protected, cfg.Gate)
		cfg.Pawns.Register(protected, cfg.Gate)
	})
	return r
}

type healthStatus struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		status := healthStatus{Status: "ok", Checks: make(map[string]string, len(names))}
		for _, name := range names {
			if err := checks[name](r.Context()); err != nil {
				status.Status = "unavailable"
				status.Checks[name] = err.Error()
				continue
			}
			status.Checks[name] = "ok"
		}
		if status.Status != "ok" {
			httputil.WriteJSON(w, http.StatusServiceUnavailable, httputil.Envelope{Data: status, Message: "Service unavailable"})
			return
		}
		httputil.WriteData(w, http.StatusOK, status)
	}
}
