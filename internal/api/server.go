// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package api serves the operational HTTP surface of the daemon: probes,
// read access to conditions and videos, and on-demand syncs.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/vcollect/internal/api/middleware"
	"github.com/ManuGH/vcollect/internal/apiresult"
	"github.com/ManuGH/vcollect/internal/collector"
	"github.com/ManuGH/vcollect/internal/condition"
	"github.com/ManuGH/vcollect/internal/store"
	"github.com/ManuGH/vcollect/internal/youtube"
)

// ConditionStore reads and creates conditions.
type ConditionStore interface {
	CreateCondition(ctx context.Context, c condition.Condition) (condition.Condition, error)
	GetCondition(ctx context.Context, id int64) (condition.Condition, error)
	ListConditions(ctx context.Context, f store.ConditionFilter) ([]condition.Condition, error)
	SetConditionStatus(ctx context.Context, id int64, status condition.Status) error
}

// VideoStore reads collected videos.
type VideoStore interface {
	ListVideos(ctx context.Context, offset, limit int) ([]store.Video, error)
	CountVideos(ctx context.Context) (int, error)
}

// Syncer runs and previews condition syncs.
type Syncer interface {
	SyncCondition(ctx context.Context, id int64, trigger collector.Trigger) (*collector.SyncResult, error)
	Preview(ctx context.Context, id int64) (*collector.PreviewResult, error)
}

// ChannelSyncer refreshes channel metadata.
type ChannelSyncer interface {
	SyncAll(ctx context.Context) *apiresult.Result[store.Channel]
}

// ChannelDetails looks up remote channel metadata.
type ChannelDetails interface {
	FetchDetails(ctx context.Context, ids []string) ([]youtube.ChannelDetail, error)
}

// Probes serves liveness and readiness.
type Probes interface {
	ServeHealth(w http.ResponseWriter, r *http.Request)
	ServeReady(w http.ResponseWriter, r *http.Request)
}

// Deps are the collaborators of the server.
type Deps struct {
	Conditions ConditionStore
	Videos     VideoStore
	Syncer     Syncer
	Channels   ChannelSyncer
	Details    ChannelDetails // optional, adds channel titles to condition views
	Probes     Probes
}

// Config tunes the HTTP stack.
type Config struct {
	RateLimit      int    // requests per minute and client IP, 0 disables
	TracingService string // empty disables tracing
}

// Server is the ops API.
type Server struct {
	cfg  Config
	deps Deps
}

// New creates a server.
func New(cfg Config, deps Deps) *Server {
	return &Server{cfg: cfg, deps: deps}
}

// Handler returns the routed handler with the middleware stack applied.
func (s *Server) Handler() http.Handler {
	r := middleware.NewRouter(middleware.StackConfig{
		EnableMetrics:  true,
		TracingService: s.cfg.TracingService,
		EnableLogging:  true,
		RateLimit:      s.cfg.RateLimit,
	})

	if s.deps.Probes != nil {
		r.Get("/healthz", s.deps.Probes.ServeHealth)
		r.Get("/readyz", s.deps.Probes.ServeReady)
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/conditions", func(r chi.Router) {
			r.Get("/", s.handleListConditions)
			r.Post("/", s.handleCreateCondition)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetCondition)
				r.Put("/status", s.handleSetConditionStatus)
				r.Post("/sync", s.handleSyncCondition)
				r.Get("/preview", s.handlePreviewCondition)
			})
		})
		r.Get("/videos", s.handleListVideos)
		r.Post("/channels/sync", s.handleSyncChannels)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeProblem(w, r, http.StatusNotFound, "not_found", "no such route")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeProblem(w, r, http.StatusMethodNotAllowed, "method_not_allowed", r.Method+" is not allowed here")
	})
	return r
}
