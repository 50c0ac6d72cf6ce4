// Package api exposes the history routes and the retrospective pipeline over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/robinyoon-dev/repo-spect/internal/orchestrator"
)

// Runner runs the retrospective pipeline. *orchestrator.Pipeline satisfies it.
type Runner interface {
	Run(ctx context.Context, repoURL string) (*orchestrator.Result, error)
}

// Options configures the router
type Options struct {
	// AllowedOrigins for CORS; empty allows any origin
	AllowedOrigins []string

	// Timeout bounds each request, generation included; 0 disables it
	Timeout time.Duration

	// SlowRequest marks slower requests at warn level in the access log
	SlowRequest time.Duration
}

type handler struct {
	source   orchestrator.HistorySource
	pipeline Runner
	validate *validator.Validate
}

// NewRouter mounts the API routes on a chi mux.
func NewRouter(source orchestrator.HistorySource, pipeline Runner, opt Options) http.Handler {
	h := &handler{
		source:   source,
		pipeline: pipeline,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(requestID)
	r.Use(accessLog(opt.SlowRequest))
	r.Use(chimw.Recoverer)
	r.Use(corsHandler(opt.AllowedOrigins))
	if opt.Timeout > 0 {
		r.Use(chimw.Timeout(opt.Timeout))
	}
	r.Use(chimw.Heartbeat("/healthz"))

	r.Route("/api", func(r chi.Router) {
		r.Get("/commits", h.commits)
		r.Get("/issues", h.issues)
		r.Post("/generate", h.generate)
	})

	return r
}
