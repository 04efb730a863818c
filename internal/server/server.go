// Package server exposes a read-only HTTP API over a gokite process: the
// registered jobs, the application's schedules, stored dataset partitions,
// engine and scheduler health, and Prometheus metrics.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/me/gokite/internal/dataset"
	"github.com/me/gokite/internal/engine"
	"github.com/me/gokite/internal/job"
	"github.com/me/gokite/internal/metrics"
	"github.com/me/gokite/internal/schedule"
	"github.com/me/gokite/internal/scheduler"
)

// StatusReporter reports scheduler progress.
type StatusReporter interface {
	Status() scheduler.Status
}

// Server is the gokite status API server.
type Server struct {
	router    chi.Router
	logger    *slog.Logger
	startTime time.Time
	jobs      *job.Registry
	store     dataset.Store
	app       *schedule.Application // optional; nil when no application is loaded
	engine    *engine.Registry      // optional
	metrics   *metrics.Collector    // optional; /metrics is mounted only when set
	scheduler StatusReporter        // optional
}

// Option configures optional Server dependencies.
type Option func(*Server)

// WithApplication sets the application whose schedules are served.
func WithApplication(app *schedule.Application) Option {
	return func(s *Server) {
		s.app = app
	}
}

// WithEngine sets the engine registry reported by /health.
func WithEngine(reg *engine.Registry) Option {
	return func(s *Server) {
		s.engine = reg
	}
}

// WithMetrics mounts /metrics for c.
func WithMetrics(c *metrics.Collector) Option {
	return func(s *Server) {
		s.metrics = c
	}
}

// WithScheduler sets the scheduler reported by /health.
func WithScheduler(r StatusReporter) Option {
	return func(s *Server) {
		s.scheduler = r
	}
}

// New creates a new Server with all routes registered.
func New(jobs *job.Registry, st dataset.Store, logger *slog.Logger, opts ...Option) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		logger:    logger.With("component", "server"),
		startTime: time.Now(),
		jobs:      jobs,
		store:     st,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Handler returns the http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := s.router

	// Global middleware
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(withRequestID)
	r.Use(logRequests(s.logger))

	if s.metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", s.handleDiscovery)
		r.Get("/health", s.handleHealth)

		r.Route("/jobs", func(r chi.Router) {
			r.Get("/", s.handleListJobs)
			r.Get("/{name}", s.handleGetJob)
		})

		r.Route("/schedules", func(r chi.Router) {
			r.Get("/", s.handleListSchedules)
			r.Get("/{job}/resolve", s.handleResolveSchedule)
		})

		r.Route("/datasets/{dataset}", func(r chi.Router) {
			r.Get("/partitions", s.handleListPartitions)
		})
		r.Get("/records", s.handleReadRecords)
	})
}
