// Package api serves the document pipeline over HTTP.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dgallion1/tracedeck/internal/config"
	"github.com/dgallion1/tracedeck/internal/pipeline"
	"github.com/dgallion1/tracedeck/internal/stats"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP API server for tracedeck.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	stats        *stats.Tracker
	log          *slog.Logger
	cfg          config.Config
	started      time.Time
}

// NewServer creates and configures the HTTP server. st may be nil, in which
// case /api/stats reports 503.
func NewServer(orch *pipeline.Orchestrator, st *stats.Tracker, log *slog.Logger, cfg config.Config) *Server {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	s := &Server{
		orchestrator: orch,
		stats:        st,
		log:          log,
		cfg:          cfg,
		started:      time.Now(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)
	r.Get("/api/formats", s.handleFormats)

	r.Group(func(r chi.Router) {
		if s.cfg.APIKey != "" {
			r.Use(AuthMiddleware(s.cfg.APIKey, s.log))
		}

		r.Post("/api/process", s.handleProcess)
		r.Post("/api/jobs", s.handleSubmitJob)
		r.Get("/api/jobs/{jobID}", s.handleJobStatus)
		r.Get("/api/stats", s.handleStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"uptime_seconds": int64(time.Since(s.started).Seconds()),
		"queue_depth":    s.orchestrator.QueueDepth(),
	})
}
