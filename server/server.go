// Package server exposes the orchestrator and documentation pipeline over
// HTTP.
package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hupe1980/docmesh/logging"
	"github.com/hupe1980/docmesh/orchestrator"
	"github.com/hupe1980/docmesh/runner"
)

// Options configures a Server.
type Options struct {
	// Pipeline serves POST /api/v1/documentation; nil disables the route.
	Pipeline *runner.Pipeline
	// Gatherer serves GET /metrics; nil selects prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer
	Logger   logging.Logger
	Version  string
}

// Server holds the HTTP routes and their dependencies.
type Server struct {
	orch     *orchestrator.Orchestrator
	pipeline *runner.Pipeline
	gatherer prometheus.Gatherer
	logger   logging.Logger
	version  string
	router   *mux.Router
}

// New creates a Server for orch.
func New(orch *orchestrator.Orchestrator, optFns ...func(o *Options)) *Server {
	opts := Options{Gatherer: prometheus.DefaultGatherer, Version: "dev"}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		orch:     orch,
		pipeline: opts.Pipeline,
		gatherer: opts.Gatherer,
		logger:   logging.OrNoOp(opts.Logger),
		version:  opts.Version,
		router:   mux.NewRouter(),
	}
	s.setupRoutes()
	return s
}

// Handler returns the configured router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.health).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/agents", s.listAgents).Methods(http.MethodGet)
	api.HandleFunc("/documentation", s.generateDocumentation).Methods(http.MethodPost)
	api.HandleFunc("/orchestrate", s.orchestrate).Methods(http.MethodPost)
	api.HandleFunc("/contexts/{id}", s.getContext).Methods(http.MethodGet)
	api.HandleFunc("/history", s.listHistory).Methods(http.MethodGet)

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.respondError(w, http.StatusNotFound, "not_found", "route not found", nil)
	})
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.respondError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed", nil)
	})

	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.recoveryMiddleware)
}
