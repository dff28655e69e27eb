// Package docmesh provides a high-level façade over the orchestrator, the
// documentation pipeline and their ambient services (history, metrics,
// tracing & logging). Most applications interact with this package by:
//  1. Creating a DocMesh via New() (optionally overriding in‑memory defaults)
//     or FromConfig() (building everything from a config.Config)
//  2. Registering agents (the documentation agents or custom ones)
//  3. Running the pipeline (Generate) or orchestrating plans directly
//
// The façade delegates scheduling to orchestrator.Orchestrator and pipeline
// runs to runner.Pipeline while keeping setup concise. All defaults are safe
// for local development and testing.
package docmesh

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	"github.com/hupe1980/docmesh/config"
	"github.com/hupe1980/docmesh/core"
	"github.com/hupe1980/docmesh/history"
	"github.com/hupe1980/docmesh/logging"
	"github.com/hupe1980/docmesh/metrics"
	"github.com/hupe1980/docmesh/orchestrator"
	"github.com/hupe1980/docmesh/runner"
	"github.com/hupe1980/docmesh/server"
	"github.com/hupe1980/docmesh/tracing"
)

// Version is the docmesh release version.
const Version = "0.1.0"

// Options configures the DocMesh instance.
type Options struct {
	// Orchestrator configuration (timeouts, fan-out, context retention)
	OrchestratorConfig orchestrator.Config

	// History records execution results (defaults to an in-memory store).
	History history.Store

	// Registerer receives the metrics collectors. Nil disables metrics.
	Registerer prometheus.Registerer

	// TracerProvider for orchestrator spans (defaults to the global provider).
	TracerProvider trace.TracerProvider

	// Listeners are notified of orchestration events after the metrics
	// collector.
	Listeners []core.Listener

	// Pipeline overrides for the documentation pipeline.
	Pipeline []func(o *runner.Options)

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// DocMesh is the high-level façade aggregating orchestrator and pipeline.
type DocMesh struct {
	opts     Options
	orch     *orchestrator.Orchestrator
	pipeline *runner.Pipeline
	metrics  *metrics.Collector
	closers  []func(ctx context.Context) error
}

// New creates a new DocMesh instance with optional overrides. Any unset
// service is initialized with an in-memory implementation.
func New(optFns ...func(o *Options)) *DocMesh {
	opts := Options{
		OrchestratorConfig: orchestrator.DefaultConfig,
		History:            history.NewInMemoryStore(history.DefaultCapacity),
		Logger:             logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	m := &DocMesh{opts: opts}

	var listeners []core.Listener
	if opts.Registerer != nil {
		m.metrics = metrics.NewCollector(opts.Registerer)
		listeners = append(listeners, m.metrics)
	}
	listeners = append(listeners, opts.Listeners...)

	m.orch = orchestrator.New(func(o *orchestrator.Options) {
		o.Config = opts.OrchestratorConfig
		o.History = opts.History
		o.Logger = opts.Logger
		o.Listeners = listeners
		o.TracerProvider = opts.TracerProvider
	})

	pipelineOpts := append([]func(o *runner.Options){func(o *runner.Options) { o.Logger = opts.Logger }}, opts.Pipeline...)
	m.pipeline = runner.New(m.orch, pipelineOpts...)
	return m
}

// FromConfig builds a DocMesh with the configured logger, tracing, history
// store, model and documentation agents. Close releases what it opened.
func FromConfig(ctx context.Context, cfg *config.Config, reg prometheus.Registerer) (*DocMesh, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	logger := logging.NewLogger(&logging.LoggerConfig{Level: level, Format: cfg.Log.Format, Output: os.Stderr, Component: "docmesh"})

	tp, shutdown, err := tracing.Setup(ctx, tracing.Config{
		Exporter:       cfg.Tracing.Exporter,
		ServiceName:    cfg.Tracing.ServiceName,
		ServiceVersion: Version,
		Writer:         os.Stderr,
	})
	if err != nil {
		return nil, err
	}
	closers := []func(context.Context) error{shutdown}

	store, err := runner.NewHistory(ctx, cfg.History)
	if err != nil {
		_ = shutdown(ctx)
		return nil, err
	}
	if rs, ok := store.(*history.RedisStore); ok {
		closers = append(closers, func(context.Context) error { return rs.Close() })
	}

	m := New(func(o *Options) {
		o.OrchestratorConfig = orchestrator.Config{
			CallTimeout:   cfg.Orchestrator.CallTimeout,
			MaxParallel:   cfg.Orchestrator.MaxParallel,
			MaxContexts:   cfg.Orchestrator.MaxContexts,
			ValidatePlans: cfg.Orchestrator.ValidatePlans,
		}
		o.History = store
		o.Registerer = reg
		o.TracerProvider = tp
		o.Logger = logger
		o.Listeners = []core.Listener{orchestrator.NewLoggingListener(logger.WithComponent("events"))}
		o.Pipeline = []func(o *runner.Options){func(o *runner.Options) {
			o.ErrorHandling = runner.ErrorHandling(cfg.Pipeline.ErrorHandling)
			o.MaxRetries = cfg.Pipeline.MaxRetries
		}}
	})
	m.closers = closers

	mdl, err := runner.NewModel(cfg.Model)
	if err != nil {
		_ = m.Close(ctx)
		return nil, err
	}
	agents, err := runner.NewDocumentationAgents(mdl, cfg, logger.WithComponent("agent"))
	if err != nil {
		_ = m.Close(ctx)
		return nil, err
	}
	for _, a := range agents {
		if err := m.RegisterAgent(a); err != nil {
			_ = m.Close(ctx)
			return nil, err
		}
	}
	return m, nil
}

// RegisterAgent adds an agent to the underlying orchestrator.
func (m *DocMesh) RegisterAgent(a core.Agent) error { return m.orch.RegisterAgent(a) }

// Orchestrator exposes the underlying orchestrator.
func (m *DocMesh) Orchestrator() *orchestrator.Orchestrator { return m.orch }

// Pipeline exposes the documentation pipeline.
func (m *DocMesh) Pipeline() *runner.Pipeline { return m.pipeline }

// Metrics returns the metrics collector, or nil when metrics are disabled.
func (m *DocMesh) Metrics() *metrics.Collector { return m.metrics }

// Generate runs the documentation pipeline for topic.
func (m *DocMesh) Generate(ctx context.Context, topic string, mode runner.Mode) (*runner.Result, error) {
	return m.pipeline.Run(ctx, runner.Request{Topic: topic, Mode: mode})
}

// Handler returns the HTTP API for this instance.
func (m *DocMesh) Handler(gatherer prometheus.Gatherer) http.Handler {
	return server.New(m.orch, func(o *server.Options) {
		o.Pipeline = m.pipeline
		o.Gatherer = gatherer
		o.Logger = m.opts.Logger
		o.Version = Version
	}).Handler()
}

// Close flushes tracing and releases backing stores opened by FromConfig.
func (m *DocMesh) Close(ctx context.Context) error {
	var errs []error
	for i := len(m.closers) - 1; i >= 0; i-- {
		errs = append(errs, m.closers[i](ctx))
	}
	m.closers = nil
	return errors.Join(errs...)
}
