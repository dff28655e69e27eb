package orchestrator

import (
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/hupe1980/docmesh/core"
	"github.com/hupe1980/docmesh/evaluation"
	"github.com/hupe1980/docmesh/history"
	"github.com/hupe1980/docmesh/internal/resource"
	"github.com/hupe1980/docmesh/logging"
)

// Config defines tuning parameters for the Orchestrator's operational behavior.
type Config struct {
	// CallTimeout bounds every single agent call (Learn, Plan, Execute).
	// Zero disables the timeout.
	CallTimeout time.Duration

	// MaxParallel bounds the fan-out width of parallel orchestration.
	// Zero means unbounded.
	MaxParallel int

	// MaxContexts bounds the number of run contexts kept for lookup. Once
	// exceeded the oldest context is evicted. Zero means unbounded.
	MaxContexts int

	// ValidatePlans enables dependency validation before execution.
	ValidatePlans bool
}

// DefaultConfig provides default configuration values.
//
// Configuration values:
//   - CallTimeout: 5m (LLM backed agents can be slow)
//   - MaxParallel: 0 (unbounded)
//   - MaxContexts: 1000
//   - ValidatePlans: true
var DefaultConfig = Config{
	CallTimeout:   5 * time.Minute,
	MaxParallel:   0,
	MaxContexts:   1000,
	ValidatePlans: true,
}

// Options configures an Orchestrator instance using the functional options pattern.
//
// Example:
//
//	orch := New(func(o *Options) {
//	    o.Logger = logger
//	    o.History = history.NewRedisStore(client)
//	    o.Listeners = append(o.Listeners, collector)
//	})
type Options struct {
	// Config contains operational parameters.
	// Defaults to DefaultConfig if not specified.
	Config Config

	// Logger provides structured logging for debugging and monitoring.
	// Defaults to NoOp logger if nil.
	Logger logging.Logger

	// History records every execution result.
	// Defaults to an in-memory store holding history.DefaultCapacity entries.
	History history.Store

	// Evaluator aggregates results in Evaluate.
	// Defaults to evaluation.Aggregator.
	Evaluator evaluation.Evaluator

	// Listeners are notified of orchestration events in registration order.
	Listeners []core.Listener

	// TracerProvider creates the orchestrator tracer.
	// Defaults to the global otel provider.
	TracerProvider trace.TracerProvider

	// Sampler measures resource usage around each execution. It fills
	// results whose agent left ResourceUsage zero.
	// Defaults to resource.Start.
	Sampler resource.Sampler
}

// InvokeOptions tune a single orchestration call.
type InvokeOptions struct {
	// CallTimeout bounds each agent call of this invocation. It starts out
	// as Config.CallTimeout; zero disables the timeout.
	CallTimeout time.Duration
}

// WithCallTimeout overrides the per-call timeout for one invocation.
func WithCallTimeout(d time.Duration) func(o *InvokeOptions) {
	return func(o *InvokeOptions) { o.CallTimeout = d }
}

func (o *Orchestrator) invokeOptions(optFns []func(o *InvokeOptions)) InvokeOptions {
	opts := InvokeOptions{CallTimeout: o.config.CallTimeout}
	for _, fn := range optFns {
		fn(&opts)
	}
	return opts
}
