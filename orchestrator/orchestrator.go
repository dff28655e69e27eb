package orchestrator

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/hupe1980/docmesh/core"
	"github.com/hupe1980/docmesh/evaluation"
	"github.com/hupe1980/docmesh/history"
	"github.com/hupe1980/docmesh/internal/resource"
	"github.com/hupe1980/docmesh/logging"
)

const tracerName = "github.com/hupe1980/docmesh/orchestrator"

// Orchestrator coordinates registered agents over shared run contexts.
//
// Concurrency Model:
//   - Thread-safe agent registration and lookup via RWMutex
//   - Registration order is preserved; re-registering an id keeps its slot
//   - Run contexts are tracked FIFO and evicted beyond Config.MaxContexts
//   - Listener fan-out is synchronous and panic safe
type Orchestrator struct {
	config    Config
	logger    logging.Logger
	history   history.Store
	evaluator evaluation.Evaluator
	tracer    trace.Tracer
	sampler   resource.Sampler

	// Agent registry - protected by mu
	mu     sync.RWMutex
	agents map[string]core.Agent
	order  []string

	// Listeners - protected by listenersMu
	listenersMu sync.RWMutex
	listeners   []core.Listener

	// Run context registry - protected by contextsMu
	contextsMu   sync.Mutex
	contexts     map[string]*core.RunContext
	contextOrder []string
}

// New creates a new Orchestrator with in-memory defaults and optional
// configuration.
func New(optFns ...func(o *Options)) *Orchestrator {
	opts := Options{
		Config:    DefaultConfig,
		Logger:    logging.NoOpLogger{},
		Evaluator: evaluation.NewAggregator(),
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.History == nil {
		opts.History = history.NewInMemoryStore(history.DefaultCapacity)
	}
	if opts.Evaluator == nil {
		opts.Evaluator = evaluation.NewAggregator()
	}
	if opts.TracerProvider == nil {
		opts.TracerProvider = otel.GetTracerProvider()
	}
	if opts.Sampler == nil {
		opts.Sampler = resource.Start
	}

	return &Orchestrator{
		config:    opts.Config,
		logger:    logging.OrNoOp(opts.Logger),
		history:   opts.History,
		evaluator: opts.Evaluator,
		tracer:    opts.TracerProvider.Tracer(tracerName),
		sampler:   opts.Sampler,
		agents:    make(map[string]core.Agent),
		listeners: slices.Clone(opts.Listeners),
		contexts:  make(map[string]*core.RunContext),
	}
}

// Config returns the operational configuration.
func (o *Orchestrator) Config() Config { return o.config }

// History returns the history store results are recorded in.
func (o *Orchestrator) History() history.Store { return o.history }

// AddListener registers a listener after construction.
func (o *Orchestrator) AddListener(l core.Listener) {
	if l == nil {
		return
	}
	o.listenersMu.Lock()
	defer o.listenersMu.Unlock()
	o.listeners = append(o.listeners, l)
}

// RegisterAgent adds an agent to the registry. Registering an id again
// replaces the agent but keeps its original position in registration order.
func (o *Orchestrator) RegisterAgent(a core.Agent) error {
	if a == nil {
		return fmt.Errorf("%w: nil agent", core.ErrInvalidInput)
	}
	id := a.ID()
	if id == "" {
		return fmt.Errorf("%w: agent id must not be empty", core.ErrInvalidInput)
	}

	o.mu.Lock()
	if _, exists := o.agents[id]; !exists {
		o.order = append(o.order, id)
	}
	o.agents[id] = a
	o.mu.Unlock()

	o.logger.Info("Agent registered", "agent", id, "name", a.Name())

	ev := core.NewEvent(core.EventAgentRegistered)
	ev.AgentID = id
	o.emit(context.Background(), ev)

	return nil
}

// UnregisterAgent removes an agent. Unknown ids are ignored silently.
func (o *Orchestrator) UnregisterAgent(id string) {
	o.mu.Lock()
	_, exists := o.agents[id]
	if exists {
		delete(o.agents, id)
		o.order = slices.DeleteFunc(o.order, func(s string) bool { return s == id })
	}
	o.mu.Unlock()

	if !exists {
		return
	}

	o.logger.Info("Agent unregistered", "agent", id)

	ev := core.NewEvent(core.EventAgentUnregistered)
	ev.AgentID = id
	o.emit(context.Background(), ev)
}

// Agent retrieves a registered agent by id.
func (o *Orchestrator) Agent(id string) (core.Agent, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	a, ok := o.agents[id]
	return a, ok
}

// Agents returns a snapshot of the registered agents in registration order.
func (o *Orchestrator) Agents() []core.Agent {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]core.Agent, 0, len(o.order))
	for _, id := range o.order {
		out = append(out, o.agents[id])
	}
	return out
}

// AgentInfos describes the registered agents in registration order.
func (o *Orchestrator) AgentInfos() []core.AgentInfo {
	agents := o.Agents()
	infos := make([]core.AgentInfo, len(agents))
	for i, a := range agents {
		infos[i] = core.DescribeAgent(a)
	}
	return infos
}

// CreateContext creates and registers a run context. data is copied, so
// later caller mutation does not affect the context.
func (o *Orchestrator) CreateContext(data map[string]any, parent *core.RunContext) *core.RunContext {
	rc := core.NewRunContext(data, parent)

	o.contextsMu.Lock()
	o.contexts[rc.ID] = rc
	o.contextOrder = append(o.contextOrder, rc.ID)
	if limit := o.config.MaxContexts; limit > 0 {
		for len(o.contextOrder) > limit {
			oldest := o.contextOrder[0]
			o.contextOrder = o.contextOrder[1:]
			delete(o.contexts, oldest)
		}
	}
	o.contextsMu.Unlock()

	ev := core.NewEvent(core.EventContextCreated)
	ev.ContextID = rc.ID
	o.emit(context.Background(), ev)

	return rc
}

// Context looks up a registered run context by id.
func (o *Orchestrator) Context(id string) (*core.RunContext, bool) {
	o.contextsMu.Lock()
	defer o.contextsMu.Unlock()
	rc, ok := o.contexts[id]
	return rc, ok
}

// ReleaseContext drops a run context from the registry.
func (o *Orchestrator) ReleaseContext(id string) {
	o.contextsMu.Lock()
	defer o.contextsMu.Unlock()
	if _, ok := o.contexts[id]; !ok {
		return
	}
	delete(o.contexts, id)
	o.contextOrder = slices.DeleteFunc(o.contextOrder, func(s string) bool { return s == id })
}

// ContextCount reports the number of registered run contexts.
func (o *Orchestrator) ContextCount() int {
	o.contextsMu.Lock()
	defer o.contextsMu.Unlock()
	return len(o.contexts)
}

// Learn runs every agent's Learn phase sequentially in registration order.
// Learning is best-effort: failures are logged and emitted as LearningFailed
// events but never returned.
func (o *Orchestrator) Learn(ctx context.Context, rc *core.RunContext, optFns ...func(o *InvokeOptions)) error {
	if rc == nil {
		return fmt.Errorf("%w: nil run context", core.ErrInvalidInput)
	}
	opts := o.invokeOptions(optFns)

	for _, a := range o.Agents() {
		_, err := invoke(ctx, opts.CallTimeout, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, a.Learn(ctx, rc)
		})
		if err == nil {
			continue
		}

		o.logger.Warn("Agent learning failed", "agent", a.ID(), "context_id", rc.ID, "error", err)

		ev := core.NewEvent(core.EventLearningFailed)
		ev.ContextID = rc.ID
		ev.AgentID = a.ID()
		ev.Err = &core.ExecutionError{Kind: core.ErrorKindLearning, AgentID: a.ID(), Err: err}
		o.emit(ctx, ev)
	}
	return nil
}

// Evaluate aggregates results with the configured evaluator and emits
// EvaluationComplete.
func (o *Orchestrator) Evaluate(ctx context.Context, results []core.ExecutionResult) (*core.EvaluationResult, error) {
	ev, err := o.evaluator.Evaluate(ctx, results)
	if err != nil {
		return nil, fmt.Errorf("evaluate results: %w", err)
	}

	event := core.NewEvent(core.EventEvaluationComplete)
	event.Evaluation = ev
	o.emit(ctx, event)

	return ev, nil
}
