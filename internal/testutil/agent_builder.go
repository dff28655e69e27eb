package testutil

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/docmesh/core"
)

// FakeAgent is a configurable core.Agent for tests.
type FakeAgent struct {
	id           string
	capabilities []string
	priority     int
	delay        time.Duration
	execErr      error
	planErr      error
	learnErr     error
	panicMsg     string
	nilPlan      bool
	nilResult    bool
	output       any
	recorder     *Recorder

	executions atomic.Int32
	learns     atomic.Int32
	active     atomic.Int32
	maxActive  atomic.Int32
}

// AgentBuilder helps construct fake agents with fluent chaining.
// Example:
//
//	a := NewAgentBuilder("fast").Priority(5).Delay(10 * time.Millisecond).Build()
type AgentBuilder struct {
	a *FakeAgent
}

// NewAgentBuilder creates a builder for an agent with the given id.
func NewAgentBuilder(id string) *AgentBuilder {
	return &AgentBuilder{a: &FakeAgent{id: id, output: "output of " + id}}
}

// Priority sets the priority of plans produced by the agent (chainable).
func (b *AgentBuilder) Priority(p int) *AgentBuilder { b.a.priority = p; return b }

// Delay makes Execute sleep for d, honouring ctx cancellation (chainable).
func (b *AgentBuilder) Delay(d time.Duration) *AgentBuilder { b.a.delay = d; return b }

// Fail makes Execute return err (chainable).
func (b *AgentBuilder) Fail(err error) *AgentBuilder { b.a.execErr = err; return b }

// PlanError makes Plan return err (chainable).
func (b *AgentBuilder) PlanError(err error) *AgentBuilder { b.a.planErr = err; return b }

// LearnError makes Learn return err (chainable).
func (b *AgentBuilder) LearnError(err error) *AgentBuilder { b.a.learnErr = err; return b }

// Panic makes Execute panic with msg (chainable).
func (b *AgentBuilder) Panic(msg string) *AgentBuilder { b.a.panicMsg = msg; return b }

// NilPlan makes Plan opt out by returning a nil plan (chainable).
func (b *AgentBuilder) NilPlan() *AgentBuilder { b.a.nilPlan = true; return b }

// NilResult makes Execute return neither result nor error (chainable).
func (b *AgentBuilder) NilResult() *AgentBuilder { b.a.nilResult = true; return b }

// Output sets the successful execution output (chainable).
func (b *AgentBuilder) Output(v any) *AgentBuilder { b.a.output = v; return b }

// Capabilities sets the advertised capabilities (chainable).
func (b *AgentBuilder) Capabilities(c ...string) *AgentBuilder { b.a.capabilities = c; return b }

// Record appends the agent id to r when Execute starts (chainable).
func (b *AgentBuilder) Record(r *Recorder) *AgentBuilder { b.a.recorder = r; return b }

// Build returns the configured agent.
func (b *AgentBuilder) Build() *FakeAgent { return b.a }

// ID implements core.Agent.
func (a *FakeAgent) ID() string { return a.id }

// Name implements core.Agent.
func (a *FakeAgent) Name() string { return a.id }

// Description implements core.Agent.
func (a *FakeAgent) Description() string { return "fake agent " + a.id }

// Capabilities implements core.Agent.
func (a *FakeAgent) Capabilities() []string { return a.capabilities }

// Learn implements core.Agent.
func (a *FakeAgent) Learn(_ context.Context, _ *core.RunContext) error {
	a.learns.Add(1)
	return a.learnErr
}

// Plan implements core.Agent.
func (a *FakeAgent) Plan(_ context.Context, _ *core.RunContext) (*core.Plan, error) {
	if a.planErr != nil {
		return nil, a.planErr
	}
	if a.nilPlan {
		return nil, nil
	}
	return core.NewPlan(a.id, a.priority, core.NewAction("run", nil)), nil
}

// Execute implements core.Agent.
func (a *FakeAgent) Execute(ctx context.Context, rc *core.RunContext, plan *core.Plan) (*core.ExecutionResult, error) {
	start := time.Now()
	a.executions.Add(1)
	if a.recorder != nil {
		a.recorder.Add(a.id)
	}

	n := a.active.Add(1)
	defer a.active.Add(-1)
	for {
		m := a.maxActive.Load()
		if n <= m || a.maxActive.CompareAndSwap(m, n) {
			break
		}
	}

	if a.delay > 0 {
		select {
		case <-time.After(a.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if a.panicMsg != "" {
		panic(a.panicMsg)
	}
	if a.execErr != nil {
		return nil, a.execErr
	}
	if a.nilResult {
		return nil, nil
	}

	res := core.NewSuccessResult(a.id, a.output, start)
	if plan != nil {
		res.PlanID = plan.ID
	}
	rc.SetMetadata(a.id, a.output)
	return res, nil
}

// Executions reports how many times Execute was called.
func (a *FakeAgent) Executions() int { return int(a.executions.Load()) }

// Learns reports how many times Learn was called.
func (a *FakeAgent) Learns() int { return int(a.learns.Load()) }

// MaxConcurrent reports the highest number of concurrent Execute calls seen.
func (a *FakeAgent) MaxConcurrent() int { return int(a.maxActive.Load()) }

// Recorder collects strings in call order, safe for concurrent use.
type Recorder struct {
	mu    sync.Mutex
	items []string
}

// Add appends s.
func (r *Recorder) Add(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, s)
}

// Items returns a copy of the recorded strings.
func (r *Recorder) Items() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.items...)
}

// EventRecorder is a core.Listener that keeps every event it observes.
type EventRecorder struct {
	mu     sync.Mutex
	events []core.Event
}

// OnEvent implements core.Listener.
func (r *EventRecorder) OnEvent(_ context.Context, ev core.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// Events returns a copy of the recorded events.
func (r *EventRecorder) Events() []core.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]core.Event(nil), r.events...)
}

// OfType returns the recorded events of type t.
func (r *EventRecorder) OfType(t core.EventType) []core.Event {
	var out []core.Event
	for _, ev := range r.Events() {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}
