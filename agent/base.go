package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/docmesh/core"
	"github.com/hupe1980/docmesh/logging"
	"github.com/hupe1980/docmesh/model"
)

// BaseAgent bundles identity, capability reporting, a no-op Learn phase and a
// default single-action plan. Embed it in concrete agent implementations and
// supply an Execute method to satisfy the core.Agent interface.
type BaseAgent struct {
	id           string   // Registry id, unique per orchestrator
	name         string   // Human-readable name
	description  string   // Detailed description of agent's purpose
	capabilities []string // Advertised capabilities
	priority     int      // Priority of the default plan
	dependsOn    []string // Advisory plan dependencies
	logger       logging.Logger
}

// NewBaseAgent constructs a BaseAgent with generated description (customizable via SetDescription).
func NewBaseAgent(id, name string, capabilities ...string) BaseAgent {
	return BaseAgent{
		id:           id,
		name:         name,
		description:  fmt.Sprintf("Agent %s", name),
		capabilities: capabilities,
		logger:       logging.NoOpLogger{},
	}
}

// ID returns the registry id of this agent.
func (b *BaseAgent) ID() string { return b.id }

// Name returns the human-readable name for this agent.
func (b *BaseAgent) Name() string { return b.name }

// Description returns a detailed description of this agent's purpose.
func (b *BaseAgent) Description() string { return b.description }

// SetDescription updates the agent's description.
func (b *BaseAgent) SetDescription(desc string) { b.description = desc }

// Capabilities returns a copy of the advertised capabilities.
func (b *BaseAgent) Capabilities() []string { return append([]string(nil), b.capabilities...) }

// Priority returns the priority of the default plan.
func (b *BaseAgent) Priority() int { return b.priority }

// SetPriority sets the priority of the default plan.
func (b *BaseAgent) SetPriority(p int) { b.priority = p }

// SetDependsOn sets the advisory plan dependencies of the default plan.
func (b *BaseAgent) SetDependsOn(deps ...string) { b.dependsOn = deps }

// SetLogger replaces the agent logger; nil selects a no-op logger.
func (b *BaseAgent) SetLogger(l logging.Logger) { b.logger = logging.OrNoOp(l) }

// Logger returns the agent logger.
func (b *BaseAgent) Logger() logging.Logger { return b.logger }

// Learn is a no-op.
func (b *BaseAgent) Learn(context.Context, *core.RunContext) error { return nil }

// Plan returns a single-action plan whose action type is the agent id.
func (b *BaseAgent) Plan(_ context.Context, _ *core.RunContext) (*core.Plan, error) {
	p := core.NewPlan(b.id, b.priority, core.NewAction(b.id, nil))
	if len(b.dependsOn) > 0 {
		p.Dependencies = append([]string(nil), b.dependsOn...)
	}
	return p, nil
}

// generate calls m and accounts token usage and estimated cost on rc.
func (b *BaseAgent) generate(ctx context.Context, rc *core.RunContext, m model.Model, req model.Request) (*model.Response, error) {
	start := time.Now()
	resp, err := m.Generate(ctx, req)
	name := m.Info().Name
	if err != nil {
		logging.LogModelCall(b.logger, name, 0, time.Since(start), false, err)
		return nil, err
	}

	if resp.Model != "" {
		name = resp.Model
	}
	logging.LogModelCall(b.logger, name, resp.Usage.TotalTokens, time.Since(start), true, nil)
	rc.AddUsage(core.Usage{
		Tokens: resp.Usage.TotalTokens,
		Cost:   model.EstimateCost(name, resp.Usage),
	})
	return resp, nil
}

// topic resolves the topic of a run from the first action's "topic"
// parameter, falling back to the run context data.
func topic(rc *core.RunContext, plan *core.Plan) (string, error) {
	if plan != nil {
		for _, a := range plan.Actions {
			if v, ok := a.Param("topic"); ok {
				if s, ok := v.(string); ok && s != "" {
					return s, nil
				}
			}
		}
	}
	if s := rc.GetString("topic"); s != "" {
		return s, nil
	}
	return "", fmt.Errorf("%w: topic is required", core.ErrInvalidInput)
}
