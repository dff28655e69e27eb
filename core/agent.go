package core

import "context"

// Agent defines the contract every docmesh agent implements.
//
// Agents are registered with the orchestrator by ID and asked to plan and
// execute work against a shared RunContext. The orchestrator never owns agent
// internal state; it only drives the three lifecycle phases:
//
//   - Learn: best-effort warm-up against the run context. Errors are logged
//     and reported but never abort an orchestration.
//   - Plan: describe the work the agent wants to perform for this run.
//   - Execute: perform the work. Returning is the sole completion signal; a
//     non-nil error is treated as the agent having thrown.
//
// Execute may receive a nil plan for agents that encode a single fixed action.
// Implementations must respect ctx cancellation so per-call timeouts can
// release them.
type Agent interface {
	ID() string
	Name() string
	Description() string
	Capabilities() []string
	Learn(ctx context.Context, rc *RunContext) error
	Plan(ctx context.Context, rc *RunContext) (*Plan, error)
	Execute(ctx context.Context, rc *RunContext, plan *Plan) (*ExecutionResult, error)
}

// AgentInfo carries identifying details about an agent for listings and events.
type AgentInfo struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Capabilities []string `json:"capabilities"`
}

// DescribeAgent snapshots the identifying fields of an agent.
func DescribeAgent(a Agent) AgentInfo {
	caps := append([]string(nil), a.Capabilities()...)
	return AgentInfo{ID: a.ID(), Name: a.Name(), Description: a.Description(), Capabilities: caps}
}
