package core

import (
	"maps"

	"github.com/google/uuid"
)

// NewID generates a new unique identifier for contexts, plans and actions.
func NewID() string { return uuid.NewString() }

// Action is one step within a Plan. Dependencies reference other actions of
// the same plan and must form an acyclic graph.
type Action struct {
	ID           string         `json:"id"`
	Type         string         `json:"type"`
	Parameters   map[string]any `json:"parameters,omitempty"`
	Dependencies []string       `json:"dependencies,omitempty"`
}

// NewAction creates an action with a generated id.
func NewAction(actionType string, params map[string]any, deps ...string) Action {
	return Action{ID: NewID(), Type: actionType, Parameters: params, Dependencies: deps}
}

// Param returns an action parameter.
func (a Action) Param(key string) (any, bool) {
	v, ok := a.Parameters[key]
	return v, ok
}

// Plan describes the work one agent performs in one invocation. Higher
// Priority plans execute first in autonomous mode. Dependencies name other
// plans or agents that are expected to complete first.
type Plan struct {
	ID           string   `json:"id"`
	AgentID      string   `json:"agent_id"`
	Actions      []Action `json:"actions"`
	Dependencies []string `json:"dependencies,omitempty"`
	Priority     int      `json:"priority"`
}

// NewPlan creates a plan with a generated id.
func NewPlan(agentID string, priority int, actions ...Action) *Plan {
	return &Plan{ID: NewID(), AgentID: agentID, Actions: actions, Priority: priority}
}

// Clone returns a deep copy of the plan structure. Parameter values are
// copied shallowly.
func (p *Plan) Clone() *Plan {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Dependencies = append([]string(nil), p.Dependencies...)
	cp.Actions = make([]Action, len(p.Actions))
	for i, a := range p.Actions {
		a.Parameters = maps.Clone(a.Parameters)
		a.Dependencies = append([]string(nil), a.Dependencies...)
		cp.Actions[i] = a
	}
	return &cp
}
