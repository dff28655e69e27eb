// Package graph validates the dependency structure of plans before execution.
package graph

import (
	"fmt"
	"strings"

	"github.com/hupe1980/docmesh/core"
)

// CycleError reports the path of a dependency cycle.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("%s: %s", core.ErrDependencyCycle, strings.Join(e.Path, " -> "))
}

// Unwrap allows errors.Is(err, core.ErrDependencyCycle).
func (e *CycleError) Unwrap() error { return core.ErrDependencyCycle }

// ValidateActions checks that every action dependency references an action of
// the same plan and that the dependencies form a DAG. Duplicate action ids are
// rejected.
func ValidateActions(actions []core.Action) error {
	deps := make(map[string][]string, len(actions))
	order := make([]string, 0, len(actions))
	for _, a := range actions {
		if a.ID == "" {
			return fmt.Errorf("%w: action of type %q has no id", core.ErrInvalidPlan, a.Type)
		}
		if _, dup := deps[a.ID]; dup {
			return fmt.Errorf("%w: duplicate action id %q", core.ErrInvalidPlan, a.ID)
		}
		deps[a.ID] = a.Dependencies
		order = append(order, a.ID)
	}

	for _, id := range order {
		for _, dep := range deps[id] {
			if _, ok := deps[dep]; !ok {
				return fmt.Errorf("%w: action %q depends on unknown action %q", core.ErrInvalidPlan, id, dep)
			}
		}
	}

	// DFS with colouring: 0 unvisited, 1 visiting, 2 done.
	colors := make(map[string]int, len(order))
	var stack []string

	var dfs func(id string) error
	dfs = func(id string) error {
		switch colors[id] {
		case 1:
			start := 0
			for i, n := range stack {
				if n == id {
					start = i
					break
				}
			}
			path := append(append([]string(nil), stack[start:]...), id)
			return &CycleError{Path: path}
		case 2:
			return nil
		}

		colors[id] = 1
		stack = append(stack, id)
		for _, dep := range deps[id] {
			if err := dfs(dep); err != nil {
				return err
			}
		}
		colors[id] = 2
		stack = stack[:len(stack)-1]
		return nil
	}

	for _, id := range order {
		if colors[id] == 0 {
			if err := dfs(id); err != nil {
				return err
			}
		}
	}
	return nil
}

// ValidatePlan checks a plan's action graph and that each plan-level
// dependency is known. known reports whether a name refers to a registered
// agent or another plan of the same batch.
func ValidatePlan(plan *core.Plan, known func(name string) bool) error {
	if plan == nil {
		return fmt.Errorf("%w: nil plan", core.ErrInvalidInput)
	}
	for _, dep := range plan.Dependencies {
		if dep == plan.ID || dep == plan.AgentID {
			return &CycleError{Path: []string{plan.ID, dep}}
		}
		if known == nil || !known(dep) {
			return fmt.Errorf("%w: plan %q depends on unknown plan or agent %q", core.ErrInvalidPlan, plan.ID, dep)
		}
	}
	return ValidateActions(plan.Actions)
}
