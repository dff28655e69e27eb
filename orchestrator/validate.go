package orchestrator

import (
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/hupe1980/docmesh/core"
	"github.com/hupe1980/docmesh/internal/graph"
)

// validatePlans checks every plan of a batch and returns one error slot per
// plan (nil when valid). Beyond per-plan checks, plans depending on each
// other in a cycle are all rejected. A dependency names either a plan id or
// an agent id; an agent id stands for every plan of that agent in the batch.
func (o *Orchestrator) validatePlans(plans []*core.Plan) []error {
	errs := make([]error, len(plans))
	if !o.config.ValidatePlans {
		return errs
	}

	byPlan := make(map[string][]int, len(plans))
	byAgent := make(map[string][]int, len(plans))
	for i, p := range plans {
		if p.ID != "" {
			byPlan[p.ID] = append(byPlan[p.ID], i)
		}
		if p.AgentID != "" {
			byAgent[p.AgentID] = append(byAgent[p.AgentID], i)
		}
	}
	known := func(name string) bool {
		if len(byPlan[name]) > 0 {
			return true
		}
		_, ok := o.Agent(name)
		return ok
	}

	// Nodes are keyed by batch index so blank or duplicate plan ids cannot
	// hide a cycle elsewhere in the batch.
	edges := make([][]int, len(plans))
	for i, p := range plans {
		errs[i] = graph.ValidatePlan(p, known)

		seen := map[int]bool{i: true}
		for _, d := range p.Dependencies {
			for _, j := range slices.Concat(byPlan[d], byAgent[d]) {
				if !seen[j] {
					seen[j] = true
					edges[i] = append(edges[i], j)
				}
			}
		}
	}

	for _, cycle := range planCycles(edges) {
		path := make([]string, len(cycle))
		for k, i := range cycle {
			path[k] = planLabel(plans[i])
		}
		err := &graph.CycleError{Path: path}
		for _, i := range cycle {
			if errs[i] == nil {
				errs[i] = err
			}
		}
	}
	return errs
}

// planCycles returns every dependency cycle of the index graph as a closed
// path of batch indices. Members of a reported cycle are removed before
// searching again.
func planCycles(edges [][]int) [][]int {
	removed := make([]bool, len(edges))
	var cycles [][]int
	for {
		nodes := make([]core.Action, 0, len(edges))
		for i, deps := range edges {
			if removed[i] {
				continue
			}
			a := core.Action{ID: strconv.Itoa(i), Type: "plan"}
			for _, j := range deps {
				if !removed[j] {
					a.Dependencies = append(a.Dependencies, strconv.Itoa(j))
				}
			}
			nodes = append(nodes, a)
		}

		var ce *graph.CycleError
		if err := graph.ValidateActions(nodes); !errors.As(err, &ce) {
			return cycles
		}
		cycle := make([]int, 0, len(ce.Path))
		for _, id := range ce.Path {
			i, _ := strconv.Atoi(id)
			cycle = append(cycle, i)
			removed[i] = true
		}
		cycles = append(cycles, cycle)
	}
}

func planLabel(p *core.Plan) string {
	if p.ID != "" {
		return p.ID
	}
	return p.AgentID
}

func checkPlans(plans []*core.Plan) error {
	for i, p := range plans {
		if p == nil {
			return fmt.Errorf("%w: nil plan at index %d", core.ErrInvalidInput, i)
		}
	}
	return nil
}
