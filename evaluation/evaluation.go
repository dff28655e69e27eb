// Package evaluation aggregates execution results into an overall verdict.
package evaluation

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/docmesh/core"
)

// Evaluator turns a batch of execution results into an EvaluationResult.
type Evaluator interface {
	Evaluate(ctx context.Context, results []core.ExecutionResult) (*core.EvaluationResult, error)
}

// Aggregator is the default Evaluator. It is stateless and pure: the same
// input always yields an identical output.
//
//   - Success is the AND over all results, true for an empty batch.
//   - TotalDuration sums the individual durations.
//   - AverageResourceUsage is the per-dimension mean, zero for an empty batch.
//   - Errors lists the failure messages in input order.
type Aggregator struct{}

// NewAggregator returns the default evaluator.
func NewAggregator() *Aggregator { return &Aggregator{} }

// Evaluate implements Evaluator.
func (Aggregator) Evaluate(_ context.Context, results []core.ExecutionResult) (*core.EvaluationResult, error) {
	return Aggregate(results), nil
}

// Aggregate computes the evaluation of results.
func Aggregate(results []core.ExecutionResult) *core.EvaluationResult {
	out := &core.EvaluationResult{
		Success: true,
		Errors:  []string{},
		Total:   len(results),
	}
	if len(results) == 0 {
		return out
	}

	var (
		total time.Duration
		sum   core.ResourceUsage
	)
	for _, r := range results {
		total += r.Metrics.Duration
		sum.CPU += r.Metrics.ResourceUsage.CPU
		sum.Memory += r.Metrics.ResourceUsage.Memory
		sum.Network += r.Metrics.ResourceUsage.Network

		if !r.Success {
			out.Success = false
			out.Failed++
			msg := r.Error
			if msg == "" {
				msg = fmt.Sprintf("agent %s failed", r.AgentID)
			}
			out.Errors = append(out.Errors, msg)
		}
	}

	n := float64(len(results))
	out.TotalDuration = total
	out.AverageResourceUsage = core.ResourceUsage{
		CPU:     sum.CPU / n,
		Memory:  sum.Memory / n,
		Network: sum.Network / n,
	}
	return out
}
