package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/docmesh/core"
	"github.com/hupe1980/docmesh/history"
)

// Orchestrate dispatches to the scheduling mode named by mode. plans are
// ignored in autonomous mode.
func (o *Orchestrator) Orchestrate(ctx context.Context, mode core.Mode, rc *core.RunContext, plans []*core.Plan, optFns ...func(o *InvokeOptions)) ([]core.ExecutionResult, error) {
	switch mode {
	case core.ModeAutonomous:
		return o.OrchestrateAutonomous(ctx, rc, optFns...)
	case core.ModePredefined:
		return o.OrchestratePredefined(ctx, rc, plans, optFns...)
	case core.ModeParallel:
		return o.OrchestrateParallel(ctx, rc, plans, optFns...)
	default:
		return nil, fmt.Errorf("%w: unknown mode %q", core.ErrInvalidInput, mode)
	}
}

// OrchestrateAutonomous asks every registered agent for a plan, in
// registration order, and executes the plans sequentially by descending
// priority. Ties keep registration order. Each plan runs on the agent named
// by its AgentID, looked up at execution time. Agents that fail to plan are
// excluded and reported via PlanningFailed; agents returning a nil plan opt
// out of the run.
func (o *Orchestrator) OrchestrateAutonomous(ctx context.Context, rc *core.RunContext, optFns ...func(o *InvokeOptions)) ([]core.ExecutionResult, error) {
	if rc == nil {
		return nil, fmt.Errorf("%w: nil run context", core.ErrInvalidInput)
	}
	opts := o.invokeOptions(optFns)

	ctx, span := o.startSpan(ctx, core.ModeAutonomous, rc)
	defer span.End()

	var plans []*core.Plan
	for _, a := range o.Agents() {
		plan, err := o.planAgent(ctx, rc, a, opts.CallTimeout)
		if err != nil {
			o.logger.Warn("Agent planning failed", "agent", a.ID(), "context_id", rc.ID, "error", err)

			ev := core.NewEvent(core.EventPlanningFailed)
			ev.ContextID = rc.ID
			ev.AgentID = a.ID()
			ev.Mode = core.ModeAutonomous
			ev.Err = &core.ExecutionError{Kind: core.ErrorKindPlanning, AgentID: a.ID(), Err: err}
			o.emit(ctx, ev)
			continue
		}
		if plan == nil {
			continue
		}
		plans = append(plans, plan)
	}

	sort.SliceStable(plans, func(i, j int) bool {
		return plans[i].Priority > plans[j].Priority
	})

	invalid := o.validatePlans(plans)

	results := make([]core.ExecutionResult, 0, len(plans))
	for i, plan := range plans {
		results = append(results, o.runPlan(ctx, rc, plan, core.ModeAutonomous, opts.CallTimeout, invalid[i]))
	}

	o.finish(ctx, span, rc, core.ModeAutonomous, results)
	return results, nil
}

// OrchestratePredefined executes plans sequentially in the given order.
// Priority is ignored. A plan naming an unregistered agent yields a failed
// result with the message "agent not found".
func (o *Orchestrator) OrchestratePredefined(ctx context.Context, rc *core.RunContext, plans []*core.Plan, optFns ...func(o *InvokeOptions)) ([]core.ExecutionResult, error) {
	if rc == nil {
		return nil, fmt.Errorf("%w: nil run context", core.ErrInvalidInput)
	}
	if err := checkPlans(plans); err != nil {
		return nil, err
	}
	opts := o.invokeOptions(optFns)

	ctx, span := o.startSpan(ctx, core.ModePredefined, rc)
	defer span.End()

	invalid := o.validatePlans(plans)

	results := make([]core.ExecutionResult, 0, len(plans))
	for i, plan := range plans {
		results = append(results, o.runPlan(ctx, rc, plan, core.ModePredefined, opts.CallTimeout, invalid[i]))
	}

	o.finish(ctx, span, rc, core.ModePredefined, results)
	return results, nil
}

// OrchestrateParallel executes all plans concurrently and waits for every one
// of them. Result i always belongs to plans[i]. Config.MaxParallel bounds the
// number of executions in flight.
func (o *Orchestrator) OrchestrateParallel(ctx context.Context, rc *core.RunContext, plans []*core.Plan, optFns ...func(o *InvokeOptions)) ([]core.ExecutionResult, error) {
	if rc == nil {
		return nil, fmt.Errorf("%w: nil run context", core.ErrInvalidInput)
	}
	if err := checkPlans(plans); err != nil {
		return nil, err
	}
	opts := o.invokeOptions(optFns)

	ctx, span := o.startSpan(ctx, core.ModeParallel, rc)
	defer span.End()

	invalid := o.validatePlans(plans)
	results := make([]core.ExecutionResult, len(plans))

	var g errgroup.Group
	if o.config.MaxParallel > 0 {
		g.SetLimit(o.config.MaxParallel)
	}
	for i, plan := range plans {
		g.Go(func() error {
			results[i] = o.runPlan(ctx, rc, plan, core.ModeParallel, opts.CallTimeout, invalid[i])
			return nil
		})
	}
	_ = g.Wait() // workers never return errors

	o.finish(ctx, span, rc, core.ModeParallel, results)
	return results, nil
}

func (o *Orchestrator) runPlan(ctx context.Context, rc *core.RunContext, plan *core.Plan, mode core.Mode, timeout time.Duration, invalid error) core.ExecutionResult {
	if invalid != nil {
		return o.fail(ctx, rc, plan, mode, invalid)
	}
	a, ok := o.Agent(plan.AgentID)
	if !ok {
		return o.fail(ctx, rc, plan, mode, core.ErrAgentNotFound)
	}
	return o.execute(ctx, rc, a, plan, mode, timeout)
}

func (o *Orchestrator) startSpan(ctx context.Context, mode core.Mode, rc *core.RunContext) (context.Context, trace.Span) {
	return o.tracer.Start(ctx, "orchestrator."+string(mode), trace.WithAttributes(
		attribute.String("context.id", rc.ID),
		attribute.String("mode", string(mode)),
	))
}

// finish records results in history and emits OrchestrationComplete.
func (o *Orchestrator) finish(ctx context.Context, span trace.Span, rc *core.RunContext, mode core.Mode, results []core.ExecutionResult) {
	failed := 0
	for _, r := range results {
		if !r.Success {
			failed++
		}
	}
	span.SetAttributes(attribute.Int("results.total", len(results)), attribute.Int("results.failed", failed))
	if failed > 0 {
		span.SetStatus(codes.Error, fmt.Sprintf("%d of %d executions failed", failed, len(results)))
	}

	if len(results) > 0 {
		if err := o.history.Append(ctx, history.NewEntries(rc.ID, mode, results)...); err != nil {
			o.logger.Error("Failed to record history", "context_id", rc.ID, "error", err)
		}
	}

	o.logger.Info("Orchestration complete", "mode", string(mode), "context_id", rc.ID, "total", len(results), "failed", failed)

	ev := core.NewEvent(core.EventOrchestrationComplete)
	ev.ContextID = rc.ID
	ev.Mode = mode
	ev.Results = append([]core.ExecutionResult(nil), results...)
	o.emit(ctx, ev)
}
