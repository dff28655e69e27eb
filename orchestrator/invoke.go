package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hupe1980/docmesh/core"
	"github.com/hupe1980/docmesh/logging"
)

type outcome[T any] struct {
	value T
	err   error
}

// invoke runs fn under an optional timeout, converting panics into
// ErrAgentPanic and an expired timeout into ErrTimeout. On timeout the call
// is abandoned; fn keeps running until it observes ctx cancellation.
func invoke[T any](ctx context.Context, timeout time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	callCtx := ctx
	cancel := context.CancelFunc(func() {})
	if timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	done := make(chan outcome[T], 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				var zero T
				done <- outcome[T]{value: zero, err: fmt.Errorf("%w: %v", core.ErrAgentPanic, r)}
			}
		}()
		v, err := fn(callCtx)
		done <- outcome[T]{value: v, err: err}
	}()

	select {
	case out := <-done:
		return out.value, out.err
	case <-callCtx.Done():
		var zero T
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		return zero, fmt.Errorf("%w after %s", core.ErrTimeout, timeout)
	}
}

// planAgent asks a single agent for its plan.
func (o *Orchestrator) planAgent(ctx context.Context, rc *core.RunContext, a core.Agent, timeout time.Duration) (*core.Plan, error) {
	ctx, span := o.tracer.Start(ctx, "agent.plan", trace.WithAttributes(
		attribute.String("agent.id", a.ID()),
		attribute.String("context.id", rc.ID),
	))
	defer span.End()

	plan, err := invoke(ctx, timeout, func(ctx context.Context) (*core.Plan, error) {
		return a.Plan(ctx, rc)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if plan != nil {
		plan = plan.Clone()
		if plan.AgentID == "" {
			plan.AgentID = a.ID()
		}
		if plan.ID == "" {
			plan.ID = core.NewID()
		}
		span.SetAttributes(attribute.String("plan.id", plan.ID), attribute.Int("plan.priority", plan.Priority))
	}
	return plan, nil
}

// execute runs one plan on its agent and normalises the outcome into a
// result. It never fails: errors, panics and timeouts become failed results.
func (o *Orchestrator) execute(ctx context.Context, rc *core.RunContext, a core.Agent, plan *core.Plan, mode core.Mode, timeout time.Duration) core.ExecutionResult {
	agentID := a.ID()
	planID := ""
	if plan != nil {
		planID = plan.ID
	}

	ctx, span := o.tracer.Start(ctx, "agent.execute", trace.WithAttributes(
		attribute.String("agent.id", agentID),
		attribute.String("plan.id", planID),
		attribute.String("context.id", rc.ID),
	))
	defer span.End()

	executionID := core.NewID()
	started := core.NewEvent(core.EventExecutionStarted)
	started.ContextID, started.AgentID, started.PlanID, started.Mode = rc.ID, agentID, planID, mode
	started.ExecutionID = executionID
	o.emit(ctx, started)

	stop := o.sampler()
	start := time.Now()
	res, err := invoke(ctx, timeout, func(ctx context.Context) (*core.ExecutionResult, error) {
		return a.Execute(ctx, rc, plan)
	})
	end := time.Now()
	sampled := stop()

	if err == nil && res == nil {
		err = core.ErrNoResult
	}

	var result core.ExecutionResult
	if err != nil {
		result = core.NewFailedResult(agentID, planID, err, start, end)
		result.Metrics.ResourceUsage = sampled
	} else {
		result = *res
		if result.AgentID == "" {
			result.AgentID = agentID
		}
		if result.PlanID == "" {
			result.PlanID = planID
		}
		result.Metrics = normaliseMetrics(result.Metrics, start, end, sampled)
		if !result.Success && result.Error == "" {
			result.Error = fmt.Sprintf("agent %s failed", agentID)
		}
	}

	rc.AddUsage(core.Usage{Elapsed: result.Metrics.Duration})
	span.SetAttributes(attribute.Bool("success", result.Success))

	logging.LogExecution(o.logger, agentID, planID, result.Metrics.Duration, result.Success, result.Error)

	if result.Success {
		o.emitResult(ctx, core.EventExecutionComplete, rc.ID, executionID, mode, result, nil)
		return result
	}

	if err == nil {
		err = errors.New(result.Error)
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, result.Error)
	o.emitResult(ctx, core.EventExecutionFailed, rc.ID, executionID, mode, result, &core.ExecutionError{
		Kind: core.KindOf(err), AgentID: agentID, PlanID: planID, Err: err,
	})
	return result
}

// normaliseMetrics recomputes the duration of agent reported metrics so it is
// never negative. Missing timestamps fall back to the orchestrator's own
// measurement and a zero resource snapshot to the sampled one.
func normaliseMetrics(m core.ExecutionMetrics, start, end time.Time, sampled core.ResourceUsage) core.ExecutionMetrics {
	if m.StartTime.IsZero() || m.EndTime.IsZero() {
		m.StartTime, m.EndTime = start, end
	}
	if m.ResourceUsage == (core.ResourceUsage{}) {
		m.ResourceUsage = sampled
	}
	return core.NewExecutionMetrics(m.StartTime, m.EndTime, m.ResourceUsage)
}

// fail synthesises a failed result for a plan that could not be executed
// (unknown agent, invalid dependencies) and reports it.
func (o *Orchestrator) fail(ctx context.Context, rc *core.RunContext, plan *core.Plan, mode core.Mode, err error) core.ExecutionResult {
	now := time.Now()
	result := core.NewFailedResult(plan.AgentID, plan.ID, err, now, now)

	o.logger.Warn("Plan not executed", "agent", plan.AgentID, "plan_id", plan.ID, "error", err)
	o.emitResult(ctx, core.EventExecutionFailed, rc.ID, "", mode, result, &core.ExecutionError{
		Kind: core.KindOf(err), AgentID: plan.AgentID, PlanID: plan.ID, Err: err,
	})
	return result
}

func (o *Orchestrator) emitResult(ctx context.Context, t core.EventType, contextID, executionID string, mode core.Mode, result core.ExecutionResult, err error) {
	ev := core.NewEvent(t)
	ev.ContextID = contextID
	ev.ExecutionID = executionID
	ev.AgentID = result.AgentID
	ev.PlanID = result.PlanID
	ev.Mode = mode
	r := result
	ev.Result = &r
	ev.Err = err
	o.emit(ctx, ev)
}
