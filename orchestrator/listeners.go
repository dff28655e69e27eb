package orchestrator

import (
	"context"
	"slices"

	"github.com/hupe1980/docmesh/core"
	"github.com/hupe1980/docmesh/logging"
)

// emit delivers ev to every listener in registration order. A panicking
// listener is recovered and logged; remaining listeners still run.
func (o *Orchestrator) emit(ctx context.Context, ev core.Event) {
	o.listenersMu.RLock()
	listeners := slices.Clone(o.listeners)
	o.listenersMu.RUnlock()

	for _, l := range listeners {
		o.notify(ctx, l, ev)
	}
}

func (o *Orchestrator) notify(ctx context.Context, l core.Listener, ev core.Event) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("Listener panicked", "event", string(ev.Type), "panic", r)
		}
	}()
	l.OnEvent(ctx, ev)
}

// LoggingListener writes every orchestration event to a logger.
//
// Example:
//
//	orch.AddListener(orchestrator.NewLoggingListener(logger))
type LoggingListener struct {
	logger logging.Logger
}

// NewLoggingListener creates a listener logging to logger.
func NewLoggingListener(logger logging.Logger) *LoggingListener {
	return &LoggingListener{logger: logging.OrNoOp(logger)}
}

// OnEvent implements core.Listener.
func (l *LoggingListener) OnEvent(_ context.Context, ev core.Event) {
	args := []any{"event", string(ev.Type)}
	if ev.ContextID != "" {
		args = append(args, "context_id", ev.ContextID)
	}
	if ev.AgentID != "" {
		args = append(args, "agent", ev.AgentID)
	}
	if ev.PlanID != "" {
		args = append(args, "plan_id", ev.PlanID)
	}
	if ev.ExecutionID != "" {
		args = append(args, "execution_id", ev.ExecutionID)
	}
	if ev.Mode != "" {
		args = append(args, "mode", string(ev.Mode))
	}
	if ev.Evaluation != nil {
		args = append(args, "success", ev.Evaluation.Success, "total", ev.Evaluation.Total, "failed", ev.Evaluation.Failed)
	}

	switch ev.Type {
	case core.EventLearningFailed, core.EventPlanningFailed, core.EventExecutionFailed:
		if ev.Err != nil {
			args = append(args, "error", ev.Err.Error())
		}
		l.logger.Warn("Orchestration event", args...)
	case core.EventExecutionStarted:
		l.logger.Debug("Orchestration event", args...)
	default:
		l.logger.Info("Orchestration event", args...)
	}
}
