// Package metrics exposes orchestration activity as Prometheus collectors.
package metrics

import (
	"context"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hupe1980/docmesh/core"
)

const namespace = "docmesh"

// Operation label values.
const (
	OpLearn   = "learn"
	OpPlan    = "plan"
	OpExecute = "execute"
)

// Collector records orchestrator events. Register it with
// orchestrator.Options.Listeners.
type Collector struct {
	AgentCalls       *prometheus.CounterVec
	AgentErrors      *prometheus.CounterVec
	OperationSeconds *prometheus.HistogramVec
	ActiveOperations *prometheus.GaugeVec
	Orchestrations   *prometheus.CounterVec
	Evaluations      *prometheus.CounterVec

	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewCollector creates the collectors and registers them on reg. A nil reg
// leaves them unregistered.
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		AgentCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "agent_calls_total",
				Help:      "Total number of agent calls by operation",
			},
			[]string{"agent", "operation"},
		),
		AgentErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "agent_errors_total",
				Help:      "Total number of agent failures by operation and error type",
			},
			[]string{"agent", "operation", "error_type"},
		),
		OperationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Agent operation duration in seconds",
				Buckets:   []float64{0.1, 0.5, 1.0, 2.0, 5.0, 10.0},
			},
			[]string{"agent", "operation"},
		),
		ActiveOperations: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_operations",
				Help:      "Number of agent executions currently running",
			},
			[]string{"agent"},
		),
		Orchestrations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "orchestrations_total",
				Help:      "Total number of orchestration calls by mode",
			},
			[]string{"mode"},
		),
		Evaluations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "evaluations_total",
				Help:      "Total number of evaluations by outcome",
			},
			[]string{"success"},
		),
		inflight: map[string]struct{}{},
	}
}

// OnEvent implements core.Listener.
func (c *Collector) OnEvent(_ context.Context, ev core.Event) {
	switch ev.Type {
	case core.EventExecutionStarted:
		c.AgentCalls.WithLabelValues(ev.AgentID, OpExecute).Inc()
		if ev.ExecutionID != "" {
			c.mu.Lock()
			c.inflight[ev.ExecutionID] = struct{}{}
			c.mu.Unlock()
			c.ActiveOperations.WithLabelValues(ev.AgentID).Inc()
		}
	case core.EventExecutionComplete:
		c.finish(ev)
	case core.EventExecutionFailed:
		c.finish(ev)
		c.AgentErrors.WithLabelValues(ev.AgentID, OpExecute, errorType(ev.Err)).Inc()
	case core.EventPlanningFailed:
		c.AgentErrors.WithLabelValues(ev.AgentID, OpPlan, errorType(ev.Err)).Inc()
	case core.EventLearningFailed:
		c.AgentErrors.WithLabelValues(ev.AgentID, OpLearn, errorType(ev.Err)).Inc()
	case core.EventOrchestrationComplete:
		c.Orchestrations.WithLabelValues(string(ev.Mode)).Inc()
	case core.EventEvaluationComplete:
		if ev.Evaluation != nil {
			c.Evaluations.WithLabelValues(strconv.FormatBool(ev.Evaluation.Success)).Inc()
		}
	}
}

// finish closes the execution identified by ev.ExecutionID. Failures
// synthesised without a started execution (unknown agent, invalid plan)
// leave the gauge untouched.
func (c *Collector) finish(ev core.Event) {
	c.mu.Lock()
	_, started := c.inflight[ev.ExecutionID]
	delete(c.inflight, ev.ExecutionID)
	c.mu.Unlock()

	if !started {
		return
	}
	c.ActiveOperations.WithLabelValues(ev.AgentID).Dec()
	if ev.Result != nil {
		c.OperationSeconds.WithLabelValues(ev.AgentID, OpExecute).Observe(ev.Result.Metrics.Duration.Seconds())
	}
}

func errorType(err error) string {
	if err == nil {
		return "unknown"
	}
	return string(core.KindOf(err))
}
