package core

import (
	"context"
	"time"
)

// EventType identifies an orchestration notification.
type EventType string

const (
	EventAgentRegistered       EventType = "agent_registered"
	EventAgentUnregistered     EventType = "agent_unregistered"
	EventContextCreated        EventType = "context_created"
	EventLearningFailed        EventType = "learning_failed"
	EventPlanningFailed        EventType = "planning_failed"
	EventExecutionStarted      EventType = "execution_started"
	EventExecutionComplete     EventType = "execution_complete"
	EventExecutionFailed       EventType = "execution_failed"
	EventOrchestrationComplete EventType = "orchestration_complete"
	EventEvaluationComplete    EventType = "evaluation_complete"
)

// Mode names a scheduling strategy.
type Mode string

const (
	ModeAutonomous Mode = "autonomous"
	ModePredefined Mode = "predefined"
	ModeParallel   Mode = "parallel"
)

// Event is an orchestration notification. Only the fields relevant to the
// event type are populated. Events are delivered synchronously and should be
// treated as immutable by listeners.
//
// ExecutionID ties the started event of one Execute call to its complete or
// failed event. It is empty for failures that never started.
type Event struct {
	Type        EventType         `json:"type"`
	Timestamp   time.Time         `json:"timestamp"`
	ContextID   string            `json:"context_id,omitempty"`
	AgentID     string            `json:"agent_id,omitempty"`
	PlanID      string            `json:"plan_id,omitempty"`
	ExecutionID string            `json:"execution_id,omitempty"`
	Mode        Mode              `json:"mode,omitempty"`
	Result      *ExecutionResult  `json:"result,omitempty"`
	Results     []ExecutionResult `json:"-"`
	Evaluation  *EvaluationResult `json:"evaluation,omitempty"`
	Err         error             `json:"-"`
}

// NewEvent creates an event stamped with the current UTC time.
func NewEvent(t EventType) Event {
	return Event{Type: t, Timestamp: time.Now().UTC()}
}

// Listener observes orchestration events. Listeners may be invoked
// concurrently during parallel orchestration and must be safe for that.
type Listener interface {
	OnEvent(ctx context.Context, ev Event)
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(ctx context.Context, ev Event)

// OnEvent calls f.
func (f ListenerFunc) OnEvent(ctx context.Context, ev Event) { f(ctx, ev) }
