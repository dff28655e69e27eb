package core

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across packages. Compare with errors.Is.
var (
	// ErrAgentNotFound is reported when a plan references an unregistered agent.
	ErrAgentNotFound = errors.New("agent not found")
	// ErrTimeout is reported when an agent call exceeds the per-call timeout.
	ErrTimeout = errors.New("agent call timed out")
	// ErrAgentPanic is reported when an agent call panics.
	ErrAgentPanic = errors.New("agent panicked")
	// ErrInvalidPlan is reported when a plan references unknown dependencies.
	ErrInvalidPlan = errors.New("invalid plan")
	// ErrDependencyCycle is reported when action dependencies form a cycle.
	ErrDependencyCycle = errors.New("dependency cycle detected")
	// ErrInvalidInput is returned for bad arguments to public operations.
	ErrInvalidInput = errors.New("invalid input")
	// ErrMissingCredential is returned when a downstream credential is absent.
	ErrMissingCredential = errors.New("missing credential")
	// ErrModelCallLimit is returned once a model call budget is exhausted.
	ErrModelCallLimit = errors.New("model call limit exceeded")
	// ErrNoResult is reported when an agent returns neither a result nor an error.
	ErrNoResult = errors.New("agent returned no result")
)

// ErrorKind classifies isolated orchestration failures.
type ErrorKind string

const (
	ErrorKindPlanning      ErrorKind = "planning"
	ErrorKindExecution     ErrorKind = "execution"
	ErrorKindAgentNotFound ErrorKind = "agent_not_found"
	ErrorKindTimeout       ErrorKind = "timeout"
	ErrorKindValidation    ErrorKind = "validation"
	ErrorKindLearning      ErrorKind = "learning"
)

// ExecutionError wraps a failure local to one agent or plan.
type ExecutionError struct {
	Kind    ErrorKind
	AgentID string
	PlanID  string
	Err     error
}

func (e *ExecutionError) Error() string {
	if e.PlanID != "" {
		return fmt.Sprintf("%s failure for agent %s (plan %s): %v", e.Kind, e.AgentID, e.PlanID, e.Err)
	}
	return fmt.Sprintf("%s failure for agent %s: %v", e.Kind, e.AgentID, e.Err)
}

// Unwrap exposes the underlying cause.
func (e *ExecutionError) Unwrap() error { return e.Err }

// KindOf returns the ErrorKind of err, deriving it from well-known sentinels
// when err is not an *ExecutionError. Unknown errors are execution failures.
func KindOf(err error) ErrorKind {
	var ee *ExecutionError
	if errors.As(err, &ee) {
		return ee.Kind
	}
	switch {
	case errors.Is(err, ErrAgentNotFound):
		return ErrorKindAgentNotFound
	case errors.Is(err, ErrTimeout):
		return ErrorKindTimeout
	case errors.Is(err, ErrInvalidPlan), errors.Is(err, ErrDependencyCycle):
		return ErrorKindValidation
	default:
		return ErrorKindExecution
	}
}
