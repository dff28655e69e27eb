package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestExecutionError_UnwrapAndMessage(t *testing.T) {
	err := &ExecutionError{Kind: ErrorKindTimeout, AgentID: "a", PlanID: "p", Err: ErrTimeout}
	if !errors.Is(err, ErrTimeout) {
		t.Fatal("expected ErrTimeout through Unwrap")
	}
	if got := err.Error(); got != "timeout failure for agent a (plan p): agent call timed out" {
		t.Fatalf("unexpected message %q", got)
	}
	noPlan := &ExecutionError{Kind: ErrorKindPlanning, AgentID: "a", Err: errors.New("boom")}
	if got := noPlan.Error(); got != "planning failure for agent a: boom" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestKindOf(t *testing.T) {
	cases := []struct {
		err  error
		want ErrorKind
	}{
		{&ExecutionError{Kind: ErrorKindPlanning, Err: errors.New("x")}, ErrorKindPlanning},
		{fmt.Errorf("wrap: %w", ErrAgentNotFound), ErrorKindAgentNotFound},
		{ErrTimeout, ErrorKindTimeout},
		{ErrDependencyCycle, ErrorKindValidation},
		{ErrInvalidPlan, ErrorKindValidation},
		{errors.New("other"), ErrorKindExecution},
	}
	for _, c := range cases {
		if got := KindOf(c.err); got != c.want {
			t.Errorf("KindOf(%v) = %s, want %s", c.err, got, c.want)
		}
	}
}

func TestModelLimiter(t *testing.T) {
	l := NewModelLimiter(2)
	if err := l.Increment(); err != nil {
		t.Fatal(err)
	}
	if err := l.Increment(); err != nil {
		t.Fatal(err)
	}
	if err := l.Increment(); !errors.Is(err, ErrModelCallLimit) {
		t.Fatalf("expected ErrModelCallLimit, got %v", err)
	}
	if l.Count() != 2 || l.Remaining() != 0 {
		t.Fatalf("count=%d remaining=%d", l.Count(), l.Remaining())
	}
	if NewModelLimiter(0).Remaining() != -1 {
		t.Fatal("zero max must be unlimited")
	}
}
