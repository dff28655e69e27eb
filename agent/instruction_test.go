package agent

import (
	"errors"
	"testing"

	"github.com/hupe1980/docmesh/core"
)

func TestInstruction_Static(t *testing.T) {
	inst := NewInstructionFromText("static instruction")
	if !inst.IsStatic() || inst.IsZero() {
		t.Fatalf("expected static instruction")
	}
	got, err := inst.Resolve(core.NewRunContext(nil, nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "static instruction" {
		t.Fatalf("expected 'static instruction', got %q", got)
	}
}

func TestInstruction_Provider(t *testing.T) {
	inst := NewInstructionFromFunc(func(rc *core.RunContext) (string, error) {
		return "Write about {{.topic}} for " + rc.GetString("audience"), nil
	})
	if inst.IsStatic() {
		t.Fatalf("expected dynamic instruction")
	}
	rc := core.NewRunContext(map[string]any{"audience": "students"}, nil)
	got, err := inst.Render(rc, map[string]any{"topic": "channels"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Write about channels for students" {
		t.Fatalf("unexpected render %q", got)
	}
}

func TestInstruction_ProviderError(t *testing.T) {
	boom := errors.New("boom")
	inst := NewInstructionFromProvider(Func(func(*core.RunContext) (string, error) { return "", boom }))
	if _, err := inst.Render(core.NewRunContext(nil, nil), nil); !errors.Is(err, boom) {
		t.Fatalf("expected provider error, got %v", err)
	}
	if !(Instruction{}).IsZero() {
		t.Fatalf("zero instruction must report IsZero")
	}
}
