package core

import "testing"

func TestNewPlanAndAction(t *testing.T) {
	a1 := NewAction("research", map[string]any{"topic": "Go"})
	a2 := NewAction("write", nil, a1.ID)
	p := NewPlan("doc", 3, a1, a2)

	if p.ID == "" || a1.ID == "" || a1.ID == a2.ID {
		t.Fatal("expected unique generated ids")
	}
	if p.AgentID != "doc" || p.Priority != 3 || len(p.Actions) != 2 {
		t.Fatalf("unexpected plan: %+v", p)
	}
	if v, ok := a1.Param("topic"); !ok || v.(string) != "Go" {
		t.Fatal("Param lookup failed")
	}
	if _, ok := a2.Param("missing"); ok {
		t.Fatal("expected missing param on nil map")
	}
}

func TestPlan_Clone(t *testing.T) {
	var nilPlan *Plan
	if nilPlan.Clone() != nil {
		t.Fatal("clone of nil plan must be nil")
	}

	p := NewPlan("doc", 1, NewAction("write", map[string]any{"k": "v"}))
	p.Dependencies = []string{"research"}
	cp := p.Clone()
	cp.Actions[0].Parameters["k"] = "changed"
	cp.Dependencies[0] = "other"

	if p.Actions[0].Parameters["k"] != "v" || p.Dependencies[0] != "research" {
		t.Fatal("clone shares state with original")
	}
	if cp.ID != p.ID {
		t.Fatal("clone must keep the plan id")
	}
}
