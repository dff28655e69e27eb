package graph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/docmesh/core"
)

func action(id string, deps ...string) core.Action {
	return core.Action{ID: id, Type: "step", Dependencies: deps}
}

func TestValidateActions(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		assert.NoError(t, ValidateActions(nil))
	})

	t.Run("dag", func(t *testing.T) {
		err := ValidateActions([]core.Action{action("a"), action("b", "a"), action("c", "a", "b")})
		assert.NoError(t, err)
	})

	t.Run("unknown dependency", func(t *testing.T) {
		err := ValidateActions([]core.Action{action("a", "ghost")})
		require.Error(t, err)
		assert.True(t, errors.Is(err, core.ErrInvalidPlan))
	})

	t.Run("duplicate id", func(t *testing.T) {
		err := ValidateActions([]core.Action{action("a"), action("a")})
		assert.ErrorIs(t, err, core.ErrInvalidPlan)
	})

	t.Run("cycle", func(t *testing.T) {
		err := ValidateActions([]core.Action{action("a", "c"), action("b", "a"), action("c", "b")})
		require.Error(t, err)
		assert.ErrorIs(t, err, core.ErrDependencyCycle)

		var ce *CycleError
		require.True(t, errors.As(err, &ce))
		assert.Equal(t, []string{"a", "c", "b", "a"}, ce.Path)
	})

	t.Run("self loop", func(t *testing.T) {
		err := ValidateActions([]core.Action{action("a", "a")})
		assert.ErrorIs(t, err, core.ErrDependencyCycle)
	})
}

func TestValidatePlan(t *testing.T) {
	known := func(name string) bool { return name == "research" }

	p := core.NewPlan("documentation", 1)
	p.Dependencies = []string{"research"}
	assert.NoError(t, ValidatePlan(p, known))

	p.Dependencies = []string{"unknown"}
	assert.ErrorIs(t, ValidatePlan(p, known), core.ErrInvalidPlan)

	p.Dependencies = []string{"documentation"}
	assert.ErrorIs(t, ValidatePlan(p, known), core.ErrDependencyCycle)

	assert.ErrorIs(t, ValidatePlan(nil, known), core.ErrInvalidInput)
}
