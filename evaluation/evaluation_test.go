package evaluation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/docmesh/core"
)

func result(agent string, ok bool, errMsg string, d time.Duration, cpu float64) core.ExecutionResult {
	return core.ExecutionResult{
		AgentID: agent,
		Success: ok,
		Error:   errMsg,
		Metrics: core.ExecutionMetrics{Duration: d, ResourceUsage: core.ResourceUsage{CPU: cpu, Memory: cpu / 2}},
	}
}

func TestAggregate_Empty(t *testing.T) {
	ev := Aggregate(nil)
	assert.True(t, ev.Success)
	assert.Zero(t, ev.TotalDuration)
	assert.Equal(t, core.ResourceUsage{}, ev.AverageResourceUsage)
	assert.Empty(t, ev.Errors)
	assert.Zero(t, ev.Total)
}

func TestAggregate_MixedBatch(t *testing.T) {
	results := []core.ExecutionResult{
		result("a", true, "", 10*time.Millisecond, 0.2),
		result("b", false, "boom", 20*time.Millisecond, 0.4),
		result("c", false, "", 30*time.Millisecond, 0.6),
	}
	ev := Aggregate(results)

	assert.False(t, ev.Success)
	assert.Equal(t, 60*time.Millisecond, ev.TotalDuration)
	assert.InDelta(t, 0.4, ev.AverageResourceUsage.CPU, 1e-9)
	assert.InDelta(t, 0.2, ev.AverageResourceUsage.Memory, 1e-9)
	assert.Equal(t, []string{"boom", "agent c failed"}, ev.Errors)
	assert.Equal(t, 3, ev.Total)
	assert.Equal(t, 2, ev.Failed)
}

func TestAggregate_AllSuccessful(t *testing.T) {
	ev := Aggregate([]core.ExecutionResult{result("a", true, "", time.Second, 1)})
	assert.True(t, ev.Success)
	assert.Empty(t, ev.Errors)
}

func TestAggregator_Idempotent(t *testing.T) {
	results := []core.ExecutionResult{
		result("a", true, "", time.Millisecond, 0.1),
		result("b", false, "x", time.Millisecond, 0.3),
	}
	agg := NewAggregator()
	first, err := agg.Evaluate(context.Background(), results)
	require.NoError(t, err)
	second, err := agg.Evaluate(context.Background(), results)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
