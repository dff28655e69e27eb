package core

import "time"

// ResourceUsage is a snapshot of normalised (0-1) resource utilisation.
type ResourceUsage struct {
	CPU     float64 `json:"cpu"`
	Memory  float64 `json:"memory"`
	Network float64 `json:"network"`
}

// ExecutionMetrics records timing and resource usage of one execute call.
type ExecutionMetrics struct {
	StartTime     time.Time     `json:"start_time"`
	EndTime       time.Time     `json:"end_time"`
	Duration      time.Duration `json:"duration"`
	ResourceUsage ResourceUsage `json:"resource_usage"`
}

// NewExecutionMetrics derives Duration from start and end, never negative.
func NewExecutionMetrics(start, end time.Time, usage ResourceUsage) ExecutionMetrics {
	d := end.Sub(start)
	if d < 0 {
		d = 0
	}
	return ExecutionMetrics{StartTime: start, EndTime: end, Duration: d, ResourceUsage: usage}
}

// ExecutionResult is the outcome of one agent Execute call. Results are
// returned by value and treated as immutable after creation.
type ExecutionResult struct {
	PlanID  string           `json:"plan_id,omitempty"`
	AgentID string           `json:"agent_id"`
	Success bool             `json:"success"`
	Output  any              `json:"output,omitempty"`
	Error   string           `json:"error,omitempty"`
	Metrics ExecutionMetrics `json:"metrics"`
}

// NewSuccessResult builds a successful result whose metrics span start..now.
func NewSuccessResult(agentID string, output any, start time.Time) *ExecutionResult {
	return &ExecutionResult{
		AgentID: agentID,
		Success: true,
		Output:  output,
		Metrics: NewExecutionMetrics(start, time.Now(), ResourceUsage{}),
	}
}

// NewFailedResult builds a failed result carrying err's message.
func NewFailedResult(agentID, planID string, err error, start, end time.Time) ExecutionResult {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return ExecutionResult{
		PlanID:  planID,
		AgentID: agentID,
		Success: false,
		Error:   msg,
		Metrics: NewExecutionMetrics(start, end, ResourceUsage{}),
	}
}

// EvaluationResult aggregates a batch of execution results. TotalDuration is
// the sum of individual durations (cumulative work, not wall-clock span).
type EvaluationResult struct {
	Success              bool          `json:"success"`
	TotalDuration        time.Duration `json:"total_duration"`
	AverageResourceUsage ResourceUsage `json:"average_resource_usage"`
	Errors               []string      `json:"errors"`
	Total                int           `json:"total"`
	Failed               int           `json:"failed"`
}
