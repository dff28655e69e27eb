package core

import (
	"maps"
	"sync"
	"time"
)

// Usage accumulates resource consumption for a run context.
type Usage struct {
	Tokens  int64         `json:"tokens"`
	Cost    float64       `json:"cost"`
	Elapsed time.Duration `json:"elapsed"`
}

// Add returns u plus the non-negative parts of delta. Negative components are
// dropped so a usage counter can never decrease.
func (u Usage) Add(delta Usage) Usage {
	if delta.Tokens > 0 {
		u.Tokens += delta.Tokens
	}
	if delta.Cost > 0 {
		u.Cost += delta.Cost
	}
	if delta.Elapsed > 0 {
		u.Elapsed += delta.Elapsed
	}
	return u
}

// RunContext carries the shared, per-invocation state passed to every agent
// call. It aggregates:
//   - Identity (ID, optional weak Parent link for nested invocations)
//   - Caller supplied Data, copied on creation
//   - Metadata written by agents while executing
//   - A monotonically non-decreasing Usage counter
//
// Data and Metadata are shared between agents. Concurrent writers to the same
// key race and the last write wins; accessors are guarded only so concurrent
// writers cannot corrupt the underlying maps.
type RunContext struct {
	ID        string
	ParentID  string
	Parent    *RunContext
	CreatedAt time.Time

	mu       sync.RWMutex
	data     map[string]any
	metadata map[string]any
	usage    Usage
}

// NewRunContext constructs a RunContext with a fresh id, zero usage and empty
// metadata. data is shallow-copied so later caller mutation does not leak in.
func NewRunContext(data map[string]any, parent *RunContext) *RunContext {
	rc := &RunContext{
		ID:        NewID(),
		Parent:    parent,
		CreatedAt: time.Now().UTC(),
		data:      map[string]any{},
		metadata:  map[string]any{},
	}
	if data != nil {
		rc.data = maps.Clone(data)
	}
	if parent != nil {
		rc.ParentID = parent.ID
	}
	return rc
}

// Get returns a caller data value.
func (rc *RunContext) Get(key string) (any, bool) {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	v, ok := rc.data[key]
	return v, ok
}

// GetString returns a caller data value when it is a string.
func (rc *RunContext) GetString(key string) string {
	v, _ := rc.Get(key)
	s, _ := v.(string)
	return s
}

// Set writes a data value.
func (rc *RunContext) Set(key string, value any) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.data[key] = value
}

// Data returns a shallow copy of the data map.
func (rc *RunContext) Data() map[string]any {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return maps.Clone(rc.data)
}

// GetMetadata returns a value written by an agent.
func (rc *RunContext) GetMetadata(key string) (any, bool) {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	v, ok := rc.metadata[key]
	return v, ok
}

// SetMetadata records an agent-written value. The orchestrator never
// interprets metadata.
func (rc *RunContext) SetMetadata(key string, value any) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.metadata[key] = value
}

// Metadata returns a shallow copy of the metadata map.
func (rc *RunContext) Metadata() map[string]any {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return maps.Clone(rc.metadata)
}

// Usage returns the current usage counter.
func (rc *RunContext) Usage() Usage {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return rc.usage
}

// AddUsage accumulates delta into this context and every ancestor so the
// whole invocation chain observes the consumption.
func (rc *RunContext) AddUsage(delta Usage) {
	for c := rc; c != nil; c = c.Parent {
		c.mu.Lock()
		c.usage = c.usage.Add(delta)
		c.mu.Unlock()
	}
}

// RunContextSnapshot is a serialisable, point-in-time copy of a RunContext.
type RunContextSnapshot struct {
	ID        string         `json:"id"`
	ParentID  string         `json:"parent_id,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	Data      map[string]any `json:"data"`
	Metadata  map[string]any `json:"metadata"`
	Usage     Usage          `json:"usage"`
}

// Snapshot copies the context state.
func (rc *RunContext) Snapshot() RunContextSnapshot {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return RunContextSnapshot{
		ID:        rc.ID,
		ParentID:  rc.ParentID,
		CreatedAt: rc.CreatedAt,
		Data:      maps.Clone(rc.data),
		Metadata:  maps.Clone(rc.metadata),
		Usage:     rc.usage,
	}
}
