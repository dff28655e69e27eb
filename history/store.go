package history

import (
	"context"
	"time"

	"github.com/hupe1980/docmesh/core"
)

// DefaultCapacity bounds history when no capacity is configured.
const DefaultCapacity = 1000

// Entry is one recorded execution result.
type Entry struct {
	ContextID  string               `json:"context_id"`
	Mode       core.Mode            `json:"mode"`
	Result     core.ExecutionResult `json:"result"`
	RecordedAt time.Time            `json:"recorded_at"`
}

// NewEntries converts a batch of results into history entries sharing one
// record time.
func NewEntries(contextID string, mode core.Mode, results []core.ExecutionResult) []Entry {
	now := time.Now().UTC()
	entries := make([]Entry, len(results))
	for i, r := range results {
		entries[i] = Entry{ContextID: contextID, Mode: mode, Result: r, RecordedAt: now}
	}
	return entries
}

// Store persists a bounded sequence of entries.
type Store interface {
	// Append adds entries, evicting the oldest ones past capacity.
	Append(ctx context.Context, entries ...Entry) error
	// List returns up to limit of the most recent entries, oldest first.
	// A limit <= 0 returns everything held.
	List(ctx context.Context, limit int) ([]Entry, error)
	// Len reports the number of entries held.
	Len(ctx context.Context) (int, error)
}
