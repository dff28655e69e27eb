package model

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/hupe1980/docmesh/core"
)

// DefaultCallsPerMinute mirrors the provider quota docmesh assumes by default.
const DefaultCallsPerMinute = 60

// LimitOptions configures Limited.
type LimitOptions struct {
	// CallsPerMinute bounds the sustained call rate. Bursts up to the same
	// number of calls are allowed. A negative value disables rate limiting.
	CallsPerMinute int
	// MaxCalls bounds the total number of calls (0 = unlimited).
	MaxCalls int
}

// Limited wraps a Model with a token bucket rate limiter and a call budget.
type Limited struct {
	next    Model
	limiter *rate.Limiter
	budget  *core.ModelLimiter
}

// NewLimited wraps next.
func NewLimited(next Model, optFns ...func(o *LimitOptions)) *Limited {
	opts := LimitOptions{CallsPerMinute: DefaultCallsPerMinute}
	for _, fn := range optFns {
		fn(&opts)
	}

	l := &Limited{next: next, budget: core.NewModelLimiter(opts.MaxCalls)}
	if opts.CallsPerMinute == 0 {
		opts.CallsPerMinute = DefaultCallsPerMinute
	}
	if opts.CallsPerMinute > 0 {
		l.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.CallsPerMinute)), opts.CallsPerMinute)
	}
	return l
}

// Generate implements Model. The budget is checked before waiting for the
// rate limiter so exhausted callers fail fast.
func (l *Limited) Generate(ctx context.Context, req Request) (*Response, error) {
	if err := l.budget.Increment(); err != nil {
		return nil, err
	}
	if l.limiter != nil {
		if err := l.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}
	return l.next.Generate(ctx, req)
}

// Info implements Model.
func (l *Limited) Info() Info { return l.next.Info() }

// Remaining reports how many calls are left in the budget (-1 = unlimited).
func (l *Limited) Remaining() int { return l.budget.Remaining() }
