package runner

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"sync"

	"github.com/hupe1980/docmesh/agent"
	"github.com/hupe1980/docmesh/core"
	"github.com/hupe1980/docmesh/logging"
	"github.com/hupe1980/docmesh/orchestrator"
)

// Mode selects how the pipeline agents are scheduled.
type Mode string

const (
	// ModeSequential runs the agents one after another in pipeline order.
	ModeSequential Mode = "sequential"
	// ModeParallel runs the agents concurrently.
	ModeParallel Mode = "parallel"
	// ModeAutonomous lets every registered agent plan; plans run by priority.
	ModeAutonomous Mode = "autonomous"
)

// ErrorHandling selects how a failed evaluation is reported.
type ErrorHandling string

const (
	// Lenient returns failed runs as results.
	Lenient ErrorHandling = "lenient"
	// Strict additionally returns ErrPipelineFailed.
	Strict ErrorHandling = "strict"
)

// ErrPipelineFailed is returned in strict mode when the evaluation fails.
var ErrPipelineFailed = errors.New("documentation pipeline failed")

// DefaultAgentIDs is the pipeline order of the documentation agents.
var DefaultAgentIDs = []string{agent.ResearchAgentID, agent.DocumentationAgentID, agent.PromptAgentID}

// Options holds configuration overrides passed to New().
type Options struct {
	// Mode is used when a request does not name one.
	Mode          Mode
	ErrorHandling ErrorHandling
	// MaxRetries re-runs a failed sequential pipeline on a child context.
	MaxRetries int
	// MaxConcurrentRuns limits concurrent pipeline runs; 0 means unlimited.
	MaxConcurrentRuns int
	// AgentIDs overrides the pipeline agent order.
	AgentIDs []string
	// Invoke options forwarded to every orchestration call.
	Invoke []func(o *orchestrator.InvokeOptions)
	Logger logging.Logger
}

// Request describes one pipeline run.
type Request struct {
	Topic string         `json:"topic"`
	Mode  Mode           `json:"mode,omitempty"`
	Data  map[string]any `json:"data,omitempty"`
}

// Result is the outcome of one pipeline run.
type Result struct {
	ContextID  string                 `json:"context_id"`
	Topic      string                 `json:"topic"`
	Mode       Mode                   `json:"mode"`
	Attempts   int                    `json:"attempts"`
	Results    []core.ExecutionResult `json:"results"`
	Evaluation *core.EvaluationResult `json:"evaluation"`
	Usage      core.Usage             `json:"usage"`
	Outputs    map[string]any         `json:"outputs"`
	Document   *agent.Document        `json:"document,omitempty"`
	Prompt     *agent.PromptOutput    `json:"prompt,omitempty"`
}

// Pipeline runs the documentation agents registered on an orchestrator.
// Public methods are safe for concurrent use.
type Pipeline struct {
	orch *orchestrator.Orchestrator
	opts Options
	sem  chan struct{}

	activeRuns map[string]context.CancelFunc
	mu         sync.Mutex
}

// New constructs a Pipeline with optional overrides.
func New(orch *orchestrator.Orchestrator, optFns ...func(o *Options)) *Pipeline {
	opts := Options{
		Mode:              ModeSequential,
		ErrorHandling:     Lenient,
		MaxConcurrentRuns: 10,
		AgentIDs:          DefaultAgentIDs,
		Logger:            logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	opts.Logger = logging.OrNoOp(opts.Logger)

	p := &Pipeline{
		orch:       orch,
		opts:       opts,
		activeRuns: make(map[string]context.CancelFunc),
	}
	if opts.MaxConcurrentRuns > 0 {
		p.sem = make(chan struct{}, opts.MaxConcurrentRuns)
	}
	return p
}

// ParseMode validates a mode name; empty selects def.
func ParseMode(s string, def Mode) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return def, nil
	case ModeSequential, ModeParallel, ModeAutonomous:
		return m, nil
	default:
		return "", fmt.Errorf("%w: unknown pipeline mode %q", core.ErrInvalidInput, s)
	}
}

// Run executes the pipeline for req and evaluates the results. In strict mode
// a failed evaluation is also returned as an error wrapping
// ErrPipelineFailed; the result is returned either way.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		return nil, fmt.Errorf("%w: topic is required", core.ErrInvalidInput)
	}
	mode, err := ParseMode(string(req.Mode), p.opts.Mode)
	if err != nil {
		return nil, err
	}

	if p.sem != nil {
		select {
		case p.sem <- struct{}{}:
			defer func() { <-p.sem }()
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	data := maps.Clone(req.Data)
	if data == nil {
		data = map[string]any{}
	}
	data["topic"] = topic

	root := p.orch.CreateContext(data, nil)
	ctx, cancel := context.WithCancel(ctx)
	p.mu.Lock()
	p.activeRuns[root.ID] = cancel
	p.mu.Unlock()
	defer func() {
		cancel()
		p.mu.Lock()
		delete(p.activeRuns, root.ID)
		p.mu.Unlock()
	}()

	logger := p.opts.Logger
	if dl, ok := logger.(*logging.DocLogger); ok {
		logger = dl.WithRun(root.ID, "")
	}

	var (
		rc         = root
		results    []core.ExecutionResult
		evaluation *core.EvaluationResult
		attempts   int
	)
	for {
		attempts++
		results, err = p.orchestrate(ctx, mode, rc, topic)
		if err != nil {
			return nil, err
		}
		evaluation, err = p.orch.Evaluate(ctx, results)
		if err != nil {
			return nil, err
		}
		if evaluation.Success || mode != ModeSequential || attempts > p.opts.MaxRetries || ctx.Err() != nil {
			break
		}
		logger.Warn("Pipeline attempt failed, retrying", "topic", topic, "attempt", attempts, "errors", strings.Join(evaluation.Errors, "; "))
		rc = p.orch.CreateContext(data, root)
	}

	res := &Result{
		ContextID:  rc.ID,
		Topic:      topic,
		Mode:       mode,
		Attempts:   attempts,
		Results:    results,
		Evaluation: evaluation,
		Usage:      root.Usage(),
		Outputs:    rc.Metadata(),
	}
	if v, ok := res.Outputs[agent.DocumentationAgentID].(agent.Document); ok {
		res.Document = &v
	}
	if v, ok := res.Outputs[agent.PromptAgentID].(agent.PromptOutput); ok {
		res.Prompt = &v
	}

	logger.Info("Pipeline complete", "topic", topic, "mode", string(mode), "success", evaluation.Success, "attempts", attempts)

	if !evaluation.Success && p.opts.ErrorHandling == Strict {
		return res, fmt.Errorf("%w: %s", ErrPipelineFailed, strings.Join(evaluation.Errors, "; "))
	}
	return res, nil
}

func (p *Pipeline) orchestrate(ctx context.Context, mode Mode, rc *core.RunContext, topic string) ([]core.ExecutionResult, error) {
	switch mode {
	case ModeAutonomous:
		return p.orch.OrchestrateAutonomous(ctx, rc, p.opts.Invoke...)
	case ModeParallel:
		return p.orch.OrchestrateParallel(ctx, rc, p.plans(topic), p.opts.Invoke...)
	default:
		return p.orch.OrchestratePredefined(ctx, rc, p.plans(topic), p.opts.Invoke...)
	}
}

// plans builds one single-action plan per pipeline agent, in pipeline order.
func (p *Pipeline) plans(topic string) []*core.Plan {
	plans := make([]*core.Plan, 0, len(p.opts.AgentIDs))
	for i, id := range p.opts.AgentIDs {
		plans = append(plans, core.NewPlan(id, len(p.opts.AgentIDs)-i, core.NewAction(id, map[string]any{"topic": topic})))
	}
	return plans
}

// Cancel cancels a running pipeline by its root context id.
func (p *Pipeline) Cancel(contextID string) error {
	p.mu.Lock()
	cancel, exists := p.activeRuns[contextID]
	p.mu.Unlock()

	if !exists {
		return fmt.Errorf("run %s not found", contextID)
	}

	cancel()

	return nil
}

// ActiveRuns returns the root context ids of the running pipelines.
func (p *Pipeline) ActiveRuns() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	ids := make([]string, 0, len(p.activeRuns))
	for id := range p.activeRuns {
		ids = append(ids, id)
	}
	return ids
}
