package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/docmesh/core"
	"github.com/hupe1980/docmesh/internal/util"
	"github.com/hupe1980/docmesh/logging"
	"github.com/hupe1980/docmesh/model"
)

// PromptAgentID is the registry id of the prompt optimisation agent.
const PromptAgentID = "prompt-optimization"

// OptimizationLevel selects how far a prompt is rewritten.
type OptimizationLevel string

const (
	OptimizeMinimal    OptimizationLevel = "minimal"
	OptimizeBalanced   OptimizationLevel = "balanced"
	OptimizeAggressive OptimizationLevel = "aggressive"
)

// OptimizationLevels lists the accepted optimisation levels.
var OptimizationLevels = []string{string(OptimizeMinimal), string(OptimizeBalanced), string(OptimizeAggressive)}

const aggressiveSystemPrompt = "You are a prompt optimization expert. Optimize this prompt aggressively while maintaining its core meaning."

// ErrNoPrompt is returned when neither documentation nor a "prompt" data
// value is available.
var ErrNoPrompt = errors.New("no prompt to optimize")

// PromptOutput is written to metadata under PromptAgentID.
type PromptOutput struct {
	Level     OptimizationLevel `json:"level"`
	Original  string            `json:"original"`
	Optimized string            `json:"optimized"`
	// Rewritten is true when the model rewrite succeeded.
	Rewritten bool `json:"rewritten"`
}

// PromptOptions configures a PromptAgent.
type PromptOptions struct {
	Level OptimizationLevel
	// Parameters replace "{key}" placeholders.
	Parameters map[string]any
	Priority   int
	Logger     logging.Logger
}

// PromptAgent optimises the generated documentation (or a caller prompt).
type PromptAgent struct {
	BaseAgent
	model model.Model
	opts  PromptOptions
}

// NewPromptAgent creates a prompt optimisation agent backed by m.
func NewPromptAgent(m model.Model, optFns ...func(o *PromptOptions)) (*PromptAgent, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: prompt agent requires a model", core.ErrMissingCredential)
	}

	opts := PromptOptions{Level: OptimizeBalanced, Priority: 1}
	for _, fn := range optFns {
		fn(&opts)
	}
	if err := util.OneOf("level", string(opts.Level), false, OptimizationLevels...); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidInput, err)
	}

	a := &PromptAgent{
		BaseAgent: NewBaseAgent(PromptAgentID, "Prompt Optimization Agent", "prompt-optimization", "parameter-substitution"),
		model:     m,
		opts:      opts,
	}
	a.SetDescription("Optimises prompts and generated text")
	a.SetPriority(opts.Priority)
	a.SetLogger(opts.Logger)
	return a, nil
}

// Execute optimises the input text and stores a PromptOutput in rc metadata.
func (a *PromptAgent) Execute(ctx context.Context, rc *core.RunContext, plan *core.Plan) (*core.ExecutionResult, error) {
	start := time.Now()
	input, err := promptInput(rc)
	if err != nil {
		return nil, err
	}

	out := PromptOutput{Level: a.opts.Level, Original: input}
	switch a.opts.Level {
	case OptimizeMinimal:
		out.Optimized = strings.TrimSpace(input)
	case OptimizeBalanced:
		out.Optimized = a.balanced(input)
	case OptimizeAggressive:
		out.Optimized = a.balanced(input)
		resp, err := a.generate(ctx, rc, a.model, model.NewRequest(aggressiveSystemPrompt, out.Optimized))
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			a.Logger().Warn("prompt rewrite failed, keeping balanced text", "error", err)
		case strings.TrimSpace(resp.Text) != "":
			out.Optimized = strings.TrimSpace(resp.Text)
			out.Rewritten = true
		}
	}
	rc.SetMetadata(PromptAgentID, out)

	res := core.NewSuccessResult(a.ID(), out, start)
	if plan != nil {
		res.PlanID = plan.ID
	}
	return res, nil
}

func (a *PromptAgent) balanced(text string) string {
	text = util.SubstituteParams(text, a.opts.Parameters)
	text = util.StripFillers(text)
	return util.CollapseWhitespace(text)
}

func promptInput(rc *core.RunContext) (string, error) {
	if v, ok := rc.GetMetadata(DocumentationAgentID); ok {
		switch d := v.(type) {
		case Document:
			if d.Content != "" {
				return d.Content, nil
			}
		case string:
			if d != "" {
				return d, nil
			}
		}
	}
	if s := rc.GetString("prompt"); s != "" {
		return s, nil
	}
	return "", ErrNoPrompt
}
