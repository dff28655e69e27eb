package agent

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/hupe1980/docmesh/core"
	"github.com/hupe1980/docmesh/logging"
	"github.com/hupe1980/docmesh/model"
)

// ResearchAgentID is the registry id of the research agent.
const ResearchAgentID = "research"

const researchSystemPrompt = "You are a research assistant preparing material for technical documentation."

const researchUserPrompt = `Generate up to {{.max_queries}} search queries for researching the following topic:
{{.topic}}
Return one query per line without numbering or commentary.`

// ResearchOutput is written to metadata under ResearchAgentID.
type ResearchOutput struct {
	Topic   string   `json:"topic"`
	Queries []string `json:"queries"`
	Raw     string   `json:"raw"`
}

// ResearchOptions configures a ResearchAgent.
type ResearchOptions struct {
	// ContentFilters are case-insensitive substrings; matching queries are
	// ordered first.
	ContentFilters []string
	// MaxQueries bounds the number of kept queries.
	MaxQueries int
	Priority   int
	Logger     logging.Logger
}

// ResearchAgent asks the model for search queries on the run topic.
type ResearchAgent struct {
	BaseAgent
	model model.Model
	opts  ResearchOptions
}

// NewResearchAgent creates a research agent backed by m.
func NewResearchAgent(m model.Model, optFns ...func(o *ResearchOptions)) (*ResearchAgent, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: research agent requires a model", core.ErrMissingCredential)
	}

	opts := ResearchOptions{MaxQueries: 5, Priority: 3}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxQueries <= 0 {
		opts.MaxQueries = 5
	}

	a := &ResearchAgent{
		BaseAgent: NewBaseAgent(ResearchAgentID, "Research Agent", "research", "query-generation"),
		model:     m,
		opts:      opts,
	}
	a.SetDescription("Generates search queries for a documentation topic")
	a.SetPriority(opts.Priority)
	a.SetLogger(opts.Logger)
	return a, nil
}

// Execute generates queries and stores a ResearchOutput in rc metadata.
func (a *ResearchAgent) Execute(ctx context.Context, rc *core.RunContext, plan *core.Plan) (*core.ExecutionResult, error) {
	start := time.Now()
	t, err := topic(rc, plan)
	if err != nil {
		return nil, err
	}

	user, err := NewInstructionFromText(researchUserPrompt).Render(rc, map[string]any{
		"topic":       t,
		"max_queries": a.opts.MaxQueries,
	})
	if err != nil {
		return nil, err
	}

	resp, err := a.generate(ctx, rc, a.model, model.NewRequest(researchSystemPrompt, user))
	if err != nil {
		return nil, fmt.Errorf("research for %q: %w", t, err)
	}

	out := ResearchOutput{
		Topic:   t,
		Queries: a.rank(parseQueries(resp.Text)),
		Raw:     resp.Text,
	}
	rc.SetMetadata(ResearchAgentID, out)

	res := core.NewSuccessResult(a.ID(), out, start)
	if plan != nil {
		res.PlanID = plan.ID
	}
	return res, nil
}

// rank moves filter matches to the front, keeping relative order, and caps
// the result at MaxQueries.
func (a *ResearchAgent) rank(queries []string) []string {
	var matched, rest []string
	for _, q := range queries {
		if matchesFilter(q, a.opts.ContentFilters) {
			matched = append(matched, q)
		} else {
			rest = append(rest, q)
		}
	}
	out := append(matched, rest...)
	if len(out) > a.opts.MaxQueries {
		out = out[:a.opts.MaxQueries]
	}
	return out
}

func matchesFilter(q string, filters []string) bool {
	lower := strings.ToLower(q)
	for _, f := range filters {
		if f != "" && strings.Contains(lower, strings.ToLower(f)) {
			return true
		}
	}
	return false
}

var listMarker = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s*`)

// parseQueries splits model output into unique, non-empty lines with list
// markers removed.
func parseQueries(text string) []string {
	seen := map[string]bool{}
	var out []string
	for _, line := range strings.Split(text, "\n") {
		q := listMarker.ReplaceAllString(line, "")
		q = strings.Trim(q, "\"'")
		q = strings.TrimSpace(q)
		if q == "" || seen[strings.ToLower(q)] {
			continue
		}
		seen[strings.ToLower(q)] = true
		out = append(out, q)
	}
	return out
}
