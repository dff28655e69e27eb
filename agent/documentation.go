package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/docmesh/core"
	"github.com/hupe1980/docmesh/internal/util"
	"github.com/hupe1980/docmesh/logging"
	"github.com/hupe1980/docmesh/model"
)

// DocumentationAgentID is the registry id of the documentation agent.
const DocumentationAgentID = "documentation"

// TechnicalLevel is the reader expertise the documentation targets.
type TechnicalLevel string

const (
	LevelBeginner     TechnicalLevel = "beginner"
	LevelIntermediate TechnicalLevel = "intermediate"
	LevelAdvanced     TechnicalLevel = "advanced"
)

// TechnicalLevels lists the accepted technical levels.
var TechnicalLevels = []string{string(LevelBeginner), string(LevelIntermediate), string(LevelAdvanced)}

// Section titles recognised when organising generated content, in output order.
var SectionTitles = []string{
	"Overview",
	"Prerequisites",
	"Installation",
	"Usage",
	"Examples",
	"API Reference",
	"Troubleshooting",
}

var requiredSections = []string{"Overview", "Prerequisites", "Usage"}

const defaultDocSystemPrompt = `You are a technical documentation writer specializing in {{.level}} level content.
Your task is to create clear, concise, and accurate documentation that is appropriate for {{.audience}}.
Follow the {{.style_guide}} style guide and ensure the documentation is well-structured and easy to follow.
Write in language "{{.language}}".`

const docUserPrompt = `Create documentation for the following topic: {{.topic}}

Technical Level: {{.level}}
Target Audience: {{.audience}}
Format: {{.format}}

Content to document:
{{.content}}

Please structure the documentation appropriately for the specified technical level
and target audience. Include examples where relevant.`

// Section is one organised part of a generated document.
type Section struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Document is written to metadata under DocumentationAgentID.
type Document struct {
	Topic    string    `json:"topic"`
	Format   string    `json:"format"`
	Content  string    `json:"content"`
	Sections []Section `json:"sections"`
	Issues   []string  `json:"issues,omitempty"`
	Valid    bool      `json:"valid"`
}

// Section returns the content of the named section.
func (d Document) Section(title string) string {
	for _, s := range d.Sections {
		if s.Title == title {
			return s.Content
		}
	}
	return ""
}

// DocumentationOptions configures a DocumentationAgent.
type DocumentationOptions struct {
	Audience       string
	TechnicalLevel TechnicalLevel
	Format         string
	StyleGuide     string
	Language       string
	Priority       int
	// DependsOn names plans or agents expected to complete first.
	DependsOn   []string
	MaxTokens   int64
	Temperature float64
	// SystemInstruction overrides the default system prompt template.
	SystemInstruction Instruction
	Logger            logging.Logger
}

// DocumentationAgent writes documentation for the run topic.
type DocumentationAgent struct {
	BaseAgent
	model model.Model
	opts  DocumentationOptions
}

// NewDocumentationAgent creates a documentation agent backed by m.
func NewDocumentationAgent(m model.Model, optFns ...func(o *DocumentationOptions)) (*DocumentationAgent, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: documentation agent requires a model", core.ErrMissingCredential)
	}

	opts := DocumentationOptions{
		Audience:       "developers",
		TechnicalLevel: LevelIntermediate,
		Format:         "markdown",
		StyleGuide:     "default",
		Language:       "en",
		Priority:       2,
		MaxTokens:      2000,
		Temperature:    0.7,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if err := util.OneOf("technical_level", string(opts.TechnicalLevel), false, TechnicalLevels...); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidInput, err)
	}
	if opts.SystemInstruction.IsZero() {
		opts.SystemInstruction = NewInstructionFromText(defaultDocSystemPrompt)
	}

	a := &DocumentationAgent{
		BaseAgent: NewBaseAgent(DocumentationAgentID, "Documentation Agent", "documentation", "content-organization", "validation"),
		model:     m,
		opts:      opts,
	}
	a.SetDescription("Generates, organises and validates technical documentation")
	a.SetPriority(opts.Priority)
	a.SetDependsOn(opts.DependsOn...)
	a.SetLogger(opts.Logger)
	return a, nil
}

// Execute generates a Document and stores it in rc metadata. Validation
// issues are reported on the document and never fail the run.
func (a *DocumentationAgent) Execute(ctx context.Context, rc *core.RunContext, plan *core.Plan) (*core.ExecutionResult, error) {
	start := time.Now()
	t, err := topic(rc, plan)
	if err != nil {
		return nil, err
	}

	vars := map[string]any{
		"topic":       t,
		"level":       string(a.opts.TechnicalLevel),
		"audience":    a.opts.Audience,
		"format":      a.opts.Format,
		"style_guide": a.opts.StyleGuide,
		"language":    a.opts.Language,
		"content":     sourceContent(rc, t),
	}
	system, err := a.opts.SystemInstruction.Render(rc, vars)
	if err != nil {
		return nil, fmt.Errorf("render system prompt: %w", err)
	}
	user, err := util.RenderTemplate(docUserPrompt, vars)
	if err != nil {
		return nil, fmt.Errorf("render user prompt: %w", err)
	}

	req := model.NewRequest(system, user)
	req.MaxTokens = a.opts.MaxTokens
	temp := a.opts.Temperature
	req.Temperature = &temp

	resp, err := a.generate(ctx, rc, a.model, req)
	if err != nil {
		return nil, fmt.Errorf("generate documentation for %q: %w", t, err)
	}

	content := a.format(resp.Text)
	issues := Validate(content, a.opts.TechnicalLevel)
	for _, issue := range issues {
		a.Logger().Warn("documentation validation issue", "topic", t, "issue", issue)
	}

	doc := Document{
		Topic:    t,
		Format:   a.opts.Format,
		Content:  content,
		Sections: OrganizeSections(content),
		Issues:   issues,
		Valid:    len(issues) == 0,
	}
	rc.SetMetadata(DocumentationAgentID, doc)

	res := core.NewSuccessResult(a.ID(), doc, start)
	if plan != nil {
		res.PlanID = plan.ID
	}
	return res, nil
}

func (a *DocumentationAgent) format(content string) string {
	switch a.opts.Format {
	case "markdown", "html":
	default:
		a.Logger().Warn("unsupported documentation format", "format", a.opts.Format)
	}
	return content
}

// sourceContent picks the material to document: research queries when
// available, then caller supplied "content", then the topic itself.
func sourceContent(rc *core.RunContext, topic string) string {
	if v, ok := rc.GetMetadata(ResearchAgentID); ok {
		if r, ok := v.(ResearchOutput); ok && len(r.Queries) > 0 {
			var b strings.Builder
			b.WriteString("Research questions:\n")
			for _, q := range r.Queries {
				b.WriteString("- " + q + "\n")
			}
			return strings.TrimRight(b.String(), "\n")
		}
	}
	if s := rc.GetString("content"); s != "" {
		return s
	}
	return topic
}

// OrganizeSections splits content into the known sections by header line.
// Text before the first known header belongs to Overview. Unknown headers are
// dropped and their text stays in the current section.
func OrganizeSections(content string) []Section {
	bodies := make(map[string]*strings.Builder, len(SectionTitles))
	for _, t := range SectionTitles {
		bodies[t] = &strings.Builder{}
	}

	current := "Overview"
	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(line, "#") {
			name := strings.TrimSpace(strings.Trim(line, "#"))
			if _, ok := bodies[name]; ok {
				current = name
			}
			continue
		}
		bodies[current].WriteString(line + "\n")
	}

	out := make([]Section, 0, len(SectionTitles))
	for _, t := range SectionTitles {
		out = append(out, Section{Title: t, Content: strings.TrimSpace(bodies[t].String())})
	}
	return out
}

// Validate returns the problems found in generated documentation. Required
// sections must appear as "# <title>" and a code fence is expected unless the
// level is beginner.
func Validate(content string, level TechnicalLevel) []string {
	var issues []string
	for _, s := range requiredSections {
		if !strings.Contains(content, "# "+s) {
			issues = append(issues, "missing required section: "+s)
		}
	}
	if level != LevelBeginner && !strings.Contains(content, "```") {
		issues = append(issues, "missing code examples")
	}
	return issues
}
