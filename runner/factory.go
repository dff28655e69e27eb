package runner

import (
	"context"
	"fmt"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"

	"github.com/hupe1980/docmesh/agent"
	"github.com/hupe1980/docmesh/config"
	"github.com/hupe1980/docmesh/core"
	"github.com/hupe1980/docmesh/history"
	"github.com/hupe1980/docmesh/logging"
	"github.com/hupe1980/docmesh/model"
	"github.com/hupe1980/docmesh/model/anthropic"
	"github.com/hupe1980/docmesh/model/openai"
)

// NewModel builds the configured model provider wrapped in a rate and call
// budget limiter. Hosted providers fail fast with core.ErrMissingCredential
// when no API key is configured.
func NewModel(cfg config.ModelConfig) (model.Model, error) {
	var m model.Model
	switch cfg.Provider {
	case "mock":
		name := cfg.Name
		if name == "" {
			name = "mock"
		}
		m = model.NewMockModel(name, "mock")
	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("%w: OPENAI_API_KEY is not set", core.ErrMissingCredential)
		}
		m = openai.NewModel(func(o *openai.Options) {
			o.APIKey = cfg.APIKey
			o.BaseURL = cfg.BaseURL
			if cfg.Name != "" {
				o.Model = cfg.Name
			}
			o.Temperature = cfg.Temperature
			if cfg.MaxTokens > 0 {
				o.MaxCompletionTokens = cfg.MaxTokens
			}
		})
	case "anthropic":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("%w: ANTHROPIC_API_KEY is not set", core.ErrMissingCredential)
		}
		m = anthropic.NewModel(func(o *anthropic.Options) {
			o.APIKey = cfg.APIKey
			o.BaseURL = cfg.BaseURL
			if cfg.Name != "" {
				o.Model = anthropicsdk.Model(cfg.Name)
			}
			o.Temperature = cfg.Temperature
			if cfg.MaxTokens > 0 {
				o.MaxTokens = cfg.MaxTokens
			}
		})
	default:
		return nil, fmt.Errorf("%w: unknown model provider %q", core.ErrInvalidInput, cfg.Provider)
	}

	return model.NewLimited(m, func(o *model.LimitOptions) {
		o.CallsPerMinute = cfg.CallsPerMinute
		o.MaxCalls = cfg.MaxCalls
	}), nil
}

// NewHistory builds the configured history store.
func NewHistory(ctx context.Context, cfg config.HistoryConfig) (history.Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return history.NewInMemoryStore(cfg.Capacity), nil
	case "redis":
		return history.NewRedisStoreFromURL(ctx, cfg.RedisURL, func(o *history.RedisOptions) {
			if cfg.Key != "" {
				o.Key = cfg.Key
			}
			if cfg.Capacity > 0 {
				o.Capacity = cfg.Capacity
			}
		})
	default:
		return nil, fmt.Errorf("%w: unknown history backend %q", core.ErrInvalidInput, cfg.Backend)
	}
}

// NewDocumentationAgents builds the research, documentation and prompt
// optimisation agents in pipeline order.
func NewDocumentationAgents(m model.Model, cfg *config.Config, logger logging.Logger) ([]core.Agent, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	research, err := agent.NewResearchAgent(m, func(o *agent.ResearchOptions) {
		o.ContentFilters = cfg.Research.ContentFilters
		if cfg.Research.MaxQueries > 0 {
			o.MaxQueries = cfg.Research.MaxQueries
		}
		o.Logger = logger
	})
	if err != nil {
		return nil, err
	}

	doc, err := agent.NewDocumentationAgent(m, func(o *agent.DocumentationOptions) {
		d := cfg.Documentation
		if d.Audience != "" {
			o.Audience = d.Audience
		}
		if d.TechnicalLevel != "" {
			o.TechnicalLevel = agent.TechnicalLevel(d.TechnicalLevel)
		}
		if d.Format != "" {
			o.Format = d.Format
		}
		if d.StyleGuide != "" {
			o.StyleGuide = d.StyleGuide
		}
		if d.Language != "" {
			o.Language = d.Language
		}
		if cfg.Model.MaxTokens > 0 {
			o.MaxTokens = cfg.Model.MaxTokens
		}
		o.Temperature = cfg.Model.Temperature
		o.DependsOn = []string{agent.ResearchAgentID}
		o.Logger = logger
	})
	if err != nil {
		return nil, err
	}

	prompt, err := agent.NewPromptAgent(m, func(o *agent.PromptOptions) {
		if cfg.Prompt.Level != "" {
			o.Level = agent.OptimizationLevel(cfg.Prompt.Level)
		}
		o.Parameters = cfg.Prompt.Parameters
		o.Logger = logger
	})
	if err != nil {
		return nil, err
	}

	return []core.Agent{research, doc, prompt}, nil
}
