// Package config loads docmesh settings from YAML, a .env file and the
// process environment, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/docmesh/agent"
	"github.com/hupe1980/docmesh/internal/util"
)

// Config holds all configuration for docmesh.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Log           LogConfig           `yaml:"log"`
	Orchestrator  OrchestratorConfig  `yaml:"orchestrator"`
	History       HistoryConfig       `yaml:"history"`
	Model         ModelConfig         `yaml:"model"`
	Tracing       TracingConfig       `yaml:"tracing"`
	Pipeline      PipelineConfig      `yaml:"pipeline"`
	Documentation DocumentationConfig `yaml:"documentation"`
	Prompt        PromptConfig        `yaml:"prompt"`
	Research      ResearchConfig      `yaml:"research"`
}

type ServerConfig struct {
	Addr          string        `yaml:"addr"`
	ReadTimeout   time.Duration `yaml:"read_timeout"`
	WriteTimeout  time.Duration `yaml:"write_timeout"`
	ShutdownGrace time.Duration `yaml:"shutdown_grace"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "text"
}

type OrchestratorConfig struct {
	CallTimeout   time.Duration `yaml:"call_timeout"`
	MaxParallel   int           `yaml:"max_parallel"` // 0 = unlimited
	MaxContexts   int           `yaml:"max_contexts"`
	ValidatePlans bool          `yaml:"validate_plans"`
}

type HistoryConfig struct {
	Backend  string `yaml:"backend"` // "memory" or "redis"
	Capacity int    `yaml:"capacity"`
	RedisURL string `yaml:"redis_url"`
	Key      string `yaml:"key"`
}

type ModelConfig struct {
	Provider       string  `yaml:"provider"` // "openai", "anthropic" or "mock"
	Name           string  `yaml:"name"`
	APIKey         string  `yaml:"api_key"`
	BaseURL        string  `yaml:"base_url"`
	Temperature    float64 `yaml:"temperature"`
	MaxTokens      int64   `yaml:"max_tokens"`
	CallsPerMinute int     `yaml:"calls_per_minute"`
	MaxCalls       int     `yaml:"max_calls"` // per model instance, 0 = unlimited
}

type TracingConfig struct {
	Exporter    string `yaml:"exporter"` // "none" or "stdout"
	ServiceName string `yaml:"service_name"`
}

type PipelineConfig struct {
	ErrorHandling string `yaml:"error_handling"` // "lenient" or "strict"
	MaxRetries    int    `yaml:"max_retries"`
}

type DocumentationConfig struct {
	Audience       string `yaml:"audience"`
	TechnicalLevel string `yaml:"technical_level"`
	Format         string `yaml:"format"`
	StyleGuide     string `yaml:"style_guide"`
	Language       string `yaml:"language"`
}

type PromptConfig struct {
	Level      string         `yaml:"level"`
	Parameters map[string]any `yaml:"parameters"`
}

type ResearchConfig struct {
	ContentFilters []string `yaml:"content_filters"`
	MaxQueries     int      `yaml:"max_queries"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:          ":8080",
			ReadTimeout:   30 * time.Second,
			WriteTimeout:  5 * time.Minute,
			ShutdownGrace: 10 * time.Second,
		},
		Log: LogConfig{Level: "info", Format: "json"},
		Orchestrator: OrchestratorConfig{
			CallTimeout:   5 * time.Minute,
			MaxContexts:   1000,
			ValidatePlans: true,
		},
		History: HistoryConfig{Backend: "memory", Capacity: 1000, Key: "docmesh:history"},
		Model: ModelConfig{
			Provider:       "openai",
			Temperature:    0.7,
			MaxTokens:      2000,
			CallsPerMinute: 60,
		},
		Tracing:  TracingConfig{Exporter: "none", ServiceName: "docmesh"},
		Pipeline: PipelineConfig{ErrorHandling: "lenient"},
		Documentation: DocumentationConfig{
			Audience:       "developers",
			TechnicalLevel: "intermediate",
			Format:         "markdown",
			StyleGuide:     "default",
			Language:       "en",
		},
		Prompt:   PromptConfig{Level: "balanced"},
		Research: ResearchConfig{MaxQueries: 5},
	}
}

// Load builds a Config from defaults, the optional YAML file at path and the
// environment. envFiles are loaded first; they never override variables that
// are already set. Missing env files are ignored.
func Load(path string, envFiles ...string) (*Config, error) {
	if err := LoadDotEnv(envFiles...); err != nil {
		return nil, err
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv loads the given .env files, skipping the ones that do not exist.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return err
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load env file %s: %w", p, err)
		}
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Server.Addr = getEnv("DOCMESH_ADDR", c.Server.Addr)
	c.Server.ReadTimeout = getDuration("DOCMESH_READ_TIMEOUT", c.Server.ReadTimeout)
	c.Server.WriteTimeout = getDuration("DOCMESH_WRITE_TIMEOUT", c.Server.WriteTimeout)

	c.Log.Level = getEnv("DOCMESH_LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("DOCMESH_LOG_FORMAT", c.Log.Format)

	c.Orchestrator.CallTimeout = getDuration("DOCMESH_CALL_TIMEOUT", c.Orchestrator.CallTimeout)
	c.Orchestrator.MaxParallel = getInt("DOCMESH_MAX_PARALLEL", c.Orchestrator.MaxParallel)
	c.Orchestrator.MaxContexts = getInt("DOCMESH_MAX_CONTEXTS", c.Orchestrator.MaxContexts)
	c.Orchestrator.ValidatePlans = getBool("DOCMESH_VALIDATE_PLANS", c.Orchestrator.ValidatePlans)

	c.History.Backend = getEnv("DOCMESH_HISTORY_BACKEND", c.History.Backend)
	c.History.Capacity = getInt("DOCMESH_HISTORY_CAPACITY", c.History.Capacity)
	c.History.RedisURL = getEnv("REDIS_URL", c.History.RedisURL)

	c.Model.Provider = getEnv("DOCMESH_MODEL_PROVIDER", c.Model.Provider)
	c.Model.Name = getEnv("DOCMESH_MODEL_NAME", c.Model.Name)
	c.Model.CallsPerMinute = getInt("DOCMESH_CALLS_PER_MINUTE", c.Model.CallsPerMinute)
	c.Model.MaxCalls = getInt("DOCMESH_MAX_CALLS", c.Model.MaxCalls)
	if c.Model.APIKey == "" {
		switch c.Model.Provider {
		case "openai":
			c.Model.APIKey = getEnv("OPENAI_API_KEY", "")
		case "anthropic":
			c.Model.APIKey = getEnv("ANTHROPIC_API_KEY", "")
		}
	}

	c.Tracing.Exporter = getEnv("DOCMESH_TRACING_EXPORTER", c.Tracing.Exporter)

	c.Pipeline.ErrorHandling = getEnv("DOCMESH_ERROR_HANDLING", c.Pipeline.ErrorHandling)
	c.Pipeline.MaxRetries = getInt("DOCMESH_MAX_RETRIES", c.Pipeline.MaxRetries)

	c.Research.ContentFilters = getStringSlice("DOCMESH_CONTENT_FILTERS", c.Research.ContentFilters)
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	errs := []error{
		util.OneOf("log.level", strings.ToLower(c.Log.Level), false, "debug", "info", "warn", "warning", "error"),
		util.OneOf("log.format", c.Log.Format, false, "json", "text"),
		util.OneOf("history.backend", c.History.Backend, false, "memory", "redis"),
		util.OneOf("model.provider", c.Model.Provider, false, "openai", "anthropic", "mock"),
		util.OneOf("tracing.exporter", c.Tracing.Exporter, true, "none", "stdout"),
		util.OneOf("pipeline.error_handling", c.Pipeline.ErrorHandling, false, "lenient", "strict"),
		util.OneOf("documentation.technical_level", c.Documentation.TechnicalLevel, false, agent.TechnicalLevels...),
		util.OneOf("prompt.level", c.Prompt.Level, false, agent.OptimizationLevels...),
	}

	if c.Orchestrator.MaxParallel < 0 {
		errs = append(errs, &util.ValidationError{Field: "orchestrator.max_parallel", Value: c.Orchestrator.MaxParallel, Message: "must not be negative"})
	}
	if c.Orchestrator.MaxContexts <= 0 {
		errs = append(errs, &util.ValidationError{Field: "orchestrator.max_contexts", Value: c.Orchestrator.MaxContexts, Message: "must be positive"})
	}
	if c.History.Capacity <= 0 {
		errs = append(errs, &util.ValidationError{Field: "history.capacity", Value: c.History.Capacity, Message: "must be positive"})
	}
	if c.History.Backend == "redis" && c.History.RedisURL == "" {
		errs = append(errs, &util.ValidationError{Field: "history.redis_url", Message: "is required for the redis backend"})
	}
	if c.Model.Temperature < 0 || c.Model.Temperature > 2 {
		errs = append(errs, &util.ValidationError{Field: "model.temperature", Value: c.Model.Temperature, Message: "must be between 0 and 2"})
	}
	if c.Pipeline.MaxRetries < 0 {
		errs = append(errs, &util.ValidationError{Field: "pipeline.max_retries", Value: c.Pipeline.MaxRetries, Message: "must not be negative"})
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

func getStringSlice(key string, defaultVal []string) []string {
	if val := os.Getenv(key); val != "" {
		var out []string
		for _, s := range strings.Split(val, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return defaultVal
}
