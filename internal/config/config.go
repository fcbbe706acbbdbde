// Package config loads and validates ivo's YAML configuration: provider
// credentials and wire format, agent run defaults, the volley
// scheduler's concurrency and retry policy, and the slicer's default
// budget and strategy set.
package config

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is ivo's top-level configuration structure.
type Config struct {
	Agent        AgentConfig        `yaml:"agent"`
	Providers    []ProviderConfig   `yaml:"providers"`
	Scheduler    SchedulerConfig    `yaml:"scheduler"`
	Slicer       SlicerConfig       `yaml:"slicer"`
	ContextStore ContextStoreConfig `yaml:"context_store"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// AgentConfig configures the default run parameters for C3.
type AgentConfig struct {
	Provider         string        `yaml:"provider"`
	Model            string        `yaml:"model"`
	MaxTokens        int           `yaml:"max_tokens"`
	Temperature      *float64      `yaml:"temperature"`
	PromptCaching    bool          `yaml:"prompt_caching"`
	ExtendedThinking bool          `yaml:"extended_thinking"`
	ThinkingBudget   int           `yaml:"thinking_budget"`
	MaxToolRounds    int           `yaml:"max_tool_rounds"`
	CallRingCapacity int           `yaml:"call_ring_capacity"`
	RequestTimeout   time.Duration `yaml:"request_timeout"`
}

// WireFormat selects a provider's streaming protocol.
type WireFormat string

const (
	WireOpenAICompat WireFormat = "openai-compat"
	WireAnthropic    WireFormat = "anthropic"
)

// ProviderConfig names one provider endpoint and credential.
type ProviderConfig struct {
	Name       string     `yaml:"name"`
	Wire       WireFormat `yaml:"wire"`
	BaseURL    string     `yaml:"base_url"`
	APIKey     string     `yaml:"api_key"`
	APIKeyEnv  string     `yaml:"api_key_env"`
	OAuthToken string     `yaml:"oauth_token"`
}

// BackoffStrategyName mirrors internal/tasks.BackoffStrategy for config
// purposes, without importing the scheduler package from config.
type BackoffStrategyName string

const (
	BackoffLinear      BackoffStrategyName = "linear"
	BackoffExponential BackoffStrategyName = "exponential"
)

// SchedulerConfig configures the volley scheduler (C5).
type SchedulerConfig struct {
	MaxConcurrent int                 `yaml:"max_concurrent"`
	RetryAttempts int                 `yaml:"retry_attempts"`
	RetryBackoff  BackoffStrategyName `yaml:"retry_backoff"`
	BackoffBase   time.Duration       `yaml:"backoff_base"`
	Timeout       time.Duration       `yaml:"timeout"`
}

// SlicerConfig configures the context slicer's (C6/C7) defaults.
type SlicerConfig struct {
	BudgetTokens     int      `yaml:"budget_tokens"`
	WarningThreshold float64  `yaml:"warning_threshold"`
	Intensity        string   `yaml:"intensity"`
	Strategies       []string `yaml:"strategies"`
}

// ContextStoreConfig configures the context store (C8).
type ContextStoreConfig struct {
	CleanupMaxAge   time.Duration `yaml:"cleanup_max_age"`
	CleanupMaxCount int           `yaml:"cleanup_max_count"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads, env-expands, and decodes the YAML config at path, then
// applies environment variable overrides, fills defaults, and
// validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	decoder := yaml.NewDecoder(strings.NewReader(expanded))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("parse config: expected a single document")
	}

	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)
	resolveProviderCredentials(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("IVO_MODEL")); v != "" {
		cfg.Agent.Model = v
	}
	if v := strings.TrimSpace(os.Getenv("IVO_MAX_TOOL_ROUNDS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Agent.MaxToolRounds = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("IVO_MAX_CONCURRENT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Scheduler.MaxConcurrent = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("IVO_BUDGET_TOKENS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Slicer.BudgetTokens = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("IVO_LOG_LEVEL")); v != "" {
		cfg.Logging.Level = v
	}
}

// resolveProviderCredentials reads api_key_env into api_key when the
// latter is unset, so a config file never needs to embed a secret.
func resolveProviderCredentials(cfg *Config) {
	for i := range cfg.Providers {
		p := &cfg.Providers[i]
		if p.APIKey == "" && p.APIKeyEnv != "" {
			p.APIKey = os.Getenv(p.APIKeyEnv)
		}
	}
}

func validate(cfg *Config) error {
	if cfg.Agent.Model == "" {
		return fmt.Errorf("agent.model is required")
	}
	for _, p := range cfg.Providers {
		if p.Name == "" {
			return fmt.Errorf("providers: name is required")
		}
		if p.Wire != WireOpenAICompat && p.Wire != WireAnthropic {
			return fmt.Errorf("providers.%s: unsupported wire format %q", p.Name, p.Wire)
		}
	}
	if cfg.Scheduler.MaxConcurrent <= 0 {
		return fmt.Errorf("scheduler.max_concurrent must be positive")
	}
	if cfg.Slicer.WarningThreshold <= 0 || cfg.Slicer.WarningThreshold > 1 {
		return fmt.Errorf("slicer.warning_threshold must be in (0, 1]")
	}
	return nil
}
