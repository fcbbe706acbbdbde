package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ivo.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
agent:
  model: claude-sonnet
providers:
  - name: anthropic
    wire: anthropic
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Agent.MaxToolRounds != 50 {
		t.Fatalf("expected default max_tool_rounds 50, got %d", cfg.Agent.MaxToolRounds)
	}
	if cfg.Scheduler.MaxConcurrent != 3 {
		t.Fatalf("expected default max_concurrent 3, got %d", cfg.Scheduler.MaxConcurrent)
	}
	if cfg.Scheduler.RetryBackoff != BackoffExponential {
		t.Fatalf("expected default backoff exponential, got %v", cfg.Scheduler.RetryBackoff)
	}
	if cfg.Slicer.BudgetTokens != 32000 {
		t.Fatalf("expected default budget 32000, got %d", cfg.Slicer.BudgetTokens)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := writeConfig(t, `
agent:
  model: claude-sonnet
  bogus_field: true
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for unknown field")
	}
}

func TestLoadRequiresAgentModel(t *testing.T) {
	path := writeConfig(t, `
providers:
  - name: anthropic
    wire: anthropic
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for missing agent.model")
	}
}

func TestLoadRejectsUnsupportedWireFormat(t *testing.T) {
	path := writeConfig(t, `
agent:
  model: claude-sonnet
providers:
  - name: bogus
    wire: carrier-pigeon
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for unsupported wire format")
	}
}

func TestLoadExpandsEnvVars(t *testing.T) {
	t.Setenv("IVO_TEST_MODEL", "claude-opus")
	path := writeConfig(t, `
agent:
  model: ${IVO_TEST_MODEL}
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Agent.Model != "claude-opus" {
		t.Fatalf("expected expanded model, got %q", cfg.Agent.Model)
	}
}

func TestLoadResolvesAPIKeyFromEnv(t *testing.T) {
	t.Setenv("TEST_PROVIDER_KEY", "secret-value")
	path := writeConfig(t, `
agent:
  model: claude-sonnet
providers:
  - name: anthropic
    wire: anthropic
    api_key_env: TEST_PROVIDER_KEY
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Providers[0].APIKey != "secret-value" {
		t.Fatalf("expected resolved api key, got %q", cfg.Providers[0].APIKey)
	}
}

func TestEnvOverrideTakesPrecedenceOverFile(t *testing.T) {
	t.Setenv("IVO_MODEL", "claude-override")
	path := writeConfig(t, `
agent:
  model: claude-sonnet
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Agent.Model != "claude-override" {
		t.Fatalf("expected env override to win, got %q", cfg.Agent.Model)
	}
}

func TestWatcherReloadsOnChange(t *testing.T) {
	path := writeConfig(t, `
agent:
  model: claude-sonnet
`)

	reloaded := make(chan *Config, 1)
	w := NewWatcher(path, 20*time.Millisecond, func(cfg *Config) {
		select {
		case reloaded <- cfg:
		default:
		}
	}, func(error) {})

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(path, []byte("agent:\n  model: claude-updated\n"), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	select {
	case cfg := <-reloaded:
		if cfg.Agent.Model != "claude-updated" {
			t.Fatalf("expected reloaded model claude-updated, got %q", cfg.Agent.Model)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for reload")
	}
}
