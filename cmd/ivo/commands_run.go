package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ivo-run/ivo/internal/agent"
	"github.com/ivo-run/ivo/internal/config"
	"github.com/ivo-run/ivo/internal/providers"
	"github.com/ivo-run/ivo/internal/tools"
	"github.com/ivo-run/ivo/internal/tools/exec"
	"github.com/ivo-run/ivo/pkg/models"
)

func buildRunCmd() *cobra.Command {
	var (
		system    string
		workspace string
	)

	cmd := &cobra.Command{
		Use:   "run [task]",
		Short: "Run a single agent turn loop against a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			provider, err := resolveProvider(cfg)
			if err != nil {
				return err
			}

			if workspace == "" {
				workspace, err = os.Getwd()
				if err != nil {
					return err
				}
			}
			manager := exec.NewManager(workspace)
			registry := tools.NewRegistry()
			if err := registry.Register(exec.NewBashTool("bash", manager)); err != nil {
				return fmt.Errorf("register bash tool: %w", err)
			}

			run := agent.NewRun(provider, registry, &agent.RunConfig{
				Model:            cfg.Agent.Model,
				MaxTokens:        cfg.Agent.MaxTokens,
				Temperature:      cfg.Agent.Temperature,
				PromptCaching:    cfg.Agent.PromptCaching,
				ExtendedThinking: cfg.Agent.ExtendedThinking,
				ThinkingBudget:   cfg.Agent.ThinkingBudget,
				MaxToolRounds:    cfg.Agent.MaxToolRounds,
				CallRingCapacity: cfg.Agent.CallRingCapacity,
			})

			_, usage, err := run.Execute(cmd.Context(), system, args[0], printEvent)
			if err != nil {
				return fmt.Errorf("run: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\n\n[tokens: in=%d out=%d]\n", usage.InputTokens, usage.OutputTokens)
			return nil
		},
	}

	cmd.Flags().StringVar(&system, "system", "", "System prompt")
	cmd.Flags().StringVar(&workspace, "workspace", "", "Workspace root for tool execution (defaults to cwd)")
	return cmd
}

func printEvent(e models.AgentEvent) {
	switch e.Type {
	case models.AgentEventTextDelta:
		if e.Text != nil {
			fmt.Print(e.Text.Delta)
		}
	case models.AgentEventThinkingDelta:
		if e.Text != nil {
			fmt.Fprint(os.Stderr, e.Text.Delta)
		}
	case models.AgentEventToolExecutionStart:
		if e.Tool != nil {
			fmt.Fprintf(os.Stderr, "\n[tool] %s...\n", e.Tool.Name)
		}
	case models.AgentEventError:
		if e.Error != nil {
			fmt.Fprintf(os.Stderr, "\n[error] %s\n", e.Error.Message)
		}
	}
}

func resolveProvider(cfg *config.Config) (providers.Stream, error) {
	for _, p := range cfg.Providers {
		if p.Name != cfg.Agent.Provider && cfg.Agent.Provider != "" {
			continue
		}
		switch p.Wire {
		case config.WireAnthropic:
			return providers.NewAnthropic(), nil
		case config.WireOpenAICompat:
			return providers.NewOpenAI(), nil
		}
	}
	return nil, fmt.Errorf("%w: no provider configured matching %q", agent.ErrNoProvider, cfg.Agent.Provider)
}
