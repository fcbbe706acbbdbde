package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ivo-run/ivo/internal/agent"
	"github.com/ivo-run/ivo/internal/config"
	"github.com/ivo-run/ivo/internal/tasks"
	"github.com/ivo-run/ivo/internal/tools"
	"github.com/ivo-run/ivo/internal/tools/exec"
	"github.com/ivo-run/ivo/pkg/models"
)

func buildVolleyCmd() *cobra.Command {
	var (
		tasksFile string
		system    string
		workspace string
	)

	cmd := &cobra.Command{
		Use:   "volley",
		Short: "Run a batch of agent tasks concurrently, one per line of a file",
		RunE: func(cmd *cobra.Command, args []string) error {
			batch, err := readTaskLines(tasksFile)
			if err != nil {
				return err
			}
			if len(batch) == 0 {
				return fmt.Errorf("no tasks to run")
			}

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

			volley := tasks.New(tasks.Config{
				MaxConcurrent: cfg.Scheduler.MaxConcurrent,
				RetryAttempts: cfg.Scheduler.RetryAttempts,
				RetryBackoff:  tasks.BackoffStrategy(cfg.Scheduler.RetryBackoff),
				BackoffBase:   cfg.Scheduler.BackoffBase,
				Timeout:       cfg.Scheduler.Timeout,
			})

			execute := func(ctx context.Context, task string, index, attempt int) (models.TaskResult, error) {
				manager := exec.NewManager(workspace)
				registry := tools.NewRegistry()
				if err := registry.Register(exec.NewBashTool("bash", manager)); err != nil {
					return models.TaskResult{}, err
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

				start := time.Now()
				msg, usage, runErr := run.Execute(ctx, system, task, func(models.AgentEvent) {})
				result := models.TaskResult{
					Task:       task,
					DurationMs: time.Since(start).Milliseconds(),
					Tokens:     &usage,
				}
				if runErr != nil {
					result.Status = models.TaskResultError
					result.Err = runErr.Error()
					retryable := agent.IsRunRetryable(runErr)
					return result, tasks.NewTaskError(runErr, retryable)
				}
				result.Status = models.TaskResultSuccess
				result.Result = msg.Content
				return result, nil
			}

			results := volley.Run(cmd.Context(), batch, execute, printSchedulerEvent)
			return printVolleyResults(cmd, results)
		},
	}

	cmd.Flags().StringVar(&tasksFile, "tasks", "", "Path to a file with one task per line")
	cmd.Flags().StringVar(&system, "system", "", "System prompt shared by every task")
	cmd.Flags().StringVar(&workspace, "workspace", "", "Workspace root for tool execution (defaults to cwd)")
	_ = cmd.MarkFlagRequired("tasks")
	return cmd
}

func readTaskLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open tasks file: %w", err)
	}
	defer f.Close()

	var tasks []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line != "" {
			tasks = append(tasks, line)
		}
	}
	return tasks, scanner.Err()
}

func printSchedulerEvent(e models.SchedulerEvent) {
	fmt.Fprintf(os.Stderr, "[%s] task=%d attempt=%d\n", e.Type, e.TaskIndex, e.Attempt)
}

func printVolleyResults(cmd *cobra.Command, results []models.TaskResult) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}
