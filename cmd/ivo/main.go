// Command ivo is the CLI entry point for the agent toolkit: running a
// single agent turn loop, running a volley of tasks concurrently, and
// planning/assembling/saving context slices for a repository.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"

	configPath string
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	rootCmd := buildRootCmd()
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "ivo",
		Short:        "ivo - agent execution toolkit",
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "ivo.yaml", "Path to configuration file")

	rootCmd.AddCommand(
		buildRunCmd(),
		buildVolleyCmd(),
		buildSliceCmd(),
		buildContextCmd(),
	)
	return rootCmd
}
