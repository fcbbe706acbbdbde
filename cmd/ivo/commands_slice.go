package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ivo-run/ivo/internal/config"
	"github.com/ivo-run/ivo/internal/contextstore"
	"github.com/ivo-run/ivo/internal/slicer"
	"github.com/ivo-run/ivo/internal/slicer/strategies"
	"github.com/ivo-run/ivo/pkg/models"
)

func buildSliceCmd() *cobra.Command {
	var (
		repoRoot   string
		budget     int
		intensity  string
		includes   []string
		excludes   []string
		stratNames []string
		includeTree bool
		save       bool
	)

	cmd := &cobra.Command{
		Use:   "slice [task]",
		Short: "Plan and assemble a token-budgeted context slice for a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if repoRoot == "" {
				repoRoot, err = os.Getwd()
				if err != nil {
					return err
				}
			}
			if budget <= 0 {
				budget = cfg.Slicer.BudgetTokens
			}

			request := models.SliceRequest{
				Task:         args[0],
				RepoRoot:     repoRoot,
				BudgetTokens: budget,
				Intensity:    models.Intensity(intensity),
				Strategies:   stratNames,
				Include:      includes,
				Exclude:      excludes,
				IncludeTree:  includeTree,
			}.Normalize()

			backend := slicer.NewDefaultBackend()
			plan, err := slicer.Plan(request, strategies.All(), backend)
			if err != nil {
				return fmt.Errorf("plan: %w", err)
			}
			for _, w := range plan.Warnings {
				fmt.Fprintf(os.Stderr, "[warning] %s: %s\n", w.Strategy, w.Message)
			}

			result, err := slicer.Assemble(plan, nil)
			if err != nil {
				return fmt.Errorf("assemble: %w", err)
			}

			if save {
				store := contextstore.New(repoRoot)
				content := renderContextXML(result.Context)
				files := make([]string, 0, len(result.Context.Files))
				for _, f := range result.Context.Files {
					files = append(files, f.Path)
				}
				meta, err := store.Save(content, models.ContextMeta{
					Task:   result.Context.Task,
					Files:  files,
					Tokens: result.TotalTokens,
					Budget: result.BudgetTokens,
				}, false)
				if err != nil {
					return fmt.Errorf("save context: %w", err)
				}
				fmt.Fprintf(os.Stderr, "[saved context %s]\n", meta.ID)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}

	cmd.Flags().StringVar(&repoRoot, "repo", "", "Repository root to slice (defaults to cwd)")
	cmd.Flags().IntVar(&budget, "budget", 0, "Token budget override (defaults to config)")
	cmd.Flags().StringVar(&intensity, "intensity", string(models.DefaultIntensity), "Slicing intensity: lite, standard, deep")
	cmd.Flags().StringSliceVar(&includes, "include", nil, "Explicit file paths or tokens to force-include")
	cmd.Flags().StringSliceVar(&excludes, "exclude", nil, "File paths to exclude")
	cmd.Flags().StringSliceVar(&stratNames, "strategy", nil, "Restrict to named strategies (default: intensity's default set)")
	cmd.Flags().BoolVar(&includeTree, "tree", false, "Include a directory tree sidecar")
	cmd.Flags().BoolVar(&save, "save", false, "Save the assembled context to the content-addressed store")
	return cmd
}

// renderContextXML is a minimal XML rendering of an assembled context,
// used only when persisting to the context store; other shapes (JSON,
// markdown) are left to external formatters per the core's design.
func renderContextXML(c models.ContextResult) string {
	out := "<context task=\"" + xmlEscape(c.Task) + "\">\n"
	for _, f := range c.Files {
		out += fmt.Sprintf("  <file path=%q mode=%q tokens=\"%d\">\n", f.Path, string(f.Mode), f.Tokens)
		switch f.Mode {
		case models.FileModeCodemap:
			out += f.Codemap + "\n"
		default:
			out += f.Content + "\n"
		}
		out += "  </file>\n"
	}
	if c.Tree != nil {
		out += "  <tree>" + xmlEscape(c.Tree.Content) + "</tree>\n"
	}
	if c.Forest != nil {
		out += "  <forest>" + xmlEscape(c.Forest.Content) + "</forest>\n"
	}
	out += "</context>\n"
	return out
}

var xmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func xmlEscape(s string) string {
	return xmlEscaper.Replace(s)
}
