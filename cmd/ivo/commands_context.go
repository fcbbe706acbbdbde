package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ivo-run/ivo/internal/contextstore"
)

func buildContextCmd() *cobra.Command {
	var repoRoot string

	cmd := &cobra.Command{
		Use:   "context",
		Short: "Manage saved context slices in the content-addressed store",
	}
	cmd.PersistentFlags().StringVar(&repoRoot, "repo", "", "Repository root (defaults to cwd)")

	resolveRoot := func() (string, error) {
		if repoRoot != "" {
			return repoRoot, nil
		}
		return os.Getwd()
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List saved contexts, most recent first",
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := resolveRoot()
			if err != nil {
				return err
			}
			entries, err := contextstore.New(root).List()
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(entries)
		},
	}

	showCmd := &cobra.Command{
		Use:   "show [id]",
		Short: "Print a saved context's body by id (or unique prefix)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := resolveRoot()
			if err != nil {
				return err
			}
			store := contextstore.New(root)
			meta, err := store.FindByPrefix(args[0])
			if err != nil {
				return err
			}
			content, err := store.Load(meta.ID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), content)
			return nil
		},
	}

	pinCmd := &cobra.Command{
		Use:   "pin [id]",
		Short: "Pin a saved context so cleanup never removes it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := resolveRoot()
			if err != nil {
				return err
			}
			store := contextstore.New(root)
			meta, err := store.FindByPrefix(args[0])
			if err != nil {
				return err
			}
			return store.Pin(meta.ID)
		},
	}

	unpinCmd := &cobra.Command{
		Use:   "unpin [id]",
		Short: "Unpin a saved context",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := resolveRoot()
			if err != nil {
				return err
			}
			store := contextstore.New(root)
			meta, err := store.FindByPrefix(args[0])
			if err != nil {
				return err
			}
			return store.Unpin(meta.ID)
		},
	}

	var maxAge time.Duration
	var maxCount int
	cleanupCmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove unpinned contexts past the age or count limit",
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := resolveRoot()
			if err != nil {
				return err
			}
			if maxAge <= 0 {
				maxAge = contextstore.DefaultCleanupMaxAge
			}
			if maxCount <= 0 {
				maxCount = contextstore.DefaultCleanupMaxCount
			}
			removed, err := contextstore.New(root).Cleanup(maxAge, maxCount)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d context(s)\n", removed)
			return nil
		},
	}
	cleanupCmd.Flags().DurationVar(&maxAge, "max-age", contextstore.DefaultCleanupMaxAge, "Remove unpinned contexts older than this")
	cleanupCmd.Flags().IntVar(&maxCount, "max-count", contextstore.DefaultCleanupMaxCount, "Keep at most this many unpinned contexts")

	cmd.AddCommand(listCmd, showCmd, pinCmd, unpinCmd, cleanupCmd)
	return cmd
}
