package strategies

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/ivo-run/ivo/internal/slicer"
	"github.com/ivo-run/ivo/pkg/models"
)

// Diff surfaces the working tree's changed files in full, skipping
// entirely when there is no VCS or no changes to report.
type Diff struct{}

func (Diff) Name() string              { return "diff" }
func (Diff) DefaultWeight() float64    { return 0.80 }
func (Diff) DefaultBudgetCap() float64 { return 0.10 }

func (Diff) IsAvailable(ctx *slicer.StrategyContext) bool {
	_, err := os.Stat(filepath.Join(ctx.RepoRoot, ".git"))
	return err == nil
}

func (s Diff) Execute(ctx *slicer.StrategyContext) (slicer.StrategyOutput, error) {
	changed, err := changedFiles(ctx.RepoRoot)
	if err != nil || len(changed) == 0 {
		return slicer.StrategyOutput{}, nil
	}

	var out slicer.StrategyOutput
	for _, path := range changed {
		data, readErr := os.ReadFile(filepath.Join(ctx.RepoRoot, path))
		if readErr != nil {
			continue
		}
		content := string(data)
		out.Candidates = append(out.Candidates, models.SliceCandidate{
			ID:             "diff:" + path,
			Path:           path,
			Strategy:       s.Name(),
			Representation: models.RepFull,
			Score:          models.ClampScore(s.DefaultWeight()),
			Tokens:         models.EstimateTokens(content),
			Reason:         "modified in the working tree",
			Content:        content,
		})
		ctx.AddMatched(path)
	}
	return out, nil
}

func changedFiles(root string) ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "diff", "--name-only", "HEAD")
	cmd.Dir = root
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return nil, err
	}

	var files []string
	scanner := bufio.NewScanner(&out)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			files = append(files, filepath.ToSlash(line))
		}
	}
	return files, nil
}
