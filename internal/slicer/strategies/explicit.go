// Package strategies implements the C6 retrieval strategy plugins.
package strategies

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/ivo-run/ivo/internal/slicer"
	"github.com/ivo-run/ivo/pkg/models"
)

// Explicit resolves tokens in the task text that name an existing repo
// file, the highest-confidence signal a task can carry.
type Explicit struct{}

func (Explicit) Name() string               { return "explicit" }
func (Explicit) DefaultWeight() float64     { return 0.95 }
func (Explicit) DefaultBudgetCap() float64  { return 0 }
func (Explicit) IsAvailable(_ *slicer.StrategyContext) bool { return true }

func (s Explicit) Execute(ctx *slicer.StrategyContext) (slicer.StrategyOutput, error) {
	files, err := ctx.Backend.ListRepoFiles(ctx.RepoRoot)
	if err != nil {
		return slicer.StrategyOutput{}, err
	}
	known := make(map[string]bool, len(files))
	for _, f := range files {
		known[f] = true
	}

	var out slicer.StrategyOutput
	seen := make(map[string]bool)
	for _, token := range strings.Fields(ctx.Task) {
		candidate := strings.Trim(token, `"'(),:;`)
		candidate = strings.TrimPrefix(candidate, "./")
		if !known[candidate] || seen[candidate] {
			continue
		}
		seen[candidate] = true

		data, readErr := os.ReadFile(filepath.Join(ctx.RepoRoot, candidate))
		if readErr != nil {
			continue
		}
		content := string(data)
		out.Candidates = append(out.Candidates, models.SliceCandidate{
			ID:             "explicit:" + candidate,
			Path:           candidate,
			Strategy:       s.Name(),
			Representation: models.RepFull,
			Score:          models.ClampScore(s.DefaultWeight()),
			Tokens:         models.EstimateTokens(content),
			Reason:         "named directly in the task",
			Content:        content,
		})
		ctx.AddMatched(candidate)
	}
	return out, nil
}
