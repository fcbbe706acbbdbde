package strategies

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/ivo-run/ivo/internal/slicer"
	"github.com/ivo-run/ivo/pkg/models"
)

// coreDocFiles are repo-root docs included whenever present, regardless
// of the task's keywords.
var coreDocFiles = []string{"README.md", "CONTRIBUTING.md", "ARCHITECTURE.md"}

var docPathHints = []string{"docs/", "doc/", ".md"}

// Docs includes the repo's core documentation plus any doc-path files
// turned up by the task's keywords.
type Docs struct{}

func (Docs) Name() string              { return "docs" }
func (Docs) DefaultWeight() float64    { return 0.60 }
func (Docs) DefaultBudgetCap() float64 { return 0.10 }
func (Docs) IsAvailable(_ *slicer.StrategyContext) bool { return true }

func (s Docs) Execute(ctx *slicer.StrategyContext) (slicer.StrategyOutput, error) {
	var out slicer.StrategyOutput
	seen := make(map[string]bool)

	for _, name := range coreDocFiles {
		data, err := os.ReadFile(filepath.Join(ctx.RepoRoot, name))
		if err != nil {
			continue
		}
		s.addCandidate(&out, ctx, name, string(data), models.RepFull, "core project documentation")
		seen[name] = true
	}

	files, err := ctx.Backend.ListRepoFiles(ctx.RepoRoot)
	if err != nil {
		return out, nil
	}
	for _, f := range files {
		if seen[f] || !isDocPath(f) {
			continue
		}
		for _, kw := range ctx.Keywords {
			if strings.Contains(strings.ToLower(f), kw) {
				data, readErr := os.ReadFile(filepath.Join(ctx.RepoRoot, f))
				if readErr != nil {
					break
				}
				s.addCandidate(&out, ctx, f, string(data), models.RepSnippet, "matched a task keyword in a doc path")
				seen[f] = true
				break
			}
		}
	}
	return out, nil
}

func (s Docs) addCandidate(out *slicer.StrategyOutput, ctx *slicer.StrategyContext, path, content string, rep models.Representation, reason string) {
	out.Candidates = append(out.Candidates, models.SliceCandidate{
		ID:             "docs:" + path,
		Path:           path,
		Strategy:       s.Name(),
		Representation: rep,
		Score:          models.ClampScore(s.DefaultWeight()),
		Tokens:         models.EstimateTokens(content),
		Reason:         reason,
		Content:        content,
	})
	ctx.AddMatched(path)
}

func isDocPath(path string) bool {
	lower := strings.ToLower(path)
	for _, hint := range docPathHints {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}
