package strategies

import (
	"sort"

	"github.com/ivo-run/ivo/internal/slicer"
	"github.com/ivo-run/ivo/pkg/models"
)

// Symbols produces codemaps for every file already matched by an
// earlier strategy in the same plan run, giving the model a structural
// view of files it has seen content or snippets for.
type Symbols struct{}

func (Symbols) Name() string              { return "symbols" }
func (Symbols) DefaultWeight() float64    { return 0.65 }
func (Symbols) DefaultBudgetCap() float64 { return 0 }
func (Symbols) IsAvailable(ctx *slicer.StrategyContext) bool {
	return len(ctx.MatchedFiles) > 0
}

func (s Symbols) Execute(ctx *slicer.StrategyContext) (slicer.StrategyOutput, error) {
	seeds := ctx.MatchedSeeds()
	sort.Strings(seeds)

	var out slicer.StrategyOutput
	for _, path := range seeds {
		cm, err := ctx.Backend.GetCodemap(ctx.RepoRoot, path)
		if err != nil || cm == nil {
			continue
		}
		rendered := cm.Render()
		out.Candidates = append(out.Candidates, models.SliceCandidate{
			ID:             "symbols:" + path,
			Path:           path,
			Strategy:       s.Name(),
			Representation: models.RepCodemap,
			Score:          models.ClampScore(s.DefaultWeight()),
			Tokens:         models.EstimateTokens(rendered),
			Reason:         "structural summary of a matched file",
			Codemap:        rendered,
		})
	}
	return out, nil
}
