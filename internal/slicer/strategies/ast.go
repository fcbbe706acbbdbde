package strategies

import (
	"sort"

	"github.com/ivo-run/ivo/internal/slicer"
	"github.com/ivo-run/ivo/pkg/models"
)

// AST attaches a structural codemap to every file matched so far this
// run that declares functions or types. It takes its files from
// MatchedFiles, whichever earlier strategy (explicit, skeleton, keyword,
// ...) added them; it does not restrict itself to keyword hits.
type AST struct{}

func (AST) Name() string              { return "ast" }
func (AST) DefaultWeight() float64    { return 0.50 }
func (AST) DefaultBudgetCap() float64 { return 0 }
func (AST) IsAvailable(ctx *slicer.StrategyContext) bool {
	return len(ctx.MatchedFiles) > 0
}

func (s AST) Execute(ctx *slicer.StrategyContext) (slicer.StrategyOutput, error) {
	seeds := ctx.MatchedSeeds()
	sort.Strings(seeds)

	var out slicer.StrategyOutput
	for _, path := range seeds {
		cm, err := ctx.Backend.GetCodemap(ctx.RepoRoot, path)
		if err != nil || cm == nil {
			continue
		}
		if len(cm.Functions) == 0 && len(cm.Types) == 0 {
			continue
		}
		rendered := cm.Render()
		out.Candidates = append(out.Candidates, models.SliceCandidate{
			ID:             "ast:" + path,
			Path:           path,
			Strategy:       s.Name(),
			Representation: models.RepCodemap,
			Score:          models.ClampScore(s.DefaultWeight()),
			Tokens:         models.EstimateTokens(rendered),
			Reason:         "declared symbols for a matched file",
			Codemap:        rendered,
		})
	}
	return out, nil
}
