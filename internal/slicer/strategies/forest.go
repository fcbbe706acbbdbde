package strategies

import (
	"os"
	"path/filepath"

	"github.com/ivo-run/ivo/internal/slicer"
	"github.com/ivo-run/ivo/pkg/models"
)

// forestManifest is the on-disk marker an external knowledge-graph
// collaborator drops when it has produced a summary for this repo.
// Absent the marker, Forest is simply unavailable rather than failing.
const forestManifest = ".ivo/forest.json"

// Forest attaches an externally produced knowledge-graph summary as a
// sidecar, when one is present. The graph itself is built by a
// collaborator outside this module; this strategy only surfaces it.
type Forest struct{}

func (Forest) Name() string              { return "forest" }
func (Forest) DefaultWeight() float64    { return 0 }
func (Forest) DefaultBudgetCap() float64 { return 0.25 }

func (Forest) IsAvailable(ctx *slicer.StrategyContext) bool {
	_, err := os.Stat(filepath.Join(ctx.RepoRoot, forestManifest))
	return err == nil
}

func (s Forest) Execute(ctx *slicer.StrategyContext) (slicer.StrategyOutput, error) {
	data, err := os.ReadFile(filepath.Join(ctx.RepoRoot, forestManifest))
	if err != nil {
		return slicer.StrategyOutput{}, nil
	}
	content := string(data)
	return slicer.StrategyOutput{
		Sidecar: &models.Sidecar{Key: "forest", Content: content, Tokens: models.EstimateTokens(content)},
	}, nil
}
