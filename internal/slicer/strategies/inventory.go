package strategies

import (
	"sort"
	"strings"

	"github.com/ivo-run/ivo/internal/slicer"
	"github.com/ivo-run/ivo/pkg/models"
)

var inventoryMaxDepthByLevel = []int{0, 2, 3, 5}

// Inventory renders the repo's directory tree (up to an intensity-scaled
// depth) as a sidecar, not a per-file candidate.
type Inventory struct{}

func (Inventory) Name() string              { return "inventory" }
func (Inventory) DefaultWeight() float64    { return 0 }
func (Inventory) DefaultBudgetCap() float64 { return 0 }
func (Inventory) IsAvailable(_ *slicer.StrategyContext) bool { return true }

func (s Inventory) Execute(ctx *slicer.StrategyContext) (slicer.StrategyOutput, error) {
	files, err := ctx.Backend.ListRepoFiles(ctx.RepoRoot)
	if err != nil {
		return slicer.StrategyOutput{}, err
	}
	maxDepth := inventoryMaxDepthByLevel[slicer.IntensityLevel(ctx.Intensity)]

	dirs := make(map[string]bool)
	for _, f := range files {
		parts := strings.Split(f, "/")
		for depth := 1; depth < len(parts) && depth <= maxDepth; depth++ {
			dirs[strings.Join(parts[:depth], "/")] = true
		}
	}
	var paths []string
	for d := range dirs {
		paths = append(paths, d)
	}
	sort.Strings(paths)

	var b strings.Builder
	for _, p := range paths {
		depth := strings.Count(p, "/")
		b.WriteString(strings.Repeat("  ", depth))
		b.WriteString(p[strings.LastIndex(p, "/")+1:])
		b.WriteString("/\n")
	}
	tree := b.String()

	return slicer.StrategyOutput{
		Sidecar: &models.Sidecar{Key: "tree", Content: tree, Tokens: models.EstimateTokens(tree)},
	}, nil
}
