package strategies

import (
	"path/filepath"
	"sort"

	"github.com/ivo-run/ivo/internal/slicer"
	"github.com/ivo-run/ivo/pkg/models"
)

const largeRepoFileThreshold = 500

var graphDepthByLevel = []int{0, 1, 2, 3}

// Graph walks the import graph from files already matched by other
// strategies, surfacing neighbors within an intensity-scaled hop count.
type Graph struct{}

func (Graph) Name() string              { return "graph" }
func (Graph) DefaultWeight() float64    { return 0.55 }
func (Graph) DefaultBudgetCap() float64 { return 0.15 }
func (Graph) IsAvailable(ctx *slicer.StrategyContext) bool {
	return len(ctx.MatchedFiles) > 0
}

func (s Graph) Execute(ctx *slicer.StrategyContext) (slicer.StrategyOutput, error) {
	files, err := ctx.Backend.ListRepoFiles(ctx.RepoRoot)
	if err != nil {
		return slicer.StrategyOutput{}, err
	}

	seeds := ctx.MatchedSeeds()
	universe := files
	if len(files) > largeRepoFileThreshold {
		universe = restrictToAdjacentDirs(files, seeds)
	}

	codemaps := make(map[string]*slicer.Codemap, len(universe))
	for _, f := range universe {
		cm, cmErr := ctx.Backend.GetCodemap(ctx.RepoRoot, f)
		if cmErr == nil && cm != nil {
			codemaps[f] = cm
		}
	}

	g := slicer.BuildImportGraph(codemaps, universe)
	depth := slicer.BFS(g, seeds, graphDepthByLevel[slicer.IntensityLevel(ctx.Intensity)])

	var matched []string
	for path, d := range depth {
		if d == 0 || ctx.MatchedFiles[path] {
			continue // depth 0 is the seed itself, already surfaced elsewhere
		}
		matched = append(matched, path)
	}
	sort.Strings(matched)

	var out slicer.StrategyOutput
	for _, path := range matched {
		cm := codemaps[path]
		rendered := cm.Render()
		score := s.DefaultWeight() / float64(depth[path])
		out.Candidates = append(out.Candidates, models.SliceCandidate{
			ID:             "graph:" + path,
			Path:           path,
			Strategy:       s.Name(),
			Representation: models.RepCodemap,
			Score:          models.ClampScore(score),
			Tokens:         models.EstimateTokens(rendered),
			Reason:         "reachable via import graph from a matched file",
			Codemap:        rendered,
		})
		ctx.AddMatched(path)
	}
	return out, nil
}

func restrictToAdjacentDirs(files, seeds []string) []string {
	dirs := make(map[string]bool, len(seeds))
	for _, s := range seeds {
		dirs[filepath.Dir(s)] = true
	}
	var out []string
	for _, f := range files {
		if dirs[filepath.Dir(f)] {
			out = append(out, f)
		}
	}
	return out
}
