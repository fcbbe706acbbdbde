package strategies

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/ivo-run/ivo/internal/slicer"
	"github.com/ivo-run/ivo/pkg/models"
)

var complexityFileCountByLevel = []int{0, 5, 10, 20}

// Complexity surfaces the repo's largest files by byte size as codemaps,
// presuming file size correlates with the density of logic a task
// might need to reason about. Files of every type are ranked; one with
// no codemap extractor is emitted as a reference instead.
type Complexity struct{}

func (Complexity) Name() string              { return "complexity" }
func (Complexity) DefaultWeight() float64    { return 0.45 }
func (Complexity) DefaultBudgetCap() float64 { return 0 }
func (Complexity) IsAvailable(_ *slicer.StrategyContext) bool { return true }

func (s Complexity) Execute(ctx *slicer.StrategyContext) (slicer.StrategyOutput, error) {
	files, err := ctx.Backend.ListRepoFiles(ctx.RepoRoot)
	if err != nil {
		return slicer.StrategyOutput{}, err
	}

	type sized struct {
		path string
		size int64
	}
	var candidates []sized
	for _, f := range files {
		info, statErr := os.Stat(filepath.Join(ctx.RepoRoot, f))
		if statErr != nil || info.IsDir() {
			continue
		}
		candidates = append(candidates, sized{f, info.Size()})
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].size > candidates[j].size })

	limit := complexityFileCountByLevel[slicer.IntensityLevel(ctx.Intensity)]
	if limit > len(candidates) {
		limit = len(candidates)
	}

	var out slicer.StrategyOutput
	for _, c := range candidates[:limit] {
		cm, cmErr := ctx.Backend.GetCodemap(ctx.RepoRoot, c.path)
		rep := models.RepCodemap
		content := ""
		if cmErr != nil || cm == nil {
			rep = models.RepReference
		} else {
			content = cm.Render()
		}

		out.Candidates = append(out.Candidates, models.SliceCandidate{
			ID:             "complexity:" + c.path,
			Path:           c.path,
			Strategy:       s.Name(),
			Representation: rep,
			Score:          models.ClampScore(s.DefaultWeight()),
			Tokens:         models.EstimateTokens(content),
			Reason:         "among the largest files in the repo",
			Codemap:        content,
		})
		ctx.AddMatched(c.path)
	}
	return out, nil
}
