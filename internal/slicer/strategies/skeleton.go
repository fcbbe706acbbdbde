package strategies

import (
	"path/filepath"
	"strings"

	"github.com/ivo-run/ivo/internal/slicer"
	"github.com/ivo-run/ivo/pkg/models"
)

// priorityDirs are the directories whose entry-point files are
// presumed to matter for almost any task.
var priorityDirs = []string{"src/", "lib/", "packages/"}

var entryPointNames = map[string]bool{
	"index": true, "main": true, "app": true, "server": true, "cli": true,
}

// Skeleton surfaces entry-point filenames under the repo's priority
// directories as codemaps, regardless of the task's content.
type Skeleton struct{}

func (Skeleton) Name() string               { return "skeleton" }
func (Skeleton) DefaultWeight() float64     { return 0.90 }
func (Skeleton) DefaultBudgetCap() float64  { return 0 }
func (Skeleton) IsAvailable(_ *slicer.StrategyContext) bool { return true }

func (s Skeleton) Execute(ctx *slicer.StrategyContext) (slicer.StrategyOutput, error) {
	files, err := ctx.Backend.ListRepoFiles(ctx.RepoRoot)
	if err != nil {
		return slicer.StrategyOutput{}, err
	}

	var out slicer.StrategyOutput
	for _, f := range files {
		if !underPriorityDir(f) || !isEntryPoint(f) {
			continue
		}

		cm, cmErr := ctx.Backend.GetCodemap(ctx.RepoRoot, f)
		rep := models.RepCodemap
		content := ""
		if cmErr != nil || cm == nil {
			rep = models.RepReference
		} else {
			content = cm.Render()
		}

		out.Candidates = append(out.Candidates, models.SliceCandidate{
			ID:             "skeleton:" + f,
			Path:           f,
			Strategy:       s.Name(),
			Representation: rep,
			Score:          models.ClampScore(s.DefaultWeight()),
			Tokens:         models.EstimateTokens(content),
			Reason:         "entry point under a priority directory",
			Codemap:        content,
		})
		ctx.AddMatched(f)
	}
	return out, nil
}

func underPriorityDir(path string) bool {
	for _, dir := range priorityDirs {
		if strings.Contains(path, "/"+dir) || strings.HasPrefix(path, dir) {
			return true
		}
	}
	return false
}

func isEntryPoint(path string) bool {
	base := filepath.Base(path)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return entryPointNames[name]
}
