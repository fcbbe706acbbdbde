// Package slicer implements the context-slicing engine (C6/C7): a set
// of pluggable retrieval strategies feeding a plan/assemble pipeline
// that packs a token-budgeted bucket of relevant repository files for
// a task.
package slicer

import "github.com/ivo-run/ivo/pkg/models"

// StrategyOutput is what a strategy's Execute returns: proposed
// candidates, non-fatal warnings, and an optional sidecar artifact
// (tree, forest) that isn't itself a per-file candidate.
type StrategyOutput struct {
	Candidates []models.SliceCandidate
	Warnings   []string
	Sidecar    *models.Sidecar
}

// Strategy is one retrieval plugin. A strategy is free to short-circuit
// via IsAvailable when the context indicates it cannot contribute.
type Strategy interface {
	Name() string
	DefaultWeight() float64
	// DefaultBudgetCap is the strategy's share of the assemble budget
	// (0 means uncapped / not recognized).
	DefaultBudgetCap() float64
	IsAvailable(ctx *StrategyContext) bool
	Execute(ctx *StrategyContext) (StrategyOutput, error)
}

// StrategyContext is the shared state threaded through a plan run:
// backend handles, derived keywords, and the mutable matched-file set
// strategies like symbols/graph consume as a seed.
type StrategyContext struct {
	RepoRoot     string
	Task         string
	Keywords     []string
	Intensity    models.Intensity
	BudgetTokens int

	Backend Backend

	// MatchedFiles accumulates repo-relative paths surfaced by earlier
	// strategies in the same plan run, consumed as BFS/codemap seeds.
	MatchedFiles map[string]bool
}

// AddMatched records path as having been surfaced by a strategy.
func (c *StrategyContext) AddMatched(path string) {
	if c.MatchedFiles == nil {
		c.MatchedFiles = make(map[string]bool)
	}
	c.MatchedFiles[path] = true
}

// MatchedSeeds returns the current matched-file set as a slice.
func (c *StrategyContext) MatchedSeeds() []string {
	seeds := make([]string, 0, len(c.MatchedFiles))
	for path := range c.MatchedFiles {
		seeds = append(seeds, path)
	}
	return seeds
}

// intensityLevel maps an Intensity to an ordinal 1/2/3 (lite/standard/deep)
// for strategies that scale a numeric limit by intensity.
func intensityLevel(i models.Intensity) int {
	return IntensityLevel(i)
}

// IntensityLevel is the exported form of intensityLevel, used by the
// strategies subpackage to scale per-intensity limits.
func IntensityLevel(i models.Intensity) int {
	switch i {
	case models.IntensityLite:
		return 1
	case models.IntensityStandard:
		return 2
	default:
		return 3
	}
}
