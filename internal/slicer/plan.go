package slicer

import (
	"fmt"
	"path"
	"sort"

	"github.com/ivo-run/ivo/pkg/models"
)

// defaultStrategyNames returns the strategy set a plan runs when the
// request doesn't name one explicitly, scaled by intensity: lite keeps
// to the cheapest, highest-confidence signals; deep runs everything.
func defaultStrategyNames(intensity models.Intensity) map[string]bool {
	base := []string{"explicit", "skeleton", "keyword", "config"}
	standard := append(base, "diff", "docs", "symbols", "ast")
	deep := append(standard, "graph", "complexity", "inventory", "forest")

	var names []string
	switch intensity {
	case models.IntensityLite:
		names = base
	case models.IntensityStandard:
		names = standard
	default:
		names = deep
	}
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}

// Plan runs every eligible strategy against request and merges their
// output into a SlicePlan, per the engine's plan algorithm.
func Plan(request models.SliceRequest, allStrategies []Strategy, backend Backend) (models.SlicePlan, error) {
	normalized := request.Normalize()

	raw := ExtractKeywords(normalized.Task)
	keywords := backend.ExpandKeywords(raw, 20)

	ctx := &StrategyContext{
		RepoRoot:     normalized.RepoRoot,
		Task:         normalized.Task,
		Keywords:     keywords,
		Intensity:    normalized.Intensity,
		BudgetTokens: normalized.BudgetTokens,
		Backend:      backend,
		MatchedFiles: make(map[string]bool),
	}
	for _, seed := range normalized.Include {
		ctx.AddMatched(seed)
	}

	wanted := requestedStrategyNames(normalized)
	if normalized.IncludeTree {
		wanted["inventory"] = true
	}

	plan := models.SlicePlan{
		Request: normalized,
	}
	sidecars := make(map[string]*models.Sidecar)
	byStrategy := make(map[string][]models.SliceCandidate)

	for _, strat := range allStrategies {
		if !wanted[strat.Name()] {
			continue
		}
		if !strat.IsAvailable(ctx) {
			continue
		}

		output, err := runStrategy(strat, ctx)
		if err != nil {
			plan.Warnings = append(plan.Warnings, models.StrategyWarning{
				Strategy: strat.Name(),
				Message:  err.Error(),
			})
			continue
		}
		plan.Warnings = append(plan.Warnings, toWarnings(strat.Name(), output.Warnings)...)
		if output.Sidecar != nil {
			sidecars[output.Sidecar.Key] = output.Sidecar
		}
		if len(output.Candidates) > 0 {
			byStrategy[strat.Name()] = append(byStrategy[strat.Name()], output.Candidates...)
		}
	}

	for name, candidates := range byStrategy {
		byStrategy[name] = applyStrategyCap(candidates, normalized.StrategyCaps[name])
	}

	merged := mergeCandidates(byStrategy)
	if len(normalized.Exclude) > 0 {
		kept := merged[:0]
	candidates:
		for _, c := range merged {
			for _, pattern := range normalized.Exclude {
				if ok, _ := path.Match(pattern, c.Path); ok {
					continue candidates
				}
			}
			kept = append(kept, c)
		}
		merged = kept
	}
	plan.Candidates = merged

	totals := make(map[string]models.StrategyTotal)
	total := 0
	for _, c := range merged {
		t := totals[c.Strategy]
		t.Candidates++
		t.Tokens += c.Tokens
		totals[c.Strategy] = t
		total += c.Tokens
	}
	plan.StrategyTotals = totals

	if tree, ok := sidecars["tree"]; ok {
		plan.Tree = tree
		total += tree.Tokens
	}
	if forest, ok := sidecars["forest"]; ok {
		plan.Forest = forest
		total += forest.Tokens
	}
	plan.TotalTokens = total

	return plan, nil
}

// runStrategy recovers from a strategy panic and folds it into the same
// error-as-warning path a returned error takes, since a misbehaving
// strategy must never abort the whole plan.
func runStrategy(strat Strategy, ctx *StrategyContext) (output StrategyOutput, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("strategy panicked: %v", r)
		}
	}()
	return strat.Execute(ctx)
}

func toWarnings(strategy string, messages []string) []models.StrategyWarning {
	out := make([]models.StrategyWarning, 0, len(messages))
	for _, m := range messages {
		out = append(out, models.StrategyWarning{Strategy: strategy, Message: m})
	}
	return out
}

func requestedStrategyNames(request models.SliceRequest) map[string]bool {
	if len(request.Strategies) == 0 {
		return defaultStrategyNames(request.Intensity)
	}
	set := make(map[string]bool, len(request.Strategies))
	for _, n := range request.Strategies {
		set[n] = true
	}
	return set
}

func applyStrategyCap(candidates []models.SliceCandidate, limit models.StrategyCap) []models.SliceCandidate {
	if limit.MaxItems <= 0 && limit.MaxTokens <= 0 {
		return candidates
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		if candidates[i].Tokens != candidates[j].Tokens {
			return candidates[i].Tokens < candidates[j].Tokens
		}
		return candidates[i].Path < candidates[j].Path
	})

	var out []models.SliceCandidate
	tokens := 0
	for _, c := range candidates {
		if limit.MaxItems > 0 && len(out) >= limit.MaxItems {
			break
		}
		if limit.MaxTokens > 0 && tokens+c.Tokens > limit.MaxTokens {
			break
		}
		out = append(out, c)
		tokens += c.Tokens
	}
	return out
}

// mergeCandidates flattens the per-strategy candidate lists, merging
// entries that share a (strategy, path) by keeping the higher-rank
// representation, the union of reasons, and the max score.
func mergeCandidates(byStrategy map[string][]models.SliceCandidate) []models.SliceCandidate {
	type key struct{ strategy, path string }
	index := make(map[key]int)
	var merged []models.SliceCandidate

	var names []string
	for name := range byStrategy {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		for _, c := range byStrategy[name] {
			k := key{c.Strategy, c.Path}
			if i, ok := index[k]; ok {
				existing := merged[i]
				if models.RepresentationRank(c.Representation) > models.RepresentationRank(existing.Representation) {
					existing.Representation = c.Representation
					existing.Tokens = c.Tokens
					existing.Content = c.Content
					existing.Codemap = c.Codemap
				}
				if c.Score > existing.Score {
					existing.Score = c.Score
				}
				if c.Reason != "" && c.Reason != existing.Reason {
					existing.Reason = existing.Reason + "; " + c.Reason
				}
				merged[i] = existing
				continue
			}
			index[k] = len(merged)
			merged = append(merged, c)
		}
	}
	return merged
}
