package slicer

import (
	"sort"

	"github.com/ivo-run/ivo/pkg/models"
)

// recognizedBudgetCaps are the strategy budget-cap fractions the
// assemble algorithm enforces explicitly, keyed by strategy name.
var recognizedBudgetCaps = map[string]float64{
	"keyword":  0.20,
	"diff":     0.10,
	"graph":    0.15,
	"semantic": 0.15,
	"docs":     0.10,
	"forest":   0.25,
}

// Assemble packs a plan's candidates into a budget-fitted SliceResult,
// per the engine's assemble algorithm. budgetOverride, if non-nil,
// replaces the plan request's budget.
func Assemble(plan models.SlicePlan, budgetOverride *int) (models.SliceResult, error) {
	budget := plan.Request.BudgetTokens
	if budgetOverride != nil {
		budget = *budgetOverride
	}
	remaining := budget

	var tree, forest *models.Sidecar
	if plan.Tree != nil && plan.Tree.Tokens <= remaining {
		tree = plan.Tree
		remaining -= tree.Tokens
	}
	if plan.Forest != nil && plan.Forest.Tokens <= remaining {
		forest = plan.Forest
		remaining -= forest.Tokens
	}

	order := strategyOrder(plan.Request.Strategies)
	ranked := append([]models.SliceCandidate(nil), plan.Candidates...)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		oa, ob := orderOf(order, a.Strategy), orderOf(order, b.Strategy)
		if oa != ob {
			return oa < ob
		}
		if models.RepresentationRank(a.Representation) != models.RepresentationRank(b.Representation) {
			return models.RepresentationRank(a.Representation) > models.RepresentationRank(b.Representation)
		}
		if a.Tokens != b.Tokens {
			return a.Tokens < b.Tokens
		}
		return a.Path < b.Path
	})

	strategyRemaining := make(map[string]int)
	for name, frac := range recognizedBudgetCaps {
		strategyRemaining[name] = int(frac * float64(budget))
	}

	type picked struct {
		candidate models.SliceCandidate
		tokens    int
	}
	var selected []picked
	seenPathRep := make(map[string]bool)

	for _, c := range ranked {
		if remaining <= 0 {
			break
		}
		cap, capped := strategyRemaining[c.Strategy]
		effective := remaining
		if capped {
			if cap < effective {
				effective = cap
			}
		}
		if effective <= 0 {
			continue
		}

		final, tokens, ok := pickRepresentation(c, effective)
		if !ok {
			continue
		}
		dedupeKey := final.Path + "\x00" + string(final.Representation)
		if seenPathRep[dedupeKey] {
			continue
		}
		seenPathRep[dedupeKey] = true

		selected = append(selected, picked{candidate: final, tokens: tokens})
		remaining -= tokens
		if capped {
			strategyRemaining[c.Strategy] = cap - tokens
		}
	}

	if plan.Request.Intensity == models.IntensityDeep && remaining > 0 {
		for i, p := range selected {
			currentRank := models.RepresentationRank(p.candidate.Representation)
			for _, alt := range p.candidate.Alternates {
				altRank := models.RepresentationRank(alt.Representation)
				if altRank <= currentRank {
					continue
				}
				extra := alt.Tokens - p.tokens
				if extra <= 0 || extra > remaining {
					continue
				}
				p.candidate.Representation = alt.Representation
				p.candidate.Content = alt.Content
				p.candidate.Codemap = alt.Codemap
				p.tokens = alt.Tokens
				remaining -= extra
				selected[i] = p
				break
			}
		}
	}

	var selectedCandidates []models.SliceCandidate
	var files []models.ContextFileEntry
	statTotals := make(map[string]models.StrategyTotal)
	totalTokens := 0
	for _, p := range selected {
		selectedCandidates = append(selectedCandidates, p.candidate)
		files = append(files, models.ContextFileEntry{
			Path:      p.candidate.Path,
			Tokens:    p.tokens,
			Mode:      fileEntryMode(p.candidate.Representation),
			Content:   p.candidate.Content,
			Codemap:   p.candidate.Codemap,
			Relevance: roundScore(p.candidate.Score),
			Reason:    p.candidate.Reason,
			Strategy:  p.candidate.Strategy,
		})
		t := statTotals[p.candidate.Strategy]
		t.Candidates++
		t.Tokens += p.tokens
		statTotals[p.candidate.Strategy] = t
		totalTokens += p.tokens
	}
	if tree != nil {
		totalTokens += tree.Tokens
	}
	if forest != nil {
		totalTokens += forest.Tokens
	}

	return models.SliceResult{
		Selected:     selectedCandidates,
		TotalTokens:  totalTokens,
		BudgetTokens: budget,
		Context: models.ContextResult{
			Task:          plan.Request.Task,
			Files:         files,
			Tree:          tree,
			Forest:        forest,
			StrategyStats: statTotals,
		},
	}, nil
}

// pickRepresentation returns c unchanged if its primary tokens fit
// budget, else the first alternate (in order) that does; ok is false
// if nothing fits.
func pickRepresentation(c models.SliceCandidate, budget int) (models.SliceCandidate, int, bool) {
	if c.Tokens <= budget {
		return c, c.Tokens, true
	}
	for _, alt := range c.Alternates {
		if alt.Tokens <= budget {
			c.Representation = alt.Representation
			c.Content = alt.Content
			c.Codemap = alt.Codemap
			c.Tokens = alt.Tokens
			return c, alt.Tokens, true
		}
	}
	return models.SliceCandidate{}, 0, false
}

func fileEntryMode(r models.Representation) models.FileEntryMode {
	switch r {
	case models.RepFull:
		return models.FileModeFull
	case models.RepSnippet:
		return models.FileModeSlice
	default:
		return models.FileModeCodemap
	}
}

func roundScore(score float64) float64 {
	return float64(int(score*100+0.5)) / 100
}

// strategyOrder returns each strategy's rank in the request's preferred
// order (explicit always first); orderOf defaults any strategy absent
// from the map to 999, ranking it last.
func strategyOrder(requested []string) map[string]int {
	order := make(map[string]int)
	order["explicit"] = -1
	for i, name := range requested {
		if _, exists := order[name]; !exists {
			order[name] = i
		}
	}
	return order
}

func orderOf(order map[string]int, strategy string) int {
	if v, ok := order[strategy]; ok {
		return v
	}
	return 999
}
