package slicer

import (
	"testing"

	"github.com/ivo-run/ivo/pkg/models"
)

func TestAssembleFitsWithinBudget(t *testing.T) {
	plan := models.SlicePlan{
		Request: models.SliceRequest{Task: "task", BudgetTokens: 20, Intensity: models.IntensityStandard},
		Candidates: []models.SliceCandidate{
			{Path: "a.go", Strategy: "explicit", Representation: models.RepFull, Score: 0.9, Tokens: 12},
			{Path: "b.go", Strategy: "explicit", Representation: models.RepFull, Score: 0.5, Tokens: 12},
		},
	}

	result, err := Assemble(plan, nil)
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}
	if result.TotalTokens > result.BudgetTokens {
		t.Fatalf("expected total tokens %d <= budget %d", result.TotalTokens, result.BudgetTokens)
	}
	if len(result.Selected) != 1 {
		t.Fatalf("expected only the higher scoring candidate to fit, got %d selected", len(result.Selected))
	}
	if result.Selected[0].Path != "a.go" {
		t.Fatalf("expected a.go to be selected first, got %q", result.Selected[0].Path)
	}
}

func TestAssembleFallsBackToAlternateRepresentation(t *testing.T) {
	plan := models.SlicePlan{
		Request: models.SliceRequest{Task: "task", BudgetTokens: 10, Intensity: models.IntensityStandard},
		Candidates: []models.SliceCandidate{
			{
				Path: "big.go", Strategy: "explicit", Representation: models.RepFull, Score: 0.9, Tokens: 50,
				Alternates: []models.SliceAlternate{{Representation: models.RepSnippet, Tokens: 8, Content: "snippet"}},
			},
		},
	}

	result, err := Assemble(plan, nil)
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}
	if len(result.Selected) != 1 {
		t.Fatalf("expected 1 selected candidate, got %d", len(result.Selected))
	}
	if result.Selected[0].Representation != models.RepSnippet {
		t.Fatalf("expected fallback to snippet representation, got %v", result.Selected[0].Representation)
	}
}

func TestAssembleReservesTreeAndForestTokens(t *testing.T) {
	plan := models.SlicePlan{
		Request: models.SliceRequest{Task: "task", BudgetTokens: 100, Intensity: models.IntensityStandard},
		Tree:    &models.Sidecar{Key: "tree", Content: "tree", Tokens: 10},
		Forest:  &models.Sidecar{Key: "forest", Content: "forest", Tokens: 10},
		Candidates: []models.SliceCandidate{
			{Path: "a.go", Strategy: "explicit", Representation: models.RepFull, Score: 0.9, Tokens: 20},
		},
	}

	result, err := Assemble(plan, nil)
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}
	if result.Context.Tree == nil || result.Context.Forest == nil {
		t.Fatalf("expected both tree and forest sidecars to be reserved")
	}
	if result.TotalTokens != 40 {
		t.Fatalf("expected total tokens 40 (10 tree + 10 forest + 20 file), got %d", result.TotalTokens)
	}
}

func TestAssembleHonorsBudgetOverride(t *testing.T) {
	plan := models.SlicePlan{
		Request: models.SliceRequest{Task: "task", BudgetTokens: 1000, Intensity: models.IntensityStandard},
		Candidates: []models.SliceCandidate{
			{Path: "a.go", Strategy: "explicit", Representation: models.RepFull, Score: 0.9, Tokens: 10},
		},
	}
	override := 5
	result, err := Assemble(plan, &override)
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}
	if result.BudgetTokens != 5 {
		t.Fatalf("expected overridden budget 5, got %d", result.BudgetTokens)
	}
	if len(result.Selected) != 0 {
		t.Fatalf("expected candidate to not fit the overridden budget")
	}
}

func TestAssembleDedupesByPathAndRepresentation(t *testing.T) {
	plan := models.SlicePlan{
		Request: models.SliceRequest{Task: "task", BudgetTokens: 1000, Intensity: models.IntensityStandard},
		Candidates: []models.SliceCandidate{
			{Path: "a.go", Strategy: "keyword", Representation: models.RepSnippet, Score: 0.8, Tokens: 5},
			{Path: "a.go", Strategy: "symbols", Representation: models.RepCodemap, Score: 0.7, Tokens: 5},
		},
	}
	result, err := Assemble(plan, nil)
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}
	if len(result.Selected) != 2 {
		t.Fatalf("expected both complementary representations to survive, got %d", len(result.Selected))
	}
}
