package models

import "testing"

func TestRepresentationRankOrder(t *testing.T) {
	order := []Representation{RepReference, RepCodemap, RepSnippet, RepFull}
	for i := 1; i < len(order); i++ {
		if RepresentationRank(order[i]) <= RepresentationRank(order[i-1]) {
			t.Fatalf("expected %s to outrank %s", order[i], order[i-1])
		}
	}
	if RepresentationRank("unknown") >= RepresentationRank(RepReference) {
		t.Fatalf("expected unknown representation to rank lowest")
	}
}

func TestClampScore(t *testing.T) {
	cases := []struct {
		in, want float64
	}{
		{-1, 0.05},
		{0, 0.05},
		{0.05, 0.05},
		{0.5, 0.5},
		{1.0, 1.0},
		{3.0, 1.0},
	}
	for _, tc := range cases {
		if got := ClampScore(tc.in); got != tc.want {
			t.Errorf("ClampScore(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestSliceRequestNormalizeDefaults(t *testing.T) {
	req := SliceRequest{Task: "find the bug"}.Normalize()
	if req.BudgetTokens != DefaultBudgetTokens {
		t.Errorf("BudgetTokens = %d, want %d", req.BudgetTokens, DefaultBudgetTokens)
	}
	if req.WarningThreshold != DefaultWarningThreshold {
		t.Errorf("WarningThreshold = %v, want %v", req.WarningThreshold, DefaultWarningThreshold)
	}
	if req.Intensity != DefaultIntensity {
		t.Errorf("Intensity = %v, want %v", req.Intensity, DefaultIntensity)
	}
}

func TestSliceRequestNormalizePreservesSetFields(t *testing.T) {
	req := SliceRequest{Task: "x", BudgetTokens: 1000, WarningThreshold: 0.5, Intensity: IntensityLite}.Normalize()
	if req.BudgetTokens != 1000 || req.WarningThreshold != 0.5 || req.Intensity != IntensityLite {
		t.Errorf("Normalize mutated explicit fields: %+v", req)
	}
}
