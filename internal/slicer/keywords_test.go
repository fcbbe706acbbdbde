package slicer

import (
	"reflect"
	"testing"
)

func TestExtractKeywordsFiltersStopwordsAndShortTokens(t *testing.T) {
	got := ExtractKeywords("Fix the authentication bug in the login flow, not a config issue.")
	want := []string{"fix", "authentication", "bug", "login", "flow", "config", "issue"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestExtractKeywordsHandlesEmptyInput(t *testing.T) {
	if got := ExtractKeywords(""); got != nil {
		t.Fatalf("expected nil for empty input, got %v", got)
	}
}
