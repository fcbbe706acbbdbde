package strategies

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ivo-run/ivo/internal/slicer"
	"github.com/ivo-run/ivo/pkg/models"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestExplicitResolvesTaskFilePaths(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "internal/auth/login.go", "package auth\n")

	ctx := &slicer.StrategyContext{
		RepoRoot: root,
		Task:     "fix the bug in internal/auth/login.go please",
		Backend:  slicer.NewDefaultBackend(),
	}

	out, err := Explicit{}.Execute(ctx)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(out.Candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(out.Candidates))
	}
	c := out.Candidates[0]
	if c.Path != "internal/auth/login.go" || c.Representation != models.RepFull {
		t.Fatalf("unexpected candidate: %+v", c)
	}
	if !ctx.MatchedFiles["internal/auth/login.go"] {
		t.Fatalf("expected matched file to be recorded")
	}
}

func TestExplicitIgnoresTokensThatArentRepoFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n")

	ctx := &slicer.StrategyContext{
		RepoRoot: root,
		Task:     "investigate the checkout flow thoroughly",
		Backend:  slicer.NewDefaultBackend(),
	}

	out, err := Explicit{}.Execute(ctx)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(out.Candidates) != 0 {
		t.Fatalf("expected no candidates, got %d", len(out.Candidates))
	}
}
