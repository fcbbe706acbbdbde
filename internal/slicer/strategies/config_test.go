package strategies

import (
	"strings"
	"testing"

	"github.com/ivo-run/ivo/internal/slicer"
	"github.com/ivo-run/ivo/pkg/models"
)

func TestConfigSurfacesWellKnownFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "go.mod", "module example.com/demo\n")

	ctx := &slicer.StrategyContext{RepoRoot: root, Backend: slicer.NewDefaultBackend()}
	out, err := Config{}.Execute(ctx)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(out.Candidates) != 1 || out.Candidates[0].Path != "go.mod" {
		t.Fatalf("expected go.mod candidate, got %+v", out.Candidates)
	}
}

func TestConfigTruncatesOversizedFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "go.mod", strings.Repeat("line\n", configTruncateLines+50))

	ctx := &slicer.StrategyContext{RepoRoot: root, Backend: slicer.NewDefaultBackend()}
	out, err := Config{}.Execute(ctx)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(out.Candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(out.Candidates))
	}
	if out.Candidates[0].Representation != models.RepSnippet {
		t.Fatalf("expected snippet representation after truncation, got %v", out.Candidates[0].Representation)
	}
}
