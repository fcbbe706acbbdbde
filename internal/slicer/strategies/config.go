package strategies

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/ivo-run/ivo/internal/slicer"
	"github.com/ivo-run/ivo/pkg/models"
)

// wellKnownConfigFiles are repo-root filenames almost always relevant
// to understanding how a project builds, runs, and is configured.
var wellKnownConfigFiles = []string{
	"go.mod", "go.sum", "package.json", "tsconfig.json", "pyproject.toml",
	"Cargo.toml", "Makefile", "Dockerfile", "docker-compose.yml",
	".env.example", "requirements.txt",
}

const configTruncateLines = 200

// Config surfaces well-known root-level configuration files, truncated
// to their first configTruncateLines lines when oversized.
type Config struct{}

func (Config) Name() string              { return "config" }
func (Config) DefaultWeight() float64    { return 0.70 }
func (Config) DefaultBudgetCap() float64 { return 0 }
func (Config) IsAvailable(_ *slicer.StrategyContext) bool { return true }

func (s Config) Execute(ctx *slicer.StrategyContext) (slicer.StrategyOutput, error) {
	var out slicer.StrategyOutput
	for _, name := range wellKnownConfigFiles {
		data, err := os.ReadFile(filepath.Join(ctx.RepoRoot, name))
		if err != nil {
			continue
		}
		content := string(data)
		rep := models.RepFull
		lines := strings.Split(content, "\n")
		if len(lines) > configTruncateLines {
			content = strings.Join(lines[:configTruncateLines], "\n")
			rep = models.RepSnippet
		}

		out.Candidates = append(out.Candidates, models.SliceCandidate{
			ID:             "config:" + name,
			Path:           name,
			Strategy:       s.Name(),
			Representation: rep,
			Score:          models.ClampScore(s.DefaultWeight()),
			Tokens:         models.EstimateTokens(content),
			Reason:         "well-known configuration file",
			Content:        content,
		})
		ctx.AddMatched(name)
	}
	return out, nil
}
