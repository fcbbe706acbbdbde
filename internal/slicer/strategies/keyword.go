package strategies

import (
	"fmt"
	"sort"

	"github.com/ivo-run/ivo/internal/slicer"
	"github.com/ivo-run/ivo/pkg/models"
)

// keywordLimits scales matched-file count, merge context lines, and the
// raw search result cap by intensity level (lite/standard/deep).
var keywordLimits = []struct {
	files, context, maxResults int
}{
	{}, // index 0 unused
	{files: 6, context: 1, maxResults: 40},
	{files: 8, context: 2, maxResults: 80},
	{files: 14, context: 4, maxResults: 120},
}

// Keyword searches expanded task keywords across the repo and packs
// hits as merged-range snippets.
type Keyword struct{}

func (Keyword) Name() string              { return "keyword" }
func (Keyword) DefaultWeight() float64    { return 0.75 }
func (Keyword) DefaultBudgetCap() float64 { return 0.20 }
func (Keyword) IsAvailable(_ *slicer.StrategyContext) bool { return true }

func (s Keyword) Execute(ctx *slicer.StrategyContext) (slicer.StrategyOutput, error) {
	limits := keywordLimits[slicer.IntensityLevel(ctx.Intensity)]

	matchesByFile := make(map[string][]slicer.SearchMatch)
	order := []string{}
	for _, kw := range ctx.Keywords {
		hits, err := ctx.Backend.Search(ctx.RepoRoot, kw, slicer.SearchOptions{
			ContextLines: limits.context,
			MaxResults:   limits.maxResults,
		})
		if err != nil {
			continue
		}
		for _, h := range hits {
			if _, ok := matchesByFile[h.Path]; !ok {
				order = append(order, h.Path)
			}
			matchesByFile[h.Path] = append(matchesByFile[h.Path], h)
		}
	}
	sort.Strings(order)
	if len(order) > limits.files {
		order = order[:limits.files]
	}

	var out slicer.StrategyOutput
	for _, path := range order {
		hits := matchesByFile[path]
		snippet := mergeMatchLines(hits, limits.context)
		out.Candidates = append(out.Candidates, models.SliceCandidate{
			ID:             "keyword:" + path,
			Path:           path,
			Strategy:       s.Name(),
			Representation: models.RepSnippet,
			Score:          models.ClampScore(s.DefaultWeight() * matchDensity(len(hits))),
			Tokens:         models.EstimateTokens(snippet),
			Reason:         fmt.Sprintf("%d keyword hit(s)", len(hits)),
			Content:        snippet,
		})
		ctx.AddMatched(path)
	}
	return out, nil
}

func matchDensity(n int) float64 {
	switch {
	case n >= 5:
		return 1.0
	case n >= 2:
		return 0.85
	default:
		return 0.7
	}
}

func mergeMatchLines(hits []slicer.SearchMatch, contextLines int) string {
	sort.Slice(hits, func(i, j int) bool { return hits[i].Line < hits[j].Line })
	var b []byte
	lastLine := -1
	for _, h := range hits {
		if h.Line <= lastLine+contextLines {
			b = append(b, '\n')
		} else if lastLine != -1 {
			b = append(b, "\n...\n"...)
		}
		b = append(b, fmt.Sprintf("%d: %s", h.Line, h.Text)...)
		lastLine = h.Line
	}
	return string(b)
}
