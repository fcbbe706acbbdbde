package slicer

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Codemap is the line-based structural summary of one file:
// imports, declared types/functions/classes, and (for markdown) section
// headings. A nil *Codemap means the language is unsupported.
type Codemap struct {
	Path      string
	Imports   []string
	Functions []string
	Types     []string
	Sections  []string
}

// Render renders the codemap to the compact textual form packed into
// assembled context entries.
func (c *Codemap) Render() string {
	if c == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(c.Path)
	b.WriteString("\n")
	if len(c.Imports) > 0 {
		b.WriteString("imports: " + strings.Join(c.Imports, ", ") + "\n")
	}
	if len(c.Types) > 0 {
		b.WriteString("types: " + strings.Join(c.Types, ", ") + "\n")
	}
	if len(c.Functions) > 0 {
		b.WriteString("functions: " + strings.Join(c.Functions, ", ") + "\n")
	}
	if len(c.Sections) > 0 {
		b.WriteString("sections: " + strings.Join(c.Sections, ", ") + "\n")
	}
	return b.String()
}

// SearchMatch is one hit from Backend.Search.
type SearchMatch struct {
	Path string
	Line int
	Text string
}

// SearchOptions configures a content search.
type SearchOptions struct {
	ContextLines int
	MaxResults   int
}

// Backend is the contract strategies consume for repo introspection.
// The default implementation shells out to ripgrep when present and
// falls back to a plain filesystem walk and a naive grep otherwise.
type Backend interface {
	ListRepoFiles(root string) ([]string, error)
	Search(root, term string, opts SearchOptions) ([]SearchMatch, error)
	GetCodemap(root, path string) (*Codemap, error)
	ExpandKeywords(raw []string, cap int) []string
}

// DefaultBackend is the production Backend: ripgrep-backed search with
// a filesystem-walk fallback, and a line-based codemap extractor for
// the handful of languages this repo recognizes by extension.
type DefaultBackend struct {
	// Timeout bounds subprocess invocations (ripgrep, file listing).
	Timeout time.Duration
}

// NewDefaultBackend constructs a DefaultBackend with a 10s subprocess timeout.
func NewDefaultBackend() *DefaultBackend {
	return &DefaultBackend{Timeout: 10 * time.Second}
}

// ListRepoFiles enumerates repo-relative file paths under root, via
// `rg --files` when ripgrep is on PATH (which honors .gitignore) and a
// plain filepath.WalkDir fallback otherwise.
func (b *DefaultBackend) ListRepoFiles(root string) ([]string, error) {
	if paths, err := b.listWithRipgrep(root); err == nil {
		return paths, nil
	}
	return b.listWithWalk(root)
}

func (b *DefaultBackend) listWithRipgrep(root string) ([]string, error) {
	if _, err := exec.LookPath("rg"); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), b.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "rg", "--files")
	cmd.Dir = root
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return nil, err
	}

	var paths []string
	scanner := bufio.NewScanner(&out)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			paths = append(paths, filepath.ToSlash(line))
		}
	}
	return paths, nil
}

func (b *DefaultBackend) listWithWalk(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if d.Name() == ".git" || d.Name() == "node_modules" || d.Name() == ".ivo" {
				return filepath.SkipDir
			}
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	return paths, err
}

// Search runs a case-insensitive content search against the working
// tree, preferring ripgrep and falling back to an in-process
// line-by-line scan of the repo's files. opts.MaxResults caps the hits;
// opts.ContextLines is not applied, so each match carries only its own
// line.
func (b *DefaultBackend) Search(root, term string, opts SearchOptions) ([]SearchMatch, error) {
	if matches, err := b.searchWithRipgrep(root, term, opts); err == nil {
		return matches, nil
	}
	return b.searchFallback(root, term, opts)
}

func (b *DefaultBackend) searchWithRipgrep(root, term string, opts SearchOptions) ([]SearchMatch, error) {
	if _, err := exec.LookPath("rg"); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), b.Timeout)
	defer cancel()

	args := []string{"--line-number", "--no-heading", "--max-count", strconv.Itoa(maxInt(opts.MaxResults, 1)), "-i", term, "."}
	cmd := exec.CommandContext(ctx, "rg", args...)
	cmd.Dir = root
	var out bytes.Buffer
	cmd.Stdout = &out
	_ = cmd.Run() // rg exits 1 on "no matches"; treat as empty results, not an error

	var matches []SearchMatch
	scanner := bufio.NewScanner(&out)
	for scanner.Scan() {
		parts := strings.SplitN(scanner.Text(), ":", 3)
		if len(parts) != 3 {
			continue
		}
		line, err := strconv.Atoi(parts[1])
		if err != nil {
			continue
		}
		matches = append(matches, SearchMatch{Path: filepath.ToSlash(parts[0]), Line: line, Text: parts[2]})
		if opts.MaxResults > 0 && len(matches) >= opts.MaxResults {
			break
		}
	}
	return matches, nil
}

func (b *DefaultBackend) searchFallback(root, term string, opts SearchOptions) ([]SearchMatch, error) {
	paths, err := b.listWithWalk(root)
	if err != nil {
		return nil, err
	}
	term = strings.ToLower(term)

	var matches []SearchMatch
	for _, rel := range paths {
		data, err := os.ReadFile(filepath.Join(root, rel))
		if err != nil {
			continue
		}
		lines := strings.Split(string(data), "\n")
		for i, line := range lines {
			if strings.Contains(strings.ToLower(line), term) {
				matches = append(matches, SearchMatch{Path: rel, Line: i + 1, Text: line})
				if opts.MaxResults > 0 && len(matches) >= opts.MaxResults {
					return matches, nil
				}
			}
		}
	}
	return matches, nil
}

// languageExtractors maps file extensions to a line-based extraction
// function. Unrecognized extensions produce a nil codemap.
var languageExtractors = map[string]func(lines []string) *Codemap{
	".go":   extractGoCodemap,
	".ts":   extractCLikeCodemap,
	".tsx":  extractCLikeCodemap,
	".js":   extractCLikeCodemap,
	".py":   extractPythonCodemap,
	".md":   extractMarkdownCodemap,
	".mdx":  extractMarkdownCodemap,
}

// GetCodemap produces a structural summary of path, or nil if its
// extension is unrecognized.
func (b *DefaultBackend) GetCodemap(root, path string) (*Codemap, error) {
	extract, ok := languageExtractors[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return nil, nil
	}
	data, err := os.ReadFile(filepath.Join(root, path))
	if err != nil {
		return nil, err
	}
	cm := extract(strings.Split(string(data), "\n"))
	if cm != nil {
		cm.Path = path
	}
	return cm, nil
}

func extractGoCodemap(lines []string) *Codemap {
	cm := &Codemap{}
	for _, line := range lines {
		t := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(t, "import "):
			cm.Imports = append(cm.Imports, strings.TrimSpace(strings.TrimPrefix(t, "import ")))
		case strings.HasPrefix(t, "func "):
			cm.Functions = append(cm.Functions, t)
		case strings.HasPrefix(t, "type "):
			cm.Types = append(cm.Types, t)
		}
	}
	return cm
}

func extractCLikeCodemap(lines []string) *Codemap {
	cm := &Codemap{}
	for _, line := range lines {
		t := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(t, "import "):
			cm.Imports = append(cm.Imports, t)
		case strings.HasPrefix(t, "function ") || strings.Contains(t, "=> {"):
			cm.Functions = append(cm.Functions, t)
		case strings.HasPrefix(t, "class ") || strings.HasPrefix(t, "interface ") || strings.HasPrefix(t, "type "):
			cm.Types = append(cm.Types, t)
		}
	}
	return cm
}

func extractPythonCodemap(lines []string) *Codemap {
	cm := &Codemap{}
	for _, line := range lines {
		t := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(t, "import ") || strings.HasPrefix(t, "from "):
			cm.Imports = append(cm.Imports, t)
		case strings.HasPrefix(t, "def "):
			cm.Functions = append(cm.Functions, t)
		case strings.HasPrefix(t, "class "):
			cm.Types = append(cm.Types, t)
		}
	}
	return cm
}

func extractMarkdownCodemap(lines []string) *Codemap {
	cm := &Codemap{}
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			cm.Sections = append(cm.Sections, strings.TrimSpace(line))
		}
	}
	return cm
}

// synonyms is the static expansion map consulted before any optional
// LLM-based expansion.
var synonyms = map[string][]string{
	"auth":    {"authentication", "authorization", "login"},
	"config":  {"configuration", "settings", "options"},
	"test":    {"tests", "testing", "spec"},
	"error":   {"err", "exception", "failure"},
	"db":      {"database", "storage", "persistence"},
	"queue":   {"worker", "job", "task"},
	"http":    {"server", "handler", "endpoint"},
	"cache":   {"caching", "memoize"},
	"token":   {"tokens", "jwt", "credential"},
	"stream":  {"streaming", "sse"},
}

// ExpandKeywords maps raw to its static synonym expansion, capping the
// result at cap entries. No LLM expansion is wired in this
// implementation; the on-disk cache contract is satisfied trivially by
// the static map's determinism.
func (b *DefaultBackend) ExpandKeywords(raw []string, cap int) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(w string) {
		if w == "" || seen[w] {
			return
		}
		seen[w] = true
		out = append(out, w)
	}
	for _, w := range raw {
		add(w)
		for _, syn := range synonyms[w] {
			add(syn)
		}
		if cap > 0 && len(out) >= cap {
			break
		}
	}
	if cap > 0 && len(out) > cap {
		out = out[:cap]
	}
	sort.Strings(out)
	return out
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
