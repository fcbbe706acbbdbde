package slicer

// ImportGraph is the forward and reverse file-level adjacency derived
// from a set of codemaps' import lists.
type ImportGraph struct {
	Forward map[string][]string
	Reverse map[string][]string
}

// BuildImportGraph resolves each codemap's raw import strings against
// the repo's file list by basename, producing forward (imports) and
// reverse (imported-by) adjacency. Imports that don't resolve to a
// repo file are dropped; this is a best-effort graph, not a full module
// resolver.
func BuildImportGraph(codemaps map[string]*Codemap, repoFiles []string) *ImportGraph {
	byBase := make(map[string][]string)
	for _, f := range repoFiles {
		base := baseNoExt(f)
		byBase[base] = append(byBase[base], f)
	}

	g := &ImportGraph{Forward: make(map[string][]string), Reverse: make(map[string][]string)}
	for path, cm := range codemaps {
		if cm == nil {
			continue
		}
		for _, imp := range cm.Imports {
			token := importToken(imp)
			for _, target := range byBase[token] {
				if target == path {
					continue
				}
				g.Forward[path] = append(g.Forward[path], target)
				g.Reverse[target] = append(g.Reverse[target], path)
			}
		}
	}
	return g
}

// BFS returns the shortest hop distance from any of seeds to every
// file reachable within maxDepth, walking both forward and reverse
// edges (an import and its importers are equally "nearby").
func BFS(g *ImportGraph, seeds []string, maxDepth int) map[string]int {
	depth := make(map[string]int)
	queue := make([]string, 0, len(seeds))
	for _, s := range seeds {
		if _, ok := depth[s]; !ok {
			depth[s] = 0
			queue = append(queue, s)
		}
	}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		d := depth[cur]
		if d >= maxDepth {
			continue
		}
		neighbors := append(append([]string{}, g.Forward[cur]...), g.Reverse[cur]...)
		for _, n := range neighbors {
			if _, seen := depth[n]; !seen {
				depth[n] = d + 1
				queue = append(queue, n)
			}
		}
	}
	return depth
}

func baseNoExt(path string) string {
	start := 0
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			start = i + 1
			break
		}
	}
	name := path[start:]
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '.' {
			return name[:i]
		}
	}
	return name
}

// importToken extracts the last path-like segment of a raw import
// string so it can be matched against file basenames.
func importToken(raw string) string {
	segment := raw
	for len(segment) > 0 {
		last := segment[len(segment)-1]
		if last == '"' || last == '\'' || last == ' ' || last == '\t' {
			segment = segment[:len(segment)-1]
			continue
		}
		break
	}
	for i := len(segment) - 1; i >= 0; i-- {
		if segment[i] == '/' {
			return baseNoExt(segment[i+1:])
		}
	}
	return baseNoExt(segment)
}
