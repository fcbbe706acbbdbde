package strategies

import "github.com/ivo-run/ivo/internal/slicer"

// All returns one instance of every built-in retrieval strategy, in the
// order Plan executes them; later strategies (ast, symbols, graph) see
// the files matched by earlier ones.
func All() []slicer.Strategy {
	return []slicer.Strategy{
		Explicit{},
		Diff{},
		Skeleton{},
		Config{},
		Docs{},
		Keyword{},
		AST{},
		Symbols{},
		Graph{},
		Complexity{},
		Inventory{},
		Forest{},
	}
}
