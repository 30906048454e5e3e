package bone

// GraphBuilderOption is a functional option for configuring a Graph via NewGraph.
type GraphBuilderOption func(*graph)

// WithName is an option builder that sets the model name of the Graph.
//
// Parameters:
//   - name: the model name
//
// Returns:
//   - GraphBuilderOption: a function that applies the name option to a graph
func WithName(name string) GraphBuilderOption {
	return func(g *graph) {
		g.name = name
	}
}

// WithBones is an option builder that registers the given root bones (and their children) during construction.
//
// Parameters:
//   - roots: the root bones to register
//
// Returns:
//   - GraphBuilderOption: a function that registers the bones on a graph
func WithBones(roots ...*Bone) GraphBuilderOption {
	return func(g *graph) {
		for _, b := range roots {
			if b == nil {
				continue
			}
			g.roots = append(g.roots, b)
			g.register(b)
		}
		g.version++
	}
}
