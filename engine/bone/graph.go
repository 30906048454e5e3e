package bone

import (
	"sync"
)

// graph is the implementation of the Graph interface.
type graph struct {
	mu sync.RWMutex

	name    string
	bones   map[string]*Bone
	initial map[string]InitialSnapshot
	order   []string
	roots   []*Bone
	version uint64
}

// Graph defines the registry of bones for one model.
//
// A Graph is shared by every instance of its model and is only mutated by registration calls made
// by the host between ticks. Registering a name that already exists replaces the previous bone in
// place; two distinct bones sharing a name is an authoring error that is accepted silently.
type Graph interface {
	// Name returns the model name this graph was built for.
	//
	// Returns:
	//   - string: the model name
	Name() string

	// RegisterBone inserts the bone and, recursively, each of its children.
	// The bone's InitialSnapshot is captured at this point.
	//
	// Parameters:
	//   - b: the bone to register
	RegisterBone(b *Bone)

	// SetActiveModel clears all registered bones and registers the given root bones and their descendants.
	// Used when an instance swaps models.
	//
	// Parameters:
	//   - roots: the root bones of the new model
	SetActiveModel(roots []*Bone)

	// Bone looks up a registered bone by name.
	//
	// Parameters:
	//   - name: the bone name
	//
	// Returns:
	//   - *Bone: the bone, or nil
	//   - bool: true if the bone is registered
	Bone(name string) (*Bone, bool)

	// InitialSnapshot returns the rest transform captured when the named bone was registered.
	//
	// Parameters:
	//   - name: the bone name
	//
	// Returns:
	//   - InitialSnapshot: the rest transform
	//   - bool: true if the bone is registered
	InitialSnapshot(name string) (InitialSnapshot, bool)

	// Has reports whether a bone with the given name is registered.
	//
	// Parameters:
	//   - name: the bone name
	//
	// Returns:
	//   - bool: true if registered
	Has(name string) bool

	// Names returns the registered bone names in registration order.
	//
	// Returns:
	//   - []string: a copy of the ordered names
	Names() []string

	// Bones returns the registered bones in registration order.
	//
	// Returns:
	//   - []*Bone: the ordered bones
	Bones() []*Bone

	// Roots returns the bones passed directly to RegisterBone or SetActiveModel.
	//
	// Returns:
	//   - []*Bone: the root bones
	Roots() []*Bone

	// Len returns the number of registered bones.
	//
	// Returns:
	//   - int: the bone count
	Len() int

	// Version returns a counter bumped on every registration change.
	// Poses compare it to detect that they must be rebuilt.
	//
	// Returns:
	//   - uint64: the current version
	Version() uint64
}

var _ Graph = &graph{}

// NewGraph creates an empty Graph and applies the given options.
//
// Parameters:
//   - options: variadic list of GraphBuilderOption functions to configure the Graph
//
// Returns:
//   - Graph: the new bone graph
func NewGraph(options ...GraphBuilderOption) Graph {
	g := &graph{
		bones:   make(map[string]*Bone),
		initial: make(map[string]InitialSnapshot),
	}
	for _, opt := range options {
		opt(g)
	}
	return g
}

func (g *graph) Name() string {
	return g.name
}

func (g *graph) RegisterBone(b *Bone) {
	if b == nil {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	g.roots = append(g.roots, b)
	g.register(b)
	g.version++
}

// register inserts b and descends into each child. The caller holds the write lock.
func (g *graph) register(b *Bone) {
	g.registerTree(b, make(map[*Bone]bool))
}

// registerTree skips bones already visited on this pass, so a cyclic hierarchy terminates.
func (g *graph) registerTree(b *Bone, visited map[*Bone]bool) {
	if b == nil || visited[b] {
		return
	}
	visited[b] = true

	if _, exists := g.bones[b.Name]; !exists {
		g.order = append(g.order, b.Name)
	}
	g.bones[b.Name] = b
	g.initial[b.Name] = b.Snapshot()

	for _, child := range b.Children {
		g.registerTree(child, visited)
	}
}

func (g *graph) SetActiveModel(roots []*Bone) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.bones = make(map[string]*Bone, len(g.bones))
	g.initial = make(map[string]InitialSnapshot, len(g.initial))
	g.order = g.order[:0]
	g.roots = nil

	for _, b := range roots {
		if b == nil {
			continue
		}
		g.roots = append(g.roots, b)
		g.register(b)
	}
	g.version++
}

func (g *graph) Bone(name string) (*Bone, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	b, ok := g.bones[name]
	return b, ok
}

func (g *graph) InitialSnapshot(name string) (InitialSnapshot, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	s, ok := g.initial[name]
	return s, ok
}

func (g *graph) Has(name string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.bones[name]
	return ok
}

func (g *graph) Names() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

func (g *graph) Bones() []*Bone {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*Bone, 0, len(g.order))
	for _, name := range g.order {
		out = append(out, g.bones[name])
	}
	return out
}

func (g *graph) Roots() []*Bone {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*Bone, len(g.roots))
	copy(out, g.roots)
	return out
}

func (g *graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.order)
}

func (g *graph) Version() uint64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.version
}
