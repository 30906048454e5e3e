package clip

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/pkg/errors"
)

// ErrUnresolvedStage is returned when a request names a clip the library does not hold.
var ErrUnresolvedStage = errors.New("unresolved animation stage")

// Library resolves clips by name.
type Library interface {
	// Clip looks up a clip by name.
	//
	// Parameters:
	//   - name: the clip name
	//
	// Returns:
	//   - *Clip: the clip, or nil
	//   - bool: true if the clip exists
	Clip(name string) (*Clip, bool)
}

// Resolve turns every stage of a request into a QueuedClip. Resolution is all or nothing: if any
// stage is missing no clips are returned and the error wraps ErrUnresolvedStage.
//
// Parameters:
//   - lib: the library to resolve against
//   - req: the request
//
// Returns:
//   - []QueuedClip: the resolved stages in order
//   - error: error if any stage could not be resolved
func Resolve(lib Library, req *RawAnimation) ([]QueuedClip, error) {
	if lib == nil {
		return nil, errors.Wrap(ErrUnresolvedStage, "no clip library")
	}
	stages := req.Stages()
	out := make([]QueuedClip, 0, len(stages))
	for _, s := range stages {
		c, ok := lib.Clip(s.Clip)
		if !ok {
			return nil, errors.Wrapf(ErrUnresolvedStage, "clip %q", s.Clip)
		}
		out = append(out, QueuedClip{Clip: c, Loop: s.Loop})
	}
	return out, nil
}

// catalog is the implementation of the Catalog interface.
type catalog struct {
	mu    sync.RWMutex
	clips map[string]*Clip
}

// Catalog is a concurrency-safe in-memory Library that can be swapped wholesale on reload.
type Catalog interface {
	Library

	// Add publishes a clip, replacing any clip with the same name.
	//
	// Parameters:
	//   - c: the clip
	Add(c *Clip)

	// Replace swaps the entire clip set atomically.
	//
	// Parameters:
	//   - clips: the new clip set
	Replace(clips []*Clip)

	// Names returns the sorted clip names.
	//
	// Returns:
	//   - []string: the clip names
	Names() []string

	// Len returns the number of clips.
	//
	// Returns:
	//   - int: the clip count
	Len() int
}

var _ Catalog = &catalog{}

// NewCatalog creates a Catalog holding the given clips.
//
// Parameters:
//   - clips: the initial clips
//
// Returns:
//   - Catalog: the new catalog
func NewCatalog(clips ...*Clip) Catalog {
	c := &catalog{clips: make(map[string]*Clip, len(clips))}
	for _, cl := range clips {
		if cl != nil {
			c.clips[cl.Name] = cl
		}
	}
	return c
}

func (c *catalog) Clip(name string) (*Clip, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cl, ok := c.clips[name]
	return cl, ok
}

func (c *catalog) Add(cl *Clip) {
	if cl == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clips[cl.Name] = cl
}

func (c *catalog) Replace(clips []*Clip) {
	next := make(map[string]*Clip, len(clips))
	for _, cl := range clips {
		if cl != nil {
			next[cl.Name] = cl
		}
	}
	c.mu.Lock()
	c.clips = next
	c.mu.Unlock()
}

func (c *catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return common.SortedKeys(c.clips)
}

func (c *catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.clips)
}
