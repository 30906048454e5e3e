package loader

import (
	"io"

	"github.com/Carmen-Shannon/oxy-anim/engine/bone"
	"github.com/Carmen-Shannon/oxy-anim/engine/clip"
)

// Asset is everything a single file contributes: an optional skeleton and any number of clips.
type Asset struct {
	// Name is the cache key the asset was loaded under.
	Name string

	// Graph is the skeleton described by the file, nil for clip-only files.
	Graph bone.Graph

	// Clips are the animations described by the file, sorted by name.
	Clips []*clip.Clip
}

// loaderBackend defines the generic interface for loading assets from files or streams.
// Concrete implementations (e.g., gltfLoaderBackend) handle format-specific details.
type loaderBackend interface {
	// Load performs a full asset import from the given file path.
	//
	// Parameters:
	//   - path: the file path to load
	//
	// Returns:
	//   - *Asset: the imported asset
	//   - error: error if loading fails
	Load(path string) (*Asset, error)

	// LoadReader imports an asset from a reader stream.
	//
	// Parameters:
	//   - name: the asset name used for the skeleton and error messages
	//   - r: the reader providing asset data
	//
	// Returns:
	//   - *Asset: the imported asset
	//   - error: error if loading fails
	LoadReader(name string, r io.Reader) (*Asset, error)
}
