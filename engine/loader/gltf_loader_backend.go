package loader

import (
	"io"

	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
)

// gltfLoaderBackendImpl is the implementation of gltfLoaderBackend.
type gltfLoaderBackendImpl struct {
	ticksPerSecond float64
}

// gltfLoaderBackend is a loaderBackend implementation for glTF/GLB files.
// It reads the first skin as the skeleton and every animation targeting its joints as clips.
type gltfLoaderBackend interface {
	loaderBackend
}

var _ gltfLoaderBackend = &gltfLoaderBackendImpl{}

// newGLTFLoaderBackend creates a new glTF loader backend.
//
// Parameters:
//   - tps: ticks per second used to convert glTF timestamps
//
// Returns:
//   - gltfLoaderBackend: the loader backend for glTF/GLB files
func newGLTFLoaderBackend(tps float64) gltfLoaderBackend {
	return &gltfLoaderBackendImpl{ticksPerSecond: tps}
}

func (b *gltfLoaderBackendImpl) Load(path string) (*Asset, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "loader: open %s", path)
	}
	return b.importDocument(path, doc)
}

func (b *gltfLoaderBackendImpl) LoadReader(name string, r io.Reader) (*Asset, error) {
	doc := new(gltf.Document)
	if err := gltf.NewDecoder(r).Decode(doc); err != nil {
		return nil, errors.Wrapf(err, "loader: decode %s", name)
	}
	return b.importDocument(name, doc)
}

func (b *gltfLoaderBackendImpl) importDocument(name string, doc *gltf.Document) (*Asset, error) {
	if len(doc.Skins) == 0 {
		return nil, errors.Errorf("loader: %s has no skin", name)
	}
	skel := newGLTFSkeletonExtractor(doc)
	g, joints, err := skel.ExtractSkeleton(name, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "loader: %s", name)
	}

	anim := newGLTFAnimationExtractor(doc, b.ticksPerSecond)
	clips, err := anim.ExtractAnimations(g, joints)
	if err != nil {
		return nil, errors.Wrapf(err, "loader: %s", name)
	}
	return &Asset{Name: name, Graph: g, Clips: clips}, nil
}
