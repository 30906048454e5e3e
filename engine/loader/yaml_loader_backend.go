package loader

import (
	"io"
	"os"

	"github.com/pkg/errors"
)

// yamlLoaderBackendImpl is the implementation of yamlLoaderBackend.
type yamlLoaderBackendImpl struct {
	ticksPerSecond float64
}

// yamlLoaderBackend is a loaderBackend implementation for YAML animation files.
type yamlLoaderBackend interface {
	loaderBackend
}

var _ yamlLoaderBackend = &yamlLoaderBackendImpl{}

// newYAMLLoaderBackend creates a new YAML loader backend.
//
// Parameters:
//   - tps: ticks per second for files that do not declare their own
//
// Returns:
//   - yamlLoaderBackend: the loader backend for YAML animation files
func newYAMLLoaderBackend(tps float64) yamlLoaderBackend {
	return &yamlLoaderBackendImpl{ticksPerSecond: tps}
}

func (b *yamlLoaderBackendImpl) Load(path string) (*Asset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "loader: read %s", path)
	}
	return parseAnimationFile(path, data, b.ticksPerSecond)
}

func (b *yamlLoaderBackendImpl) LoadReader(name string, r io.Reader) (*Asset, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrapf(err, "loader: read %s", name)
	}
	return parseAnimationFile(name, data, b.ticksPerSecond)
}
