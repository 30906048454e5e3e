package loader

import (
	"log"
)

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithTicksPerSecond is an option builder that sets how authored seconds convert to ticks for files
// that do not declare their own rate.
//
// Parameters:
//   - tps: ticks per second
//
// Returns:
//   - LoaderBuilderOption: a function that applies the rate option to a loader
func WithTicksPerSecond(tps float64) LoaderBuilderOption {
	return func(l *loader) {
		if tps > 0 {
			l.ticksPerSecond = tps
		}
	}
}

// WithAsset is an option builder that pre-populates the asset cache.
//
// Parameters:
//   - key: the cache key for the asset
//   - a: the asset to cache
//
// Returns:
//   - LoaderBuilderOption: a function that applies the asset option to a loader
func WithAsset(key string, a *Asset) LoaderBuilderOption {
	return func(l *loader) {
		if a != nil {
			l.store(key, a)
		}
	}
}

// WithLogger is an option builder that sets the logger used for load notices.
//
// Parameters:
//   - logger: the logger
//
// Returns:
//   - LoaderBuilderOption: a function that applies the logger option to a loader
func WithLogger(logger *log.Logger) LoaderBuilderOption {
	return func(l *loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}
