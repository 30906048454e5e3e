package loader

import (
	"log"
	"time"
)

// WatcherBuilderOption is a functional option for configuring a Watcher via NewWatcher.
type WatcherBuilderOption func(*Watcher)

// WithDirs is an option builder that adds directories to watch.
//
// Parameters:
//   - dirs: the directories
//
// Returns:
//   - WatcherBuilderOption: a function that applies the directories to a watcher
func WithDirs(dirs ...string) WatcherBuilderOption {
	return func(w *Watcher) {
		w.dirs = append(w.dirs, dirs...)
	}
}

// WithTarget is an option builder that registers a target to notify after each reload.
//
// Parameters:
//   - t: the target
//
// Returns:
//   - WatcherBuilderOption: a function that applies the target to a watcher
func WithTarget(t Reloadable) WatcherBuilderOption {
	return func(w *Watcher) {
		if t != nil {
			w.targets = append(w.targets, t)
		}
	}
}

// WithDebounce is an option builder that sets how long a file must stay quiet before it is reloaded.
//
// Parameters:
//   - d: the debounce window
//
// Returns:
//   - WatcherBuilderOption: a function that applies the debounce to a watcher
func WithDebounce(d time.Duration) WatcherBuilderOption {
	return func(w *Watcher) {
		if d >= 0 {
			w.debounce = d
		}
	}
}

// WithWatcherLogger is an option builder that sets the watcher's logger.
//
// Parameters:
//   - logger: the logger
//
// Returns:
//   - WatcherBuilderOption: a function that applies the logger to a watcher
func WithWatcherLogger(logger *log.Logger) WatcherBuilderOption {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}
