package loader

import (
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-anim/engine/clip"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
)

// DefaultDebounce is how long a file must stay quiet after its last write before it is reloaded.
const DefaultDebounce = 100 * time.Millisecond

// Reloadable is notified after the clip catalog has been republished.
type Reloadable interface {
	MarkReload()
}

// Watcher reloads asset files when they change on disk, republishes the merged clip set to a
// catalog and tells every target to restart its controllers on the next tick.
type Watcher struct {
	watcher *fsnotify.Watcher
	loader  Loader
	catalog clip.Catalog

	mu       sync.Mutex
	targets  []Reloadable
	dirs     []string
	debounce time.Duration
	logger   *log.Logger

	// Events receives the path of every successfully applied file. Sends never block.
	Events chan string
	// Errors receives watch and reload failures. Sends never block.
	Errors chan error

	closeCh chan struct{}
	done    chan struct{}
	once    sync.Once
}

// NewWatcher starts watching the configured directories.
//
// Parameters:
//   - l: the loader that owns the cached assets
//   - c: the catalog to republish clips into
//   - options: a variadic list of WatcherBuilderOption functions
//
// Returns:
//   - *Watcher: the running watcher
//   - error: error if a directory could not be watched
func NewWatcher(l Loader, c clip.Catalog, options ...WatcherBuilderOption) (*Watcher, error) {
	if l == nil || c == nil {
		return nil, errors.New("watcher: loader and catalog are required")
	}
	w := &Watcher{
		loader:   l,
		catalog:  c,
		debounce: DefaultDebounce,
		logger:   log.Default(),
		Events:   make(chan string, 16),
		Errors:   make(chan error, 4),
		closeCh:  make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, option := range options {
		option(w)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "watcher")
	}
	for _, dir := range w.dirs {
		if err := fw.Add(dir); err != nil {
			_ = fw.Close()
			return nil, errors.Wrapf(err, "watcher: add %s", dir)
		}
	}
	w.watcher = fw
	go w.run()
	return w, nil
}

// AddTarget registers another target to notify after each reload.
//
// Parameters:
//   - t: the target
func (w *Watcher) AddTarget(t Reloadable) {
	if t == nil {
		return
	}
	w.mu.Lock()
	w.targets = append(w.targets, t)
	w.mu.Unlock()
}

// Apply reloads a single file, swaps the catalog contents and marks every target for reload.
// When the file fails to load the catalog and targets are left untouched.
//
// Parameters:
//   - path: the changed file
//
// Returns:
//   - error: error if the file could not be reloaded
func (w *Watcher) Apply(path string) error {
	if _, err := w.loader.Reload(path); err != nil {
		return err
	}
	w.catalog.Replace(w.loader.Clips())

	w.mu.Lock()
	targets := append([]Reloadable(nil), w.targets...)
	w.mu.Unlock()
	for _, t := range targets {
		t.MarkReload()
	}
	w.logger.Printf("[watcher] reloaded %s: %d clips, %d targets", path, w.catalog.Len(), len(targets))
	return nil
}

// Close stops the watcher and closes its channels.
//
// Returns:
//   - error: error from the underlying file watcher
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.closeCh)
		err = w.watcher.Close()
		<-w.done
	})
	return err
}

func (w *Watcher) run() {
	// pending holds one trailing-edge timer per file; every new write pushes it back
	pending := make(map[string]*time.Timer)
	due := make(chan string)
	defer func() {
		for _, t := range pending {
			t.Stop()
		}
		close(w.Events)
		close(w.Errors)
		close(w.done)
	}()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			// Removal keeps the last good asset
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if !isAssetFile(event.Name) {
				continue
			}
			if t, ok := pending[event.Name]; ok {
				t.Reset(w.debounce)
				continue
			}
			name := event.Name
			pending[name] = time.AfterFunc(w.debounce, func() {
				select {
				case due <- name:
				case <-w.closeCh:
				}
			})
		case name := <-due:
			delete(pending, name)
			if err := w.Apply(name); err != nil {
				w.logger.Printf("[watcher] %v", err)
				w.sendError(err)
				continue
			}
			select {
			case w.Events <- name:
			default:
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.sendError(err)
		case <-w.closeCh:
			return
		}
	}
}

func (w *Watcher) sendError(err error) {
	select {
	case w.Errors <- err:
	default:
	}
}

func isAssetFile(path string) bool {
	_, ok := backendFor(filepath.Base(path))
	return ok
}
