// Package inspect serves a read-only JSON view of running scenes for debugging.
package inspect

import (
	"context"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/bone"
	"github.com/Carmen-Shannon/oxy-anim/engine/instance"
	"github.com/Carmen-Shannon/oxy-anim/engine/scene"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
)

// Source supplies the scenes to inspect, keyed by their ordering key. engine.Engine satisfies it.
type Source interface {
	Scenes() map[int]scene.Scene
}

// SceneMap is a fixed Source.
type SceneMap map[int]scene.Scene

// Scenes returns the map itself.
func (m SceneMap) Scenes() map[int]scene.Scene { return m }

// SceneInfo summarises a scene.
type SceneInfo struct {
	Key     int    `json:"key"`
	Name    string `json:"name"`
	Active  bool   `json:"active"`
	Objects int    `json:"objects"`
}

// ObjectInfo summarises an animated object.
type ObjectInfo struct {
	ID          uint64   `json:"id"`
	Roles       string   `json:"roles"`
	Model       string   `json:"model"`
	Controllers []string `json:"controllers"`
	StartedAt   float64  `json:"started_at"`
	UpdatedAt   float64  `json:"updated_at"`
}

// ControllerInfo describes a controller's playback.
type ControllerInfo struct {
	Name    string  `json:"name"`
	State   string  `json:"state"`
	Clip    string  `json:"clip,omitempty"`
	Loop    string  `json:"loop,omitempty"`
	Request string  `json:"request,omitempty"`
	Speed   float64 `json:"speed"`
}

type server struct {
	src    Source
	logger *log.Logger
	access io.Writer
}

// HandlerOption is a functional option for configuring the handler built by NewHandler.
type HandlerOption func(*server)

// WithLogger sets the logger recovered panics are reported to.
//
// Parameters:
//   - logger: the logger
//
// Returns:
//   - HandlerOption: option function to apply
func WithLogger(logger *log.Logger) HandlerOption {
	return func(s *server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithAccessLog writes an Apache-style access log line per request to w.
//
// Parameters:
//   - w: the access log destination
//
// Returns:
//   - HandlerOption: option function to apply
func WithAccessLog(w io.Writer) HandlerOption {
	return func(s *server) {
		s.access = w
	}
}

// NewHandler builds the inspector routes:
//
//	GET /scenes
//	GET /scenes/{scene}/objects
//	GET /scenes/{scene}/objects/{id}/pose
//	GET /scenes/{scene}/objects/{id}/controllers
//
// Parameters:
//   - src: the scenes to expose
//   - options: functional options
//
// Returns:
//   - http.Handler: the inspector handler
func NewHandler(src Source, options ...HandlerOption) http.Handler {
	s := &server{src: src, logger: log.Default()}
	for _, opt := range options {
		opt(s)
	}

	r := mux.NewRouter()
	r.HandleFunc("/scenes", s.handleScenes).Methods(http.MethodGet)
	r.HandleFunc("/scenes/{scene:-?[0-9]+}/objects", s.handleObjects).Methods(http.MethodGet)
	r.HandleFunc("/scenes/{scene:-?[0-9]+}/objects/{id:[0-9]+}/pose", s.handlePose).Methods(http.MethodGet)
	r.HandleFunc("/scenes/{scene:-?[0-9]+}/objects/{id:[0-9]+}/controllers", s.handleControllers).Methods(http.MethodGet)

	var h http.Handler = r
	h = handlers.RecoveryHandler(handlers.RecoveryLogger(s.logger), handlers.PrintRecoveryStack(true))(h)
	if s.access != nil {
		h = handlers.LoggingHandler(s.access, h)
	}
	return h
}

// Serve runs the inspector on addr until ctx is done.
//
// Parameters:
//   - ctx: stops the server
//   - addr: the listen address
//   - h: the handler from NewHandler
//
// Returns:
//   - error: error if the server fails to start or shut down
func Serve(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		log.Printf("[inspect] listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "inspect: serve")
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "inspect: shutdown")
		}
		return nil
	}
}

func (s *server) handleScenes(w http.ResponseWriter, r *http.Request) {
	scenes := s.src.Scenes()
	out := make([]SceneInfo, 0, len(scenes))
	for _, k := range common.SortedKeys(scenes) {
		sc := scenes[k]
		out = append(out, SceneInfo{Key: k, Name: sc.Name(), Active: sc.Active(), Objects: sc.Count()})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *server) handleObjects(w http.ResponseWriter, r *http.Request) {
	sc, ok := s.scene(w, r)
	if !ok {
		return
	}
	out := make([]ObjectInfo, 0, sc.Count())
	for _, id := range sc.IDs() {
		d := sc.Data(id)
		if d == nil {
			continue
		}
		info := ObjectInfo{
			ID:          id,
			Roles:       instance.RolesOf(sc.Get(id)).String(),
			Controllers: []string{},
			StartedAt:   d.StartedAt(),
			UpdatedAt:   d.UpdatedAt(),
		}
		if p := sc.Processor(id); p != nil {
			info.Model = p.Graph().Name()
		}
		for _, c := range d.Controllers() {
			info.Controllers = append(info.Controllers, c.Name())
		}
		out = append(out, info)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *server) handlePose(w http.ResponseWriter, r *http.Request) {
	sc, id, ok := s.object(w, r)
	if !ok {
		return
	}
	var pose []bone.Transform
	sc.ReadPose(id, func(p []bone.Transform) { pose = p })
	if pose == nil {
		pose = []bone.Transform{}
	}
	writeJSON(w, http.StatusOK, pose)
}

func (s *server) handleControllers(w http.ResponseWriter, r *http.Request) {
	sc, id, ok := s.object(w, r)
	if !ok {
		return
	}
	d := sc.Data(id)
	out := make([]ControllerInfo, 0)
	for _, c := range d.Controllers() {
		info := ControllerInfo{
			Name:  c.Name(),
			State: c.State().String(),
			Speed: c.AnimationSpeed(),
		}
		if cur := c.CurrentClip(); cur != nil && cur.Clip != nil {
			info.Clip = cur.Clip.Name
			info.Loop = cur.Loop.Name()
		}
		if req := c.CurrentRequest(); req != nil && !req.Empty() {
			info.Request = req.String()
		}
		out = append(out, info)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *server) scene(w http.ResponseWriter, r *http.Request) (scene.Scene, bool) {
	key, err := strconv.Atoi(mux.Vars(r)["scene"])
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.Wrap(err, "scene key"))
		return nil, false
	}
	sc, ok := s.src.Scenes()[key]
	if !ok || sc == nil {
		writeError(w, http.StatusNotFound, errors.Errorf("scene %d not found", key))
		return nil, false
	}
	return sc, true
}

func (s *server) object(w http.ResponseWriter, r *http.Request) (scene.Scene, uint64, bool) {
	sc, ok := s.scene(w, r)
	if !ok {
		return nil, 0, false
	}
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.Wrap(err, "object id"))
		return nil, 0, false
	}
	if sc.Data(id) == nil {
		writeError(w, http.StatusNotFound, errors.Errorf("object %d not found", id))
		return nil, 0, false
	}
	return sc, id, true
}
