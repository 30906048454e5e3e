package loader

import (
	"io"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/clip"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
)

var quiet = log.New(io.Discard, "", 0)

const walkFile = `
ticks_per_second: 20
skeleton:
  name: golem
  bones:
    - name: body
      pivot: [0, 12, 0]
      rotation: [0, 90, 0]
      children:
        - name: leg
          pivot: [0, 6, 0]
animations:
  walk:
    loop: "true"
    bones:
      leg:
        rotation:
          - time: 0
            value: [0, 0, 0]
          - time: 0.5
            value: [90, 0, 45]
            easing: sine_in
        position:
          - time: 0.5
            value: ["0", "query.speed * 2", "0"]
    sound_effects:
      - time: 0.25
        effect: step
    timeline:
      - time: 0.5
        instruction: "footstep;"
  idle:
    loop: hold_on_last_frame
    length: 2
    bones:
      body:
        scale:
          - time: 1
            value: [1, 1.1, 1]
`

func TestParseAnimationFile(t *testing.T) {
	a, err := parseAnimationFile("golem.yaml", []byte(walkFile), 0)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if a.Graph == nil || a.Graph.Name() != "golem" {
		t.Fatalf("graph = %v, want golem", a.Graph)
	}
	if got := a.Graph.Names(); len(got) != 2 || got[0] != "body" || got[1] != "leg" {
		t.Fatalf("bone names = %v", got)
	}
	body, _ := a.Graph.InitialSnapshot("body")
	if math.Abs(body.Rotation.Y()+math.Pi/2) > 1e-9 {
		t.Errorf("body rest rotation y = %v, want -pi/2", body.Rotation.Y())
	}
	leg, _ := a.Graph.Bone("leg")
	if leg.Parent == nil || leg.Parent.Name != "body" {
		t.Errorf("leg parent = %v, want body", leg.Parent)
	}

	if len(a.Clips) != 2 || a.Clips[0].Name != "idle" || a.Clips[1].Name != "walk" {
		t.Fatalf("clips not sorted by name")
	}

	idle := a.Clips[0]
	if idle.Loop != clip.Hold {
		t.Errorf("idle loop = %v, want hold", idle.Loop)
	}
	if idle.Length != 40 {
		t.Errorf("idle length = %v, want 40", idle.Length)
	}

	walk := a.Clips[1]
	if walk.Loop != clip.Loop {
		t.Errorf("walk loop = %v, want loop", walk.Loop)
	}
	if walk.Length != 10 {
		t.Errorf("walk length = %v, want 10", walk.Length)
	}
	track, ok := walk.Track("leg")
	if !ok {
		t.Fatal("walk does not drive leg")
	}

	x := track.Rotation.X
	if len(x) != 2 || x[0].Length != 0 || x[1].Length != 10 {
		t.Fatalf("rotation x segments = %+v", x)
	}
	if !x[1].End.IsConstant() {
		t.Error("numeric rotation should load as a constant")
	}
	if got := x[1].End.Get(nil); math.Abs(got+math.Pi/2) > 1e-9 {
		t.Errorf("rotation x end = %v, want -pi/2", got)
	}
	if got := track.Rotation.Z[1].End.Get(nil); math.Abs(got-math.Pi/4) > 1e-9 {
		t.Errorf("rotation z end = %v, want pi/4", got)
	}
	if x[1].Easing == nil {
		t.Error("rotation easing not resolved")
	}

	y := track.Position.Y
	if len(y) != 1 || y[0].Length != 10 {
		t.Fatalf("position y segments = %+v", y)
	}
	if y[0].Start.IsConstant() || y[0].Start != y[0].End {
		t.Error("first segment should hold the first keyframe value")
	}

	if len(walk.Sounds) != 1 || walk.Sounds[0].StartTime != 5 || walk.Sounds[0].Sound != "step" {
		t.Errorf("sounds = %+v", walk.Sounds)
	}
	if len(walk.Customs) != 1 || walk.Customs[0].StartTime != 10 {
		t.Errorf("customs = %+v", walk.Customs)
	}
}

func TestParseAnimationFileTicksPerSecond(t *testing.T) {
	tests := []struct {
		name   string
		file   string
		loader float64
		want   float64
	}{
		{"loader rate", "animations: {a: {length: 1}}", 10, 10},
		{"file rate wins", "ticks_per_second: 30\nanimations: {a: {length: 1}}", 10, 30},
		{"default", "animations: {a: {length: 1}}", 0, DefaultTicksPerSecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := parseAnimationFile("a.yaml", []byte(tt.file), tt.loader)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if got := a.Clips[0].Length; got != tt.want {
				t.Errorf("length = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseAnimationFileInvalid(t *testing.T) {
	tests := []struct {
		name string
		file string
	}{
		{"unknown easing", `
animations:
  a:
    bones:
      b:
        rotation: [{time: 1, value: [0, 0, 0], easing: wobble}]`},
		{"two values", `
animations:
  a:
    bones:
      b:
        position: [{time: 1, value: [0, 0]}]`},
		{"times out of order", `
animations:
  a:
    bones:
      b:
        position: [{time: 1, value: [0, 0, 0]}, {time: 0.5, value: [1, 1, 1]}]`},
		{"track longer than clip", `
animations:
  a:
    length: 0.1
    bones:
      b:
        position: [{time: 1, value: [0, 0, 0]}]`},
		{"bad expression", `
animations:
  a:
    bones:
      b:
        position: [{time: 1, value: ["query.", 0, 0]}]`},
		{"duplicate bone", `
skeleton:
  bones:
    - name: a
    - name: a`},
		{"unnamed bone", `
skeleton:
  bones:
    - pivot: [0, 0, 0]`},
		{"short pivot", `
skeleton:
  bones:
    - name: a
      pivot: [0, 1]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseAnimationFile("bad.yaml", []byte(tt.file), 20)
			if !errors.Is(err, ErrInvalidClip) {
				t.Fatalf("err = %v, want ErrInvalidClip", err)
			}
		})
	}
}

func TestParseAnimationFileMalformed(t *testing.T) {
	if _, err := parseAnimationFile("bad.yaml", []byte("animations: [1, 2"), 20); err == nil {
		t.Fatal("expected a decode error")
	}
}

func TestLoaderReaderCacheAndMerge(t *testing.T) {
	l := NewLoader(WithLogger(quiet))

	first, err := l.LoadReader("base", strings.NewReader("animations: {walk: {length: 1}, idle: {length: 1}}"), BackendTypeYAML)
	if err != nil {
		t.Fatalf("load base: %v", err)
	}
	again, err := l.LoadReader("base", strings.NewReader("not: [valid"), BackendTypeYAML)
	if err != nil || again != first {
		t.Fatalf("cached load = %v, %v; want the first asset", again, err)
	}
	if _, err := l.LoadReader("override", strings.NewReader("animations: {walk: {length: 3}}"), BackendTypeYAML); err != nil {
		t.Fatalf("load override: %v", err)
	}

	clips := l.Clips()
	if len(clips) != 2 || clips[0].Name != "idle" || clips[1].Name != "walk" {
		t.Fatalf("clips = %v", clips)
	}
	if clips[1].Length != 60 {
		t.Errorf("walk length = %v, want the later asset's 60", clips[1].Length)
	}
	if got := l.Catalog().Names(); len(got) != 2 {
		t.Errorf("catalog names = %v", got)
	}
	if len(l.Assets()) != 2 || l.Get("override") == nil || l.Get("missing") != nil {
		t.Error("asset cache lookups are wrong")
	}
	if _, err := l.LoadReader("x", strings.NewReader(""), LoaderBackendType(9)); err == nil {
		t.Error("expected an unsupported backend error")
	}
}

func TestLoaderUnsupportedExtension(t *testing.T) {
	if _, err := NewLoader(WithLogger(quiet)).Load("model.fbx"); err == nil {
		t.Fatal("expected an unsupported format error")
	}
}

func TestLoaderReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "anim.yml")
	write := func(content string) {
		t.Helper()
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	write("animations: {walk: {length: 1}}")
	l := NewLoader(WithLogger(quiet), WithTicksPerSecond(10))
	a, err := l.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	write("animations: {run: {length: 1}}")
	if cached, _ := l.Load(path); cached != a {
		t.Error("Load should serve the cached asset")
	}
	b, err := l.Reload(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(b.Clips) != 1 || b.Clips[0].Name != "run" || b.Clips[0].Length != 10 {
		t.Errorf("reloaded clips = %+v", b.Clips)
	}

	write("animations: {run: {bones: {b: {position: [{time: 1, value: [0]}]}}}}")
	if _, err := l.Reload(path); !errors.Is(err, ErrInvalidClip) {
		t.Fatalf("err = %v, want ErrInvalidClip", err)
	}
	if l.Get(path) != b {
		t.Error("a failed reload must keep the previous asset")
	}
}

type reloadCounter struct{ n int }

func (r *reloadCounter) MarkReload() { r.n++ }

func TestWatcherApply(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "anim.yaml")
	if err := os.WriteFile(path, []byte("animations: {walk: {length: 1}}"), 0o644); err != nil {
		t.Fatal(err)
	}

	l := NewLoader(WithLogger(quiet))
	cat := clip.NewCatalog()
	target := &reloadCounter{}
	w, err := NewWatcher(l, cat, WithTarget(target), WithWatcherLogger(quiet), WithDebounce(0))
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	defer w.Close()

	if err := w.Apply(path); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got := cat.Names(); len(got) != 1 || got[0] != "walk" {
		t.Errorf("catalog = %v, want [walk]", got)
	}
	if target.n != 1 {
		t.Errorf("reload marks = %d, want 1", target.n)
	}

	second := &reloadCounter{}
	w.AddTarget(second)
	if err := w.Apply(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
	if target.n != 1 || second.n != 0 || cat.Len() != 1 {
		t.Error("a failed apply must leave the catalog and targets untouched")
	}

	if err := os.WriteFile(path, []byte("animations: {walk: {length: 1}, run: {length: 2}}"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := w.Apply(path); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if cat.Len() != 2 || target.n != 2 || second.n != 1 {
		t.Errorf("after second apply: clips %d, marks %d/%d", cat.Len(), target.n, second.n)
	}
}

func TestWatcherReloadsFinalContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "anim.yaml")
	if err := os.WriteFile(path, []byte("animations: {walk: {length: 1}}"), 0o644); err != nil {
		t.Fatal(err)
	}
	l := NewLoader(WithLogger(quiet))
	if _, err := l.Load(path); err != nil {
		t.Fatalf("load: %v", err)
	}
	cat := l.Catalog()
	w, err := NewWatcher(l, cat, WithDirs(dir), WithWatcherLogger(quiet), WithDebounce(300*time.Millisecond))
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	defer w.Close()

	// A truncated save followed by the full one
	if err := os.WriteFile(path, []byte("animations: {run: {bones: {b: {position: [{time: 1"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("animations: {run: {length: 1}, jump: {length: 1}}"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-w.Events:
		if got != path {
			t.Errorf("event for %q, want %q", got, path)
		}
	case err := <-w.Errors:
		t.Fatalf("reloaded a partial file: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after the final write")
	}
	if got := cat.Names(); len(got) != 2 || got[0] != "jump" || got[1] != "run" {
		t.Errorf("catalog = %v, want [jump run]", got)
	}
}

func TestWatcherRequiresLoaderAndCatalog(t *testing.T) {
	if _, err := NewWatcher(nil, clip.NewCatalog()); err == nil {
		t.Fatal("expected an error without a loader")
	}
}

func TestIsAssetFile(t *testing.T) {
	tests := map[string]bool{
		"a/b/walk.yaml": true,
		"walk.YML":      true,
		"hero.glb":      true,
		"hero.gltf":     true,
		"notes.txt":     false,
		"walk.yaml~":    false,
	}
	for path, want := range tests {
		if got := isAssetFile(path); got != want {
			t.Errorf("isAssetFile(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestGLTFSkeleton(t *testing.T) {
	s, c := math.Sin(math.Pi/4), math.Cos(math.Pi/4)
	doc := &gltf.Document{
		Nodes: []*gltf.Node{
			{Name: "mesh"},
			{Name: "spine", Translation: [3]float32{0, 1, 0}, Rotation: [4]float32{0, 0, float32(s), float32(c)}, Scale: [3]float32{1, 1, 1}},
			{Name: "hips", Children: []uint32{1}, Rotation: [4]float32{0, 0, 0, 1}, Scale: [3]float32{2, 2, 2}},
		},
		Skins: []*gltf.Skin{{Joints: []uint32{2, 1}}},
	}

	g, joints, err := newGLTFSkeletonExtractor(doc).ExtractSkeleton("hero", 0)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if g.Name() != "hero" {
		t.Errorf("graph name = %q", g.Name())
	}
	if got := g.Names(); len(got) != 2 || got[0] != "hips" || got[1] != "spine" {
		t.Fatalf("names = %v, want parents first", got)
	}
	if joints[2] != "hips" || joints[1] != "spine" || len(joints) != 2 {
		t.Errorf("joints = %v", joints)
	}

	spine, _ := g.Bone("spine")
	if spine.Parent == nil || spine.Parent.Name != "hips" {
		t.Error("spine should be parented to hips")
	}
	rest, _ := g.InitialSnapshot("spine")
	if !rest.Position.ApproxEqual(mgl64.Vec3{0, 1, 0}) {
		t.Errorf("spine position = %v", rest.Position)
	}
	if math.Abs(rest.Rotation.Z()-math.Pi/2) > 1e-6 {
		t.Errorf("spine rotation z = %v, want pi/2", rest.Rotation.Z())
	}
	hips, _ := g.InitialSnapshot("hips")
	if !hips.Scale.ApproxEqual(mgl64.Vec3{2, 2, 2}) {
		t.Errorf("hips scale = %v", hips.Scale)
	}

	if _, _, err := newGLTFSkeletonExtractor(doc).ExtractSkeleton("hero", 1); err == nil {
		t.Error("expected an error for a missing skin")
	}
}

func TestGLTFRequiresSkin(t *testing.T) {
	b := &gltfLoaderBackendImpl{ticksPerSecond: 20}
	if _, err := b.importDocument("static.glb", &gltf.Document{Nodes: []*gltf.Node{{Name: "mesh"}}}); err == nil {
		t.Fatal("expected an error for a document without a skin")
	}
}

func TestGLTFTopologicalOrder(t *testing.T) {
	tests := []struct {
		name    string
		parents []int
		want    []int
	}{
		{"chain reversed", []int{1, 2, -1}, []int{2, 1, 0}},
		{"two roots", []int{-1, 0, -1, 2}, []int{0, 2, 1, 3}},
		{"cycle becomes roots", []int{-1, 2, 1}, []int{0, 1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := gltfTopologicalOrder(append([]int(nil), tt.parents...))
			if len(got) != len(tt.want) {
				t.Fatalf("order = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("order = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestGLTFNodeTRSMatrix(t *testing.T) {
	m := mgl64.Translate3D(1, 2, 3).Mul4(mgl64.HomogRotate3DY(math.Pi / 2)).Mul4(mgl64.Scale3D(2, 2, 2))
	var matrix [16]float64
	copy(matrix[:], m[:])

	pos, rot, scale := gltfNodeTRS(matrix, [3]float64{}, [4]float64{}, [3]float64{})
	if !pos.ApproxEqual(mgl64.Vec3{1, 2, 3}) {
		t.Errorf("translation = %v", pos)
	}
	if !scale.ApproxEqualThreshold(mgl64.Vec3{2, 2, 2}, 1e-9) {
		t.Errorf("scale = %v", scale)
	}
	if e := common.QuatToEuler(rot); math.Abs(e.Y()-math.Pi/2) > 1e-6 {
		t.Errorf("rotation = %v, want y = pi/2", e)
	}

	_, q, s := gltfNodeTRS([16]float32{}, [3]float32{}, [4]float32{}, [3]float32{})
	if q != mgl64.QuatIdent() || s != (mgl64.Vec3{1, 1, 1}) {
		t.Errorf("empty node = %v %v, want identity", q, s)
	}
}
