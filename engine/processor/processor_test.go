package processor

import (
	"io"
	"log"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/bone"
	"github.com/Carmen-Shannon/oxy-anim/engine/clip"
	"github.com/Carmen-Shannon/oxy-anim/engine/controller"
	"github.com/Carmen-Shannon/oxy-anim/engine/expression"
	"github.com/Carmen-Shannon/oxy-anim/engine/instance"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
)

var quiet = log.New(io.Discard, "", 0)

func segment(length float64, from, to expression.Value) clip.Keyframe {
	return clip.Keyframe{Length: length, Start: from, End: to}
}

func lift(name, bone string, length, to float64) *clip.Clip {
	return &clip.Clip{
		Name:   name,
		Length: length,
		Tracks: []clip.BoneTrack{{
			Bone:     bone,
			Position: clip.KeyframeStack{Y: []clip.Keyframe{segment(length, expression.Scalar(0), expression.Scalar(to))}},
		}},
	}
}

type puppet struct {
	reset   float64
	queries map[string]float64
}

func (p *puppet) RegisterControllers(instance.Data) {}

func (p *puppet) BoneResetTime() float64 { return p.reset }

func (p *puppet) ApplyQueries(ctx *expression.Context, _ float64) {
	for k, v := range p.queries {
		ctx.Set(k, v)
	}
}

func playing(req *clip.RawAnimation, options ...controller.ControllerBuilderOption) controller.Controller {
	handler := controller.StateHandlerFunc(func(*controller.FrameContext) controller.Verdict {
		return controller.Play(req)
	})
	options = append([]controller.ControllerBuilderOption{controller.WithLogger(quiet)}, options...)
	return controller.NewController(handler, options...)
}

func newData(p Processor, controllers ...controller.Controller) instance.Data {
	return instance.NewData(instance.WithLibrary(p), instance.WithControllers(controllers...))
}

func boneState(t *testing.T, d instance.Data, name string) *bone.State {
	t.Helper()
	s, ok := d.Pose().Bone(name)
	if !ok {
		t.Fatalf("bone %q missing from pose", name)
	}
	return s
}

func tick(t *testing.T, p Processor, d instance.Data, a instance.Animatable, seek float64) {
	t.Helper()
	if err := p.Tick(d, a, seek); err != nil {
		t.Fatalf("tick %v: %v", seek, err)
	}
}

func vecEqual(a, b mgl64.Vec3) bool {
	return a.ApproxEqualThreshold(b, 1e-9)
}

func TestRotationIsAdditiveToRest(t *testing.T) {
	arm := bone.NewBone("arm")
	arm.Rotation = mgl64.Vec3{0, 0.5, 0}
	g := bone.NewGraph(bone.WithBones(arm))

	swing := &clip.Clip{
		Name:   "swing",
		Length: 10,
		Tracks: []clip.BoneTrack{{
			Bone:     "arm",
			Rotation: clip.KeyframeStack{X: []clip.Keyframe{segment(10, expression.Scalar(0), expression.Scalar(30))}},
		}},
	}
	p := NewProcessor(g, WithLibrary(clip.NewCatalog(swing)), WithLogger(quiet))
	d := newData(p, playing(clip.Begin().ThenLoop("swing")))

	tests := []struct {
		seek float64
		want mgl64.Vec3
	}{
		{0, mgl64.Vec3{0, 0.5, 0}},
		{5, mgl64.Vec3{mgl64.DegToRad(-15), 0.5, 0}},
	}
	for _, tt := range tests {
		tick(t, p, d, nil, tt.seek)
		s := boneState(t, d, "arm")
		if !vecEqual(s.Rotation, tt.want) {
			t.Errorf("seek %v: rotation %v, want %v", tt.seek, s.Rotation, tt.want)
		}
		if !s.RotationChanged() {
			t.Errorf("seek %v: rotation not marked changed", tt.seek)
		}
		snap, _ := d.Snapshots().Get("arm")
		if !vecEqual(snap.Rotation(), s.Rotation) || !snap.InProgress(common.ChannelRotation) {
			t.Errorf("seek %v: snapshot not updated: %s", tt.seek, common.SDump(snap))
		}
	}
}

func TestAbandonedBoneRelaxesToRest(t *testing.T) {
	arm := bone.NewBone("arm")
	arm.Position = mgl64.Vec3{1, 2, 3}
	g := bone.NewGraph(bone.WithBones(arm))

	p := NewProcessor(g, WithLibrary(clip.NewCatalog(lift("raise", "arm", 10, 10))), WithLogger(quiet))
	d := newData(p, playing(clip.Begin().ThenPlay("raise")))
	a := &puppet{reset: 4}

	for seek := 0.0; seek < 10; seek++ {
		tick(t, p, d, a, seek)
	}
	if got := boneState(t, d, "arm").Position; !vecEqual(got, mgl64.Vec3{1, 9, 3}) {
		t.Fatalf("last driven position %v", got)
	}

	tests := []struct {
		seek float64
		want mgl64.Vec3
	}{
		{10, mgl64.Vec3{1, 9, 3}},
		{12, mgl64.Vec3{1, 5.5, 3}},
		{14, mgl64.Vec3{1, 2, 3}},
		{20, mgl64.Vec3{1, 2, 3}},
	}
	for _, tt := range tests {
		tick(t, p, d, a, tt.seek)
		s := boneState(t, d, "arm")
		if s.PositionChanged() {
			t.Errorf("seek %v: abandoned bone marked changed", tt.seek)
		}
		if !vecEqual(s.Position, tt.want) {
			t.Errorf("seek %v: position %v, want %v", tt.seek, s.Position, tt.want)
		}
	}

	// Once relaxed the value is the rest value exactly, not an interpolation of it.
	if got := boneState(t, d, "arm").Position; got != arm.Position {
		t.Errorf("relaxed position %v is not exactly rest %v", got, arm.Position)
	}
	snap, _ := d.Snapshots().Get("arm")
	if snap.Position() != arm.Position {
		t.Errorf("snapshot not pinned to rest: %s", common.SDump(snap))
	}
}

func TestDefaultResetDurationAppliesWhenUnset(t *testing.T) {
	g := bone.NewGraph(bone.WithBones(bone.NewBone("arm")))
	p := NewProcessor(g, WithLibrary(clip.NewCatalog(lift("raise", "arm", 4, 8))), WithResetDuration(2), WithLogger(quiet))
	d := newData(p, playing(clip.Begin().ThenPlay("raise")))

	for _, seek := range []float64{0, 1, 2, 3, 4, 5} {
		tick(t, p, d, &puppet{}, seek)
	}
	// Driven up to 6 at seek 3, released at seek 4, half way back at seek 5.
	if got := boneState(t, d, "arm").Position[1]; !mgl64.FloatEqualThreshold(got, 3, 1e-9) {
		t.Errorf("position y %v, want 3", got)
	}
}

func TestSequenceBlendsFromFinalSnapshot(t *testing.T) {
	g := bone.NewGraph(bone.WithBones(bone.NewBone("lid")))
	idle := &clip.Clip{
		Name:   "idle",
		Length: 20,
		Tracks: []clip.BoneTrack{{
			Bone:     "lid",
			Position: clip.KeyframeStack{Y: []clip.Keyframe{segment(20, expression.Scalar(4), expression.Scalar(4))}},
		}},
	}
	p := NewProcessor(g, WithLibrary(clip.NewCatalog(lift("open", "lid", 10, 10), idle)), WithLogger(quiet))
	ctrl := playing(clip.Begin().ThenPlay("open").ThenLoop("idle"), controller.WithTransitionLength(5))
	d := newData(p, ctrl)

	tests := []struct {
		seek  float64
		state controller.State
		clip  string
		y     float64
	}{
		{0, controller.StateTransitioning, "open", 0},
		{5, controller.StateRunning, "open", 0},
		{10, controller.StateRunning, "open", 5},
		{15, controller.StateTransitioning, "open", 10},
		{16, controller.StateTransitioning, "idle", 10},
		{18.5, controller.StateTransitioning, "idle", 7},
		{21, controller.StateRunning, "idle", 4},
	}
	for _, tt := range tests {
		tick(t, p, d, nil, tt.seek)
		if ctrl.State() != tt.state {
			t.Errorf("seek %v: state %s, want %s", tt.seek, ctrl.State(), tt.state)
		}
		if cur := ctrl.CurrentClip(); cur == nil || cur.Clip.Name != tt.clip {
			t.Errorf("seek %v: current clip %v, want %s", tt.seek, cur, tt.clip)
		}
		if got := boneState(t, d, "lid").Position[1]; !mgl64.FloatEqualThreshold(got, tt.y, 1e-9) {
			t.Errorf("seek %v: position y %v, want %v", tt.seek, got, tt.y)
		}
	}
}

func TestMarkReloadReachesEveryInstance(t *testing.T) {
	g := bone.NewGraph(bone.WithBones(bone.NewBone("arm")))
	cat := clip.NewCatalog(lift("wave", "arm", 10, 10))
	p := NewProcessor(g, WithLibrary(cat), WithLogger(quiet))

	req := clip.Begin().ThenLoop("wave")
	first := newData(p, playing(req))
	second := newData(p, playing(req))
	for _, seek := range []float64{0, 4} {
		tick(t, p, first, nil, seek)
		tick(t, p, second, nil, seek)
	}

	cat.Replace([]*clip.Clip{lift("wave", "arm", 10, 20)})
	p.MarkReload()
	if p.ReloadGeneration() != 1 {
		t.Fatalf("reload generation %d, want 1", p.ReloadGeneration())
	}

	for _, d := range []instance.Data{first, second} {
		tick(t, p, d, nil, 6)
		if got := boneState(t, d, "arm").Position[1]; got != 0 {
			t.Errorf("instance %p: position after reload %v, want restart at 0", d, got)
		}
		tick(t, p, d, nil, 11)
		if got := boneState(t, d, "arm").Position[1]; !mgl64.FloatEqualThreshold(got, 10, 1e-9) {
			t.Errorf("instance %p: position %v, want 10 from the reloaded clip", d, got)
		}
		if gen, _ := d.ReloadGeneration(); gen != 1 {
			t.Errorf("instance %p: observed generation %d", d, gen)
		}
	}
}

func TestFirstTickBookkeeping(t *testing.T) {
	g := bone.NewGraph(bone.WithBones(bone.NewBone("arm")))
	p := NewProcessor(g, WithLogger(quiet))
	d := newData(p)

	tick(t, p, d, nil, 3)
	if d.FirstTick() || d.StartedAt() != 3 || d.UpdatedAt() != 3 {
		t.Errorf("after first tick: first=%v started=%v updated=%v", d.FirstTick(), d.StartedAt(), d.UpdatedAt())
	}
	tick(t, p, d, nil, 8)
	if d.StartedAt() != 3 || d.UpdatedAt() != 8 {
		t.Errorf("after second tick: started=%v updated=%v", d.StartedAt(), d.UpdatedAt())
	}
	if gen, seen := d.ReloadGeneration(); !seen || gen != 0 {
		t.Errorf("generation %d seen=%v", gen, seen)
	}
}

func TestMissingBone(t *testing.T) {
	g := bone.NewGraph(bone.WithBones(bone.NewBone("arm")))
	cat := clip.NewCatalog(lift("wag", "tail", 10, 10))

	tests := []struct {
		name  string
		crash bool
	}{
		{"skip", false},
		{"crash", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewProcessor(g, WithLibrary(cat), WithCrashOnMissingBone(tt.crash), WithLogger(quiet))
			if p.CrashOnMissingBone() != tt.crash {
				t.Fatal("crash option not applied")
			}
			d := newData(p, playing(clip.Begin().ThenLoop("wag")))
			var err error
			for _, seek := range []float64{0, 1, 2} {
				if err = p.Tick(d, nil, seek); err != nil {
					break
				}
			}
			if !tt.crash {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if got := boneState(t, d, "arm").Position; got != (mgl64.Vec3{}) {
					t.Errorf("arm moved: %v", got)
				}
				return
			}
			if !errors.Is(err, controller.ErrMissingBone) {
				t.Fatalf("error %v does not match ErrMissingBone", err)
			}
			var mb *controller.MissingBoneError
			if !errors.As(err, &mb) || mb.Bone != "tail" || mb.Clip != "wag" {
				t.Errorf("missing bone detail: %+v", mb)
			}
		})
	}
}

func TestQueriesFeedExpressions(t *testing.T) {
	g := bone.NewGraph(bone.WithBones(bone.NewBone("arm")))
	v, err := expression.Parse("query.reach * 2")
	if err != nil {
		t.Fatal(err)
	}
	reach := &clip.Clip{
		Name:   "reach",
		Length: 10,
		Tracks: []clip.BoneTrack{{
			Bone:     "arm",
			Position: clip.KeyframeStack{Z: []clip.Keyframe{segment(10, v, v)}},
		}},
	}
	p := NewProcessor(g, WithLibrary(clip.NewCatalog(reach)), WithLogger(quiet))
	d := newData(p, playing(clip.Begin().ThenLoop("reach")))

	tick(t, p, d, &puppet{queries: map[string]float64{"reach": 3}}, 0)
	if got := boneState(t, d, "arm").Position[2]; !mgl64.FloatEqualThreshold(got, 6, 1e-9) {
		t.Errorf("position z %v, want 6", got)
	}
	if d.Query().LifeTime != 0 {
		t.Errorf("life time %v", d.Query().LifeTime)
	}
}

func TestProcessorResolvesThroughLibrary(t *testing.T) {
	g := bone.NewGraph(bone.WithBones(bone.NewBone("arm")))
	p := NewProcessor(g, WithLogger(quiet))
	if _, ok := p.Clip("raise"); ok {
		t.Fatal("resolved without a library")
	}
	p.SetLibrary(clip.NewCatalog(lift("raise", "arm", 1, 1)))
	if c, ok := p.Clip("raise"); !ok || c.Name != "raise" {
		t.Errorf("lookup through library failed: %v %v", c, ok)
	}
	if p.ResetDuration() != DefaultResetDuration {
		t.Errorf("reset duration %v", p.ResetDuration())
	}
}

func TestHandlersMayReadThePose(t *testing.T) {
	g := bone.NewGraph(bone.WithBones(bone.NewBone("arm")))
	spark := lift("spark", "arm", 10, 5)
	spark.Particles = []clip.ParticleEvent{{StartTime: 0, Effect: "crit", Locator: "arm"}}
	p := NewProcessor(g, WithLibrary(clip.NewCatalog(spark)), WithLogger(quiet))

	var d instance.Data
	var handlerReads, particleReads int
	req := clip.Begin().ThenLoop("spark")
	c := controller.NewController(
		controller.StateHandlerFunc(func(*controller.FrameContext) controller.Verdict {
			handlerReads = len(d.Pose().Read())
			return controller.Play(req)
		}),
		controller.WithLogger(quiet),
		controller.WithParticleHandler(func(e controller.ParticleKeyframe) {
			for _, tr := range d.Pose().Read() {
				if tr.Name == e.Data.Locator {
					particleReads++
				}
			}
		}),
	)
	d = newData(p, c)

	done := make(chan error, 1)
	go func() { done <- p.Tick(d, nil, 0) }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("tick: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("tick did not return while handlers read the pose")
	}

	if handlerReads != 1 {
		t.Errorf("state handler saw %d bones, want 1", handlerReads)
	}
	if particleReads != 1 {
		t.Errorf("particle handler found its locator %d times, want 1", particleReads)
	}
}
