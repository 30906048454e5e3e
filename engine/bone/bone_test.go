package bone

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func buildArm() *Bone {
	body := NewBone("body")
	arm := body.AddChild(NewBone("arm"))
	arm.Rotation = mgl64.Vec3{0.5, 0, 0}
	arm.AddChild(NewBone("hand"))
	body.AddChild(NewBone("head"))
	return body
}

func TestRegisterBoneDescendsIntoChildren(t *testing.T) {
	g := NewGraph(WithName("player"))
	g.RegisterBone(buildArm())

	want := []string{"body", "arm", "hand", "head"}
	got := g.Names()
	if len(got) != len(want) {
		t.Fatalf("expected %d bones, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("bone %d: expected %q, got %q", i, want[i], got[i])
		}
	}
	if len(g.Roots()) != 1 {
		t.Errorf("expected 1 root, got %d", len(g.Roots()))
	}
}

func TestInitialSnapshotCapturedAtRegistration(t *testing.T) {
	root := buildArm()
	g := NewGraph(WithBones(root))

	arm, _ := g.Bone("arm")
	arm.Rotation = mgl64.Vec3{9, 9, 9}

	snap, ok := g.InitialSnapshot("arm")
	if !ok {
		t.Fatal("expected snapshot for arm")
	}
	if snap.Rotation != (mgl64.Vec3{0.5, 0, 0}) {
		t.Errorf("snapshot changed with the bone: %v", snap.Rotation)
	}
	if snap.Scale != (mgl64.Vec3{1, 1, 1}) {
		t.Errorf("expected unit scale, got %v", snap.Scale)
	}
}

func TestDuplicateNameReplacesInPlace(t *testing.T) {
	g := NewGraph()
	g.RegisterBone(NewBone("a"))
	g.RegisterBone(NewBone("b"))
	replacement := NewBone("a")
	replacement.Position = mgl64.Vec3{1, 2, 3}
	g.RegisterBone(replacement)

	if g.Len() != 2 {
		t.Fatalf("expected 2 bones, got %d", g.Len())
	}
	if g.Names()[0] != "a" {
		t.Errorf("expected replaced bone to keep its slot, got %v", g.Names())
	}
	got, _ := g.Bone("a")
	if got != replacement {
		t.Error("expected lookup to return the replacement bone")
	}
}

func TestCyclicChildrenRegisterOnce(t *testing.T) {
	tests := []struct {
		name  string
		build func() *Bone
		want  []string
	}{
		{"self", func() *Bone {
			b := NewBone("loop")
			b.Children = append(b.Children, b)
			return b
		}, []string{"loop"}},
		{"back edge", func() *Bone {
			body := buildArm()
			hand := body.Children[0].Children[0]
			hand.Children = append(hand.Children, body)
			return body
		}, []string{"body", "arm", "hand", "head"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGraph()
			g.RegisterBone(tt.build())
			got := g.Names()
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("bone %d: expected %q, got %q", i, tt.want[i], got[i])
				}
			}
		})
	}
}

func TestSetActiveModelClearsPrevious(t *testing.T) {
	g := NewGraph(WithBones(buildArm()))
	before := g.Version()
	g.SetActiveModel([]*Bone{NewBone("lid")})

	if g.Has("arm") {
		t.Error("expected arm to be cleared")
	}
	if !g.Has("lid") {
		t.Error("expected lid to be registered")
	}
	if g.Version() == before {
		t.Error("expected version bump")
	}
}

func TestPoseStartsAtRestAndResyncs(t *testing.T) {
	g := NewGraph(WithBones(buildArm()))
	p := NewPose(g)

	arm, ok := p.Bone("arm")
	if !ok {
		t.Fatal("expected arm in pose")
	}
	if arm.Rotation != (mgl64.Vec3{0.5, 0, 0}) {
		t.Errorf("expected rest rotation, got %v", arm.Rotation)
	}

	arm.Position = mgl64.Vec3{4, 0, 0}
	arm.MarkPositionChanged()
	if p.Sync(g) {
		t.Error("expected no rebuild without graph change")
	}

	g.RegisterBone(NewBone("tail"))
	if !p.Sync(g) {
		t.Fatal("expected rebuild after registration")
	}
	arm, _ = p.Bone("arm")
	if arm.Position != (mgl64.Vec3{4, 0, 0}) {
		t.Errorf("expected surviving bone to keep live value, got %v", arm.Position)
	}
	if _, ok := p.Bone("tail"); !ok {
		t.Error("expected new bone in pose")
	}

	p.ResetFrame()
	if arm.PositionChanged() {
		t.Error("expected changed marker cleared")
	}
	if n := len(p.Read()); n != 5 {
		t.Errorf("expected 5 transforms, got %d", n)
	}
}
