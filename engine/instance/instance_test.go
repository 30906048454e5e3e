package instance

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-anim/engine/bone"
	"github.com/Carmen-Shannon/oxy-anim/engine/clip"
	"github.com/Carmen-Shannon/oxy-anim/engine/controller"
)

func TestControllersKeepInsertionOrder(t *testing.T) {
	d := NewData(WithID(7))
	d.AddController(controller.NewController(nil, controller.WithName("legs")))
	d.AddController(controller.NewController(nil, controller.WithName("arms")))
	d.AddController(controller.NewController(nil, controller.WithName("head")))

	replacement := controller.NewController(nil, controller.WithName("arms"))
	d.AddController(replacement)

	got := d.Controllers()
	want := []string{"legs", "arms", "head"}
	if len(got) != len(want) {
		t.Fatalf("got %d controllers, want %d", len(got), len(want))
	}
	for i, name := range want {
		if got[i].Name() != name {
			t.Errorf("controller %d: got %q, want %q", i, got[i].Name(), name)
		}
	}
	if c, _ := d.Controller("arms"); c != replacement {
		t.Error("re-adding a name did not replace the controller")
	}
	if d.ID() != 7 {
		t.Errorf("id %d, want 7", d.ID())
	}
}

func TestRemoveControllerReindexes(t *testing.T) {
	d := NewData()
	for _, name := range []string{"a", "b", "c"} {
		d.AddController(controller.NewController(nil, controller.WithName(name)))
	}
	if !d.RemoveController("a") {
		t.Fatal("remove reported false")
	}
	if d.RemoveController("a") {
		t.Error("second remove reported true")
	}
	c, ok := d.Controller("c")
	if !ok || c.Name() != "c" {
		t.Fatalf("lookup after remove: %v %v", c, ok)
	}
	if n := len(d.Controllers()); n != 2 {
		t.Errorf("got %d controllers, want 2", n)
	}
}

func TestLibraryBinding(t *testing.T) {
	lib := clip.NewCatalog()
	own := clip.NewCatalog()

	bound := controller.NewController(nil, controller.WithName("own"), controller.WithLibrary(own))
	unbound := controller.NewController(nil, controller.WithName("free"))
	d := NewData(WithControllers(bound, unbound), WithLibrary(lib))

	if bound.Library() != own {
		t.Error("controller library was overwritten")
	}
	if unbound.Library() != lib {
		t.Error("controller without a library was not bound")
	}

	late := controller.NewController(nil, controller.WithName("late"))
	d.AddController(late)
	if late.Library() != lib {
		t.Error("controller added later was not bound")
	}
}

func TestFirstTickBookkeeping(t *testing.T) {
	d := NewData()
	if !d.FirstTick() || d.StartedAt() != -1 {
		t.Fatalf("fresh data: first=%v started=%v", d.FirstTick(), d.StartedAt())
	}
	d.FinishFirstTick(12)
	d.FinishFirstTick(40)
	if d.FirstTick() || d.StartedAt() != 12 {
		t.Errorf("after first tick: first=%v started=%v", d.FirstTick(), d.StartedAt())
	}
	if _, seen := d.ReloadGeneration(); seen {
		t.Error("reload generation observed before any tick")
	}
	d.SetReloadGeneration(3)
	if gen, seen := d.ReloadGeneration(); !seen || gen != 3 {
		t.Errorf("reload generation %d %v", gen, seen)
	}
}

func TestSyncPoseAndSnapshots(t *testing.T) {
	g := bone.NewGraph(bone.WithBones(bone.NewBone("root")))
	d := NewData()
	if d.Pose() != nil {
		t.Fatal("pose exists before sync")
	}
	p := d.SyncPose(g)
	if p == nil || p != d.Pose() {
		t.Fatal("sync did not publish the pose")
	}
	if _, ok := p.Bone("root"); !ok {
		t.Error("pose is missing root")
	}
	if again := d.SyncPose(g); again != p {
		t.Error("sync replaced an existing pose")
	}

	d.Snapshots().Sync(g)
	d.ClearSnapshotCache()
	if d.Snapshots().Len() != 0 {
		t.Error("snapshot cache not cleared")
	}
}

type crate struct{}

func (crate) RegisterControllers(Data) {}
func (crate) BoneResetTime() float64 { return 0 }
func (crate) Roles() Role { return RoleBlock | RoleItem }

type ghost struct{}

func (ghost) RegisterControllers(Data) {}
func (ghost) BoneResetTime() float64 { return 0 }

func TestRoles(t *testing.T) {
	tests := []struct {
		name string
		a    Animatable
		want Role
		str  string
	}{
		{"declared", crate{}, RoleBlock | RoleItem, "block|item"},
		{"undeclared", ghost{}, 0, "none"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RolesOf(tt.a)
			if got != tt.want {
				t.Errorf("roles %v, want %v", got, tt.want)
			}
			if got.String() != tt.str {
				t.Errorf("string %q, want %q", got.String(), tt.str)
			}
		})
	}
	if !(RoleBlock | RoleItem).Has(RoleItem) || RoleItem.Has(RoleEntity) {
		t.Error("Has mismatch")
	}
}
