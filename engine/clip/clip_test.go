package clip

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-anim/engine/expression"
	"github.com/pkg/errors"
)

func segment(length, from, to float64) Keyframe {
	return Keyframe{Length: length, Start: expression.Scalar(from), End: expression.Scalar(to)}
}

func TestRawAnimationEquality(t *testing.T) {
	tests := []struct {
		name string
		a, b *RawAnimation
		want bool
	}{
		{"same chain", Begin().ThenPlay("open").ThenLoop("idle"), Begin().ThenPlay("open").ThenLoop("idle"), true},
		{"different policy", Begin().ThenPlay("walk"), Begin().ThenLoop("walk"), false},
		{"different order", Begin().ThenPlay("a").ThenPlay("b"), Begin().ThenPlay("b").ThenPlay("a"), false},
		{"prefix", Begin().ThenPlay("a"), Begin().ThenPlay("a").ThenPlay("b"), false},
		{"both nil", nil, nil, true},
		{"nil vs empty", nil, Begin(), false},
		{"play x times", Begin().ThenPlayXTimes("jump", 2), Begin().ThenPlay("jump").ThenPlay("jump"), true},
		{"custom by name", Begin().Then("a", CustomLoop("twice", nil)), Begin().Then("a", CustomLoop("twice", nil)), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Equal(tt.b); got != tt.want {
				t.Errorf("Equal = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCopyOfIsIndependent(t *testing.T) {
	base := Begin().ThenPlay("open")
	cp := CopyOf(base).ThenLoop("idle")
	if len(base.Stages()) != 1 {
		t.Errorf("copy mutated the original: %s", base)
	}
	if len(cp.Stages()) != 2 {
		t.Errorf("expected 2 stages, got %s", cp)
	}
}

func TestResolveIsAllOrNothing(t *testing.T) {
	lib := NewCatalog(&Clip{Name: "open", Length: 10}, &Clip{Name: "idle", Length: 20})

	got, err := Resolve(lib, Begin().ThenPlay("open").ThenLoop("idle"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].Clip.Name != "open" || got[1].Loop.Name() != Loop.Name() {
		t.Errorf("unexpected resolution: %+v", got)
	}

	got, err = Resolve(lib, Begin().ThenPlay("open").ThenLoop("missing"))
	if !errors.Is(err, ErrUnresolvedStage) {
		t.Fatalf("expected ErrUnresolvedStage, got %v", err)
	}
	if got != nil {
		t.Errorf("expected no partial result, got %d stages", len(got))
	}
}

func TestLoopPolicyDecide(t *testing.T) {
	looping := &Clip{Name: "spin", Loop: Loop}
	plain := &Clip{Name: "wave"}
	tests := []struct {
		name   string
		policy LoopPolicy
		clip   *Clip
		want   Action
	}{
		{"play once", PlayOnce, looping, ActionAdvance},
		{"loop", Loop, plain, ActionRestart},
		{"hold", HoldOnLastFrame, plain, ActionHold},
		{"default uses clip loop", DefaultLoop, looping, ActionRestart},
		{"default without clip loop", DefaultLoop, plain, ActionAdvance},
		{"custom", CustomLoop("always", func(*Clip) Action { return ActionRestart }), plain, ActionRestart},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.policy.Decide(tt.clip); got != tt.want {
				t.Errorf("Decide = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestCatalogReplace(t *testing.T) {
	c := NewCatalog(&Clip{Name: "a"})
	c.Add(&Clip{Name: "b"})
	if c.Len() != 2 {
		t.Fatalf("expected 2 clips, got %d", c.Len())
	}
	c.Replace([]*Clip{{Name: "c"}})
	if _, ok := c.Clip("a"); ok {
		t.Error("expected a to be gone after replace")
	}
	if names := c.Names(); len(names) != 1 || names[0] != "c" {
		t.Errorf("unexpected names %v", names)
	}
}

func TestValidate(t *testing.T) {
	good := &Clip{
		Name:   "walk",
		Length: 20,
		Tracks: []BoneTrack{{
			Bone:     "leg",
			Rotation: KeyframeStack{X: []Keyframe{segment(10, 0, 30), segment(10, 30, 0)}},
		}},
		Sounds: []SoundEvent{{StartTime: 2}, {StartTime: 5}},
	}
	if err := good.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	long := *good
	long.Length = 15
	if err := long.Validate(); err == nil {
		t.Error("expected track length error")
	}

	unordered := *good
	unordered.Sounds = []SoundEvent{{StartTime: 5}, {StartTime: 2}}
	if err := unordered.Validate(); err == nil {
		t.Error("expected ordering error")
	}
	unordered.SortEvents()
	if err := unordered.Validate(); err != nil {
		t.Errorf("expected sorted events to validate: %v", err)
	}
}
