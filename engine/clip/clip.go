// Package clip defines animation clips, their keyframe tracks and timed event markers, the requests
// that chain clips together and the library clips are resolved from.
package clip

import (
	"sort"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/pkg/errors"
)

// SoundEvent asks the host to play a sound when the clip reaches StartTime.
type SoundEvent struct {
	StartTime float64 `json:"start_time"`
	Sound     string  `json:"sound"`
}

// ParticleEvent asks the host to spawn an effect at a locator when the clip reaches StartTime.
type ParticleEvent struct {
	StartTime float64 `json:"start_time"`
	Effect    string  `json:"effect"`
	Locator   string  `json:"locator"`
	Script    string  `json:"script"`
}

// CustomEvent hands an opaque instruction to the host when the clip reaches StartTime.
type CustomEvent struct {
	StartTime   float64 `json:"start_time"`
	Instruction string  `json:"instruction"`
}

// Clip is an immutable named animation. Clips are shared by every instance of a model and must
// not be mutated once published to a Library.
type Clip struct {
	Name   string
	Length float64

	// Loop is the clip's authored loop policy, used by stages requested with DefaultLoop.
	Loop LoopPolicy

	Tracks    []BoneTrack
	Sounds    []SoundEvent
	Particles []ParticleEvent
	Customs   []CustomEvent
}

// Track looks up the track driving the named bone.
//
// Parameters:
//   - bone: the bone name
//
// Returns:
//   - *BoneTrack: the track, or nil
//   - bool: true if the clip drives the bone
func (c *Clip) Track(bone string) (*BoneTrack, bool) {
	for i := range c.Tracks {
		if c.Tracks[i].Bone == bone {
			return &c.Tracks[i], true
		}
	}
	return nil, false
}

// SortEvents orders every event list by start time. Loaders call it before publishing a clip.
func (c *Clip) SortEvents() {
	sort.SliceStable(c.Sounds, func(i, j int) bool { return c.Sounds[i].StartTime < c.Sounds[j].StartTime })
	sort.SliceStable(c.Particles, func(i, j int) bool { return c.Particles[i].StartTime < c.Particles[j].StartTime })
	sort.SliceStable(c.Customs, func(i, j int) bool { return c.Customs[i].StartTime < c.Customs[j].StartTime })
}

// Validate checks the structural rules a clip must follow: positive segment lengths, no axis
// track longer than the clip and time-ordered events. Detection is best effort.
//
// Returns:
//   - error: the first violation found, or nil
func (c *Clip) Validate() error {
	if c.Length < 0 {
		return errors.Errorf("clip %q: negative length %v", c.Name, c.Length)
	}
	const slack = 1e-6
	for _, tr := range c.Tracks {
		for _, ch := range common.Channels {
			stack := tr.Channel(ch)
			for _, a := range common.Axes {
				frames := stack.Axis(a)
				for i, kf := range frames {
					if kf.Length < 0 {
						return errors.Errorf("clip %q bone %q %s.%s keyframe %d: negative length", c.Name, tr.Bone, ch, a, i)
					}
					if kf.Start == nil || kf.End == nil {
						return errors.Errorf("clip %q bone %q %s.%s keyframe %d: missing value", c.Name, tr.Bone, ch, a, i)
					}
				}
				if l := TrackLength(frames); l > c.Length+slack {
					return errors.Errorf("clip %q bone %q %s.%s: track length %v exceeds clip length %v", c.Name, tr.Bone, ch, a, l, c.Length)
				}
			}
		}
	}
	for i := 1; i < len(c.Sounds); i++ {
		if c.Sounds[i].StartTime < c.Sounds[i-1].StartTime {
			return errors.Errorf("clip %q: sound events out of order", c.Name)
		}
	}
	for i := 1; i < len(c.Particles); i++ {
		if c.Particles[i].StartTime < c.Particles[i-1].StartTime {
			return errors.Errorf("clip %q: particle events out of order", c.Name)
		}
	}
	for i := 1; i < len(c.Customs); i++ {
		if c.Customs[i].StartTime < c.Customs[i-1].StartTime {
			return errors.Errorf("clip %q: custom events out of order", c.Name)
		}
	}
	return nil
}

// QueuedClip is a resolved request stage: a clip and the loop policy it was requested with.
type QueuedClip struct {
	Clip *Clip
	Loop LoopPolicy
}
