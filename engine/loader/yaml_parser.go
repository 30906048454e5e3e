package loader

import (
	"sort"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/bone"
	"github.com/Carmen-Shannon/oxy-anim/engine/clip"
	"github.com/Carmen-Shannon/oxy-anim/engine/easing"
	"github.com/Carmen-Shannon/oxy-anim/engine/expression"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ErrInvalidClip is wrapped by every error caused by malformed animation content.
var ErrInvalidClip = errors.New("invalid clip")

// parseAnimationFile decodes a YAML animation file into an Asset.
//
// Parameters:
//   - name: the asset name
//   - data: the file contents
//   - tps: ticks per second used when the file does not set its own
//
// Returns:
//   - *Asset: the decoded asset
//   - error: error if the file cannot be decoded or holds invalid content
func parseAnimationFile(name string, data []byte, tps float64) (*Asset, error) {
	var def animationFile
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, errors.Wrapf(err, "loader: unmarshal %s", name)
	}
	tps = common.Coalesce(def.TicksPerSecond, tps, DefaultTicksPerSecond)
	if tps < 0 {
		return nil, errors.Wrapf(ErrInvalidClip, "%s: negative ticks_per_second", name)
	}

	asset := &Asset{Name: name}
	if def.Skeleton != nil {
		g, err := buildSkeleton(name, def.Skeleton)
		if err != nil {
			return nil, err
		}
		asset.Graph = g
	}

	names := make([]string, 0, len(def.Animations))
	for n := range def.Animations {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		c, err := buildClip(n, def.Animations[n], tps)
		if err != nil {
			return nil, errors.Wrapf(err, "%s", name)
		}
		asset.Clips = append(asset.Clips, c)
	}
	return asset, nil
}

// buildSkeleton turns the authored bone tree into a Graph. Rest rotations are authored in
// degrees and converted to the model's radian convention.
func buildSkeleton(name string, def *skeletonDef) (bone.Graph, error) {
	seen := make(map[string]bool)
	var build func(bs boneDef) (*bone.Bone, error)
	build = func(bs boneDef) (*bone.Bone, error) {
		if bs.Name == "" {
			return nil, errors.Wrapf(ErrInvalidClip, "%s: unnamed bone", name)
		}
		if seen[bs.Name] {
			return nil, errors.Wrapf(ErrInvalidClip, "%s: duplicate bone %q", name, bs.Name)
		}
		seen[bs.Name] = true

		b := bone.NewBone(bs.Name)
		var err error
		if b.Pivot, err = vec3Of(bs.Pivot, mgl64.Vec3{}); err != nil {
			return nil, errors.Wrapf(err, "%s: bone %q pivot", name, bs.Name)
		}
		if b.Position, err = vec3Of(bs.Position, mgl64.Vec3{}); err != nil {
			return nil, errors.Wrapf(err, "%s: bone %q position", name, bs.Name)
		}
		if b.Scale, err = vec3Of(bs.Scale, mgl64.Vec3{1, 1, 1}); err != nil {
			return nil, errors.Wrapf(err, "%s: bone %q scale", name, bs.Name)
		}
		rot, err := vec3Of(bs.Rotation, mgl64.Vec3{})
		if err != nil {
			return nil, errors.Wrapf(err, "%s: bone %q rotation", name, bs.Name)
		}
		for _, a := range common.Axes {
			b.Rotation[a] = common.ModelRotation(rot[a], a)
		}

		for _, cs := range bs.Children {
			child, err := build(cs)
			if err != nil {
				return nil, err
			}
			b.AddChild(child)
		}
		return b, nil
	}

	roots := make([]*bone.Bone, 0, len(def.Bones))
	for _, bs := range def.Bones {
		b, err := build(bs)
		if err != nil {
			return nil, err
		}
		roots = append(roots, b)
	}
	return bone.NewGraph(bone.WithName(common.Coalesce(def.Name, name)), bone.WithBones(roots...)), nil
}

// buildClip converts one authored animation into a Clip.
func buildClip(name string, def clipDef, tps float64) (*clip.Clip, error) {
	c := &clip.Clip{
		Name: name,
		Loop: clip.ParseLoop(def.Loop),
	}

	bones := make([]string, 0, len(def.Bones))
	for b := range def.Bones {
		bones = append(bones, b)
	}
	sort.Strings(bones)

	var longest float64
	for _, b := range bones {
		ts := def.Bones[b]
		track := clip.BoneTrack{Bone: b}
		var err error
		if track.Rotation, err = buildStack(ts.Rotation, common.ChannelRotation, tps); err != nil {
			return nil, errors.Wrapf(err, "clip %q bone %q rotation", name, b)
		}
		if track.Position, err = buildStack(ts.Position, common.ChannelPosition, tps); err != nil {
			return nil, errors.Wrapf(err, "clip %q bone %q position", name, b)
		}
		if track.Scale, err = buildStack(ts.Scale, common.ChannelScale, tps); err != nil {
			return nil, errors.Wrapf(err, "clip %q bone %q scale", name, b)
		}
		for _, ch := range common.Channels {
			longest = max(longest, track.Channel(ch).Length())
		}
		c.Tracks = append(c.Tracks, track)
	}

	c.Length = longest
	if def.Length > 0 {
		c.Length = def.Length * tps
	}

	for _, s := range def.Sounds {
		c.Sounds = append(c.Sounds, clip.SoundEvent{StartTime: s.Time * tps, Sound: s.Effect})
	}
	for _, p := range def.Particles {
		c.Particles = append(c.Particles, clip.ParticleEvent{
			StartTime: p.Time * tps,
			Effect:    p.Effect,
			Locator:   p.Locator,
			Script:    p.Script,
		})
	}
	for _, in := range def.Timeline {
		c.Customs = append(c.Customs, clip.CustomEvent{StartTime: in.Time * tps, Instruction: in.Instruction})
	}
	c.SortEvents()

	if err := c.Validate(); err != nil {
		return nil, errors.Wrap(ErrInvalidClip, err.Error())
	}
	return c, nil
}

// buildStack splits a channel's keyframes into three axis tracks. Each keyframe closes the
// segment that started at the previous one; the first segment holds the first value from tick 0.
func buildStack(keys []keyframeDef, ch common.Channel, tps float64) (clip.KeyframeStack, error) {
	var stack clip.KeyframeStack
	if len(keys) == 0 {
		return stack, nil
	}

	times := make([]float64, len(keys))
	var axes [3][]expression.Value
	eases := make([]easing.Func, len(keys))
	linear := make([]bool, len(keys))
	for i, k := range keys {
		if i > 0 && k.Time < keys[i-1].Time {
			return stack, errors.Wrapf(ErrInvalidClip, "keyframe %d: time %v before %v", i, k.Time, keys[i-1].Time)
		}
		if len(k.Value) != 3 {
			return stack, errors.Wrapf(ErrInvalidClip, "keyframe %d: want 3 values, got %d", i, len(k.Value))
		}
		fn, ok := easing.Lookup(k.Easing)
		if !ok {
			return stack, errors.Wrapf(ErrInvalidClip, "keyframe %d: unknown easing %q", i, k.Easing)
		}
		times[i] = k.Time * tps
		eases[i] = fn
		linear[i] = k.NoEasingOverride
		for _, a := range common.Axes {
			v, err := parseValue(k.Value[a], ch, a)
			if err != nil {
				return stack, errors.Wrapf(ErrInvalidClip, "keyframe %d %s: %v", i, a, err)
			}
			axes[a] = append(axes[a], v)
		}
	}

	stack.X = segments(times, axes[common.AxisX], eases, linear)
	stack.Y = segments(times, axes[common.AxisY], eases, linear)
	stack.Z = segments(times, axes[common.AxisZ], eases, linear)
	return stack, nil
}

// segments joins consecutive timed values into keyframes. times are in ticks.
func segments(times []float64, values []expression.Value, eases []easing.Func, linear []bool) []clip.Keyframe {
	out := make([]clip.Keyframe, 0, len(values))
	var prevTime float64
	var prev expression.Value
	for i, v := range values {
		start := prev
		if start == nil {
			start = v
		}
		kf := clip.Keyframe{
			Length: times[i] - prevTime,
			Start:  start,
			End:    v,
		}
		if eases != nil {
			kf.Easing = eases[i]
		}
		if linear != nil {
			kf.NoEasingOverride = linear[i]
		}
		out = append(out, kf)
		prev = v
		prevTime = times[i]
	}
	return out
}

// parseValue reads an authored keyframe value. Numeric rotations are converted to radians here
// so the sampler can treat them as constants.
func parseValue(text string, ch common.Channel, a common.Axis) (expression.Value, error) {
	v, err := expression.Parse(text)
	if err != nil {
		return nil, err
	}
	if s, ok := v.(expression.Scalar); ok && ch == common.ChannelRotation {
		return expression.Constant(common.ModelRotation(float64(s), a)), nil
	}
	return v, nil
}

func vec3Of(values []float64, fallback mgl64.Vec3) (mgl64.Vec3, error) {
	switch len(values) {
	case 0:
		return fallback, nil
	case 3:
		return mgl64.Vec3{values[0], values[1], values[2]}, nil
	default:
		return fallback, errors.Wrapf(ErrInvalidClip, "want 3 components, got %d", len(values))
	}
}
