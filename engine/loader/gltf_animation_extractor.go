package loader

import (
	"fmt"
	"sort"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/bone"
	"github.com/Carmen-Shannon/oxy-anim/engine/clip"
	"github.com/Carmen-Shannon/oxy-anim/engine/easing"
	"github.com/Carmen-Shannon/oxy-anim/engine/expression"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// gltfAnimationExtractorImpl is the implementation of the gltfAnimationExtractor interface.
type gltfAnimationExtractorImpl struct {
	doc            *gltf.Document
	ticksPerSecond float64
}

// gltfAnimationExtractor defines the interface for extracting clips from a glTF document.
//
// glTF stores absolute quaternion rotations in seconds. Extracted rotation keyframes hold the
// euler offset from the bone's rest rotation, position and scale keyframes hold absolute values,
// and times are converted to ticks.
type gltfAnimationExtractor interface {
	// ExtractAnimation extracts a single animation by index.
	//
	// Parameters:
	//   - animIndex: the index of the animation in the document
	//   - g: the graph the joints were extracted into
	//   - joints: glTF node index to bone name
	//
	// Returns:
	//   - *clip.Clip: the extracted clip
	//   - error: error if extraction fails
	ExtractAnimation(animIndex int, g bone.Graph, joints map[int]string) (*clip.Clip, error)

	// ExtractAnimations extracts every animation that targets at least one joint.
	//
	// Parameters:
	//   - g: the graph the joints were extracted into
	//   - joints: glTF node index to bone name
	//
	// Returns:
	//   - []*clip.Clip: the extracted clips sorted by name
	//   - error: error if extraction fails
	ExtractAnimations(g bone.Graph, joints map[int]string) ([]*clip.Clip, error)
}

var _ gltfAnimationExtractor = &gltfAnimationExtractorImpl{}

// newGLTFAnimationExtractor creates a new animation extractor for a decoded document.
//
// Parameters:
//   - doc: the decoded document
//   - tps: ticks per second used to convert timestamps
//
// Returns:
//   - gltfAnimationExtractor: the animation extractor
func newGLTFAnimationExtractor(doc *gltf.Document, tps float64) gltfAnimationExtractor {
	return &gltfAnimationExtractorImpl{doc: doc, ticksPerSecond: common.Coalesce(tps, DefaultTicksPerSecond)}
}

func (e *gltfAnimationExtractorImpl) ExtractAnimations(g bone.Graph, joints map[int]string) ([]*clip.Clip, error) {
	var clips []*clip.Clip
	for i, anim := range e.doc.Animations {
		relevant := false
		for _, ch := range anim.Channels {
			if node, ok := gltfIndex(ch.Target.Node); ok {
				if _, ok := joints[node]; ok {
					relevant = true
					break
				}
			}
		}
		if !relevant {
			continue
		}
		c, err := e.ExtractAnimation(i, g, joints)
		if err != nil {
			return nil, errors.Wrapf(err, "animation %d", i)
		}
		clips = append(clips, c)
	}
	sort.Slice(clips, func(i, j int) bool { return clips[i].Name < clips[j].Name })
	return clips, nil
}

func (e *gltfAnimationExtractorImpl) ExtractAnimation(animIndex int, g bone.Graph, joints map[int]string) (*clip.Clip, error) {
	if animIndex < 0 || animIndex >= len(e.doc.Animations) {
		return nil, errors.Errorf("animation index %d out of range", animIndex)
	}
	anim := e.doc.Animations[animIndex]

	name := anim.Name
	if name == "" {
		name = fmt.Sprintf("animation_%d", animIndex)
	}

	// tracks groups channels by bone so translation, rotation and scale share one BoneTrack
	tracks := make(map[string]*clip.BoneTrack)
	var length float64

	for i, ch := range anim.Channels {
		node, ok := gltfIndex(ch.Target.Node)
		if !ok {
			continue
		}
		boneName, ok := joints[node]
		if !ok {
			continue
		}
		si, ok := gltfIndex(ch.Sampler)
		if !ok || si < 0 || si >= len(anim.Samplers) {
			return nil, errors.Errorf("animation %q channel %d: invalid sampler", name, i)
		}
		sampler := anim.Samplers[si]

		times, err := e.readScalars(sampler.Input)
		if err != nil {
			return nil, errors.Wrapf(err, "animation %q channel %d: timestamps", name, i)
		}
		for k := range times {
			times[k] *= e.ticksPerSecond
		}
		if n := len(times); n > 0 {
			length = max(length, times[n-1])
		}

		ease := easing.Func(nil)
		cubic := false
		switch sampler.Interpolation {
		case gltf.InterpolationStep:
			ease = easing.Step
		case gltf.InterpolationCubicSpline:
			cubic = true
		}

		track, exists := tracks[boneName]
		if !exists {
			track = &clip.BoneTrack{Bone: boneName}
			tracks[boneName] = track
		}
		initial, _ := g.InitialSnapshot(boneName)

		var values []mgl64.Vec3
		switch ch.Target.Path {
		case gltf.TRSTranslation, gltf.TRSScale:
			values, err = e.readVec3s(sampler.Output, cubic)
		case gltf.TRSRotation:
			var quats []mgl64.Quat
			quats, err = e.readQuats(sampler.Output, cubic)
			for _, q := range quats {
				values = append(values, common.QuatToEuler(q).Sub(initial.Rotation))
			}
		default:
			// Morph target weights have no bone channel
			continue
		}
		if err != nil {
			return nil, errors.Wrapf(err, "animation %q channel %d: values", name, i)
		}

		stack := constantStack(times, values, ease)
		switch ch.Target.Path {
		case gltf.TRSTranslation:
			track.Position = stack
		case gltf.TRSRotation:
			track.Rotation = stack
		case gltf.TRSScale:
			track.Scale = stack
		}
	}

	names := make([]string, 0, len(tracks))
	for n := range tracks {
		names = append(names, n)
	}
	sort.Strings(names)
	c := &clip.Clip{Name: name, Length: length, Loop: clip.Loop}
	for _, n := range names {
		c.Tracks = append(c.Tracks, *tracks[n])
	}
	if err := c.Validate(); err != nil {
		return nil, errors.Wrap(ErrInvalidClip, err.Error())
	}
	return c, nil
}

// constantStack builds axis tracks from timed vectors already in model units.
func constantStack(times []float64, values []mgl64.Vec3, ease easing.Func) clip.KeyframeStack {
	n := min(len(times), len(values))
	var axes [3][]expression.Value
	eases := make([]easing.Func, n)
	for i := 0; i < n; i++ {
		eases[i] = ease
		for _, a := range common.Axes {
			axes[a] = append(axes[a], expression.Constant(values[i][a]))
		}
	}
	times = times[:n]
	return clip.KeyframeStack{
		X: segments(times, axes[common.AxisX], eases, nil),
		Y: segments(times, axes[common.AxisY], eases, nil),
		Z: segments(times, axes[common.AxisZ], eases, nil),
	}
}

func (e *gltfAnimationExtractorImpl) accessor(index any) (*gltf.Accessor, error) {
	i, ok := gltfIndex(index)
	if !ok || i < 0 || i >= len(e.doc.Accessors) {
		return nil, errors.Errorf("invalid accessor index %v", index)
	}
	return e.doc.Accessors[i], nil
}

func (e *gltfAnimationExtractorImpl) readScalars(index any) ([]float64, error) {
	acr, err := e.accessor(index)
	if err != nil {
		return nil, err
	}
	data, err := modeler.ReadAccessor(e.doc, acr, nil)
	if err != nil {
		return nil, err
	}
	raw, ok := data.([]float32)
	if !ok {
		return nil, errors.Errorf("accessor holds %T, want float scalars", data)
	}
	out := make([]float64, len(raw))
	for i, v := range raw {
		out[i] = float64(v)
	}
	return out, nil
}

// readVec3s reads a VEC3 output accessor. Cubic spline outputs store an in-tangent, a value and an
// out-tangent per key; only the value is kept.
func (e *gltfAnimationExtractorImpl) readVec3s(index any, cubic bool) ([]mgl64.Vec3, error) {
	acr, err := e.accessor(index)
	if err != nil {
		return nil, err
	}
	data, err := modeler.ReadAccessor(e.doc, acr, nil)
	if err != nil {
		return nil, err
	}
	raw, ok := data.([][3]float32)
	if !ok {
		return nil, errors.Errorf("accessor holds %T, want vec3", data)
	}
	out := make([]mgl64.Vec3, 0, len(raw))
	for i, v := range raw {
		if cubic && i%3 != 1 {
			continue
		}
		out = append(out, mgl64.Vec3{float64(v[0]), float64(v[1]), float64(v[2])})
	}
	return out, nil
}

func (e *gltfAnimationExtractorImpl) readQuats(index any, cubic bool) ([]mgl64.Quat, error) {
	acr, err := e.accessor(index)
	if err != nil {
		return nil, err
	}
	data, err := modeler.ReadAccessor(e.doc, acr, nil)
	if err != nil {
		return nil, err
	}
	raw, ok := data.([][4]float32)
	if !ok {
		return nil, errors.Errorf("accessor holds %T, want vec4", data)
	}
	out := make([]mgl64.Quat, 0, len(raw))
	for i, v := range raw {
		if cubic && i%3 != 1 {
			continue
		}
		out = append(out, mgl64.Quat{W: float64(v[3]), V: mgl64.Vec3{float64(v[0]), float64(v[1]), float64(v[2])}})
	}
	return out, nil
}
