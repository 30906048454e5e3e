package loader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/bone"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
)

// gltfSkeletonExtractorImpl is the implementation of the gltfSkeletonExtractor interface.
type gltfSkeletonExtractorImpl struct {
	doc *gltf.Document
}

// gltfSkeletonExtractor defines the interface for extracting a bone graph from a glTF document.
type gltfSkeletonExtractor interface {
	// ExtractSkeleton builds a bone graph from a skin's joints. Rest rotations are converted
	// from quaternions to euler radians.
	//
	// Parameters:
	//   - name: the model name given to the graph
	//   - skinIndex: the index of the skin to extract
	//
	// Returns:
	//   - bone.Graph: the extracted graph, parents registered before children
	//   - map[int]string: glTF node index to bone name for every joint
	//   - error: error if extraction fails
	ExtractSkeleton(name string, skinIndex int) (bone.Graph, map[int]string, error)
}

var _ gltfSkeletonExtractor = &gltfSkeletonExtractorImpl{}

// newGLTFSkeletonExtractor creates a new skeleton extractor for a decoded document.
//
// Parameters:
//   - doc: the decoded document
//
// Returns:
//   - gltfSkeletonExtractor: the skeleton extractor
func newGLTFSkeletonExtractor(doc *gltf.Document) gltfSkeletonExtractor {
	return &gltfSkeletonExtractorImpl{doc: doc}
}

func (e *gltfSkeletonExtractorImpl) ExtractSkeleton(name string, skinIndex int) (bone.Graph, map[int]string, error) {
	doc := e.doc
	if skinIndex < 0 || skinIndex >= len(doc.Skins) {
		return nil, nil, errors.Errorf("skin index %d out of range", skinIndex)
	}
	skin := doc.Skins[skinIndex]

	// First pass: create bones and map node indices
	bones := make([]*bone.Bone, len(skin.Joints))
	nodeToBone := make(map[int]int, len(skin.Joints))
	joints := make(map[int]string, len(skin.Joints))
	used := make(map[string]bool, len(skin.Joints))
	for i, j := range skin.Joints {
		nodeIdx, _ := gltfIndex(j)
		if nodeIdx < 0 || nodeIdx >= len(doc.Nodes) {
			return nil, nil, errors.Errorf("joint %d: invalid node index %d", i, nodeIdx)
		}
		node := doc.Nodes[nodeIdx]

		boneName := node.Name
		if boneName == "" || used[boneName] {
			boneName = fmt.Sprintf("bone_%d", i)
		}
		used[boneName] = true

		b := bone.NewBone(boneName)
		t, r, s := gltfNodeTRS(node.Matrix, node.Translation, node.Rotation, node.Scale)
		b.Position = t
		b.Rotation = common.QuatToEuler(r)
		b.Scale = s

		bones[i] = b
		nodeToBone[nodeIdx] = i
		joints[nodeIdx] = boneName
	}

	// Second pass: establish parent relationships
	parents := make([]int, len(bones))
	for i := range parents {
		parents[i] = -1
	}
	for nodeIdx, node := range doc.Nodes {
		parent, ok := nodeToBone[nodeIdx]
		if !ok {
			continue
		}
		for _, c := range node.Children {
			childIdx, _ := gltfIndex(c)
			if child, ok := nodeToBone[childIdx]; ok {
				parents[child] = parent
			}
		}
	}

	var roots []*bone.Bone
	for _, i := range gltfTopologicalOrder(parents) {
		if p := parents[i]; p >= 0 {
			bones[p].AddChild(bones[i])
			continue
		}
		roots = append(roots, bones[i])
	}
	return bone.NewGraph(bone.WithName(name), bone.WithBones(roots...)), joints, nil
}

// gltfTopologicalOrder returns bone indices with every parent before its children.
// Bones unreachable from a root are appended at the end as extra roots.
func gltfTopologicalOrder(parents []int) []int {
	children := make(map[int][]int)
	var queue []int
	for i, p := range parents {
		if p >= 0 {
			children[p] = append(children[p], i)
			continue
		}
		queue = append(queue, i)
	}

	sorted := make([]int, 0, len(parents))
	visited := make([]bool, len(parents))
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		if visited[i] {
			continue
		}
		visited[i] = true
		sorted = append(sorted, i)
		queue = append(queue, children[i]...)
	}

	// A parent cycle leaves bones unvisited; treat them as roots
	for i := range parents {
		if !visited[i] {
			parents[i] = -1
			sorted = append(sorted, i)
		}
	}
	return sorted
}

// gltfNodeTRS returns a node's local rest transform, decomposing its matrix when one is set.
func gltfNodeTRS[F float32 | float64](matrix [16]F, translation [3]F, rotation [4]F, scale [3]F) (mgl64.Vec3, mgl64.Quat, mgl64.Vec3) {
	var m mgl64.Mat4
	for i := range matrix {
		m[i] = float64(matrix[i])
	}
	if m != (mgl64.Mat4{}) && m != mgl64.Ident4() {
		return gltfDecomposeMatrix(m)
	}

	t := mgl64.Vec3{float64(translation[0]), float64(translation[1]), float64(translation[2])}
	q := mgl64.Quat{W: float64(rotation[3]), V: mgl64.Vec3{float64(rotation[0]), float64(rotation[1]), float64(rotation[2])}}
	if q.Len() == 0 {
		q = mgl64.QuatIdent()
	}
	s := mgl64.Vec3{float64(scale[0]), float64(scale[1]), float64(scale[2])}
	if s == (mgl64.Vec3{}) {
		s = mgl64.Vec3{1, 1, 1}
	}
	return t, q, s
}

// gltfDecomposeMatrix decomposes a column-major matrix into translation, rotation and scale.
// Shear is ignored.
func gltfDecomposeMatrix(m mgl64.Mat4) (mgl64.Vec3, mgl64.Quat, mgl64.Vec3) {
	t := m.Col(3).Vec3()
	s := mgl64.Vec3{m.Col(0).Vec3().Len(), m.Col(1).Vec3().Len(), m.Col(2).Vec3().Len()}

	safe := s
	for i := range safe {
		if safe[i] < 1e-4 {
			safe[i] = 1
		}
	}
	var r mgl64.Mat4
	for c := 0; c < 3; c++ {
		r.SetCol(c, m.Col(c).Mul(1/safe[c]))
	}
	r.SetCol(3, mgl64.Vec4{0, 0, 0, 1})
	return t, mgl64.Mat4ToQuat(r).Normalize(), s
}

// gltfIndex reads a glTF index field. Optional indices are pointers in the document model.
func gltfIndex(v any) (int, bool) {
	switch i := v.(type) {
	case uint32:
		return int(i), true
	case *uint32:
		if i == nil {
			return -1, false
		}
		return int(*i), true
	case int:
		return i, true
	case *int:
		if i == nil {
			return -1, false
		}
		return *i, true
	default:
		return -1, false
	}
}
