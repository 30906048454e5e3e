package controller

import (
	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/sampler"
)

// BoneQueue holds the interpolation points a controller produced for one bone during a tick.
// Points are queued per channel and per axis; the processor consumes them as x/y/z triples.
type BoneQueue struct {
	Bone   string
	points [3][3][]sampler.Point
}

func newBoneQueue(name string) *BoneQueue {
	return &BoneQueue{Bone: name}
}

// Push queues one point per axis for a channel.
func (q *BoneQueue) Push(c common.Channel, x, y, z sampler.Point) {
	q.points[c][common.AxisX] = append(q.points[c][common.AxisX], x)
	q.points[c][common.AxisY] = append(q.points[c][common.AxisY], y)
	q.points[c][common.AxisZ] = append(q.points[c][common.AxisZ], z)
}

// Pop removes the oldest x/y/z triple for a channel.
//
// Parameters:
//   - c: the channel
//
// Returns:
//   - [3]sampler.Point: the points in axis order
//   - bool: false if any axis queue was empty
func (q *BoneQueue) Pop(c common.Channel) ([3]sampler.Point, bool) {
	var out [3]sampler.Point
	for _, a := range common.Axes {
		if len(q.points[c][a]) == 0 {
			return out, false
		}
	}
	for _, a := range common.Axes {
		out[a] = q.points[c][a][0]
		q.points[c][a] = q.points[c][a][1:]
	}
	return out, true
}

// Len returns the number of complete triples queued for a channel.
func (q *BoneQueue) Len(c common.Channel) int {
	n := len(q.points[c][common.AxisX])
	for _, a := range common.Axes[1:] {
		if l := len(q.points[c][a]); l < n {
			n = l
		}
	}
	return n
}

// Empty reports whether nothing is queued on any channel.
func (q *BoneQueue) Empty() bool {
	for _, c := range common.Channels {
		if q.Len(c) > 0 {
			return false
		}
	}
	return true
}

func (q *BoneQueue) reset() {
	for c := range q.points {
		for a := range q.points[c] {
			q.points[c][a] = q.points[c][a][:0]
		}
	}
}
