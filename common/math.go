package common

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Lerp linearly interpolates between a and b by t.
// t == 1 yields exactly b and t == 0 yields exactly a.
//
// Parameters:
//   - a: the value at t == 0
//   - b: the value at t == 1
//   - t: the interpolation factor
//
// Returns:
//   - float64: the interpolated value
func Lerp(a, b, t float64) float64 {
	return a*(1-t) + b*t
}

// LerpVec3 applies Lerp to each component of two vectors.
//
// Parameters:
//   - a: the vector at t == 0
//   - b: the vector at t == 1
//   - t: the interpolation factor
//
// Returns:
//   - mgl64.Vec3: the interpolated vector
func LerpVec3(a, b mgl64.Vec3, t float64) mgl64.Vec3 {
	return mgl64.Vec3{Lerp(a[0], b[0], t), Lerp(a[1], b[1], t), Lerp(a[2], b[2], t)}
}

// Progress returns how far elapsed has advanced through duration, clamped to [0, 1].
// A non-positive duration is treated as already complete.
//
// Parameters:
//   - elapsed: the time spent so far
//   - duration: the total time span
//
// Returns:
//   - float64: the normalized progress
func Progress(elapsed, duration float64) float64 {
	if duration <= 0 {
		return 1
	}
	return mgl64.Clamp(elapsed/duration, 0, 1)
}

// ModelRotation converts an authored euler angle in degrees into the model's radian convention.
// X and Y are negated to match the model coordinate space; Z is not.
//
// Parameters:
//   - degrees: the authored angle in degrees
//   - axis: the axis the angle rotates about
//
// Returns:
//   - float64: the angle in radians in model space
func ModelRotation(degrees float64, axis Axis) float64 {
	rad := mgl64.DegToRad(degrees)
	if axis == AxisX || axis == AxisY {
		rad = -rad
	}
	return rad
}

// QuatToEuler converts a unit quaternion into XYZ euler angles in radians.
//
// Parameters:
//   - q: the rotation quaternion
//
// Returns:
//   - mgl64.Vec3: the euler angles (x, y, z)
func QuatToEuler(q mgl64.Quat) mgl64.Vec3 {
	q = q.Normalize()
	x, y, z, w := q.V[0], q.V[1], q.V[2], q.W

	sinrCosp := 2 * (w*x + y*z)
	cosrCosp := 1 - 2*(x*x+y*y)
	roll := math.Atan2(sinrCosp, cosrCosp)

	sinp := 2 * (w*y - z*x)
	var pitch float64
	if math.Abs(sinp) >= 1 {
		pitch = math.Copysign(math.Pi/2, sinp)
	} else {
		pitch = math.Asin(sinp)
	}

	sinyCosp := 2 * (w*z + x*y)
	cosyCosp := 1 - 2*(y*y+z*z)
	yaw := math.Atan2(sinyCosp, cosyCosp)

	return mgl64.Vec3{roll, pitch, yaw}
}
