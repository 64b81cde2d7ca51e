// Package geom provides the world-space primitives used by the MPR engine:
// 3D vectors, cutting planes, and axis-aligned boxes.
package geom

import "math"

// Vec3 is a point or direction in world space (millimeters).
type Vec3 struct {
	X, Y, Z float64
}

// Fixed world axes. The orthogonal viewing planes are always built from
// pairs of these.
var (
	AxisX = Vec3{1, 0, 0}
	AxisY = Vec3{0, 1, 0}
	AxisZ = Vec3{0, 0, 1}
)

func (v Vec3) Add(w Vec3) Vec3 {
	return Vec3{v.X + w.X, v.Y + w.Y, v.Z + w.Z}
}

func (v Vec3) Sub(w Vec3) Vec3 {
	return Vec3{v.X - w.X, v.Y - w.Y, v.Z - w.Z}
}

func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

func (v Vec3) Dot(w Vec3) float64 {
	return v.X*w.X + v.Y*w.Y + v.Z*w.Z
}

func (v Vec3) Cross(w Vec3) Vec3 {
	return Vec3{
		v.Y*w.Z - v.Z*w.Y,
		v.Z*w.X - v.X*w.Z,
		v.X*w.Y - v.Y*w.X,
	}
}

func (v Vec3) Norm() float64 {
	return math.Sqrt(v.Dot(v))
}

// Unit returns v scaled to unit length. The zero vector is returned
// unchanged; callers that care must check Norm first.
func (v Vec3) Unit() Vec3 {
	n := v.Norm()
	if n == 0 {
		return v
	}
	return v.Scale(1 / n)
}

// Clamp limits each component of v to the interval [min, max].
func (v Vec3) Clamp(min, max Vec3) Vec3 {
	return Vec3{
		clamp(v.X, min.X, max.X),
		clamp(v.Y, min.Y, max.Y),
		clamp(v.Z, min.Z, max.Z),
	}
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// RotateAbout rotates v by angle radians about the unit axis using the
// Rodrigues formula.
func (v Vec3) RotateAbout(axis Vec3, angle float64) Vec3 {
	k := axis.Unit()
	cos := math.Cos(angle)
	sin := math.Sin(angle)
	// v cos + (k × v) sin + k (k · v)(1 - cos)
	return v.Scale(cos).
		Add(k.Cross(v).Scale(sin)).
		Add(k.Scale(k.Dot(v) * (1 - cos)))
}
