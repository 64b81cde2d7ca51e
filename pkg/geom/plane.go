package geom

import (
	"errors"
	"math"
)

// ErrDegeneratePlane is returned when a plane's basis vectors have collapsed
// to the point where no orthonormal basis can be recovered from them.
var ErrDegeneratePlane = errors.New("geom: degenerate plane basis")

// degenerateEps is the squared-length floor below which a basis vector is
// treated as a zero vector rather than renormalized.
const degenerateEps = 1e-12

// Plane is a cutting plane in world space, defined by an origin point and
// two orthonormal in-plane basis vectors. The normal is always derived as
// u × v rather than stored, so it cannot drift independently.
type Plane struct {
	Origin Vec3
	U, V   Vec3
}

// NewPlane builds a plane at origin from the given basis vectors,
// orthonormalizing them first.
func NewPlane(origin, u, v Vec3) (Plane, error) {
	p := Plane{Origin: origin, U: u, V: v}
	if err := p.Orthonormalize(); err != nil {
		return Plane{}, err
	}
	return p, nil
}

// AxialPlane returns the axis-aligned plane whose normal is world Z,
// passing through origin.
func AxialPlane(origin Vec3) Plane {
	return Plane{Origin: origin, U: AxisX, V: AxisY}
}

// SagittalPlane returns the axis-aligned plane whose normal is world X.
func SagittalPlane(origin Vec3) Plane {
	return Plane{Origin: origin, U: AxisY, V: AxisZ}
}

// CoronalPlane returns the axis-aligned plane whose normal is world Y.
func CoronalPlane(origin Vec3) Plane {
	return Plane{Origin: origin, U: AxisX, V: AxisZ}
}

// Normal returns the plane normal, u × v. For an orthonormal basis this is
// a unit vector.
func (p Plane) Normal() Vec3 {
	return p.U.Cross(p.V)
}

// Point maps in-plane coordinates (s along u, t along v) to world space.
func (p Plane) Point(s, t float64) Vec3 {
	return p.Origin.Add(p.U.Scale(s)).Add(p.V.Scale(t))
}

// Distance returns the absolute distance from q to the plane.
func (p Plane) Distance(q Vec3) float64 {
	return math.Abs(q.Sub(p.Origin).Dot(p.Normal()))
}

// Orthonormalize rebuilds u and v as an exact orthonormal pair via
// Gram-Schmidt. Every mutating plane operation calls this so that repeated
// incremental edits cannot accumulate drift. It fails with
// ErrDegeneratePlane if the vectors are collinear or vanishingly small.
func (p *Plane) Orthonormalize() error {
	if p.U.Dot(p.U) < degenerateEps {
		return ErrDegeneratePlane
	}
	u := p.U.Unit()
	v := p.V.Sub(u.Scale(u.Dot(p.V)))
	if v.Dot(v) < degenerateEps {
		return ErrDegeneratePlane
	}
	p.U = u
	p.V = v.Unit()
	return nil
}

// Rotate rotates the plane's basis by angle radians about the given axis
// through the plane origin, then re-orthonormalizes.
func (p *Plane) Rotate(axis Vec3, angle float64) error {
	if axis.Dot(axis) < degenerateEps {
		return ErrDegeneratePlane
	}
	u := p.U.RotateAbout(axis, angle)
	v := p.V.RotateAbout(axis, angle)
	rotated := Plane{Origin: p.Origin, U: u, V: v}
	if err := rotated.Orthonormalize(); err != nil {
		// Only reachable when the input basis was already broken; the
		// receiver is left untouched.
		return err
	}
	*p = rotated
	return nil
}
