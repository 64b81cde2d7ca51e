package geom

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVec3Basics(t *testing.T) {
	a := Vec3{1, 2, 3}
	b := Vec3{4, 5, 6}

	assert.Equal(t, Vec3{5, 7, 9}, a.Add(b))
	assert.Equal(t, Vec3{-3, -3, -3}, a.Sub(b))
	assert.Equal(t, Vec3{2, 4, 6}, a.Scale(2))
	assert.Equal(t, 32.0, a.Dot(b))
	assert.Equal(t, Vec3{0, 0, 1}, AxisX.Cross(AxisY))
	assert.InDelta(t, math.Sqrt(14), a.Norm(), 1e-12)
	assert.InDelta(t, 1.0, a.Unit().Norm(), 1e-12)
}

func TestVec3Clamp(t *testing.T) {
	lo := Vec3{0, 0, 0}
	hi := Vec3{10, 10, 10}

	assert.Equal(t, Vec3{0, 5, 10}, Vec3{-3, 5, 12}.Clamp(lo, hi))
	assert.Equal(t, Vec3{2, 3, 4}, Vec3{2, 3, 4}.Clamp(lo, hi))
}

func TestRotateAbout(t *testing.T) {
	// Quarter turn of X about Z lands on Y.
	got := AxisX.RotateAbout(AxisZ, math.Pi/2)
	assert.InDelta(t, 0, got.X, 1e-12)
	assert.InDelta(t, 1, got.Y, 1e-12)
	assert.InDelta(t, 0, got.Z, 1e-12)

	// Rotation preserves length for arbitrary vectors and axes.
	v := Vec3{0.3, -1.7, 2.2}
	r := v.RotateAbout(Vec3{1, 1, 1}, 0.4321)
	assert.InDelta(t, v.Norm(), r.Norm(), 1e-12)
}

func TestPlaneConstructorsPassThroughOrigin(t *testing.T) {
	origin := Vec3{12, -4, 7.5}
	for name, p := range map[string]Plane{
		"axial":    AxialPlane(origin),
		"sagittal": SagittalPlane(origin),
		"coronal":  CoronalPlane(origin),
	} {
		t.Run(name, func(t *testing.T) {
			assert.InDelta(t, 0, p.Distance(origin), 1e-12)
			assert.InDelta(t, 1, p.Normal().Norm(), 1e-12)
			assert.InDelta(t, 0, p.U.Dot(p.V), 1e-12)
		})
	}
}

func TestPlaneOrthonormalize(t *testing.T) {
	p := Plane{
		Origin: Vec3{},
		U:      Vec3{2, 0, 0},
		V:      Vec3{1, 3, 0},
	}
	require.NoError(t, p.Orthonormalize())
	assert.InDelta(t, 1, p.U.Norm(), 1e-12)
	assert.InDelta(t, 1, p.V.Norm(), 1e-12)
	assert.InDelta(t, 0, p.U.Dot(p.V), 1e-12)
}

func TestPlaneDegenerate(t *testing.T) {
	collinear := Plane{U: Vec3{1, 0, 0}, V: Vec3{2, 0, 0}}
	assert.ErrorIs(t, collinear.Orthonormalize(), ErrDegeneratePlane)

	zero := Plane{U: Vec3{}, V: Vec3{0, 1, 0}}
	assert.ErrorIs(t, zero.Orthonormalize(), ErrDegeneratePlane)

	_, err := NewPlane(Vec3{}, Vec3{1, 1, 0}, Vec3{2, 2, 0})
	assert.ErrorIs(t, err, ErrDegeneratePlane)
}

func TestPlaneRotateKeepsOrthonormal(t *testing.T) {
	p := AxialPlane(Vec3{1, 2, 3})

	// A long sequence of incremental rotations about varying axes must not
	// let the basis drift.
	axes := []Vec3{AxisX, AxisY, AxisZ, {1, 1, 0}, {0.2, -0.7, 1.3}}
	for i := 0; i < 500; i++ {
		require.NoError(t, p.Rotate(axes[i%len(axes)], 0.013*float64(i%7+1)))
	}

	assert.InDelta(t, 1, p.U.Norm(), 1e-5)
	assert.InDelta(t, 1, p.V.Norm(), 1e-5)
	assert.InDelta(t, 0, p.U.Dot(p.V), 1e-5)
	assert.InDelta(t, 1, p.Normal().Norm(), 1e-5)
	assert.Equal(t, Vec3{1, 2, 3}, p.Origin)
}

func TestPlanePoint(t *testing.T) {
	p := AxialPlane(Vec3{10, 20, 30})
	assert.Equal(t, Vec3{13, 24, 30}, p.Point(3, 4))
}

func TestBox(t *testing.T) {
	b := Box{Min: Vec3{0, 0, 0}, Max: Vec3{10, 10, 10}}

	assert.True(t, b.Contains(Vec3{5, 5, 5}))
	assert.True(t, b.Contains(Vec3{0, 0, 0}))
	assert.False(t, b.Contains(Vec3{-1, 5, 5}))

	o := Box{Min: Vec3{5, 5, 5}, Max: Vec3{15, 15, 15}}
	got := b.Intersect(o)
	assert.Equal(t, Box{Min: Vec3{5, 5, 5}, Max: Vec3{10, 10, 10}}, got)
	assert.InDelta(t, 125, got.Volume(), 1e-12)

	disjoint := Box{Min: Vec3{20, 20, 20}, Max: Vec3{30, 30, 30}}
	assert.True(t, b.Intersect(disjoint).Empty())
	assert.Equal(t, 0.0, b.Intersect(disjoint).Volume())

	assert.Equal(t, Vec3{5, 5, 5}, b.Center())
}
