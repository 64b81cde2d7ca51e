// Package volume owns the canonical 3D voxel grid: the immutable Volume
// snapshot and the Store that atomically swaps snapshots on load.
package volume

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"mprviewer/pkg/geom"
)

// Volume is a 3D grid of scalar intensity samples together with its physical
// geometry. The voxel data is stored as a flat array in row-major order
// (index = z*ny*nx + y*nx + x), matching slice-stack acquisition order.
//
// A Volume is immutable once built. Loading a new dataset replaces the whole
// Volume through the Store; nothing ever mutates voxels in place, so any
// number of concurrent readers can sample a snapshot safely.
type Volume struct {
	data       []float64
	nx, ny, nz int
	spacing    geom.Vec3

	// affine maps homogeneous voxel indices [i j k 1] to world coordinates;
	// inverse is precomputed because every sample lookup goes through it.
	affine  *mat.Dense
	inverse *mat.Dense

	minVal, maxVal float64
	bounds         geom.Box
}

// New builds a Volume from decoded voxel data. The ingestion collaborator is
// responsible for producing data in row-major [z][y][x] order. affine may be
// nil, in which case a diagonal voxel-to-world transform is derived from the
// spacing.
//
// Spacing components must be strictly positive and the affine must be
// invertible; both are validated here so the rest of the engine never has to
// re-check them.
func New(data []float64, nx, ny, nz int, spacing geom.Vec3, affine *mat.Dense) (*Volume, error) {
	if nx <= 0 || ny <= 0 || nz <= 0 {
		return nil, fmt.Errorf("volume: non-positive dimensions %dx%dx%d", nx, ny, nz)
	}
	if len(data) != nx*ny*nz {
		return nil, fmt.Errorf("volume: data length %d does not match dimensions %dx%dx%d",
			len(data), nx, ny, nz)
	}
	if spacing.X <= 0 || spacing.Y <= 0 || spacing.Z <= 0 {
		return nil, fmt.Errorf("volume: spacing components must be positive, got (%g, %g, %g)",
			spacing.X, spacing.Y, spacing.Z)
	}

	if affine == nil {
		affine = mat.NewDense(4, 4, []float64{
			spacing.X, 0, 0, 0,
			0, spacing.Y, 0, 0,
			0, 0, spacing.Z, 0,
			0, 0, 0, 1,
		})
	} else {
		r, c := affine.Dims()
		if r != 4 || c != 4 {
			return nil, fmt.Errorf("volume: orientation matrix must be 4x4, got %dx%d", r, c)
		}
		affine = mat.DenseCopyOf(affine)
	}

	var inverse mat.Dense
	if err := inverse.Inverse(affine); err != nil {
		return nil, fmt.Errorf("volume: orientation matrix is not invertible: %w", err)
	}

	v := &Volume{
		data:    data,
		nx:      nx,
		ny:      ny,
		nz:      nz,
		spacing: spacing,
		affine:  affine,
		inverse: &inverse,
	}

	v.minVal, v.maxVal = data[0], data[0]
	for _, x := range data {
		if x < v.minVal {
			v.minVal = x
		}
		if x > v.maxVal {
			v.maxVal = x
		}
	}
	v.bounds = v.computeBounds()

	return v, nil
}

// Dims returns the grid dimensions (nx, ny, nz).
func (v *Volume) Dims() (int, int, int) { return v.nx, v.ny, v.nz }

// Spacing returns the physical voxel spacing in mm.
func (v *Volume) Spacing() geom.Vec3 { return v.spacing }

// Affine returns a copy of the 4x4 voxel-to-world orientation matrix.
func (v *Volume) Affine() *mat.Dense { return mat.DenseCopyOf(v.affine) }

// MinIntensity and MaxIntensity bound the stored intensity range.
func (v *Volume) MinIntensity() float64 { return v.minVal }
func (v *Volume) MaxIntensity() float64 { return v.maxVal }

// Background is the sentinel intensity assigned to sample points outside the
// volume. Using the minimum keeps out-of-bounds regions visually dark
// without introducing values the dataset never contained.
func (v *Volume) Background() float64 { return v.minVal }

// Data exposes the raw voxel array. Callers must treat it as read-only.
func (v *Volume) Data() []float64 { return v.data }

// At returns the voxel intensity at integer grid indices, without
// interpolation. Indices must be in range.
func (v *Volume) At(x, y, z int) float64 {
	return v.data[z*v.ny*v.nx+y*v.nx+x]
}

// VoxelToWorld maps (possibly fractional) voxel indices to a world point.
func (v *Volume) VoxelToWorld(i, j, k float64) geom.Vec3 {
	return applyAffine(v.affine, i, j, k)
}

// WorldToVoxel maps a world point to fractional voxel indices.
func (v *Volume) WorldToVoxel(p geom.Vec3) (i, j, k float64) {
	q := applyAffine(v.inverse, p.X, p.Y, p.Z)
	return q.X, q.Y, q.Z
}

// Bounds returns the volume's physical bounding box: the world-space AABB of
// the voxel grid corners. For a rotated orientation matrix this encloses the
// (oriented) grid rather than tracing it exactly.
func (v *Volume) Bounds() geom.Box { return v.bounds }

func (v *Volume) computeBounds() geom.Box {
	first := true
	var b geom.Box
	for _, i := range []float64{0, float64(v.nx - 1)} {
		for _, j := range []float64{0, float64(v.ny - 1)} {
			for _, k := range []float64{0, float64(v.nz - 1)} {
				p := v.VoxelToWorld(i, j, k)
				if first {
					b = geom.Box{Min: p, Max: p}
					first = false
					continue
				}
				b.Min = geom.Vec3{X: math.Min(b.Min.X, p.X), Y: math.Min(b.Min.Y, p.Y), Z: math.Min(b.Min.Z, p.Z)}
				b.Max = geom.Vec3{X: math.Max(b.Max.X, p.X), Y: math.Max(b.Max.Y, p.Y), Z: math.Max(b.Max.Z, p.Z)}
			}
		}
	}
	return b
}

// Sample returns the trilinearly interpolated intensity at an arbitrary
// world point. Points outside the voxel grid return Background rather than
// an error, so callers walking plane grids stay branch-light.
func (v *Volume) Sample(p geom.Vec3) float64 {
	i, j, k := v.WorldToVoxel(p)
	if i < 0 || j < 0 || k < 0 ||
		i > float64(v.nx-1) || j > float64(v.ny-1) || k > float64(v.nz-1) {
		return v.minVal
	}

	x0, y0, z0 := int(i), int(j), int(k)
	x1, y1, z1 := x0+1, y0+1, z0+1
	if x1 > v.nx-1 {
		x1 = v.nx - 1
	}
	if y1 > v.ny-1 {
		y1 = v.ny - 1
	}
	if z1 > v.nz-1 {
		z1 = v.nz - 1
	}

	fx := i - float64(x0)
	fy := j - float64(y0)
	fz := k - float64(z0)

	// Weighted average of the 8 surrounding voxels.
	c000 := v.At(x0, y0, z0)
	c100 := v.At(x1, y0, z0)
	c010 := v.At(x0, y1, z0)
	c110 := v.At(x1, y1, z0)
	c001 := v.At(x0, y0, z1)
	c101 := v.At(x1, y0, z1)
	c011 := v.At(x0, y1, z1)
	c111 := v.At(x1, y1, z1)

	c00 := c000*(1-fx) + c100*fx
	c10 := c010*(1-fx) + c110*fx
	c01 := c001*(1-fx) + c101*fx
	c11 := c011*(1-fx) + c111*fx

	c0 := c00*(1-fy) + c10*fy
	c1 := c01*(1-fy) + c11*fy

	return c0*(1-fz) + c1*fz
}

// SampleNearest returns the intensity of the voxel nearest to the world
// point, with no interpolation. This is the sampling mode for categorical
// label volumes, where averaging adjacent labels would be meaningless.
func (v *Volume) SampleNearest(p geom.Vec3) (float64, bool) {
	i, j, k := v.WorldToVoxel(p)
	x := int(math.Round(i))
	y := int(math.Round(j))
	z := int(math.Round(k))
	if x < 0 || y < 0 || z < 0 || x >= v.nx || y >= v.ny || z >= v.nz {
		return 0, false
	}
	return v.At(x, y, z), true
}

func applyAffine(m *mat.Dense, x, y, z float64) geom.Vec3 {
	return geom.Vec3{
		X: m.At(0, 0)*x + m.At(0, 1)*y + m.At(0, 2)*z + m.At(0, 3),
		Y: m.At(1, 0)*x + m.At(1, 1)*y + m.At(1, 2)*z + m.At(1, 3),
		Z: m.At(2, 0)*x + m.At(2, 1)*y + m.At(2, 2)*z + m.At(2, 3),
	}
}
