// Package overlay merges externally supplied segmentation masks onto
// resampled slices, and indexes labeled voxels for cursor navigation.
package overlay

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"mprviewer/pkg/geom"
	"mprviewer/pkg/volume"
)

// ErrMaskGridMismatch flags a mask whose grid (dimensions, spacing, or
// orientation) does not match the loaded volume's.
var ErrMaskGridMismatch = errors.New("overlay: mask grid does not match volume grid")

// gridTol is the per-component tolerance when comparing spacing and
// orientation matrices.
const gridTol = 1e-6

// Mask is a categorical label volume produced by the segmentation
// collaborator, aligned voxel-for-voxel with the intensity volume. Label 0
// is background. The engine holds masks as read-only references and never
// mutates them.
type Mask struct {
	labels     []int32
	nx, ny, nz int
	spacing    geom.Vec3
	affine     *mat.Dense
}

// NewMask wraps a label grid. affine may be nil for a diagonal
// spacing-derived transform, mirroring volume.New.
func NewMask(labels []int32, nx, ny, nz int, spacing geom.Vec3, affine *mat.Dense) (*Mask, error) {
	if len(labels) != nx*ny*nz {
		return nil, fmt.Errorf("overlay: label count %d does not match dimensions %dx%dx%d",
			len(labels), nx, ny, nz)
	}
	if spacing.X <= 0 || spacing.Y <= 0 || spacing.Z <= 0 {
		return nil, fmt.Errorf("overlay: spacing components must be positive, got (%g, %g, %g)",
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
		affine = mat.DenseCopyOf(affine)
	}
	return &Mask{labels: labels, nx: nx, ny: ny, nz: nz, spacing: spacing, affine: affine}, nil
}

// Dims returns the mask grid dimensions.
func (m *Mask) Dims() (int, int, int) { return m.nx, m.ny, m.nz }

// At returns the label at integer grid indices. Indices must be in range.
func (m *Mask) At(x, y, z int) int32 {
	return m.labels[z*m.ny*m.nx+y*m.nx+x]
}

// Matches reports whether the mask shares the volume's grid: identical
// dimensions and spacing/orientation equal within tolerance.
func (m *Mask) Matches(v *volume.Volume) bool {
	nx, ny, nz := v.Dims()
	if m.nx != nx || m.ny != ny || m.nz != nz {
		return false
	}
	s := v.Spacing()
	if math.Abs(m.spacing.X-s.X) > gridTol ||
		math.Abs(m.spacing.Y-s.Y) > gridTol ||
		math.Abs(m.spacing.Z-s.Z) > gridTol {
		return false
	}
	va := v.Affine()
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			if math.Abs(m.affine.At(r, c)-va.At(r, c)) > gridTol {
				return false
			}
		}
	}
	return true
}
