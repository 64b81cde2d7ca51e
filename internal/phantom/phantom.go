// Package phantom generates synthetic test volumes with known analytic
// structure. The generators back the package tests and the demo driver, so
// no component needs real patient data to be exercised.
package phantom

import (
	"math"

	"mprviewer/pkg/geom"
	"mprviewer/pkg/volume"
)

// Linear builds a volume whose intensity is a linear ramp a·x + b·y + c·z in
// voxel coordinates. Trilinear interpolation reproduces a linear field
// exactly, which makes sampling errors easy to pin down in tests.
func Linear(nx, ny, nz int, spacing geom.Vec3, a, b, c float64) *volume.Volume {
	data := make([]float64, nx*ny*nz)
	for z := 0; z < nz; z++ {
		for y := 0; y < ny; y++ {
			for x := 0; x < nx; x++ {
				data[z*ny*nx+y*nx+x] = a*float64(x) + b*float64(y) + c*float64(z)
			}
		}
	}
	vol, err := volume.New(data, nx, ny, nz, spacing, nil)
	if err != nil {
		panic(err)
	}
	return vol
}

// Sphere builds a volume containing a bright ball of the given voxel radius
// centered in the grid, on a zero background.
func Sphere(nx, ny, nz int, spacing geom.Vec3, radius, intensity float64) *volume.Volume {
	cx := float64(nx-1) / 2
	cy := float64(ny-1) / 2
	cz := float64(nz-1) / 2

	data := make([]float64, nx*ny*nz)
	for z := 0; z < nz; z++ {
		for y := 0; y < ny; y++ {
			for x := 0; x < nx; x++ {
				dx := float64(x) - cx
				dy := float64(y) - cy
				dz := float64(z) - cz
				if math.Sqrt(dx*dx+dy*dy+dz*dz) <= radius {
					data[z*ny*nx+y*nx+x] = intensity
				}
			}
		}
	}
	vol, err := volume.New(data, nx, ny, nz, spacing, nil)
	if err != nil {
		panic(err)
	}
	return vol
}

// SphereMask builds the label grid matching Sphere: label inside the ball,
// zero outside. The raw labels are returned so callers can wrap them in
// whatever mask type they are testing.
func SphereMask(nx, ny, nz int, radius float64, label int32) []int32 {
	cx := float64(nx-1) / 2
	cy := float64(ny-1) / 2
	cz := float64(nz-1) / 2

	labels := make([]int32, nx*ny*nz)
	for z := 0; z < nz; z++ {
		for y := 0; y < ny; y++ {
			for x := 0; x < nx; x++ {
				dx := float64(x) - cx
				dy := float64(y) - cy
				dz := float64(z) - cz
				if math.Sqrt(dx*dx+dy*dy+dz*dz) <= radius {
					labels[z*ny*nx+y*nx+x] = label
				}
			}
		}
	}
	return labels
}

// Checker builds a volume of alternating blocks, useful for verifying that
// nearest-neighbor sampling never blends values.
func Checker(nx, ny, nz, blockSize int, spacing geom.Vec3, low, high float64) *volume.Volume {
	data := make([]float64, nx*ny*nz)
	for z := 0; z < nz; z++ {
		for y := 0; y < ny; y++ {
			for x := 0; x < nx; x++ {
				if (x/blockSize+y/blockSize+z/blockSize)%2 == 0 {
					data[z*ny*nx+y*nx+x] = low
				} else {
					data[z*ny*nx+y*nx+x] = high
				}
			}
		}
	}
	vol, err := volume.New(data, nx, ny, nz, spacing, nil)
	if err != nil {
		panic(err)
	}
	return vol
}
