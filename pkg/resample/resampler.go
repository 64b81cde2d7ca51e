// Package resample produces 2D slice images from the volume along arbitrary
// cutting planes, both synchronously and through a worker-pool dispatcher
// for interactive use.
package resample

import (
	"fmt"

	"mprviewer/pkg/geom"
	"mprviewer/pkg/volume"
)

// SliceImage is one resampled slice: the pixel grid plus the exact plane and
// spacing that produced it. Instances are immutable; every interaction
// produces a new SliceImage, so cached or displayed slices never change
// underneath their consumers.
type SliceImage struct {
	Pixels        []float64
	Width, Height int

	Plane        geom.Plane
	PixelSpacing float64

	// Version is the plane version this slice was computed for. Consumers
	// use it to drop slices that were superseded while in flight.
	Version uint64
}

// At returns the pixel at (i, j). Indices must be in range.
func (s *SliceImage) At(i, j int) float64 {
	return s.Pixels[j*s.Width+i]
}

// SamplePoint returns the world-space point that pixel (i, j) was sampled
// at: origin + i·u·spacing + j·v·spacing. The overlay compositor walks the
// identical points to guarantee pixel-exact mask alignment.
func (s *SliceImage) SamplePoint(i, j int) geom.Vec3 {
	return s.Plane.Point(float64(i)*s.PixelSpacing, float64(j)*s.PixelSpacing)
}

// Resampler pulls volume snapshots from a Store and renders slice images
// from them.
type Resampler struct {
	store *volume.Store
}

// NewResampler creates a resampler reading from store.
func NewResampler(store *volume.Store) *Resampler {
	return &Resampler{store: store}
}

// Resample walks a regular width×height grid over the plane, starting at
// the plane origin and stepping pixelSpacing along u and v, sampling the
// volume trilinearly at every grid point. Grid points outside the volume
// get the volume background value.
//
// The walk is a plain row-major loop over precomputed steps, so the output
// is bit-identical for identical inputs and the cost is linear in the pixel
// count (8 voxel reads per pixel).
func (r *Resampler) Resample(plane geom.Plane, width, height int, pixelSpacing float64) (*SliceImage, error) {
	return r.ResampleVersion(plane, width, height, pixelSpacing, 0)
}

// ResampleVersion is Resample with the plane version stamped into the
// resulting SliceImage.
func (r *Resampler) ResampleVersion(plane geom.Plane, width, height int, pixelSpacing float64, version uint64) (*SliceImage, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("resample: non-positive output size %dx%d", width, height)
	}
	if pixelSpacing <= 0 {
		return nil, fmt.Errorf("resample: non-positive pixel spacing %g", pixelSpacing)
	}
	vol, err := r.store.Snapshot()
	if err != nil {
		return nil, err
	}

	du := plane.U.Scale(pixelSpacing)
	dv := plane.V.Scale(pixelSpacing)

	pixels := make([]float64, width*height)
	row := plane.Origin
	for j := 0; j < height; j++ {
		p := row
		for i := 0; i < width; i++ {
			pixels[j*width+i] = vol.Sample(p)
			p = p.Add(du)
		}
		row = row.Add(dv)
	}

	return &SliceImage{
		Pixels:       pixels,
		Width:        width,
		Height:       height,
		Plane:        plane,
		PixelSpacing: pixelSpacing,
		Version:      version,
	}, nil
}

// Centered shifts a plane's origin so that a width×height output grid at
// pixelSpacing is centered on the original origin. View planes keep the
// cursor at their origin; this derives the top-left sample point for
// display.
func Centered(plane geom.Plane, width, height int, pixelSpacing float64) geom.Plane {
	shifted := plane
	shifted.Origin = plane.Origin.
		Sub(plane.U.Scale(float64(width-1) * pixelSpacing / 2)).
		Sub(plane.V.Scale(float64(height-1) * pixelSpacing / 2))
	return shifted
}
