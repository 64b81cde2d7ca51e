package overlay

import (
	"image"
	"image/color"
	"math"

	"mprviewer/pkg/geom"
	"mprviewer/pkg/resample"
	"mprviewer/pkg/volume"
)

// BlendMode selects how masked pixels are rendered.
type BlendMode int

const (
	// BlendTint alpha-blends a label color over every masked pixel.
	BlendTint BlendMode = iota
	// BlendOutline colors only the boundary pixels of each labeled
	// structure, leaving its interior untouched.
	BlendOutline
)

// defaultPalette colors the first few labels; further labels cycle.
var defaultPalette = []color.RGBA{
	{R: 230, G: 57, B: 70, A: 255},
	{R: 69, G: 123, B: 157, A: 255},
	{R: 42, G: 157, B: 143, A: 255},
	{R: 244, G: 162, B: 97, A: 255},
	{R: 156, G: 102, B: 204, A: 255},
}

// Compositor blends segmentation masks onto resampled slices. The mask is
// resampled with nearest-neighbor lookups at the identical world points the
// intensity slice was sampled at: labels are categorical and must never be
// interpolated, and reusing the exact sample points keeps anatomy and
// overlay aligned pixel for pixel.
type Compositor struct {
	store *volume.Store

	Mode    BlendMode
	Alpha   float64 // tint opacity in [0, 1]
	Palette []color.RGBA
}

// NewCompositor creates a compositor reading volume geometry from store.
func NewCompositor(store *volume.Store) *Compositor {
	return &Compositor{
		store:   store,
		Mode:    BlendTint,
		Alpha:   0.4,
		Palette: defaultPalette,
	}
}

// Labels resamples the mask at the slice's sample points with
// nearest-neighbor interpolation, returning one label per slice pixel.
// Points outside the mask grid get label 0.
func (c *Compositor) Labels(slice *resample.SliceImage, mask *Mask) ([]int32, error) {
	vol, err := c.store.Snapshot()
	if err != nil {
		return nil, err
	}
	if !mask.Matches(vol) {
		return nil, ErrMaskGridMismatch
	}

	labels := make([]int32, slice.Width*slice.Height)
	for j := 0; j < slice.Height; j++ {
		for i := 0; i < slice.Width; i++ {
			labels[j*slice.Width+i] = nearestLabel(vol, mask, slice.SamplePoint(i, j))
		}
	}
	return labels, nil
}

// nearestLabel looks the mask up at the voxel nearest to the world point.
// The mask shares the volume grid, so the volume's world-to-voxel transform
// applies to it directly.
func nearestLabel(vol *volume.Volume, mask *Mask, p geom.Vec3) int32 {
	i, j, k := vol.WorldToVoxel(p)
	x := int(math.Round(i))
	y := int(math.Round(j))
	z := int(math.Round(k))
	nx, ny, nz := mask.Dims()
	if x < 0 || y < 0 || z < 0 || x >= nx || y >= ny || z >= nz {
		return 0
	}
	return mask.At(x, y, z)
}

// Composite blends the mask over the slice and returns the result as an
// RGBA image at the slice resolution. Fails with ErrMaskGridMismatch when
// the mask grid is incompatible with the loaded volume; the slice and mask
// are left untouched in every case.
func (c *Compositor) Composite(slice *resample.SliceImage, mask *Mask) (*image.RGBA, error) {
	labels, err := c.Labels(slice, mask)
	if err != nil {
		return nil, err
	}

	lo, hi := pixelRange(slice.Pixels)
	img := image.NewRGBA(image.Rect(0, 0, slice.Width, slice.Height))

	for j := 0; j < slice.Height; j++ {
		for i := 0; i < slice.Width; i++ {
			idx := j*slice.Width + i
			g := grayLevel(slice.Pixels[idx], lo, hi)
			label := labels[idx]

			switch {
			case label == 0:
				img.SetRGBA(i, j, color.RGBA{R: g, G: g, B: g, A: 255})
			case c.Mode == BlendOutline && !onBoundary(labels, slice.Width, slice.Height, i, j):
				img.SetRGBA(i, j, color.RGBA{R: g, G: g, B: g, A: 255})
			default:
				tint := c.labelColor(label)
				alpha := c.Alpha
				if c.Mode == BlendOutline {
					alpha = 1
				}
				img.SetRGBA(i, j, blend(g, tint, alpha))
			}
		}
	}
	return img, nil
}

// Grayscale renders the slice without any mask, window-normalized to the
// slice's own intensity range.
func (c *Compositor) Grayscale(slice *resample.SliceImage) *image.RGBA {
	lo, hi := pixelRange(slice.Pixels)
	img := image.NewRGBA(image.Rect(0, 0, slice.Width, slice.Height))
	for j := 0; j < slice.Height; j++ {
		for i := 0; i < slice.Width; i++ {
			g := grayLevel(slice.Pixels[j*slice.Width+i], lo, hi)
			img.SetRGBA(i, j, color.RGBA{R: g, G: g, B: g, A: 255})
		}
	}
	return img
}

func (c *Compositor) labelColor(label int32) color.RGBA {
	palette := c.Palette
	if len(palette) == 0 {
		palette = defaultPalette
	}
	return palette[(int(label)-1)%len(palette)]
}

// onBoundary reports whether the labeled pixel has a 4-neighbor with a
// different label. Slice-edge pixels count as boundary.
func onBoundary(labels []int32, w, h, i, j int) bool {
	at := labels[j*w+i]
	if i == 0 || j == 0 || i == w-1 || j == h-1 {
		return true
	}
	return labels[j*w+i-1] != at || labels[j*w+i+1] != at ||
		labels[(j-1)*w+i] != at || labels[(j+1)*w+i] != at
}

func pixelRange(pixels []float64) (lo, hi float64) {
	lo, hi = pixels[0], pixels[0]
	for _, p := range pixels {
		if p < lo {
			lo = p
		}
		if p > hi {
			hi = p
		}
	}
	return lo, hi
}

func grayLevel(v, lo, hi float64) uint8 {
	if hi <= lo {
		return 0
	}
	return uint8(math.Round((v - lo) / (hi - lo) * 255))
}

func blend(gray uint8, tint color.RGBA, alpha float64) color.RGBA {
	mix := func(base uint8, over uint8) uint8 {
		return uint8(math.Round((1-alpha)*float64(base) + alpha*float64(over)))
	}
	return color.RGBA{
		R: mix(gray, tint.R),
		G: mix(gray, tint.G),
		B: mix(gray, tint.B),
		A: 255,
	}
}
