// Package preview converts resampled slices into standard images and writes
// them to disk for quick inspection without a display attached.
package preview

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math"
	"os"
	"path/filepath"

	"mprviewer/pkg/crosshair"
	"mprviewer/pkg/resample"
	"mprviewer/pkg/volume"
)

// Writer renders slices to 16-bit grayscale and saves them as JPEG files.
type Writer struct {
	// Quality is the JPEG encoding quality in [1, 100].
	Quality int

	// WindowLow and WindowHigh define the intensity window mapped onto the
	// gray range. With WindowLow == WindowHigh each slice is normalized to
	// its own min/max instead.
	WindowLow  float64
	WindowHigh float64
}

// NewWriter creates a writer with per-slice normalization and default
// quality.
func NewWriter() *Writer {
	return &Writer{Quality: 90}
}

// WindowFrom adopts the percentile window of the volume's intensity
// statistics, so all slices of one volume share a consistent gray scale.
func (w *Writer) WindowFrom(stats volume.IntensityStats) {
	w.WindowLow = stats.WindowLow
	w.WindowHigh = stats.WindowHigh
}

// Image converts a resampled slice to a 16-bit grayscale image.
func (w *Writer) Image(slice *resample.SliceImage) *image.Gray16 {
	lo, hi := w.WindowLow, w.WindowHigh
	if lo == hi {
		lo, hi = sliceRange(slice.Pixels)
	}

	img := image.NewGray16(image.Rect(0, 0, slice.Width, slice.Height))
	for j := 0; j < slice.Height; j++ {
		for i := 0; i < slice.Width; i++ {
			v := slice.Pixels[j*slice.Width+i]
			img.SetGray16(i, j, color.Gray16{Y: grayValue(v, lo, hi)})
		}
	}
	return img
}

// Save writes an image as a JPEG file.
func (w *Writer) Save(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	return jpeg.Encode(file, img, &jpeg.Options{Quality: w.Quality})
}

// SaveSlice converts and writes a single slice in one step.
func (w *Writer) SaveSlice(slice *resample.SliceImage, filename string) error {
	return w.Save(w.Image(slice), filename)
}

// SaveView writes a slice under a conventional name, slice_<view>_<nnn>.jpg,
// inside outputDir. The directory is created if needed.
func (w *Writer) SaveView(slice *resample.SliceImage, view crosshair.View, seq int, outputDir string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}
	filename := filepath.Join(outputDir, fmt.Sprintf("slice_%s_%03d.jpg", view, seq))
	return w.SaveSlice(slice, filename)
}

// SaveSequence resamples and saves count evenly spaced slices, stepping the
// plane along its normal from the given start plane. The resampler reads
// whatever volume its store currently holds.
func (w *Writer) SaveSequence(r *resample.Resampler, plane resample.Request, count int, step float64, outputDir string) error {
	if count < 1 {
		return fmt.Errorf("slice count must be positive, got %d", count)
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	p := plane.Plane
	if err := p.Orthonormalize(); err != nil {
		return err
	}
	normal := p.Normal()

	for seq := 0; seq < count; seq++ {
		slice, err := r.Resample(p, plane.Width, plane.Height, plane.PixelSpacing)
		if err != nil {
			return err
		}
		filename := filepath.Join(outputDir, fmt.Sprintf("slice_%s_%03d.jpg", plane.View, seq))
		if err := w.SaveSlice(slice, filename); err != nil {
			return err
		}
		p.Origin = p.Origin.Add(normal.Scale(step))
	}
	return nil
}

func sliceRange(pixels []float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range pixels {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if lo > hi {
		return 0, 0
	}
	return lo, hi
}

func grayValue(v, lo, hi float64) uint16 {
	if hi <= lo {
		return 0
	}
	t := (v - lo) / (hi - lo)
	return uint16(math.Max(0, math.Min(65535, t*65535)))
}
