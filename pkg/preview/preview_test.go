package preview

import (
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"mprviewer/internal/phantom"
	"mprviewer/pkg/crosshair"
	"mprviewer/pkg/geom"
	"mprviewer/pkg/resample"
	"mprviewer/pkg/volume"
)

func rampSlice(t *testing.T) (*volume.Store, *resample.SliceImage) {
	t.Helper()
	vol := phantom.Linear(16, 16, 16, geom.Vec3{X: 1, Y: 1, Z: 1}, 1, 0, 0)
	store := volume.NewStore()
	store.Load(vol)

	r := resample.NewResampler(store)
	slice, err := r.Resample(geom.AxialPlane(geom.Vec3{Z: 8}), 16, 16, 1)
	if err != nil {
		t.Fatalf("Resample failed: %v", err)
	}
	return store, slice
}

func TestImageNormalization(t *testing.T) {
	_, slice := rampSlice(t)
	w := NewWriter()

	img := w.Image(slice)
	if img.Gray16At(0, 0).Y != 0 {
		t.Errorf("Darkest pixel = %d, want 0", img.Gray16At(0, 0).Y)
	}
	if img.Gray16At(15, 0).Y != 65535 {
		t.Errorf("Brightest pixel = %d, want 65535", img.Gray16At(15, 0).Y)
	}
	// The ramp is along X only, so rows are identical.
	for j := 1; j < 16; j++ {
		if img.Gray16At(5, j) != img.Gray16At(5, 0) {
			t.Fatalf("Row %d differs from row 0 on an X-only ramp", j)
		}
	}
}

func TestImageFixedWindow(t *testing.T) {
	_, slice := rampSlice(t)
	w := NewWriter()
	w.WindowLow = 0
	w.WindowHigh = 30 // ramp tops out at 15, so nothing saturates

	img := w.Image(slice)
	if img.Gray16At(15, 0).Y >= 65535 {
		t.Errorf("Pixel at ramp top = %d, want below saturation under a wide window", img.Gray16At(15, 0).Y)
	}
	if img.Gray16At(0, 0).Y != 0 {
		t.Errorf("Pixel at ramp bottom = %d, want 0", img.Gray16At(0, 0).Y)
	}
}

func TestWindowFromStats(t *testing.T) {
	store, _ := rampSlice(t)
	vol, err := store.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	stats := vol.Stats()

	w := NewWriter()
	w.WindowFrom(stats)
	if w.WindowLow >= w.WindowHigh {
		t.Errorf("Window [%g, %g] from stats is not increasing", w.WindowLow, w.WindowHigh)
	}
}

func TestSaveSlice(t *testing.T) {
	_, slice := rampSlice(t)
	w := NewWriter()
	path := filepath.Join(t.TempDir(), "slice.jpg")

	if err := w.SaveSlice(slice, path); err != nil {
		t.Fatalf("SaveSlice failed: %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Saved file missing: %v", err)
	}
	defer f.Close()
	img, err := jpeg.Decode(f)
	if err != nil {
		t.Fatalf("Saved file is not a valid JPEG: %v", err)
	}
	if img.Bounds().Dx() != 16 || img.Bounds().Dy() != 16 {
		t.Errorf("Decoded size = %v, want 16x16", img.Bounds())
	}
}

func TestSaveView(t *testing.T) {
	_, slice := rampSlice(t)
	w := NewWriter()
	dir := filepath.Join(t.TempDir(), "previews")

	if err := w.SaveView(slice, crosshair.ViewAxial, 7, dir); err != nil {
		t.Fatalf("SaveView failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "slice_axial_007.jpg")); err != nil {
		t.Errorf("Expected slice_axial_007.jpg: %v", err)
	}
}

func TestSaveSequence(t *testing.T) {
	store, _ := rampSlice(t)
	r := resample.NewResampler(store)
	w := NewWriter()
	dir := t.TempDir()

	req := resample.Request{
		View:         crosshair.ViewCoronal,
		Plane:        geom.CoronalPlane(geom.Vec3{Y: 2}),
		Width:        16,
		Height:       16,
		PixelSpacing: 1,
	}
	if err := w.SaveSequence(r, req, 5, 1.0, dir); err != nil {
		t.Fatalf("SaveSequence failed: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 5 {
		t.Fatalf("Wrote %d files, want 5", len(entries))
	}
	if entries[0].Name() != "slice_coronal_000.jpg" {
		t.Errorf("First file = %q, want slice_coronal_000.jpg", entries[0].Name())
	}

	if err := w.SaveSequence(r, req, 0, 1.0, dir); err == nil {
		t.Error("Expected error for a non-positive slice count")
	}
}
