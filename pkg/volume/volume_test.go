package volume

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"mprviewer/pkg/geom"
)

// rampVolume builds a small volume with intensity x + 10y + 100z so every
// voxel has a unique, predictable value.
func rampVolume(t *testing.T, nx, ny, nz int, spacing geom.Vec3) *Volume {
	t.Helper()
	data := make([]float64, nx*ny*nz)
	for z := 0; z < nz; z++ {
		for y := 0; y < ny; y++ {
			for x := 0; x < nx; x++ {
				data[z*ny*nx+y*nx+x] = float64(x) + 10*float64(y) + 100*float64(z)
			}
		}
	}
	v, err := New(data, nx, ny, nz, spacing, nil)
	if err != nil {
		t.Fatalf("Failed to build test volume: %v", err)
	}
	return v
}

func TestNewValidation(t *testing.T) {
	data := make([]float64, 8)

	t.Run("BadSpacing", func(t *testing.T) {
		if _, err := New(data, 2, 2, 2, geom.Vec3{X: 1, Y: 0, Z: 1}, nil); err == nil {
			t.Error("Expected error for zero spacing component")
		}
		if _, err := New(data, 2, 2, 2, geom.Vec3{X: -1, Y: 1, Z: 1}, nil); err == nil {
			t.Error("Expected error for negative spacing component")
		}
	})

	t.Run("BadLength", func(t *testing.T) {
		if _, err := New(data, 3, 2, 2, geom.Vec3{X: 1, Y: 1, Z: 1}, nil); err == nil {
			t.Error("Expected error for mismatched data length")
		}
	})

	t.Run("SingularAffine", func(t *testing.T) {
		singular := mat.NewDense(4, 4, nil)
		if _, err := New(data, 2, 2, 2, geom.Vec3{X: 1, Y: 1, Z: 1}, singular); err == nil {
			t.Error("Expected error for singular orientation matrix")
		}
	})
}

func TestVoxelWorldRoundTrip(t *testing.T) {
	v := rampVolume(t, 8, 8, 4, geom.Vec3{X: 0.5, Y: 0.5, Z: 2})

	for _, idx := range [][3]float64{{0, 0, 0}, {7, 7, 3}, {3.25, 1.5, 2.75}} {
		w := v.VoxelToWorld(idx[0], idx[1], idx[2])
		i, j, k := v.WorldToVoxel(w)
		if math.Abs(i-idx[0]) > 1e-9 || math.Abs(j-idx[1]) > 1e-9 || math.Abs(k-idx[2]) > 1e-9 {
			t.Errorf("Round trip of %v gave (%g, %g, %g)", idx, i, j, k)
		}
	}
}

func TestBounds(t *testing.T) {
	v := rampVolume(t, 11, 21, 6, geom.Vec3{X: 1, Y: 2, Z: 3})
	b := v.Bounds()

	want := geom.Box{Min: geom.Vec3{}, Max: geom.Vec3{X: 10, Y: 40, Z: 15}}
	if b != want {
		t.Errorf("Bounds = %+v, want %+v", b, want)
	}
}

func TestSampleAtVoxelCenters(t *testing.T) {
	v := rampVolume(t, 4, 4, 4, geom.Vec3{X: 1, Y: 1, Z: 1})

	for z := 0; z < 4; z++ {
		for y := 0; y < 4; y++ {
			for x := 0; x < 4; x++ {
				p := v.VoxelToWorld(float64(x), float64(y), float64(z))
				got := v.Sample(p)
				want := v.At(x, y, z)
				if math.Abs(got-want) > 1e-9 {
					t.Fatalf("Sample at voxel (%d,%d,%d) = %g, want %g", x, y, z, got, want)
				}
			}
		}
	}
}

func TestSampleTrilinearMidpoints(t *testing.T) {
	v := rampVolume(t, 4, 4, 4, geom.Vec3{X: 1, Y: 1, Z: 1})

	// The ramp is linear, so interpolation must reproduce it exactly at
	// fractional positions.
	p := v.VoxelToWorld(1.5, 2.25, 0.5)
	want := 1.5 + 10*2.25 + 100*0.5
	if got := v.Sample(p); math.Abs(got-want) > 1e-9 {
		t.Errorf("Sample at fractional voxel = %g, want %g", got, want)
	}
}

func TestSampleOutOfBounds(t *testing.T) {
	v := rampVolume(t, 4, 4, 4, geom.Vec3{X: 1, Y: 1, Z: 1})
	bg := v.Background()

	outside := []geom.Vec3{
		{X: -1, Y: 0, Z: 0},
		{X: 0, Y: -0.1, Z: 0},
		{X: 100, Y: 100, Z: 100},
		{X: 1, Y: 1, Z: 3.001},
	}
	for _, p := range outside {
		if got := v.Sample(p); got != bg {
			t.Errorf("Sample(%+v) = %g, want background %g", p, got, bg)
		}
	}
}

func TestSampleNearestNeverBlends(t *testing.T) {
	v := rampVolume(t, 4, 4, 4, geom.Vec3{X: 1, Y: 1, Z: 1})

	got, ok := v.SampleNearest(geom.Vec3{X: 1.4, Y: 2.6, Z: 0.2})
	if !ok {
		t.Fatal("Expected in-bounds nearest sample")
	}
	if want := v.At(1, 3, 0); got != want {
		t.Errorf("SampleNearest = %g, want %g", got, want)
	}

	if _, ok := v.SampleNearest(geom.Vec3{X: -5, Y: 0, Z: 0}); ok {
		t.Error("Expected out-of-bounds nearest sample to report ok=false")
	}
}

func TestStoreLifecycle(t *testing.T) {
	s := NewStore()

	t.Run("EmptyStore", func(t *testing.T) {
		if _, err := s.Snapshot(); err != ErrNoVolume {
			t.Errorf("Snapshot on empty store = %v, want ErrNoVolume", err)
		}
		if _, err := s.Bounds(); err != ErrNoVolume {
			t.Errorf("Bounds on empty store = %v, want ErrNoVolume", err)
		}
		if _, err := s.Sample(geom.Vec3{}); err != ErrNoVolume {
			t.Errorf("Sample on empty store = %v, want ErrNoVolume", err)
		}
		if s.Loaded() {
			t.Error("Loaded should be false before first load")
		}
	})

	t.Run("LoadAndSwap", func(t *testing.T) {
		v1 := rampVolume(t, 4, 4, 4, geom.Vec3{X: 1, Y: 1, Z: 1})
		s.Load(v1)

		snap, err := s.Snapshot()
		if err != nil {
			t.Fatalf("Snapshot failed: %v", err)
		}
		if snap != v1 {
			t.Error("Snapshot should return the loaded volume")
		}
		gen := s.Generation()

		// A second load swaps the volume, but the earlier snapshot still
		// samples the old data.
		v2 := rampVolume(t, 2, 2, 2, geom.Vec3{X: 1, Y: 1, Z: 1})
		s.Load(v2)

		if s.Generation() != gen+1 {
			t.Errorf("Generation = %d, want %d", s.Generation(), gen+1)
		}
		if got := snap.At(3, 3, 3); got != 333 {
			t.Errorf("Old snapshot sample = %g, want 333", got)
		}
		now, _ := s.Snapshot()
		if now != v2 {
			t.Error("Snapshot after reload should return the new volume")
		}
	})
}

func TestStats(t *testing.T) {
	data := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	v, err := New(data, 2, 2, 2, geom.Vec3{X: 1, Y: 1, Z: 1}, nil)
	if err != nil {
		t.Fatalf("Failed to build volume: %v", err)
	}

	st := v.Stats()
	if math.Abs(st.Mean-4.5) > 1e-9 {
		t.Errorf("Mean = %g, want 4.5", st.Mean)
	}
	if st.Min != 1 || st.Max != 8 {
		t.Errorf("Min/Max = %g/%g, want 1/8", st.Min, st.Max)
	}
	if st.WindowLow < st.Min || st.WindowHigh > st.Max || st.WindowLow > st.WindowHigh {
		t.Errorf("Percentile window (%g, %g) outside intensity range", st.WindowLow, st.WindowHigh)
	}
	if st.StdDev <= 0 {
		t.Errorf("StdDev = %g, want positive", st.StdDev)
	}
}
