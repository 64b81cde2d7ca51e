package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"time"

	"mprviewer/internal/phantom"
	"mprviewer/pkg/config"
	"mprviewer/pkg/crosshair"
	"mprviewer/pkg/geom"
	"mprviewer/pkg/overlay"
	"mprviewer/pkg/preview"
	"mprviewer/pkg/resample"
	"mprviewer/pkg/roi"
	"mprviewer/pkg/session"
	"mprviewer/pkg/volume"
)

func main() {
	// Parse command line arguments
	configPath := flag.String("config", "config.yaml", "Path to YAML configuration file")
	outputDir := flag.String("output", "", "Directory for slice previews (default from config)")
	volDim := flag.Int("dim", 256, "Phantom volume size in X and Y voxels")
	volDepth := flag.Int("depth", 120, "Phantom volume size in Z voxels")
	obliqueDeg := flag.Float64("oblique", 37.0, "Oblique rotation about X in degrees")
	dumpSequence := flag.Bool("sequence", false, "Save a coronal slice sequence through the volume")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	previewDir := cfg.Output.PreviewDir
	if *outputDir != "" {
		previewDir = *outputDir
	}

	fmt.Println("================================")
	fmt.Println("MULTI-PLANAR RECONSTRUCTION VIEWER")
	fmt.Println("Axial / sagittal / coronal / oblique resampling with ROI extraction")
	fmt.Println("================================")

	// Build a synthetic study: a bright ball in a 256x256x120 grid with
	// anisotropic slice spacing, the usual shape of a clinical series.
	spacing := geom.Vec3{X: 1.0, Y: 1.0, Z: 1.5}
	fmt.Printf("Generating %dx%dx%d phantom volume (spacing %.1f x %.1f x %.1f mm)...\n",
		*volDim, *volDim, *volDepth, spacing.X, spacing.Y, spacing.Z)
	vol := phantom.Sphere(*volDim, *volDim, *volDepth, spacing, float64(*volDim)/5, 1000)

	s := session.New(cfg, session.WithMaskProvider(phantomMasks{}))
	defer s.Close()

	startTime := time.Now()
	if err := s.Load(vol); err != nil {
		log.Fatalf("Failed to load volume: %v", err)
	}

	writer := preview.NewWriter()
	writer.WindowFrom(vol.Stats())

	// The load invalidated all four views; collect and save them.
	fmt.Println("Resampling initial views...")
	saveResults(s, writer, previewDir, 0, 4)

	// Step the cursor off-center: only views whose slice content changed
	// are recomputed.
	cur := s.Cursor()
	stale, err := s.SetCursor(geom.Vec3{X: cur.X, Y: cur.Y, Z: cur.Z + 10*spacing.Z})
	if err != nil {
		log.Fatalf("Failed to move cursor: %v", err)
	}
	fmt.Printf("Cursor moved to %+v, %d view(s) stale\n", s.Cursor(), len(stale))
	saveResults(s, writer, previewDir, 1, len(stale))

	// Rotate the oblique plane about the X axis.
	angle := *obliqueDeg * math.Pi / 180
	if err := s.RotateOblique(geom.AxisX, angle); err != nil {
		log.Fatalf("Failed to rotate oblique plane: %v", err)
	}
	fmt.Printf("Oblique plane rotated %.1f degrees about X\n", *obliqueDeg)
	saveResults(s, writer, previewDir, 2, 1)

	// Define and extract a centered region of interest.
	region := roi.Region{
		Min: [3]int{*volDim / 4, *volDim / 4, *volDepth / 4},
		Max: [3]int{3 * *volDim / 4, 3 * *volDim / 4, 3 * *volDepth / 4},
	}
	clipped, err := s.DefineROI(region)
	if err != nil {
		log.Fatalf("Failed to define region of interest: %v", err)
	}
	sub, err := s.ExtractROI()
	if err != nil {
		log.Fatalf("Failed to extract region of interest: %v", err)
	}
	nx, ny, nz := sub.Dims()
	fmt.Printf("Extracted %dx%dx%d sub-volume from region %v-%v\n",
		nx, ny, nz, clipped.Min, clipped.Max)

	// Slice the extracted sub-volume through its own center to show the
	// crop kept its world placement.
	subStore := volume.NewStore()
	subStore.Load(sub)
	subResampler := resample.NewResampler(subStore)
	center := sub.Bounds().Center()
	slice, err := subResampler.Resample(
		resample.Centered(geom.AxialPlane(center), cfg.Resampling.OutputWidth,
			cfg.Resampling.OutputHeight, cfg.Resampling.PixelSpacing),
		cfg.Resampling.OutputWidth, cfg.Resampling.OutputHeight, cfg.Resampling.PixelSpacing)
	if err != nil {
		log.Fatalf("Failed to resample extracted volume: %v", err)
	}
	if err := writer.SaveSlice(slice, filepath.Join(previewDir, "roi_axial.jpg")); err != nil {
		log.Fatalf("Failed to save ROI preview: %v", err)
	}

	if *dumpSequence {
		fmt.Println("Saving coronal slice sequence...")
		bounds, err := s.Store().Bounds()
		if err != nil {
			log.Fatalf("Failed to read volume bounds: %v", err)
		}
		start := bounds.Center()
		start.Y = bounds.Min.Y
		req := resample.Request{
			View: crosshair.ViewCoronal,
			Plane: resample.Centered(geom.CoronalPlane(start), cfg.Resampling.OutputWidth,
				cfg.Resampling.OutputHeight, cfg.Resampling.PixelSpacing),
			Width:        cfg.Resampling.OutputWidth,
			Height:       cfg.Resampling.OutputHeight,
			PixelSpacing: cfg.Resampling.PixelSpacing,
		}
		count := int((bounds.Max.Y - bounds.Min.Y) / spacing.Y)
		seqDir := filepath.Join(previewDir, "coronal")
		if err := writer.SaveSequence(resample.NewResampler(s.Store()), req, count, spacing.Y, seqDir); err != nil {
			log.Printf("Warning: failed to save coronal sequence: %v", err)
		}
	}

	fmt.Printf("\nDone in %.2f seconds, previews saved to: %s\n",
		time.Since(startTime).Seconds(), previewDir)
}

// saveResults drains count applied slices from the session and writes each
// one as a composited preview.
func saveResults(s *session.Session, w *preview.Writer, dir string, step, count int) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Fatalf("Failed to create preview directory: %v", err)
	}
	for i := 0; i < count; i++ {
		r, ok := <-s.Results()
		if !ok {
			log.Fatalf("Result channel closed while waiting for view %d of %d", i+1, count)
		}
		if r.Err != nil {
			log.Fatalf("Resample for %v failed: %v", r.View, r.Err)
		}
		img, err := s.Composite(r.Image)
		if err != nil {
			log.Fatalf("Failed to composite %v slice: %v", r.View, err)
		}
		name := filepath.Join(dir, fmt.Sprintf("step%d_%s.jpg", step, r.View))
		if err := w.Save(img, name); err != nil {
			log.Fatalf("Failed to save %v preview: %v", r.View, err)
		}
	}
}

// phantomMasks labels the phantom's bright ball so the overlay path is
// exercised without a real segmentation model.
type phantomMasks struct{}

func (phantomMasks) MaskFor(vol *volume.Volume) (*overlay.Mask, error) {
	nx, ny, nz := vol.Dims()
	labels := phantom.SphereMask(nx, ny, nz, float64(nx)/5, 1)
	return overlay.NewMask(labels, nx, ny, nz, vol.Spacing(), vol.Affine())
}
