package volume

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// IntensityStats summarizes the intensity distribution of a volume. The
// presentation layer uses the percentile window for display normalization so
// a handful of extreme voxels cannot wash out the whole view.
type IntensityStats struct {
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64

	// WindowLow and WindowHigh are the 1st and 99th intensity percentiles.
	WindowLow  float64
	WindowHigh float64
}

// Stats computes intensity statistics over the full voxel grid. It sorts a
// copy of the data for the percentile window, so it is meant for one-shot
// use per loaded dataset, not per frame.
func (v *Volume) Stats() IntensityStats {
	sorted := make([]float64, len(v.data))
	copy(sorted, v.data)
	sort.Float64s(sorted)

	return IntensityStats{
		Mean:       stat.Mean(v.data, nil),
		StdDev:     stat.StdDev(v.data, nil),
		Min:        v.minVal,
		Max:        v.maxVal,
		WindowLow:  stat.Quantile(0.01, stat.Empirical, sorted, nil),
		WindowHigh: stat.Quantile(0.99, stat.Empirical, sorted, nil),
	}
}
