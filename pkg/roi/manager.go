// Package roi defines, validates, and materializes region-of-interest
// sub-volume crops from the loaded volume.
package roi

import (
	"errors"
	"math"
	"sync"

	"mprviewer/pkg/geom"
	"mprviewer/pkg/volume"
)

// ErrInvalidRegion flags a region whose intersection with the volume grid is
// empty or smaller than the minimum voxel count.
var ErrInvalidRegion = errors.New("roi: invalid region")

// Region is a box of voxel indices, half-open on the upper side:
// [Min[d], Max[d]) along each dimension. Regions live in voxel space like
// the interactive box the user drags; world-space boxes are converted
// through the volume affine on entry.
type Region struct {
	Min, Max [3]int
}

// Dims returns the region extent in voxels per dimension.
func (r Region) Dims() (int, int, int) {
	return r.Max[0] - r.Min[0], r.Max[1] - r.Min[1], r.Max[2] - r.Min[2]
}

// VoxelCount returns the number of voxels the region encloses.
func (r Region) VoxelCount() int {
	dx, dy, dz := r.Dims()
	if dx <= 0 || dy <= 0 || dz <= 0 {
		return 0
	}
	return dx * dy * dz
}

// clip returns the intersection of the region with the volume grid.
func (r Region) clip(nx, ny, nz int) Region {
	dims := [3]int{nx, ny, nz}
	out := r
	for d := 0; d < 3; d++ {
		if out.Min[d] < 0 {
			out.Min[d] = 0
		}
		if out.Max[d] > dims[d] {
			out.Max[d] = dims[d]
		}
	}
	return out
}

// Manager validates ROI boxes against the loaded volume and materializes
// crops. It keeps at most one validated region at a time; a failed
// definition leaves the previous region untouched.
type Manager struct {
	store     *volume.Store
	minVoxels int

	mu      sync.Mutex
	region  Region
	defined bool
}

// NewManager creates a manager over store. Regions enclosing fewer than
// minVoxels voxels after clipping are rejected.
func NewManager(store *volume.Store, minVoxels int) *Manager {
	if minVoxels < 1 {
		minVoxels = 1
	}
	return &Manager{store: store, minVoxels: minVoxels}
}

// DefineRegion clips the box to the volume grid and validates it. The
// clipped region becomes the active region; on ErrInvalidRegion no state
// changes.
func (m *Manager) DefineRegion(r Region) (Region, error) {
	vol, err := m.store.Snapshot()
	if err != nil {
		return Region{}, err
	}
	nx, ny, nz := vol.Dims()

	clipped := r.clip(nx, ny, nz)
	if clipped.VoxelCount() < m.minVoxels {
		return Region{}, ErrInvalidRegion
	}

	m.mu.Lock()
	m.region = clipped
	m.defined = true
	m.mu.Unlock()
	return clipped, nil
}

// DefineWorldRegion converts a world-space box to voxel indices through the
// volume's inverse affine (floor on the lower corner, ceil on the upper) and
// defines it.
func (m *Manager) DefineWorldRegion(box geom.Box) (Region, error) {
	vol, err := m.store.Snapshot()
	if err != nil {
		return Region{}, err
	}

	// The affine may rotate, so take the voxel-space AABB over all eight
	// world corners.
	lo := [3]float64{math.Inf(1), math.Inf(1), math.Inf(1)}
	hi := [3]float64{math.Inf(-1), math.Inf(-1), math.Inf(-1)}
	for _, x := range []float64{box.Min.X, box.Max.X} {
		for _, y := range []float64{box.Min.Y, box.Max.Y} {
			for _, z := range []float64{box.Min.Z, box.Max.Z} {
				i, j, k := vol.WorldToVoxel(geom.Vec3{X: x, Y: y, Z: z})
				for d, c := range [3]float64{i, j, k} {
					lo[d] = math.Min(lo[d], c)
					hi[d] = math.Max(hi[d], c)
				}
			}
		}
	}

	r := Region{}
	for d := 0; d < 3; d++ {
		r.Min[d] = int(math.Floor(lo[d]))
		r.Max[d] = int(math.Ceil(hi[d]))
	}
	return m.DefineRegion(r)
}

// Region returns the active region, if one has been defined.
func (m *Manager) Region() (Region, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.region, m.defined
}

// Clear discards the active region.
func (m *Manager) Clear() {
	m.mu.Lock()
	m.region = Region{}
	m.defined = false
	m.mu.Unlock()
}

// Extract materializes the active region as a new Volume.
func (m *Manager) Extract() (*volume.Volume, error) {
	m.mu.Lock()
	r, ok := m.region, m.defined
	m.mu.Unlock()
	if !ok {
		return nil, ErrInvalidRegion
	}
	return m.ExtractRegion(r)
}

// ExtractRegion copies the voxels inside the region into a new Volume with
// the source spacing and an orientation matrix translated to the region
// origin, so world coordinates of the copied voxels are preserved exactly.
// The extraction reads one immutable snapshot and takes no lock that could
// block concurrent view resampling.
func (m *Manager) ExtractRegion(r Region) (*volume.Volume, error) {
	vol, err := m.store.Snapshot()
	if err != nil {
		return nil, err
	}
	nx, ny, nz := vol.Dims()
	r = r.clip(nx, ny, nz)
	if r.VoxelCount() < m.minVoxels {
		return nil, ErrInvalidRegion
	}

	dx, dy, dz := r.Dims()
	data := make([]float64, dx*dy*dz)
	for z := 0; z < dz; z++ {
		for y := 0; y < dy; y++ {
			srcRow := (r.Min[2]+z)*ny*nx + (r.Min[1]+y)*nx + r.Min[0]
			dstRow := z*dy*dx + y*dx
			copy(data[dstRow:dstRow+dx], vol.Data()[srcRow:srcRow+dx])
		}
	}

	// Same rotation/scaling, translation moved to the region's first voxel.
	affine := vol.Affine()
	origin := vol.VoxelToWorld(float64(r.Min[0]), float64(r.Min[1]), float64(r.Min[2]))
	affine.Set(0, 3, origin.X)
	affine.Set(1, 3, origin.Y)
	affine.Set(2, 3, origin.Z)

	return volume.New(data, dx, dy, dz, vol.Spacing(), affine)
}
