package overlay

import (
	"gonum.org/v1/gonum/spatial/kdtree"

	"mprviewer/pkg/geom"
	"mprviewer/pkg/volume"
)

// labeledVoxel is one masked voxel in world coordinates, carried through
// the KD-tree so nearest queries return the label alongside the position.
type labeledVoxel struct {
	X, Y, Z float64
	Label   int32
}

// Compare implements the kdtree.Comparable interface.
func (p labeledVoxel) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(labeledVoxel)
	switch d {
	case 0:
		return p.X - q.X
	case 1:
		return p.Y - q.Y
	case 2:
		return p.Z - q.Z
	default:
		panic("illegal dimension")
	}
}

// Dims returns the number of dimensions for the KD-tree.
func (p labeledVoxel) Dims() int { return 3 }

// Distance returns the squared Euclidean distance between two points.
func (p labeledVoxel) Distance(c kdtree.Comparable) float64 {
	q := c.(labeledVoxel)
	dx := p.X - q.X
	dy := p.Y - q.Y
	dz := p.Z - q.Z
	return dx*dx + dy*dy + dz*dz
}

// labeledVoxels satisfies kdtree.Interface.
type labeledVoxels []labeledVoxel

func (p labeledVoxels) Index(i int) kdtree.Comparable         { return p[i] }
func (p labeledVoxels) Len() int                              { return len(p) }
func (p labeledVoxels) Slice(start, end int) kdtree.Interface { return p[start:end] }

func (p labeledVoxels) Pivot(d kdtree.Dim) int {
	return kdtree.Partition(voxelPlane{labeledVoxels: p, Dim: d},
		kdtree.MedianOfRandoms(voxelPlane{labeledVoxels: p, Dim: d}, 100))
}

// voxelPlane implements sort.Interface and kdtree.SortSlicer for
// labeledVoxels along one dimension.
type voxelPlane struct {
	labeledVoxels
	kdtree.Dim
}

func (p voxelPlane) Less(i, j int) bool {
	switch p.Dim {
	case 0:
		return p.labeledVoxels[i].X < p.labeledVoxels[j].X
	case 1:
		return p.labeledVoxels[i].Y < p.labeledVoxels[j].Y
	case 2:
		return p.labeledVoxels[i].Z < p.labeledVoxels[j].Z
	default:
		panic("illegal dimension")
	}
}

func (p voxelPlane) Slice(start, end int) kdtree.SortSlicer {
	return voxelPlane{labeledVoxels: p.labeledVoxels[start:end], Dim: p.Dim}
}

func (p voxelPlane) Swap(i, j int) {
	p.labeledVoxels[i], p.labeledVoxels[j] = p.labeledVoxels[j], p.labeledVoxels[i]
}

// Index is a spatial index over the mask's labeled voxels, supporting
// snap-to-structure cursor navigation: given an arbitrary world point it
// finds the nearest voxel belonging to any segmented structure.
type Index struct {
	tree *kdtree.Tree
}

// NewIndex builds the index for a mask on the volume's grid. Building
// visits every voxel once and the tree holds one node per labeled voxel, so
// it is meant to be built once per mask, not per frame. Returns nil when
// the mask has no labeled voxels.
func NewIndex(vol *volume.Volume, mask *Mask) (*Index, error) {
	if !mask.Matches(vol) {
		return nil, ErrMaskGridMismatch
	}

	nx, ny, nz := mask.Dims()
	var pts labeledVoxels
	for z := 0; z < nz; z++ {
		for y := 0; y < ny; y++ {
			for x := 0; x < nx; x++ {
				label := mask.At(x, y, z)
				if label == 0 {
					continue
				}
				w := vol.VoxelToWorld(float64(x), float64(y), float64(z))
				pts = append(pts, labeledVoxel{X: w.X, Y: w.Y, Z: w.Z, Label: label})
			}
		}
	}
	if len(pts) == 0 {
		return nil, nil
	}
	return &Index{tree: kdtree.New(pts, true)}, nil
}

// Nearest returns the world position and label of the labeled voxel closest
// to p.
func (ix *Index) Nearest(p geom.Vec3) (geom.Vec3, int32, bool) {
	if ix == nil || ix.tree == nil {
		return geom.Vec3{}, 0, false
	}
	got, _ := ix.tree.Nearest(labeledVoxel{X: p.X, Y: p.Y, Z: p.Z})
	if got == nil {
		return geom.Vec3{}, 0, false
	}
	v := got.(labeledVoxel)
	return geom.Vec3{X: v.X, Y: v.Y, Z: v.Z}, v.Label, true
}
