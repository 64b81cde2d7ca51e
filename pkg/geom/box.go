package geom

// Box is an axis-aligned box in world space, described by its minimum and
// maximum corners.
type Box struct {
	Min, Max Vec3
}

// Contains reports whether p lies inside the box, boundary included.
func (b Box) Contains(p Vec3) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// Intersect returns the overlap of two boxes. The result is empty when the
// boxes do not overlap.
func (b Box) Intersect(o Box) Box {
	r := Box{
		Min: Vec3{max(b.Min.X, o.Min.X), max(b.Min.Y, o.Min.Y), max(b.Min.Z, o.Min.Z)},
		Max: Vec3{min(b.Max.X, o.Max.X), min(b.Max.Y, o.Max.Y), min(b.Max.Z, o.Max.Z)},
	}
	return r
}

// Empty reports whether the box encloses no volume.
func (b Box) Empty() bool {
	return b.Min.X >= b.Max.X || b.Min.Y >= b.Max.Y || b.Min.Z >= b.Max.Z
}

// Volume returns the enclosed volume, zero for empty boxes.
func (b Box) Volume() float64 {
	if b.Empty() {
		return 0
	}
	d := b.Max.Sub(b.Min)
	return d.X * d.Y * d.Z
}

// Center returns the midpoint of the box.
func (b Box) Center() Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}
