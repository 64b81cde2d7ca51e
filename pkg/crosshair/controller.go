// Package crosshair owns the shared 3D cursor and the per-view cutting
// planes, and keeps all synchronized views consistent under interaction.
package crosshair

import (
	"fmt"
	"sync"

	"mprviewer/pkg/geom"
	"mprviewer/pkg/volume"
)

// View identifies one of the four synchronized views.
type View int

const (
	ViewAxial View = iota
	ViewSagittal
	ViewCoronal
	ViewOblique

	NumViews = 4
)

func (v View) String() string {
	switch v {
	case ViewAxial:
		return "axial"
	case ViewSagittal:
		return "sagittal"
	case ViewCoronal:
		return "coronal"
	case ViewOblique:
		return "oblique"
	}
	return fmt.Sprintf("view(%d)", int(v))
}

// AxisMapping assigns a world axis (0=X, 1=Y, 2=Z) to each orthogonal
// view's normal. The orientation-detection collaborator may supply one
// before the first planes are computed; DefaultMapping is the fixed
// radiological convention used otherwise.
type AxisMapping struct {
	Axial, Sagittal, Coronal int
}

// DefaultMapping is Z=axial, X=sagittal, Y=coronal.
var DefaultMapping = AxisMapping{Axial: 2, Sagittal: 0, Coronal: 1}

func (m AxisMapping) valid() bool {
	seen := [3]bool{}
	for _, a := range []int{m.Axial, m.Sagittal, m.Coronal} {
		if a < 0 || a > 2 || seen[a] {
			return false
		}
		seen[a] = true
	}
	return true
}

// planeForAxis builds the plane through origin whose normal is the given
// world axis, with the conventional in-plane basis.
func planeForAxis(axis int, origin geom.Vec3) geom.Plane {
	switch axis {
	case 0:
		return geom.SagittalPlane(origin)
	case 1:
		return geom.CoronalPlane(origin)
	default:
		return geom.AxialPlane(origin)
	}
}

// staleTol is the cursor displacement along a plane normal below which the
// slice content is considered unchanged.
const staleTol = 1e-9

// Controller is the single source of truth for the cursor and the four
// plane definitions. All mutation funnels through its methods; views hold a
// reference to the controller instead of sharing ad-hoc global state.
//
// Every mutating call reports which views' slice images became stale, so
// the caller re-resamples only what changed. Moving the cursor within a
// plane leaves that plane's image untouched (only the crosshair graphic,
// owned by the presentation layer, moves).
type Controller struct {
	mu sync.Mutex

	store   *volume.Store
	mapping AxisMapping

	cursor geom.Vec3
	planes [NumViews]geom.Plane

	obliqueDetached bool

	versions [NumViews]uint64
	pending  [NumViews]bool
}

// NewController creates a controller over the given store with the default
// axis mapping. Reset must be called after the first volume load.
func NewController(store *volume.Store) *Controller {
	return &Controller{store: store, mapping: DefaultMapping}
}

// SetAxisMapping installs an axis-to-view mapping hint and rebuilds the
// orthogonal planes around the current cursor.
func (c *Controller) SetAxisMapping(m AxisMapping) error {
	if !m.valid() {
		return fmt.Errorf("crosshair: axis mapping %+v is not a permutation of X/Y/Z", m)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mapping = m
	if c.store.Loaded() {
		c.rebuildOrthogonal()
		for v := ViewAxial; v <= ViewCoronal; v++ {
			c.invalidate(v)
		}
	}
	return nil
}

// Reset places the cursor at the volume center and rebuilds all four planes
// in their default orientation. It is called once per loaded dataset.
func (c *Controller) Reset() error {
	bounds, err := c.store.Bounds()
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cursor = bounds.Center()
	c.rebuildOrthogonal()
	c.planes[ViewOblique] = planeForAxis(c.mapping.Axial, c.cursor)
	c.obliqueDetached = false
	for v := ViewAxial; v <= ViewOblique; v++ {
		c.invalidate(v)
	}
	return nil
}

func (c *Controller) rebuildOrthogonal() {
	c.planes[ViewAxial] = planeForAxis(c.mapping.Axial, c.cursor)
	c.planes[ViewSagittal] = planeForAxis(c.mapping.Sagittal, c.cursor)
	c.planes[ViewCoronal] = planeForAxis(c.mapping.Coronal, c.cursor)
}

func (c *Controller) invalidate(v View) {
	c.versions[v]++
	c.pending[v] = true
}

// SetCursor clamps the point to the volume bounds, moves the cursor there,
// and re-anchors all plane origins (the oblique plane only while attached).
// It returns the views whose slice image changed: those whose plane moved
// along its own normal.
func (c *Controller) SetCursor(p geom.Vec3) ([]View, error) {
	bounds, err := c.store.Bounds()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	p = p.Clamp(bounds.Min, bounds.Max)

	var stale []View
	for v := ViewAxial; v <= ViewOblique; v++ {
		if v == ViewOblique && c.obliqueDetached {
			continue
		}
		moved := c.planes[v].Distance(p)
		c.planes[v].Origin = p
		if moved > staleTol {
			c.invalidate(v)
			stale = append(stale, v)
		}
	}
	c.cursor = p
	return stale, nil
}

// Scroll moves the cursor along the given view's normal by delta
// millimeters, the slice-scroll gesture for the cursor-driven views.
func (c *Controller) Scroll(v View, delta float64) ([]View, error) {
	c.mu.Lock()
	n := c.planes[v].Normal()
	p := c.cursor.Add(n.Scale(delta))
	c.mu.Unlock()
	return c.SetCursor(p)
}

// Cursor returns the current cursor position in world space.
func (c *Controller) Cursor() geom.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cursor
}

// Plane returns the current definition of a view's cutting plane.
func (c *Controller) Plane(v View) geom.Plane {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.planes[v]
}

// Version returns the monotonically increasing plane version of a view.
// Resample results are tagged with the version they were computed for so
// stale results can be dropped on arrival.
func (c *Controller) Version(v View) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.versions[v]
}

// SetObliquePlane replaces the oblique plane definition. The oblique engine
// funnels its edits through here so version bookkeeping stays in one place.
func (c *Controller) SetObliquePlane(p geom.Plane) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.planes[ViewOblique] = p
	c.invalidate(ViewOblique)
}

// ResetOblique re-attaches the oblique plane to the cursor and restores the
// default orientation (the axial plane of the active axis mapping).
func (c *Controller) ResetOblique() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.obliqueDetached = false
	c.planes[ViewOblique] = planeForAxis(c.mapping.Axial, c.cursor)
	c.invalidate(ViewOblique)
}

// DetachOblique stops (or resumes) the oblique plane origin following the
// cursor.
func (c *Controller) DetachOblique(detached bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.obliqueDetached = detached
}

// ObliqueDetached reports whether the oblique plane is decoupled from the
// cursor.
func (c *Controller) ObliqueDetached() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.obliqueDetached
}

// NotifyViews returns the views invalidated since the previous call and
// clears the pending set. Callers that apply updates per-mutation can use
// the return values of SetCursor/Scroll instead.
func (c *Controller) NotifyViews() []View {
	c.mu.Lock()
	defer c.mu.Unlock()

	var stale []View
	for v := ViewAxial; v <= ViewOblique; v++ {
		if c.pending[v] {
			stale = append(stale, v)
			c.pending[v] = false
		}
	}
	return stale
}
