// Package oblique manipulates the freely orientable fourth cutting plane
// from user gestures: rotation about arbitrary axes and scrolling along the
// plane normal, independent of the cursor-driven orthogonal triad.
package oblique

import (
	"mprviewer/pkg/crosshair"
	"mprviewer/pkg/geom"
)

// Engine edits the oblique plane held by the crosshair controller. All
// edits re-orthonormalize the basis before they are published, so the
// orthonormal-unit-vector invariant holds after every call rather than
// being restored periodically.
type Engine struct {
	ctrl *crosshair.Controller
}

// NewEngine creates an engine operating on the controller's oblique plane.
func NewEngine(ctrl *crosshair.Controller) *Engine {
	return &Engine{ctrl: ctrl}
}

// Plane returns the current oblique plane definition.
func (e *Engine) Plane() geom.Plane {
	return e.ctrl.Plane(crosshair.ViewOblique)
}

// Rotate applies an incremental rotation of the oblique basis about the
// given axis through the plane origin. Gram-Schmidt renormalization runs on
// every call so repeated small gestures cannot accumulate drift. A
// degenerate axis surfaces geom.ErrDegeneratePlane and leaves the plane
// unchanged.
func (e *Engine) Rotate(axis geom.Vec3, angle float64) error {
	p := e.ctrl.Plane(crosshair.ViewOblique)
	if err := p.Rotate(axis, angle); err != nil {
		return err
	}
	e.ctrl.SetObliquePlane(p)
	return nil
}

// TranslateAlongNormal moves the plane origin by delta millimeters along
// the current normal. This is how scrolling through oblique slices works;
// it detaches the oblique plane from the cursor, which keeps driving only
// the orthogonal views.
func (e *Engine) TranslateAlongNormal(delta float64) error {
	p := e.ctrl.Plane(crosshair.ViewOblique)
	if err := p.Orthonormalize(); err != nil {
		return err
	}
	p.Origin = p.Origin.Add(p.Normal().Scale(delta))
	e.ctrl.DetachOblique(true)
	e.ctrl.SetObliquePlane(p)
	return nil
}

// Reset re-attaches the oblique plane to the cursor and restores the
// default orientation.
func (e *Engine) Reset() {
	e.ctrl.ResetOblique()
}
