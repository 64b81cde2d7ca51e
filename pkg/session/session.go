// Package session ties the viewer components together behind a small set of
// discrete operations. A Session owns the volume store, the crosshair
// controller, the oblique engine, the ROI manager and the resample
// dispatcher, and advances a coarse lifecycle state as the caller drives it.
package session

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"mprviewer/pkg/config"
	"mprviewer/pkg/crosshair"
	"mprviewer/pkg/geom"
	"mprviewer/pkg/oblique"
	"mprviewer/pkg/overlay"
	"mprviewer/pkg/resample"
	"mprviewer/pkg/roi"
	"mprviewer/pkg/volume"
)

// State is the coarse lifecycle of a viewing session.
type State int

const (
	// StateEmpty means no volume has been loaded yet.
	StateEmpty State = iota

	// StateLoaded means a volume is present with the cursor at its center.
	StateLoaded

	// StateInteracting means the user has moved the cursor or a plane.
	StateInteracting

	// StateROIDefined means a valid region of interest is set.
	StateROIDefined
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateLoaded:
		return "loaded"
	case StateInteracting:
		return "interacting"
	case StateROIDefined:
		return "roi-defined"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ErrNoRegion is returned by ExtractROI before a region has been defined.
var ErrNoRegion = errors.New("session: no region of interest defined")

// OrientationHint maps a freshly loaded volume to its anatomical axes.
// Implementations typically inspect header metadata; the default when no
// hint is registered is Z=axial, X=sagittal, Y=coronal.
type OrientationHint interface {
	AxisMapping(vol *volume.Volume) (crosshair.AxisMapping, bool)
}

// MaskProvider produces a segmentation mask for a loaded volume, for example
// by running an external segmentation model or reading a sidecar file.
// Returning a nil mask with a nil error means no segmentation is available.
type MaskProvider interface {
	MaskFor(vol *volume.Volume) (*overlay.Mask, error)
}

// Session wires the viewer components and exposes the discrete transitions
// of an interactive reading session. Methods are safe for concurrent use,
// though a session is normally driven by a single interaction loop.
type Session struct {
	store      *volume.Store
	ctrl       *crosshair.Controller
	oblique    *oblique.Engine
	rois       *roi.Manager
	dispatcher *resample.Dispatcher
	compositor *overlay.Compositor

	orientation OrientationHint
	masks       MaskProvider

	width        int
	height       int
	pixelSpacing float64

	mu    sync.Mutex
	state State
	mask  *overlay.Mask
	index *overlay.Index
}

// Option customizes a Session at construction time.
type Option func(*Session)

// WithOrientationHint registers the axis-mapping collaborator consulted on
// every Load.
func WithOrientationHint(h OrientationHint) Option {
	return func(s *Session) { s.orientation = h }
}

// WithMaskProvider registers the segmentation collaborator consulted on
// every Load.
func WithMaskProvider(p MaskProvider) Option {
	return func(s *Session) { s.masks = p }
}

// New builds a session from the given configuration. The returned session
// owns a running dispatcher; call Close when done with it.
func New(cfg *config.Config, opts ...Option) *Session {
	store := volume.NewStore()
	ctrl := crosshair.NewController(store)
	comp := overlay.NewCompositor(store)
	comp.Alpha = cfg.Overlay.Alpha
	if cfg.Overlay.Mode == "outline" {
		comp.Mode = overlay.BlendOutline
	}

	s := &Session{
		store:        store,
		ctrl:         ctrl,
		oblique:      oblique.NewEngine(ctrl),
		rois:         roi.NewManager(store, cfg.ROI.MinVoxels),
		dispatcher:   resample.NewDispatcher(resample.NewResampler(store), cfg.Resampling.Workers),
		compositor:   comp,
		width:        cfg.Resampling.OutputWidth,
		height:       cfg.Resampling.OutputHeight,
		pixelSpacing: cfg.Resampling.PixelSpacing,
		state:        StateEmpty,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State reports the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Results exposes the dispatcher's output channel. Each applied resample
// arrives here tagged with its view; superseded results never do.
func (s *Session) Results() <-chan resample.Result {
	return s.dispatcher.Results()
}

// Close shuts the dispatcher down and drains its workers.
func (s *Session) Close() {
	s.dispatcher.Close()
}

// Load replaces the active volume and resets the whole session around it:
// the cursor returns to the volume center, all four planes are rebuilt, any
// region of interest is discarded, and the segmentation collaborator is
// consulted for a new mask. All four views are invalidated and resubmitted.
func (s *Session) Load(vol *volume.Volume) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.store.Load(vol)
	s.rois.Clear()
	s.mask = nil
	s.index = nil

	if s.orientation != nil {
		if m, ok := s.orientation.AxisMapping(vol); ok {
			if err := s.ctrl.SetAxisMapping(m); err != nil {
				return fmt.Errorf("applying orientation hint: %w", err)
			}
		}
	}
	if err := s.ctrl.Reset(); err != nil {
		return err
	}

	if s.masks != nil {
		mask, err := s.masks.MaskFor(vol)
		if err != nil {
			return fmt.Errorf("obtaining segmentation mask: %w", err)
		}
		if mask != nil {
			index, err := overlay.NewIndex(vol, mask)
			if err != nil {
				return fmt.Errorf("indexing segmentation mask: %w", err)
			}
			s.mask = mask
			s.index = index
		}
	}

	s.state = StateLoaded
	s.submit(s.ctrl.NotifyViews())
	return nil
}

// SetCursor moves the crosshair to a world point, clamping it to the volume
// bounds, and resubmits every view whose slice content changed. The returned
// views are the invalidated ones.
func (s *Session) SetCursor(p geom.Vec3) ([]crosshair.View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stale, err := s.ctrl.SetCursor(p)
	if err != nil {
		return nil, err
	}
	s.interact()
	s.submit(s.ctrl.NotifyViews())
	return stale, nil
}

// SnapCursor moves the crosshair to the segmented structure nearest to p.
// Without a mask it behaves exactly like SetCursor.
func (s *Session) SnapCursor(p geom.Vec3) ([]crosshair.View, error) {
	s.mu.Lock()
	target := p
	if snapped, _, ok := s.index.Nearest(p); ok {
		target = snapped
	}
	s.mu.Unlock()
	return s.SetCursor(target)
}

// Scroll steps the cursor along a view's normal by delta millimeters.
func (s *Session) Scroll(v crosshair.View, delta float64) ([]crosshair.View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stale, err := s.ctrl.Scroll(v, delta)
	if err != nil {
		return nil, err
	}
	s.interact()
	s.submit(s.ctrl.NotifyViews())
	return stale, nil
}

// RotateOblique rotates the oblique plane about an axis through its origin
// and resubmits the oblique view. A degenerate axis leaves the plane
// untouched.
func (s *Session) RotateOblique(axis geom.Vec3, angle float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.oblique.Rotate(axis, angle); err != nil {
		return err
	}
	s.interact()
	s.submit(s.ctrl.NotifyViews())
	return nil
}

// ScrollOblique translates the oblique plane along its own normal. This
// detaches the plane from the shared cursor until ResetOblique.
func (s *Session) ScrollOblique(delta float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.oblique.TranslateAlongNormal(delta); err != nil {
		return err
	}
	s.interact()
	s.submit(s.ctrl.NotifyViews())
	return nil
}

// ResetOblique re-attaches the oblique plane to the cursor and restores its
// default orientation.
func (s *Session) ResetOblique() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.oblique.Reset()
	s.interact()
	s.submit(s.ctrl.NotifyViews())
}

// DefineROI validates and stores a voxel-space region of interest. The
// region is clipped to the volume before validation; a region that ends up
// empty or below the configured minimum leaves any previous region in place.
func (s *Session) DefineROI(r roi.Region) (roi.Region, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	clipped, err := s.rois.DefineRegion(r)
	if err != nil {
		return roi.Region{}, err
	}
	s.state = StateROIDefined
	return clipped, nil
}

// DefineWorldROI is DefineROI for a world-space box: the box is mapped
// through the volume's affine into the tightest enclosing voxel region.
func (s *Session) DefineWorldROI(box geom.Box) (roi.Region, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	clipped, err := s.rois.DefineWorldRegion(box)
	if err != nil {
		return roi.Region{}, err
	}
	s.state = StateROIDefined
	return clipped, nil
}

// ClearROI discards the current region of interest, if any.
func (s *Session) ClearROI() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rois.Clear()
	if s.state == StateROIDefined {
		s.state = StateInteracting
	}
}

// ExtractROI copies the region of interest into a standalone volume whose
// affine places it at the region's position in world space. The session and
// its active volume are unaffected; extract as many times as needed.
func (s *Session) ExtractROI() (*volume.Volume, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateROIDefined {
		return nil, ErrNoRegion
	}
	return s.rois.Extract()
}

// ROI reports the current region and whether one is defined.
func (s *Session) ROI() (roi.Region, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rois.Region()
}

// Store exposes the session's volume store for read access, for example to
// build ad hoc resamplers or previews against the loaded volume.
func (s *Session) Store() *volume.Store {
	return s.store
}

// Cursor reports the current crosshair position in world coordinates.
func (s *Session) Cursor() geom.Vec3 {
	return s.ctrl.Cursor()
}

// Plane reports the current slicing plane of a view.
func (s *Session) Plane(v crosshair.View) geom.Plane {
	return s.ctrl.Plane(v)
}

// Composite renders a resampled slice with the session's segmentation mask
// blended over it. Without a mask the slice is rendered as plain grayscale.
func (s *Session) Composite(slice *resample.SliceImage) (*image.RGBA, error) {
	s.mu.Lock()
	mask := s.mask
	s.mu.Unlock()
	if mask == nil {
		return s.compositor.Grayscale(slice), nil
	}
	return s.compositor.Composite(slice, mask)
}

// interact records that the user has started manipulating the loaded
// volume. A defined region survives interaction.
func (s *Session) interact() {
	if s.state == StateLoaded {
		s.state = StateInteracting
	}
}

// submit queues a resample for each invalidated view. The render plane is
// the view plane re-centered so the cursor lands mid-image.
func (s *Session) submit(views []crosshair.View) {
	for _, v := range views {
		plane := resample.Centered(s.ctrl.Plane(v), s.width, s.height, s.pixelSpacing)
		s.dispatcher.Submit(resample.Request{
			View:         v,
			Plane:        plane,
			Width:        s.width,
			Height:       s.height,
			PixelSpacing: s.pixelSpacing,
			Version:      s.ctrl.Version(v),
		})
	}
}
