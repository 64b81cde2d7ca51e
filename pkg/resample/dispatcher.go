package resample

import (
	"sync"

	"mprviewer/pkg/crosshair"
	"mprviewer/pkg/geom"
)

// Request asks for one view's slice to be recomputed against a specific
// plane version.
type Request struct {
	View          crosshair.View
	Plane         geom.Plane
	Width, Height int
	PixelSpacing  float64
	Version       uint64
}

// Result delivers a finished slice, or the error that prevented it.
type Result struct {
	View  crosshair.View
	Image *SliceImage
	Err   error
}

// Dispatcher runs resample work on a fixed pool of workers so that a slow
// resample (a large oblique output, say) never stalls cursor handling on
// the interactive goroutine.
//
// Every request carries the plane version it was issued for. A request that
// was superseded before a worker picked it up is skipped; a result whose
// version is no longer the newest for its view is dropped on arrival. Each
// view's published results therefore apply strictly in version order
// (last-plane-wins), with no task cancellation machinery.
type Dispatcher struct {
	resampler *Resampler

	tasks   chan Request
	results chan Result
	done    chan struct{}
	wg      sync.WaitGroup

	mu      sync.Mutex
	newest  map[crosshair.View]uint64
	applied map[crosshair.View]uint64
}

// NewDispatcher starts workers goroutines serving resample requests.
func NewDispatcher(r *Resampler, workers int) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	d := &Dispatcher{
		resampler: r,
		tasks:     make(chan Request, workers*8),
		results:   make(chan Result, workers*8),
		done:      make(chan struct{}),
		newest:    make(map[crosshair.View]uint64),
		applied:   make(map[crosshair.View]uint64),
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

// Submit enqueues a request and records it as the newest for its view,
// logically cancelling any outstanding older request for the same view.
func (d *Dispatcher) Submit(req Request) {
	d.mu.Lock()
	if req.Version > d.newest[req.View] {
		d.newest[req.View] = req.Version
	}
	d.mu.Unlock()

	select {
	case <-d.done:
	case d.tasks <- req:
	}
}

// Results returns the channel of finished slices. Superseded results never
// appear on it.
func (d *Dispatcher) Results() <-chan Result {
	return d.results
}

// Close stops the workers and closes the results channel once in-flight
// work has drained.
func (d *Dispatcher) Close() {
	close(d.done)
	close(d.tasks)
	d.wg.Wait()
	close(d.results)
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for req := range d.tasks {
		if d.superseded(req.View, req.Version) {
			continue
		}

		img, err := d.resampler.ResampleVersion(
			req.Plane, req.Width, req.Height, req.PixelSpacing, req.Version)

		// Re-check after the (possibly slow) resample: a newer plane may
		// have arrived while this one was being computed.
		if !d.publishable(req.View, req.Version) {
			continue
		}

		select {
		case <-d.done:
			return
		case d.results <- Result{View: req.View, Image: img, Err: err}:
		}
	}
}

func (d *Dispatcher) superseded(v crosshair.View, version uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return version < d.newest[v]
}

// publishable atomically checks that version is still the newest for the
// view and newer than anything already applied, then marks it applied.
func (d *Dispatcher) publishable(v crosshair.View, version uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if version < d.newest[v] || version <= d.applied[v] {
		return false
	}
	d.applied[v] = version
	return true
}
