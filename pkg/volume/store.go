package volume

import (
	"errors"
	"sync"

	"mprviewer/pkg/geom"
)

// ErrNoVolume is returned by Store queries made before any dataset has been
// loaded.
var ErrNoVolume = errors.New("volume: no volume loaded")

// Store holds the active Volume and swaps it atomically on load. Volumes are
// immutable, so readers that took a snapshot before a Load keep sampling the
// old dataset consistently until they finish; they never observe a
// half-replaced grid.
//
// The store is read-many/write-rarely: concurrent resample workers all read
// through Snapshot while Load only happens on user-driven dataset changes.
type Store struct {
	mu  sync.RWMutex
	vol *Volume
	gen uint64
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{}
}

// Load replaces the active volume. The generation counter lets callers
// detect that results computed against an older snapshot are stale.
func (s *Store) Load(v *Volume) {
	s.mu.Lock()
	s.vol = v
	s.gen++
	s.mu.Unlock()
}

// Snapshot returns the current immutable volume, or ErrNoVolume before the
// first load.
func (s *Store) Snapshot() (*Volume, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.vol == nil {
		return nil, ErrNoVolume
	}
	return s.vol, nil
}

// Generation returns the load counter, incremented on every Load.
func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen
}

// Loaded reports whether a volume is present.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.vol != nil
}

// Bounds returns the active volume's physical bounding box.
func (s *Store) Bounds() (geom.Box, error) {
	v, err := s.Snapshot()
	if err != nil {
		return geom.Box{}, err
	}
	return v.Bounds(), nil
}

// Sample interpolates the active volume at a world point. Out-of-bounds
// points return the volume background value; the only error condition is a
// missing volume.
func (s *Store) Sample(p geom.Vec3) (float64, error) {
	v, err := s.Snapshot()
	if err != nil {
		return 0, err
	}
	return v.Sample(p), nil
}
