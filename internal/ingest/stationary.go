package ingest

import (
	"sync"
	"time"

	"github.com/floorwatch/floorwatch/internal/geo"
)

// Motion filter defaults, overridable through FilterConfig.
const (
	DefaultMinSpeedMps  = 0.3
	DefaultMinDistanceM = 0.4
)

// FilterConfig tunes the stationary track filter.
type FilterConfig struct {
	// MinSpeedMps is the reported speed at or above which a track always
	// counts as moving.
	MinSpeedMps float64
	// MinDistanceM is the displacement since the previous observation below
	// which a track counts as stationary.
	MinDistanceM float64
}

type motionSample struct {
	lat, lon   *float64
	bboxX      float64
	bboxY      float64
	hasBBox    bool
	observedAt time.Time
}

// MotionFilter suppresses repeated observations of tracks that are not
// moving. It keeps the last observation per track id and compares
// displacement against MinDistanceM, by geographic distance when both
// samples carry coordinates and by bounding box center otherwise.
type MotionFilter struct {
	mu    sync.Mutex
	cfg   FilterConfig
	cache map[string]motionSample
}

// NewMotionFilter returns a filter with zero config fields replaced by the
// defaults.
func NewMotionFilter(cfg FilterConfig) *MotionFilter {
	if cfg.MinSpeedMps == 0 {
		cfg.MinSpeedMps = DefaultMinSpeedMps
	}
	if cfg.MinDistanceM == 0 {
		cfg.MinDistanceM = DefaultMinDistanceM
	}
	return &MotionFilter{
		cfg:   cfg,
		cache: make(map[string]motionSample),
	}
}

// Stationary reports whether t should be suppressed. The observation is
// always recorded, so the next call compares against it. The first
// observation of a track is never stationary.
func (f *MotionFilter) Stationary(t Track) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	sample := motionSample{
		lat:        t.Latitude,
		lon:        t.Longitude,
		observedAt: t.EventTime,
	}
	if x, y, ok := t.BBox.Center(); ok {
		sample.bboxX, sample.bboxY, sample.hasBBox = x, y, true
	}

	if t.Speed != nil && *t.Speed >= f.cfg.MinSpeedMps {
		f.cache[t.TrackID] = sample
		return false
	}

	previous, seen := f.cache[t.TrackID]
	f.cache[t.TrackID] = sample
	if !seen {
		return false
	}

	moved := 0.0
	switch {
	case sample.lat != nil && sample.lon != nil && previous.lat != nil && previous.lon != nil:
		moved = geo.HaversineMeters(
			geo.LatLon{Lat: *sample.lat, Lon: *sample.lon},
			geo.LatLon{Lat: *previous.lat, Lon: *previous.lon},
		)
	case sample.hasBBox && previous.hasBBox:
		moved = geo.EuclideanMeters(
			geo.Point{X: sample.bboxX, Y: sample.bboxY},
			geo.Point{X: previous.bboxX, Y: previous.bboxY},
		)
	}
	return moved < f.cfg.MinDistanceM
}

// forget drops the cached observation for a track id.
func (f *MotionFilter) forget(trackID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.cache, trackID)
}

// Reset clears all cached observations.
func (f *MotionFilter) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cache = make(map[string]motionSample)
}
