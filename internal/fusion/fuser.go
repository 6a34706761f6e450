// Package fusion reconciles per-camera detections of the same physical
// person into single global tracks.
package fusion

import (
	"fmt"
	"sync"
	"time"

	"github.com/floorwatch/floorwatch/internal/geo"
	"github.com/floorwatch/floorwatch/internal/timeutil"
)

// Config holds the fusion thresholds.
type Config struct {
	// FusionDistance is the spatial matching radius in meters. A detection
	// strictly closer than this to an existing track merges into it.
	FusionDistance float64

	// TrackTimeout evicts tracks not updated within this window.
	TrackTimeout time.Duration
}

// DefaultConfig returns the production fusion thresholds.
func DefaultConfig() Config {
	return Config{
		FusionDistance: 0.5,
		TrackTimeout:   3 * time.Second,
	}
}

// CameraTrackKey identifies one camera's locally-scoped track. Many keys may
// map onto the same global track.
type CameraTrackKey struct {
	CameraID     string
	LocalTrackID string
}

// GlobalTrack is a fused cross-camera identity with its current floorplan
// position.
type GlobalTrack struct {
	ID       string    `json:"id"`
	X        float64   `json:"x_m"`
	Y        float64   `json:"y_m"`
	LastSeen time.Time `json:"last_seen"`
}

// Fuser owns all fusion state. Each instance is independent so engines in
// different tests never interfere. All methods are safe for concurrent use.
type Fuser struct {
	mu    sync.Mutex
	cfg   Config
	clock timeutil.Clock

	tracks map[string]*GlobalTrack
	// order preserves track insertion order so the first-match spatial scan
	// is deterministic across runs.
	order          []string
	cameraToGlobal map[CameraTrackKey]string
	nextID         int64
}

// NewFuser creates a fusion engine. A nil clock falls back to the real clock.
func NewFuser(cfg Config, clock timeutil.Clock) *Fuser {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Fuser{
		cfg:            cfg,
		clock:          clock,
		tracks:         make(map[string]*GlobalTrack),
		cameraToGlobal: make(map[CameraTrackKey]string),
		nextID:         1,
	}
}

// Fuse assigns the observation to a global track and returns its id.
//
// Stale tracks are evicted first. A known camera track key overwrites its
// global track's position; an unknown key either merges into the first live
// track within FusionDistance (position set to the mean of old and new) or
// allocates a fresh track.
func (f *Fuser) Fuse(cameraID, localTrackID string, x, y float64) string {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.clock.Now()
	f.evictStale(now)

	key := CameraTrackKey{CameraID: cameraID, LocalTrackID: localTrackID}

	if gid, ok := f.cameraToGlobal[key]; ok {
		if track, live := f.tracks[gid]; live {
			track.X = x
			track.Y = y
			track.LastSeen = now
			return gid
		}
	}

	if gid := f.findNearby(x, y); gid != "" {
		track := f.tracks[gid]
		track.X = (track.X + x) / 2
		track.Y = (track.Y + y) / 2
		track.LastSeen = now
		f.cameraToGlobal[key] = gid
		return gid
	}

	gid := fmt.Sprintf("global_%d", f.nextID)
	f.nextID++
	f.tracks[gid] = &GlobalTrack{ID: gid, X: x, Y: y, LastSeen: now}
	f.order = append(f.order, gid)
	f.cameraToGlobal[key] = gid
	return gid
}

// evictStale removes tracks past TrackTimeout along with their camera
// mappings. Runs inline under the lock; an idle engine keeps stale state
// until the next Fuse call, which is harmless because state is only
// consulted on new events.
func (f *Fuser) evictStale(now time.Time) {
	var live []string
	evicted := make(map[string]bool)
	for _, gid := range f.order {
		track := f.tracks[gid]
		if now.Sub(track.LastSeen) > f.cfg.TrackTimeout {
			delete(f.tracks, gid)
			evicted[gid] = true
			continue
		}
		live = append(live, gid)
	}
	if len(evicted) == 0 {
		return
	}
	f.order = live
	for key, gid := range f.cameraToGlobal {
		if evicted[gid] {
			delete(f.cameraToGlobal, key)
		}
	}
}

// findNearby returns the first live track strictly within FusionDistance of
// (x, y), scanning in insertion order. No nearest-match tie-break: the first
// hit wins.
func (f *Fuser) findNearby(x, y float64) string {
	p := geo.Point{X: x, Y: y}
	for _, gid := range f.order {
		track := f.tracks[gid]
		if geo.EuclideanMeters(geo.Point{X: track.X, Y: track.Y}, p) < f.cfg.FusionDistance {
			return gid
		}
	}
	return ""
}

// TrackPosition returns the current position of a global track.
func (f *Fuser) TrackPosition(globalID string) (geo.Point, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	track, ok := f.tracks[globalID]
	if !ok {
		return geo.Point{}, false
	}
	return geo.Point{X: track.X, Y: track.Y}, true
}

// ActiveTracks returns a snapshot of all live tracks in insertion order.
func (f *Fuser) ActiveTracks() []GlobalTrack {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]GlobalTrack, 0, len(f.order))
	for _, gid := range f.order {
		out = append(out, *f.tracks[gid])
	}
	return out
}

// TrackCount returns the number of live tracks.
func (f *Fuser) TrackCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tracks)
}

// Reset clears all state and restarts id allocation from 1. Intended for
// test isolation only.
func (f *Fuser) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tracks = make(map[string]*GlobalTrack)
	f.order = nil
	f.cameraToGlobal = make(map[CameraTrackKey]string)
	f.nextID = 1
}
