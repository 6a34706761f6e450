// Package intrusion turns fused track positions into intrusion decisions by
// checking them against the armed zones of each camera's floorplan.
package intrusion

import (
	"context"
	"sync"
	"time"

	"github.com/floorwatch/floorwatch/internal/fusion"
	"github.com/floorwatch/floorwatch/internal/geo"
	"github.com/floorwatch/floorwatch/internal/ingest"
	"github.com/floorwatch/floorwatch/internal/monitoring"
	"github.com/floorwatch/floorwatch/internal/timeutil"
	"github.com/floorwatch/floorwatch/internal/zones"
)

// DefaultCooldown is how long a camera is muted after emitting a decision.
const DefaultCooldown = 10 * time.Second

// CameraPlacement resolves a camera serial to its floorplan context.
type CameraPlacement struct {
	CameraID    int64
	Serial      string
	FloorplanID int64
	// RefCorner is the floorplan's bottom-left calibration coordinate.
	RefCorner geo.LatLon
}

// Directory is the read side of the zone/floorplan store the coordinator
// consults per observation.
type Directory interface {
	CameraBySerial(ctx context.Context, serial string) (CameraPlacement, error)
	ZonesForFloorplan(ctx context.Context, floorplanID int64) ([]zones.Zone, error)
	SchedulesForZone(ctx context.Context, zoneID int64) ([]zones.Schedule, error)
}

// PositionSink receives every fused position, for history persistence.
// Implementations must not block on the caller's goroutine.
type PositionSink interface {
	RecordPosition(ctx context.Context, cameraID int64, globalTrackID string, x, y float64, at time.Time)
}

// Coordinator runs the per-observation pipeline: floorplan projection, track
// fusion, zone containment and armed-schedule checks, decision emission.
type Coordinator struct {
	dir      Directory
	fuser    *fusion.Fuser
	notifier Notifier
	sink     PositionSink
	clock    timeutil.Clock
	cooldown time.Duration

	mu            sync.Mutex
	lastTriggered map[int64]time.Time
}

// Option tweaks a Coordinator.
type Option func(*Coordinator)

// WithCooldown overrides the per-camera decision cooldown.
func WithCooldown(d time.Duration) Option {
	return func(c *Coordinator) { c.cooldown = d }
}

// WithPositionSink attaches a sink for fused position history.
func WithPositionSink(s PositionSink) Option {
	return func(c *Coordinator) { c.sink = s }
}

// NewCoordinator wires the pipeline. A nil clock uses the real clock.
func NewCoordinator(dir Directory, fuser *fusion.Fuser, notifier Notifier, clock timeutil.Clock, opts ...Option) *Coordinator {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	c := &Coordinator{
		dir:           dir,
		fuser:         fuser,
		notifier:      notifier,
		clock:         clock,
		cooldown:      DefaultCooldown,
		lastTriggered: make(map[int64]time.Time),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HandleTracks processes one camera message worth of normalized tracks.
func (c *Coordinator) HandleTracks(ctx context.Context, cameraSerial string, tracks []ingest.Track) {
	for _, t := range tracks {
		c.handleTrack(ctx, cameraSerial, t)
	}
}

func (c *Coordinator) handleTrack(ctx context.Context, cameraSerial string, t ingest.Track) {
	if !t.HasGeo() {
		return
	}

	cam, err := c.dir.CameraBySerial(ctx, cameraSerial)
	if err != nil {
		monitoring.Logf("intrusion: unknown camera %s: %v", cameraSerial, err)
		return
	}

	pos, err := geo.PositionOnFloorplan(*t.Latitude, *t.Longitude, cam.RefCorner)
	if err != nil {
		monitoring.Logf("intrusion: camera %s track %s: %v", cameraSerial, t.TrackID, err)
		return
	}

	globalID := c.fuser.Fuse(cameraSerial, t.TrackID, pos.X, pos.Y)

	// Merging may have moved the fused position away from this observation.
	fused, ok := c.fuser.TrackPosition(globalID)
	if !ok {
		return
	}

	if c.sink != nil {
		c.sink.RecordPosition(ctx, cam.CameraID, globalID, fused.X, fused.Y, t.EventTime)
	}

	c.checkZones(ctx, cam, globalID, fused)
}

// checkZones emits a decision for the first armed zone containing the point.
func (c *Coordinator) checkZones(ctx context.Context, cam CameraPlacement, globalID string, pt geo.Point) {
	zs, err := c.dir.ZonesForFloorplan(ctx, cam.FloorplanID)
	if err != nil {
		monitoring.Logf("intrusion: zones for floorplan %d: %v", cam.FloorplanID, err)
		return
	}

	now := c.clock.Now()
	for i := range zs {
		z := &zs[i]
		if !z.ContainsPoint(pt.X, pt.Y) {
			continue
		}
		armed, err := c.zoneArmed(ctx, z.ID, now)
		if err != nil {
			monitoring.Logf("intrusion: schedules for zone %d: %v", z.ID, err)
			continue
		}
		if !armed {
			continue
		}
		c.trigger(ctx, cam, z, globalID, pt, now)
		return
	}
}

func (c *Coordinator) zoneArmed(ctx context.Context, zoneID int64, now time.Time) (bool, error) {
	schedules, err := c.dir.SchedulesForZone(ctx, zoneID)
	if err != nil {
		return false, err
	}
	active, _ := zones.Partition(schedules, now)
	return len(active) > 0, nil
}

// trigger applies the per-camera cooldown and emits the decision. Delivery
// failures are logged and swallowed so a flaky alerting endpoint never stalls
// event processing.
func (c *Coordinator) trigger(ctx context.Context, cam CameraPlacement, z *zones.Zone, globalID string, pt geo.Point, now time.Time) {
	c.mu.Lock()
	last, seen := c.lastTriggered[cam.CameraID]
	if seen && now.Sub(last) < c.cooldown {
		c.mu.Unlock()
		monitoring.Logf("intrusion: suppressed (cooldown) camera=%d zone=%q track=%s", cam.CameraID, z.Name, globalID)
		return
	}
	c.lastTriggered[cam.CameraID] = now
	c.mu.Unlock()

	d := Decision{
		EventID:    NewEventID(),
		CameraID:   cam.CameraID,
		ZoneID:     z.ID,
		ZoneName:   z.Name,
		TrackID:    globalID,
		X:          pt.X,
		Y:          pt.Y,
		DetectedAt: now,
	}
	monitoring.Logf("intrusion: triggered camera=%d zone=%q track=%s pos=(%.2f, %.2f)", cam.CameraID, z.Name, globalID, pt.X, pt.Y)

	if c.notifier == nil {
		return
	}
	if err := c.notifier.Notify(ctx, d); err != nil {
		monitoring.Logf("intrusion: deliver decision %s: %v", d.EventID, err)
	}
}
