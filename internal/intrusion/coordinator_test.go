package intrusion

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/floorwatch/floorwatch/internal/fusion"
	"github.com/floorwatch/floorwatch/internal/geo"
	"github.com/floorwatch/floorwatch/internal/ingest"
	"github.com/floorwatch/floorwatch/internal/timeutil"
	"github.com/floorwatch/floorwatch/internal/zones"
)

var refCorner = geo.LatLon{Lat: 58.39590610056573, Lon: 15.577997451724473}

type fakeDirectory struct {
	cams      map[string]CameraPlacement
	zones     []zones.Zone
	schedules map[int64][]zones.Schedule
}

func (d *fakeDirectory) CameraBySerial(_ context.Context, serial string) (CameraPlacement, error) {
	cam, ok := d.cams[serial]
	if !ok {
		return CameraPlacement{}, fmt.Errorf("no camera %q", serial)
	}
	return cam, nil
}

func (d *fakeDirectory) ZonesForFloorplan(_ context.Context, floorplanID int64) ([]zones.Zone, error) {
	var out []zones.Zone
	for _, z := range d.zones {
		if z.FloorplanID == floorplanID {
			out = append(out, z)
		}
	}
	return out, nil
}

func (d *fakeDirectory) SchedulesForZone(_ context.Context, zoneID int64) ([]zones.Schedule, error) {
	return d.schedules[zoneID], nil
}

type captureNotifier struct {
	decisions []Decision
	err       error
}

func (n *captureNotifier) Notify(_ context.Context, d Decision) error {
	if n.err != nil {
		return n.err
	}
	n.decisions = append(n.decisions, d)
	return nil
}

// trackAt builds a normalized track whose floorplan projection lands at
// (x, y) meters from the reference corner.
func trackAt(id string, x, y float64, at time.Time) ingest.Track {
	lat := refCorner.Lat + geo.MetersToLat(y)
	lon := refCorner.Lon + geo.MetersToLon(x, refCorner.Lat)
	return ingest.Track{
		TrackID:   id,
		Latitude:  &lat,
		Longitude: &lon,
		EventTime: at,
	}
}

func alwaysArmed(zoneID int64) zones.Schedule {
	return zones.Schedule{
		ID:           zoneID * 100,
		ZoneID:       zoneID,
		Type:         zones.ScheduleRecurring,
		Days:         []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"},
		Start:        "00:00",
		End:          "23:59",
		SpansNextDay: zones.BoolPtr(false),
		Enabled:      true,
	}
}

func testDirectory(t *testing.T) *fakeDirectory {
	t.Helper()
	z, err := zones.NewZone(1, "storage", []geo.Point{
		{X: 4, Y: 2}, {X: 6, Y: 2}, {X: 6, Y: 4}, {X: 4, Y: 4},
	})
	if err != nil {
		t.Fatal(err)
	}
	z.ID = 7
	return &fakeDirectory{
		cams: map[string]CameraPlacement{
			"CAMA": {CameraID: 1, Serial: "CAMA", FloorplanID: 1, RefCorner: refCorner},
			"CAMB": {CameraID: 2, Serial: "CAMB", FloorplanID: 1, RefCorner: refCorner},
		},
		zones:     []zones.Zone{*z},
		schedules: map[int64][]zones.Schedule{7: {alwaysArmed(7)}},
	}
}

// Monday noon, inside the always-armed window.
var testNow = time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

func TestEndToEndFusionAndDecision(t *testing.T) {
	dir := testDirectory(t)
	clock := timeutil.NewMockClock(testNow)
	fuser := fusion.NewFuser(fusion.DefaultConfig(), clock)
	notifier := &captureNotifier{}
	c := NewCoordinator(dir, fuser, notifier, clock)

	ctx := context.Background()
	c.HandleTracks(ctx, "CAMA", []ingest.Track{trackAt("5", 5.0, 3.0, clock.Now())})
	clock.Advance(100 * time.Millisecond)
	c.HandleTracks(ctx, "CAMB", []ingest.Track{trackAt("3", 5.1, 3.1, clock.Now())})

	// The two observations fuse into one global track at the mean position.
	if got := fuser.TrackCount(); got != 1 {
		t.Fatalf("TrackCount = %d, want 1", got)
	}
	tracks := fuser.ActiveTracks()
	if dx, dy := tracks[0].X-5.05, tracks[0].Y-3.05; dx*dx+dy*dy > 1e-6 {
		t.Errorf("fused position = (%v, %v), want (5.05, 3.05)", tracks[0].X, tracks[0].Y)
	}

	// One decision per camera: the cooldown is per camera, not per zone.
	if len(notifier.decisions) != 2 {
		t.Fatalf("got %d decisions, want 2", len(notifier.decisions))
	}
	if notifier.decisions[0].CameraID != 1 || notifier.decisions[1].CameraID != 2 {
		t.Errorf("decision cameras = %d, %d", notifier.decisions[0].CameraID, notifier.decisions[1].CameraID)
	}
	if notifier.decisions[0].ZoneName != "storage" {
		t.Errorf("zone name = %q", notifier.decisions[0].ZoneName)
	}
	if notifier.decisions[0].TrackID != notifier.decisions[1].TrackID {
		t.Errorf("decisions name different global tracks: %q vs %q",
			notifier.decisions[0].TrackID, notifier.decisions[1].TrackID)
	}

	// A repeat from camera A inside its cooldown window emits nothing more.
	clock.Advance(100 * time.Millisecond)
	c.HandleTracks(ctx, "CAMA", []ingest.Track{trackAt("5", 5.0, 3.0, clock.Now())})
	if len(notifier.decisions) != 2 {
		t.Fatalf("cooldown breached: %d decisions", len(notifier.decisions))
	}
}

func TestCooldownExpires(t *testing.T) {
	dir := testDirectory(t)
	clock := timeutil.NewMockClock(testNow)
	fuser := fusion.NewFuser(fusion.DefaultConfig(), clock)
	notifier := &captureNotifier{}
	c := NewCoordinator(dir, fuser, notifier, clock)

	ctx := context.Background()
	c.HandleTracks(ctx, "CAMA", []ingest.Track{trackAt("5", 5.0, 3.0, clock.Now())})
	clock.Advance(5 * time.Second)
	c.HandleTracks(ctx, "CAMA", []ingest.Track{trackAt("5", 5.0, 3.0, clock.Now())})
	if len(notifier.decisions) != 1 {
		t.Fatalf("got %d decisions inside cooldown, want 1", len(notifier.decisions))
	}

	clock.Advance(6 * time.Second)
	c.HandleTracks(ctx, "CAMA", []ingest.Track{trackAt("5", 5.0, 3.0, clock.Now())})
	if len(notifier.decisions) != 2 {
		t.Fatalf("got %d decisions after cooldown, want 2", len(notifier.decisions))
	}
}

func TestUnarmedZoneEmitsNothing(t *testing.T) {
	dir := testDirectory(t)
	// Same window but disabled.
	s := alwaysArmed(7)
	s.Enabled = false
	dir.schedules[7] = []zones.Schedule{s}

	clock := timeutil.NewMockClock(testNow)
	fuser := fusion.NewFuser(fusion.DefaultConfig(), clock)
	notifier := &captureNotifier{}
	c := NewCoordinator(dir, fuser, notifier, clock)

	c.HandleTracks(context.Background(), "CAMA", []ingest.Track{trackAt("5", 5.0, 3.0, clock.Now())})
	if len(notifier.decisions) != 0 {
		t.Fatalf("got %d decisions from a disarmed zone", len(notifier.decisions))
	}
}

func TestOutsideZoneEmitsNothing(t *testing.T) {
	dir := testDirectory(t)
	clock := timeutil.NewMockClock(testNow)
	fuser := fusion.NewFuser(fusion.DefaultConfig(), clock)
	notifier := &captureNotifier{}
	c := NewCoordinator(dir, fuser, notifier, clock)

	c.HandleTracks(context.Background(), "CAMA", []ingest.Track{trackAt("5", 20.0, 20.0, clock.Now())})
	if len(notifier.decisions) != 0 {
		t.Fatalf("got %d decisions for a point outside every zone", len(notifier.decisions))
	}
	// The track is still fused and visible.
	if fuser.TrackCount() != 1 {
		t.Error("observation outside zones should still feed fusion")
	}
}

func TestMissingGeoSkipped(t *testing.T) {
	dir := testDirectory(t)
	clock := timeutil.NewMockClock(testNow)
	fuser := fusion.NewFuser(fusion.DefaultConfig(), clock)
	c := NewCoordinator(dir, fuser, &captureNotifier{}, clock)

	c.HandleTracks(context.Background(), "CAMA", []ingest.Track{{TrackID: "5", EventTime: clock.Now()}})
	if fuser.TrackCount() != 0 {
		t.Error("track without geoposition must not reach fusion")
	}
}

func TestNotifierFailureIsSwallowed(t *testing.T) {
	dir := testDirectory(t)
	clock := timeutil.NewMockClock(testNow)
	fuser := fusion.NewFuser(fusion.DefaultConfig(), clock)
	notifier := &captureNotifier{err: fmt.Errorf("endpoint down")}
	c := NewCoordinator(dir, fuser, notifier, clock)

	// Must not panic, and subsequent processing keeps working.
	c.HandleTracks(context.Background(), "CAMA", []ingest.Track{trackAt("5", 5.0, 3.0, clock.Now())})
	c.HandleTracks(context.Background(), "CAMB", []ingest.Track{trackAt("3", 5.1, 3.1, clock.Now())})
	if fuser.TrackCount() != 1 {
		t.Errorf("TrackCount = %d, want 1", fuser.TrackCount())
	}
}

type recordedPosition struct {
	cameraID int64
	globalID string
	x, y     float64
}

type captureSink struct {
	positions []recordedPosition
}

func (s *captureSink) RecordPosition(_ context.Context, cameraID int64, globalID string, x, y float64, _ time.Time) {
	s.positions = append(s.positions, recordedPosition{cameraID, globalID, x, y})
}

func TestPositionSinkReceivesFusedPositions(t *testing.T) {
	dir := testDirectory(t)
	clock := timeutil.NewMockClock(testNow)
	fuser := fusion.NewFuser(fusion.DefaultConfig(), clock)
	sink := &captureSink{}
	c := NewCoordinator(dir, fuser, &captureNotifier{}, clock, WithPositionSink(sink))

	c.HandleTracks(context.Background(), "CAMA", []ingest.Track{trackAt("5", 5.0, 3.0, clock.Now())})
	if len(sink.positions) != 1 {
		t.Fatalf("sink got %d positions, want 1", len(sink.positions))
	}
	if sink.positions[0].cameraID != 1 || sink.positions[0].globalID == "" {
		t.Errorf("recorded position = %+v", sink.positions[0])
	}
}

func TestHTTPNotifier(t *testing.T) {
	var got Decision
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
	}))
	defer srv.Close()

	n := NewHTTPNotifier(srv.URL)
	d := Decision{
		EventID:  NewEventID(),
		CameraID: 1,
		ZoneID:   7,
		ZoneName: "storage",
		TrackID:  "global_1",
		X:        5.05,
		Y:        3.05,
	}
	if err := n.Notify(context.Background(), d); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if got.EventID != d.EventID || got.ZoneName != "storage" || got.X != 5.05 {
		t.Errorf("server saw %+v", got)
	}
}

func TestHTTPNotifierBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := NewHTTPNotifier(srv.URL)
	if err := n.Notify(context.Background(), Decision{}); err == nil {
		t.Fatal("want error on 500 response")
	}
}
