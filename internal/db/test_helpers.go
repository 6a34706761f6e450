package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/floorwatch/floorwatch/internal/geo"
	"github.com/floorwatch/floorwatch/internal/zones"
)

func floatPtr(f float64) *float64 {
	return &f
}

// newTestDB opens a migrated database in a per-test temp directory.
func newTestDB(t *testing.T) *DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.MigrateUp(); err != nil {
		t.Fatalf("MigrateUp failed: %v", err)
	}
	return db
}

// createTestFloorplanWithZone seeds a floorplan holding one zone with one
// always-armed recurring schedule, plus a placed camera.
func createTestFloorplanWithZone(t *testing.T, db *DB) (Floorplan, Camera, zones.Zone) {
	t.Helper()
	ctx := context.Background()

	fp, err := db.CreateFloorplan(ctx, Floorplan{
		Name:      "test-floor",
		WidthM:    20,
		DepthM:    15,
		RefCorner: &geo.LatLon{Lat: 58.39590610056573, Lon: 15.577997451724473},
	})
	if err != nil {
		t.Fatalf("CreateFloorplan failed: %v", err)
	}

	cam, err := db.CreateCamera(ctx, Camera{
		Serial:     "B8A44F9EED3B",
		Name:       "entrance",
		Lat:        floatPtr(58.3959),
		Lon:        floatPtr(15.5780),
		HeadingDeg: 90,
	})
	if err != nil {
		t.Fatalf("CreateCamera failed: %v", err)
	}
	if _, err := db.PlaceCamera(ctx, fp.ID, cam.ID, 2, 3); err != nil {
		t.Fatalf("PlaceCamera failed: %v", err)
	}

	zone, err := db.CreateZone(ctx, fp.ID, "storage", []geo.Point{
		{X: 4, Y: 2}, {X: 6, Y: 2}, {X: 6, Y: 4}, {X: 4, Y: 4},
	})
	if err != nil {
		t.Fatalf("CreateZone failed: %v", err)
	}

	if _, err := db.CreateSchedule(ctx, zones.Schedule{
		ZoneID:       zone.ID,
		Type:         zones.ScheduleRecurring,
		Days:         []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"},
		Start:        "00:00",
		End:          "23:59",
		SpansNextDay: zones.BoolPtr(false),
		Enabled:      true,
	}); err != nil {
		t.Fatalf("CreateSchedule failed: %v", err)
	}

	// Re-read so the returned floorplan reflects placement side effects.
	fp, err = db.GetFloorplan(ctx, fp.ID)
	if err != nil {
		t.Fatalf("GetFloorplan failed: %v", err)
	}
	return fp, cam, zone
}
