package db

import (
	"context"
	"testing"
	"time"
)

func TestEngineDirectory(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	fp, cam, zone := createTestFloorplanWithZone(t, db)

	dir := db.Directory()

	placement, err := dir.CameraBySerial(ctx, cam.Serial)
	if err != nil {
		t.Fatalf("CameraBySerial failed: %v", err)
	}
	if placement.CameraID != cam.ID || placement.FloorplanID != fp.ID {
		t.Errorf("placement = %+v", placement)
	}
	if placement.RefCorner != *fp.RefCorner {
		t.Errorf("ref corner = %+v, want %+v", placement.RefCorner, fp.RefCorner)
	}

	zs, err := dir.ZonesForFloorplan(ctx, fp.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(zs) != 1 || zs[0].ID != zone.ID {
		t.Errorf("zones = %+v", zs)
	}

	schedules, err := dir.SchedulesForZone(ctx, zone.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(schedules) != 1 || !schedules[0].Enabled {
		t.Errorf("schedules = %+v", schedules)
	}
}

func TestEngineDirectoryUnplacedCamera(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if _, err := db.CreateCamera(ctx, Camera{Serial: "LONECAM"}); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Directory().CameraBySerial(ctx, "LONECAM"); err == nil {
		t.Fatal("want error for camera without a floorplan")
	}
}

func TestHistorySink(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	_, cam, _ := createTestFloorplanWithZone(t, db)

	sink := db.Sink()
	sink.RecordPosition(ctx, cam.ID, "global_9", 1.5, 2.5, time.Now().UTC())

	got, err := db.PositionsForTrack(ctx, "global_9")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].X != 1.5 || got[0].Y != 2.5 {
		t.Errorf("positions = %+v", got)
	}
}
