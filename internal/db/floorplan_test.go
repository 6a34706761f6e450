package db

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/floorwatch/floorwatch/internal/geo"
)

func TestFloorplanRoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	created, err := db.CreateFloorplan(ctx, Floorplan{
		Name:      "warehouse",
		WidthM:    30,
		DepthM:    20,
		RefCorner: &geo.LatLon{Lat: 58.0, Lon: 15.0},
		ImagePath: "plans/warehouse.png",
	})
	if err != nil {
		t.Fatalf("CreateFloorplan failed: %v", err)
	}
	if created.ID == 0 {
		t.Fatal("created floorplan has no id")
	}

	got, err := db.GetFloorplan(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetFloorplan failed: %v", err)
	}
	if got.Name != "warehouse" || got.WidthM != 30 || got.DepthM != 20 {
		t.Errorf("got %+v", got)
	}
	if got.RefCorner == nil || got.RefCorner.Lat != 58.0 {
		t.Errorf("ref corner = %+v", got.RefCorner)
	}
	if got.Corners != nil {
		t.Error("corners should be unset before any camera placement")
	}
	if len(got.Placements) != 0 {
		t.Errorf("placements = %v", got.Placements)
	}
}

func TestGetFloorplanNotFound(t *testing.T) {
	db := newTestDB(t)
	if _, err := db.GetFloorplan(context.Background(), 999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestPlaceCameraDerivesCornersOnce(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	fp, err := db.CreateFloorplan(ctx, Floorplan{Name: "lab", WidthM: 10, DepthM: 8})
	if err != nil {
		t.Fatal(err)
	}
	cam, err := db.CreateCamera(ctx, Camera{
		Serial: "CAM1", Lat: floatPtr(58.3959), Lon: floatPtr(15.578), HeadingDeg: 180,
	})
	if err != nil {
		t.Fatal(err)
	}

	placed, err := db.PlaceCamera(ctx, fp.ID, cam.ID, 4, 3)
	if err != nil {
		t.Fatalf("PlaceCamera failed: %v", err)
	}
	if placed.Corners == nil {
		t.Fatal("first placement should derive corner coordinates")
	}
	// The bottom-left corner becomes the reference corner.
	if placed.RefCorner == nil || *placed.RefCorner != placed.Corners.BottomLeft {
		t.Errorf("ref corner = %+v, corners = %+v", placed.RefCorner, placed.Corners)
	}
	// The derived span matches the floorplan dimensions.
	width := geo.LonToMeters(placed.Corners.BottomRight.Lon-placed.Corners.BottomLeft.Lon, 58.3959)
	if math.Abs(width-10) > 0.01 {
		t.Errorf("derived width = %v m, want 10", width)
	}

	if x, y, ok := placed.Placements.Position(cam.ID); !ok || x != 4 || y != 3 {
		t.Errorf("placement = %v, %v, %v", x, y, ok)
	}

	// A second placement must not recompute the corners.
	cam2, err := db.CreateCamera(ctx, Camera{
		Serial: "CAM2", Lat: floatPtr(58.40), Lon: floatPtr(15.60),
	})
	if err != nil {
		t.Fatal(err)
	}
	again, err := db.PlaceCamera(ctx, fp.ID, cam2.ID, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if *again.Corners != *placed.Corners {
		t.Error("corners changed on second placement")
	}

	// The camera is bound to the floorplan.
	gotCam, err := db.GetCamera(ctx, cam.ID)
	if err != nil {
		t.Fatal(err)
	}
	if gotCam.FloorplanID == nil || *gotCam.FloorplanID != fp.ID {
		t.Errorf("camera floorplan = %v", gotCam.FloorplanID)
	}
}

func TestRemoveCamera(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	fp, cam, _ := createTestFloorplanWithZone(t, db)

	if err := db.RemoveCamera(ctx, fp.ID, cam.ID); err != nil {
		t.Fatalf("RemoveCamera failed: %v", err)
	}

	got, err := db.GetFloorplan(ctx, fp.ID)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, ok := got.Placements.Position(cam.ID); ok {
		t.Error("placement survived removal")
	}
	gotCam, err := db.GetCamera(ctx, cam.ID)
	if err != nil {
		t.Fatal(err)
	}
	if gotCam.FloorplanID != nil {
		t.Error("camera still bound to floorplan")
	}

	// Removing again reports not found.
	if err := db.RemoveCamera(ctx, fp.ID, cam.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second removal err = %v, want ErrNotFound", err)
	}
}

func TestDeleteFloorplanCascades(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	fp, _, zone := createTestFloorplanWithZone(t, db)

	if err := db.DeleteFloorplan(ctx, fp.ID); err != nil {
		t.Fatalf("DeleteFloorplan failed: %v", err)
	}

	if _, err := db.GetZone(ctx, zone.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("zone err = %v, want ErrNotFound", err)
	}
	schedules, err := db.GetSchedulesForZone(ctx, zone.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(schedules) != 0 {
		t.Errorf("%d schedules survived floorplan delete", len(schedules))
	}
}

func TestListFloorplans(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	for _, name := range []string{"a", "b", "c"} {
		if _, err := db.CreateFloorplan(ctx, Floorplan{Name: name, WidthM: 1, DepthM: 1}); err != nil {
			t.Fatal(err)
		}
	}
	got, err := db.ListFloorplans(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 || got[0].Name != "a" || got[2].Name != "c" {
		t.Errorf("list = %+v", got)
	}
}
