package db

import (
	"context"
	"fmt"
	"time"

	"github.com/floorwatch/floorwatch/internal/intrusion"
	"github.com/floorwatch/floorwatch/internal/monitoring"
	"github.com/floorwatch/floorwatch/internal/zones"
)

// EngineDirectory adapts the store to the intrusion coordinator's read
// interface.
type EngineDirectory struct {
	db *DB
}

// Directory returns the coordinator-facing view of the store.
func (db *DB) Directory() *EngineDirectory {
	return &EngineDirectory{db: db}
}

func (d *EngineDirectory) CameraBySerial(ctx context.Context, serial string) (intrusion.CameraPlacement, error) {
	cam, err := d.db.GetCameraBySerial(ctx, serial)
	if err != nil {
		return intrusion.CameraPlacement{}, err
	}
	if cam.FloorplanID == nil {
		return intrusion.CameraPlacement{}, fmt.Errorf("camera %s is not placed on a floorplan", serial)
	}
	fp, err := d.db.GetFloorplan(ctx, *cam.FloorplanID)
	if err != nil {
		return intrusion.CameraPlacement{}, err
	}
	if fp.RefCorner == nil {
		return intrusion.CameraPlacement{}, fmt.Errorf("floorplan %d has no reference corner", fp.ID)
	}
	return intrusion.CameraPlacement{
		CameraID:    cam.ID,
		Serial:      cam.Serial,
		FloorplanID: fp.ID,
		RefCorner:   *fp.RefCorner,
	}, nil
}

func (d *EngineDirectory) ZonesForFloorplan(ctx context.Context, floorplanID int64) ([]zones.Zone, error) {
	return d.db.GetZonesForFloorplan(ctx, floorplanID)
}

func (d *EngineDirectory) SchedulesForZone(ctx context.Context, zoneID int64) ([]zones.Schedule, error) {
	return d.db.GetSchedulesForZone(ctx, zoneID)
}

// HistorySink persists fused positions from the coordinator. Writes happen
// on the calling goroutine; insert cost is one indexed row.
type HistorySink struct {
	db *DB
}

// Sink returns the position-history sink.
func (db *DB) Sink() *HistorySink {
	return &HistorySink{db: db}
}

func (s *HistorySink) RecordPosition(ctx context.Context, cameraID int64, globalTrackID string, x, y float64, at time.Time) {
	err := s.db.InsertPosition(ctx, Position{
		CameraID:      &cameraID,
		GlobalTrackID: globalTrackID,
		X:             x,
		Y:             y,
		RecordedAt:    at,
	})
	if err != nil {
		monitoring.Logf("db: record position for %s: %v", globalTrackID, err)
	}
}

// RecordingNotifier persists every decision to the event log before handing
// it to the next notifier. A failed insert is logged but does not stop
// delivery.
type RecordingNotifier struct {
	DB   *DB
	Next intrusion.Notifier
}

func (n *RecordingNotifier) Notify(ctx context.Context, d intrusion.Decision) error {
	if err := n.DB.RecordDecision(ctx, d); err != nil {
		monitoring.Logf("db: %v", err)
	}
	if n.Next == nil {
		return nil
	}
	return n.Next.Notify(ctx, d)
}

var (
	_ intrusion.Directory    = (*EngineDirectory)(nil)
	_ intrusion.PositionSink = (*HistorySink)(nil)
	_ intrusion.Notifier     = (*RecordingNotifier)(nil)
)
