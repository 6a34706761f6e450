package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/floorwatch/floorwatch/internal/intrusion"
)

// Position is one fused track position sample.
type Position struct {
	ID            int64     `json:"id"`
	CameraID      *int64    `json:"camera_id,omitempty"`
	GlobalTrackID string    `json:"global_track_id"`
	X             float64   `json:"x"`
	Y             float64   `json:"y"`
	RecordedAt    time.Time `json:"recorded_at"`
}

// InsertPosition appends one sample to the position history.
func (db *DB) InsertPosition(ctx context.Context, p Position) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO position_history (camera_id, global_track_id, x_m, y_m, recorded_at) VALUES (?, ?, ?, ?, ?)`,
		p.CameraID, p.GlobalTrackID, p.X, p.Y, p.RecordedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert position: %w", err)
	}
	return nil
}

// PositionsSince returns samples recorded at or after cutoff, oldest first.
func (db *DB) PositionsSince(ctx context.Context, cutoff time.Time) ([]Position, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, camera_id, global_track_id, x_m, y_m, recorded_at
		 FROM position_history WHERE recorded_at >= ? ORDER BY recorded_at`, cutoff.UTC())
	if err != nil {
		return nil, err
	}
	return collectPositions(rows)
}

// PositionsForTrack returns one global track's samples, oldest first.
func (db *DB) PositionsForTrack(ctx context.Context, globalTrackID string) ([]Position, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, camera_id, global_track_id, x_m, y_m, recorded_at
		 FROM position_history WHERE global_track_id = ? ORDER BY recorded_at`, globalTrackID)
	if err != nil {
		return nil, err
	}
	return collectPositions(rows)
}

// PurgePositionsBefore deletes samples older than cutoff and reports how
// many went.
func (db *DB) PurgePositionsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := db.ExecContext(ctx, `DELETE FROM position_history WHERE recorded_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("purge positions: %w", err)
	}
	return res.RowsAffected()
}

func collectPositions(rows *sql.Rows) ([]Position, error) {
	defer rows.Close()
	var out []Position
	for rows.Next() {
		var (
			p        Position
			cameraID sql.NullInt64
		)
		if err := rows.Scan(&p.ID, &cameraID, &p.GlobalTrackID, &p.X, &p.Y, &p.RecordedAt); err != nil {
			return nil, err
		}
		if cameraID.Valid {
			p.CameraID = &cameraID.Int64
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// RecordDecision persists an intrusion decision as an event log row.
func (db *DB) RecordDecision(ctx context.Context, d intrusion.Decision) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO event_log (event_id, camera_id, zone_id, zone_name, track_id, x_m, y_m, detected_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.EventID, d.CameraID, d.ZoneID, d.ZoneName, d.TrackID, d.X, d.Y, d.DetectedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("record decision %s: %w", d.EventID, err)
	}
	return nil
}

// RecentDecisions returns the newest intrusion events, newest first.
func (db *DB) RecentDecisions(ctx context.Context, limit int) ([]intrusion.Decision, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.QueryContext(ctx,
		`SELECT event_id, camera_id, zone_id, zone_name, track_id, x_m, y_m, detected_at
		 FROM event_log ORDER BY detected_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []intrusion.Decision
	for rows.Next() {
		var d intrusion.Decision
		if err := rows.Scan(&d.EventID, &d.CameraID, &d.ZoneID, &d.ZoneName, &d.TrackID, &d.X, &d.Y, &d.DetectedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
