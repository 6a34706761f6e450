package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Camera is one physical camera. Lat/Lon are its surveyed geodetic position,
// nil until surveyed. FloorplanID is nil until the camera is placed.
type Camera struct {
	ID          int64    `json:"id"`
	Serial      string   `json:"serial"`
	Name        string   `json:"name,omitempty"`
	Lat         *float64 `json:"lat,omitempty"`
	Lon         *float64 `json:"lon,omitempty"`
	HeadingDeg  float64  `json:"heading_deg"`
	FloorplanID *int64   `json:"floorplan_id,omitempty"`
}

// CreateCamera inserts a camera and returns it with its id set.
func (db *DB) CreateCamera(ctx context.Context, cam Camera) (Camera, error) {
	res, err := db.ExecContext(ctx,
		`INSERT INTO cameras (serial, name, lat, lon, heading_deg) VALUES (?, ?, ?, ?, ?)`,
		cam.Serial, cam.Name, cam.Lat, cam.Lon, cam.HeadingDeg,
	)
	if err != nil {
		return Camera{}, fmt.Errorf("insert camera: %w", err)
	}
	cam.ID, err = res.LastInsertId()
	if err != nil {
		return Camera{}, err
	}
	return cam, nil
}

// GetCamera looks a camera up by id.
func (db *DB) GetCamera(ctx context.Context, id int64) (Camera, error) {
	row := db.QueryRowContext(ctx,
		`SELECT id, serial, name, lat, lon, heading_deg, floorplan_id FROM cameras WHERE id = ?`, id)
	return scanCamera(row)
}

// GetCameraBySerial looks a camera up by its hardware serial.
func (db *DB) GetCameraBySerial(ctx context.Context, serial string) (Camera, error) {
	row := db.QueryRowContext(ctx,
		`SELECT id, serial, name, lat, lon, heading_deg, floorplan_id FROM cameras WHERE serial = ?`, serial)
	return scanCamera(row)
}

// ListCameras returns all cameras ordered by id.
func (db *DB) ListCameras(ctx context.Context) ([]Camera, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, serial, name, lat, lon, heading_deg, floorplan_id FROM cameras ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Camera
	for rows.Next() {
		cam, err := scanCamera(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cam)
	}
	return out, rows.Err()
}

// UpdateCamera rewrites a camera's mutable fields.
func (db *DB) UpdateCamera(ctx context.Context, cam Camera) error {
	res, err := db.ExecContext(ctx,
		`UPDATE cameras SET name = ?, lat = ?, lon = ?, heading_deg = ? WHERE id = ?`,
		cam.Name, cam.Lat, cam.Lon, cam.HeadingDeg, cam.ID,
	)
	if err != nil {
		return fmt.Errorf("update camera %d: %w", cam.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteCamera removes a camera.
func (db *DB) DeleteCamera(ctx context.Context, id int64) error {
	res, err := db.ExecContext(ctx, `DELETE FROM cameras WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete camera %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanCamera(row rowScanner) (Camera, error) {
	var (
		cam         Camera
		name        sql.NullString
		lat, lon    sql.NullFloat64
		floorplanID sql.NullInt64
	)
	err := row.Scan(&cam.ID, &cam.Serial, &name, &lat, &lon, &cam.HeadingDeg, &floorplanID)
	if errors.Is(err, sql.ErrNoRows) {
		return Camera{}, ErrNotFound
	}
	if err != nil {
		return Camera{}, err
	}
	cam.Name = name.String
	if lat.Valid {
		cam.Lat = &lat.Float64
	}
	if lon.Valid {
		cam.Lon = &lon.Float64
	}
	if floorplanID.Valid {
		cam.FloorplanID = &floorplanID.Int64
	}
	return cam, nil
}
