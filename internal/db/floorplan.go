package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/floorwatch/floorwatch/internal/geo"
)

// PlacementMap maps camera ids to their (x, y) position in floorplan meters.
// Mutate only through Place and Remove so the JSON column stays well formed.
type PlacementMap map[string][2]float64

// Place records a camera at (x, y).
func (p PlacementMap) Place(cameraID int64, x, y float64) {
	p[strconv.FormatInt(cameraID, 10)] = [2]float64{x, y}
}

// Remove drops a camera's placement.
func (p PlacementMap) Remove(cameraID int64) {
	delete(p, strconv.FormatInt(cameraID, 10))
}

// Position returns a camera's placement.
func (p PlacementMap) Position(cameraID int64) (x, y float64, ok bool) {
	pos, ok := p[strconv.FormatInt(cameraID, 10)]
	return pos[0], pos[1], ok
}

// Floorplan is one physical space, width x depth meters. RefCorner is the
// bottom-left calibration coordinate consumed by the coordinate transform.
// Corners is derived once, from the first camera placed with a known
// geodetic position, and immutable afterwards.
type Floorplan struct {
	ID         int64        `json:"id"`
	Name       string       `json:"name"`
	WidthM     float64      `json:"width_m"`
	DepthM     float64      `json:"depth_m"`
	RefCorner  *geo.LatLon  `json:"ref_corner,omitempty"`
	ImagePath  string       `json:"image_path,omitempty"`
	Corners    *geo.Corners `json:"corners,omitempty"`
	Placements PlacementMap `json:"camera_placements"`
}

// CreateFloorplan inserts a floorplan and returns it with its id set.
func (db *DB) CreateFloorplan(ctx context.Context, fp Floorplan) (Floorplan, error) {
	placements := fp.Placements
	if placements == nil {
		placements = PlacementMap{}
	}
	placementsJSON, err := json.Marshal(placements)
	if err != nil {
		return Floorplan{}, fmt.Errorf("encode placements: %w", err)
	}

	var refLat, refLon any
	if fp.RefCorner != nil {
		refLat, refLon = fp.RefCorner.Lat, fp.RefCorner.Lon
	}

	res, err := db.ExecContext(ctx,
		`INSERT INTO floorplans (name, width_m, depth_m, ref_lat, ref_lon, image_path, camera_placements)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		fp.Name, fp.WidthM, fp.DepthM, refLat, refLon, fp.ImagePath, string(placementsJSON),
	)
	if err != nil {
		return Floorplan{}, fmt.Errorf("insert floorplan: %w", err)
	}
	fp.ID, err = res.LastInsertId()
	if err != nil {
		return Floorplan{}, err
	}
	fp.Placements = placements
	return fp, nil
}

// GetFloorplan looks a floorplan up by id.
func (db *DB) GetFloorplan(ctx context.Context, id int64) (Floorplan, error) {
	row := db.QueryRowContext(ctx,
		`SELECT id, name, width_m, depth_m, ref_lat, ref_lon, image_path, corner_geocoordinates, camera_placements
		 FROM floorplans WHERE id = ?`, id)
	return scanFloorplan(row)
}

// ListFloorplans returns all floorplans ordered by id.
func (db *DB) ListFloorplans(ctx context.Context) ([]Floorplan, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, name, width_m, depth_m, ref_lat, ref_lon, image_path, corner_geocoordinates, camera_placements
		 FROM floorplans ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Floorplan
	for rows.Next() {
		fp, err := scanFloorplan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, fp)
	}
	return out, rows.Err()
}

// DeleteFloorplan removes a floorplan. Its zones and their schedules go with
// it through the cascading foreign keys.
func (db *DB) DeleteFloorplan(ctx context.Context, id int64) error {
	res, err := db.ExecContext(ctx, `DELETE FROM floorplans WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete floorplan %d: %w", id, err)
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

// PlaceCamera puts a camera at (x, y) on a floorplan, binds the camera to the
// floorplan, and on the floorplan's first placement derives its corner
// geocoordinates from the camera's geodetic position.
func (db *DB) PlaceCamera(ctx context.Context, floorplanID, cameraID int64, x, y float64) (Floorplan, error) {
	fp, err := db.GetFloorplan(ctx, floorplanID)
	if err != nil {
		return Floorplan{}, err
	}
	cam, err := db.GetCamera(ctx, cameraID)
	if err != nil {
		return Floorplan{}, err
	}

	fp.Placements.Place(cameraID, x, y)

	if fp.Corners == nil && cam.Lat != nil && cam.Lon != nil {
		corners, err := geo.FloorplanCorners(fp.WidthM, fp.DepthM, geo.LatLon{Lat: *cam.Lat, Lon: *cam.Lon}, x, y)
		if err != nil {
			return Floorplan{}, fmt.Errorf("derive corners: %w", err)
		}
		fp.Corners = &corners
		if fp.RefCorner == nil {
			fp.RefCorner = &corners.BottomLeft
		}
	}

	if err := db.saveFloorplanPlacement(ctx, fp); err != nil {
		return Floorplan{}, err
	}
	if _, err := db.ExecContext(ctx, `UPDATE cameras SET floorplan_id = ? WHERE id = ?`, floorplanID, cameraID); err != nil {
		return Floorplan{}, fmt.Errorf("bind camera %d: %w", cameraID, err)
	}
	return fp, nil
}

// RemoveCamera unbinds a camera from a floorplan and drops its placement.
// The floorplan's corner coordinates, once derived, stay.
func (db *DB) RemoveCamera(ctx context.Context, floorplanID, cameraID int64) error {
	fp, err := db.GetFloorplan(ctx, floorplanID)
	if err != nil {
		return err
	}
	fp.Placements.Remove(cameraID)
	if err := db.saveFloorplanPlacement(ctx, fp); err != nil {
		return err
	}
	res, err := db.ExecContext(ctx,
		`UPDATE cameras SET floorplan_id = NULL WHERE id = ? AND floorplan_id = ?`, cameraID, floorplanID)
	if err != nil {
		return fmt.Errorf("unbind camera %d: %w", cameraID, err)
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

func (db *DB) saveFloorplanPlacement(ctx context.Context, fp Floorplan) error {
	placementsJSON, err := json.Marshal(fp.Placements)
	if err != nil {
		return fmt.Errorf("encode placements: %w", err)
	}
	var cornersJSON any
	if fp.Corners != nil {
		b, err := json.Marshal(fp.Corners)
		if err != nil {
			return fmt.Errorf("encode corners: %w", err)
		}
		cornersJSON = string(b)
	}
	var refLat, refLon any
	if fp.RefCorner != nil {
		refLat, refLon = fp.RefCorner.Lat, fp.RefCorner.Lon
	}
	_, err = db.ExecContext(ctx,
		`UPDATE floorplans SET camera_placements = ?, corner_geocoordinates = ?, ref_lat = ?, ref_lon = ? WHERE id = ?`,
		string(placementsJSON), cornersJSON, refLat, refLon, fp.ID)
	if err != nil {
		return fmt.Errorf("update floorplan %d: %w", fp.ID, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFloorplan(row rowScanner) (Floorplan, error) {
	var (
		fp             Floorplan
		refLat, refLon sql.NullFloat64
		imagePath      sql.NullString
		cornersJSON    sql.NullString
		placementsJSON string
	)
	err := row.Scan(&fp.ID, &fp.Name, &fp.WidthM, &fp.DepthM, &refLat, &refLon, &imagePath, &cornersJSON, &placementsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return Floorplan{}, ErrNotFound
	}
	if err != nil {
		return Floorplan{}, err
	}

	if refLat.Valid && refLon.Valid {
		fp.RefCorner = &geo.LatLon{Lat: refLat.Float64, Lon: refLon.Float64}
	}
	fp.ImagePath = imagePath.String
	if cornersJSON.Valid && cornersJSON.String != "" {
		var corners geo.Corners
		if err := json.Unmarshal([]byte(cornersJSON.String), &corners); err != nil {
			return Floorplan{}, fmt.Errorf("decode corners: %w", err)
		}
		fp.Corners = &corners
	}
	fp.Placements = PlacementMap{}
	if err := json.Unmarshal([]byte(placementsJSON), &fp.Placements); err != nil {
		return Floorplan{}, fmt.Errorf("decode placements: %w", err)
	}
	return fp, nil
}
