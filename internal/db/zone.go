package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/floorwatch/floorwatch/internal/geo"
	"github.com/floorwatch/floorwatch/internal/zones"
)

// CreateZone validates the polygon, computes its metadata and inserts the
// zone. The bbox and centroid columns are always written together with the
// points, never left stale.
func (db *DB) CreateZone(ctx context.Context, floorplanID int64, name string, points []geo.Point) (zones.Zone, error) {
	z, err := zones.NewZone(floorplanID, name, points)
	if err != nil {
		return zones.Zone{}, err
	}

	pointsJSON, bboxJSON, centroidJSON, err := encodeZoneGeometry(z)
	if err != nil {
		return zones.Zone{}, err
	}
	res, err := db.ExecContext(ctx,
		`INSERT INTO zones (floorplan_id, name, points, bbox, centroid) VALUES (?, ?, ?, ?, ?)`,
		floorplanID, name, pointsJSON, bboxJSON, centroidJSON,
	)
	if err != nil {
		return zones.Zone{}, fmt.Errorf("insert zone: %w", err)
	}
	z.ID, err = res.LastInsertId()
	if err != nil {
		return zones.Zone{}, err
	}
	return *z, nil
}

// GetZone looks a zone up by id.
func (db *DB) GetZone(ctx context.Context, id int64) (zones.Zone, error) {
	row := db.QueryRowContext(ctx,
		`SELECT id, floorplan_id, name, points, bbox, centroid FROM zones WHERE id = ?`, id)
	return scanZone(row)
}

// GetZonesForFloorplan returns a floorplan's zones ordered by id.
func (db *DB) GetZonesForFloorplan(ctx context.Context, floorplanID int64) ([]zones.Zone, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, floorplan_id, name, points, bbox, centroid FROM zones WHERE floorplan_id = ? ORDER BY id`,
		floorplanID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []zones.Zone
	for rows.Next() {
		z, err := scanZone(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, z)
	}
	return out, rows.Err()
}

// UpdateZonePoints replaces a zone's polygon and recomputes its metadata in
// the same statement.
func (db *DB) UpdateZonePoints(ctx context.Context, id int64, points []geo.Point) (zones.Zone, error) {
	z, err := db.GetZone(ctx, id)
	if err != nil {
		return zones.Zone{}, err
	}
	if err := z.SetPoints(points); err != nil {
		return zones.Zone{}, err
	}

	pointsJSON, bboxJSON, centroidJSON, err := encodeZoneGeometry(&z)
	if err != nil {
		return zones.Zone{}, err
	}
	if _, err := db.ExecContext(ctx,
		`UPDATE zones SET points = ?, bbox = ?, centroid = ? WHERE id = ?`,
		pointsJSON, bboxJSON, centroidJSON, id,
	); err != nil {
		return zones.Zone{}, fmt.Errorf("update zone %d: %w", id, err)
	}
	return z, nil
}

// RenameZone updates a zone's display name.
func (db *DB) RenameZone(ctx context.Context, id int64, name string) error {
	res, err := db.ExecContext(ctx, `UPDATE zones SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		return fmt.Errorf("rename zone %d: %w", id, err)
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

// DeleteZone removes a zone and, through the foreign key, its schedules.
func (db *DB) DeleteZone(ctx context.Context, id int64) error {
	res, err := db.ExecContext(ctx, `DELETE FROM zones WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete zone %d: %w", id, err)
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

// CreateSchedule inserts an arming window for a zone. SpansNextDay only
// applies to recurring schedules; any client-supplied value is nulled for
// other types.
func (db *DB) CreateSchedule(ctx context.Context, s zones.Schedule) (zones.Schedule, error) {
	if s.Type != zones.ScheduleRecurring {
		s.SpansNextDay = nil
	}
	var days any
	if s.Days != nil {
		days = strings.Join(s.Days, ",")
	}
	res, err := db.ExecContext(ctx,
		`INSERT INTO zone_schedules (zone_id, type, days, start_time, end_time, spans_next_day, start_datetime, end_datetime, enabled, alarm_mode)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ZoneID, string(s.Type), days, s.Start, s.End, s.SpansNextDay,
		timePtr(s.StartDateTime), timePtr(s.EndDateTime), s.Enabled, s.AlarmMode,
	)
	if err != nil {
		return zones.Schedule{}, fmt.Errorf("insert schedule: %w", err)
	}
	s.ID, err = res.LastInsertId()
	if err != nil {
		return zones.Schedule{}, err
	}
	return s, nil
}

// GetSchedule returns one schedule by id.
func (db *DB) GetSchedule(ctx context.Context, id int64) (zones.Schedule, error) {
	row := db.QueryRowContext(ctx,
		`SELECT id, zone_id, type, days, start_time, end_time, spans_next_day, start_datetime, end_datetime, enabled, alarm_mode
		 FROM zone_schedules WHERE id = ?`, id)
	return scanSchedule(row)
}

// GetSchedulesForZone returns all of a zone's schedules, enabled or not.
func (db *DB) GetSchedulesForZone(ctx context.Context, zoneID int64) ([]zones.Schedule, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, zone_id, type, days, start_time, end_time, spans_next_day, start_datetime, end_datetime, enabled, alarm_mode
		 FROM zone_schedules WHERE zone_id = ? ORDER BY id`, zoneID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []zones.Schedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// UpdateSchedule rewrites a schedule in place. As with CreateSchedule,
// SpansNextDay is nulled for non-recurring types, so a schedule switched
// to one-time does not keep a stale wraparound flag.
func (db *DB) UpdateSchedule(ctx context.Context, s zones.Schedule) error {
	if s.Type != zones.ScheduleRecurring {
		s.SpansNextDay = nil
	}
	var days any
	if s.Days != nil {
		days = strings.Join(s.Days, ",")
	}
	res, err := db.ExecContext(ctx,
		`UPDATE zone_schedules SET type = ?, days = ?, start_time = ?, end_time = ?, spans_next_day = ?,
		 start_datetime = ?, end_datetime = ?, enabled = ?, alarm_mode = ? WHERE id = ?`,
		string(s.Type), days, s.Start, s.End, s.SpansNextDay,
		timePtr(s.StartDateTime), timePtr(s.EndDateTime), s.Enabled, s.AlarmMode, s.ID,
	)
	if err != nil {
		return fmt.Errorf("update schedule %d: %w", s.ID, err)
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

// DeleteSchedule removes one schedule.
func (db *DB) DeleteSchedule(ctx context.Context, id int64) error {
	res, err := db.ExecContext(ctx, `DELETE FROM zone_schedules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete schedule %d: %w", id, err)
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

func encodeZoneGeometry(z *zones.Zone) (points, bbox, centroid string, err error) {
	p, err := json.Marshal(z.Points)
	if err != nil {
		return "", "", "", fmt.Errorf("encode points: %w", err)
	}
	b, err := json.Marshal(z.Meta.BBox)
	if err != nil {
		return "", "", "", fmt.Errorf("encode bbox: %w", err)
	}
	c, err := json.Marshal(z.Meta.Centroid)
	if err != nil {
		return "", "", "", fmt.Errorf("encode centroid: %w", err)
	}
	return string(p), string(b), string(c), nil
}

func scanZone(row rowScanner) (zones.Zone, error) {
	var (
		z                               zones.Zone
		pointsJSON, bboxJSON, centrJSON string
	)
	err := row.Scan(&z.ID, &z.FloorplanID, &z.Name, &pointsJSON, &bboxJSON, &centrJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return zones.Zone{}, ErrNotFound
	}
	if err != nil {
		return zones.Zone{}, err
	}
	if err := json.Unmarshal([]byte(pointsJSON), &z.Points); err != nil {
		return zones.Zone{}, fmt.Errorf("decode zone %d points: %w", z.ID, err)
	}
	if err := json.Unmarshal([]byte(bboxJSON), &z.Meta.BBox); err != nil {
		return zones.Zone{}, fmt.Errorf("decode zone %d bbox: %w", z.ID, err)
	}
	if err := json.Unmarshal([]byte(centrJSON), &z.Meta.Centroid); err != nil {
		return zones.Zone{}, fmt.Errorf("decode zone %d centroid: %w", z.ID, err)
	}
	return z, nil
}

func scanSchedule(row rowScanner) (zones.Schedule, error) {
	var (
		s              zones.Schedule
		typ            string
		days           sql.NullString
		start, end     sql.NullString
		spansNextDay   sql.NullBool
		startDT, endDT sql.NullTime
		alarmMode      sql.NullString
	)
	err := row.Scan(&s.ID, &s.ZoneID, &typ, &days, &start, &end, &spansNextDay, &startDT, &endDT, &s.Enabled, &alarmMode)
	if errors.Is(err, sql.ErrNoRows) {
		return zones.Schedule{}, ErrNotFound
	}
	if err != nil {
		return zones.Schedule{}, err
	}
	s.Type = zones.ScheduleType(typ)
	if days.Valid && days.String != "" {
		s.Days = strings.Split(days.String, ",")
	}
	s.Start = start.String
	s.End = end.String
	if spansNextDay.Valid {
		s.SpansNextDay = &spansNextDay.Bool
	}
	if startDT.Valid {
		t := startDT.Time
		s.StartDateTime = &t
	}
	if endDT.Valid {
		t := endDT.Time
		s.EndDateTime = &t
	}
	s.AlarmMode = alarmMode.String
	return s, nil
}

func timePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
