// Package zones implements polygon-defined security zones and the time
// windows during which they are armed.
package zones

import (
	"errors"
	"fmt"

	"github.com/floorwatch/floorwatch/internal/geo"
)

// edgeEpsilon substitutes a zero edge denominator during ray casting so a
// degenerate (horizontal-collapsed) edge never divides by zero.
const edgeEpsilon = 1e-9

// ErrTooFewPoints rejects polygons that cannot enclose area.
var ErrTooFewPoints = errors.New("zones: polygon needs at least 3 points")

// Meta holds the precomputed bounding box and centroid of a zone polygon.
// It must be recomputed whenever the points change; a stale Meta makes
// containment checks wrong.
type Meta struct {
	// BBox is [minX, minY, maxX, maxY] in floorplan meters.
	BBox [4]float64 `json:"bbox"`
	// Centroid is the arithmetic mean of the vertices (not the area centroid).
	Centroid geo.Point `json:"centroid"`
}

// Zone is a polygonal region on one floorplan.
type Zone struct {
	ID          int64       `json:"id"`
	FloorplanID int64       `json:"floorplan_id"`
	Name        string      `json:"name"`
	Points      []geo.Point `json:"points"`
	Meta        Meta        `json:"meta"`
}

// ComputeMeta derives the bounding box and vertex-mean centroid for a polygon.
func ComputeMeta(points []geo.Point) Meta {
	if len(points) == 0 {
		return Meta{}
	}

	minX, minY := points[0].X, points[0].Y
	maxX, maxY := points[0].X, points[0].Y
	var sumX, sumY float64
	for _, p := range points {
		if p.X < minX {
			minX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y > maxY {
			maxY = p.Y
		}
		sumX += p.X
		sumY += p.Y
	}

	n := float64(len(points))
	return Meta{
		BBox:     [4]float64{minX, minY, maxX, maxY},
		Centroid: geo.Point{X: sumX / n, Y: sumY / n},
	}
}

// ValidatePoints checks a polygon is usable as a zone.
func ValidatePoints(points []geo.Point) error {
	if len(points) < 3 {
		return fmt.Errorf("%w, got %d", ErrTooFewPoints, len(points))
	}
	return nil
}

// NewZone builds a zone with its meta precomputed.
func NewZone(floorplanID int64, name string, points []geo.Point) (*Zone, error) {
	if err := ValidatePoints(points); err != nil {
		return nil, err
	}
	return &Zone{
		FloorplanID: floorplanID,
		Name:        name,
		Points:      points,
		Meta:        ComputeMeta(points),
	}, nil
}

// SetPoints replaces the polygon and recomputes meta in the same step so the
// two can never diverge.
func (z *Zone) SetPoints(points []geo.Point) error {
	if err := ValidatePoints(points); err != nil {
		return err
	}
	z.Points = points
	z.Meta = ComputeMeta(points)
	return nil
}

// ContainsPoint reports whether (x, y) lies inside the zone polygon using an
// even-odd ray cast, after a bounding-box fast reject.
func (z *Zone) ContainsPoint(x, y float64) bool {
	pts := z.Points
	if len(pts) == 0 {
		return false
	}

	bb := z.Meta.BBox
	if x < bb[0] || x > bb[2] || y < bb[1] || y > bb[3] {
		return false
	}

	inside := false
	j := len(pts) - 1
	for i := 0; i < len(pts); i++ {
		xi, yi := pts[i].X, pts[i].Y
		xj, yj := pts[j].X, pts[j].Y

		denom := yj - yi
		if denom == 0 {
			denom = edgeEpsilon
		}
		if (yi > y) != (yj > y) && x < (xj-xi)*(y-yi)/denom+xi {
			inside = !inside
		}
		j = i
	}
	return inside
}
