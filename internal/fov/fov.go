// Package fov computes a camera's wall-occluded visibility polygon on a
// floorplan by casting rays across its angular field of view.
package fov

import (
	"math"

	"github.com/floorwatch/floorwatch/internal/geo"
)

// selfHitEpsilon excludes intersections at the ray origin itself: only hits
// with a strictly positive squared distance count.
const selfHitEpsilon = 1e-9

// Config holds the ray casting parameters.
type Config struct {
	// RangeM is how far a ray travels before terminating unobstructed.
	RangeM float64
	// HalfAngleDeg is half the camera's horizontal field of view.
	HalfAngleDeg float64
	// NumRays is the number of angular intervals; NumRays+1 rays are cast.
	NumRays int
}

// DefaultConfig matches the deployed camera optics.
func DefaultConfig() Config {
	return Config{
		RangeM:       20.0,
		HalfAngleDeg: 33.5,
		NumRays:      100,
	}
}

// MathAngleDeg converts a compass heading (0 = north, clockwise) to a
// mathematical angle (0 = east, counter-clockwise).
func MathAngleDeg(headingDeg float64) float64 {
	a := math.Mod(450-headingDeg, 360)
	if a < 0 {
		a += 360
	}
	return a
}

// BoundaryPolygon is the floorplan's outer rectangle, cast against alongside
// the walls so rays always stop at the room edge.
func BoundaryPolygon(width, depth float64) []geo.Point {
	return []geo.Point{
		{X: 0, Y: 0},
		{X: width, Y: 0},
		{X: width, Y: depth},
		{X: 0, Y: depth},
	}
}

// VisibilityPolygon casts rays from the camera position across the field of
// view and clips each at the nearest wall or boundary hit. The returned
// polygon starts with the camera's own position followed by the ordered ray
// endpoints.
func VisibilityPolygon(camera geo.Point, headingDeg float64, walls [][]geo.Point, boundary []geo.Point, cfg Config) []geo.Point {
	if cfg.NumRays < 1 {
		cfg = DefaultConfig()
	}

	polys := make([][]geo.Point, 0, len(walls)+1)
	polys = append(polys, walls...)
	if len(boundary) >= 3 {
		polys = append(polys, boundary)
	}

	center := MathAngleDeg(headingDeg)
	startDeg := center - cfg.HalfAngleDeg
	endDeg := center + cfg.HalfAngleDeg

	out := make([]geo.Point, 0, cfg.NumRays+2)
	out = append(out, camera)

	for i := 0; i <= cfg.NumRays; i++ {
		angleDeg := startDeg + float64(i)/float64(cfg.NumRays)*(endDeg-startDeg)
		angle := angleDeg * math.Pi / 180

		end := geo.Point{
			X: camera.X + cfg.RangeM*math.Cos(angle),
			Y: camera.Y + cfg.RangeM*math.Sin(angle),
		}

		closest := end
		minDistSq := cfg.RangeM * cfg.RangeM

		for _, poly := range polys {
			for j := 0; j < len(poly); j++ {
				a := poly[j]
				b := poly[(j+1)%len(poly)]
				hit, ok := segmentIntersection(camera, end, a, b)
				if !ok {
					continue
				}
				dx := hit.X - camera.X
				dy := hit.Y - camera.Y
				distSq := dx*dx + dy*dy
				if distSq > selfHitEpsilon && distSq < minDistSq {
					minDistSq = distSq
					closest = hit
				}
			}
		}

		out = append(out, closest)
	}

	return out
}

// segmentIntersection returns the intersection point of segments p1-p2 and
// p3-p4, if any. Parallel and collinear segments report no intersection.
func segmentIntersection(p1, p2, p3, p4 geo.Point) (geo.Point, bool) {
	d1x := p2.X - p1.X
	d1y := p2.Y - p1.Y
	d2x := p4.X - p3.X
	d2y := p4.Y - p3.Y

	denom := d1x*d2y - d1y*d2x
	if math.Abs(denom) < 1e-12 {
		return geo.Point{}, false
	}

	t := ((p3.X-p1.X)*d2y - (p3.Y-p1.Y)*d2x) / denom
	u := ((p3.X-p1.X)*d1y - (p3.Y-p1.Y)*d1x) / denom

	if t < 0 || t > 1 || u < 0 || u > 1 {
		return geo.Point{}, false
	}
	return geo.Point{X: p1.X + t*d1x, Y: p1.Y + t*d1y}, true
}
