// Package geo converts between geodetic coordinates and floorplan-local
// meters using an equirectangular approximation anchored at a calibrated
// reference point per floorplan.
package geo

import (
	"errors"
	"fmt"
	"math"
)

// MetersPerDegreeLat is the length of one degree of latitude. One degree of
// longitude is this scaled by cos(latitude).
const MetersPerDegreeLat = 111320.0

// EarthRadiusMeters is the mean earth radius used by the haversine formula.
const EarthRadiusMeters = 6371000.0

// ErrNotFinite is returned when a transform input is NaN or infinite.
// Inputs are never silently coerced to zero.
var ErrNotFinite = errors.New("geo: input is not finite")

// LatLon is a geodetic coordinate pair in decimal degrees.
type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Point is a floorplan-local position in meters from the bottom-left
// reference corner.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// LatToMeters converts a latitude delta in degrees to meters.
func LatToMeters(deltaLat float64) float64 {
	return deltaLat * MetersPerDegreeLat
}

// MetersToLat converts a north-south distance in meters to a latitude delta.
func MetersToLat(deltaM float64) float64 {
	return deltaM / MetersPerDegreeLat
}

// LonToMeters converts a longitude delta in degrees to meters at the given
// latitude.
func LonToMeters(deltaLon, atLat float64) float64 {
	return deltaLon * MetersPerDegreeLat * math.Cos(atLat*math.Pi/180)
}

// MetersToLon converts an east-west distance in meters to a longitude delta
// at the given latitude.
func MetersToLon(deltaM, atLat float64) float64 {
	return deltaM / (MetersPerDegreeLat * math.Cos(atLat*math.Pi/180))
}

// PositionOnFloorplan converts a geodetic position to floorplan meters
// relative to the floorplan's bottom-left reference corner. Both axes are
// folded into the positive quadrant: a position south or west of the
// reference corner comes back as its absolute offset rather than an error.
func PositionOnFloorplan(lat, lon float64, ref LatLon) (Point, error) {
	for _, v := range []float64{lat, lon, ref.Lat, ref.Lon} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Point{}, fmt.Errorf("position on floorplan (%v, %v): %w", lat, lon, ErrNotFinite)
		}
	}

	x := LonToMeters(lon-ref.Lon, ref.Lat)
	y := LatToMeters(lat - ref.Lat)
	return Point{X: math.Abs(x), Y: math.Abs(y)}, nil
}

// HaversineMeters returns the geodesic distance between two coordinates.
func HaversineMeters(a, b LatLon) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusMeters * c
}

// EuclideanMeters returns the straight-line distance between two floorplan
// points.
func EuclideanMeters(a, b Point) float64 {
	dx := b.X - a.X
	dy := b.Y - a.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Corners holds the four geodetic corner coordinates of a floorplan.
type Corners struct {
	TopLeft     LatLon `json:"top_left"`
	TopRight    LatLon `json:"top_right"`
	BottomLeft  LatLon `json:"bottom_left"`
	BottomRight LatLon `json:"bottom_right"`
}

// FloorplanCorners derives the floorplan's corner geocoordinates from one
// camera with a known geodetic position placed at (placedX, placedY) on a
// width x depth floorplan. Computed once, on the first camera placement.
func FloorplanCorners(width, depth float64, camera LatLon, placedX, placedY float64) (Corners, error) {
	for _, v := range []float64{width, depth, camera.Lat, camera.Lon, placedX, placedY} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Corners{}, fmt.Errorf("floorplan corners: %w", ErrNotFinite)
		}
	}

	upperLatDelta := depth - placedY
	lowerLatDelta := placedY
	rightLonDelta := width - placedX
	leftLonDelta := placedX

	topLat := camera.Lat + MetersToLat(upperLatDelta)
	bottomLat := camera.Lat - MetersToLat(lowerLatDelta)
	leftLon := camera.Lon - MetersToLon(leftLonDelta, camera.Lat)
	rightLon := camera.Lon + MetersToLon(rightLonDelta, camera.Lat)

	return Corners{
		TopLeft:     LatLon{Lat: topLat, Lon: leftLon},
		TopRight:    LatLon{Lat: topLat, Lon: rightLon},
		BottomLeft:  LatLon{Lat: bottomLat, Lon: leftLon},
		BottomRight: LatLon{Lat: bottomLat, Lon: rightLon},
	}, nil
}
