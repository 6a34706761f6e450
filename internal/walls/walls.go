// Package walls vectorizes a floorplan's reference image into simplified
// wall polygons for occlusion checks. Vectorization runs once per floorplan
// and the result is cached; walls are read-only at runtime.
package walls

import (
	"fmt"
	"sync"

	"gocv.io/x/gocv"

	"github.com/floorwatch/floorwatch/internal/geo"
	"github.com/floorwatch/floorwatch/internal/monitoring"
)

// Config tunes the image-to-polygon pipeline.
type Config struct {
	// Threshold separates wall ink from background, 0-255 grayscale.
	Threshold float32
	// EpsilonFrac is the polygon simplification tolerance as a fraction of
	// each contour's arc length.
	EpsilonFrac float64
	// MinAreaPx drops speck contours below this pixel area.
	MinAreaPx float64
}

// DefaultConfig works for black-on-white architectural drawings.
func DefaultConfig() Config {
	return Config{
		Threshold:   128,
		EpsilonFrac: 0.01,
		MinAreaPx:   25,
	}
}

// Vectorizer extracts and caches wall polygons per floorplan.
type Vectorizer struct {
	cfg Config

	mu    sync.Mutex
	cache map[int64][][]geo.Point

	// swapped in tests to avoid reading real images
	extract func(imagePath string, widthM, depthM float64) ([][]geo.Point, error)
}

// NewVectorizer returns a vectorizer with zero config fields replaced by the
// defaults.
func NewVectorizer(cfg Config) *Vectorizer {
	if cfg.Threshold == 0 {
		cfg.Threshold = DefaultConfig().Threshold
	}
	if cfg.EpsilonFrac == 0 {
		cfg.EpsilonFrac = DefaultConfig().EpsilonFrac
	}
	if cfg.MinAreaPx == 0 {
		cfg.MinAreaPx = DefaultConfig().MinAreaPx
	}
	v := &Vectorizer{
		cfg:   cfg,
		cache: make(map[int64][][]geo.Point),
	}
	v.extract = func(imagePath string, widthM, depthM float64) ([][]geo.Point, error) {
		return vectorize(imagePath, widthM, depthM, v.cfg)
	}
	return v
}

// WallPolygons returns the wall polygons for a floorplan, vectorizing its
// reference image on the first call and serving the cache afterwards.
func (v *Vectorizer) WallPolygons(floorplanID int64, imagePath string, widthM, depthM float64) ([][]geo.Point, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if cached, ok := v.cache[floorplanID]; ok {
		return cached, nil
	}

	polys, err := v.extract(imagePath, widthM, depthM)
	if err != nil {
		return nil, fmt.Errorf("vectorize floorplan %d: %w", floorplanID, err)
	}
	monitoring.Logf("walls: floorplan %d vectorized, %d polygons", floorplanID, len(polys))
	v.cache[floorplanID] = polys
	return polys, nil
}

// Invalidate drops a floorplan's cached polygons, forcing re-vectorization on
// the next request. Call after replacing the reference image.
func (v *Vectorizer) Invalidate(floorplanID int64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.cache, floorplanID)
}

// vectorize runs grayscale load, binary threshold, contour extraction and
// polygon simplification, then scales pixel coordinates to floorplan meters.
// The image origin is top-left with y down; floorplan coordinates are
// bottom-left with y up, so y is flipped.
func vectorize(imagePath string, widthM, depthM float64, cfg Config) ([][]geo.Point, error) {
	img := gocv.IMRead(imagePath, gocv.IMReadGrayScale)
	if img.Empty() {
		return nil, fmt.Errorf("read image %s: empty or unreadable", imagePath)
	}
	defer img.Close()

	cols := float64(img.Cols())
	rows := float64(img.Rows())
	if cols == 0 || rows == 0 || widthM <= 0 || depthM <= 0 {
		return nil, fmt.Errorf("degenerate dimensions: image %vx%v, floorplan %vx%v m", cols, rows, widthM, depthM)
	}
	sx := widthM / cols
	sy := depthM / rows

	// Walls are dark ink: invert so they become the foreground.
	bin := gocv.NewMat()
	defer bin.Close()
	gocv.Threshold(img, &bin, cfg.Threshold, 255, gocv.ThresholdBinaryInv)

	contours := gocv.FindContours(bin, gocv.RetrievalList, gocv.ChainApproxSimple)
	defer contours.Close()

	var polys [][]geo.Point
	for i := 0; i < contours.Size(); i++ {
		contour := contours.At(i)
		if gocv.ContourArea(contour) < cfg.MinAreaPx {
			continue
		}

		eps := cfg.EpsilonFrac * gocv.ArcLength(contour, true)
		approx := gocv.ApproxPolyDP(contour, eps, true)
		pts := approx.ToPoints()
		approx.Close()
		if len(pts) < 3 {
			continue
		}

		poly := make([]geo.Point, 0, len(pts))
		for _, p := range pts {
			poly = append(poly, geo.Point{
				X: float64(p.X) * sx,
				Y: (rows - float64(p.Y)) * sy,
			})
		}
		polys = append(polys, poly)
	}
	return polys, nil
}
