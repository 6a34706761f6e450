package fusion

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/floorwatch/floorwatch/internal/geo"
)

// Sample is one historical fused position of a global track.
type Sample struct {
	Point geo.Point `json:"point"`
	At    time.Time `json:"at"`
}

// Stats summarizes a track's movement over a window of position history.
type Stats struct {
	Samples   int           `json:"samples"`
	Dwell     time.Duration `json:"dwell"`
	DistanceM float64       `json:"distance_m"`
	SpeedP50  float64       `json:"speed_p50_mps"`
	SpeedP85  float64       `json:"speed_p85_mps"`
	SpeedP95  float64       `json:"speed_p95_mps"`
	PeakSpeed float64       `json:"peak_speed_mps"`
}

// ComputeStats derives dwell time, path length, and speed percentiles from
// time-ordered position samples. Pairs with a non-positive time delta are
// skipped for speed purposes but still contribute to path length.
func ComputeStats(samples []Sample) Stats {
	s := Stats{Samples: len(samples)}
	if len(samples) < 2 {
		return s
	}

	s.Dwell = samples[len(samples)-1].At.Sub(samples[0].At)

	speeds := make([]float64, 0, len(samples)-1)
	for i := 1; i < len(samples); i++ {
		d := geo.EuclideanMeters(samples[i-1].Point, samples[i].Point)
		s.DistanceM += d

		dt := samples[i].At.Sub(samples[i-1].At).Seconds()
		if dt <= 0 {
			continue
		}
		v := d / dt
		speeds = append(speeds, v)
		if v > s.PeakSpeed {
			s.PeakSpeed = v
		}
	}
	if len(speeds) == 0 {
		return s
	}

	sort.Float64s(speeds)
	s.SpeedP50 = stat.Quantile(0.50, stat.Empirical, speeds, nil)
	s.SpeedP85 = stat.Quantile(0.85, stat.Empirical, speeds, nil)
	s.SpeedP95 = stat.Quantile(0.95, stat.Empirical, speeds, nil)
	return s
}
