package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// TuningConfig is the optional startup tuning file. Every field is a
// pointer so a partial JSON file overrides only what it names; the Get*
// methods supply the defaults for everything else.
type TuningConfig struct {
	// Fusion params
	FusionDistanceM *float64 `json:"fusion_distance_m,omitempty"`
	TrackTimeout    *string  `json:"track_timeout,omitempty"` // duration string like "3s"

	// Stationary filter params
	MinSpeedMps  *float64 `json:"min_speed_mps,omitempty"`
	MinDistanceM *float64 `json:"min_distance_m,omitempty"`

	// Intrusion params
	TriggerCooldown *string `json:"trigger_cooldown,omitempty"` // duration string like "10s"

	// Field-of-view params
	FOVRangeM       *float64 `json:"fov_range_m,omitempty"`
	FOVHalfAngleDeg *float64 `json:"fov_half_angle_deg,omitempty"`
	FOVNumRays      *int     `json:"fov_num_rays,omitempty"`

	// Wall vectorization params
	WallThreshold *float64 `json:"wall_threshold,omitempty"`
	WallMinAreaPx *float64 `json:"wall_min_area_px,omitempty"`
}

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file. Fields omitted
// from the file retain their defaults, so partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.FusionDistanceM != nil && *c.FusionDistanceM <= 0 {
		return fmt.Errorf("fusion_distance_m must be positive, got %f", *c.FusionDistanceM)
	}
	if c.TrackTimeout != nil && *c.TrackTimeout != "" {
		if _, err := time.ParseDuration(*c.TrackTimeout); err != nil {
			return fmt.Errorf("invalid track_timeout '%s': %w", *c.TrackTimeout, err)
		}
	}
	if c.TriggerCooldown != nil && *c.TriggerCooldown != "" {
		if _, err := time.ParseDuration(*c.TriggerCooldown); err != nil {
			return fmt.Errorf("invalid trigger_cooldown '%s': %w", *c.TriggerCooldown, err)
		}
	}
	if c.MinSpeedMps != nil && *c.MinSpeedMps < 0 {
		return fmt.Errorf("min_speed_mps must be non-negative, got %f", *c.MinSpeedMps)
	}
	if c.MinDistanceM != nil && *c.MinDistanceM < 0 {
		return fmt.Errorf("min_distance_m must be non-negative, got %f", *c.MinDistanceM)
	}
	if c.FOVNumRays != nil && *c.FOVNumRays < 2 {
		return fmt.Errorf("fov_num_rays must be at least 2, got %d", *c.FOVNumRays)
	}
	if c.FOVHalfAngleDeg != nil && (*c.FOVHalfAngleDeg <= 0 || *c.FOVHalfAngleDeg >= 180) {
		return fmt.Errorf("fov_half_angle_deg must be in (0, 180), got %f", *c.FOVHalfAngleDeg)
	}
	return nil
}

// GetFusionDistanceM returns the fusion_distance_m value or the default.
func (c *TuningConfig) GetFusionDistanceM() float64 {
	if c.FusionDistanceM == nil {
		return 0.5
	}
	return *c.FusionDistanceM
}

// GetTrackTimeout parses and returns the TrackTimeout as a time.Duration.
func (c *TuningConfig) GetTrackTimeout() time.Duration {
	if c.TrackTimeout == nil || *c.TrackTimeout == "" {
		return 3 * time.Second
	}
	d, err := time.ParseDuration(*c.TrackTimeout)
	if err != nil {
		return 3 * time.Second
	}
	return d
}

// GetMinSpeedMps returns the min_speed_mps value or the default.
func (c *TuningConfig) GetMinSpeedMps() float64 {
	if c.MinSpeedMps == nil {
		return 0.3
	}
	return *c.MinSpeedMps
}

// GetMinDistanceM returns the min_distance_m value or the default.
func (c *TuningConfig) GetMinDistanceM() float64 {
	if c.MinDistanceM == nil {
		return 0.4
	}
	return *c.MinDistanceM
}

// GetTriggerCooldown parses and returns the TriggerCooldown as a time.Duration.
func (c *TuningConfig) GetTriggerCooldown() time.Duration {
	if c.TriggerCooldown == nil || *c.TriggerCooldown == "" {
		return 10 * time.Second
	}
	d, err := time.ParseDuration(*c.TriggerCooldown)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// GetFOVRangeM returns the fov_range_m value or the default.
func (c *TuningConfig) GetFOVRangeM() float64 {
	if c.FOVRangeM == nil {
		return 20.0
	}
	return *c.FOVRangeM
}

// GetFOVHalfAngleDeg returns the fov_half_angle_deg value or the default.
func (c *TuningConfig) GetFOVHalfAngleDeg() float64 {
	if c.FOVHalfAngleDeg == nil {
		return 33.5
	}
	return *c.FOVHalfAngleDeg
}

// GetFOVNumRays returns the fov_num_rays value or the default.
func (c *TuningConfig) GetFOVNumRays() int {
	if c.FOVNumRays == nil {
		return 100
	}
	return *c.FOVNumRays
}

// GetWallThreshold returns the wall_threshold value or the default.
func (c *TuningConfig) GetWallThreshold() float64 {
	if c.WallThreshold == nil {
		return 128
	}
	return *c.WallThreshold
}

// GetWallMinAreaPx returns the wall_min_area_px value or the default.
func (c *TuningConfig) GetWallMinAreaPx() float64 {
	if c.WallMinAreaPx == nil {
		return 25
	}
	return *c.WallMinAreaPx
}
