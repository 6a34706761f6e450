package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestEmptyConfigDefaults(t *testing.T) {
	cfg := EmptyTuningConfig()

	if cfg.GetFusionDistanceM() != 0.5 {
		t.Errorf("GetFusionDistanceM() = %f, want 0.5", cfg.GetFusionDistanceM())
	}
	if cfg.GetTrackTimeout() != 3*time.Second {
		t.Errorf("GetTrackTimeout() = %v, want 3s", cfg.GetTrackTimeout())
	}
	if cfg.GetMinSpeedMps() != 0.3 {
		t.Errorf("GetMinSpeedMps() = %f, want 0.3", cfg.GetMinSpeedMps())
	}
	if cfg.GetMinDistanceM() != 0.4 {
		t.Errorf("GetMinDistanceM() = %f, want 0.4", cfg.GetMinDistanceM())
	}
	if cfg.GetTriggerCooldown() != 10*time.Second {
		t.Errorf("GetTriggerCooldown() = %v, want 10s", cfg.GetTriggerCooldown())
	}
	if cfg.GetFOVRangeM() != 20.0 {
		t.Errorf("GetFOVRangeM() = %f, want 20", cfg.GetFOVRangeM())
	}
	if cfg.GetFOVHalfAngleDeg() != 33.5 {
		t.Errorf("GetFOVHalfAngleDeg() = %f, want 33.5", cfg.GetFOVHalfAngleDeg())
	}
	if cfg.GetFOVNumRays() != 100 {
		t.Errorf("GetFOVNumRays() = %d, want 100", cfg.GetFOVNumRays())
	}
	if cfg.GetWallThreshold() != 128 {
		t.Errorf("GetWallThreshold() = %f, want 128", cfg.GetWallThreshold())
	}
	if cfg.GetWallMinAreaPx() != 25 {
		t.Errorf("GetWallMinAreaPx() = %f, want 25", cfg.GetWallMinAreaPx())
	}
}

func TestLoadTuningConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test_config.json")

	testJSON := `{
  "fusion_distance_m": 0.8,
  "track_timeout": "5s",
  "min_speed_mps": 0.2,
  "trigger_cooldown": "30s",
  "fov_num_rays": 200
}`
	if err := os.WriteFile(configPath, []byte(testJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadTuningConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.GetFusionDistanceM() != 0.8 {
		t.Errorf("GetFusionDistanceM() = %f, want 0.8", cfg.GetFusionDistanceM())
	}
	if cfg.GetTrackTimeout() != 5*time.Second {
		t.Errorf("GetTrackTimeout() = %v, want 5s", cfg.GetTrackTimeout())
	}
	if cfg.GetMinSpeedMps() != 0.2 {
		t.Errorf("GetMinSpeedMps() = %f, want 0.2", cfg.GetMinSpeedMps())
	}
	if cfg.GetTriggerCooldown() != 30*time.Second {
		t.Errorf("GetTriggerCooldown() = %v, want 30s", cfg.GetTriggerCooldown())
	}
	if cfg.GetFOVNumRays() != 200 {
		t.Errorf("GetFOVNumRays() = %d, want 200", cfg.GetFOVNumRays())
	}

	// Omitted fields fall back to defaults
	if cfg.GetMinDistanceM() != 0.4 {
		t.Errorf("GetMinDistanceM() = %f, want default 0.4", cfg.GetMinDistanceM())
	}
	if cfg.GetFOVHalfAngleDeg() != 33.5 {
		t.Errorf("GetFOVHalfAngleDeg() = %f, want default 33.5", cfg.GetFOVHalfAngleDeg())
	}
}

func TestLoadTuningConfigRejectsBadValues(t *testing.T) {
	tmpDir := t.TempDir()

	cases := []struct {
		name string
		json string
	}{
		{"negative fusion distance", `{"fusion_distance_m": -1}`},
		{"bad duration", `{"track_timeout": "not-a-duration"}`},
		{"bad cooldown", `{"trigger_cooldown": "10 parsecs"}`},
		{"too few rays", `{"fov_num_rays": 1}`},
		{"half angle out of range", `{"fov_half_angle_deg": 200}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(tmpDir, "bad.json")
			if err := os.WriteFile(path, []byte(tc.json), 0644); err != nil {
				t.Fatalf("Failed to write test config: %v", err)
			}
			if _, err := LoadTuningConfig(path); err == nil {
				t.Error("expected an error, got nil")
			}
		})
	}
}

func TestLoadTuningConfigRejectsNonJSONExtension(t *testing.T) {
	if _, err := LoadTuningConfig("tuning.yaml"); err == nil {
		t.Error("expected an error for non-.json extension")
	}
}
