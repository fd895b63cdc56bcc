// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	tmp := t.TempDir()
	path := filepath.Join(tmp, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
	if cfg == nil {
		t.Error("expected default config, got nil")
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	cfg, err := LoadConfig("nonexistent.yaml")
	if err == nil {
		t.Errorf("expected error for missing file, got nil")
	}
	if cfg != nil {
		t.Errorf("expected nil config on error, got %+v", cfg)
	}
}

func TestLoadConfig_UnmarshalError(t *testing.T) {
	path := writeTempConfig(t, ":\n:bad")
	_, err := LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "failed to parse config file") {
		t.Error("expected unmarshal error, got nil or wrong error")
	}
}

func TestLoadConfig_FileOverridesDefaults(t *testing.T) {
	path := writeTempConfig(t, `
log_level: debug
audio:
  sample_rate: 44100
  input_channels: 2
analysis:
  mode: gesture
  block_size: 4096
  analysis_interval: 250ms
gesture:
  target_frequency: 18000
  classifier: single
recording:
  enabled: true
  bit_depth: 24
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.LogLevel != "debug" || cfg.Audio.SampleRate != 44100 || cfg.Audio.InputChannels != 2 {
		t.Errorf("top-level/audio fields not loaded: %+v", cfg)
	}
	if cfg.Analysis.Mode != ModeGesture || cfg.Analysis.BlockSize != 4096 {
		t.Errorf("analysis fields not loaded: %+v", cfg.Analysis)
	}
	if cfg.Analysis.AnalysisInterval != 250*time.Millisecond {
		t.Errorf("analysis_interval = %v, want 250ms", cfg.Analysis.AnalysisInterval)
	}
	if cfg.Gesture.TargetFrequency != 18000 || cfg.Gesture.Classifier != "single" {
		t.Errorf("gesture fields not loaded: %+v", cfg.Gesture)
	}
	if !cfg.Recording.Enabled || cfg.Recording.BitDepth != 24 {
		t.Errorf("recording fields not loaded: %+v", cfg.Recording)
	}

	// Untouched fields keep their defaults.
	if cfg.Analysis.PeakWindow != DefaultPeakWindow || cfg.Gesture.HalfWidth != DefaultHalfWidth {
		t.Errorf("defaults lost: peak_window %d half_width %d", cfg.Analysis.PeakWindow, cfg.Gesture.HalfWidth)
	}
}

func TestLoadConfig_InvalidFile(t *testing.T) {
	path := writeTempConfig(t, "analysis:\n  block_size: 1000\n")
	_, err := LoadConfig(path)
	if !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid, got %v", err)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("DOPPLER_MODE", "gesture")
	t.Setenv("DOPPLER_TARGET_FREQUENCY", "17250.5")
	t.Setenv("DOPPLER_UDP_ENABLED", "true")
	t.Setenv("DOPPLER_ANALYSIS_INTERVAL", "40ms")

	cfg, err := LoadConfig(writeTempConfig(t, "analysis:\n  mode: tones\n"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Analysis.Mode != ModeGesture {
		t.Errorf("mode = %q, env override not applied after file", cfg.Analysis.Mode)
	}
	if cfg.Gesture.TargetFrequency != 17250.5 {
		t.Errorf("target_frequency = %v, want 17250.5", cfg.Gesture.TargetFrequency)
	}
	if !cfg.Transport.UDPEnabled {
		t.Error("udp_enabled override not applied")
	}
	if cfg.Analysis.AnalysisInterval != 40*time.Millisecond {
		t.Errorf("analysis_interval = %v, want 40ms", cfg.Analysis.AnalysisInterval)
	}
}

func TestLoadConfig_MalformedEnv(t *testing.T) {
	t.Setenv("DOPPLER_BLOCK_SIZE", "lots")
	if _, err := LoadConfig(""); !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid for malformed env value, got %v", err)
	}
}
