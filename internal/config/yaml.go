// SPDX-License-Identifier: MIT
package config

import (
	"dopplerlab/internal/log"
	"dopplerlab/pkg/bitint"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "DOPPLER_"

// LoadConfig loads configuration from a YAML file specified by path. If path is empty,
// it searches default locations ("config.yaml"). If no file is found, it uses built-in
// defaults. A .env file in the working directory is loaded first, so its values act as
// environment overrides. After loading defaults or from file, it applies environment
// variable overrides and validates the final configuration.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warnf("configuration: ignoring unreadable .env file: %v", err)
	}

	cfg := Default()

	if path == "" {
		candidates := []string{
			"config.yaml",
			"dopplerlab.yaml",
		}
		for _, candidate := range candidates {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Apply environment variable overrides AFTER loading from file.
	if err := cfg.applyEnvOverrides(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks ranges and cross-field constraints. Window and backend
// names are checked by the analysis package when it builds the pipeline.
func (c *Config) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if _, ok := log.ParseLevel(c.LogLevel); !ok {
		fail("log_level '%s' is not a known level", c.LogLevel)
	}

	// Audio
	a := c.Audio
	if a.InputDevice < MinDeviceID || a.OutputDevice < MinDeviceID {
		fail("audio devices must be >= %d", MinDeviceID)
	}
	if a.SampleRate < MinSampleRate || a.SampleRate > MaxSampleRate {
		fail("audio.sample_rate %v outside [%d, %d]", a.SampleRate, MinSampleRate, MaxSampleRate)
	}
	if a.FramesPerBuffer < 1 || a.FramesPerBuffer > MaxBufferFrames {
		fail("audio.frames_per_buffer %d outside [1, %d]", a.FramesPerBuffer, MaxBufferFrames)
	}
	if a.InputChannels < 1 || a.InputChannels > MaxChannels {
		fail("audio.input_channels %d outside [1, %d]", a.InputChannels, MaxChannels)
	}
	if a.OutputChannels < 0 || a.OutputChannels > MaxChannels {
		fail("audio.output_channels %d outside [0, %d]", a.OutputChannels, MaxChannels)
	}
	if a.RingCapacity != 0 && a.RingCapacity < c.Analysis.BlockSize {
		fail("audio.ring_capacity %d is smaller than analysis.block_size %d", a.RingCapacity, c.Analysis.BlockSize)
	}

	// Analysis
	an := c.Analysis
	if an.Mode != ModeTones && an.Mode != ModeGesture {
		fail("analysis.mode '%s' must be '%s' or '%s'", an.Mode, ModeTones, ModeGesture)
	}
	if !bitint.IsPowerOfTwo(an.BlockSize) || an.BlockSize < 2 || an.BlockSize > MaxBlockSize {
		fail("analysis.block_size %d must be a power of two in [2, %d]", an.BlockSize, MaxBlockSize)
	}
	if an.PeakWindow < 2 || an.PeakWindow > an.BlockSize/2 {
		fail("analysis.peak_window %d outside [2, block_size/2]", an.PeakWindow)
	}
	if an.AnalysisInterval <= 0 {
		fail("analysis.analysis_interval must be positive")
	}
	if an.DisplayInterval < 0 {
		fail("analysis.display_interval must not be negative")
	}

	// Gesture
	g := c.Gesture
	if g.MinFrequency < 0 || g.MinFrequency > g.MaxFrequency {
		fail("gesture frequency range [%v, %v] is empty", g.MinFrequency, g.MaxFrequency)
	}
	if g.MaxFrequency >= a.SampleRate/2 {
		fail("gesture.max_frequency %v must be below the Nyquist frequency %v", g.MaxFrequency, a.SampleRate/2)
	}
	if g.TargetFrequency < g.MinFrequency || g.TargetFrequency > g.MaxFrequency {
		fail("gesture.target_frequency %v outside [%v, %v]", g.TargetFrequency, g.MinFrequency, g.MaxFrequency)
	}
	if g.HalfWidth < 1 {
		fail("gesture.half_width must be at least 1")
	}
	if g.BaselineSamples < 1 {
		fail("gesture.baseline_samples must be at least 1")
	}
	if g.StillnessThreshold < 0 {
		fail("gesture.stillness_threshold must not be negative")
	}
	if g.ToneAmplitude < 0 || g.ToneAmplitude > 1 {
		fail("gesture.tone_amplitude %v outside [0, 1]", g.ToneAmplitude)
	}

	// Recording
	if c.Recording.Enabled {
		if c.Recording.BitDepth != 16 && c.Recording.BitDepth != 24 {
			fail("recording.bit_depth %d must be 16 or 24", c.Recording.BitDepth)
		}
		if c.Recording.OutputDir == "" {
			fail("recording.output_dir must be set when recording is enabled")
		}
		if c.Recording.FlushInterval <= 0 {
			fail("recording.flush_interval must be positive")
		}
	}

	// Transport
	if c.Transport.UDPEnabled && !strings.Contains(c.Transport.UDPTargetAddress, ":") {
		fail("transport.udp_target_address '%s' appears invalid (missing port?)", c.Transport.UDPTargetAddress)
	}
	if c.Transport.WebSocketEnabled && !strings.Contains(c.Transport.WebSocketAddress, ":") {
		fail("transport.websocket_address '%s' appears invalid (missing port?)", c.Transport.WebSocketAddress)
	}

	return errors.Join(errs...)
}

// RingCapacity returns the configured ring capacity, or the next power of two
// that holds one analysis block when none is configured.
func (c *Config) RingCapacity() int {
	if c.Audio.RingCapacity > 0 {
		return c.Audio.RingCapacity
	}
	return bitint.NextPowerOfTwo(c.Analysis.BlockSize)
}

// applyEnvOverrides applies DOPPLER_* environment variables on top of the
// loaded configuration. Malformed values are configuration errors.
func (c *Config) applyEnvOverrides(lookup func(string) (string, bool)) error {
	var errs []error

	str := func(key string, dst *string) {
		if val, ok := lookup(EnvPrefix + key); ok {
			*dst = val
			log.Debugf("configuration: overriding %s from env: %s", key, val)
		}
	}
	boolean := func(key string, dst *bool) {
		if val, ok := lookup(EnvPrefix + key); ok {
			b, err := strconv.ParseBool(val)
			if err != nil {
				errs = append(errs, fmt.Errorf("%w: %s%s: %v", ErrInvalid, EnvPrefix, key, err))
				return
			}
			*dst = b
			log.Debugf("configuration: overriding %s from env: %v", key, b)
		}
	}
	integer := func(key string, dst *int) {
		if val, ok := lookup(EnvPrefix + key); ok {
			n, err := strconv.Atoi(val)
			if err != nil {
				errs = append(errs, fmt.Errorf("%w: %s%s: %v", ErrInvalid, EnvPrefix, key, err))
				return
			}
			*dst = n
			log.Debugf("configuration: overriding %s from env: %d", key, n)
		}
	}
	float := func(key string, dst *float64) {
		if val, ok := lookup(EnvPrefix + key); ok {
			f, err := strconv.ParseFloat(val, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%w: %s%s: %v", ErrInvalid, EnvPrefix, key, err))
				return
			}
			*dst = f
			log.Debugf("configuration: overriding %s from env: %v", key, f)
		}
	}
	duration := func(key string, dst *time.Duration) {
		if val, ok := lookup(EnvPrefix + key); ok {
			d, err := time.ParseDuration(val)
			if err != nil {
				errs = append(errs, fmt.Errorf("%w: %s%s: %v", ErrInvalid, EnvPrefix, key, err))
				return
			}
			*dst = d
			log.Debugf("configuration: overriding %s from env: %s", key, d)
		}
	}

	boolean("DEBUG", &c.Debug)
	str("LOG_LEVEL", &c.LogLevel)

	integer("INPUT_DEVICE", &c.Audio.InputDevice)
	integer("OUTPUT_DEVICE", &c.Audio.OutputDevice)
	float("SAMPLE_RATE", &c.Audio.SampleRate)

	str("MODE", &c.Analysis.Mode)
	integer("BLOCK_SIZE", &c.Analysis.BlockSize)
	str("FFT_WINDOW", &c.Analysis.FFTWindow)
	str("FFT_BACKEND", &c.Analysis.FFTBackend)
	duration("ANALYSIS_INTERVAL", &c.Analysis.AnalysisInterval)

	float("TARGET_FREQUENCY", &c.Gesture.TargetFrequency)
	str("CLASSIFIER", &c.Gesture.Classifier)

	boolean("RECORDING_ENABLED", &c.Recording.Enabled)
	str("RECORDING_OUTPUT_DIR", &c.Recording.OutputDir)

	boolean("WEBSOCKET_ENABLED", &c.Transport.WebSocketEnabled)
	str("WEBSOCKET_ADDRESS", &c.Transport.WebSocketAddress)
	boolean("UDP_ENABLED", &c.Transport.UDPEnabled)
	str("UDP_TARGET_ADDRESS", &c.Transport.UDPTargetAddress)

	return errors.Join(errs...)
}
