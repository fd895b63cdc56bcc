// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"time"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Core configuration constants that define the boundaries and defaults
// of an analysis session.
const (
	// Audio device defaults.
	DefaultDeviceID        = MinDeviceID // System default device.
	DefaultSampleRate      = 48000       // Requested rate; the stream reports the real one.
	DefaultFramesPerBuffer = 512         // Balanced latency/performance.
	DefaultInputChannels   = 1
	DefaultOutputChannels  = 2

	// Analysis defaults.
	DefaultMode             = "tones"
	DefaultBlockSize        = 16384 // Transform size N.
	DefaultFFTWindow        = "Hann"
	DefaultFFTBackend       = "gonum"
	DefaultPeakWindow       = 16
	DefaultAnalysisInterval = 100 * time.Millisecond
	DefaultDisplayInterval  = 50 * time.Millisecond

	// Gesture defaults.
	DefaultClassifier         = "two_sided"
	DefaultTargetFrequency    = 15000.0
	DefaultMinFrequency       = 15000.0
	DefaultMaxFrequency       = 20000.0
	DefaultHalfWidth          = 10
	DefaultBaselineSamples    = 100
	DefaultStillnessThreshold = 0.07
	DefaultToneAmplitude      = 0.5

	// Recording defaults.
	DefaultOutputDir     = "./recordings"
	DefaultBitDepth      = 16
	DefaultFlushInterval = 50 * time.Millisecond

	// Transport defaults.
	DefaultWebSocketAddress = "127.0.0.1:8080"
	DefaultUDPTargetAddress = "127.0.0.1:9090"

	// Hardware and processing limits.
	MinDeviceID     = -1     // -1 represents the system default device.
	MinSampleRate   = 8000   // Minimum usable sample rate (Hz).
	MaxSampleRate   = 192000 // Maximum supported sample rate (Hz).
	MaxBufferFrames = 8192   // Maximum frames per buffer.
	MaxChannels     = 32
	MaxBlockSize    = 1 << 20
)

// Analysis modes.
const (
	ModeTones   = "tones"
	ModeGesture = "gesture"
)

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	Debug     bool            `yaml:"debug"`     // Enable debug mode (forces debug logging).
	LogLevel  string          `yaml:"log_level"` // Logging level (e.g., "debug", "info", "warn", "error").
	Audio     AudioConfig     `yaml:"audio"`     // Audio device settings.
	Analysis  AnalysisConfig  `yaml:"analysis"`  // Spectrum and peak settings.
	Gesture   GestureConfig   `yaml:"gesture"`   // Doppler gesture settings.
	Recording RecordingConfig `yaml:"recording"` // Audio recording settings.
	Transport TransportConfig `yaml:"transport"` // Display transport settings.
}

// AudioConfig holds settings related to audio input/output.
type AudioConfig struct {
	InputDevice     int     `yaml:"input_device"`      // PortAudio device index for audio input (-1 for default).
	OutputDevice    int     `yaml:"output_device"`     // PortAudio device index for the test tone (-1 for default).
	SampleRate      float64 `yaml:"sample_rate"`       // Requested sample rate in Hz.
	FramesPerBuffer int     `yaml:"frames_per_buffer"` // Frames per PortAudio callback.
	LowLatency      bool    `yaml:"low_latency"`       // Request low latency settings from PortAudio device.
	InputChannels   int     `yaml:"input_channels"`    // Number of input channels to capture.
	OutputChannels  int     `yaml:"output_channels"`   // Number of output channels for the test tone (0 disables output).
	RingCapacity    int     `yaml:"ring_capacity"`     // Ring buffer capacity in samples per channel (0 = next power of two >= block size).
}

// AnalysisConfig holds settings for the spectrum front end and peak extraction.
type AnalysisConfig struct {
	Mode             string        `yaml:"mode"`              // "tones" or "gesture".
	BlockSize        int           `yaml:"block_size"`        // Transform size N, a power of two.
	FFTWindow        string        `yaml:"fft_window"`        // Window function name (e.g., "Hann", "Hamming").
	FFTBackend       string        `yaml:"fft_backend"`       // "gonum" or "godsp".
	PeakWindow       int           `yaml:"peak_window"`       // Sliding window width W in bins.
	AnalysisInterval time.Duration `yaml:"analysis_interval"` // Period of the analysis tick.
	DisplayInterval  time.Duration `yaml:"display_interval"`  // Period of display publishing.
}

// GestureConfig holds settings for the Doppler gesture classifier.
type GestureConfig struct {
	Classifier         string  `yaml:"classifier"`          // "two_sided" or "single".
	TargetFrequency    float64 `yaml:"target_frequency"`    // Test tone frequency in Hz.
	MinFrequency       float64 `yaml:"min_frequency"`       // Lowest selectable target.
	MaxFrequency       float64 `yaml:"max_frequency"`       // Highest selectable target.
	HalfWidth          int     `yaml:"half_width"`          // Sideband half-width R in bins.
	BaselineSamples    int     `yaml:"baseline_samples"`    // Readings averaged into the baseline.
	StillnessThreshold float64 `yaml:"stillness_threshold"` // Largest drift reported as still.
	LegacyDivisor      bool    `yaml:"legacy_divisor"`      // Use the legacy (R - lo) sideband divisors.
	ToneAmplitude      float64 `yaml:"tone_amplitude"`      // Test tone peak amplitude in [0, 1].
}

// RecordingConfig holds settings related to audio recording functionality.
type RecordingConfig struct {
	Enabled       bool          `yaml:"enabled"`        // Record the captured input to a WAV file.
	OutputDir     string        `yaml:"output_dir"`     // Directory to save recorded audio files.
	BitDepth      int           `yaml:"bit_depth"`      // Bit depth for recorded audio (16 or 24).
	FlushInterval time.Duration `yaml:"flush_interval"` // How often the recorder drains the ring buffer.
}

// TransportConfig holds settings for publishing display data.
type TransportConfig struct {
	WebSocketEnabled bool   `yaml:"websocket_enabled"`  // Serve display frames over a websocket.
	WebSocketAddress string `yaml:"websocket_address"`  // Listen address for the websocket server.
	UDPEnabled       bool   `yaml:"udp_enabled"`        // Send display frames over UDP.
	UDPTargetAddress string `yaml:"udp_target_address"` // Target address and port for UDP packets (e.g., "127.0.0.1:9090").
	LogEnabled       bool   `yaml:"log_enabled"`        // Log a summary of every display frame at debug level.
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Audio: AudioConfig{
			InputDevice:     DefaultDeviceID,
			OutputDevice:    DefaultDeviceID,
			SampleRate:      DefaultSampleRate,
			FramesPerBuffer: DefaultFramesPerBuffer,
			InputChannels:   DefaultInputChannels,
			OutputChannels:  DefaultOutputChannels,
		},
		Analysis: AnalysisConfig{
			Mode:             DefaultMode,
			BlockSize:        DefaultBlockSize,
			FFTWindow:        DefaultFFTWindow,
			FFTBackend:       DefaultFFTBackend,
			PeakWindow:       DefaultPeakWindow,
			AnalysisInterval: DefaultAnalysisInterval,
			DisplayInterval:  DefaultDisplayInterval,
		},
		Gesture: GestureConfig{
			Classifier:         DefaultClassifier,
			TargetFrequency:    DefaultTargetFrequency,
			MinFrequency:       DefaultMinFrequency,
			MaxFrequency:       DefaultMaxFrequency,
			HalfWidth:          DefaultHalfWidth,
			BaselineSamples:    DefaultBaselineSamples,
			StillnessThreshold: DefaultStillnessThreshold,
			ToneAmplitude:      DefaultToneAmplitude,
		},
		Recording: RecordingConfig{
			OutputDir:     DefaultOutputDir,
			BitDepth:      DefaultBitDepth,
			FlushInterval: DefaultFlushInterval,
		},
		Transport: TransportConfig{
			WebSocketAddress: DefaultWebSocketAddress,
			UDPTargetAddress: DefaultUDPTargetAddress,
		},
	}
}

// ClampTarget bounds f to the configured target frequency range.
func (c *Config) ClampTarget(f float64) float64 {
	return min(max(f, c.Gesture.MinFrequency), c.Gesture.MaxFrequency)
}
