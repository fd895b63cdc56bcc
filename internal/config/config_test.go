// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default configuration is invalid: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown log level", func(c *Config) { c.LogLevel = "chatty" }},
		{"sample rate too low", func(c *Config) { c.Audio.SampleRate = 100 }},
		{"no input channels", func(c *Config) { c.Audio.InputChannels = 0 }},
		{"ring smaller than block", func(c *Config) { c.Audio.RingCapacity = 1024 }},
		{"unknown mode", func(c *Config) { c.Analysis.Mode = "beats" }},
		{"block not power of two", func(c *Config) { c.Analysis.BlockSize = 12000 }},
		{"peak window too small", func(c *Config) { c.Analysis.PeakWindow = 1 }},
		{"zero tick", func(c *Config) { c.Analysis.AnalysisInterval = 0 }},
		{"empty frequency range", func(c *Config) { c.Gesture.MinFrequency = 21000 }},
		{"target above nyquist", func(c *Config) {
			c.Audio.SampleRate = 32000
		}},
		{"target outside range", func(c *Config) { c.Gesture.TargetFrequency = 1000 }},
		{"zero baseline", func(c *Config) { c.Gesture.BaselineSamples = 0 }},
		{"loud tone", func(c *Config) { c.Gesture.ToneAmplitude = 1.5 }},
		{"bad bit depth", func(c *Config) {
			c.Recording.Enabled = true
			c.Recording.BitDepth = 12
		}},
		{"udp address without port", func(c *Config) {
			c.Transport.UDPEnabled = true
			c.Transport.UDPTargetAddress = "localhost"
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
				t.Errorf("expected ErrInvalid, got %v", err)
			}
		})
	}
}

func TestRingCapacity(t *testing.T) {
	cfg := Default()
	if got := cfg.RingCapacity(); got != DefaultBlockSize {
		t.Errorf("RingCapacity() = %d, want %d", got, DefaultBlockSize)
	}

	cfg.Audio.RingCapacity = 50000
	if got := cfg.RingCapacity(); got != 50000 {
		t.Errorf("RingCapacity() = %d, want 50000", got)
	}
}

func TestClampTarget(t *testing.T) {
	cfg := Default()
	tests := []struct{ in, want float64 }{
		{14000, DefaultMinFrequency},
		{17000, 17000},
		{25000, DefaultMaxFrequency},
	}
	for _, tt := range tests {
		if got := cfg.ClampTarget(tt.in); got != tt.want {
			t.Errorf("ClampTarget(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
