// SPDX-License-Identifier: MIT
package main

import (
	"bytes"
	"context"
	"dopplerlab/internal/analysis"
	"dopplerlab/internal/config"
	"dopplerlab/internal/gesture"
	"dopplerlab/internal/log"
	"dopplerlab/internal/transport"
	"dopplerlab/internal/transport/udp"
	"dopplerlab/pkg/utils"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

func writeSineWAV(t *testing.T, frames int, rate float64) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tones.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	samples := utils.GenerateTwoTones(frames, rate, 440, 0.6, 1500, 0.3)
	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(math.Round(float64(s) * 32767))
	}

	enc := wav.NewEncoder(f, int(rate), 16, 1, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: int(rate)},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestAnalyzeFile(t *testing.T) {
	path := writeSineWAV(t, 16384, 44100)
	cfg := config.Default()
	cfg.Analysis.BlockSize = 4096

	var out bytes.Buffer
	if err := analyzeFile(context.Background(), cfg, path, 1024, &out); err != nil {
		t.Fatalf("analyzeFile: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	// A header plus one line per warm tick: ticks at 4096, 5120, ... 16384.
	if len(lines) != 1+13 {
		t.Fatalf("got %d lines:\n%s", len(lines), out.String())
	}
	if !strings.Contains(lines[0], "1 channels, 44100 Hz") {
		t.Errorf("header = %q", lines[0])
	}
	// Bin 41 of a 4096-point transform at 44.1 kHz.
	if !strings.Contains(lines[1], "441.4 Hz") {
		t.Errorf("first tick = %q, want the 440 Hz tone at 441.4 Hz", lines[1])
	}
}

func TestAnalyzeFileErrors(t *testing.T) {
	cfg := config.Default()
	if err := analyzeFile(context.Background(), cfg, filepath.Join(t.TempDir(), "missing.wav"), 512, &bytes.Buffer{}); err == nil {
		t.Error("expected an error for a missing file")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cfg.Analysis.BlockSize = 1024
	path := writeSineWAV(t, 4096, 8000)
	if err := analyzeFile(ctx, cfg, path, 512, &bytes.Buffer{}); !errors.Is(err, context.Canceled) {
		t.Errorf("canceled analysis: expected context.Canceled, got %v", err)
	}
}

func TestBuildTransport(t *testing.T) {
	cfg := config.Default()
	sink, err := buildTransport(cfg)
	if err != nil || sink != nil {
		t.Errorf("no transports: (%v, %v), want (nil, nil)", sink, err)
	}

	cfg.Transport.UDPEnabled = true
	sink, err = buildTransport(cfg)
	if err != nil {
		t.Fatalf("udp: %v", err)
	}
	if _, ok := sink.(*udp.UDPPublisher); !ok {
		t.Errorf("udp only: got %T", sink)
	}
	sink.Close()

	cfg.Transport.WebSocketEnabled = true
	cfg.Transport.WebSocketAddress = "127.0.0.1:0"
	cfg.Transport.LogEnabled = true
	sink, err = buildTransport(cfg)
	if err != nil {
		t.Fatalf("all transports: %v", err)
	}
	multi, ok := sink.(transport.Multi)
	if !ok || len(multi) != 3 {
		t.Fatalf("all transports: got %T %v", sink, sink)
	}
	if err := sink.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}

	cfg.Transport.WebSocketAddress = "not an address"
	if _, err := buildTransport(cfg); err == nil {
		t.Error("expected an error for a bad websocket address")
	}
}

func TestFormatSnapshot(t *testing.T) {
	tones := formatSnapshot(analysis.Snapshot{Mode: analysis.ModeTones, Frequencies: [2]float64{440, 1500}, Level: -6})
	if !strings.Contains(tones, "440.0 Hz") || strings.Contains(tones, "target") {
		t.Errorf("tone line = %q", tones)
	}

	g := formatSnapshot(analysis.Snapshot{
		Mode:            analysis.ModeGesture,
		TargetFrequency: 18000,
		State:           gesture.Comparing,
		Label:           gesture.LabelMovingIn,
	})
	for _, want := range []string{"target 18000 Hz", "[comparing]", gesture.LabelMovingIn} {
		if !strings.Contains(g, want) {
			t.Errorf("gesture line %q missing %q", g, want)
		}
	}
}

func TestConfigureLogging(t *testing.T) {
	t.Cleanup(func() { log.SetLevel(log.LevelInfo) })

	cfg := config.Default()
	cfg.LogLevel = "warn"
	configureLogging(cfg)
	if log.GetLevel() != log.LevelWarn {
		t.Errorf("level = %v, want WARN", log.GetLevel())
	}

	cfg.Debug = true
	configureLogging(cfg)
	if log.GetLevel() != log.LevelDebug {
		t.Errorf("debug mode level = %v, want DEBUG", log.GetLevel())
	}
}
