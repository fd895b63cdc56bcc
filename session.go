// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"dopplerlab/cmd"
	"dopplerlab/internal/analysis"
	"dopplerlab/internal/audio"
	"dopplerlab/internal/build"
	"dopplerlab/internal/config"
	"dopplerlab/internal/log"
	"dopplerlab/internal/ringbuf"
	"dopplerlab/internal/transport"
	"dopplerlab/internal/transport/udp"
	"dopplerlab/internal/tui"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	// summaryInterval is the period of the headless log summary.
	summaryInterval = time.Second
	// dashboardLogFile receives debug logs while the dashboard owns the terminal.
	dashboardLogFile = "dopplerlab.log"
)

// runSession wires the live pipeline: audio callback -> ring buffer ->
// analyzer -> dashboard and display transports, with an optional recorder
// draining the same ring buffer.
func runSession(ctx context.Context, inv *cmd.Invocation) (err error) {
	cfg := inv.Config

	if inv.TUIMode {
		restore, err := redirectLogs(cfg.Debug)
		if err != nil {
			return err
		}
		defer restore()
	}

	ring, err := ringbuf.New(cfg.Audio.InputChannels, cfg.RingCapacity())
	if err != nil {
		return err
	}

	var osc *audio.Oscillator
	if cfg.Audio.OutputChannels > 0 {
		osc = audio.NewOscillator(cfg.ClampTarget(cfg.Gesture.TargetFrequency),
			cfg.Gesture.ToneAmplitude, cfg.Audio.SampleRate)
		// The tone would dominate the spectrum in tone mode.
		osc.SetMuted(cfg.Analysis.Mode != config.ModeGesture)
	}

	engine, err := audio.NewEngine(cfg, ring, osc)
	if err != nil {
		return err
	}
	// CRITICAL: Start of real-time audio processing
	if err := engine.Start(); err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, engine.Close())
	}()

	sampleRate := engine.SampleRate()
	if sampleRate != cfg.Audio.SampleRate {
		log.Warnf("Device runs at %.0f Hz instead of the requested %.0f Hz", sampleRate, cfg.Audio.SampleRate)
	}

	analyzer, err := analysis.NewAnalyzer(cfg, ring, sampleRate)
	if err != nil {
		return err
	}

	if cfg.Recording.Enabled {
		recorder, err := audio.NewRecorder(ring, sampleRate, cfg.Recording.BitDepth, cfg.Recording.FlushInterval)
		if err != nil {
			return err
		}
		if err := recorder.Start(audio.RecordingFilename(cfg.Recording.OutputDir, time.Now())); err != nil {
			return err
		}
		defer func() {
			if stopErr := recorder.Stop(); stopErr != nil {
				err = errors.Join(err, stopErr)
				return
			}
			fmt.Printf("\nRecording saved to: %s (%d frames)\n", recorder.Path(), recorder.Frames())
		}()
	}

	sink, err := buildTransport(cfg)
	if err != nil {
		return err
	}
	if sink != nil {
		publisher, err := analysis.NewDisplayPublisher(cfg.Analysis.DisplayInterval, analyzer, sink)
		if err != nil {
			sink.Close()
			return err
		}
		publisher.Start()
		defer func() {
			err = errors.Join(err, publisher.Stop(), sink.Close())
		}()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return analyzer.Run(gctx)
	})
	g.Go(func() error {
		// Quitting the front end ends the session.
		defer cancel()
		if inv.TUIMode {
			var tone tui.Tone
			if osc != nil {
				tone = osc
			}
			title := fmt.Sprintf("%s %s", build.GetBuildFlags().Name, build.GetBuildFlags().Version)
			return tui.RunDashboard(gctx, tui.NewDashboardModel(title, analyzer, tone, cfg.Analysis.DisplayInterval))
		}
		return logSummaries(gctx, analyzer, engine, summaryInterval)
	})

	return g.Wait()
}

// buildTransport returns the enabled display transports, or nil when none
// is enabled.
func buildTransport(cfg *config.Config) (transport.Transport, error) {
	var sinks transport.Multi

	if cfg.Transport.WebSocketEnabled {
		ws, err := transport.NewWebSocketTransport(cfg.Transport.WebSocketAddress)
		if err != nil {
			return nil, err
		}
		log.Infof("Display graphs at ws://%s%s", ws.Addr(), transport.GraphPath)
		sinks = append(sinks, ws)
	}

	if cfg.Transport.UDPEnabled {
		p, err := udp.NewUDPPublisher(cfg.Transport.UDPTargetAddress)
		if err != nil {
			sinks.Close()
			return nil, err
		}
		sinks = append(sinks, p)
	}

	if cfg.Transport.LogEnabled {
		sinks = append(sinks, transport.NewLoggingTransport())
	}

	switch len(sinks) {
	case 0:
		return nil, nil
	case 1:
		return sinks[0], nil
	}
	return sinks, nil
}

// logSummaries is the headless front end: one line per period until ctx is
// done.
func logSummaries(ctx context.Context, analyzer *analysis.Analyzer, engine *audio.Engine, period time.Duration) error {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			log.Infof("%s  peak %6.1f dBFS  callbacks %d", formatSnapshot(analyzer.Snapshot()),
				engine.Meter().PeakDB(), engine.Callbacks())
		}
	}
}

// formatSnapshot renders one analysis result on a single line.
func formatSnapshot(s analysis.Snapshot) string {
	line := fmt.Sprintf("%8.1f Hz %8.1f Hz  level %6.1f dBFS", s.Frequencies[0], s.Frequencies[1], s.Level)
	if s.Mode == analysis.ModeGesture {
		line += fmt.Sprintf("  target %.0f Hz  L %.3f R %.3f  [%s] %s",
			s.TargetFrequency, s.Sidebands[0], s.Sidebands[1], s.State, s.Label)
	}
	return line
}

// pickDevice runs the interactive device picker and prints the flags that
// select the chosen device.
func pickDevice(w io.Writer) error {
	sel, err := tui.PickDevice()
	if err != nil {
		return err
	}
	if !sel.Chosen {
		return nil
	}

	fmt.Fprintf(w, "Selected [%d] %s at %.0f Hz\n", sel.DeviceID, sel.Name, sel.SampleRate)
	flags := fmt.Sprintf("--sample-rate %.0f", sel.SampleRate)
	if sel.HasInput {
		flags += fmt.Sprintf(" --input-device %d", sel.DeviceID)
	}
	if sel.HasOutput {
		flags += fmt.Sprintf(" --output-device %d", sel.DeviceID)
	}
	fmt.Fprintln(w, flags)
	return nil
}

// analyzeFile feeds a WAV file through the analysis pipeline hop frames at a
// time and prints one line per tick that saw a full block.
func analyzeFile(ctx context.Context, cfg *config.Config, path string, hop int, w io.Writer) error {
	clip, err := audio.LoadWAV(path)
	if err != nil {
		return err
	}

	ring, err := ringbuf.New(len(clip.Channels), max(cfg.RingCapacity(), hop))
	if err != nil {
		return err
	}
	analyzer, err := analysis.NewAnalyzer(cfg, ring, clip.SampleRate)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "%s: %d channels, %.0f Hz, %.2f s\n", path, len(clip.Channels), clip.SampleRate, clip.Duration())

	return clip.Stream(ring, hop, func(written int) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		analyzer.Tick()
		snap := analyzer.Snapshot()
		if !snap.Warm {
			return nil
		}
		_, err := fmt.Fprintf(w, "%9.3f s  %s\n", float64(written)/clip.SampleRate, formatSnapshot(snap))
		return err
	})
}

// redirectLogs keeps log lines off the dashboard. Debug logs go to a file,
// everything else is discarded until the returned restore runs.
func redirectLogs(debug bool) (restore func(), err error) {
	if !debug {
		log.SetOutput(io.Discard)
		return func() { log.SetOutput(os.Stderr) }, nil
	}

	f, err := os.OpenFile(dashboardLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	log.SetOutput(f)
	return func() {
		log.SetOutput(os.Stderr)
		f.Close()
	}, nil
}
