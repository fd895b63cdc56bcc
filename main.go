// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"dopplerlab/cmd"
	"dopplerlab/internal/audio"
	"dopplerlab/internal/build"
	"dopplerlab/internal/config"
	"dopplerlab/internal/log"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
)

// main is the entry point for the Doppler lab.
// The program flow is divided into three distinct phases:
//
// 1. Startup Phase (Cold Path):
//   - Initialize build information
//   - Configure runtime settings
//   - Parse command line arguments and load configuration
//   - Execute one-off commands if requested
//
// 2. Concurrent Phase (Hot Path):
//   - Start the duplex audio stream (capture and test tone)
//   - Run the analysis tick, display publishing and recording
//   - Run the dashboard or the headless summary
//
// 3. Shutdown Phase (Cold Path):
//   - Handle termination signals or a dashboard quit
//   - Finalize the recording
//   - Clean up resources
func main() {
	// ==================== STARTUP PHASE (Cold Path) ====================

	// Development builds run without ldflags; that is not fatal.
	buildErr := build.Initialize()

	// Limit OS threads to optimize for real-time audio processing:
	// - One thread dedicated to the audio callback (time-critical)
	// - One thread for analysis, UI and I/O operations
	runtime.GOMAXPROCS(2)

	inv, err := cmd.ParseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if inv == nil {
		// Help or version output only.
		return
	}

	configureLogging(inv.Config)
	if buildErr != nil {
		log.Debugf("%v", buildErr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Handle one-off commands that don't run a live session.
	if inv.Command != "" {
		if err := executeCommand(ctx, inv); err != nil {
			log.Fatalf("%v", err)
		}
		return
	}

	// ==================== CONCURRENT PHASE (Hot Path) ====================

	if err := audio.Initialize(); err != nil {
		log.Fatalf("%v", err)
	}
	defer audio.Terminate()

	// runSession returns after the shutdown phase has completed.
	if err := runSession(ctx, inv); err != nil {
		log.Errorf("%v", err)
		audio.Terminate()
		os.Exit(1)
	}
}

// configureLogging applies the configured level. Debug mode wins over the
// log_level setting.
func configureLogging(cfg *config.Config) {
	if cfg.Debug {
		log.SetLevel(log.LevelDebug)
		return
	}
	if level, ok := log.ParseLevel(cfg.LogLevel); ok {
		log.SetLevel(level)
	}
}

// executeCommand handles one-off commands that don't run a live session.
func executeCommand(ctx context.Context, inv *cmd.Invocation) error {
	switch inv.Command {
	case cmd.CommandList:
		if err := audio.Initialize(); err != nil {
			return err
		}
		defer audio.Terminate()
		if inv.Pick {
			return pickDevice(os.Stdout)
		}
		return audio.ListDevices(os.Stdout)

	case cmd.CommandAnalyze:
		return analyzeFile(ctx, inv.Config, inv.Args[0], inv.Hop, os.Stdout)
	}
	return fmt.Errorf("unknown command %q", inv.Command)
}
