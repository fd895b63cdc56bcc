// SPDX-License-Identifier: MIT
/*
Package audio implements the real-time side of the lab:
- Duplex PortAudio stream that captures input and plays the test tone
- Lock-free handoff of captured samples through a ring buffer
- Peak metering with a branchless implementation
- WAV recording and playback of captured audio

Thread Safety:
- Uses atomic operations for state shared with the audio callback
- Pre-allocates buffers to avoid GC in hot path
- Locks OS thread during audio processing
*/
package audio

import (
	"dopplerlab/internal/config"
	"dopplerlab/internal/log"
	"dopplerlab/internal/ringbuf"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gordonklaus/portaudio"
)

// ErrEngineClosed is returned by Start after Close.
var ErrEngineClosed = errors.New("audio: engine closed")

// Engine owns the PortAudio stream. Captured input goes to the ring buffer,
// and the output channels, if any, carry the oscillator's test tone.
type Engine struct {
	// Core configuration and state.
	config *config.Config
	ring   *ringbuf.RingBuffer
	osc    *Oscillator
	meter  Meter

	// Device selection.
	inputDevice   *portaudio.DeviceInfo
	inputLatency  time.Duration
	outputDevice  *portaudio.DeviceInfo
	outputLatency time.Duration

	mu         sync.Mutex
	stream     *portaudio.Stream
	sampleRate float64
	closed     bool

	callbacks atomic.Uint64 // Number of callbacks served.
}

// NewEngine selects the configured devices. The ring buffer must have one
// channel per input channel. osc may be nil when no output is configured.
func NewEngine(cfg *config.Config, ring *ringbuf.RingBuffer, osc *Oscillator) (*Engine, error) {
	if cfg == nil || ring == nil {
		return nil, fmt.Errorf("audio: config and ring buffer are required")
	}
	if ring.Channels() != cfg.Audio.InputChannels {
		return nil, fmt.Errorf("audio: ring buffer has %d channels, input has %d",
			ring.Channels(), cfg.Audio.InputChannels)
	}
	if cfg.Audio.OutputChannels > 0 && osc == nil {
		return nil, fmt.Errorf("audio: %d output channels configured without an oscillator",
			cfg.Audio.OutputChannels)
	}

	inputDevice, err := InputDevice(cfg.Audio.InputDevice)
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:      cfg,
		ring:        ring,
		osc:         osc,
		inputDevice: inputDevice,
		sampleRate:  cfg.Audio.SampleRate,
	}

	if cfg.Audio.OutputChannels > 0 {
		outputDevice, err := OutputDevice(cfg.Audio.OutputDevice)
		if err != nil {
			return nil, err
		}
		engine.outputDevice = outputDevice
	}

	if cfg.Audio.LowLatency {
		engine.inputLatency = engine.inputDevice.DefaultLowInputLatency
		if engine.outputDevice != nil {
			engine.outputLatency = engine.outputDevice.DefaultLowOutputLatency
		}
	} else {
		engine.inputLatency = engine.inputDevice.DefaultHighInputLatency
		if engine.outputDevice != nil {
			engine.outputLatency = engine.outputDevice.DefaultHighOutputLatency
		}
	}

	return engine, nil
}

// Start opens and starts the stream. Calling Start on a running engine is a
// no-op.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrEngineClosed
	}
	if e.stream != nil {
		return nil
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: e.config.Audio.InputChannels,
			Device:   e.inputDevice,
			Latency:  e.inputLatency,
		},
		FramesPerBuffer: e.config.Audio.FramesPerBuffer,
		SampleRate:      e.config.Audio.SampleRate,
	}

	var callback any = e.processInput
	if e.outputDevice != nil {
		params.Output = portaudio.StreamDeviceParameters{
			Channels: e.config.Audio.OutputChannels,
			Device:   e.outputDevice,
			Latency:  e.outputLatency,
		}
		callback = e.processDuplex
	}

	stream, err := portaudio.OpenStream(params, callback)
	if err != nil {
		return fmt.Errorf("failed to open stream: %w", err)
	}

	// The device may not run at the requested rate.
	if info := stream.Info(); info != nil && info.SampleRate > 0 {
		e.sampleRate = info.SampleRate
	}
	if e.osc != nil {
		e.osc.SetSampleRate(e.sampleRate)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("failed to start stream: %w", err)
	}
	e.stream = stream

	log.Infof("Audio: input %q, output %s, %.0f Hz, %d frames per buffer",
		e.inputDevice.Name, e.outputName(), e.sampleRate, e.config.Audio.FramesPerBuffer)
	return nil
}

// Stop stops and closes the stream. It is safe to call on a stopped engine.
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stopLocked()
}

func (e *Engine) stopLocked() error {
	if e.stream == nil {
		return nil
	}

	stream := e.stream
	e.stream = nil

	return errors.Join(stream.Stop(), stream.Close())
}

// Close stops the stream and prevents further starts.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return e.stopLocked()
}

// SampleRate returns the rate the stream runs at, or the configured rate
// before Start.
func (e *Engine) SampleRate() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sampleRate
}

// Running reports whether the stream is started.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stream != nil
}

// Callbacks returns how many audio callbacks have been served.
func (e *Engine) Callbacks() uint64 {
	return e.callbacks.Load()
}

// Meter returns the input peak meter.
func (e *Engine) Meter() *Meter {
	return &e.meter
}

// Oscillator returns the test tone generator, or nil.
func (e *Engine) Oscillator() *Oscillator {
	return e.osc
}

func (e *Engine) outputName() string {
	if e.outputDevice == nil {
		return "disabled"
	}
	return fmt.Sprintf("%q", e.outputDevice.Name)
}

// processDuplex is the core audio processing callback.
// Performance Critical:
// - Runs in a dedicated OS thread (LockOSThread)
// - Uses pre-allocated buffers only
// - No dynamic allocations in the hot path
func (e *Engine) processDuplex(in, out [][]float32) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	e.capture(in)
	e.osc.Fill(out)
}

// processInput is the callback used when no output is configured.
func (e *Engine) processInput(in [][]float32) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	e.capture(in)
}

func (e *Engine) capture(in [][]float32) {
	e.ring.Write(in)
	if len(in) > 0 {
		e.meter.Observe(in[0])
	}
	e.callbacks.Add(1)
}
