// SPDX-License-Identifier: MIT
package audio

import (
	"dopplerlab/internal/log"
	"dopplerlab/internal/ringbuf"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrAlreadyRecording is returned by Start while a recording is active.
var ErrAlreadyRecording = errors.New("already recording")

const recorderChunk = 4096

// Recorder writes captured input to a PCM WAV file. It is a second reader of
// the ring buffer with its own cursor, so the audio callback never touches
// the file. Samples the writer laps before the recorder drains them are
// counted as dropped and replaced by nothing: the file simply skips them.
type Recorder struct {
	ring       *ringbuf.RingBuffer
	sampleRate int
	bitDepth   int
	interval   time.Duration

	mu         sync.Mutex
	path       string
	outputFile *os.File
	wavEncoder *wav.Encoder
	sampleBuf  *audio.IntBuffer // Reusable buffer for format conversion.
	block      [][]float32      // Per-channel chunk storage.
	view       [][]float32      // block trimmed to the current chunk.
	cursor     uint64

	isRecording atomic.Bool
	frames      atomic.Uint64
	dropped     atomic.Uint64

	doneChan chan struct{}
	wg       sync.WaitGroup
}

// NewRecorder creates a recorder for ring. bitDepth must be 16 or 24. If
// interval is not positive it defaults to 50ms.
func NewRecorder(ring *ringbuf.RingBuffer, sampleRate float64, bitDepth int, interval time.Duration) (*Recorder, error) {
	if ring == nil {
		return nil, fmt.Errorf("recorder: ring buffer cannot be nil")
	}
	if bitDepth != 16 && bitDepth != 24 {
		return nil, fmt.Errorf("recorder: unsupported bit depth %d", bitDepth)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("recorder: invalid sample rate %v", sampleRate)
	}
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}

	channels := ring.Channels()
	chunk := min(recorderChunk, ring.Capacity())
	block := make([][]float32, channels)
	for c := range block {
		block[c] = make([]float32, chunk)
	}

	return &Recorder{
		ring:       ring,
		sampleRate: int(math.Round(sampleRate)),
		bitDepth:   bitDepth,
		interval:   interval,
		block:      block,
		view:       make([][]float32, channels),
		sampleBuf: &audio.IntBuffer{
			Format: &audio.Format{
				NumChannels: channels,
				SampleRate:  int(math.Round(sampleRate)),
			},
			Data:           make([]int, chunk*channels),
			SourceBitDepth: bitDepth,
		},
	}, nil
}

// RecordingFilename returns the default file name for a recording started at
// now, inside dir.
func RecordingFilename(dir string, now time.Time) string {
	return filepath.Join(dir, "recording-"+now.UTC().Format("02-01-2006-150405")+".wav")
}

// Start creates filename and begins draining the ring buffer into it. Only
// samples written after Start are recorded.
func (r *Recorder) Start(filename string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.isRecording.Load() {
		return ErrAlreadyRecording
	}

	if dir := filepath.Dir(filename); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create recording directory: %w", err)
		}
	}

	file, err := os.Create(filename)
	if err != nil {
		return err
	}

	r.path = filename
	r.outputFile = file
	r.wavEncoder = wav.NewEncoder(file, r.sampleRate, r.bitDepth, r.ring.Channels(), 1)
	r.cursor = r.ring.Written()
	r.frames.Store(0)
	r.dropped.Store(0)
	r.doneChan = make(chan struct{})
	r.isRecording.Store(true)

	ticker := time.NewTicker(r.interval)
	done := r.doneChan
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := r.Flush(); err != nil {
					log.Errorf("Recorder: writing %s: %v", filename, err)
				}
			case <-done:
				return
			}
		}
	}()

	log.Infof("Recording to %s (%d-bit, %d Hz)", filename, r.bitDepth, r.sampleRate)
	return nil
}

// Flush writes everything captured since the last flush. It is called
// periodically while recording and may also be called directly.
func (r *Recorder) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.flushLocked()
}

func (r *Recorder) flushLocked() error {
	if r.wavEncoder == nil {
		return nil
	}

	written := r.ring.Written()
	pending := written - r.cursor
	if capacity := uint64(r.ring.Capacity()); pending > capacity {
		lost := pending - capacity
		r.dropped.Add(lost)
		log.Warnf("Recorder: dropped %d frames, flushing too slowly", lost)
		r.cursor = written - capacity
		pending = capacity
	}

	chunk := uint64(len(r.block[0]))
	channels := len(r.block)
	scale := float64(int(1)<<(r.bitDepth-1) - 1)

	for pending > 0 {
		n := min(pending, chunk)
		for c := range r.view {
			r.view[c] = r.block[c][:n]
		}
		if _, err := r.ring.ReadEnding(r.view, r.cursor+n); err != nil {
			return err
		}

		data := r.sampleBuf.Data[:int(n)*channels]
		for i := range int(n) {
			for c := range channels {
				v := min(max(float64(r.view[c][i]), -1), 1)
				data[i*channels+c] = int(math.Round(v * scale))
			}
		}
		r.sampleBuf.Data = data
		err := r.wavEncoder.Write(r.sampleBuf)
		r.sampleBuf.Data = r.sampleBuf.Data[:cap(r.sampleBuf.Data)]
		if err != nil {
			return err
		}

		r.cursor += n
		r.frames.Add(n)
		pending -= n
	}
	return nil
}

// Stop drains the remaining samples, finalizes the WAV header and closes the
// file. It is a no-op when not recording.
func (r *Recorder) Stop() error {
	if !r.isRecording.CompareAndSwap(true, false) {
		return nil
	}

	close(r.doneChan)
	r.wg.Wait()

	r.mu.Lock()
	defer r.mu.Unlock()

	errFlush := r.flushLocked()

	var errEnc, errFile error
	if r.wavEncoder != nil {
		errEnc = r.wavEncoder.Close()
		r.wavEncoder = nil
	}
	if r.outputFile != nil {
		errFile = r.outputFile.Close()
		r.outputFile = nil
	}

	if d := r.dropped.Load(); d > 0 {
		log.Warnf("Recording %s is missing %d frames", r.path, d)
	}
	return errors.Join(errFlush, errEnc, errFile)
}

// Close implements io.Closer.
func (r *Recorder) Close() error {
	return r.Stop()
}

// Recording reports whether a recording is active.
func (r *Recorder) Recording() bool { return r.isRecording.Load() }

// Path returns the file of the current or last recording.
func (r *Recorder) Path() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.path
}

// Frames returns the number of frames written to the current or last file.
func (r *Recorder) Frames() uint64 { return r.frames.Load() }

// Dropped returns the number of frames lost because the writer lapped the
// recorder.
func (r *Recorder) Dropped() uint64 { return r.dropped.Load() }
