// SPDX-License-Identifier: MIT
/*
Package ringbuf implements the capture buffer that sits between the audio
callback and the analysis tick.

The buffer is single producer, multiple consumer and lock free:
  - Samples are stored as atomic 32-bit words (float32 bits), so a reader
    racing the writer sees either the old or the new sample, never a torn
    value and never memory outside the buffer.
  - The write cursor counts every sample ever written per channel. It is
    published with an atomic store after the samples of a block are stored.
  - There is no backpressure. A slow reader simply loses data that the
    writer has already lapped.

Write never blocks, never allocates and never fails, which makes it safe to
call from a real-time audio callback.
*/
package ringbuf

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"
)

// ErrShape is returned when a buffer is constructed with, or read into, a
// shape it cannot serve. It is a configuration error: retrying will not help.
var ErrShape = errors.New("ringbuf: invalid shape")

// RingBuffer is a fixed-capacity multi-channel circular sample store.
type RingBuffer struct {
	data     [][]atomic.Uint32 // Per-channel sample storage (float32 bits).
	capacity int               // Samples per channel, fixed at construction.
	written  atomic.Uint64     // Total samples written per channel.
}

// New creates a RingBuffer holding capacity samples for each of channels.
func New(channels, capacity int) (*RingBuffer, error) {
	if channels < 1 {
		return nil, fmt.Errorf("%w: channel count must be at least 1, got %d", ErrShape, channels)
	}
	if capacity < 1 {
		return nil, fmt.Errorf("%w: capacity must be at least 1, got %d", ErrShape, capacity)
	}

	data := make([][]atomic.Uint32, channels)
	for c := range data {
		data[c] = make([]atomic.Uint32, capacity)
	}

	return &RingBuffer{
		data:     data,
		capacity: capacity,
	}, nil
}

// Channels returns the number of channels.
func (rb *RingBuffer) Channels() int {
	return len(rb.data)
}

// Capacity returns the number of samples kept per channel.
func (rb *RingBuffer) Capacity() int {
	return rb.capacity
}

// Written returns the total number of samples written per channel since
// construction or the last Reset. It is the absolute cursor consumed by
// ReadEnding.
func (rb *RingBuffer) Written() uint64 {
	return rb.written.Load()
}

// Write appends a channel-major block. The frame count is len(block[0]).
// Channels beyond Channels() are ignored, missing channels are stored as
// silence, and when the block is longer than the capacity only its tail is
// kept. Older unread samples are overwritten.
func (rb *RingBuffer) Write(block [][]float32) {
	if len(block) == 0 {
		return
	}
	frames := len(block[0])
	if frames == 0 {
		return
	}

	start := rb.written.Load()
	skip := 0
	if frames > rb.capacity {
		skip = frames - rb.capacity
	}

	for c := range rb.data {
		var src []float32
		if c < len(block) {
			src = block[c]
		}
		dst := rb.data[c]
		pos := int((start + uint64(skip)) % uint64(rb.capacity))
		for i := skip; i < frames; i++ {
			var v float32
			if i < len(src) {
				v = src[i]
			}
			dst[pos].Store(math.Float32bits(v))
			pos++
			if pos == rb.capacity {
				pos = 0
			}
		}
	}

	rb.written.Store(start + uint64(frames))
}

// WriteInterleaved appends frames stored as interleaved samples
// (L R L R ...). Trailing samples that do not form a full frame are dropped.
func (rb *RingBuffer) WriteInterleaved(data []float32, channels int) {
	if channels < 1 {
		return
	}
	frames := len(data) / channels
	if frames == 0 {
		return
	}

	start := rb.written.Load()
	skip := 0
	if frames > rb.capacity {
		skip = frames - rb.capacity
	}

	for c := range rb.data {
		dst := rb.data[c]
		pos := int((start + uint64(skip)) % uint64(rb.capacity))
		for i := skip; i < frames; i++ {
			var v float32
			if c < channels {
				v = data[i*channels+c]
			}
			dst[pos].Store(math.Float32bits(v))
			pos++
			if pos == rb.capacity {
				pos = 0
			}
		}
	}

	rb.written.Store(start + uint64(frames))
}

// ReadLatest copies the most recent len(dst[c]) samples of every channel
// into dst, oldest first. If fewer samples have ever been written, the
// missing prefix is zero. It returns how many of the requested samples were
// actually captured, so n < len(dst[0]) signals a buffer still warming up.
func (rb *RingBuffer) ReadLatest(dst [][]float32) (int, error) {
	return rb.ReadEnding(dst, rb.written.Load())
}

// ReadEnding copies the len(dst[c]) samples that end at the absolute cursor
// end (exclusive), oldest first. Positions before the first write are zero.
// Cursors beyond Written() are clamped to it. Data the writer has overwritten
// since end is returned as whatever the buffer now holds.
func (rb *RingBuffer) ReadEnding(dst [][]float32, end uint64) (int, error) {
	count, err := rb.checkShape(dst)
	if err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, nil
	}

	if w := rb.written.Load(); end > w {
		end = w
	}

	valid := count
	if end < uint64(count) {
		valid = int(end)
	}
	pad := count - valid

	for c, out := range dst {
		out = out[:count]
		for i := range pad {
			out[i] = 0
		}
		src := rb.data[c]
		pos := int((end - uint64(valid)) % uint64(rb.capacity))
		for i := pad; i < count; i++ {
			out[i] = math.Float32frombits(src[pos].Load())
			pos++
			if pos == rb.capacity {
				pos = 0
			}
		}
	}

	return valid, nil
}

// Reset rewinds the cursor and clears the stored samples. It must not run
// concurrently with Write.
func (rb *RingBuffer) Reset() {
	for c := range rb.data {
		for i := range rb.data[c] {
			rb.data[c][i].Store(0)
		}
	}
	rb.written.Store(0)
}

func (rb *RingBuffer) checkShape(dst [][]float32) (int, error) {
	if len(dst) != len(rb.data) {
		return 0, fmt.Errorf("%w: destination has %d channels, buffer has %d", ErrShape, len(dst), len(rb.data))
	}
	count := len(dst[0])
	for c := range dst {
		if len(dst[c]) != count {
			return 0, fmt.Errorf("%w: destination channel %d has %d samples, channel 0 has %d", ErrShape, c, len(dst[c]), count)
		}
	}
	if count > rb.capacity {
		return 0, fmt.Errorf("%w: requested %d samples from a buffer of capacity %d", ErrShape, count, rb.capacity)
	}
	return count, nil
}
