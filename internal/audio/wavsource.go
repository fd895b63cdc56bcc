// SPDX-License-Identifier: MIT
package audio

import (
	"dopplerlab/internal/ringbuf"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/wav"
)

// ErrInvalidWAV is returned when a file is not a readable PCM WAV file.
var ErrInvalidWAV = errors.New("invalid WAV file")

// Clip is decoded audio held in memory, one slice per channel, with samples
// normalized to [-1, 1].
type Clip struct {
	SampleRate float64
	Channels   [][]float32
}

// Frames returns the number of samples per channel.
func (c *Clip) Frames() int {
	if len(c.Channels) == 0 {
		return 0
	}
	return len(c.Channels[0])
}

// Duration returns the clip length in seconds.
func (c *Clip) Duration() float64 {
	if c.SampleRate <= 0 {
		return 0
	}
	return float64(c.Frames()) / c.SampleRate
}

// LoadWAV decodes the WAV file at path.
func LoadWAV(path string) (*Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	clip, err := ReadWAV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return clip, nil
}

// ReadWAV decodes a PCM WAV stream of 8, 16, 24 or 32 bits.
func ReadWAV(r io.ReadSeeker) (*Clip, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, ErrInvalidWAV
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWAV, err)
	}

	channels := int(d.NumChans)
	bitDepth := int(d.BitDepth)
	if channels < 1 {
		return nil, fmt.Errorf("%w: no channels", ErrInvalidWAV)
	}

	var offset int
	switch bitDepth {
	case 8:
		// 8-bit PCM is unsigned.
		offset = 128
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: unsupported bit depth %d", ErrInvalidWAV, bitDepth)
	}
	scale := 1 / float32(int64(1)<<(bitDepth-1))

	frames := len(buf.Data) / channels
	clip := &Clip{
		SampleRate: float64(d.SampleRate),
		Channels:   make([][]float32, channels),
	}
	for c := range clip.Channels {
		clip.Channels[c] = make([]float32, frames)
	}
	for i := range frames {
		for c := range channels {
			clip.Channels[c][i] = float32(buf.Data[i*channels+c]-offset) * scale
		}
	}
	return clip, nil
}

// Stream feeds the clip into ring in blocks of hop frames, the way the audio
// callback would, and calls fn after every block with the number of frames
// written so far. The last block may be shorter than hop. A non-nil error
// from fn stops streaming and is returned.
func (c *Clip) Stream(ring *ringbuf.RingBuffer, hop int, fn func(written int) error) error {
	if hop < 1 {
		return fmt.Errorf("stream: hop must be positive, got %d", hop)
	}

	block := make([][]float32, len(c.Channels))
	frames := c.Frames()
	for start := 0; start < frames; start += hop {
		end := min(start+hop, frames)
		for ch := range block {
			block[ch] = c.Channels[ch][start:end]
		}
		ring.Write(block)
		if fn != nil {
			if err := fn(end); err != nil {
				return err
			}
		}
	}
	return nil
}
