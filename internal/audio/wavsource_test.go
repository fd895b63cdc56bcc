// SPDX-License-Identifier: MIT
package audio

import (
	"bytes"
	"dopplerlab/internal/ringbuf"
	"errors"
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// writeTestWAV encodes interleaved integer samples to a WAV file.
func writeTestWAV(t *testing.T, bitDepth, channels int, data []int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, 8000, bitDepth, channels, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: 8000},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("encode close: %v", err)
	}
	return path
}

func TestLoadWAVNormalizes(t *testing.T) {
	tests := []struct {
		desc     string
		bitDepth int
		data     []int
		want     [][]float32
	}{
		{"16-bit stereo", 16, []int{16384, -16384, -32768, 0}, [][]float32{{0.5, -1}, {-0.5, 0}}},
		{"24-bit mono", 24, []int{4194304, -8388608}, [][]float32{{0.5, -1}}},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			clip, err := LoadWAV(writeTestWAV(t, tt.bitDepth, len(tt.want), tt.data))
			if err != nil {
				t.Fatalf("LoadWAV: %v", err)
			}
			if clip.SampleRate != 8000 || len(clip.Channels) != len(tt.want) {
				t.Fatalf("clip: %.0f Hz, %d channels", clip.SampleRate, len(clip.Channels))
			}
			for c := range tt.want {
				for i, want := range tt.want[c] {
					if got := clip.Channels[c][i]; got != want {
						t.Errorf("channel %d sample %d = %v, want %v", c, i, got, want)
					}
				}
			}
			if d := clip.Duration(); d != float64(len(tt.want[0]))/8000 {
				t.Errorf("Duration() = %v", d)
			}
		})
	}
}

func TestReadWAVRejectsGarbage(t *testing.T) {
	if _, err := ReadWAV(bytes.NewReader([]byte("definitely not RIFF data"))); !errors.Is(err, ErrInvalidWAV) {
		t.Errorf("expected ErrInvalidWAV, got %v", err)
	}
	if _, err := LoadWAV(filepath.Join(t.TempDir(), "missing.wav")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestClipStream(t *testing.T) {
	clip := &Clip{
		SampleRate: 8000,
		Channels:   [][]float32{make([]float32, 1000), make([]float32, 1000)},
	}
	for i := range 1000 {
		clip.Channels[0][i] = float32(i)
		clip.Channels[1][i] = float32(-i)
	}
	ring, _ := ringbuf.New(2, 1024)

	var marks []int
	err := clip.Stream(ring, 300, func(written int) error {
		marks = append(marks, written)
		return nil
	})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}

	want := []int{300, 600, 900, 1000}
	if len(marks) != len(want) {
		t.Fatalf("callbacks at %v, want %v", marks, want)
	}
	for i := range want {
		if marks[i] != want[i] {
			t.Fatalf("callbacks at %v, want %v", marks, want)
		}
	}

	latest := [][]float32{make([]float32, 4), make([]float32, 4)}
	if _, err := ring.ReadLatest(latest); err != nil {
		t.Fatal(err)
	}
	if latest[0][3] != 999 || latest[1][3] != -999 {
		t.Errorf("last frame = (%v, %v), want (999, -999)", latest[0][3], latest[1][3])
	}

	errStop := errors.New("stop")
	calls := 0
	err = clip.Stream(ring, 100, func(int) error {
		calls++
		return errStop
	})
	if !errors.Is(err, errStop) || calls != 1 {
		t.Errorf("Stream did not stop on callback error: %v after %d calls", err, calls)
	}

	if err := clip.Stream(ring, 0, nil); err == nil {
		t.Error("expected an error for a zero hop")
	}
}
