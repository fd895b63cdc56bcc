// SPDX-License-Identifier: MIT
package analysis

import (
	"math"
	"testing"
)

func TestIndexToFrequency(t *testing.T) {
	tests := []struct {
		index      int
		size       int
		sampleRate float64
		want       float64
	}{
		{0, 4096, 44100, 0},
		{41, 4096, 44100, 441.4306640625},
		{2048, 4096, 44100, 22050},
		{1, 16384, 48000, 2.9296875},
	}

	for _, tt := range tests {
		if got := IndexToFrequency(tt.index, tt.size, tt.sampleRate); got != tt.want {
			t.Errorf("IndexToFrequency(%d, %d, %v) = %v, want %v", tt.index, tt.size, tt.sampleRate, got, tt.want)
		}
	}
}

func TestFrequencyRoundTrip(t *testing.T) {
	const (
		size       = 16384
		sampleRate = 48000.0
	)
	width := BinWidth(size, sampleRate)

	for _, f := range []float64{0, 440, 1000, 15000, 17500.25, 20000, 23999} {
		bin := FrequencyToBin(f, size, sampleRate)
		back := IndexToFrequency(bin, size, sampleRate)
		if math.Abs(back-f) > width+1e-9 {
			t.Errorf("%v Hz -> bin %d -> %v Hz, off by more than %v", f, bin, back, width)
		}
		if back > f {
			t.Errorf("FrequencyToBin(%v) rounded up to %v Hz", f, back)
		}
	}
}

func TestFrequencyToIndexIsFractional(t *testing.T) {
	got := FrequencyToIndex(441.4306640625/2, 4096, 44100)
	if math.Abs(got-20.5) > 1e-9 {
		t.Errorf("FrequencyToIndex = %v, want 20.5", got)
	}
	if bin := FrequencyToBin(441.4306640625/2, 4096, 44100); bin != 20 {
		t.Errorf("FrequencyToBin = %d, want 20", bin)
	}
}

func TestBinWidth(t *testing.T) {
	if got := BinWidth(16384, 48000); got != 2.9296875 {
		t.Errorf("BinWidth(16384, 48000) = %v, want 2.9296875", got)
	}
}
