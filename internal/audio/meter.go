// SPDX-License-Identifier: MIT
package audio

import (
	"math"
	"sync/atomic"
)

// Meter tracks the peak absolute amplitude of the most recent input block.
// Observe runs on the audio callback; Peak may be read from any goroutine.
type Meter struct {
	peak atomic.Uint32 // float32 bits of the last block peak.
}

// Observe records the peak of samples.
// Performance Critical (Hot Path):
// - No allocations
// - Branchless max over the sign-cleared bit patterns
func (m *Meter) Observe(samples []float32) {
	m.peak.Store(peakBits(samples))
}

// Peak returns the last observed peak in [0, +Inf).
func (m *Meter) Peak() float32 {
	return math.Float32frombits(m.peak.Load())
}

// PeakDB returns the last observed peak in dBFS, floored at -200.
func (m *Meter) PeakDB() float64 {
	p := float64(m.Peak())
	if p <= 1e-10 {
		return -200
	}
	return 20 * math.Log10(p)
}

// Reset clears the meter.
func (m *Meter) Reset() {
	m.peak.Store(0)
}

// peakBits returns the bit pattern of max(|s|) over samples. Clearing the
// sign bit of a float32 yields its absolute value, and for non-negative
// floats the bit patterns order the same way as the values, so the maximum
// can be taken on integers without branching. NaN inputs win the comparison.
func peakBits(samples []float32) uint32 {
	var peak int64
	for _, s := range samples {
		amplitude := int64(math.Float32bits(s) &^ (1 << 31))
		diff := amplitude - peak
		peak += diff &^ (diff >> 63)
	}
	return uint32(peak)
}
