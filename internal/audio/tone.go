// SPDX-License-Identifier: MIT
package audio

import (
	"math"
	"sync/atomic"
)

// Oscillator generates the test tone written to the output stream. Its
// parameters are atomics so the UI can retune it while the audio callback
// runs; the phase is owned by the callback.
type Oscillator struct {
	frequency  atomic.Uint64 // float64 bits, Hz.
	amplitude  atomic.Uint64 // float64 bits, [0, 1].
	sampleRate atomic.Uint64 // float64 bits, Hz.
	muted      atomic.Bool

	phase float64 // Radians in [0, 2π), touched only by Fill.
}

// NewOscillator creates an oscillator. The amplitude is clamped to [0, 1].
func NewOscillator(frequency, amplitude, sampleRate float64) *Oscillator {
	o := &Oscillator{}
	o.SetFrequency(frequency)
	o.SetAmplitude(amplitude)
	o.SetSampleRate(sampleRate)
	return o
}

func (o *Oscillator) SetFrequency(f float64) { o.frequency.Store(math.Float64bits(max(f, 0))) }
func (o *Oscillator) Frequency() float64     { return math.Float64frombits(o.frequency.Load()) }

func (o *Oscillator) SetAmplitude(a float64) {
	o.amplitude.Store(math.Float64bits(min(max(a, 0), 1)))
}
func (o *Oscillator) Amplitude() float64 { return math.Float64frombits(o.amplitude.Load()) }

// SetSampleRate updates the rate used to advance the phase. The engine calls
// it once the stream reports the rate the device actually runs at.
func (o *Oscillator) SetSampleRate(r float64) { o.sampleRate.Store(math.Float64bits(r)) }
func (o *Oscillator) SampleRate() float64     { return math.Float64frombits(o.sampleRate.Load()) }

// SetMuted silences the output without losing phase continuity.
func (o *Oscillator) SetMuted(m bool) { o.muted.Store(m) }
func (o *Oscillator) Muted() bool     { return o.muted.Load() }

// Fill writes one block of the tone to every channel of out. It never
// allocates and must only be called from one goroutine.
func (o *Oscillator) Fill(out [][]float32) {
	if len(out) == 0 {
		return
	}
	frames := len(out[0])

	rate := o.SampleRate()
	step := 0.0
	if rate > 0 {
		step = 2 * math.Pi * o.Frequency() / rate
	}
	amp := o.Amplitude()
	if o.Muted() {
		amp = 0
	}

	phase := o.phase
	first := out[0]
	for i := range frames {
		first[i] = float32(amp * math.Sin(phase))
		phase += step
		if phase >= 2*math.Pi {
			phase = math.Mod(phase, 2*math.Pi)
		}
	}
	o.phase = phase

	for _, ch := range out[1:] {
		copy(ch, first[:min(frames, len(ch))])
	}
}
