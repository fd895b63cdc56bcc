// SPDX-License-Identifier: MIT
package analysis

import (
	"dopplerlab/pkg/bitint"
	"fmt"
	"math"
	"strings"
	"sync"

	"gonum.org/v1/gonum/dsp/window"
)

// WindowFunc defines the type for selecting an FFT window function.
type WindowFunc int

// Enum for available window functions.
const (
	BartlettHann WindowFunc = iota
	Blackman
	BlackmanNuttall
	Hann
	Hamming
	Lanczos
	Nuttall
	Rectangular
)

var windowNames = [...]string{
	BartlettHann:    "BartlettHann",
	Blackman:        "Blackman",
	BlackmanNuttall: "BlackmanNuttall",
	Hann:            "Hann",
	Hamming:         "Hamming",
	Lanczos:         "Lanczos",
	Nuttall:         "Nuttall",
	Rectangular:     "Rectangular",
}

func (w WindowFunc) String() string {
	if w < 0 || int(w) >= len(windowNames) {
		return fmt.Sprintf("WindowFunc(%d)", int(w))
	}
	return windowNames[w]
}

// dB floor applied to normalised magnitudes, so silence maps to -200 dB
// instead of -Inf.
const minMagnitude = 1e-10

// Pre-allocated buffers for one transform.
type spectralWorkspace struct {
	input     []float64 // Windowed input block.
	magnitude []float64 // Raw |X[k]| for k < N/2.
	window    []float64 // Pre-calculated window coefficients.
}

// SpectralFrontEnd turns a time-domain block of N samples into an N/2 bin
// magnitude spectrum in decibels. Transform is deterministic and safe for
// concurrent use; calls are serialised on an internal workspace.
type SpectralFrontEnd struct {
	size        int
	windowType  WindowFunc
	transformer Transformer
	scale       float64 // 2/N, so a full-scale rectangular sine reads 0 dB.

	mu        sync.Mutex
	workspace spectralWorkspace
}

// NewSpectralFrontEnd creates a front end for blocks of size samples. size
// must be a power of two and match the transformer's size. A nil
// transformer selects the gonum backend.
func NewSpectralFrontEnd(size int, windowType WindowFunc, transformer Transformer) (*SpectralFrontEnd, error) {
	if !bitint.IsPowerOfTwo(size) || size < 2 {
		return nil, fmt.Errorf("%w: transform size must be a power of 2, got %d", ErrConfiguration, size)
	}
	if transformer == nil {
		transformer = newGonumTransformer(size)
	}
	if transformer.Size() != size {
		return nil, fmt.Errorf("%w: transformer size %d does not match block size %d", ErrConfiguration, transformer.Size(), size)
	}

	coeffs := make([]float64, size)
	applyWindow(coeffs, windowType)

	return &SpectralFrontEnd{
		size:        size,
		windowType:  windowType,
		transformer: transformer,
		scale:       2 / float64(size),
		workspace: spectralWorkspace{
			input:     make([]float64, size),
			magnitude: make([]float64, size/2),
			window:    coeffs,
		},
	}, nil
}

// Size returns the block length N.
func (s *SpectralFrontEnd) Size() int {
	return s.size
}

// Bins returns the spectrum length N/2.
func (s *SpectralFrontEnd) Bins() int {
	return s.size / 2
}

// Window returns the configured window function.
func (s *SpectralFrontEnd) Window() WindowFunc {
	return s.windowType
}

// Transform windows block, runs the forward transform and writes
// 20*log10(|X[k]| * 2/N) for k < N/2 into dst. len(block) must be N and
// len(dst) must be N/2; anything else is a configuration error.
func (s *SpectralFrontEnd) Transform(dst []float64, block []float32) error {
	if len(block) != s.size {
		return fmt.Errorf("%w: block has %d samples, transform size is %d", ErrConfiguration, len(block), s.size)
	}
	if len(dst) != s.size/2 {
		return fmt.Errorf("%w: spectrum has %d bins, expected %d", ErrConfiguration, len(dst), s.size/2)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ws := &s.workspace
	for i, v := range block {
		ws.input[i] = float64(v) * ws.window[i]
	}

	s.transformer.Magnitudes(ws.magnitude, ws.input)

	for k, m := range ws.magnitude {
		dst[k] = 20 * math.Log10(math.Max(m*s.scale, minMagnitude))
	}
	return nil
}

// ParseWindowFunc converts a string name (case-insensitive) to a WindowFunc
// enum, returns a known default (Hann) and an error if the name is unknown.
func ParseWindowFunc(name string) (WindowFunc, error) {
	switch strings.ToLower(strings.ReplaceAll(name, "-", "")) {
	case "bartletthann":
		return BartlettHann, nil
	case "blackman":
		return Blackman, nil
	case "blackmannuttall":
		return BlackmanNuttall, nil
	case "hann", "hanning", "":
		return Hann, nil
	case "hamming":
		return Hamming, nil
	case "lanczos":
		return Lanczos, nil
	case "nuttall":
		return Nuttall, nil
	case "rectangular", "none":
		return Rectangular, nil
	default:
		return Hann, fmt.Errorf("%w: unknown FFT window function name: '%s'", ErrConfiguration, name)
	}
}

// applyWindow fills coeffs with the selected window. gonum's window
// functions scale the slice in place, so it starts at 1.0.
func applyWindow(coeffs []float64, windowType WindowFunc) {
	for i := range coeffs {
		coeffs[i] = 1.0
	}
	switch windowType {
	case BartlettHann:
		window.BartlettHann(coeffs)
	case Blackman:
		window.Blackman(coeffs)
	case BlackmanNuttall:
		window.BlackmanNuttall(coeffs)
	case Hann:
		window.Hann(coeffs)
	case Hamming:
		window.Hamming(coeffs)
	case Lanczos:
		window.Lanczos(coeffs)
	case Nuttall:
		window.Nuttall(coeffs)
	case Rectangular:
	default:
		window.Hann(coeffs)
	}
}
