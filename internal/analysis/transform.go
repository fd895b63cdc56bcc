// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"math/cmplx"
	"strings"

	godsp "github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/dsp/fourier"
)

// Transformer is the forward real-valued frequency transform primitive.
// Implementations are not required to be safe for concurrent use; the
// SpectralFrontEnd serialises access.
type Transformer interface {
	// Magnitudes writes |X[k]| of the forward transform of src for every
	// k < len(dst). len(src) must equal Size() and len(dst) <= Size()/2+1.
	Magnitudes(dst, src []float64)

	// Size returns the transform length N.
	Size() int
}

// Backend names accepted by NewTransformer.
const (
	BackendGonum = "gonum"
	BackendGoDSP = "godsp"
)

// NewTransformer returns the named transform backend for blocks of size
// samples. An empty name selects gonum.
func NewTransformer(name string, size int) (Transformer, error) {
	switch strings.ToLower(name) {
	case "", BackendGonum:
		return newGonumTransformer(size), nil
	case BackendGoDSP, "go-dsp":
		return &godspTransformer{size: size}, nil
	default:
		return nil, fmt.Errorf("%w: unknown fft backend '%s'", ErrConfiguration, name)
	}
}

// gonumTransformer wraps a reusable gonum FFT plan and its output buffer.
type gonumTransformer struct {
	fft    *fourier.FFT
	size   int
	coeffs []complex128 // N/2 + 1 complex coefficients.
}

func newGonumTransformer(size int) *gonumTransformer {
	return &gonumTransformer{
		fft:    fourier.NewFFT(size),
		size:   size,
		coeffs: make([]complex128, size/2+1),
	}
}

func (g *gonumTransformer) Magnitudes(dst, src []float64) {
	g.fft.Coefficients(g.coeffs, src)
	for k := range dst {
		dst[k] = cmplx.Abs(g.coeffs[k])
	}
}

func (g *gonumTransformer) Size() int { return g.size }

// godspTransformer uses go-dsp's FFTReal. It allocates the full complex
// spectrum on every call, so it is the slower of the two backends.
type godspTransformer struct {
	size int
}

func (g *godspTransformer) Magnitudes(dst, src []float64) {
	coeffs := godsp.FFTReal(src)
	for k := range dst {
		dst[k] = cmplx.Abs(coeffs[k])
	}
}

func (g *godspTransformer) Size() int { return g.size }
