// SPDX-License-Identifier: MIT
package analysis

import "fmt"

// DefaultPeakWindow is the sliding window width in bins.
const DefaultPeakWindow = 16

// Peak is one local maximum of a magnitude spectrum.
type Peak struct {
	Magnitude float64
	Bin       int
}

// PeakPair holds the two dominant peaks, loudest first.
type PeakPair [2]Peak

// PeakExtractor finds the two loudest distinct local maxima of a spectrum.
//
// A bin m is a local maximum when it holds the maximum of the window of
// `window` bins that places m at offset window/2-1 (7 for the default 16).
// Window maxima come from a monotonic deque, so a scan is O(len(spectrum)).
//
// Among the local maxima the loudest becomes the first peak (lowest bin on
// ties) and the loudest one with a different magnitude becomes the second,
// which keeps two bins of one flat plateau from being reported as two tones.
// When no such pair exists the previous pair is kept.
//
// A PeakExtractor is not safe for concurrent use.
type PeakExtractor struct {
	window int
	offset int

	deque []int     // Bin indices with decreasing magnitudes.
	maxes []float64 // maxes[i] = max(spectrum[i : i+window]).

	peaks PeakPair
}

// NewPeakExtractor creates an extractor with the given window width,
// pre-sized for spectra of bins values.
func NewPeakExtractor(window, bins int) (*PeakExtractor, error) {
	if window < 2 {
		return nil, fmt.Errorf("%w: peak window must be at least 2 bins, got %d", ErrConfiguration, window)
	}
	if bins < window {
		return nil, fmt.Errorf("%w: spectrum of %d bins is shorter than the peak window %d", ErrConfiguration, bins, window)
	}
	return &PeakExtractor{
		window: window,
		offset: window/2 - 1,
		deque:  make([]int, bins),
		maxes:  make([]float64, bins),
	}, nil
}

// Window returns the window width in bins.
func (p *PeakExtractor) Window() int {
	return p.window
}

// Peaks returns the most recently extracted pair.
func (p *PeakExtractor) Peaks() PeakPair {
	return p.peaks
}

// Reset forgets the retained pair.
func (p *PeakExtractor) Reset() {
	p.peaks = PeakPair{}
}

// Extract scans spectrum and updates the retained pair. It returns
// ErrNoPeakFound, along with the unchanged previous pair, when the spectrum
// does not contain two local maxima of different magnitude.
func (p *PeakExtractor) Extract(spectrum []float64) (PeakPair, error) {
	n := len(spectrum)
	if n < p.window {
		return p.peaks, ErrNoPeakFound
	}
	p.slidingMax(spectrum)

	first := Peak{Bin: -1}
	second := Peak{Bin: -1}

	// Pass 1: the loudest local maximum.
	for i := 0; i+p.window <= n; i++ {
		m := i + p.offset
		if p.maxes[i] != spectrum[m] {
			continue
		}
		if first.Bin < 0 || spectrum[m] > first.Magnitude {
			first = Peak{Magnitude: spectrum[m], Bin: m}
		}
	}
	if first.Bin < 0 {
		return p.peaks, ErrNoPeakFound
	}

	// Pass 2: the loudest local maximum whose magnitude differs.
	for i := 0; i+p.window <= n; i++ {
		m := i + p.offset
		v := spectrum[m]
		if p.maxes[i] != v || v == first.Magnitude {
			continue
		}
		if second.Bin < 0 || v > second.Magnitude {
			second = Peak{Magnitude: v, Bin: m}
		}
	}
	if second.Bin < 0 {
		return p.peaks, ErrNoPeakFound
	}

	p.peaks = PeakPair{first, second}
	return p.peaks, nil
}

// slidingMax fills p.maxes[0 : n-window+1] with the window maxima.
func (p *PeakExtractor) slidingMax(spectrum []float64) {
	n := len(spectrum)
	if cap(p.deque) < n {
		p.deque = make([]int, n)
		p.maxes = make([]float64, n)
	}
	dq := p.deque[:n]
	head, tail := 0, 0

	for j, v := range spectrum {
		for tail > head && spectrum[dq[tail-1]] <= v {
			tail--
		}
		dq[tail] = j
		tail++
		if dq[head] <= j-p.window {
			head++
		}
		if start := j - p.window + 1; start >= 0 {
			p.maxes[start] = spectrum[dq[head]]
		}
	}
}
