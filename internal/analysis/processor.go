// SPDX-License-Identifier: MIT
package analysis

// BlockReader is the capture side of the pipeline. The ring buffer
// implements it; tests and offline analysis can substitute their own.
type BlockReader interface {
	// ReadLatest copies the most recent len(dst[c]) samples of every channel
	// into dst, zero padding samples that were never captured, and returns
	// how many samples were genuinely captured.
	ReadLatest(dst [][]float32) (int, error)
	Channels() int // Channels returns the number of channels per block.
	Capacity() int // Capacity returns the samples retained per channel.
}

// ResultProvider decouples consumers of analysis results (the display
// publisher, the dashboard) from the Analyzer. Implementations must be safe
// for concurrent use.
type ResultProvider interface {
	SpectrumInto(dst []float64) int // SpectrumInto copies the latest dB spectrum into dst.
	TimeDataInto(dst []float32) int // TimeDataInto copies the latest analysed block into dst.
	Snapshot() Snapshot             // Snapshot returns a copy of the latest scalar results.
	BlockSize() int                 // BlockSize returns the transform size N.
}
