// SPDX-License-Identifier: MIT
package analysis

import "errors"

var (
	// ErrConfiguration marks mismatched sizes between the capture buffer, the
	// transform and the caller. It is fatal at construction time.
	ErrConfiguration = errors.New("analysis: configuration error")

	// ErrInsufficientData means fewer samples were captured than one block.
	// The block is zero padded and analysis continues.
	ErrInsufficientData = errors.New("analysis: insufficient data")

	// ErrNoPeakFound means the spectrum did not contain two distinct local
	// maxima. The previous peaks are kept.
	ErrNoPeakFound = errors.New("analysis: no peak found")
)
