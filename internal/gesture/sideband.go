// SPDX-License-Identifier: MIT
package gesture

// DefaultHalfWidth is the number of bins averaged on each side of the target.
const DefaultHalfWidth = 10

// DivisorMode selects how the sideband sums are turned into averages.
type DivisorMode int

const (
	// DivisorTrueCount divides each sum by the number of bins it covers.
	DivisorTrueCount DivisorMode = iota

	// DivisorLegacy divides the left sum by halfWidth-lo and the right sum by
	// (hi-lo+1)-halfWidth-lo. The result only matches a mean when the target
	// sits far from both spectrum edges and lo is 0, which is rarely the case;
	// it exists to reproduce readings recorded with that arithmetic.
	DivisorLegacy
)

// Sidebands returns the mean spectrum value just below and just above bin idx.
//
// With lo = max(0, idx-halfWidth) and hi = min(len(spectrum)-1, idx+halfWidth),
// left covers [lo, idx) and right covers (idx, hi]. idx is clamped into the
// spectrum. An empty side, or a zero legacy divisor, reads as 0.
func Sidebands(spectrum []float64, idx, halfWidth int, mode DivisorMode) (left, right float64) {
	n := len(spectrum)
	if n == 0 {
		return 0, 0
	}
	idx = max(0, min(idx, n-1))
	halfWidth = max(halfWidth, 0)

	lo := max(0, idx-halfWidth)
	hi := min(n-1, idx+halfWidth)

	var sumLeft, sumRight float64
	for _, v := range spectrum[lo:idx] {
		sumLeft += v
	}
	for _, v := range spectrum[idx+1 : hi+1] {
		sumRight += v
	}

	var divLeft, divRight int
	switch mode {
	case DivisorLegacy:
		divLeft = halfWidth - lo
		divRight = (hi - lo + 1) - halfWidth - lo
	default:
		divLeft = idx - lo
		divRight = hi - idx
	}

	if divLeft != 0 {
		left = sumLeft / float64(divLeft)
	}
	if divRight != 0 {
		right = sumRight / float64(divRight)
	}
	return left, right
}
