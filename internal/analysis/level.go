// SPDX-License-Identifier: MIT
package analysis

import "math"

// RMS returns the root mean square of a block of normalised samples.
func RMS(block []float32) float64 {
	if len(block) == 0 {
		return 0
	}

	var sumSquare float64
	for _, sample := range block {
		s := float64(sample)
		sumSquare += s * s
	}
	return math.Sqrt(sumSquare / float64(len(block)))
}

// LevelDB converts an RMS value to dBFS, floored at the spectrum's -200 dB.
func LevelDB(rms float64) float64 {
	return 20 * math.Log10(math.Max(rms, minMagnitude))
}
