// SPDX-License-Identifier: MIT
package analysis

// IndexToFrequency maps a spectrum bin to Hz as index / N * sampleRate,
// where N is the transform size, not the spectrum length.
func IndexToFrequency(index, size int, sampleRate float64) float64 {
	return float64(index) / float64(size) * sampleRate
}

// FrequencyToIndex maps Hz to a fractional bin position: f / sampleRate * N.
func FrequencyToIndex(freq float64, size int, sampleRate float64) float64 {
	return freq / sampleRate * float64(size)
}

// FrequencyToBin truncates FrequencyToIndex to a bin index.
func FrequencyToBin(freq float64, size int, sampleRate float64) int {
	return int(FrequencyToIndex(freq, size, sampleRate))
}

// BinWidth returns the frequency resolution sampleRate / N in Hz.
func BinWidth(size int, sampleRate float64) float64 {
	return sampleRate / float64(size)
}
