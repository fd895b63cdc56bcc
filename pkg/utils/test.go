package utils

import (
	"math"
	"sync"
)

// MockTransport implements the display Transport interface for testing.
type MockTransport struct {
	mu     sync.Mutex
	Frames map[string][]float64 // Last values published under each name.
	Counts map[string]int       // Number of publishes per name.
	Closed bool
}

// NewMockTransport returns an empty MockTransport.
func NewMockTransport() *MockTransport {
	return &MockTransport{
		Frames: make(map[string][]float64),
		Counts: make(map[string]int),
	}
}

// Publish stores a copy of the values for later inspection.
func (m *MockTransport) Publish(name string, values []float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Frames[name] = append([]float64(nil), values...)
	m.Counts[name]++
	return nil
}

// Close marks the transport closed.
func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}

// Last returns the last values published under name and how many times the
// name was published.
func (m *MockTransport) Last(name string) ([]float64, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]float64(nil), m.Frames[name]...), m.Counts[name]
}

// GenerateSineWave returns size samples of a sine at frequency Hz with the
// given peak amplitude.
func GenerateSineWave(size int, sampleRate, frequency, amplitude float64) []float32 {
	buffer := make([]float32, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = float32(amplitude * math.Sin(2*math.Pi*frequency*t))
	}
	return buffer
}

// GenerateTwoTones mixes two sines of different amplitudes.
func GenerateTwoTones(size int, sampleRate, f1, a1, f2, a2 float64) []float32 {
	buffer := make([]float32, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = float32(a1*math.Sin(2*math.Pi*f1*t) + a2*math.Sin(2*math.Pi*f2*t))
	}
	return buffer
}

// GenerateComplexWave returns a 440 Hz fundamental with two harmonics.
func GenerateComplexWave(size int, sampleRate float64) []float32 {
	buffer := make([]float32, size)
	for i := range buffer {
		tm := float64(i) / sampleRate
		signal := math.Sin(2*math.Pi*440*tm)*0.5 +
			math.Sin(2*math.Pi*880*tm)*0.3 +
			math.Sin(2*math.Pi*1320*tm)*0.2
		buffer[i] = float32(signal * 0.9)
	}
	return buffer
}

// FindPeakBin returns the index of the largest value in
// magnitudes[startBin:endBin+1], clamped to the slice.
func FindPeakBin(magnitudes []float64, startBin, endBin int) int {
	if len(magnitudes) == 0 {
		return 0
	}

	if startBin < 0 {
		startBin = 0
	}

	if endBin >= len(magnitudes) {
		endBin = len(magnitudes) - 1
	}

	peakBin := startBin
	peakValue := magnitudes[startBin]

	for bin := startBin + 1; bin <= endBin; bin++ {
		if magnitudes[bin] > peakValue {
			peakValue = magnitudes[bin]
			peakBin = bin
		}
	}

	return peakBin
}
