// SPDX-License-Identifier: MIT
package analysis

import (
	"dopplerlab/pkg/utils"
	"math"
	"testing"
)

func TestRMS(t *testing.T) {
	tests := []struct {
		name  string
		block []float32
		want  float64
		tol   float64
	}{
		{"empty", nil, 0, 0},
		{"silence", make([]float32, 64), 0, 0},
		{"dc", []float32{0.5, -0.5, 0.5, -0.5}, 0.5, 0},
		{"sine", utils.GenerateSineWave(48000, 48000, 1000, 1), 1 / math.Sqrt2, 1e-6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RMS(tt.block); math.Abs(got-tt.want) > tt.tol {
				t.Errorf("RMS = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLevelDB(t *testing.T) {
	if got := LevelDB(0); got != -200 {
		t.Errorf("LevelDB(0) = %v, want -200", got)
	}
	if got := LevelDB(1); got != 0 {
		t.Errorf("LevelDB(1) = %v, want 0", got)
	}
	if got := LevelDB(0.5); math.Abs(got-(-6.0206)) > 1e-4 {
		t.Errorf("LevelDB(0.5) = %v, want -6.0206", got)
	}
}
