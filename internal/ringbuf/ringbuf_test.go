// SPDX-License-Identifier: MIT
package ringbuf

import (
	"errors"
	"fmt"
	"sync"
	"testing"
)

// ramp returns a mono block whose samples are start, start+1, ...
func ramp(start, n int) [][]float32 {
	block := make([]float32, n)
	for i := range block {
		block[i] = float32(start + i)
	}
	return [][]float32{block}
}

func mono(n int) [][]float32 {
	return [][]float32{make([]float32, n)}
}

func TestNewRejectsInvalidShape(t *testing.T) {
	tests := []struct {
		channels, capacity int
	}{
		{0, 16},
		{-1, 16},
		{1, 0},
		{2, -4},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%dx%d", tt.channels, tt.capacity), func(t *testing.T) {
			rb, err := New(tt.channels, tt.capacity)
			if !errors.Is(err, ErrShape) {
				t.Errorf("expected ErrShape, got %v", err)
			}
			if rb != nil {
				t.Error("expected nil buffer on error")
			}
		})
	}
}

func TestReadLatestZeroBeforeWrite(t *testing.T) {
	rb, err := New(2, 64)
	if err != nil {
		t.Fatal(err)
	}

	dst := [][]float32{make([]float32, 64), make([]float32, 64)}
	for c := range dst {
		for i := range dst[c] {
			dst[c][i] = 99 // Garbage that must be cleared.
		}
	}

	n, err := rb.ReadLatest(dst)
	if err != nil {
		t.Fatalf("ReadLatest: %v", err)
	}
	if n != 0 {
		t.Errorf("valid = %d, want 0 on a fresh buffer", n)
	}
	for c := range dst {
		for i, v := range dst[c] {
			if v != 0 {
				t.Fatalf("dst[%d][%d] = %v, want 0", c, i, v)
			}
		}
	}
}

func TestReadLatestReturnsLastK(t *testing.T) {
	const capacity = 100

	blockSizes := []int{7, 33, 1, 64, 100, 250, 3}

	for _, k := range []int{1, 10, 50, 99, 100} {
		t.Run(fmt.Sprintf("k=%d", k), func(t *testing.T) {
			rb, _ := New(1, capacity)
			total := 0
			for _, size := range blockSizes {
				rb.Write(ramp(total, size))
				total += size

				dst := mono(k)
				n, err := rb.ReadLatest(dst)
				if err != nil {
					t.Fatalf("ReadLatest: %v", err)
				}

				want := min(k, total)
				if n != want {
					t.Fatalf("after %d samples: valid = %d, want %d", total, n, want)
				}
				for i := range k {
					expected := float32(total - k + i)
					if total-k+i < 0 {
						expected = 0
					}
					if dst[0][i] != expected {
						t.Fatalf("after %d samples: dst[%d] = %v, want %v", total, i, dst[0][i], expected)
					}
				}
			}
		})
	}
}

func TestTwoWritesThenFullRead(t *testing.T) {
	rb, err := New(1, 8192)
	if err != nil {
		t.Fatal(err)
	}

	rb.Write(ramp(0, 5000))
	rb.Write(ramp(5000, 5000))

	dst := mono(8192)
	n, err := rb.ReadLatest(dst)
	if err != nil {
		t.Fatalf("ReadLatest: %v", err)
	}
	if n != 8192 {
		t.Errorf("valid = %d, want 8192", n)
	}
	for i, v := range dst[0] {
		if want := float32(10000 - 8192 + i); v != want {
			t.Fatalf("dst[%d] = %v, want %v", i, v, want)
		}
	}
	if rb.Written() != 10000 {
		t.Errorf("Written() = %d, want 10000", rb.Written())
	}
}

func TestPartialWarmUpIsZeroPadded(t *testing.T) {
	rb, _ := New(1, 32)
	rb.Write([][]float32{{1, 2, 3}})

	dst := mono(8)
	n, err := rb.ReadLatest(dst)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("valid = %d, want 3", n)
	}
	want := []float32{0, 0, 0, 0, 0, 1, 2, 3}
	for i := range want {
		if dst[0][i] != want[i] {
			t.Errorf("dst = %v, want %v", dst[0], want)
			break
		}
	}
}

func TestBlockLongerThanCapacityKeepsTail(t *testing.T) {
	rb, _ := New(1, 16)
	rb.Write(ramp(0, 40))

	dst := mono(16)
	if _, err := rb.ReadLatest(dst); err != nil {
		t.Fatal(err)
	}
	for i, v := range dst[0] {
		if want := float32(24 + i); v != want {
			t.Fatalf("dst[%d] = %v, want %v", i, v, want)
		}
	}
	if rb.Written() != 40 {
		t.Errorf("Written() = %d, want 40", rb.Written())
	}
}

func TestMultiChannelWrite(t *testing.T) {
	rb, _ := New(2, 8)

	// Extra channels are ignored, missing channels become silence.
	rb.Write([][]float32{{1, 2, 3}, {-1, -2, -3}, {9, 9, 9}})
	rb.Write([][]float32{{4, 5}})

	dst := [][]float32{make([]float32, 5), make([]float32, 5)}
	if _, err := rb.ReadLatest(dst); err != nil {
		t.Fatal(err)
	}

	wantL := []float32{1, 2, 3, 4, 5}
	wantR := []float32{-1, -2, -3, 0, 0}
	for i := range 5 {
		if dst[0][i] != wantL[i] || dst[1][i] != wantR[i] {
			t.Fatalf("got L=%v R=%v, want L=%v R=%v", dst[0], dst[1], wantL, wantR)
		}
	}
}

func TestWriteInterleaved(t *testing.T) {
	rb, _ := New(2, 8)
	rb.WriteInterleaved([]float32{1, -1, 2, -2, 3, -3, 4}, 2) // Trailing half frame dropped.

	if rb.Written() != 3 {
		t.Fatalf("Written() = %d, want 3", rb.Written())
	}

	dst := [][]float32{make([]float32, 3), make([]float32, 3)}
	if _, err := rb.ReadLatest(dst); err != nil {
		t.Fatal(err)
	}
	for i := range 3 {
		if dst[0][i] != float32(i+1) || dst[1][i] != -float32(i+1) {
			t.Fatalf("deinterleave mismatch: L=%v R=%v", dst[0], dst[1])
		}
	}
}

func TestReadEndingAnchorsAtCursor(t *testing.T) {
	rb, _ := New(1, 64)
	rb.Write(ramp(0, 20))
	cursor := rb.Written()
	rb.Write(ramp(20, 10))

	dst := mono(5)
	n, err := rb.ReadEnding(dst, cursor)
	if err != nil {
		t.Fatal(err)
	}
	if n != 5 {
		t.Errorf("valid = %d, want 5", n)
	}
	for i, v := range dst[0] {
		if want := float32(15 + i); v != want {
			t.Fatalf("dst[%d] = %v, want %v", i, v, want)
		}
	}

	// Cursors ahead of the writer are clamped.
	if _, err := rb.ReadEnding(dst, 1<<40); err != nil {
		t.Fatal(err)
	}
	if dst[0][4] != 29 {
		t.Errorf("clamped read ended at %v, want 29", dst[0][4])
	}
}

func TestReadShapeErrors(t *testing.T) {
	rb, _ := New(2, 16)

	tests := []struct {
		name string
		dst  [][]float32
	}{
		{"too few channels", [][]float32{make([]float32, 4)}},
		{"ragged channels", [][]float32{make([]float32, 4), make([]float32, 3)}},
		{"over capacity", [][]float32{make([]float32, 17), make([]float32, 17)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := rb.ReadLatest(tt.dst); !errors.Is(err, ErrShape) {
				t.Errorf("expected ErrShape, got %v", err)
			}
		})
	}
}

func TestReset(t *testing.T) {
	rb, _ := New(1, 8)
	rb.Write(ramp(1, 8))
	rb.Reset()

	dst := mono(8)
	n, _ := rb.ReadLatest(dst)
	if n != 0 || rb.Written() != 0 {
		t.Errorf("after Reset: valid=%d written=%d, want 0 and 0", n, rb.Written())
	}
	for _, v := range dst[0] {
		if v != 0 {
			t.Fatalf("after Reset: dst = %v, want zeros", dst[0])
		}
	}
}

func TestWriteHotPath(t *testing.T) {
	rb, _ := New(2, 4096)
	block := [][]float32{make([]float32, 512), make([]float32, 512)}

	allocs := testing.AllocsPerRun(100, func() {
		rb.Write(block)
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations in Write hot path, got %.1f", allocs)
	}
}

func TestReadHotPath(t *testing.T) {
	rb, _ := New(1, 4096)
	rb.Write(ramp(0, 4096))
	dst := mono(4096)

	allocs := testing.AllocsPerRun(100, func() {
		_, _ = rb.ReadLatest(dst)
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations in ReadLatest, got %.1f", allocs)
	}
}

// TestConcurrentReadWrite exercises the reader racing the writer. Every
// sample written is a non-negative counter, so any value read must be a
// counter the writer produced (or padding zero) and within range.
func TestConcurrentReadWrite(t *testing.T) {
	const (
		capacity = 1024
		blocks   = 2000
		frames   = 128
	)
	rb, _ := New(1, capacity)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		block := mono(frames)
		next := 0
		for range blocks {
			for i := range block[0] {
				block[0][i] = float32(next)
				next++
			}
			rb.Write(block)
		}
	}()

	dst := mono(capacity)
	limit := float32(blocks * frames)
	for range 500 {
		if _, err := rb.ReadLatest(dst); err != nil {
			t.Fatalf("ReadLatest: %v", err)
		}
		for i, v := range dst[0] {
			if v < 0 || v >= limit {
				t.Fatalf("dst[%d] = %v out of written range", i, v)
			}
		}
	}
	wg.Wait()
}

func BenchmarkWrite(b *testing.B) {
	rb, _ := New(1, 16384)
	block := mono(512)
	b.ReportAllocs()
	for b.Loop() {
		rb.Write(block)
	}
}

func BenchmarkReadLatest(b *testing.B) {
	rb, _ := New(1, 16384)
	rb.Write(ramp(0, 16384))
	dst := mono(16384)
	b.ReportAllocs()
	for b.Loop() {
		_, _ = rb.ReadLatest(dst)
	}
}
