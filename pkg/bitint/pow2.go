/*
Package bitint holds the power-of-two helpers used to size transform blocks
and ring buffers. Both functions are allocation free and constant time.

	bitint.IsPowerOfTwo(16384)    // true, a valid transform size
	bitint.NextPowerOfTwo(10000)  // 16384, smallest ring that holds 10000 samples

NextPowerOfTwo works on size-1 so that exact powers of two map to themselves:
for 8, bits.Len(7) is 3 and 1<<3 is 8, while bits.Len(8) would give 16.
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of two >= size. Zero and negative
// sizes return 1.
func NextPowerOfTwo(size int) int {
	if size <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// IsPowerOfTwo reports whether n is a positive power of two.
//
//	8   true    1000 & 0111 = 0000
//	12  false   1100 & 1011 = 1000
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}
