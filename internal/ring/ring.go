// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package ring implements wraparound arithmetic over the P3 sequence space:
// the closed interval [Low, High], 112 distinct values ("ring size" 0x70).
package ring

const (
	// Low is the smallest valid sequence value.
	Low = 0x10
	// High is the largest valid sequence value.
	High = 0x7F
	// Size is the number of distinct values in the ring.
	Size = High - Low + 1 // 0x70
)

// Wrap maps an arbitrary integer into the ring. Values below Low clamp to Low
// rather than wrapping, matching the documented clamp behavior for malformed
// inputs (e.g. a corrupt RX byte observed from the wire).
func Wrap(n int) uint8 {
	if n < Low {
		return Low
	}
	return uint8(Low + mod(n-Low, Size))
}

// Distance returns the forward ring distance from a to b: the number of
// Wrap steps needed to advance from a to reach b. Both a and b are assumed
// to already lie in [Low, High].
func Distance(a, b uint8) int {
	return mod(int(b)-int(a), Size)
}

// Ahead reports whether candidate is strictly ring-ahead of cur, i.e. moving
// forward from cur reaches candidate before wrapping all the way around.
func Ahead(cur, candidate uint8) bool {
	d := Distance(cur, candidate)
	return d > 0 && d < Size
}

func mod(n, m int) int {
	r := n % m
	if r < 0 {
		r += m
	}
	return r
}
