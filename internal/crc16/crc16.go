// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package crc16 implements the IBM/ARC CRC-16 variant used by the P3 wire
// format: polynomial 0xA001 (reflected), initial value 0x0000, no final XOR.
package crc16

var table [256]uint16

func init() {
	const poly = 0xA001
	for i := 0; i < 256; i++ {
		crc := uint16(i)
		for j := 0; j < 8; j++ {
			if crc&1 != 0 {
				crc = (crc >> 1) ^ poly
			} else {
				crc >>= 1
			}
		}
		table[i] = crc
	}
}

// Checksum computes the IBM/ARC CRC-16 of p starting from the zero initial
// value.
func Checksum(p []byte) uint16 {
	return Update(0, p)
}

// Update continues a CRC-16 computation from a prior running value crc,
// allowing callers to checksum a message split across multiple byte slices.
func Update(crc uint16, p []byte) uint16 {
	for _, b := range p {
		crc = (crc >> 8) ^ table[byte(crc)^b]
	}
	return crc
}
