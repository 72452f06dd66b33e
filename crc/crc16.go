// https://github.com/usbarmory/tamago
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package crc

// DataPins is the number of parallel SDIO data lines in 4-bit mode; the
// data CRC16 runs once per lane, in parallel, four bits at a time.
const DataPins = 4

// Poly16 is the SDIO data CRC16 generator, x^16 + x^12 + x^5 + 1, expressed
// bit-reversed (LSB first) the way the wire format clocks it out: bit 15-0,
// bit 15-5, bit 15-12.
const Poly16 = uint16(1<<15 | 1<<10 | 1<<3)

// Table16 is the 16-entry four-lane lookup table, keyed by the low nibble
// of (incoming_nibble XOR running_crc). Each entry is the reversed
// polynomial "quadrupled": Poly16 spread so its bit i occupies position
// 4*i, letting one 64-bit word track four independent 16-bit CRC lanes at
// once (one per physical data line).
var Table16 [1 << DataPins]uint64

var poly16Q uint64

func init() {
	poly16Q = quad(Poly16)

	for i := 0; i < (1 << DataPins); i++ {
		var t uint64
		if i&8 != 0 {
			t |= poly16Q << 3
		}
		if i&4 != 0 {
			t |= poly16Q << 2
		}
		if i&2 != 0 {
			t |= poly16Q << 1
		}
		if i&1 != 0 {
			t |= poly16Q
		}
		Table16[i] = t
	}
}

// quad spreads a 16-bit value so that bit i occupies position 4*i of the
// returned 64-bit value.
func quad(val uint16) uint64 {
	var ret uint64

	for i := 0; i < 16; i++ {
		if val&(1<<uint(i)) != 0 {
			ret |= 1 << uint(i*4)
		}
	}

	return ret
}

// Update folds one 4-bit nibble into the running four-lane CRC16 state.
func Update(crc uint64, nibble uint8) uint64 {
	return crc>>DataPins ^ Table16[(nibble^uint8(crc))&0xf]
}

// Block computes the four-lane CRC16 over a byte slice, high nibble first
// per byte, matching the wire order the link layer clocks data out in.
func Block(data []byte) uint64 {
	var crc uint64

	for _, b := range data {
		crc = Update(crc, b>>4)
		crc = Update(crc, b&0xf)
	}

	return crc
}
