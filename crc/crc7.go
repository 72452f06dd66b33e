// https://github.com/usbarmory/tamago
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package crc computes the two integrity codes the SDIO wire protocol
// requires: CRC7 over command frames and a four-lane bit-reversed CRC16
// over data blocks.
package crc

// Poly7 is the SDIO command CRC7 generator, x^7 + x^3 + 1 in byte form
// (0x89 << 1, truncated to its low 8 bits: 0x12).
const Poly7 = uint8((0x89 << 1) & 0xff)

// Table7 is the 256-entry CRC7 byte table, initialized once at package
// load and read-only thereafter.
var Table7 [256]uint8

func init() {
	for i := 0; i < 256; i++ {
		Table7[i] = byte7(uint8(i))
	}
}

// byte7 computes the CRC7 of a single byte, folding it through the
// generator polynomial bit by bit.
func byte7(b uint8) uint8 {
	w := uint16(b)

	for n := 0; n < 8; n++ {
		w <<= 1
		if w&0x100 != 0 {
			w ^= uint16(Poly7)
		}
	}

	return uint8(w)
}

// Data7 folds data through Table7 and sets the low bit (the SDIO frame's
// stop bit), matching the source's crc7_data.
func Data7(data []byte) uint8 {
	var c uint8

	for _, b := range data {
		c = Table7[c^b]
	}

	return c | 1
}
