// https://github.com/usbarmory/tamago
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package logring implements the fixed-capacity debug ring the bring-up
// sequencer and link layer append command/response/data traces to. It is
// purely a diagnostic aid; nothing in the driver's correctness depends on
// it.
package logring

import "bcm43430/chipregs"

// Size is the ring's fixed slot count.
const Size = chipregs.LogSize

// Record is one 8-byte ring slot.
type Record [8]byte

// Ring is a fixed-capacity circular buffer of Records. The zero value is
// an empty, ready-to-use ring.
type Ring struct {
	slots [Size]Record
	idx   int // next write position, mod Size
	count int // number of valid slots, capped at Size
	start int // oldest valid slot, advances once the ring is full
}

// Append writes r into the next slot, evicting the oldest entry once the
// ring is full.
func (r *Ring) Append(rec Record) {
	r.slots[r.idx] = rec
	r.idx = (r.idx + 1) % Size

	if r.count < Size {
		r.count++
	} else {
		r.start = (r.start + 1) % Size
	}
}

// Len reports how many valid records the ring currently holds.
func (r *Ring) Len() int {
	return r.count
}

// At returns the i'th oldest record still held, 0 <= i < Len().
func (r *Ring) At(i int) Record {
	return r.slots[(r.start+i)%Size]
}

// All returns every held record, oldest first.
func (r *Ring) All() []Record {
	out := make([]Record, r.count)
	for i := range out {
		out[i] = r.At(i)
	}
	return out
}
