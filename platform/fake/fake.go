// https://github.com/usbarmory/tamago
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package fake provides an in-memory platform.Platform for unit tests: pin
// levels are recorded rather than driven to real hardware, and timing is
// virtual.
package fake

import (
	"time"

	"bcm43430/bits"
	"bcm43430/platform"
)

// Platform is a recording, in-memory implementation of platform.Platform.
type Platform struct {
	levels map[int]bool
	modes  map[int]bool
	pulls  map[int]platform.Pull

	// Trace records every Out call, in order, for assertions.
	Trace []PinEvent

	now time.Duration
}

// PinEvent is one recorded Out call.
type PinEvent struct {
	Pin  int
	High bool
}

// New returns an empty fake platform; every pin reads low until driven or
// injected via SetLevel.
func New() *Platform {
	return &Platform{
		levels: make(map[int]bool),
		modes:  make(map[int]bool),
		pulls:  make(map[int]platform.Pull),
	}
}

func (p *Platform) Out(pin int, high bool) {
	p.levels[pin] = high
	p.Trace = append(p.Trace, PinEvent{Pin: pin, High: high})
}

func (p *Platform) In(pin int) bool {
	return p.levels[pin]
}

func (p *Platform) SetMode(pin int, out bool) {
	p.modes[pin] = out
}

func (p *Platform) SetPull(pin int, pull platform.Pull) {
	p.pulls[pin] = pull
}

func (p *Platform) WriteField(base, n int, val uint32) {
	for i := 0; i < n; i++ {
		p.Out(base+i, bits.Get(&val, i))
	}
}

func (p *Platform) ReadField(base, n int) uint32 {
	var val uint32
	for i := 0; i < n; i++ {
		bits.SetTo(&val, i, p.In(base+i))
	}
	return val
}

// SetLevel injects a pin level, simulating an external driver (e.g. the
// chip responding on MISO/DATA lines).
func (p *Platform) SetLevel(pin int, high bool) {
	p.levels[pin] = high
}

func (p *Platform) Now() uint64 {
	return uint64(p.now / time.Microsecond)
}

// Delay advances the fake clock without blocking.
func (p *Platform) Delay(d time.Duration) {
	p.now += d
}
