// https://github.com/usbarmory/tamago
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package platform defines the host-specific collaborators the driver
// layers above it need: GPIO pin control for the bit-banged SDIO bus and
// reset/power lines, a microsecond timer, a firmware/NVRAM byte source, and
// a console for bring-up diagnostics. Concrete backends live in
// sub-packages (bcm2835, spiflash, fake); nothing above this package
// depends on a specific board.
package platform

import "time"

// Pull selects a GPIO pin's internal resistor configuration.
type Pull int

const (
	PullNone Pull = iota
	PullDown
	PullUp
)

// Platform abstracts the GPIO, timing and delay primitives the SDIO link
// layer and bring-up sequencer need. A single Platform instance is shared
// across all pins; pins are addressed by number.
type Platform interface {
	// Out drives pin to the given logic level.
	Out(pin int, high bool)

	// In reads the current logic level of pin.
	In(pin int) bool

	// SetMode configures pin as an output (out=true) or input (out=false).
	SetMode(pin int, out bool)

	// SetPull configures pin's internal resistor.
	SetPull(pin int, p Pull)

	// WriteField drives n consecutive pins starting at base with the low n
	// bits of val, base pin carrying bit 0.
	WriteField(base, n int, val uint32)

	// ReadField reads n consecutive pins starting at base into the low n
	// bits of the result, base pin carrying bit 0.
	ReadField(base, n int) uint32

	// Now returns a monotonic microsecond timestamp.
	Now() uint64

	// Delay busy-waits for approximately d.
	Delay(d time.Duration)
}

// FirmwareReader streams firmware or NVRAM image bytes sequentially from
// whatever backing store a board uses (SPI flash, an embedded blob, a
// filesystem). Implementations are not required to support seeking
// backwards; the bring-up sequencer reads each image exactly once, in
// order.
type FirmwareReader interface {
	// Open resets the reader to the start of the named image ("firmware"
	// or "nvram") and reports its total length in bytes.
	Open(image string) (length int, err error)

	// Read fills buf completely from the current position, or returns an
	// error; short reads are not valid.
	Read(buf []byte) error

	// Close releases any resources Open acquired.
	Close() error
}

// Console receives bring-up and runtime diagnostics. Implementations may
// discard, buffer, or forward to any sink (UART, stdio, a log ring).
type Console interface {
	Printf(format string, args ...interface{})
}

// NopConsole discards everything written to it.
type NopConsole struct{}

func (NopConsole) Printf(format string, args ...interface{}) {}
