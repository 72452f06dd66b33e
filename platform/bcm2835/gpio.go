// https://github.com/usbarmory/tamago
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package bcm2835 implements platform.Platform for the Raspberry Pi Zero W
// BCM2835 GPIO controller, register-mapped through /dev/gpiomem.
package bcm2835

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"

	"bcm43430/bits"
	"bcm43430/internal/reg"
	"bcm43430/platform"
)

// Register offsets, relative to the /dev/gpiomem mapping (which starts
// directly at the GPIO peripheral's base, unlike /dev/mem which needs the
// full peripheral bus offset).
const (
	gpfsel0   = 0x00
	gpset0    = 0x1c
	gpclr0    = 0x28
	gplev0    = 0x34
	gppud     = 0x94
	gppudclk0 = 0x98

	mapLen = 0xb4
)

// GPIO is a register-mapped GPIO backend satisfying platform.Platform.
type GPIO struct {
	mem []byte
	reg reg.Base
}

// Open mmaps /dev/gpiomem and returns a ready GPIO backend. The caller must
// call Close when done.
func Open() (*GPIO, error) {
	fd, err := unix.Open("/dev/gpiomem", unix.O_RDWR|unix.O_SYNC, 0)
	if err != nil {
		return nil, fmt.Errorf("bcm2835: open /dev/gpiomem: %w", err)
	}
	defer unix.Close(fd)

	mem, err := unix.Mmap(fd, 0, mapLen, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("bcm2835: mmap gpiomem: %w", err)
	}

	return &GPIO{
		mem: mem,
		reg: reg.NewBaseSlice(mem),
	}, nil
}

// Close unmaps the GPIO register window.
func (g *GPIO) Close() error {
	return unix.Munmap(g.mem)
}

// SetMode configures pin as an output or input, clearing any alternate
// function it may have had.
func (g *GPIO) SetMode(pin int, out bool) {
	off := uint32(gpfsel0 + 4*(pin/10))
	shift := uint(pin%10) * 3

	val := g.reg.Read(off)
	val &^= uint32(0x7) << shift
	if out {
		val |= uint32(0x1) << shift
	}
	g.reg.Write(off, val)
}

// SetPull configures pin's internal pull resistor using the BCM2835
// GPPUD/GPPUDCLK0 two-step sequence.
func (g *GPIO) SetPull(pin int, p platform.Pull) {
	var mode uint32
	switch p {
	case platform.PullDown:
		mode = 1
	case platform.PullUp:
		mode = 2
	default:
		mode = 0
	}

	g.reg.Write(gppud, mode)
	time.Sleep(10 * time.Microsecond)
	g.reg.Write(gppudclk0, uint32(1)<<uint(pin%32))
	time.Sleep(10 * time.Microsecond)
	g.reg.Write(gppud, 0)
	g.reg.Write(gppudclk0, 0)
}

// Out drives pin high or low via the atomic set/clear registers.
func (g *GPIO) Out(pin int, high bool) {
	bit := uint32(1) << uint(pin%32)
	if high {
		g.reg.Write(uint32(gpset0+4*(pin/32)), bit)
	} else {
		g.reg.Write(uint32(gpclr0+4*(pin/32)), bit)
	}
}

// In reads pin's current logic level.
func (g *GPIO) In(pin int) bool {
	val := g.reg.Read(uint32(gplev0 + 4*(pin/32)))
	return val&(uint32(1)<<uint(pin%32)) != 0
}

// WriteField drives n consecutive pins starting at base with the low n
// bits of val, one pin at a time. BCM2835 has no contiguous multi-bit GPIO
// write, so this mirrors the source's bitwise gpio_write loop.
func (g *GPIO) WriteField(base, n int, val uint32) {
	for i := 0; i < n; i++ {
		g.Out(base+i, bits.Get(&val, i))
	}
}

// ReadField reads n consecutive pins starting at base into the low n bits
// of the result.
func (g *GPIO) ReadField(base, n int) uint32 {
	var val uint32
	for i := 0; i < n; i++ {
		bits.SetTo(&val, i, g.In(base+i))
	}
	return val
}

// epoch is the reference point Now measures from; time.Since on it uses the
// monotonic clock reading.
var epoch = time.Now()

// Now returns a monotonic microsecond timestamp.
func (g *GPIO) Now() uint64 {
	return uint64(time.Since(epoch) / time.Microsecond)
}

// Delay busy-waits for approximately d, matching the source's usdelay
// spin loop rather than yielding the thread to the scheduler.
func (g *GPIO) Delay(d time.Duration) {
	end := time.Now().Add(d)
	for time.Now().Before(end) {
	}
}
