// https://github.com/usbarmory/tamago
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package spiflash implements platform.FirmwareReader over a bit-banged
// SPI0 bus talking to a sequential-read NOR flash (EN25Q80-class),
// mirroring the source's own off-chip firmware storage.
package spiflash

import (
	"fmt"
	"time"

	"bcm43430/platform"
)

// Pins names the four GPIO lines SPI0 uses.
type Pins struct {
	SCLK int
	MOSI int
	MISO int
	CE0  int
}

// Image describes where one named image (e.g. "firmware", "nvram") lives
// within the flash's linear address space.
type Image struct {
	Offset uint32
	Length int
}

// Flash is a bit-banged SPI0 sequential reader.
type Flash struct {
	plat   platform.Platform
	pins   Pins
	images map[string]Image

	cur    Image
	read   int
}

const cmdRead = 0x03

// New returns a Flash reader for the given pins and image table. images
// maps image name ("firmware", "nvram") to its offset and length within
// the flash chip.
func New(plat platform.Platform, pins Pins, images map[string]Image) *Flash {
	plat.SetMode(pins.SCLK, true)
	plat.SetMode(pins.MOSI, true)
	plat.SetMode(pins.MISO, false)
	plat.SetMode(pins.CE0, true)

	plat.Out(pins.SCLK, false)
	plat.Out(pins.CE0, true)

	return &Flash{plat: plat, pins: pins, images: images}
}

// Open selects image and issues a sequential read command positioned at
// its start offset.
func (f *Flash) Open(image string) (int, error) {
	img, ok := f.images[image]
	if !ok {
		return 0, fmt.Errorf("spiflash: unknown image %q", image)
	}

	f.cur = img
	f.read = 0

	f.cs(true)
	f.xferByte(cmdRead)
	f.xferByte(byte(img.Offset >> 16))
	f.xferByte(byte(img.Offset >> 8))
	f.xferByte(byte(img.Offset))

	return img.Length, nil
}

// Read fills buf completely from the current streaming position.
func (f *Flash) Read(buf []byte) error {
	if f.read+len(buf) > f.cur.Length {
		return fmt.Errorf("spiflash: read past end of image (%d + %d > %d)", f.read, len(buf), f.cur.Length)
	}

	for i := range buf {
		buf[i] = f.xferByte(0x00)
	}
	f.read += len(buf)

	return nil
}

// Close deselects the flash chip.
func (f *Flash) Close() error {
	f.cs(false)
	return nil
}

func (f *Flash) cs(active bool) {
	f.plat.Out(f.pins.CE0, !active)
	f.plat.Delay(time.Microsecond)
}

// xferByte clocks out b MSB-first while clocking in the device's response,
// matching the source's spi0_xfer bit-bang loop.
func (f *Flash) xferByte(b byte) byte {
	var in byte

	for i := 7; i >= 0; i-- {
		f.plat.Out(f.pins.MOSI, b&(1<<uint(i)) != 0)
		f.plat.Out(f.pins.SCLK, true)

		in <<= 1
		if f.plat.In(f.pins.MISO) {
			in |= 1
		}

		f.plat.Out(f.pins.SCLK, false)
	}

	return in
}
