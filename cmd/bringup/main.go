// https://github.com/usbarmory/tamago
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Command bringup powers up a BCM43430 over a bit-banged SDIO bus on a
// Raspberry Pi Zero W, uploads firmware and NVRAM from SPI flash, and
// issues one read-only IOCTL to confirm the chip is alive. It does not
// scan or join a network; that is explicitly out of scope for the core
// driver this command exercises.
package main

import (
	"fmt"
	"log"
	"time"

	"bcm43430/driver"
	"bcm43430/platform/bcm2835"
	"bcm43430/platform/spiflash"
	"bcm43430/sdio"
)

// Pin assignments for the bit-banged SDIO bus and SPI0 flash.
const (
	pinCLK = 22
	pinCMD = 23
	pinD0  = 24
	pinD1  = 25
	pinD2  = 26
	pinD3  = 27

	pinSCLK = 11
	pinMOSI = 10
	pinMISO = 9
	pinCE0  = 8
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

type stdlogConsole struct{}

func (stdlogConsole) Printf(format string, args ...interface{}) {
	log.Printf(format, args...)
}

func run() error {
	gpio, err := bcm2835.Open()
	if err != nil {
		return fmt.Errorf("open gpio: %w", err)
	}
	defer gpio.Close()

	console := stdlogConsole{}

	flash := spiflash.New(gpio, spiflash.Pins{SCLK: pinSCLK, MOSI: pinMOSI, MISO: pinMISO, CE0: pinCE0}, map[string]spiflash.Image{
		"firmware": {Offset: 0x000000, Length: 0x5ee84},
		"nvram":    {Offset: 0x100000, Length: 0x1000},
	})

	d := driver.New(gpio, driver.Config{
		Pins: sdio.Pins{
			CLK: pinCLK, CMD: pinCMD,
			D0: pinD0, D1: pinD1, D2: pinD2, D3: pinD3,
		},
		HalfPeriod:       time.Microsecond,
		IOCTLTimeoutMsec: 1000,
		Console:          console,
	})

	if err := d.Bringup(flash, flash, nil); err != nil {
		return fmt.Errorf("bringup: %w", err)
	}

	ver, err := d.GetVar("ver", 128)
	if err != nil {
		return fmt.Errorf("ver ioctl: %w", err)
	}

	console.Printf("chip firmware version: %s", string(ver))

	return nil
}
