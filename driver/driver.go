// https://github.com/usbarmory/tamago
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package driver ties the platform, SDIO link, backplane window, SDPCM
// IOCTL/event layer and bring-up sequencer into a single owned context,
// replacing the source's file-scope globals (ioctl_txmsg, ioctl_rxmsg,
// txbuffer, msglog, clkval, firmware_pos) with fields on one struct passed
// by pointer to every operation.
package driver

import (
	"fmt"
	"time"

	"bcm43430/backplane"
	"bcm43430/bringup"
	"bcm43430/logring"
	"bcm43430/platform"
	"bcm43430/sdio"
	"bcm43430/sdpcm"
)

// Config collects the tunables §9's open questions left for the
// implementer to set explicitly rather than hard-code.
type Config struct {
	// Pins are the six GPIO lines the bit-banged link drives.
	Pins sdio.Pins

	// HalfPeriod sets the link's clock half-period; zero defaults to
	// 1 microsecond (~400 kHz).
	HalfPeriod time.Duration

	// ResponseWaitCycles overrides the RSP_WAIT spin count (default 20,
	// empirically calibrated; recalibrate for a different clock period).
	ResponseWaitCycles int

	// IOCTLTimeoutMsec bounds how long GetVar/SetVar poll for a response.
	IOCTLTimeoutMsec int

	Console platform.Console
}

// Driver is the single owned context for one BCM43430 instance.
type Driver struct {
	plat platform.Platform
	cfg  Config

	link  *sdio.Link
	win   *backplane.Window
	ioctl *sdpcm.Ctrl
	seq   *bringup.Sequencer

	ring *logring.Ring
}

// New wires every layer together over plat. It does not touch the chip;
// call Bringup to power it up.
func New(plat platform.Platform, cfg Config) *Driver {
	if cfg.Console == nil {
		cfg.Console = platform.NopConsole{}
	}

	ring := &logring.Ring{}
	link := sdio.New(plat, cfg.Pins, cfg.HalfPeriod, cfg.Console, ring)
	if cfg.ResponseWaitCycles > 0 {
		link.SetRspWait(cfg.ResponseWaitCycles)
	}

	win := backplane.New(link)
	ioctl := sdpcm.New(link, win, plat, cfg.Console)
	seq := bringup.New(link, win, plat, cfg.Console, ring)

	return &Driver{
		plat:  plat,
		cfg:   cfg,
		link:  link,
		win:   win,
		ioctl: ioctl,
		seq:   seq,
		ring:  ring,
	}
}

// Bringup runs the full bring-up sequence: card init, core resets,
// firmware/NVRAM upload, ARM release.
func (d *Driver) Bringup(fw, nvram platform.FirmwareReader, nvramConfig []byte) error {
	return d.seq.Run(fw, nvram, nvramConfig)
}

// GetVar issues a named "get" IOCTL and returns the chip's response.
func (d *Driver) GetVar(name string, maxLen int) ([]byte, error) {
	val, ok := d.ioctl.GetVar(name, maxLen, d.cfg.IOCTLTimeoutMsec)
	if !ok {
		return nil, fmt.Errorf("driver: GetVar(%q) failed", name)
	}
	return val, nil
}

// SetVar issues a named "set" IOCTL.
func (d *Driver) SetVar(name string, value []byte) error {
	if !d.ioctl.SetVar(name, value, d.cfg.IOCTLTimeoutMsec) {
		return fmt.Errorf("driver: SetVar(%q) failed", name)
	}
	return nil
}

// SubscribeEvents installs the event_msgs subscription bitmap for the
// given event numbers, always as a full rewrite.
func (d *Driver) SubscribeEvents(events ...int) error {
	mask := sdpcm.EventMask(events...)
	return d.SetVar("event_msgs", mask[:])
}

// Ring exposes the debug log ring for diagnostics.
func (d *Driver) Ring() *logring.Ring {
	return d.ring
}
