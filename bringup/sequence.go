// https://github.com/usbarmory/tamago
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package bringup drives the chip through the strictly ordered bring-up
// script: card init, core resets, firmware/NVRAM upload, and ARM release.
// Any deviation from the documented order produces a chip that will not
// execute firmware, so each stage either succeeds outright or the sequence
// halts.
package bringup

import (
	"errors"
	"fmt"
	"time"

	"bcm43430/chipregs"
	"bcm43430/logring"
	"bcm43430/platform"
)

// ErrBringupFailed is returned when any post-reset readback does not match
// its documented expected value. These are fatal: the chip will not
// execute firmware.
var ErrBringupFailed = errors.New("bringup: chip did not reach expected state")

// Link is the SDIO command/data surface the sequencer drives directly
// (CMD0/3/5/7/8 and function-0/1 byte access).
type Link interface {
	Cmd(num uint8, arg uint32) (uint32, bool)
	Cmd7(rca uint16) bool
	Cmd52(fn int, addr uint32, data uint8, wr, raw bool) (uint8, bool)
	Cmd53Write(fn int, addr uint32, buf []byte) bool
	WriteBlocks(fn int, addr uint32, buf []byte, blockSize int) bool
}

// Window is the backplane access the sequencer needs for core resets, SRAM
// programming, and firmware/NVRAM upload.
type Window interface {
	Addr(addr uint32) (uint32, bool)
	Read32(addr uint32) (uint32, bool)
	Write32(addr, val uint32) bool
}

// Sequencer owns one chip's bring-up state.
type Sequencer struct {
	link    Link
	win     Window
	plat    platform.Platform
	console platform.Console
	ring    *logring.Ring

	rca uint16
}

// New returns a Sequencer ready to run.
func New(link Link, win Window, plat platform.Platform, console platform.Console, ring *logring.Ring) *Sequencer {
	if console == nil {
		console = platform.NopConsole{}
	}
	return &Sequencer{link: link, win: win, plat: plat, console: console, ring: ring}
}

func (s *Sequencer) log(format string, args ...interface{}) {
	s.console.Printf(format, args...)
}

// halt dumps the debug ring and returns ErrBringupFailed, the documented
// disp_log_break fatal path.
func (s *Sequencer) halt(stage string) error {
	s.log("bringup: fatal at %s, dumping log ring:", stage)
	if s.ring != nil {
		for _, r := range s.ring.All() {
			s.log("  %x", r)
		}
	}
	return fmt.Errorf("%s: %w", stage, ErrBringupFailed)
}

// Run executes the full ten-stage bring-up script in order, including
// firmware and NVRAM upload.
func (s *Sequencer) Run(fw, nvram platform.FirmwareReader, nvramConfig []byte) error {
	if err := s.resetBus(); err != nil {
		return err
	}
	if err := s.cardInit(); err != nil {
		return err
	}
	if err := s.initBackplane(); err != nil {
		return err
	}
	if err := s.initChipClock(); err != nil {
		return err
	}
	if err := s.resetCores(); err != nil {
		return err
	}
	if err := s.initSRAM(); err != nil {
		return err
	}
	if err := s.stabilizeClock(); err != nil {
		return err
	}
	if _, err := StreamFirmware(s.link, s.win, fw); err != nil {
		return err
	}
	if err := WriteNVRAM(s.link, s.win, nvram, nvramConfig); err != nil {
		return err
	}
	if err := s.releaseARM(); err != nil {
		return err
	}
	return nil
}

// resetBus is stage 1's bus-reset half: two writes to the undocumented
// reset register spaced 20ms apart.
func (s *Sequencer) resetBus() error {
	s.link.Cmd52(chipregs.FuncBus, chipregs.BusResetReg, 0x00, true, false)
	s.plat.Delay(20 * time.Millisecond)
	s.link.Cmd52(chipregs.FuncBus, chipregs.BusResetReg, 0x08, true, false)
	s.plat.Delay(20 * time.Millisecond)
	return nil
}

// cardInit is the remainder of stage 1 and all of stage 2: CMD0/8/5/3/7,
// bus speed, block sizes, function 1 enable.
func (s *Sequencer) cardInit() error {
	s.link.Cmd(0, 0)
	s.link.Cmd(8, 0x1aa)
	s.link.Cmd(5, 0)
	s.link.Cmd(5, 0x200000)

	arg, ok := s.link.Cmd(3, 0)
	if !ok {
		return s.halt("CMD3")
	}
	s.rca = uint16(arg >> 16)

	if !s.link.Cmd7(s.rca) {
		return s.halt("CMD7")
	}

	s.link.Cmd52(chipregs.FuncBus, chipregs.BusSpeedCtrlReg, 0x03, true, false)
	s.link.Cmd52(chipregs.FuncBus, chipregs.BusBICtrlReg, 0x42, true, false)

	s.writeBlockSize(chipregs.BusBakBlkSizeReg, 64)
	s.writeBlockSize(chipregs.BusRadBlkSizeReg, 512)

	s.link.Cmd52(chipregs.FuncBus, chipregs.BusIOEnReg, 0x02, true, false)

	rdy, _ := s.link.Cmd52(chipregs.FuncBus, chipregs.BusIORdyReg, 0, false, false)
	if rdy != 0x02 {
		return s.halt("IORDY after function 1 enable")
	}

	return nil
}

func (s *Sequencer) writeBlockSize(reg uint32, size uint16) {
	s.link.Cmd52(chipregs.FuncBus, reg, byte(size), true, false)
	s.link.Cmd52(chipregs.FuncBus, reg+1, byte(size>>8), true, false)
}

// initBackplane is stage 3: program the window to the chip's base and read
// its chip ID.
func (s *Sequencer) initBackplane() error {
	if _, ok := s.win.Read32(chipregs.BakBaseAddr); !ok {
		return s.halt("chip ID read")
	}
	return nil
}

// initChipClock is stage 4: ALP clock request, then active state.
func (s *Sequencer) initChipClock() error {
	s.backplaneByteWrite(chipregs.BakChipClockCSRReg, 0x28)
	s.backplaneByteRead(chipregs.BakChipClockCSRReg)
	s.backplaneByteWrite(chipregs.BakChipClockCSRReg, 0x21)
	s.backplaneByteWrite(chipregs.BakPullupReg, 0x00)
	return nil
}

func (s *Sequencer) backplaneByteWrite(addr uint32, val byte) {
	s.link.Cmd52(chipregs.FuncBak, addr, val, true, false)
}

func (s *Sequencer) backplaneByteRead(addr uint32) byte {
	v, _ := s.link.Cmd52(chipregs.FuncBak, addr, 0, false, false)
	return v
}

// resetCores is stage 5: sequenced IOCTRL/RESETCTRL pokes for the ARM, MAC
// and SOCRAM cores. Each core's pattern is asymmetric: ARM only parks in
// reset here and is released later in releaseARM, while MAC and SOCRAM
// each cycle through RESETCTRL. Do not collapse these into one shared poke
// pattern.
func (s *Sequencer) resetCores() error {
	s.win.Write32(chipregs.ArmIOCtrl, 0x03)

	s.win.Write32(chipregs.MacIOCtrl, 0x07)
	s.win.Write32(chipregs.MacResetCtl, 0x00)
	s.win.Write32(chipregs.MacIOCtrl, 0x05)

	s.win.Write32(chipregs.SRAMIOCtrl, 0x03)
	s.win.Write32(chipregs.SRAMResetCtl, 0x00)
	s.win.Write32(chipregs.SRAMIOCtrl, 0x01)

	ioctrl, ok := s.win.Read32(chipregs.SRAMIOCtrl)
	if !ok || ioctrl&0xff != 1 {
		return s.halt("SOCRAM IOCTRL")
	}

	return nil
}

// initSRAM is stage 6: zero the four SRAM bank index/PDA registers, poke
// the CCCR capability extension, and OR a flag bit into the high byte
// (0x8601) of the backplane config word at 0x8600.
func (s *Sequencer) initSRAM() error {
	for bank := uint32(0); bank < 4; bank++ {
		s.win.Write32(chipregs.SRAMBankXIdxReg, bank)
		s.win.Write32(chipregs.SRAMBankXPDAReg, 0)
	}

	s.link.Cmd52(chipregs.FuncBus, chipregs.BusBRCMCardCap+1, 0x03, true, false)

	cur, _ := s.link.Cmd52(chipregs.FuncBak, 0x8601, 0, false, false)
	s.link.Cmd52(chipregs.FuncBak, 0x8601, cur|0x40, true, false)

	return nil
}

// stabilizeClock is stage 7: re-enable function 1, toggle the chip clock
// and confirm it settles at the active-with-HT value.
func (s *Sequencer) stabilizeClock() error {
	s.link.Cmd52(chipregs.FuncBus, chipregs.BusIOEnReg, 0x02, true, false)

	s.backplaneByteWrite(chipregs.BakChipClockCSRReg, 0x00)
	s.backplaneByteWrite(chipregs.BakChipClockCSRReg, 0x08)

	for i := 0; i < 100; i++ {
		if s.backplaneByteRead(chipregs.BakChipClockCSRReg) == 0x48 {
			return nil
		}
		s.plat.Delay(time.Millisecond)
	}

	return s.halt("chip clock stabilize")
}

// releaseARM is stage 10: bring the ARM core out of reset into run state,
// restore the window, bring the clock to full speed, post the initial
// mailbox message, enable function 2, and unmask host interrupts.
func (s *Sequencer) releaseARM() error {
	s.win.Write32(chipregs.ArmIOCtrl, 0x03)
	s.win.Write32(chipregs.ArmResetCtl, 0x00)
	s.win.Write32(chipregs.ArmIOCtrl, 0x01)

	s.win.Read32(chipregs.BakBaseAddr) // reprogram window back to chip base

	s.backplaneByteWrite(chipregs.BakChipClockCSRReg, 0xd0)

	for i := 0; i < 100; i++ {
		if s.backplaneByteRead(chipregs.BakChipClockCSRReg) == 0xd0 {
			break
		}
		if i == 99 {
			return s.halt("ARM clock settle")
		}
		s.plat.Delay(time.Millisecond)
	}

	s.win.Write32(chipregs.SBToSBMboxDataReg, 0x40000)
	s.win.Write32(chipregs.SBToSBMboxReg, 0x1)

	s.link.Cmd52(chipregs.FuncBus, chipregs.BusIOEnReg, 0x06, true, false)

	for i := 0; i < 100; i++ {
		rdy, _ := s.link.Cmd52(chipregs.FuncBus, chipregs.BusIORdyReg, 0, false, false)
		if rdy == 0x06 {
			s.link.Cmd52(chipregs.FuncBus, chipregs.BusIntEnReg, 0x07, true, false)
			s.win.Write32(chipregs.SBIntStatusReg, 0xffffffff)
			return nil
		}
		s.plat.Delay(time.Millisecond)
	}

	return s.halt("function 2 IORDY")
}
