// https://github.com/usbarmory/tamago
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package backplane presents the chip's sparse 32-bit silicon backplane
// address space through the paged 32 KiB SDIO window on function 1.
package backplane

import (
	"encoding/binary"

	"bcm43430/chipregs"
)

// Bus is the subset of the SDIO link layer the backplane window needs: byte
// access to program the window register, and block access to read/write
// through it. *sdio.Link satisfies this.
type Bus interface {
	Cmd52(fn int, addr uint32, data uint8, wr, raw bool) (uint8, bool)
	Cmd53Read(fn int, addr uint32, buf []byte, nbytes int) (int, bool)
	Cmd53Write(fn int, addr uint32, buf []byte) bool
}

// Window caches the last-programmed backplane window and suppresses
// redundant writes.
type Window struct {
	bus    Bus
	cached uint32
	valid  bool
}

// New returns a Window with no cached state; the first access always
// programs the window register.
func New(bus Bus) *Window {
	return &Window{bus: bus}
}

// set programs the window register at chipregs.BakWinAddrReg to select the
// 32 KiB page containing addr, skipping the write entirely if the cached
// window already covers it.
func (w *Window) set(addr uint32) bool {
	win := addr &^ uint32(chipregs.AddrMask)

	if w.valid && win == w.cached {
		return true
	}

	ok := true
	ok = ok && w.byteWrite(chipregs.BakWinAddrReg+0, byte(win>>8))
	ok = ok && w.byteWrite(chipregs.BakWinAddrReg+1, byte(win>>16))
	ok = ok && w.byteWrite(chipregs.BakWinAddrReg+2, byte(win>>24))

	if ok {
		w.cached = win
		w.valid = true
	}

	return ok
}

func (w *Window) byteWrite(reg uint32, val byte) bool {
	_, ok := w.bus.Cmd52(chipregs.FuncBak, reg, val, true, false)
	return ok
}

// Addr programs the window to cover addr and returns the SDIO function-1
// offset to access it at.
func (w *Window) Addr(addr uint32) (uint32, bool) {
	if !w.set(addr) {
		return 0, false
	}
	return chipregs.WindowBit32 | (addr & chipregs.AddrMask), true
}

// Read32 programs the window and reads one little-endian 32-bit word from
// the chip's backplane address space.
func (w *Window) Read32(addr uint32) (uint32, bool) {
	off, ok := w.Addr(addr)
	if !ok {
		return 0, false
	}

	var buf [4]byte
	n, crcOK := w.bus.Cmd53Read(chipregs.FuncBak, off, buf[:], 4)
	if n != 4 || !crcOK {
		return 0, false
	}

	return binary.LittleEndian.Uint32(buf[:]), true
}

// Write32 programs the window and writes one little-endian 32-bit word to
// the chip's backplane address space.
func (w *Window) Write32(addr, val uint32) bool {
	off, ok := w.Addr(addr)
	if !ok {
		return false
	}

	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], val)

	return w.bus.Cmd53Write(chipregs.FuncBak, off, buf[:])
}
