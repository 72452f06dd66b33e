// https://github.com/usbarmory/tamago
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package sdpcm implements the SDPCM/CDC IOCTL request/response framing and
// event demultiplexing that ride on SDIO function 2.
package sdpcm

import (
	"encoding/binary"
	"time"

	"bcm43430/chipregs"
	"bcm43430/platform"
)

// Numeric IOCTL commands the driver issues directly (named-variable
// get/set ride on these two).
const (
	IoctlGetVar = 262
	IoctlSetVar = 263
)

const (
	radioFuncAddr = 0x8000

	sdpcmHdrLen = 12
	cdcHdrLen   = 16
	totalHdrLen = sdpcmHdrLen + cdcHdrLen

	ioctlPollMsec  = 2 * time.Millisecond
	ioctlMaxDLen   = 256
	ioctlMaxMsgLen = totalHdrLen + ioctlMaxDLen
)

// flags bits within the CDC header.
const (
	flagsErrorBit = 1 << 0
	flagsSetBit   = 1 << 1
	flagsReqIDPos = 16
)

// Bus is the SDIO function-2 access the IOCTL layer needs.
type Bus interface {
	Cmd53Write(fn int, addr uint32, buf []byte) bool
	Cmd53Read(fn int, addr uint32, buf []byte, nbytes int) (int, bool)
}

// readyHint is satisfied by *sdio.Link; it is optional (asserted, not
// embedded in Bus) since fakes in tests need not implement it.
type readyHint interface {
	IOCTLReady() bool
}

// Regs is the backplane access needed to poll the chip's interrupt status
// register for a pending IOCTL response.
type Regs interface {
	Read32(addr uint32) (uint32, bool)
	Write32(addr, val uint32) bool
}

// Ctrl is the IOCTL request/response engine for one driver instance.
type Ctrl struct {
	bus     Bus
	regs    Regs
	plat    platform.Platform
	console platform.Console

	seq   uint8
	reqid uint16

	rxbuf [ioctlMaxMsgLen]byte
}

// New returns an IOCTL control engine bound to bus/regs/plat.
func New(bus Bus, regs Regs, plat platform.Platform, console platform.Console) *Ctrl {
	if console == nil {
		console = platform.NopConsole{}
	}
	return &Ctrl{bus: bus, regs: regs, plat: plat, console: console}
}

// nextReqID returns the next strictly increasing 16-bit request id,
// wrapping at 0xffff back to 0.
func (c *Ctrl) nextReqID() uint16 {
	id := c.reqid
	c.reqid++
	return id
}

// buildFrame assembles one IOCTL request frame: SDPCM header, CDC header,
// optional NUL-terminated variable name, then value bytes, padded to a
// 4-byte multiple.
func (c *Ctrl) buildFrame(cmd uint32, write bool, name string, value []byte, reqid uint16) []byte {
	var nameBytes []byte
	if name != "" {
		nameBytes = append([]byte(name), 0)
	}

	payloadLen := len(nameBytes) + len(value)
	total := totalHdrLen + payloadLen
	if pad := total % 4; pad != 0 {
		total += 4 - pad
	}

	frame := make([]byte, total)

	length := uint16(total)
	notlen := ^length

	binary.LittleEndian.PutUint16(frame[0:2], length)
	binary.LittleEndian.PutUint16(frame[2:4], notlen)
	frame[4] = c.seq
	c.seq++
	frame[5] = 0 // channel: control
	frame[6] = 0 // next frame length, unused on TX
	frame[7] = sdpcmHdrLen

	binary.LittleEndian.PutUint32(frame[12:16], cmd)
	binary.LittleEndian.PutUint16(frame[16:18], uint16(payloadLen))
	binary.LittleEndian.PutUint16(frame[18:20], 0)

	flags := uint32(reqid) << flagsReqIDPos
	if write {
		flags |= flagsSetBit
	}
	binary.LittleEndian.PutUint32(frame[20:24], flags)
	binary.LittleEndian.PutUint32(frame[24:28], 0)

	copy(frame[totalHdrLen:], nameBytes)
	copy(frame[totalHdrLen+len(nameBytes):], value)

	return frame
}

// Cmd sends an IOCTL request and waits for its response. waitMsec is the
// polling budget in milliseconds; zero issues the command and returns
// immediately without waiting, a negative value disables the wire write's
// response wait entirely (fire-and-forget). rxLen bounds how many response
// payload bytes are copied out.
func (c *Ctrl) Cmd(cmd uint32, write bool, name string, value []byte, rxLen, waitMsec int) ([]byte, bool) {
	reqid := c.nextReqID()
	frame := c.buildFrame(cmd, write, name, value, reqid)

	if !c.bus.Cmd53Write(chipregs.FuncRad, radioFuncAddr, frame) {
		return nil, false
	}

	if waitMsec <= 0 {
		return nil, true
	}

	return c.poll(reqid, rxLen, waitMsec)
}

// GetVar issues a named "get" IOCTL and returns its response value.
func (c *Ctrl) GetVar(name string, rxLen, waitMsec int) ([]byte, bool) {
	return c.Cmd(IoctlGetVar, false, name, nil, rxLen, waitMsec)
}

// SetVar issues a named "set" IOCTL.
func (c *Ctrl) SetVar(name string, value []byte, waitMsec int) bool {
	_, ok := c.Cmd(IoctlSetVar, true, name, value, 0, waitMsec)
	return ok
}

// poll implements the IOCTL response state machine: Sent -> AwaitingAck ->
// {Complete, Retrying, Failed}. A mismatched reqid is a stale response to a
// cancelled or earlier command; it is discarded silently and the loop
// retries immediately (Retrying), without consuming the poll budget, per
// spec.md §7/§4.5.
func (c *Ctrl) poll(reqid uint16, rxLen, waitMsec int) ([]byte, bool) {
	hint, hasHint := c.bus.(readyHint)

	for waitMsec >= 0 {
		if hasHint && !hint.IOCTLReady() {
			c.plat.Delay(ioctlPollMsec)
			waitMsec -= int(ioctlPollMsec / time.Millisecond)
			continue
		}

		if status, ok := c.regs.Read32(chipregs.SBIntStatusReg); ok && status&0xff != 0 {
			c.regs.Write32(chipregs.SBIntStatusReg, status&0xff)

			n, crcOK := c.bus.Cmd53Read(chipregs.FuncRad, radioFuncAddr, c.rxbuf[:], len(c.rxbuf))
			if crcOK && n >= totalHdrLen {
				if rx, ok := decodeResponse(c.rxbuf[:n]); ok {
					if rx.reqid != reqid {
						continue // Retrying: stale reqid, doesn't count against timeout
					}
					if rx.errorBit {
						return nil, false // Failed
					}

					dlen := rx.inlen
					if dlen > rxLen {
						dlen = rxLen
					}
					if dlen > len(rx.payload) {
						dlen = len(rx.payload)
					}

					return rx.payload[:dlen], true // Complete
				}
			}
		}

		c.plat.Delay(ioctlPollMsec)
		waitMsec -= int(ioctlPollMsec / time.Millisecond)
	}

	return nil, false // Failed: timeout
}

type response struct {
	reqid    uint16
	errorBit bool
	inlen    int
	payload  []byte
}

// decodeResponse validates the SDPCM length invariant and splits an IOCTL
// response frame into its CDC header fields and payload.
func decodeResponse(buf []byte) (response, bool) {
	if len(buf) < totalHdrLen {
		return response{}, false
	}

	length := binary.LittleEndian.Uint16(buf[0:2])
	notlen := binary.LittleEndian.Uint16(buf[2:4])
	if notlen != ^length {
		return response{}, false
	}

	flags := binary.LittleEndian.Uint32(buf[20:24])
	inlen := int(binary.LittleEndian.Uint16(buf[18:20]))

	return response{
		reqid:    uint16(flags >> flagsReqIDPos),
		errorBit: flags&flagsErrorBit != 0,
		inlen:    inlen,
		payload:  buf[totalHdrLen:],
	}, true
}
