// https://github.com/usbarmory/tamago
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package sdio

import (
	"time"

	"bcm43430/crc"
	"bcm43430/logring"
	"bcm43430/platform"
)

// Pins names the six GPIO lines a bit-banged 4-bit SDIO link drives. D0-D3
// must be contiguous GPIO numbers, D0 lowest, so they can be driven/sampled
// as one field.
type Pins struct {
	CLK int
	CMD int
	D0  int
	D1  int
	D2  int
	D3  int
}

const (
	// dataPins is the width of the 4-bit data bus.
	dataPins = crc.DataPins

	// rspWait is the default number of clocks the link waits for a
	// response start bit. Empirical; recalibrate for a faster clock.
	rspWait = 20

	// crcTrailerNibbles is the number of 4-bit clocks needed to shift a
	// 16-bit-per-lane CRC16 trailer across four parallel lanes.
	crcTrailerNibbles = 16
)

// Link is the bit-banged SDIO physical/link layer.
type Link struct {
	plat platform.Platform
	pins Pins

	halfPeriod time.Duration
	rspWait    int
	console    platform.Console
	ring       *logring.Ring
}

// New returns a Link ready to drive pins through plat. halfPeriod sets the
// clock half-period (defaults to 1 microsecond, giving roughly a 400 kHz
// link, if zero is passed). ring may be nil, in which case no command,
// response, data-preview or ack traces are recorded.
func New(plat platform.Platform, pins Pins, halfPeriod time.Duration, console platform.Console, ring *logring.Ring) *Link {
	if halfPeriod <= 0 {
		halfPeriod = time.Microsecond
	}
	if console == nil {
		console = platform.NopConsole{}
	}

	l := &Link{
		plat:       plat,
		pins:       pins,
		halfPeriod: halfPeriod,
		rspWait:    rspWait,
		console:    console,
		ring:       ring,
	}

	plat.SetMode(pins.CLK, true)
	plat.Out(pins.CLK, false)
	plat.SetMode(pins.CMD, false)
	plat.SetPull(pins.CMD, platform.PullUp)

	return l
}

// SetRspWait overrides the response start-bit spin count, for platforms
// whose clock period differs enough from the empirical default to need
// recalibration.
func (l *Link) SetRspWait(n int) {
	l.rspWait = n
}

// logDataLen is the number of payload bytes a data-preview record keeps,
// mirroring the original LOG_DATA_LEN.
const logDataLen = 6

// logMsg appends a raw 6-byte command/response frame, padded to the
// 8-byte record (the original's SDIO_MSG is itself MSG_BYTES+2).
func (l *Link) logMsg(f Frame) {
	if l.ring == nil {
		return
	}
	var r logring.Record
	copy(r[:6], f[:])
	l.ring.Append(r)
}

// logData appends a short preview of a data-phase transfer: byte 0 carries
// the high bits of the length plus an ok flag, byte 1 the low byte of the
// length, and bytes 2-7 up to logDataLen bytes of the transferred data.
func (l *Link) logData(data []byte, ok bool) {
	if l.ring == nil {
		return
	}
	n := len(data)
	preview := n
	if preview > logDataLen {
		preview = logDataLen
	}

	var r logring.Record
	r[0] = byte(n>>8) | 0x80
	if ok {
		r[0] |= 0x40
	}
	r[1] = byte(n)
	copy(r[2:2+preview], data[:preview])

	l.ring.Append(r)
}

// logDataAck appends the 8-bit data-response token read after a write.
func (l *Link) logDataAck(tok uint8) {
	if l.ring == nil {
		return
	}
	var r logring.Record
	r[0] = 0xfe
	r[1] = tok
	l.ring.Append(r)
}

func (l *Link) clockPulse() {
	l.plat.Out(l.pins.CLK, true)
	l.plat.Delay(l.halfPeriod)
	l.plat.Out(l.pins.CLK, false)
	l.plat.Delay(l.halfPeriod)
}

// idle clocks n low-to-high-to-low cycles without driving CMD, separating
// frames as the framing discipline requires.
func (l *Link) idle(n int) {
	for i := 0; i < n; i++ {
		l.clockPulse()
	}
}

func (l *Link) clockBitOutCMD(bit bool) {
	l.plat.Out(l.pins.CMD, bit)
	l.clockPulse()
}

func (l *Link) clockBitInCMD() bool {
	l.plat.Out(l.pins.CLK, true)
	l.plat.Delay(l.halfPeriod)
	v := l.plat.In(l.pins.CMD)
	l.plat.Out(l.pins.CLK, false)
	l.plat.Delay(l.halfPeriod)
	return v
}

func (l *Link) sendFrame(f Frame) {
	for _, b := range f {
		for i := 7; i >= 0; i-- {
			l.clockBitOutCMD(b&(1<<uint(i)) != 0)
		}
	}
}

// transact drives f onto CMD and waits for a response frame, returning the
// decoded frame and whether a start bit was observed before rspWait clocks
// elapsed.
func (l *Link) transact(f Frame) (Frame, bool) {
	l.idle(2)

	l.logMsg(f)

	l.plat.SetMode(l.pins.CMD, true)
	l.sendFrame(f)
	l.plat.SetMode(l.pins.CMD, false)

	rsp, ok := l.waitResponse()
	if ok {
		l.logMsg(rsp)
	}
	return rsp, ok
}

func (l *Link) waitResponse() (Frame, bool) {
	for i := 0; i < l.rspWait; i++ {
		if !l.clockBitInCMD() {
			var acc uint64
			for b := 0; b < 47; b++ {
				acc <<= 1
				if l.clockBitInCMD() {
					acc |= 1
				}
			}

			var rsp Frame
			rsp[0] = byte(acc >> 40)
			rsp[1] = byte(acc >> 32)
			rsp[2] = byte(acc >> 24)
			rsp[3] = byte(acc >> 16)
			rsp[4] = byte(acc >> 8)
			rsp[5] = byte(acc)

			return rsp, true
		}
	}

	return Frame{}, false
}

// Cmd sends a generic command (CMD0/3/5/8 and friends) and returns the
// response argument. ok is false only on a start-bit timeout; a CRC7
// mismatch is logged and the argument is still returned, per the wire-layer
// error policy (report and continue).
func (l *Link) Cmd(num uint8, arg uint32) (uint32, bool) {
	rsp, ok := l.transact(EncodeCmd(num, arg))
	if !ok {
		return 0, false
	}

	_, a, crcOK := rsp.Decode()
	if !crcOK {
		l.console.Printf("sdio: CRC7 mismatch on response to CMD%d", num)
	}

	return a, true
}

// Cmd7 selects the card at rca.
func (l *Link) Cmd7(rca uint16) bool {
	_, ok := l.transact(EncodeCmd7(rca))
	return ok
}

// Cmd52 performs a single-byte I/O access and returns the response data
// byte.
func (l *Link) Cmd52(fn int, addr uint32, data uint8, wr, raw bool) (uint8, bool) {
	rsp, ok := l.transact(EncodeCmd52(fn, addr, data, wr, raw))
	if !ok {
		return 0, false
	}

	_, arg, crcOK := rsp.Decode()
	if !crcOK {
		l.console.Printf("sdio: CRC7 mismatch on CMD52 response")
	}

	return uint8(arg), true
}

// dataPinBase is the lowest-numbered of the four contiguous data pins.
func (l *Link) dataPinBase() int {
	return l.pins.D0
}

func (l *Link) setDataMode(out bool) {
	for _, p := range [...]int{l.pins.D0, l.pins.D1, l.pins.D2, l.pins.D3} {
		l.plat.SetMode(p, out)
	}
}

func (l *Link) clockNibbleIn() uint8 {
	l.plat.Out(l.pins.CLK, true)
	l.plat.Delay(l.halfPeriod)
	v := uint8(l.plat.ReadField(l.dataPinBase(), dataPins))
	l.plat.Out(l.pins.CLK, false)
	l.plat.Delay(l.halfPeriod)
	return v
}

func (l *Link) clockNibbleOut(nibble uint8) {
	l.plat.WriteField(l.dataPinBase(), dataPins, uint32(nibble))
	l.plat.Out(l.pins.CLK, true)
	l.plat.Delay(l.halfPeriod)
	l.plat.Out(l.pins.CLK, false)
	l.plat.Delay(l.halfPeriod)
}

func (l *Link) clockBitInD0() bool {
	l.plat.Out(l.pins.CLK, true)
	l.plat.Delay(l.halfPeriod)
	v := l.plat.In(l.pins.D0)
	l.plat.Out(l.pins.CLK, false)
	l.plat.Delay(l.halfPeriod)
	return v
}

// IOCTLReady samples D1 without clocking the bus, a cheap out-of-band hint
// that the chip has data pending (D1 idles low when a response or event is
// queued). It never replaces the authoritative interrupt-status-register
// poll, only lets a caller skip that more expensive read when the hint
// reports nothing pending.
func (l *Link) IOCTLReady() bool {
	return !l.plat.In(l.pins.D1)
}

// waitDataStart polls D0 for the data-block start bit.
func (l *Link) waitDataStart() bool {
	for i := 0; i < l.rspWait; i++ {
		if !l.clockBitInD0() {
			return true
		}
	}
	return false
}

// Cmd53Read issues a CMD53 byte-mode read and clocks in nbytes of payload
// plus the CRC16 trailer. buf may be nil, in which case the bytes are still
// consumed from the wire to keep the chip's internal pointer aligned; a
// non-nil buf must have length >= nbytes. It returns the number of payload
// bytes received (never counting the CRC trailer) and whether the CRC16
// check passed.
func (l *Link) Cmd53Read(fn int, addr uint32, buf []byte, nbytes int) (int, bool) {
	count := uint32(nbytes) & cmd53CountMask

	if _, ok := l.transact(EncodeCmd53(fn, addr, count, false, false, true)); !ok {
		return 0, false
	}

	l.setDataMode(false)

	if !l.waitDataStart() {
		return 0, false
	}

	var state uint64
	received := 0

	for received < nbytes {
		hi := l.clockNibbleIn()
		lo := l.clockNibbleIn()

		if buf != nil {
			buf[received] = hi<<4 | lo
		}

		state = crc.Update(state, hi)
		state = crc.Update(state, lo)
		received++
	}

	for i := 0; i < crcTrailerNibbles; i++ {
		state = crc.Update(state, l.clockNibbleIn())
	}

	l.idle(2)

	ok := state == 0
	if buf != nil {
		l.logData(buf[:received], ok)
	} else {
		l.logData(nil, ok)
	}

	return received, ok
}

// Cmd53Write issues a CMD53 byte-mode write, driving nbytes of payload
// followed by the CRC16 trailer and reading back the chip's data-response
// token. It reports whether the token indicated acceptance.
func (l *Link) Cmd53Write(fn int, addr uint32, buf []byte) bool {
	nbytes := len(buf)
	count := uint32(nbytes) & cmd53CountMask

	if _, ok := l.transact(EncodeCmd53(fn, addr, count, true, false, true)); !ok {
		return false
	}

	return l.writeDataBlock(buf)
}

// WriteBlocks issues a CMD53 block-mode write of len(buf)/blockSize blocks.
func (l *Link) WriteBlocks(fn int, addr uint32, buf []byte, blockSize int) bool {
	nblocks := len(buf) / blockSize

	if _, ok := l.transact(EncodeCmd53(fn, addr, uint32(nblocks), true, true, true)); !ok {
		return false
	}

	return l.writeDataBlock(buf)
}

// writeDataBlock drives the data phase common to byte-mode and block-mode
// writes: turnaround, start bit, payload nibbles, CRC16 trailer, stop bit,
// then the chip's data-response token.
func (l *Link) writeDataBlock(buf []byte) bool {
	l.setDataMode(true)

	l.clockNibbleOut(0xf) // turnaround
	l.clockNibbleOut(0x0) // start bit

	var state uint64

	for _, b := range buf {
		hi := b >> 4
		lo := b & 0xf

		l.clockNibbleOut(hi)
		l.clockNibbleOut(lo)

		state = crc.Update(state, hi)
		state = crc.Update(state, lo)
	}

	for i := 0; i < crcTrailerNibbles; i++ {
		nibble := uint8((state >> uint(4*i)) & 0xf)
		l.clockNibbleOut(nibble)
	}

	l.clockNibbleOut(0xf) // stop bit / idle

	l.setDataMode(false)

	l.logData(buf, true)

	return l.readAckToken()
}

// readAckToken clocks in the 8-bit data-response token on D0 and reports
// whether its status field indicates acceptance (0b010).
func (l *Link) readAckToken() bool {
	var tok uint8
	for i := 0; i < 8; i++ {
		tok <<= 1
		if l.clockBitInD0() {
			tok |= 1
		}
	}

	status := (tok >> 3) & 0x7
	accepted := status == 0x2

	l.logDataAck(tok)

	if !accepted {
		l.console.Printf("sdio: data response token rejected: status=%#x", status)
	}

	return accepted
}
