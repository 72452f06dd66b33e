// https://github.com/usbarmory/tamago
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package sdpcm

import (
	"encoding/binary"
	"testing"

	"bcm43430/platform/fake"
)

// fakeBus is a Bus that reports a queued response, built by buildResponse
// with the reqid and error bit the test wants. With once set, the response
// is delivered on the first read only; later reads return no bytes.
type fakeBus struct {
	writes   [][]byte
	response []byte
	once     bool
}

func (b *fakeBus) Cmd53Write(fn int, addr uint32, buf []byte) bool {
	b.writes = append(b.writes, append([]byte(nil), buf...))
	return true
}

func (b *fakeBus) Cmd53Read(fn int, addr uint32, buf []byte, nbytes int) (int, bool) {
	n := copy(buf, b.response)
	if b.once {
		b.response = nil
	}
	return n, true
}

// fakeRegs always reports one pending interrupt bit.
type fakeRegs struct{}

func (fakeRegs) Read32(addr uint32) (uint32, bool) { return 0x01, true }
func (fakeRegs) Write32(addr, val uint32) bool     { return true }

func buildResponse(reqid uint16, errorBit bool, payload []byte) []byte {
	total := totalHdrLen + len(payload)
	if pad := total % 4; pad != 0 {
		total += 4 - pad
	}
	buf := make([]byte, total)

	length := uint16(total)
	binary.LittleEndian.PutUint16(buf[0:2], length)
	binary.LittleEndian.PutUint16(buf[2:4], ^length)

	binary.LittleEndian.PutUint16(buf[18:20], uint16(len(payload)))

	flags := uint32(reqid) << flagsReqIDPos
	if errorBit {
		flags |= flagsErrorBit
	}
	binary.LittleEndian.PutUint32(buf[20:24], flags)

	copy(buf[totalHdrLen:], payload)
	return buf
}

func TestPollCompletesOnMatchingReqID(t *testing.T) {
	plat := fake.New()
	bus := &fakeBus{response: buildResponse(0, false, []byte("4.5.6"))}
	c := New(bus, fakeRegs{}, plat, nil)

	val, ok := c.GetVar("ver", 128, 10)
	if !ok {
		t.Fatal("GetVar failed")
	}
	if string(val) != "4.5.6" {
		t.Errorf("val = %q, want %q", val, "4.5.6")
	}
}

func TestPollDiscardsMismatchedReqID(t *testing.T) {
	plat := fake.New()
	// Response carries reqid 0, but the second GetVar call issues reqid 1:
	// it must be discarded, and the call must time out since no matching
	// response ever arrives. The stale response is delivered once: a
	// discarded reqid does not count against the poll budget, so an endless
	// stream of stale responses would keep the call polling.
	bus := &fakeBus{response: buildResponse(0, false, []byte("stale")), once: true}
	c := New(bus, fakeRegs{}, plat, nil)

	c.nextReqID() // burn reqid 0 so the next GetVar issues reqid 1

	if _, ok := c.GetVar("ver", 128, 2); ok {
		t.Error("GetVar succeeded on a mismatched reqid, want timeout")
	}
}

func TestPollFailsOnErrorBit(t *testing.T) {
	plat := fake.New()
	c := New(&fakeBus{}, fakeRegs{}, plat, nil)
	// Pre-seed the response after reqid 0 is known: build it referencing
	// reqid 0, the id the first Cmd call will issue.
	c.bus = &fakeBus{response: buildResponse(0, true, nil)}

	if _, ok := c.GetVar("ver", 128, 10); ok {
		t.Error("GetVar succeeded despite the response's error bit")
	}
}

func TestPollTimesOutWithNoResponse(t *testing.T) {
	plat := fake.New()
	c := New(&fakeBus{}, fakeRegs{}, plat, nil)

	if _, ok := c.GetVar("ver", 128, 3); ok {
		t.Error("GetVar succeeded with no response ever queued")
	}
}
