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

func TestEventMaskVector(t *testing.T) {
	mask := EventMask(WLC_E_SET_SSID, WLC_E_AUTH, WLC_E_LINK)

	if mask[0] != 0x09 {
		t.Errorf("byte0 = %#02x, want 0x09", mask[0])
	}
	if mask[2] != 0x01 {
		t.Errorf("byte2 = %#02x, want 0x01", mask[2])
	}
	for i, b := range mask {
		if i == 0 || i == 2 {
			continue
		}
		if b != 0 {
			t.Errorf("byte%d = %#02x, want 0", i, b)
		}
	}
}

func TestBuildFrameNotLenInvariant(t *testing.T) {
	plat := fake.New()
	c := New(nil, nil, plat, nil)

	frame := c.buildFrame(IoctlGetVar, false, "ver", nil, 0)

	length := binary.LittleEndian.Uint16(frame[0:2])
	notlen := binary.LittleEndian.Uint16(frame[2:4])

	if notlen != ^length {
		t.Errorf("notlen = %#04x, want %#04x", notlen, ^length)
	}
	if int(length) != len(frame) {
		t.Errorf("length field = %d, want %d (frame size)", length, len(frame))
	}
	if len(frame)%4 != 0 {
		t.Errorf("frame length %d not a 4-byte multiple", len(frame))
	}
}

func TestReqIDMonotonic(t *testing.T) {
	plat := fake.New()
	c := New(nil, nil, plat, nil)

	var prev uint16
	seen := map[uint16]bool{}

	for i := 0; i < 10; i++ {
		id := c.nextReqID()
		if i > 0 && id != prev+1 {
			t.Errorf("reqid %d not strictly increasing after %d", id, prev)
		}
		if seen[id] {
			t.Errorf("reqid %d reused", id)
		}
		seen[id] = true
		prev = id
	}
}

func TestParseEventRejectsBadNotLen(t *testing.T) {
	buf := make([]byte, sdpcmHdrLen+ethHdrLen+brcmHdrLen+eventMsgLen)
	binary.LittleEndian.PutUint16(buf[0:2], uint16(len(buf)))
	binary.LittleEndian.PutUint16(buf[2:4], 0x0000) // wrong notlen

	if _, ok := ParseEvent(buf); ok {
		t.Error("ParseEvent accepted a frame with notlen=0")
	}
}

func TestParseEventEthertype(t *testing.T) {
	buf := make([]byte, sdpcmHdrLen+ethHdrLen+brcmHdrLen+eventMsgLen)

	length := uint16(len(buf))
	binary.LittleEndian.PutUint16(buf[0:2], length)
	binary.LittleEndian.PutUint16(buf[2:4], ^length)

	rest := buf[sdpcmHdrLen:]
	binary.BigEndian.PutUint16(rest[12:14], ethertypeBRCM)

	msg := rest[ethHdrLen+brcmHdrLen:]
	binary.BigEndian.PutUint32(msg[2:6], 16) // WLC_E_LINK

	ev, ok := ParseEvent(buf)
	if !ok {
		t.Fatal("ParseEvent rejected a well-formed frame")
	}
	if ev.Type != 16 {
		t.Errorf("ev.Type = %d, want 16", ev.Type)
	}
}
