// https://github.com/usbarmory/tamago
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package sdpcm

import (
	"encoding/binary"

	"bcm43430/chipregs"
)

// ethertypeBRCM is the Ethernet ethertype BRCM event frames carry.
const ethertypeBRCM = 0x886c

// Ethernet header + BRCM event header sizes, preceding the fixed-layout
// event message.
const (
	ethHdrLen  = 14 // dst(6) + src(6) + ethertype(2)
	brcmHdrLen = 8  // subtype(2) + length(2) + oui(3) + usr(1)

	// eventMsgLen is the fixed-layout event message: version(1) +
	// flags(1) + type(4) + status(4) + reason(4) + auth(4) +
	// datalen(4) + mac(6) + pad(18).
	eventMsgLen = 46
)

// Event is a decoded asynchronous event frame.
type Event struct {
	Type    uint32
	Status  uint32
	Reason  uint32
	Auth    uint32
	DataLen uint32
	MAC     [6]byte
}

// ParseEvent validates and decodes one radio-function read as an event
// frame. It returns ok=false for frames whose SDPCM length invariant fails
// or whose ethertype is not BRCM's (such frames are not events; the caller
// may still inspect raw bytes).
func ParseEvent(buf []byte) (Event, bool) {
	if len(buf) < sdpcmHdrLen {
		return Event{}, false
	}

	length := binary.LittleEndian.Uint16(buf[0:2])
	notlen := binary.LittleEndian.Uint16(buf[2:4])
	if notlen != ^length || int(length) <= sdpcmHdrLen {
		return Event{}, false
	}

	rest := buf[sdpcmHdrLen:]
	if len(rest) < ethHdrLen+brcmHdrLen+eventMsgLen {
		return Event{}, false
	}

	ethertype := binary.BigEndian.Uint16(rest[12:14])
	if ethertype != ethertypeBRCM {
		return Event{}, false
	}

	msg := rest[ethHdrLen+brcmHdrLen:]

	var ev Event
	ev.Type = binary.BigEndian.Uint32(msg[2:6])
	ev.Status = binary.BigEndian.Uint32(msg[6:10])
	ev.Reason = binary.BigEndian.Uint32(msg[10:14])
	ev.Auth = binary.BigEndian.Uint32(msg[14:18])
	ev.DataLen = binary.BigEndian.Uint32(msg[18:22])
	copy(ev.MAC[:], msg[22:28])

	return ev, true
}

// GetEvent reads one event frame off the radio function, mirroring the
// source's get_event/ioctl_get_event: first the 12-byte SDPCM header alone,
// validating the length/not-length invariant, then the rest in CMD53
// byte-mode reads of at most ioctlMaxDLen bytes each, copied into
// buf up to its capacity, with any remainder beyond buf discarded by
// reading into a nil destination to keep the chip's pointer aligned.
func GetEvent(bus Bus, buf []byte) (Event, int, bool) {
	var hdr [sdpcmHdrLen]byte
	if _, crcOK := bus.Cmd53Read(chipregs.FuncRad, radioFuncAddr, hdr[:], sdpcmHdrLen); !crcOK {
		return Event{}, 0, false
	}

	length := int(binary.LittleEndian.Uint16(hdr[0:2]))
	notlen := binary.LittleEndian.Uint16(hdr[2:4])
	if length == 0 || notlen == 0 || notlen != ^uint16(length) {
		return Event{}, 0, false
	}

	n := copy(buf, hdr[:])

	for n < length && n < len(buf) {
		chunk := length - n
		if room := len(buf) - n; chunk > room {
			chunk = room
		}
		if chunk > ioctlMaxDLen {
			chunk = ioctlMaxDLen
		}
		if _, crcOK := bus.Cmd53Read(chipregs.FuncRad, radioFuncAddr, buf[n:n+chunk], chunk); !crcOK {
			return Event{}, n, false
		}
		n += chunk
	}

	for n < length {
		chunk := length - n
		if chunk > ioctlMaxDLen {
			chunk = ioctlMaxDLen
		}
		if _, crcOK := bus.Cmd53Read(chipregs.FuncRad, radioFuncAddr, nil, chunk); !crcOK {
			return Event{}, n, false
		}
		n += chunk
	}

	final := n
	if final > len(buf) {
		final = len(buf)
	}

	ev, ok := ParseEvent(buf[:final])
	return ev, n, ok
}
