// https://github.com/usbarmory/tamago
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package bringup

import (
	"fmt"

	"bcm43430/chipregs"
	"bcm43430/platform"
)

// nvramBaseWindow is the backplane window NVRAM upload targets.
const nvramBaseWindow = 0x78000

// nvramAddr is the fixed function-1 address, within that window, NVRAM
// configuration is written to.
const nvramAddr = 0xfd54

// nvramChunk bounds each Cmd53Write so the region never needs the window
// reprogrammed mid-upload.
const nvramChunk = 252

// nvramTrailer terminates the key=value record stream (an empty record)
// and follows it with the magic bytes the chip's NVRAM parser expects.
var nvramTrailer = []byte{0x00, 0x00, 0x00, 0x00, 0xaa, 0x00, 0x55, 0xff}

// WriteNVRAM uploads a NUL-separated key=value configuration blob to the
// chip's fixed NVRAM region. config, if non-nil, is used as-is (the
// terminator and magic trailer are appended if not already present);
// otherwise the full image is read from reader.
func WriteNVRAM(link Link, win Window, reader platform.FirmwareReader, config []byte) error {
	payload, err := nvramPayload(reader, config)
	if err != nil {
		return err
	}

	if _, ok := win.Addr(nvramBaseWindow); !ok {
		return fmt.Errorf("bringup: window program failed at %#x", nvramBaseWindow)
	}

	addr := uint32(nvramAddr)
	for off := 0; off < len(payload); off += nvramChunk {
		end := off + nvramChunk
		if end > len(payload) {
			end = len(payload)
		}

		if !link.Cmd53Write(chipregs.FuncBak, addr, payload[off:end]) {
			return fmt.Errorf("bringup: NVRAM write failed at offset %#x", off)
		}

		addr += uint32(end - off)
	}

	return nil
}

func nvramPayload(reader platform.FirmwareReader, config []byte) ([]byte, error) {
	var payload []byte

	switch {
	case config != nil:
		payload = append([]byte{}, config...)
	case reader != nil:
		length, err := reader.Open("nvram")
		if err != nil {
			return nil, fmt.Errorf("bringup: open NVRAM: %w", err)
		}
		defer reader.Close()

		payload = make([]byte, length)
		if err := reader.Read(payload); err != nil {
			return nil, fmt.Errorf("bringup: read NVRAM: %w", err)
		}
	default:
		return nil, fmt.Errorf("bringup: no NVRAM source provided")
	}

	if len(payload) < len(nvramTrailer) || string(payload[len(payload)-len(nvramTrailer):]) != string(nvramTrailer) {
		payload = append(payload, nvramTrailer...)
	}

	return payload, nil
}
