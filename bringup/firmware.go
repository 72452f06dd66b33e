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

// blockSize is the backplane function's block-mode transfer granularity
// firmware streaming writes in.
const blockSize = 64

// StreamFirmware reads the firmware image from fw and writes it into chip
// RAM starting at address 0, advancing in TxBufferLen-byte stripes. Each
// stripe is decomposed into whole block-mode writes plus any byte-mode
// remainder; the window is reprogrammed transparently by Window.Addr as
// the cursor crosses 32 KiB boundaries. It returns the number of bytes
// written, which must equal chipregs.FirmwareLen for a successful upload.
func StreamFirmware(link Link, win Window, fw platform.FirmwareReader) (int, error) {
	length, err := fw.Open("firmware")
	if err != nil {
		return 0, fmt.Errorf("bringup: open firmware: %w", err)
	}
	defer fw.Close()

	buf := make([]byte, chipregs.TxBufferLen)

	var cursor uint32
	total := 0

	for total < length {
		n := chipregs.TxBufferLen
		if length-total < n {
			n = length - total
		}

		if err := fw.Read(buf[:n]); err != nil {
			return total, fmt.Errorf("bringup: read firmware: %w", err)
		}

		if err := writeStripe(link, win, cursor, buf[:n]); err != nil {
			return total, err
		}

		cursor += uint32(n)
		total += n
	}

	return total, nil
}

// writeStripe splits one stripe into whole blockSize blocks (written with
// WriteBlocks) and a residual written with byte-mode Cmd53Write.
func writeStripe(link Link, win Window, base uint32, data []byte) error {
	nBlocks := len(data) / blockSize
	blockBytes := nBlocks * blockSize

	if nBlocks > 0 {
		off, ok := win.Addr(base)
		if !ok {
			return fmt.Errorf("bringup: window program failed at %#x", base)
		}
		if !link.WriteBlocks(chipregs.FuncBak, off, data[:blockBytes], blockSize) {
			return fmt.Errorf("bringup: block write failed at %#x", base)
		}
	}

	if tail := data[blockBytes:]; len(tail) > 0 {
		off, ok := win.Addr(base + uint32(blockBytes))
		if !ok {
			return fmt.Errorf("bringup: window program failed at %#x", base+uint32(blockBytes))
		}
		if !link.Cmd53Write(chipregs.FuncBak, off, tail) {
			return fmt.Errorf("bringup: tail write failed at %#x", base+uint32(blockBytes))
		}
	}

	return nil
}
