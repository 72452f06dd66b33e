// https://github.com/usbarmory/tamago
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package bringup

import (
	"fmt"
	"testing"

	"bcm43430/chipregs"
)

// fakeLink counts writes but performs no real I/O.
type fakeLink struct {
	writes    int
	writeErr  bool
	blockSizes []int
}

func (f *fakeLink) Cmd(num uint8, arg uint32) (uint32, bool) { return 0, true }
func (f *fakeLink) Cmd7(rca uint16) bool                     { return true }
func (f *fakeLink) Cmd52(fn int, addr uint32, data uint8, wr, raw bool) (uint8, bool) {
	return 0, true
}
func (f *fakeLink) Cmd53Write(fn int, addr uint32, buf []byte) bool {
	f.writes++
	return !f.writeErr
}
func (f *fakeLink) WriteBlocks(fn int, addr uint32, buf []byte, blockSize int) bool {
	f.writes++
	f.blockSizes = append(f.blockSizes, len(buf)/blockSize)
	return !f.writeErr
}

// fakeWindow maps addresses the way backplane.Window.Addr does, without
// recording them or suppressing redundant window writes.
type fakeWindow struct{}

func (fakeWindow) Addr(addr uint32) (uint32, bool)     { return chipregs.WindowBit32 | (addr & chipregs.AddrMask), true }
func (fakeWindow) Read32(addr uint32) (uint32, bool)   { return 0, true }
func (fakeWindow) Write32(addr, val uint32) bool       { return true }

// fakeFirmwareReader streams a length-byte zero-filled image.
type fakeFirmwareReader struct {
	length int
	pos    int
}

func (r *fakeFirmwareReader) Open(image string) (int, error) {
	r.pos = 0
	return r.length, nil
}

func (r *fakeFirmwareReader) Read(buf []byte) error {
	if r.pos+len(buf) > r.length {
		return fmt.Errorf("read past end")
	}
	r.pos += len(buf)
	return nil
}

func (r *fakeFirmwareReader) Close() error { return nil }

func TestStreamFirmwareLength(t *testing.T) {
	link := &fakeLink{}
	win := fakeWindow{}
	fw := &fakeFirmwareReader{length: chipregs.FirmwareLen}

	n, err := StreamFirmware(link, win, fw)
	if err != nil {
		t.Fatalf("StreamFirmware: %v", err)
	}
	if n != chipregs.FirmwareLen {
		t.Errorf("wrote %d bytes, want %d", n, chipregs.FirmwareLen)
	}
}

func TestStreamFirmwareStripeCount(t *testing.T) {
	link := &fakeLink{}
	win := fakeWindow{}
	fw := &fakeFirmwareReader{length: chipregs.FirmwareLen}

	if _, err := StreamFirmware(link, win, fw); err != nil {
		t.Fatalf("StreamFirmware: %v", err)
	}

	wantStripes := (chipregs.FirmwareLen + chipregs.TxBufferLen - 1) / chipregs.TxBufferLen
	if wantStripes != 24 {
		t.Fatalf("sanity: expected 24 stripes, computed %d", wantStripes)
	}

	// Every stripe writes at most one block-mode call and at most one
	// byte-mode tail call.
	if len(link.blockSizes) > wantStripes {
		t.Errorf("issued %d block writes for %d stripes", len(link.blockSizes), wantStripes)
	}
}

func TestLastStripeDecomposition(t *testing.T) {
	residual := chipregs.FirmwareLen - 23*chipregs.TxBufferLen
	if residual != 0x2e84 {
		t.Fatalf("sanity: residual = %#x, want 0x2e84", residual)
	}

	blocks := residual / blockSize
	tail := residual % blockSize

	if blocks*blockSize+tail != residual {
		t.Errorf("blocks*%d + tail != residual", blockSize)
	}
	if tail != 0x04 {
		t.Errorf("tail = %#x, want 0x04", tail)
	}
}

func TestNVRAMPayloadAppendsTrailerOnce(t *testing.T) {
	cfg := []byte("ccode=ALL\x00boardrev=0x1234\x00")

	payload, err := nvramPayload(nil, cfg)
	if err != nil {
		t.Fatalf("nvramPayload: %v", err)
	}
	if len(payload) != len(cfg)+len(nvramTrailer) {
		t.Fatalf("payload length = %d, want %d", len(payload), len(cfg)+len(nvramTrailer))
	}

	again, err := nvramPayload(nil, payload)
	if err != nil {
		t.Fatalf("nvramPayload (already terminated): %v", err)
	}
	if len(again) != len(payload) {
		t.Errorf("trailer appended twice: len=%d, want %d", len(again), len(payload))
	}
}

func TestWriteNVRAMChunking(t *testing.T) {
	link := &fakeLink{}
	win := fakeWindow{}

	cfg := make([]byte, nvramChunk*3+10)

	if err := WriteNVRAM(link, win, nil, cfg); err != nil {
		t.Fatalf("WriteNVRAM: %v", err)
	}

	total := len(cfg) + len(nvramTrailer)
	wantWrites := (total + nvramChunk - 1) / nvramChunk
	if link.writes != wantWrites {
		t.Errorf("issued %d writes, want %d", link.writes, wantWrites)
	}
}
