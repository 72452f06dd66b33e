// https://github.com/usbarmory/tamago
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package backplane

import "testing"

// fakeBus records CMD52 writes and satisfies Bus without touching real
// hardware.
type fakeBus struct {
	writes []uint32 // register addresses written
}

func (f *fakeBus) Cmd52(fn int, addr uint32, data uint8, wr, raw bool) (uint8, bool) {
	if wr {
		f.writes = append(f.writes, addr)
	}
	return 0, true
}

func (f *fakeBus) Cmd53Read(fn int, addr uint32, buf []byte, nbytes int) (int, bool) {
	return nbytes, true
}

func (f *fakeBus) Cmd53Write(fn int, addr uint32, buf []byte) bool {
	return true
}

func TestWindowSuppressesRedundantWrites(t *testing.T) {
	bus := &fakeBus{}
	w := New(bus)

	if !w.set(0x18000000) {
		t.Fatal("first set failed")
	}
	first := len(bus.writes)
	if first == 0 {
		t.Fatal("first set issued no writes")
	}

	if !w.set(0x18000508) {
		t.Fatal("same-window set failed")
	}
	if len(bus.writes) != first {
		t.Errorf("same-window set issued %d more writes, want 0", len(bus.writes)-first)
	}

	if !w.set(0x18008000) {
		t.Fatal("new-window set failed")
	}
	if len(bus.writes) == first {
		t.Error("window change issued no writes")
	}
}

func TestAddrMasksOffset(t *testing.T) {
	bus := &fakeBus{}
	w := New(bus)

	off, ok := w.Addr(0x18004123)
	if !ok {
		t.Fatal("Addr failed")
	}
	if want := uint32(0x8000 | 0x4123); off != want {
		t.Errorf("Addr = %#x, want %#x", off, want)
	}
}
