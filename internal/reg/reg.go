// https://github.com/usbarmory/tamago
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package reg provides primitives for retrieving and modifying memory-mapped
// hardware registers reached through a mmap'd peripheral window.
package reg

import (
	"runtime"
	"sync/atomic"
	"time"
	"unsafe"
)

// Base is the virtual address a peripheral window has been mapped to; every
// offset passed to the functions below is relative to it. Platform backends
// set this once, before any register access, and never move it afterwards.
type Base struct {
	addr uintptr
}

// NewBase wraps the base address of an already-mapped peripheral window.
func NewBase(addr uintptr) Base {
	return Base{addr: addr}
}

// NewBaseSlice wraps the base address of an mmap'd []byte window, as
// returned by golang.org/x/sys/unix.Mmap. The slice must outlive the
// returned Base and must not be reallocated or moved by the caller.
func NewBaseSlice(mem []byte) Base {
	return Base{addr: uintptr(unsafe.Pointer(&mem[0]))}
}

func (b Base) ptr(offset uint32) *uint32 {
	return (*uint32)(unsafe.Pointer(b.addr + uintptr(offset)))
}

func (b Base) Get(offset uint32, pos int, mask int) uint32 {
	r := atomic.LoadUint32(b.ptr(offset))
	return uint32((int(r) >> pos) & mask)
}

func (b Base) Set(offset uint32, pos int) {
	p := b.ptr(offset)
	atomic.StoreUint32(p, atomic.LoadUint32(p)|(1<<uint(pos)))
}

func (b Base) Clear(offset uint32, pos int) {
	p := b.ptr(offset)
	atomic.StoreUint32(p, atomic.LoadUint32(p)&^(1<<uint(pos)))
}

func (b Base) SetN(offset uint32, pos int, mask int, val uint32) {
	p := b.ptr(offset)
	r := atomic.LoadUint32(p)
	r = (r &^ (uint32(mask) << uint(pos))) | (val << uint(pos))
	atomic.StoreUint32(p, r)
}

func (b Base) Read(offset uint32) uint32 {
	return atomic.LoadUint32(b.ptr(offset))
}

func (b Base) Write(offset uint32, val uint32) {
	atomic.StoreUint32(b.ptr(offset), val)
}

func (b Base) Or(offset uint32, val uint32) {
	p := b.ptr(offset)
	atomic.StoreUint32(p, atomic.LoadUint32(p)|val)
}

// Wait spins until a register field matches val, yielding between polls.
func (b Base) Wait(offset uint32, pos int, mask int, val uint32) {
	for b.Get(offset, pos, mask) != val {
		runtime.Gosched()
	}
}

// WaitFor is like Wait but gives up after timeout, reporting whether the
// condition was observed.
func (b Base) WaitFor(timeout time.Duration, offset uint32, pos int, mask int, val uint32) bool {
	start := time.Now()

	for b.Get(offset, pos, mask) != val {
		runtime.Gosched()

		if time.Since(start) >= timeout {
			return false
		}
	}

	return true
}
