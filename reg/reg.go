// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package reg provides 32-bit register access for memory mapped peripherals.
package reg

import (
	"sync/atomic"
	"unsafe"
)

// Map represents a 32-bit register space.
type Map interface {
	// Read32 returns the register value at addr.
	Read32(addr uint32) uint32
	// Write32 sets the register at addr to val.
	Write32(addr uint32, val uint32)
}

// MMIO accesses registers through memory mapped I/O, it must only be used on
// peripheral addresses.
type MMIO struct{}

// Read32 performs an atomic 32-bit load at addr.
func (MMIO) Read32(addr uint32) uint32 {
	r := (*uint32)(unsafe.Pointer(uintptr(addr)))
	return atomic.LoadUint32(r)
}

// Write32 performs an atomic 32-bit store at addr.
func (MMIO) Write32(addr uint32, val uint32) {
	r := (*uint32)(unsafe.Pointer(uintptr(addr)))
	atomic.StoreUint32(r, val)
}

