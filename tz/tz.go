// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package tz implements the client side of the Amlogic Meson secure monitor
// (BL31) SIP services.
//
// Bulk payloads are exchanged through two shared memory regions whose
// physical addresses are obtained from the secure monitor on first use. All
// calls issued through a Context are serialized, as a single pair of shared
// memory regions backs every service.
package tz

import (
	"sync"

	"github.com/usbarmory/GoTEE-meson/mem"
	"github.com/usbarmory/GoTEE-meson/reg"
	"github.com/usbarmory/GoTEE-meson/smc"
	"github.com/usbarmory/GoTEE-meson/soc"
)

// Cache represents the data cache maintenance required after the secure
// monitor writes to memory behind the cache.
type Cache interface {
	FlushRange(addr uint64, size uint64)
}

// Context represents the secure services state, it holds the shared memory
// region bases resolved through Caller.
type Context struct {
	// Caller is the secure monitor
	Caller smc.Caller
	// Memory provides access to the shared memory regions
	Memory mem.Memory
	// Registers provides access to the chip information register
	Registers reg.Map
	// Cache, when set, is flushed after secure boot checks
	Cache Cache
	// ChipInfo is the chip information register address
	ChipInfo uint32

	mu     sync.Mutex
	input  uint64
	output uint64
}

// New returns a secure services context for the given SoC variant.
func New(caller smc.Caller, memory mem.Memory, registers reg.Map, variant *soc.Variant) *Context {
	return &Context{
		Caller:    caller,
		Memory:    memory,
		Registers: registers,
		ChipInfo:  variant.ChipInfo,
	}
}

func (c *Context) call(fid uint64, args ...uint64) (res smc.Result) {
	return c.Caller.Call(fid, args...)
}

// Call issues an arbitrary secure call, serialized with all other services.
func (c *Context) Call(fid uint64, args ...uint64) smc.Result {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.call(fid, args...)
}
