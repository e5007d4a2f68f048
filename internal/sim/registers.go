// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package sim provides simulated hardware for the secure services and
// mailbox layers.
package sim

import (
	"sync"
	"time"
)

// Access represents a register write.
type Access struct {
	Addr uint32
	Val  uint32
}

// Registers is a register file backed by a map, unset registers read as
// zero.
type Registers struct {
	mu      sync.Mutex
	regs    map[uint32]uint32
	log     []Access
	onRead  map[uint32]func(val uint32) uint32
	onWrite map[uint32]func(val uint32)
}

// NewRegisters returns an empty register file.
func NewRegisters() *Registers {
	return &Registers{
		regs:    make(map[uint32]uint32),
		onRead:  make(map[uint32]func(uint32) uint32),
		onWrite: make(map[uint32]func(uint32)),
	}
}

// OnRead registers a hook which overrides the value read at addr, the hook
// receives the stored value.
func (r *Registers) OnRead(addr uint32, fn func(val uint32) uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.onRead[addr] = fn
}

// OnWrite registers a hook invoked after each write at addr.
func (r *Registers) OnWrite(addr uint32, fn func(val uint32)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.onWrite[addr] = fn
}

// Set stores a register value without logging or hooks.
func (r *Registers) Set(addr uint32, val uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.regs[addr] = val
}

// Get returns a register value without hooks.
func (r *Registers) Get(addr uint32) uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.regs[addr]
}

// Read32 implements reg.Map.
func (r *Registers) Read32(addr uint32) uint32 {
	r.mu.Lock()
	val := r.regs[addr]
	fn := r.onRead[addr]
	r.mu.Unlock()

	if fn != nil {
		val = fn(val)
	}

	return val
}

// Write32 implements reg.Map.
func (r *Registers) Write32(addr uint32, val uint32) {
	r.mu.Lock()
	r.regs[addr] = val
	r.log = append(r.log, Access{Addr: addr, Val: val})
	fn := r.onWrite[addr]
	r.mu.Unlock()

	if fn != nil {
		fn(val)
	}
}

// Log returns all register writes in program order.
func (r *Registers) Log() []Access {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]Access(nil), r.log...)
}

// Writes returns the values written at addr in program order.
func (r *Registers) Writes(addr uint32) (vals []uint32) {
	for _, a := range r.Log() {
		if a.Addr == addr {
			vals = append(vals, a.Val)
		}
	}

	return
}

// Clock is a simulated clock, each Now call advances time by Step and Sleep
// advances it by the requested duration.
type Clock struct {
	// Step is the time elapsed on each Now call
	Step time.Duration

	mu     sync.Mutex
	now    time.Duration
	sleeps []time.Duration
}

// Now implements mhu.Clock.
func (c *Clock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now += c.Step

	return c.now
}

// Sleep implements mhu.Clock.
func (c *Clock) Sleep(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now += d
	c.sleeps = append(c.sleeps, d)
}

// Elapsed returns the simulated time without advancing it.
func (c *Clock) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

// Sleeps returns the durations of all Sleep calls.
func (c *Clock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]time.Duration(nil), c.sleeps...)
}
