// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package sim

import (
	"encoding/binary"
	"sync"

	"github.com/usbarmory/GoTEE-meson/mhu"
	"github.com/usbarmory/GoTEE-meson/soc"
)

// Handler answers an AOCPU command, the returned bytes are posted in the
// channel read window.
type Handler func(cmd uint32, payload []byte) []byte

// AOCPU simulates the always-on co-processor end of a mailbox channel.
type AOCPU struct {
	// Handler answers commands
	Handler Handler
	// Latency is the number of status reads before a response is posted
	Latency int

	regs    *Registers
	ch      soc.Channel
	mu      sync.Mutex
	dead    bool
	tick    uint32
	pending int
	cmds    []uint32
	words   []uint32
}

// NewAOCPU attaches a simulated co-processor to a channel of a register
// file, tick is the co-processor tick counter register.
func NewAOCPU(regs *Registers, ch soc.Channel, tick uint32, handler Handler) *AOCPU {
	a := &AOCPU{
		Handler: handler,
		regs:    regs,
		ch:      ch,
	}

	regs.OnWrite(ch.Set, a.doorbell)
	regs.OnRead(ch.Status, a.status)
	regs.OnRead(tick, a.ticks)

	return a
}

// SetDead stops (or resumes) processing, a dead co-processor never clears
// the channel status and its tick counter is frozen.
func (a *AOCPU) SetDead(dead bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.dead = dead
}

// Commands returns the received commands.
func (a *AOCPU) Commands() []uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()

	return append([]uint32(nil), a.cmds...)
}

// Words returns the received command words, including re-issued ones.
func (a *AOCPU) Words() []uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()

	return append([]uint32(nil), a.words...)
}

func (a *AOCPU) ticks(uint32) uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.dead {
		a.tick++
	}

	return a.tick
}

func (a *AOCPU) doorbell(word uint32) {
	if word == 0 {
		return
	}

	a.regs.Set(a.ch.Status, word)

	a.mu.Lock()
	a.words = append(a.words, word)
	dead := a.dead
	a.pending = a.Latency
	respond := !dead && a.Latency == 0
	a.mu.Unlock()

	if respond {
		a.respond(word)
	}
}

func (a *AOCPU) status(val uint32) uint32 {
	if val == 0 {
		return 0
	}

	a.mu.Lock()

	if a.dead || a.pending == 0 {
		a.mu.Unlock()
		return val
	}

	a.pending--
	respond := a.pending == 0
	a.mu.Unlock()

	if !respond {
		return val
	}

	a.respond(val)

	return 0
}

func (a *AOCPU) respond(word uint32) {
	cmd, size := mhu.ParseCommand(word)

	if size < 0 || size > mhu.Capacity {
		size = 0
	}

	payload := make([]byte, (size+3)&^3)

	for i := 0; i < len(payload); i += 4 {
		binary.LittleEndian.PutUint32(payload[i:], a.regs.Get(a.ch.Write+mhu.MHUDataOffset+uint32(i)))
	}

	payload = payload[:size]

	a.mu.Lock()
	a.cmds = append(a.cmds, cmd)
	a.mu.Unlock()

	var res []byte

	if a.Handler != nil {
		res = a.Handler(cmd, payload)
	}

	for i := 0; i < len(res); i += 4 {
		var w [4]byte
		copy(w[:], res[i:])
		a.regs.Set(a.ch.Read+mhu.MHUDataOffset+uint32(i), binary.LittleEndian.Uint32(w[:]))
	}

	a.regs.Set(a.ch.Status, 0)
}
