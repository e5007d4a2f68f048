// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package mhu implements the Message Handling Unit (MHU) mailbox transport
// between the application processor and the always-on co-processor (AOCPU).
//
// A transaction on a channel runs through Start, Send, Wait, Receive and End,
// only one transaction can be outstanding on a channel at any given time.
package mhu

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/usbarmory/tamago/bits"
	"k8s.io/klog/v2"

	"github.com/usbarmory/GoTEE-meson/reg"
	"github.com/usbarmory/GoTEE-meson/soc"
)

const (
	// MHUPayloadSize is the size of a channel buffer window
	MHUPayloadSize = 0x80
	// MHUDataOffset is the payload offset within a channel buffer window
	MHUDataOffset = 0x1c
	// Capacity is the maximum payload size
	Capacity = MHUPayloadSize - MHUDataOffset
)

// command word fields
const (
	CMD_POS   = 0
	CMD_MASK  = 0xffff
	SIZE_POS  = 16
	SIZE_MASK = 0x1ff
	SYNC      = 26
)

// ErrCapacity is returned for payloads exceeding Capacity.
var ErrCapacity = errors.New("payload exceeds mailbox capacity")

// TimeoutError is returned when the remote processor does not complete a
// command within the allotted time and retries.
type TimeoutError struct {
	// Channel is the channel index
	Channel uint32
	// Status is the last observed status register value
	Status uint32
	// Attempts is the number of command issuances
	Attempts int
	// Alive reports the outcome of the last liveness probe
	Alive bool
}

func (e *TimeoutError) Error() string {
	state := "dead"

	if e.Alive {
		state = "alive"
	}

	return fmt.Sprintf("mailbox channel %d timeout after %d attempts, status:%#x remote:%s", e.Channel, e.Attempts, e.Status, state)
}

// Options represents the transport timing and retry policy.
type Options struct {
	// Timeout is the maximum wait for each command issuance
	Timeout time.Duration
	// Retries is the number of command re-issuances after a timeout
	Retries int
	// PollInterval is the pause between status register polls, zero spins
	PollInterval time.Duration
	// ProbeDelay is the interval between liveness probe samples
	ProbeDelay time.Duration
}

// DefaultOptions is the transport policy used by New.
var DefaultOptions = Options{
	Timeout:    1 * time.Second,
	Retries:    2,
	ProbeDelay: 50 * time.Millisecond,
}

// Command returns the command word for a command and its payload size.
func Command(cmd uint32, size int) (word uint32) {
	bits.SetN(&word, CMD_POS, CMD_MASK, cmd)
	bits.SetN(&word, SIZE_POS, SIZE_MASK, uint32(size+MHUDataOffset))
	bits.Set(&word, SYNC)

	return
}

// ParseCommand returns the command and payload size encoded in a command
// word.
func ParseCommand(word uint32) (cmd uint32, size int) {
	cmd = (word >> CMD_POS) & CMD_MASK
	size = int((word>>SIZE_POS)&SIZE_MASK) - MHUDataOffset

	return
}

// AckMask returns the interrupt clear mask of a channel.
func AckMask(id uint32) uint32 {
	return 1 << id
}

// Transport represents the mailbox of a SoC.
type Transport struct {
	// Regs provides access to the mailbox registers
	Regs reg.Map
	// Clock measures timeouts and probe intervals
	Clock Clock
	// Tick is the remote processor tick counter register
	Tick uint32
	// Options is the timing and retry policy
	Options Options

	mu    sync.Mutex
	locks map[uint32]*sync.Mutex
}

// New returns a mailbox transport with default options.
func New(regs reg.Map, clock Clock, tick uint32) *Transport {
	return &Transport{
		Regs:    regs,
		Clock:   clock,
		Tick:    tick,
		Options: DefaultOptions,
	}
}

func (t *Transport) lock(id uint32) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.locks == nil {
		t.locks = make(map[uint32]*sync.Mutex)
	}

	l, ok := t.locks[id]

	if !ok {
		l = &sync.Mutex{}
		t.locks[id] = l
	}

	return l
}

// Begin acquires a channel for a transaction, it blocks until any previous
// transaction on the channel is ended.
func (t *Transport) Begin(ch soc.Channel) *Transaction {
	l := t.lock(ch.ID)
	l.Lock()

	return &Transaction{
		t:    t,
		ch:   ch,
		lock: l,
	}
}

// Transaction represents a mailbox channel transaction.
type Transaction struct {
	t    *Transport
	ch   soc.Channel
	lock *sync.Mutex

	word  uint32
	ended bool
}

// Start waits for the channel status to clear, indicating that the previous
// transaction has been fully drained, this wait is unbounded.
func (tx *Transaction) Start() {
	for tx.t.Regs.Read32(tx.ch.Status) != 0 {
		if d := tx.t.Options.PollInterval; d > 0 {
			tx.t.Clock.Sleep(d)
		}
	}
}

func (tx *Transaction) write(addr uint32, payload []byte) {
	var word [4]byte

	for i := 0; i < len(payload); i += 4 {
		word = [4]byte{}
		copy(word[:], payload[i:])

		tx.t.Regs.Write32(addr+uint32(i), binary.LittleEndian.Uint32(word[:]))
	}
}

func (tx *Transaction) read(addr uint32, buf []byte) {
	var word [4]byte

	for i := 0; i < len(buf); i += 4 {
		binary.LittleEndian.PutUint32(word[:], tx.t.Regs.Read32(addr+uint32(i)))
		copy(buf[i:], word[:])
	}
}

// Send writes the payload, zero padded to a word boundary, to the channel
// write window and signals the remote processor with the command word.
func (tx *Transaction) Send(cmd uint32, payload []byte) error {
	if len(payload) > Capacity {
		klog.Errorf("mhu: channel %d send size %d exceeds capacity %d", tx.ch.ID, len(payload), Capacity)
		return fmt.Errorf("send %d bytes: %w", len(payload), ErrCapacity)
	}

	tx.write(tx.ch.Write+MHUDataOffset, payload)
	tx.word = Command(cmd, len(payload))

	klog.V(1).Infof("mhu: channel %d set:%#.8x", tx.ch.ID, tx.word)
	klog.V(2).Infof("mhu: channel %d send:%x", tx.ch.ID, payload)

	tx.t.Regs.Write32(tx.ch.Set, tx.word)

	return nil
}

func (tx *Transaction) poll() (status uint32) {
	clock := tx.t.Clock
	start := clock.Now()

	for {
		if status = tx.t.Regs.Read32(tx.ch.Status); status == 0 {
			return
		}

		if clock.Now()-start >= tx.t.Options.Timeout {
			return
		}

		if d := tx.t.Options.PollInterval; d > 0 {
			clock.Sleep(d)
		}
	}
}

// probe samples the remote processor tick counter twice to detect whether
// it is still running.
func (tx *Transaction) probe() (alive bool) {
	t0 := tx.t.Regs.Read32(tx.t.Tick)
	tx.t.Clock.Sleep(tx.t.Options.ProbeDelay)
	t1 := tx.t.Regs.Read32(tx.t.Tick)

	if alive = t0 != t1; alive {
		klog.Warningf("mhu: channel %d timeout, remote alive (tick %d -> %d)", tx.ch.ID, t0, t1)
	} else {
		klog.Warningf("mhu: channel %d timeout, remote dead (tick %d)", tx.ch.ID, t0)
	}

	return
}

// Wait polls the channel status until the remote processor completes the
// command. On timeout the command is re-issued up to Options.Retries times,
// once all attempts are exhausted the last observed status is returned with
// a *TimeoutError.
func (tx *Transaction) Wait() (status uint32, err error) {
	attempts := 0
	alive := false

	op := func() error {
		if attempts > 0 {
			klog.Warningf("mhu: channel %d retry %d/%d", tx.ch.ID, attempts, tx.t.Options.Retries)

			tx.t.Regs.Write32(tx.ch.Set, 0)
			tx.t.Regs.Write32(tx.ch.Set, tx.word)
		}

		attempts++

		if status = tx.poll(); status == 0 {
			return nil
		}

		alive = tx.probe()

		return &TimeoutError{
			Channel:  tx.ch.ID,
			Status:   status,
			Attempts: attempts,
			Alive:    alive,
		}
	}

	policy := backoff.WithMaxRetries(&backoff.ZeroBackOff{}, uint64(tx.t.Options.Retries))

	if err = backoff.Retry(op, policy); err != nil {
		klog.Errorf("mhu: %v", err)
	}

	return
}

// Receive reads the response payload from the channel read window.
func (tx *Transaction) Receive(buf []byte) error {
	if len(buf) > Capacity {
		klog.Errorf("mhu: channel %d receive size %d exceeds capacity %d", tx.ch.ID, len(buf), Capacity)
		return fmt.Errorf("receive %d bytes: %w", len(buf), ErrCapacity)
	}

	tx.read(tx.ch.Read+MHUDataOffset, buf)

	klog.V(2).Infof("mhu: channel %d recv:%x", tx.ch.ID, buf)

	return nil
}

// End clears the channel write window, acknowledges the channel interrupt
// and releases the channel. It must be called once for every Begin.
func (tx *Transaction) End() {
	if tx.ended {
		return
	}

	for i := uint32(0); i < MHUPayloadSize; i += 4 {
		tx.t.Regs.Write32(tx.ch.Write+i, 0)
	}

	tx.t.Regs.Write32(tx.ch.IRQClear, AckMask(tx.ch.ID))

	tx.ended = true
	tx.lock.Unlock()
}
