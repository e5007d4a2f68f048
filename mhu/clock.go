// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package mhu

import (
	"sync"
	"time"

	"github.com/usbarmory/GoTEE-meson/reg"
)

// Clock represents a monotonic time source.
type Clock interface {
	// Now returns the time elapsed since an arbitrary origin.
	Now() time.Duration
	// Sleep pauses for at least d.
	Sleep(d time.Duration)
}

// TimerClock is a Clock backed by a free running 32-bit 1 MHz timer
// register, counter wraps are accounted as long as Now is invoked at least
// once per wrap period (~71 minutes).
type TimerClock struct {
	// Regs provides access to the timer register
	Regs reg.Map
	// Timer is the timer register address
	Timer uint32

	mu      sync.Mutex
	started bool
	last    uint32
	elapsed uint64
}

// Now implements Clock.
func (c *TimerClock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	val := c.Regs.Read32(c.Timer)

	if c.started {
		c.elapsed += uint64(val - c.last)
	}

	c.started = true
	c.last = val

	return time.Duration(c.elapsed) * time.Microsecond
}

// Sleep implements Clock by busy waiting on the timer.
func (c *TimerClock) Sleep(d time.Duration) {
	start := c.Now()

	for c.Now()-start < d {
	}
}

var origin = time.Now()

// SystemClock is a Clock backed by the Go runtime monotonic time.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Duration {
	return time.Since(origin)
}

// Sleep implements Clock.
func (SystemClock) Sleep(d time.Duration) {
	time.Sleep(d)
}
