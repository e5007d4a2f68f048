// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package mhu_test

import (
	"testing"
	"time"

	"github.com/usbarmory/GoTEE-meson/internal/sim"
	"github.com/usbarmory/GoTEE-meson/mhu"
)

func TestTimerClock(t *testing.T) {
	const timer = 0x4000

	regs := sim.NewRegisters()
	clock := &mhu.TimerClock{Regs: regs, Timer: timer}

	for _, test := range []struct {
		desc  string
		timer uint32
		want  time.Duration
	}{
		{desc: "origin", timer: 0xfffffff0, want: 0},
		{desc: "before wrap", timer: 0xfffffffa, want: 10 * time.Microsecond},
		{desc: "after wrap", timer: 0x00000010, want: 32 * time.Microsecond},
		{desc: "later", timer: 0x00000400, want: 1040 * time.Microsecond},
	} {
		regs.Set(timer, test.timer)

		if got := clock.Now(); got != test.want {
			t.Errorf("%s: Now() = %v, want %v", test.desc, got, test.want)
		}
	}
}

func TestTimerClockSleep(t *testing.T) {
	const timer = 0x4000

	regs := sim.NewRegisters()
	clock := &mhu.TimerClock{Regs: regs, Timer: timer}

	var cur uint32

	regs.OnRead(timer, func(uint32) uint32 {
		cur += 100
		return cur
	})

	clock.Sleep(time.Millisecond)

	if cur < 1000 {
		t.Errorf("Sleep returned after %dµs", cur)
	}
}

func TestSystemClock(t *testing.T) {
	var clock mhu.Clock = mhu.SystemClock{}

	start := clock.Now()
	clock.Sleep(5 * time.Millisecond)

	if d := clock.Now() - start; d < 5*time.Millisecond {
		t.Errorf("slept %v", d)
	}
}
