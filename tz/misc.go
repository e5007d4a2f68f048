// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package tz

import (
	"fmt"

	"k8s.io/klog/v2"

	"github.com/usbarmory/GoTEE-meson/smc"
)

// RebootReason returns the last reboot reason recorded by the secure
// monitor.
func (c *Context) RebootReason() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return uint32(c.call(FuncGetRebootReason).A0 & 0xffffffff)
}

// Reboot requests a system reset (PSCI SYSTEM_RESET) recording the given
// reboot reason.
func (c *Context) Reboot(reason uint32) smc.Result {
	return c.AMLReboot(FuncSystemReset, uint64(reason), 0, 0)
}

// AMLReboot issues a reset request with arbitrary function identifier and
// arguments, the result is returned verbatim.
func (c *Context) AMLReboot(fid uint64, a0, a1, a2 uint64) smc.Result {
	c.mu.Lock()
	defer c.mu.Unlock()

	klog.V(1).Infof("tz: reboot fid:%#x args:%#x %#x %#x", fid, a0, a1, a2)

	return c.call(fid, a0, a1, a2)
}

// SetJTAGState enables or disables JTAG access for the given selection.
func (c *Context) SetJTAGState(on bool, sel uint32) uint64 {
	fid := FuncJTAGOff

	if on {
		fid = FuncJTAGOn
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.call(fid, uint64(sel)).A0
}

// WatchdogNotify forwards a watchdog event to the secure monitor.
func (c *Context) WatchdogNotify(arg uint64) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.call(FuncWatchdog, arg).A0
}

// OscRing reads the corner (oscillator ring) calibration information in buf,
// it returns the number of bytes read.
func (c *Context) OscRing(buf []byte) (n int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	out, err := c.sharedMemory(ShmOutput)

	if err != nil {
		return
	}

	res := c.call(FuncOscRing)

	if res.A0 != 0 {
		return 0, fmt.Errorf("oscillator ring status %#x: %w", res.A0, ErrSecureCallFailed)
	}

	if res.A1 > uint64(len(buf)) {
		klog.Errorf("tz: oscillator ring length %d exceeds buffer length %d", res.A1, len(buf))
		return 0, fmt.Errorf("oscillator ring: %w", ErrBoundary)
	}

	n = int(res.A1)

	if err = c.Memory.Read(out, buf[:n]); err != nil {
		return 0, err
	}

	return
}

// SetBootParams passes boot parameters to the secure monitor, the result is
// returned verbatim.
func (c *Context) SetBootParams(a0, a1, a2, a3 uint64) smc.Result {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.call(FuncSetBootParam, a0, a1, a2, a3)
}

// SecureBootCheck requests the secure monitor to process (e.g. authenticate
// or decrypt) size bytes at addr, the data cache covering the buffer is
// flushed once the call returns.
func (c *Context) SecureBootCheck(typ uint32, addr uint64, size uint64, option uint32) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	res := c.call(FuncDataProcess, uint64(typ), addr, size, uint64(option))

	if c.Cache != nil {
		c.Cache.FlushRange(addr, size)
	}

	return res.A0
}
