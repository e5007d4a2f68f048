// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package secmon emulates the Amlogic Meson secure monitor (BL31) SIP
// services, it can be exposed to a NonSecure World through a GoTEE monitor
// handler or used directly as smc.Caller.
package secmon

import (
	"encoding/binary"
	"sync"

	"github.com/usbarmory/tamago/bits"
	"k8s.io/klog/v2"

	"github.com/usbarmory/GoTEE-meson/mem"
	"github.com/usbarmory/GoTEE-meson/smc"
	"github.com/usbarmory/GoTEE-meson/tz"
)

// BootCheck represents a secure boot check request.
type BootCheck struct {
	Type   uint64
	Addr   uint64
	Size   uint64
	Option uint64
}

// Monitor represents an emulated secure monitor.
type Monitor struct {
	// Memory provides access to the shared memory regions
	Memory mem.Memory
	// Input is the input shared memory base
	Input uint64
	// Output is the output shared memory base
	Output uint64

	// UserMax is the size of the user writable fuse area
	UserMax uint32
	// ChipIDVersion is the chip identifier payload version
	ChipIDVersion uint32
	// ChipID is the 16 byte identifier returned by version 2 payloads,
	// legacy payloads carry its first 12 bytes as calibration segment
	ChipID []byte
	// OscRing is the oscillator ring calibration information
	OscRing []byte
	// Reset is invoked on system reset requests
	Reset func(reason uint32)

	mu         sync.Mutex
	fuses      [tz.EfuseBytes]byte
	reason     uint32
	jtag       uint32
	watchdog   []uint64
	bootParams [][4]uint64
	bootChecks []BootCheck
}

// New returns an emulated secure monitor using the given shared memory
// regions.
func New(memory mem.Memory, input uint64, output uint64) *Monitor {
	return &Monitor{
		Memory:        memory,
		Input:         input,
		Output:        output,
		UserMax:       tz.EfuseBytes,
		ChipIDVersion: tz.ChipIDVersion,
		ChipID:        make([]byte, tz.ChipIDSize),
	}
}

// Call implements smc.Caller.
func (m *Monitor) Call(fid uint64, args ...uint64) (res smc.Result) {
	a := smc.Args(args...)

	m.mu.Lock()
	defer m.mu.Unlock()

	switch fid {
	case tz.FuncShareMemInputBase:
		res.A0 = m.Input
	case tz.FuncShareMemOutputBase:
		res.A0 = m.Output
	case tz.FuncGetRebootReason:
		res.A0 = uint64(m.reason)
	case tz.FuncEfuseRead, tz.FuncEfuseReadCali:
		res.A0 = m.efuseRead(a[0], a[1])
	case tz.FuncEfuseWrite:
		res.A0 = m.efuseWrite(a[0], a[1], uint64(m.UserMax))
	case tz.FuncEfuseWritePattern:
		if a[1] == tz.EfuseBytes {
			res.A0 = m.efuseWrite(0, tz.EfuseBytes, tz.EfuseBytes)
		}
	case tz.FuncEfuseUserMax:
		res.A0 = uint64(m.UserMax)
	case tz.FuncDebugEfuseWritePattern:
		res.A0 = m.efuseWrite(0, tz.EfuseBytes, tz.EfuseBytes)
	case tz.FuncDebugEfuseReadPattern:
		res.A0 = m.efuseRead(0, tz.EfuseBytes)
	case tz.FuncJTAGOn:
		bits.Set(&m.jtag, int(a[0]&0x1f))
	case tz.FuncJTAGOff:
		bits.Clear(&m.jtag, int(a[0]&0x1f))
	case tz.FuncGetChipID:
		res = m.chipID()
	case tz.FuncOscRing:
		if err := m.Memory.Write(m.Output, m.OscRing); err != nil {
			klog.Errorf("secmon: oscillator ring, %v", err)
			res.A0 = tz.Unknown
			break
		}

		res.A1 = uint64(len(m.OscRing))
	case tz.FuncSetBootParam:
		m.bootParams = append(m.bootParams, [4]uint64{a[0], a[1], a[2], a[3]})
	case tz.FuncWatchdog:
		m.watchdog = append(m.watchdog, a[0])
	case tz.FuncDataProcess:
		m.bootChecks = append(m.bootChecks, BootCheck{
			Type:   a[0],
			Addr:   a[1],
			Size:   a[2],
			Option: a[3],
		})
	case tz.FuncSystemReset:
		m.reason = uint32(a[0])

		if m.Reset != nil {
			m.Reset(m.reason)
		}
	default:
		klog.Warningf("secmon: unsupported function %#x", fid)
		res.A0 = tz.Unknown
	}

	klog.V(1).Infof("secmon: fid:%#x args:%#x %s", fid, a, res)

	return
}

func (m *Monitor) chipID() (res smc.Result) {
	var payload []byte

	if m.ChipIDVersion == tz.ChipIDVersion {
		payload = make([]byte, 4+tz.ChipIDSize)
		copy(payload[4:], m.ChipID)
		res.A1 = tz.ChipIDSize
	} else {
		payload = make([]byte, 4+12)
		copy(payload[4:], m.ChipID)
		res.A1 = 12
	}

	binary.LittleEndian.PutUint32(payload, m.ChipIDVersion)

	if err := m.Memory.Write(m.Output, payload); err != nil {
		klog.Errorf("secmon: chip id, %v", err)
		return smc.Result{A0: tz.Unknown}
	}

	res.A0 = uint64(m.ChipIDVersion)

	return
}

// SetRebootReason sets the reboot reason reported to the NonSecure World.
func (m *Monitor) SetRebootReason(reason uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.reason = reason
}

// JTAG returns the JTAG enable state, bit n is set for enabled selection n.
func (m *Monitor) JTAG() uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.jtag
}

// Watchdog returns the recorded watchdog notifications.
func (m *Monitor) Watchdog() []uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]uint64(nil), m.watchdog...)
}

// BootParams returns the recorded boot parameters.
func (m *Monitor) BootParams() [][4]uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([][4]uint64(nil), m.bootParams...)
}

// BootChecks returns the recorded secure boot check requests.
func (m *Monitor) BootChecks() []BootCheck {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]BootCheck(nil), m.bootChecks...)
}
