// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package secmon

import (
	"k8s.io/klog/v2"

	"github.com/usbarmory/GoTEE-meson/tz"
)

func inRange(off uint64, size uint64, limit uint64) bool {
	return size != 0 && off < limit && size <= limit-off
}

// efuseRead copies fuses to the output region, it returns the number of
// bytes read.
func (m *Monitor) efuseRead(off uint64, size uint64) uint64 {
	if !inRange(off, size, tz.EfuseBytes) {
		klog.Errorf("secmon: efuse read off:%#x size:%d out of range", off, size)
		return 0
	}

	if err := m.Memory.Write(m.Output, m.fuses[off:off+size]); err != nil {
		klog.Errorf("secmon: efuse read, %v", err)
		return 0
	}

	return size
}

// efuseWrite programs fuses from the input region, it returns the number of
// bytes written. Programming can only set bits.
func (m *Monitor) efuseWrite(off uint64, size uint64, limit uint64) uint64 {
	if limit > tz.EfuseBytes {
		limit = tz.EfuseBytes
	}

	if !inRange(off, size, limit) {
		klog.Errorf("secmon: efuse write off:%#x size:%d beyond limit %d", off, size, limit)
		return 0
	}

	buf := make([]byte, size)

	if err := m.Memory.Read(m.Input, buf); err != nil {
		klog.Errorf("secmon: efuse write, %v", err)
		return 0
	}

	for i, b := range buf {
		m.fuses[off+uint64(i)] |= b
	}

	return size
}

// Fuses returns a copy of the fuse map.
func (m *Monitor) Fuses() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]byte(nil), m.fuses[:]...)
}

// Program sets fuse bits at off, as done on the production line.
func (m *Monitor) Program(off int, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, b := range data {
		if off+i < len(m.fuses) {
			m.fuses[off+i] |= b
		}
	}
}
