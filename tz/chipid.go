// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package tz

import (
	"encoding/binary"
	"fmt"

	"k8s.io/klog/v2"
)

const (
	// ChipIDSize is the size of the chip identifier.
	ChipIDSize = 16

	// ChipIDVersion is the chip identifier payload version requested from,
	// and natively returned by, the secure monitor.
	ChipIDVersion = 2

	// legacy payload calibration segment length
	chipIDSegment = 12
	// payload version header length
	headerSize = 4
)

// RepackChipInfo converts the chip information register value (family,
// revision, package) to its legacy chip identifier representation.
func RepackChipInfo(info uint32) uint32 {
	return (info & 0xff000000) | ((info << 8) & 0xff0000) | ((info >> 8) & 0xff00)
}

// ChipID reads the 16 byte chip identifier in buf.
//
// A zero status from the secure monitor returns ErrSecureCallFailed, with buf
// left untouched. Version 2 payloads are copied verbatim, otherwise the
// identifier is built from the chip information register followed by the
// reversed calibration segment.
func (c *Context) ChipID(buf []byte) (err error) {
	if len(buf) < ChipIDSize {
		return fmt.Errorf("chip id: %w", ErrBoundary)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	out, err := c.sharedMemory(ShmOutput)

	if err != nil {
		return
	}

	res := c.call(FuncGetChipID, ChipIDVersion)

	if res.A0 == 0 {
		return fmt.Errorf("chip id: %w", ErrSecureCallFailed)
	}

	if res.A1 > uint64(len(buf)) {
		klog.Errorf("tz: chip id length %d exceeds buffer length %d", res.A1, len(buf))
		return fmt.Errorf("chip id: %w", ErrBoundary)
	}

	payload := make([]byte, headerSize+ChipIDSize)

	if err = c.Memory.Read(out, payload); err != nil {
		return
	}

	version := binary.LittleEndian.Uint32(payload[0:headerSize])
	segment := payload[headerSize:]

	klog.V(1).Infof("tz: chip id version:%d", version)

	if version == ChipIDVersion {
		copy(buf, segment[:ChipIDSize])
		return
	}

	info := RepackChipInfo(c.Registers.Read32(c.ChipInfo))
	binary.BigEndian.PutUint32(buf[0:4], info)

	for i := 0; i < chipIDSegment; i++ {
		buf[4+i] = segment[chipIDSegment-1-i]
	}

	return
}
