// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package tz

import (
	"fmt"

	"k8s.io/klog/v2"
)

// ShmKind identifies a shared memory region.
type ShmKind int

// Shared memory regions
const (
	// ShmInput is written by the caller and read by the secure monitor
	ShmInput ShmKind = iota
	// ShmOutput is written by the secure monitor and read by the caller
	ShmOutput
)

func (k ShmKind) String() string {
	switch k {
	case ShmInput:
		return "input"
	case ShmOutput:
		return "output"
	default:
		return fmt.Sprintf("ShmKind(%d)", int(k))
	}
}

// SharedMemory returns the physical base address of a shared memory region.
//
// The address is queried from the secure monitor on first use and cached for
// the lifetime of the Context. A zero address leaves the region unresolved,
// in which case ErrUnavailable is returned and the next call queries again.
func (c *Context) SharedMemory(kind ShmKind) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.sharedMemory(kind)
}

func (c *Context) sharedMemory(kind ShmKind) (uint64, error) {
	var base *uint64
	var fid uint64

	switch kind {
	case ShmInput:
		base = &c.input
		fid = FuncShareMemInputBase
	case ShmOutput:
		base = &c.output
		fid = FuncShareMemOutputBase
	default:
		return 0, fmt.Errorf("invalid shared memory region %d", int(kind))
	}

	if *base == 0 {
		*base = c.call(fid).A0
		klog.V(1).Infof("tz: %s shared memory base:%#x", kind, *base)
	}

	if *base == 0 {
		return 0, fmt.Errorf("%s shared memory: %w", kind, ErrUnavailable)
	}

	return *base, nil
}
