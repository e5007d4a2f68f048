// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package mem

import (
	"github.com/usbarmory/tamago/dma"
)

// Physical accesses memory through temporary DMA regions, it must only be
// used on addresses outside of the Go runtime memory (e.g. SharedRegion).
type Physical struct{}

func memCopy(start uint64, size int, w []byte, r []byte) (err error) {
	if size == 0 {
		return
	}

	mem, err := dma.NewRegion(uint(start), size, true)

	if err != nil {
		return
	}

	addr, buf := mem.Reserve(size, 0)
	defer mem.Release(addr)

	if w != nil {
		copy(buf, w)
	} else {
		copy(r, buf)
	}

	return
}

// Read implements Memory.
func (Physical) Read(addr uint64, buf []byte) error {
	return memCopy(addr, len(buf), nil, buf)
}

// Write implements Memory.
func (Physical) Write(addr uint64, buf []byte) error {
	return memCopy(addr, len(buf), buf, nil)
}
