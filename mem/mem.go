// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package mem describes the memory layout and provides access to the memory
// shared between the Secure and NonSecure Worlds.
package mem

import (
	"errors"
	"fmt"
)

// ErrFault is returned on accesses outside of a memory range.
var ErrFault = errors.New("memory access fault")

// Memory represents a physical address space.
type Memory interface {
	// Read copies len(buf) bytes at addr into buf.
	Read(addr uint64, buf []byte) error
	// Write copies buf at addr.
	Write(addr uint64, buf []byte) error
}

// Buffer represents a memory range backed by a Go byte slice.
type Buffer struct {
	// Start is the physical address of the first byte of Data
	Start uint64
	// Data is the memory content
	Data []byte
}

// NewBuffer allocates a zero filled memory range of size bytes at start.
func NewBuffer(start uint64, size int) *Buffer {
	return &Buffer{
		Start: start,
		Data:  make([]byte, size),
	}
}

func (b *Buffer) slice(addr uint64, size int) ([]byte, error) {
	if addr < b.Start || addr+uint64(size) > b.Start+uint64(len(b.Data)) || addr+uint64(size) < addr {
		return nil, fmt.Errorf("%w, addr:%#x size:%d", ErrFault, addr, size)
	}

	off := addr - b.Start

	return b.Data[off : off+uint64(size)], nil
}

// Read implements Memory.
func (b *Buffer) Read(addr uint64, buf []byte) (err error) {
	m, err := b.slice(addr, len(buf))

	if err != nil {
		return
	}

	copy(buf, m)

	return
}

// Write implements Memory.
func (b *Buffer) Write(addr uint64, buf []byte) (err error) {
	m, err := b.slice(addr, len(buf))

	if err != nil {
		return
	}

	copy(m, buf)

	return
}
