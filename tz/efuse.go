// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package tz

import (
	"fmt"

	"k8s.io/klog/v2"

	"github.com/usbarmory/GoTEE-meson/mem"
)

// EfuseBytes is the size of the debug and provisioning fuse pattern.
const EfuseBytes = 512

// EfuseCommand represents an eFuse service request type.
type EfuseCommand int

// eFuse service requests
const (
	EfuseRead EfuseCommand = iota
	EfuseReadCalibration
	EfuseWrite
	EfuseWritePattern
	EfuseQueryMax
	// EfuseUnknown marks commands without a dedicated function identifier.
	EfuseUnknown
)

func (cmd EfuseCommand) String() string {
	switch cmd {
	case EfuseRead:
		return "read"
	case EfuseReadCalibration:
		return "read-cali"
	case EfuseWrite:
		return "write"
	case EfuseWritePattern:
		return "write-pattern"
	case EfuseQueryMax:
		return "query-max"
	default:
		return fmt.Sprintf("unknown(%d)", int(cmd))
	}
}

// Known returns whether the command maps to a dedicated function identifier.
func (cmd EfuseCommand) Known() bool {
	return cmd >= EfuseRead && cmd < EfuseUnknown
}

// FunctionID returns the secure monitor function identifier of the command,
// unknown commands resolve to the write pattern function.
func (cmd EfuseCommand) FunctionID() uint64 {
	switch cmd {
	case EfuseRead:
		return FuncEfuseRead
	case EfuseReadCalibration:
		return FuncEfuseReadCali
	case EfuseWrite:
		return FuncEfuseWrite
	case EfuseQueryMax:
		return FuncEfuseUserMax
	default:
		return FuncEfuseWritePattern
	}
}

func (cmd EfuseCommand) writes() bool {
	return cmd == EfuseWrite || cmd == EfuseWritePattern
}

func (cmd EfuseCommand) reads() bool {
	return cmd == EfuseRead || cmd == EfuseReadCalibration
}

// EfuseRequest represents an eFuse service request.
type EfuseRequest struct {
	Command EfuseCommand
	// Offset is the fuse offset
	Offset uint32
	// Size is the number of bytes to process
	Size uint32
	// Buffer is the source (write) or destination (read) of fuse data
	Buffer []byte
	// Count, when set, receives the number of processed bytes
	Count *uint32
}

// Efuse performs an eFuse service request, it returns the number of bytes
// processed by the secure monitor.
//
// Write requests copy Size bytes of Buffer to the input shared memory region
// before the call, read requests copy the processed bytes from the output
// shared memory region to Buffer. ErrSecureCallFailed is returned, and Buffer
// left untouched, when no bytes are processed.
func (c *Context) Efuse(req *EfuseRequest) (n uint32, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.efuse(req)
}

func (c *Context) efuse(req *EfuseRequest) (n uint32, err error) {
	var in, out uint64

	fid := req.Command.FunctionID()

	if !req.Command.Known() {
		klog.Warningf("tz: efuse command %s mapped to write pattern function %#x", req.Command, fid)
	}

	switch {
	case req.Command.writes():
		if int(req.Size) > len(req.Buffer) {
			klog.Errorf("tz: efuse %s size %d exceeds buffer length %d", req.Command, req.Size, len(req.Buffer))
			return 0, fmt.Errorf("efuse %s: %w", req.Command, ErrBoundary)
		}

		if req.Size > mem.ShareMemBufferSize {
			klog.Errorf("tz: efuse %s size %d exceeds shared memory size %d", req.Command, req.Size, mem.ShareMemBufferSize)
			return 0, fmt.Errorf("efuse %s: %w", req.Command, ErrBoundary)
		}

		if in, err = c.sharedMemory(ShmInput); err != nil {
			return
		}

		if err = c.Memory.Write(in, req.Buffer[:req.Size]); err != nil {
			return
		}
	case req.Command.reads():
		if out, err = c.sharedMemory(ShmOutput); err != nil {
			return
		}
	}

	res := c.call(fid, uint64(req.Offset), uint64(req.Size))
	n = uint32(res.A0)

	klog.V(1).Infof("tz: efuse %s off:%#x size:%d processed:%d", req.Command, req.Offset, req.Size, n)

	if req.Count != nil {
		*req.Count = n
	}

	if n == 0 {
		return 0, fmt.Errorf("efuse %s off:%#x size:%d: %w", req.Command, req.Offset, req.Size, ErrSecureCallFailed)
	}

	if !req.Command.reads() {
		return
	}

	if int(n) > len(req.Buffer) || n > mem.ShareMemBufferSize {
		klog.Errorf("tz: efuse %s returned %d bytes, buffer length %d", req.Command, n, len(req.Buffer))
		return n, fmt.Errorf("efuse %s: %w", req.Command, ErrBoundary)
	}

	if err = c.Memory.Read(out, req.Buffer[:n]); err != nil {
		return
	}

	klog.V(2).Infof("tz: efuse %s data:%x", req.Command, req.Buffer[:n])

	return
}

// EfuseMax returns the size of the user accessible fuse area.
func (c *Context) EfuseMax() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.call(FuncEfuseUserMax).A0
}

// WritePattern provisions a full fuse pattern, buffers not exactly
// EfuseBytes long are ignored and 0 is returned.
func (c *Context) WritePattern(buf []byte) (int, error) {
	if len(buf) != EfuseBytes {
		return 0, nil
	}

	n, err := c.Efuse(&EfuseRequest{
		Command: EfuseWritePattern,
		Size:    EfuseBytes,
		Buffer:  buf,
	})

	return int(n), err
}

// DebugReadPattern reads the full fuse pattern through the secure monitor
// debug interface.
func (c *Context) DebugReadPattern(buf []byte) (n uint64, err error) {
	if len(buf) < EfuseBytes {
		return 0, fmt.Errorf("debug pattern read: %w", ErrBoundary)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	out, err := c.sharedMemory(ShmOutput)

	if err != nil {
		return
	}

	if n = c.call(FuncDebugEfuseReadPattern).A0; n == 0 {
		return
	}

	err = c.Memory.Read(out, buf[:EfuseBytes])

	return
}

// DebugWritePattern writes the full fuse pattern through the secure monitor
// debug interface.
func (c *Context) DebugWritePattern(buf []byte) (n uint64, err error) {
	if len(buf) < EfuseBytes {
		return 0, fmt.Errorf("debug pattern write: %w", ErrBoundary)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	in, err := c.sharedMemory(ShmInput)

	if err != nil {
		return
	}

	if err = c.Memory.Write(in, buf[:EfuseBytes]); err != nil {
		return
	}

	return c.call(FuncDebugEfuseWritePattern).A0, nil
}
