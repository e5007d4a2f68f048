// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package tz_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/google/go-cmp/cmp"

	"github.com/usbarmory/GoTEE-meson/internal/sim"
	"github.com/usbarmory/GoTEE-meson/mem"
	"github.com/usbarmory/GoTEE-meson/smc"
	"github.com/usbarmory/GoTEE-meson/tz"
)

const (
	input    = mem.ShareMemInputStart
	output   = mem.ShareMemOutputStart
	chipInfo = 0xff800228
)

// strictMemory fails the test on any access.
type strictMemory struct {
	t *testing.T
}

func (m strictMemory) Read(addr uint64, _ []byte) error {
	m.t.Errorf("unexpected memory read at %#x", addr)
	return nil
}

func (m strictMemory) Write(addr uint64, _ []byte) error {
	m.t.Errorf("unexpected memory write at %#x", addr)
	return nil
}

func newMemory() *mem.Buffer {
	return mem.NewBuffer(mem.SharedStart, 2*mem.ShareMemBufferSize)
}

func newContext(t *testing.T, memory mem.Memory) (*tz.Context, *MockCaller, *sim.Registers) {
	ctrl := gomock.NewController(t)
	caller := NewMockCaller(ctrl)
	regs := sim.NewRegisters()

	return &tz.Context{
		Caller:    caller,
		Memory:    memory,
		Registers: regs,
		ChipInfo:  chipInfo,
	}, caller, regs
}

func TestSharedMemoryResolution(t *testing.T) {
	for _, test := range []struct {
		kind tz.ShmKind
		fid  uint64
		base uint64
	}{
		{kind: tz.ShmInput, fid: tz.FuncShareMemInputBase, base: input},
		{kind: tz.ShmOutput, fid: tz.FuncShareMemOutputBase, base: output},
	} {
		t.Run(test.kind.String(), func(t *testing.T) {
			ctx, caller, _ := newContext(t, newMemory())
			caller.EXPECT().Call(test.fid).Return(smc.Result{A0: test.base}).Times(1)

			for i := 0; i < 2; i++ {
				base, err := ctx.SharedMemory(test.kind)

				if err != nil {
					t.Fatal(err)
				}

				if base != test.base {
					t.Errorf("call %d: got base %#x, want %#x", i, base, test.base)
				}
			}
		})
	}
}

func TestSharedMemoryUnavailable(t *testing.T) {
	ctx, caller, _ := newContext(t, strictMemory{t})

	caller.EXPECT().Call(tz.FuncShareMemOutputBase).Return(smc.Result{}).Times(3)
	caller.EXPECT().Call(tz.FuncShareMemInputBase).Return(smc.Result{}).Times(1)

	if _, err := ctx.SharedMemory(tz.ShmOutput); !errors.Is(err, tz.ErrUnavailable) {
		t.Errorf("SharedMemory() = %v, want %v", err, tz.ErrUnavailable)
	}

	buf := make([]byte, 4)

	_, err := ctx.Efuse(&tz.EfuseRequest{Command: tz.EfuseRead, Size: 4, Buffer: buf})

	if !errors.Is(err, tz.ErrUnavailable) {
		t.Errorf("Efuse(read) = %v, want %v", err, tz.ErrUnavailable)
	}

	if err := ctx.ChipID(make([]byte, tz.ChipIDSize)); !errors.Is(err, tz.ErrUnavailable) {
		t.Errorf("ChipID() = %v, want %v", err, tz.ErrUnavailable)
	}

	_, err = ctx.Efuse(&tz.EfuseRequest{Command: tz.EfuseWrite, Size: 4, Buffer: buf})

	if !errors.Is(err, tz.ErrUnavailable) {
		t.Errorf("Efuse(write) = %v, want %v", err, tz.ErrUnavailable)
	}
}

func TestWritePatternLength(t *testing.T) {
	for _, size := range []int{0, 1, tz.EfuseBytes - 1, tz.EfuseBytes + 1} {
		ctx, _, _ := newContext(t, strictMemory{t})

		n, err := ctx.WritePattern(make([]byte, size))

		if n != 0 || err != nil {
			t.Errorf("WritePattern(%d bytes) = %d, %v, want 0, nil", size, n, err)
		}
	}

	memory := newMemory()
	ctx, caller, _ := newContext(t, memory)

	pattern := bytes.Repeat([]byte{0xa5}, tz.EfuseBytes)

	gomock.InOrder(
		caller.EXPECT().Call(tz.FuncShareMemInputBase).Return(smc.Result{A0: input}),
		caller.EXPECT().Call(tz.FuncEfuseWritePattern, uint64(0), uint64(tz.EfuseBytes)).Return(smc.Result{A0: tz.EfuseBytes}),
	)

	n, err := ctx.WritePattern(pattern)

	if n != tz.EfuseBytes || err != nil {
		t.Fatalf("WritePattern() = %d, %v", n, err)
	}

	got := make([]byte, tz.EfuseBytes)
	_ = memory.Read(input, got)

	if diff := cmp.Diff(pattern, got); diff != "" {
		t.Errorf("input region diff (-want +got):\n%s", diff)
	}
}

func TestEfuseRead(t *testing.T) {
	for _, test := range []struct {
		desc    string
		command tz.EfuseCommand
		fid     uint64
	}{
		{desc: "read", command: tz.EfuseRead, fid: tz.FuncEfuseRead},
		{desc: "calibration", command: tz.EfuseReadCalibration, fid: tz.FuncEfuseReadCali},
	} {
		t.Run(test.desc, func(t *testing.T) {
			memory := newMemory()
			_ = memory.Write(output, []byte{1, 2, 3, 4, 5, 6, 7, 8})

			ctx, caller, _ := newContext(t, memory)

			gomock.InOrder(
				caller.EXPECT().Call(tz.FuncShareMemOutputBase).Return(smc.Result{A0: output}),
				caller.EXPECT().Call(test.fid, uint64(0x10), uint64(8)).Return(smc.Result{A0: 6}),
			)

			var count uint32
			buf := bytes.Repeat([]byte{0xee}, 8)

			n, err := ctx.Efuse(&tz.EfuseRequest{
				Command: test.command,
				Offset:  0x10,
				Size:    8,
				Buffer:  buf,
				Count:   &count,
			})

			if n != 6 || count != 6 || err != nil {
				t.Fatalf("Efuse() = %d (count %d), %v", n, count, err)
			}

			if diff := cmp.Diff([]byte{1, 2, 3, 4, 5, 6, 0xee, 0xee}, buf); diff != "" {
				t.Errorf("buffer diff (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEfuseFailure(t *testing.T) {
	memory := newMemory()
	_ = memory.Write(output, []byte{1, 2, 3, 4})

	ctx, caller, _ := newContext(t, memory)

	caller.EXPECT().Call(tz.FuncShareMemOutputBase).Return(smc.Result{A0: output})
	caller.EXPECT().Call(tz.FuncEfuseRead, uint64(0), uint64(4)).Return(smc.Result{}).Times(2)

	count := uint32(0xffff)
	buf := []byte{0xee, 0xee, 0xee, 0xee}

	req := &tz.EfuseRequest{
		Command: tz.EfuseRead,
		Size:    4,
		Buffer:  buf,
		Count:   &count,
	}

	if _, err := ctx.Efuse(req); !errors.Is(err, tz.ErrSecureCallFailed) {
		t.Errorf("Efuse() = %v, want %v", err, tz.ErrSecureCallFailed)
	}

	if count != 0 {
		t.Errorf("got count %d, want 0", count)
	}

	if ret := ctx.TrustzoneEfuse(req); ret != -1 {
		t.Errorf("TrustzoneEfuse() = %d, want -1", ret)
	}

	if diff := cmp.Diff([]byte{0xee, 0xee, 0xee, 0xee}, buf); diff != "" {
		t.Errorf("buffer modified on failure (-want +got):\n%s", diff)
	}
}

func TestEfuseBoundary(t *testing.T) {
	ctx, caller, _ := newContext(t, newMemory())

	caller.EXPECT().Call(tz.FuncShareMemOutputBase).Return(smc.Result{A0: output})
	caller.EXPECT().Call(tz.FuncEfuseRead, uint64(0), uint64(4)).Return(smc.Result{A0: 5})

	_, err := ctx.Efuse(&tz.EfuseRequest{Command: tz.EfuseRead, Size: 4, Buffer: make([]byte, 4)})

	if !errors.Is(err, tz.ErrBoundary) {
		t.Errorf("Efuse() = %v, want %v", err, tz.ErrBoundary)
	}

	// write size larger than the source buffer is refused before any call
	_, err = ctx.Efuse(&tz.EfuseRequest{Command: tz.EfuseWrite, Size: 8, Buffer: make([]byte, 4)})

	if !errors.Is(err, tz.ErrBoundary) {
		t.Errorf("Efuse() = %v, want %v", err, tz.ErrBoundary)
	}
}

func TestEfuseWriteExceedsInput(t *testing.T) {
	ctx, _, _ := newContext(t, strictMemory{t})

	size := mem.ShareMemBufferSize + 1

	_, err := ctx.Efuse(&tz.EfuseRequest{
		Command: tz.EfuseWrite,
		Size:    uint32(size),
		Buffer:  make([]byte, size),
	})

	if !errors.Is(err, tz.ErrBoundary) {
		t.Errorf("Efuse() = %v, want %v", err, tz.ErrBoundary)
	}
}

func TestEfuseUnknownCommand(t *testing.T) {
	ctx, caller, _ := newContext(t, strictMemory{t})

	caller.EXPECT().Call(tz.FuncEfuseWritePattern, uint64(1), uint64(2)).Return(smc.Result{A0: 2})

	cmd := tz.EfuseCommand(42)

	if cmd.Known() {
		t.Errorf("command %s reported as known", cmd)
	}

	if ret := ctx.TrustzoneEfuse(&tz.EfuseRequest{Command: cmd, Offset: 1, Size: 2}); ret != 0 {
		t.Errorf("TrustzoneEfuse() = %d, want 0", ret)
	}
}

func TestEfuseGetMax(t *testing.T) {
	ctx, caller, _ := newContext(t, strictMemory{t})

	caller.EXPECT().Call(tz.FuncEfuseUserMax).Return(smc.Result{A0: 0x100})

	if got := ctx.TrustzoneEfuseGetMax(&tz.EfuseRequest{Command: tz.EfuseRead}); got != -1 {
		t.Errorf("TrustzoneEfuseGetMax(read) = %d, want -1", got)
	}

	if got := ctx.TrustzoneEfuseGetMax(&tz.EfuseRequest{Command: tz.EfuseQueryMax}); got != 0x100 {
		t.Errorf("TrustzoneEfuseGetMax(max) = %#x, want 0x100", got)
	}
}

func TestDebugPattern(t *testing.T) {
	memory := newMemory()
	ctx, caller, _ := newContext(t, memory)

	pattern := bytes.Repeat([]byte{0x5a}, tz.EfuseBytes)
	_ = memory.Write(output, pattern)

	caller.EXPECT().Call(tz.FuncShareMemOutputBase).Return(smc.Result{A0: output})
	caller.EXPECT().Call(tz.FuncShareMemInputBase).Return(smc.Result{A0: input})

	gomock.InOrder(
		caller.EXPECT().Call(tz.FuncDebugEfuseReadPattern).Return(smc.Result{}),
		caller.EXPECT().Call(tz.FuncDebugEfuseReadPattern).Return(smc.Result{A0: 1}),
	)

	caller.EXPECT().Call(tz.FuncDebugEfuseWritePattern).Return(smc.Result{A0: 1})

	buf := make([]byte, tz.EfuseBytes)

	if ret := ctx.DebugEfuseReadPattern(buf); ret != 0 {
		t.Errorf("DebugEfuseReadPattern() = %d, want 0", ret)
	}

	if !bytes.Equal(buf, make([]byte, tz.EfuseBytes)) {
		t.Error("buffer modified on failed pattern read")
	}

	if ret := ctx.DebugEfuseReadPattern(buf); ret != 1 {
		t.Errorf("DebugEfuseReadPattern() = %d, want 1", ret)
	}

	if diff := cmp.Diff(pattern, buf); diff != "" {
		t.Errorf("pattern diff (-want +got):\n%s", diff)
	}

	if ret := ctx.DebugEfuseReadPattern(make([]byte, 16)); ret != -1 {
		t.Errorf("DebugEfuseReadPattern(short) = %d, want -1", ret)
	}

	if ret := ctx.DebugEfuseWritePattern(bytes.Repeat([]byte{0x11}, tz.EfuseBytes)); ret != 1 {
		t.Errorf("DebugEfuseWritePattern() = %d, want 1", ret)
	}

	got := make([]byte, tz.EfuseBytes)
	_ = memory.Read(input, got)

	if !bytes.Equal(got, bytes.Repeat([]byte{0x11}, tz.EfuseBytes)) {
		t.Error("pattern not copied to input region")
	}
}

func TestChipID(t *testing.T) {
	segment := []byte{
		0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07,
		0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f,
	}

	for _, test := range []struct {
		desc    string
		version uint32
		want    []byte
	}{
		{
			desc:    "version 2",
			version: 2,
			want:    segment,
		},
		{
			desc:    "legacy",
			version: 1,
			want: []byte{
				0x2b, 0x0a, 0x0c, 0x00,
				0x0b, 0x0a, 0x09, 0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01, 0x00,
			},
		},
	} {
		t.Run(test.desc, func(t *testing.T) {
			memory := newMemory()
			_ = memory.Write(output, append([]byte{byte(test.version), 0, 0, 0}, segment...))

			ctx, caller, regs := newContext(t, memory)
			regs.Set(chipInfo, 0x2b0c0a02)

			gomock.InOrder(
				caller.EXPECT().Call(tz.FuncShareMemOutputBase).Return(smc.Result{A0: output}),
				caller.EXPECT().Call(tz.FuncGetChipID, uint64(tz.ChipIDVersion)).Return(smc.Result{A0: uint64(test.version), A1: 16}),
			)

			buf := make([]byte, tz.ChipIDSize)

			if err := ctx.ChipID(buf); err != nil {
				t.Fatal(err)
			}

			if diff := cmp.Diff(test.want, buf); diff != "" {
				t.Errorf("chip id diff (-want +got):\n%s", diff)
			}
		})
	}
}

func TestChipIDBoundary(t *testing.T) {
	ctx, caller, _ := newContext(t, newMemory())

	if err := ctx.ChipID(make([]byte, tz.ChipIDSize-1)); !errors.Is(err, tz.ErrBoundary) {
		t.Errorf("ChipID(short) = %v, want %v", err, tz.ErrBoundary)
	}

	caller.EXPECT().Call(tz.FuncShareMemOutputBase).Return(smc.Result{A0: output})
	caller.EXPECT().Call(tz.FuncGetChipID, uint64(tz.ChipIDVersion)).Return(smc.Result{A0: 2, A1: 17})

	if err := ctx.ChipID(make([]byte, tz.ChipIDSize)); !errors.Is(err, tz.ErrBoundary) {
		t.Errorf("ChipID() = %v, want %v", err, tz.ErrBoundary)
	}
}

func TestChipIDFailure(t *testing.T) {
	ctx, caller, regs := newContext(t, strictMemory{t})

	regs.OnRead(chipInfo, func(val uint32) uint32 {
		t.Error("chip information register read on failure")
		return val
	})

	caller.EXPECT().Call(tz.FuncShareMemOutputBase).Return(smc.Result{A0: output})
	caller.EXPECT().Call(tz.FuncGetChipID, uint64(tz.ChipIDVersion)).Return(smc.Result{})

	buf := make([]byte, tz.ChipIDSize)

	if err := ctx.ChipID(buf); !errors.Is(err, tz.ErrSecureCallFailed) {
		t.Errorf("ChipID() = %v, want %v", err, tz.ErrSecureCallFailed)
	}

	if !bytes.Equal(buf, make([]byte, tz.ChipIDSize)) {
		t.Errorf("buffer modified on failure: %x", buf)
	}
}

func TestRepackChipInfo(t *testing.T) {
	for _, test := range []struct {
		info uint32
		want uint32
	}{
		{info: 0x2b0c0a02, want: 0x2b0a0c00},
		{info: 0xffffffff, want: 0xffffff00},
		{info: 0x00000000, want: 0x00000000},
		{info: 0x00ff0000, want: 0x0000ff00},
	} {
		if got := tz.RepackChipInfo(test.info); got != test.want {
			t.Errorf("RepackChipInfo(%#.8x) = %#.8x, want %#.8x", test.info, got, test.want)
		}
	}
}

func TestRebootReason(t *testing.T) {
	ctx, caller, _ := newContext(t, strictMemory{t})

	caller.EXPECT().Call(tz.FuncGetRebootReason).Return(smc.Result{A0: 0x1_0000_000c})

	if got := ctx.RebootReason(); got != 0xc {
		t.Errorf("RebootReason() = %#x, want 0xc", got)
	}
}
