// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build tamago && arm

package main

import (
	"encoding/binary"
	"log"

	"github.com/usbarmory/GoTEE-meson/internal/sim"
	"github.com/usbarmory/GoTEE-meson/mhu"
	"github.com/usbarmory/GoTEE-meson/scpi"
	"github.com/usbarmory/GoTEE-meson/soc"
)

// emulated chip information register (major:0x2b minor:0x0a pack:0x0c)
const chipInfo = 0x2b0c0a02

const aocpuVersion = "bl30 GoTEE-meson emulation"

var registers = sim.NewRegisters()

var (
	aocpuPrint  uint32
	aocpuReboot uint32 = 1
)

func emulatedRegisters(variant *soc.Variant) *sim.Registers {
	registers.Set(variant.ChipInfo, chipInfo)
	return registers
}

func aocpuHandler(cmd uint32, payload []byte) (res []byte) {
	switch cmd {
	case scpi.CmdVersion:
		res = make([]byte, scpi.VersionSize)
		copy(res, aocpuVersion)
	case scpi.CmdSetPrintEnable:
		if len(payload) >= 4 {
			aocpuPrint = binary.LittleEndian.Uint32(payload)
		}

		log.Printf("SM AOCPU console output:%v", aocpuPrint != 0)
	case scpi.CmdRebootFlag:
		res = make([]byte, 4)
		binary.LittleEndian.PutUint32(res, aocpuReboot)
	case scpi.CmdWakeDSP:
		if len(payload) >= 4 {
			log.Printf("SM AOCPU waking DSP %d", binary.LittleEndian.Uint32(payload))
		}
	default:
		log.Printf("SM AOCPU unsupported command %#x", cmd)
	}

	return
}

// emulatedAOCPU attaches an emulated always-on co-processor to the variant
// REE channel, it returns nil for variants without mailbox channels.
func emulatedAOCPU(variant *soc.Variant) *scpi.Client {
	ch, ok := variant.Channels[soc.ChannelAOCPUREE]

	if !ok {
		return nil
	}

	sim.NewAOCPU(emulatedRegisters(variant), ch, variant.AOCPUTick, aocpuHandler)
	transport := mhu.New(registers, mhu.SystemClock{}, variant.AOCPUTick)

	return scpi.New(transport, variant)
}
