// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build tamago && arm

package main

import (
	"fmt"
	"log"
	"os"
	"runtime"
	"time"
	_ "unsafe"

	usbarmory "github.com/usbarmory/tamago/board/usbarmory/mk2"
	"github.com/usbarmory/tamago/dma"
	"github.com/usbarmory/tamago/soc/nxp/imx6ul"

	"github.com/usbarmory/imx-usbnet"

	"github.com/usbarmory/GoTEE-meson/cmd"
	"github.com/usbarmory/GoTEE-meson/mem"
	"github.com/usbarmory/GoTEE-meson/secmon"
	"github.com/usbarmory/GoTEE-meson/soc"
	"github.com/usbarmory/GoTEE-meson/tz"
	"github.com/usbarmory/GoTEE-meson/util"
)

const (
	sshPort = 22
	IP      = "10.0.0.1"
	MAC     = "1a:55:89:a2:69:41"
	hostMAC = "1a:55:89:a2:69:42"
)

// Variant selects the emulated Meson SoC family (see soc.Names), it can be
// overridden at link time with -X main.Variant=<name>.
var Variant = "sc2"

//go:linkname ramStart runtime.ramStart
var ramStart uint32 = mem.SecureStart

//go:linkname ramSize runtime.ramSize
var ramSize uint32 = mem.SecureSize

var (
	// emulated BL31 secure monitor, serving NonSecure World SMCs
	sip *secmon.Monitor

	ssh *util.Console
)

func init() {
	log.SetFlags(log.Ltime)
	log.SetOutput(os.Stdout)

	// Move DMA region to prevent NonSecure access.
	dma.Init(mem.SecureDMAStart, mem.SecureDMASize)
	mem.Init()

	if imx6ul.Native {
		imx6ul.SetARMFreq(900)

		debugConsole, _ := usbarmory.DetectDebugAccessory(250 * time.Millisecond)
		<-debugConsole
	}

	log.Printf("%s/%s (%s) • Meson secure monitor emulation (Secure World system/monitor)", runtime.GOOS, runtime.GOARCH, runtime.Version())
}

func configure(variant *soc.Variant) {
	sip = secmon.New(mem.Physical{}, mem.ShareMemInputStart, mem.ShareMemOutputStart)
	sip.UserMax = 0x100
	sip.OscRing = []byte{0x5a, 0x01, 0x5b, 0x01, 0x59, 0x01, 0x5c, 0x01}
	copy(sip.ChipID, "GoTEE-meson-emu!")

	sip.Reset = func(reason uint32) {
		log.Printf("SM system reset requested, reason:%#x", reason)

		if imx6ul.Native {
			usbarmory.Reset()
		}
	}

	// the Secure World console exercises the same services through the
	// client interface
	cmd.Secure = tz.New(sip, mem.Physical{}, emulatedRegisters(variant), variant)
	cmd.Memory = mem.Physical{}
	cmd.Variant = variant
	cmd.AOCPU = emulatedAOCPU(variant)
}

func main() {
	defer log.Printf("SM says goodbye")

	variant, err := soc.Lookup(Variant)

	if err != nil {
		log.Fatalf("SM invalid variant %q, %v", Variant, err)
	}

	log.Printf("SM emulating %s secure monitor", variant.Name)
	configure(variant)

	if !imx6ul.Native {
		if err := gotee(); err != nil {
			log.Fatal(err)
		}

		return
	}

	iface, err := usbnet.Init(IP, MAC, hostMAC, 1)

	if err != nil {
		log.Fatalf("SM could not initialize USB networking, %v", err)
	}

	iface.EnableICMP()

	listener, err := iface.ListenerTCP4(sshPort)

	if err != nil {
		log.Fatalf("SM could not initialize SSH listener, %v", err)
	}

	ssh = &util.Console{
		Banner:   fmt.Sprintf("%s/%s (%s) • Meson %s secure monitor emulation", runtime.GOOS, runtime.GOARCH, runtime.Version(), variant.Name),
		Help:     cmd.Help(nil),
		Prompt:   variant.Name + "> ",
		Handler:  cmd.Handle,
		Listener: listener,
	}

	if err = ssh.Start(); err != nil {
		log.Fatalf("SM could not initialize SSH server, %v", err)
	}

	usbarmory.USB1.Init()
	usbarmory.USB1.DeviceMode()
	usbarmory.USB1.Reset()

	// never returns
	usbarmory.USB1.Start(iface.NIC.Device)
}
