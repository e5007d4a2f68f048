// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build tamago && arm

package main

import (
	"log"
	"os"
	"runtime"
	_ "unsafe"

	"github.com/usbarmory/tamago/soc/nxp/imx6ul"

	"github.com/usbarmory/GoTEE-meson/internal/selftest"
	"github.com/usbarmory/GoTEE-meson/mem"
	"github.com/usbarmory/GoTEE-meson/reg"
	"github.com/usbarmory/GoTEE-meson/smc"
	"github.com/usbarmory/GoTEE-meson/soc"
	"github.com/usbarmory/GoTEE-meson/tz"
)

// Variant must match the Secure World emulated SoC family.
var Variant = "sc2"

//go:linkname ramStart runtime.ramStart
var ramStart uint32 = mem.NonSecureStart

//go:linkname ramSize runtime.ramSize
var ramSize uint32 = mem.NonSecureSize

//go:linkname hwinit runtime.hwinit
func hwinit() {
	imx6ul.Init()
}

//go:linkname printk runtime.printk
func printk(c byte) {
	printSecure(c)
}

// dataCache implements tz.Cache by flushing the whole data cache.
type dataCache struct{}

func (dataCache) FlushRange(addr uint64, size uint64) {
	imx6ul.ARM.FlushDataCache()
}

func init() {
	log.SetFlags(log.Ltime)
	log.SetOutput(os.Stdout)

	imx6ul.SetARMFreq(900)
}

func main() {
	log.Printf("%s/%s (%s) • system/supervisor (Non-secure)", runtime.GOOS, runtime.GOARCH, runtime.Version())

	variant, err := soc.Lookup(Variant)

	if err != nil {
		log.Printf("supervisor invalid variant, %v", err)
		exit()
	}

	secure := tz.New(smc.Monitor{}, mem.Physical{}, reg.MMIO{}, variant)
	secure.Cache = dataCache{}

	selftest.Run(secure, log.Default())

	// yield back to secure monitor
	log.Printf("supervisor is about to yield back")
	exit()

	// this should be unreachable
	log.Printf("supervisor says goodbye")
}
