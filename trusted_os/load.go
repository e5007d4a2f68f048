// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build tamago && arm

package main

import (
	_ "embed"
	"fmt"
	"log"

	"github.com/usbarmory/tamago/arm"
	"github.com/usbarmory/tamago/soc/nxp/imx6ul"

	"github.com/usbarmory/GoTEE/monitor"

	"github.com/usbarmory/armory-boot/exec"

	"github.com/usbarmory/GoTEE-meson/mem"
	"github.com/usbarmory/GoTEE-meson/util"
)

//go:embed assets/nonsecure_os.elf
var OS []byte

// loadNormalWorld loads the secure services client unikernel as Normal World
// OS.
func loadNormalWorld(lock bool) (os *monitor.ExecCtx, err error) {
	image := &exec.ELFImage{
		Region: mem.NonSecureRegion,
		ELF:    OS,
	}

	if err = image.Load(); err != nil {
		return
	}

	if os, err = monitor.Load(image.Entry(), image.Region, false); err != nil {
		return nil, fmt.Errorf("SM could not load kernel, %v", err)
	}

	log.Printf("SM loaded kernel addr:%#x entry:%#x size:%d", os.Memory.Start(), os.R15, len(OS))

	if err = configureTrustZone(lock); err != nil {
		return nil, fmt.Errorf("SM could not configure TrustZone, %v", err)
	}

	// override default handler to serve secure monitor calls
	os.Handler = goHandler

	return
}

func run(ctx *monitor.ExecCtx) {
	mode := arm.ModeName(int(ctx.SPSR) & 0x1f)
	ns := ctx.NonSecure()

	log.Printf("SM starting mode:%s sp:%#.8x pc:%#.8x ns:%v", mode, ctx.R13, ctx.R15, ns)

	err := ctx.Run()

	log.Printf("SM stopped mode:%s sp:%#.8x lr:%#.8x pc:%#.8x ns:%v err:%v", mode, ctx.R13, ctx.R14, ctx.R15, ns, err)

	if err == nil {
		return
	}

	symbols, serr := util.NewSymbols(OS)

	if serr != nil {
		return
	}

	pcLine, _ := symbols.PCToLine(uint64(ctx.R15))
	lrLine, _ := symbols.PCToLine(uint64(ctx.R14))

	if pcLine != "" || lrLine != "" {
		log.Printf("stack trace:\n  %s\n  %s", pcLine, lrLine)
	}
}

// gotee runs the Normal World client, the first run has no TrustZone
// restrictions while on native hardware a second run locks down Secure
// World memory.
func gotee() (err error) {
	var os *monitor.ExecCtx

	if os, err = loadNormalWorld(false); err != nil {
		return
	}

	run(os)

	if !imx6ul.Native {
		return
	}

	if os, err = loadNormalWorld(true); err != nil {
		return
	}

	log.Printf("SM re-launching kernel with TrustZone restrictions")
	run(os)

	return
}
