// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build tamago && arm

package main

import (
	"errors"
	"fmt"
	"log"

	"github.com/usbarmory/tamago/arm"

	"github.com/usbarmory/GoTEE/monitor"
	"github.com/usbarmory/GoTEE/syscall"

	"github.com/usbarmory/GoTEE-meson/util"
)

// Meson SMC function identifiers are SMC32 fast calls in the SiP and
// Standard service ranges.
func isSecureService(fid uint32) bool {
	switch fid >> 24 {
	case 0x82, 0x84:
		return true
	}

	return false
}

func goHandler(ctx *monitor.ExecCtx) (err error) {
	if ctx.ExceptionVector == arm.DATA_ABORT && ctx.NonSecure() {
		log.Printf("SM trapped Non-secure data abort pc:%#.8x", ctx.R15-8)

		log.Print(ctx)
		ctx.Stop()

		return
	}

	if ctx.ExceptionVector != arm.SUPERVISOR {
		return fmt.Errorf("exception %x", ctx.ExceptionVector)
	}

	switch {
	case ctx.A0() == syscall.SYS_WRITE:
		// Override write syscall to avoid interleaved logs and to log
		// simultaneously to remote terminal and serial console.
		if ssh != nil && ssh.Term != nil {
			util.BufferedTermLog(byte(ctx.A1()), !ctx.NonSecure(), ssh.Term)
		} else {
			util.BufferedStdoutLog(byte(ctx.A1()), !ctx.NonSecure())
		}
	case ctx.A0() == syscall.SYS_EXIT:
		ctx.Stop()
	case ctx.NonSecure() && isSecureService(ctx.R0):
		res := sip.Call(uint64(ctx.R0),
			uint64(ctx.R1), uint64(ctx.R2), uint64(ctx.R3),
			uint64(ctx.R4), uint64(ctx.R5), uint64(ctx.R6))

		ctx.R0 = uint32(res.A0)
		ctx.R1 = uint32(res.A1)
	case ctx.NonSecure():
		log.Print(ctx)
		return errors.New("unexpected monitor call")
	default:
		return monitor.SecureHandler(ctx)
	}

	return
}
