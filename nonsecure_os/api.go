// Copyright (c) F-Secure Corporation
// https://foundry.f-secure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build tamago && arm

package main

import (
	"github.com/usbarmory/GoTEE/syscall"
)

// defined in api_arm.s
func monitorCall(a0 uint32, a1 uint32)

func printSecure(c byte) {
	monitorCall(syscall.SYS_WRITE, uint32(c))
}

func exit() {
	monitorCall(syscall.SYS_EXIT, 0)
}
