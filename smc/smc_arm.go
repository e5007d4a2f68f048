// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build tamago && arm

package smc

import (
	"k8s.io/klog/v2"
)

// defined in smc_arm.s
func smc(fid, a1, a2, a3, a4, a5, a6 uint32) (r0 uint32, r1 uint32)

// Monitor issues secure calls with the SMC32 calling convention, the function
// identifier is passed in r0, arguments in r1-r6 and results are returned in
// r0-r1.
type Monitor struct{}

// Call implements Caller.
func (Monitor) Call(fid uint64, args ...uint64) (res Result) {
	a := Args(args...)

	klog.V(1).Infof("smc fid:%#x args:%#x", fid, a)

	r0, r1 := smc(uint32(fid), uint32(a[0]), uint32(a[1]), uint32(a[2]), uint32(a[3]), uint32(a[4]), uint32(a[5]))

	res.A0 = uint64(r0)
	res.A1 = uint64(r1)

	klog.V(1).Infof("smc fid:%#x %s", fid, res)

	return
}
