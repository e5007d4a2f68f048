// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package smc implements the Secure Monitor Call (SMC) primitive used to
// request services from the secure monitor.
//
// A secure call carries a function identifier and up to six scalar arguments,
// it always completes synchronously and returns two result registers.
package smc

import (
	"fmt"
)

// MaxArgs is the maximum number of scalar arguments of a secure call.
const MaxArgs = 6

// Result represents the result registers of a secure call.
type Result struct {
	// A0 is the status or primary return value
	A0 uint64
	// A1 is the secondary return value (e.g. payload length)
	A1 uint64
}

func (r Result) String() string {
	return fmt.Sprintf("a0:%#x a1:%#x", r.A0, r.A1)
}

// Caller represents a secure monitor.
type Caller interface {
	// Call issues a secure call, passing more than MaxArgs arguments is a
	// programming error.
	Call(fid uint64, args ...uint64) Result
}

// Args returns the secure call arguments zero padded to MaxArgs.
func Args(args ...uint64) (a [MaxArgs]uint64) {
	if len(args) > MaxArgs {
		panic(fmt.Sprintf("smc: %d arguments exceed limit of %d", len(args), MaxArgs))
	}

	copy(a[:], args)

	return
}
