// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package tz

// Secure monitor SIP service function identifiers.
const (
	FuncShareMemInputBase  uint64 = 0x82000020
	FuncShareMemOutputBase uint64 = 0x82000021
	FuncGetRebootReason    uint64 = 0x82000022

	FuncEfuseRead         uint64 = 0x82000030
	FuncEfuseWrite        uint64 = 0x82000031
	FuncEfuseWritePattern uint64 = 0x82000032
	FuncEfuseUserMax      uint64 = 0x82000033
	FuncEfuseReadCali     uint64 = 0x82000045

	FuncDebugEfuseWritePattern uint64 = 0x820000F0
	FuncDebugEfuseReadPattern  uint64 = 0x820000F1

	FuncJTAGOn  uint64 = 0x82000040
	FuncJTAGOff uint64 = 0x82000041

	FuncGetChipID    uint64 = 0x82000044
	FuncOscRing      uint64 = 0x82000047
	FuncSetBootParam uint64 = 0x82000048
	FuncWatchdog     uint64 = 0x82000086
	FuncDataProcess  uint64 = 0x820000FF

	// PSCI SYSTEM_RESET
	FuncSystemReset uint64 = 0x84000009
)

// Unknown is returned by the secure monitor for unsupported function
// identifiers (SMCCC NOT_SUPPORTED).
const Unknown = 0xffffffff
