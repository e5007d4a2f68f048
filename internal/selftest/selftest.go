// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package selftest exercises the secure services of a tz.Context and logs
// the outcome of each call.
package selftest

import (
	"log"

	"github.com/usbarmory/GoTEE-meson/mem"
	"github.com/usbarmory/GoTEE-meson/tz"
)

// Run exercises each secure service once, logging its result on logger.
func Run(secure *tz.Context, logger *log.Logger) {
	for _, kind := range []tz.ShmKind{tz.ShmInput, tz.ShmOutput} {
		addr, err := secure.SharedMemory(kind)
		logger.Printf("supervisor %s shared memory addr:%#x err:%v", kind, addr, err)
	}

	logger.Printf("supervisor eFuse user area size:%d", secure.EfuseMax())

	buf := make([]byte, 16)
	n, err := secure.Efuse(&tz.EfuseRequest{
		Command: tz.EfuseRead,
		Offset:  0,
		Size:    uint32(len(buf)),
		Buffer:  buf,
	})

	if err != nil {
		logger.Printf("supervisor eFuse read failed, %v", err)
	} else {
		logger.Printf("supervisor eFuse read n:%d data:%x", n, buf[:n])
	}

	id := make([]byte, tz.ChipIDSize)

	if err = secure.ChipID(id); err != nil {
		logger.Printf("supervisor chip id failed, %v", err)
	} else {
		logger.Printf("supervisor chip id:%x", id)
	}

	ring := make([]byte, 64)

	if n, err := secure.OscRing(ring); err != nil {
		logger.Printf("supervisor oscillator ring failed, %v", err)
	} else {
		logger.Printf("supervisor oscillator ring:%x", ring[:n])
	}

	logger.Printf("supervisor reboot reason:%#x", secure.RebootReason())
	logger.Printf("supervisor watchdog notify:%#x", secure.WatchdogNotify(1))
	logger.Printf("supervisor secure boot check:%#x", secure.SecureBootCheck(0, mem.NonSecureStart, 0x1000, 0))
}
