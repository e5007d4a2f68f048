// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package cmd

import (
	"fmt"
	"regexp"
	"strconv"

	"golang.org/x/term"

	"github.com/usbarmory/GoTEE-meson/scpi"
)

// AOCPU is the co-processor client used by co-processor commands.
var AOCPU *scpi.Client

func init() {
	Add(Cmd{
		Name: "aocpu version",
		Help: "co-processor firmware version",
		Fn:   aocpuVersionCmd,
	})

	Add(Cmd{
		Name:    "aocpu print",
		Args:    1,
		Pattern: regexp.MustCompile(`^aocpu print (on|off)$`),
		Syntax:  "<on|off>",
		Help:    "co-processor console output",
		Fn:      aocpuPrintCmd,
	})

	Add(Cmd{
		Name: "aocpu flag",
		Help: "co-processor reboot flag",
		Fn:   aocpuFlagCmd,
	})

	Add(Cmd{
		Name:    "dsp",
		Args:    1,
		Pattern: regexp.MustCompile(`^dsp (\d+)$`),
		Syntax:  "<id>",
		Help:    "DSP wake up",
		Fn:      dspCmd,
	})
}

func aocpuVersionCmd(_ *term.Terminal, _ []string) (string, error) {
	if AOCPU == nil {
		return "", ErrUnavailable
	}

	return AOCPU.Version()
}

func aocpuPrintCmd(_ *term.Terminal, arg []string) (string, error) {
	if AOCPU == nil {
		return "", ErrUnavailable
	}

	return "", AOCPU.SetPrintEnable(arg[0] == "on")
}

func aocpuFlagCmd(_ *term.Terminal, _ []string) (string, error) {
	if AOCPU == nil {
		return "", ErrUnavailable
	}

	flag, err := AOCPU.RebootFlag()

	return fmt.Sprintf("%#x", flag), err
}

func dspCmd(_ *term.Terminal, arg []string) (string, error) {
	if AOCPU == nil {
		return "", ErrUnavailable
	}

	id, err := strconv.ParseUint(arg[0], 10, 32)

	if err != nil {
		return "", fmt.Errorf("invalid id, %v", err)
	}

	return "", AOCPU.WakeDSP(uint32(id))
}
