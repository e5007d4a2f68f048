// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package cmd

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"regexp"
	"strconv"

	"golang.org/x/term"

	"github.com/usbarmory/GoTEE-meson/tz"
)

// Secure is the secure services context used by secure monitor commands.
var Secure *tz.Context

func init() {
	Add(Cmd{
		Name:    "efuse",
		Args:    3,
		Pattern: regexp.MustCompile(`^efuse (read|cali) ([[:xdigit:]]+) (\d+)$`),
		Syntax:  "<read|cali> <hex offset> <size>",
		Help:    "eFuse read",
		Fn:      efuseReadCmd,
	})

	Add(Cmd{
		Name:    "efuse write",
		Args:    2,
		Pattern: regexp.MustCompile(`^efuse write ([[:xdigit:]]+) ([[:xdigit:]]+)$`),
		Syntax:  "<hex offset> <hex data>",
		Help:    "eFuse write   (irreversible)",
		Fn:      efuseWriteCmd,
	})

	Add(Cmd{
		Name: "efuse max",
		Help: "eFuse user area size",
		Fn:   efuseMaxCmd,
	})

	Add(Cmd{
		Name: "efuse pattern",
		Help: "eFuse pattern dump (debug)",
		Fn:   efusePatternCmd,
	})

	Add(Cmd{
		Name: "chipid",
		Help: "chip identifier",
		Fn:   chipIDCmd,
	})

	Add(Cmd{
		Name: "reason",
		Help: "last reboot reason",
		Fn:   reasonCmd,
	})

	Add(Cmd{
		Name:    "reboot",
		Args:    1,
		Pattern: regexp.MustCompile(`^reboot ([[:xdigit:]]+)$`),
		Syntax:  "<hex reason>",
		Help:    "system reset",
		Fn:      rebootCmd,
	})

	Add(Cmd{
		Name:    "jtag",
		Args:    2,
		Pattern: regexp.MustCompile(`^jtag (on|off) (\d+)$`),
		Syntax:  "<on|off> <select>",
		Help:    "JTAG access",
		Fn:      jtagCmd,
	})

	Add(Cmd{
		Name:    "wdt",
		Args:    1,
		Pattern: regexp.MustCompile(`^wdt ([[:xdigit:]]+)$`),
		Syntax:  "<hex arg>",
		Help:    "watchdog notification",
		Fn:      wdtCmd,
	})

	Add(Cmd{
		Name: "oscring",
		Help: "oscillator ring calibration",
		Fn:   oscRingCmd,
	})
}

func efuseReadCmd(_ *term.Terminal, arg []string) (res string, err error) {
	if Secure == nil {
		return "", ErrUnavailable
	}

	off, err := strconv.ParseUint(arg[1], 16, 32)

	if err != nil {
		return "", fmt.Errorf("invalid offset, %v", err)
	}

	size, err := strconv.ParseUint(arg[2], 10, 32)

	if err != nil || size > tz.EfuseBytes {
		return "", fmt.Errorf("invalid size")
	}

	req := &tz.EfuseRequest{
		Command: tz.EfuseRead,
		Offset:  uint32(off),
		Size:    uint32(size),
		Buffer:  make([]byte, size),
	}

	if arg[0] == "cali" {
		req.Command = tz.EfuseReadCalibration
	}

	n, err := Secure.Efuse(req)

	if err != nil {
		return
	}

	return hex.Dump(req.Buffer[:n]), nil
}

func efuseWriteCmd(_ *term.Terminal, arg []string) (res string, err error) {
	if Secure == nil {
		return "", ErrUnavailable
	}

	off, err := strconv.ParseUint(arg[0], 16, 32)

	if err != nil {
		return "", fmt.Errorf("invalid offset, %v", err)
	}

	data, err := hex.DecodeString(arg[1])

	if err != nil {
		return "", fmt.Errorf("invalid data, %v", err)
	}

	n, err := Secure.Efuse(&tz.EfuseRequest{
		Command: tz.EfuseWrite,
		Offset:  uint32(off),
		Size:    uint32(len(data)),
		Buffer:  data,
	})

	return fmt.Sprintf("%d bytes written", n), err
}

func efuseMaxCmd(_ *term.Terminal, _ []string) (string, error) {
	if Secure == nil {
		return "", ErrUnavailable
	}

	return fmt.Sprintf("%d", Secure.EfuseMax()), nil
}

func efusePatternCmd(_ *term.Terminal, _ []string) (res string, err error) {
	if Secure == nil {
		return "", ErrUnavailable
	}

	buf := make([]byte, tz.EfuseBytes)

	if n, err := Secure.DebugReadPattern(buf); err != nil || n == 0 {
		return "", fmt.Errorf("pattern read failed (%d, %v)", n, err)
	}

	return hex.Dump(buf), nil
}

func chipIDCmd(_ *term.Terminal, _ []string) (res string, err error) {
	if Secure == nil {
		return "", ErrUnavailable
	}

	buf := make([]byte, tz.ChipIDSize)

	if err = Secure.ChipID(buf); err != nil {
		return
	}

	return fmt.Sprintf("%x", buf), nil
}

func reasonCmd(_ *term.Terminal, _ []string) (string, error) {
	if Secure == nil {
		return "", ErrUnavailable
	}

	return fmt.Sprintf("%#x", Secure.RebootReason()), nil
}

func rebootCmd(_ *term.Terminal, arg []string) (res string, err error) {
	if Secure == nil {
		return "", ErrUnavailable
	}

	reason, err := strconv.ParseUint(arg[0], 16, 32)

	if err != nil {
		return "", fmt.Errorf("invalid reason, %v", err)
	}

	return Secure.Reboot(uint32(reason)).String(), nil
}

func jtagCmd(_ *term.Terminal, arg []string) (res string, err error) {
	if Secure == nil {
		return "", ErrUnavailable
	}

	sel, err := strconv.ParseUint(arg[1], 10, 32)

	if err != nil {
		return "", fmt.Errorf("invalid select, %v", err)
	}

	return fmt.Sprintf("%#x", Secure.SetJTAGState(arg[0] == "on", uint32(sel))), nil
}

func wdtCmd(_ *term.Terminal, arg []string) (res string, err error) {
	if Secure == nil {
		return "", ErrUnavailable
	}

	val, err := strconv.ParseUint(arg[0], 16, 64)

	if err != nil {
		return "", fmt.Errorf("invalid argument, %v", err)
	}

	return fmt.Sprintf("%#x", Secure.WatchdogNotify(val)), nil
}

func oscRingCmd(_ *term.Terminal, _ []string) (res string, err error) {
	var buf bytes.Buffer

	if Secure == nil {
		return "", ErrUnavailable
	}

	data := make([]byte, 256)
	n, err := Secure.OscRing(data)

	if err != nil {
		return
	}

	for i := 0; i < n; i++ {
		fmt.Fprintf(&buf, "ring %d: %#.2x\n", i, data[i])
	}

	return buf.String(), nil
}
