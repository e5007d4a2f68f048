// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package selftest

import (
	"bytes"
	"log"
	"strings"
	"testing"

	"github.com/usbarmory/GoTEE-meson/internal/sim"
	"github.com/usbarmory/GoTEE-meson/mem"
	"github.com/usbarmory/GoTEE-meson/secmon"
	"github.com/usbarmory/GoTEE-meson/smc"
	"github.com/usbarmory/GoTEE-meson/soc"
	"github.com/usbarmory/GoTEE-meson/tz"
)

// oversizedRead reports more processed eFuse bytes than requested.
type oversizedRead struct {
	smc.Caller
}

func (c oversizedRead) Call(fid uint64, args ...uint64) smc.Result {
	if fid == tz.FuncEfuseRead {
		return smc.Result{A0: 64}
	}

	return c.Caller.Call(fid, args...)
}

func run(t *testing.T, wrap func(smc.Caller) smc.Caller) string {
	t.Helper()

	variant, err := soc.Lookup("sc2")

	if err != nil {
		t.Fatal(err)
	}

	buf := mem.NewBuffer(mem.SharedStart, 2*mem.ShareMemBufferSize)
	monitor := secmon.New(buf, mem.ShareMemInputStart, mem.ShareMemOutputStart)
	copy(monitor.ChipID, []byte{0xca, 0xfe})

	var caller smc.Caller = monitor

	if wrap != nil {
		caller = wrap(caller)
	}

	var out bytes.Buffer
	Run(tz.New(caller, buf, sim.NewRegisters(), variant), log.New(&out, "", 0))

	return out.String()
}

func TestRun(t *testing.T) {
	out := run(t, nil)

	for _, want := range []string{
		"input shared memory addr:0x8ff00000 err:<nil>",
		"eFuse read n:16 data:00000000000000000000000000000000",
		"chip id:cafe0000000000000000000000000000",
		"reboot reason:0x0",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestRunOversizedRead(t *testing.T) {
	out := run(t, func(c smc.Caller) smc.Caller {
		return oversizedRead{c}
	})

	if !strings.Contains(out, "eFuse read failed") {
		t.Errorf("oversized read not reported as failure:\n%s", out)
	}

	if !strings.Contains(out, "chip id:cafe") {
		t.Errorf("self test stopped after failed read:\n%s", out)
	}
}
