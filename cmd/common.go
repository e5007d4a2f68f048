// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package cmd

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"runtime"
	"runtime/debug"
	"runtime/pprof"
	"sort"
	"strings"

	"golang.org/x/term"

	"github.com/usbarmory/GoTEE-meson/soc"
)

// Variant is the SoC variant served by the console.
var Variant *soc.Variant

func init() {
	Add(Cmd{
		Name: "help",
		Help: "this help",
		Fn: func(term *term.Terminal, _ []string) (string, error) {
			return Help(term), nil
		},
	})

	Add(Cmd{
		Name:    "exit, quit",
		Args:    1,
		Pattern: regexp.MustCompile(`^(exit|quit)$`),
		Help:    "close session",
		Fn: func(_ *term.Terminal, _ []string) (string, error) {
			return "logout", io.EOF
		},
	})

	Add(Cmd{
		Name:    "stack",
		Args:    1,
		Pattern: regexp.MustCompile(`^stack(all)?$`),
		Syntax:  "[all]",
		Help:    "goroutine stack trace (current or all)",
		Fn:      stackCmd,
	})

	Add(Cmd{
		Name: "info",
		Help: "runtime and SoC information",
		Fn:   infoCmd,
	})

	Add(Cmd{
		Name: "variants",
		Help: "supported SoC variants",
		Fn:   variantsCmd,
	})
}

func stackCmd(_ *term.Terminal, arg []string) (string, error) {
	if arg[0] == "" {
		return string(debug.Stack()), nil
	}

	var buf bytes.Buffer
	err := pprof.Lookup("goroutine").WriteTo(&buf, 1)

	return buf.String(), err
}

func describe(buf *bytes.Buffer, v *soc.Variant) {
	fmt.Fprintf(buf, "%-8s chipinfo:%#.8x timer:%#.8x tick:%#.8x", v.Name, v.ChipInfo, v.Timer, v.AOCPUTick)

	var ids []int

	for id := range v.Channels {
		ids = append(ids, int(id))
	}

	sort.Ints(ids)

	for _, id := range ids {
		ch := v.Channels[soc.ChannelID(id)]
		fmt.Fprintf(buf, " %s:%d@%#.8x", soc.ChannelID(id), ch.ID, ch.Set)
	}

	buf.WriteString("\n")
}

func infoCmd(_ *term.Terminal, _ []string) (string, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "runtime  %s/%s (%s) goroutines:%d\n", runtime.GOOS, runtime.GOARCH, runtime.Version(), runtime.NumGoroutine())

	if Variant == nil {
		buf.WriteString("soc      none\n")
	} else {
		describe(&buf, Variant)
	}

	fmt.Fprintf(&buf, "services secure:%v aocpu:%v memory:%v", Secure != nil, AOCPU != nil, Memory != nil)

	return buf.String(), nil
}

func variantsCmd(_ *term.Terminal, _ []string) (string, error) {
	var buf bytes.Buffer

	for _, name := range soc.Names() {
		v, err := soc.Lookup(name)

		if err != nil {
			return "", err
		}

		describe(&buf, v)
	}

	return strings.TrimSuffix(buf.String(), "\n"), nil
}
