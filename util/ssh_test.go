// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package util

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/term"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.String()
}

func TestConsole(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")

	if err != nil {
		t.Skipf("no loopback networking, %v", err)
	}

	defer listener.Close()

	console := &Console{
		Banner: "test banner",
		Help:   "test help",
		Handler: func(t *term.Terminal, line string) error {
			fmt.Fprintf(t, "got %s\n", line)
			return nil
		},
		Listener: listener,
	}

	if err := console.Start(); err != nil {
		t.Fatal(err)
	}

	client, err := ssh.Dial("tcp", listener.Addr().String(), &ssh.ClientConfig{
		User:            "test",
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         5 * time.Second,
	})

	if err != nil {
		t.Fatal(err)
	}

	defer client.Close()

	session, err := client.NewSession()

	if err != nil {
		t.Fatal(err)
	}

	defer session.Close()

	var out syncBuffer
	session.Stdout = &out

	stdin, err := session.StdinPipe()

	if err != nil {
		t.Fatal(err)
	}

	if err := session.Shell(); err != nil {
		t.Fatal(err)
	}

	if _, err := stdin.Write([]byte("ping\r")); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(10 * time.Second)

	for !strings.Contains(out.String(), "got ping") {
		if time.Now().After(deadline) {
			t.Fatalf("no command output, got %q", out.String())
		}

		time.Sleep(10 * time.Millisecond)
	}

	for _, want := range []string{"test banner", "test help"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("missing %q in %q", want, out.String())
		}
	}
}

func TestConsoleClose(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")

	if err != nil {
		t.Skipf("no loopback networking, %v", err)
	}

	console := &Console{
		Handler:  func(*term.Terminal, string) error { return nil },
		Listener: listener,
	}

	if err := console.Start(); err != nil {
		t.Fatal(err)
	}

	listener.Close()

	select {
	case <-console.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("accept loop still running after listener close")
	}
}

func TestTerminalSize(t *testing.T) {
	dims := func(w, h uint32) []byte {
		buf := make([]byte, 8)
		binary.BigEndian.PutUint32(buf, w)
		binary.BigEndian.PutUint32(buf[4:], h)
		return buf
	}

	pty := func(termVar string, w, h uint32) []byte {
		buf := make([]byte, 4)
		binary.BigEndian.PutUint32(buf, uint32(len(termVar)))
		buf = append(buf, termVar...)
		return append(buf, dims(w, h)...)
	}

	for _, test := range []struct {
		reqType string
		payload []byte
		w, h    int
		ok      bool
	}{
		{reqType: "pty-req", payload: pty("xterm-256color", 80, 24), w: 80, h: 24, ok: true},
		{reqType: "pty-req", payload: pty("", 132, 43), w: 132, h: 43, ok: true},
		{reqType: "pty-req", payload: pty("xterm", 80, 24)[:10]},
		{reqType: "pty-req", payload: []byte{0, 0}},
		{reqType: "pty-req", payload: []byte{0xff, 0xff, 0xff, 0xff}},
		{reqType: "window-change", payload: dims(100, 50), w: 100, h: 50, ok: true},
		{reqType: "window-change", payload: dims(100, 50)[:7]},
		{reqType: "env", payload: dims(1, 1)},
	} {
		w, h, ok := terminalSize(test.reqType, test.payload)

		if ok != test.ok || w != test.w || h != test.h {
			t.Errorf("terminalSize(%s, %x) = %d, %d, %v, want %d, %d, %v", test.reqType, test.payload, w, h, ok, test.w, test.h, test.ok)
		}
	}
}
