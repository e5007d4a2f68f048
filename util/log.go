// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package util

import (
	"bytes"
	"io"
	"os"
	"sync"

	"golang.org/x/term"
)

const outputLimit = 1024
const flushChr = 0x0a // \n

// BufferedLog collects console output, one character at a time, separately
// for each security state to avoid interleaved lines.
type BufferedLog struct {
	mu        sync.Mutex
	secure    bytes.Buffer
	nonSecure bytes.Buffer
}

var worldLog BufferedLog

func (l *BufferedLog) buffer(secure bool) *bytes.Buffer {
	if secure {
		return &l.secure
	}

	return &l.nonSecure
}

// Write buffers a character, complete lines are written to w.
func (l *BufferedLog) Write(c byte, secure bool, w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()

	buf := l.buffer(secure)
	buf.WriteByte(c)

	if c == flushChr || buf.Len() > outputLimit {
		_, _ = w.Write(buf.Bytes())
		buf.Reset()
	}
}

// WriteTerm buffers a character, complete lines are written to t colored by
// security state.
func (l *BufferedLog) WriteTerm(c byte, secure bool, t *term.Terminal) {
	color := t.Escape.Red

	if secure {
		color = t.Escape.Green
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	buf := l.buffer(secure)
	buf.WriteByte(c)

	if c == flushChr || buf.Len() > outputLimit {
		_, _ = t.Write(color)
		_, _ = t.Write(buf.Bytes())
		_, _ = t.Write(t.Escape.Reset)

		buf.Reset()
	}
}

// BufferedStdoutLog buffers a character of world output for standard
// output.
func BufferedStdoutLog(c byte, secure bool) {
	worldLog.Write(c, secure, os.Stdout)
}

// BufferedTermLog buffers a character of world output for a terminal.
func BufferedTermLog(c byte, secure bool, t *term.Terminal) {
	worldLog.WriteTerm(c, secure, t)
}
