// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package util

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log"
	"net"

	"golang.org/x/crypto/ssh"
	"golang.org/x/term"
)

// DefaultPrompt is the console prompt used when Console.Prompt is empty.
const DefaultPrompt = "> "

// Console represents an SSH console instance.
type Console struct {
	// Banner is the login welcome banner
	Banner string
	// Help is shown after the banner
	Help string
	// Prompt is the command line prompt
	Prompt string
	// Handler is the terminal command handler, io.EOF ends the session
	Handler func(*term.Terminal, string) error
	// Listener is the SSH server listener
	Listener net.Listener
	// Term is the terminal instance of the last session
	Term *term.Terminal

	done chan struct{}
}

// terminalSize parses the width and height of "pty-req" (RFC4254 6.2) and
// "window-change" (RFC4254 6.7) channel request payloads.
func terminalSize(reqType string, payload []byte) (w int, h int, ok bool) {
	off := 0

	switch reqType {
	case "pty-req":
		if len(payload) < 4 {
			return
		}

		// TERM environment variable string
		off = 4 + int(binary.BigEndian.Uint32(payload))
	case "window-change":
	default:
		return
	}

	if off < 0 || len(payload) < off+8 {
		return
	}

	w = int(binary.BigEndian.Uint32(payload[off:]))
	h = int(binary.BigEndian.Uint32(payload[off+4:]))

	return w, h, true
}

func handleRequests(t *term.Terminal, requests <-chan *ssh.Request) {
	for req := range requests {
		switch req.Type {
		case "shell":
			// payload commands are not supported
			_ = req.Reply(len(req.Payload) == 0, nil)
		case "pty-req", "window-change":
			w, h, ok := terminalSize(req.Type, req.Payload)

			if !ok {
				log.Printf("malformed %s request", req.Type)
				_ = req.Reply(false, nil)
				continue
			}

			_ = t.SetSize(w, h)
			_ = req.Reply(req.Type == "pty-req", nil)
		default:
			log.Printf("unsupported channel request %s", req.Type)
			_ = req.Reply(false, nil)
		}
	}
}

func (c *Console) session(t *term.Terminal, conn io.Closer) {
	defer conn.Close()

	stdout := log.Writer()
	log.SetOutput(io.MultiWriter(stdout, t))
	defer log.SetOutput(stdout)

	fmt.Fprintf(t, "%s\n", c.Banner)
	fmt.Fprintf(t, "%s\n", string(t.Escape.Cyan)+c.Help+string(t.Escape.Reset))

	for {
		line, err := t.ReadLine()

		if err == io.EOF {
			break
		}

		if err != nil {
			log.Printf("readline error, %v", err)
			continue
		}

		if err = c.Handler(t, line); err == io.EOF {
			break
		} else if err != nil {
			fmt.Fprintf(t, "error: %v\n", err)
		}
	}

	log.Printf("closing ssh connection")
}

func (c *Console) handleChannel(newChannel ssh.NewChannel) {
	if t := newChannel.ChannelType(); t != "session" {
		_ = newChannel.Reject(ssh.UnknownChannelType, fmt.Sprintf("unknown channel type: %s", t))
		return
	}

	conn, requests, err := newChannel.Accept()

	if err != nil {
		log.Printf("error accepting channel, %v", err)
		return
	}

	prompt := c.Prompt

	if prompt == "" {
		prompt = DefaultPrompt
	}

	t := term.NewTerminal(conn, "")
	t.SetPrompt(string(t.Escape.Red) + prompt + string(t.Escape.Reset))
	c.Term = t

	go c.session(t, conn)
	go handleRequests(t, requests)
}

func (c *Console) listen(srv *ssh.ServerConfig) {
	defer close(c.done)

	for {
		conn, err := c.Listener.Accept()

		if errors.Is(err, net.ErrClosed) {
			log.Printf("ssh listener closed")
			return
		}

		if err != nil {
			log.Printf("error accepting connection, %v", err)
			continue
		}

		sshConn, chans, reqs, err := ssh.NewServerConn(conn, srv)

		if err != nil {
			log.Printf("error accepting handshake, %v", err)
			continue
		}

		log.Printf("new ssh connection from %s (%s)", sshConn.RemoteAddr(), sshConn.ClientVersion())

		go ssh.DiscardRequests(reqs)

		go func() {
			for newChannel := range chans {
				go c.handleChannel(newChannel)
			}
		}()
	}
}

// Start instantiates an SSH console on the console listener, connections
// are served until the listener is closed.
func (c *Console) Start() (err error) {
	srv := &ssh.ServerConfig{
		NoClientAuth: true,
	}

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)

	if err != nil {
		return fmt.Errorf("private key generation error, %v", err)
	}

	signer, err := ssh.NewSignerFromKey(key)

	if err != nil {
		return fmt.Errorf("key conversion error, %v", err)
	}

	log.Printf("starting ssh server (%s)", ssh.FingerprintSHA256(signer.PublicKey()))

	srv.AddHostKey(signer)

	c.done = make(chan struct{})
	go c.listen(srv)

	return
}

// Done returns a channel closed once the console listener is closed.
func (c *Console) Done() <-chan struct{} {
	return c.done
}
