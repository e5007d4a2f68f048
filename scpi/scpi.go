// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package scpi implements synchronous System Control and Power Interface
// (SCPI) requests to the always-on co-processor over the MHU mailbox.
package scpi

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"k8s.io/klog/v2"

	"github.com/usbarmory/GoTEE-meson/mhu"
	"github.com/usbarmory/GoTEE-meson/soc"
)

// AOCPU commands
const (
	CmdVersion        = 0xb5
	CmdSetPrintEnable = 0xc9
	CmdRebootFlag     = 0xca
	CmdWakeDSP        = 0xcb
)

// VersionSize is the size of the co-processor firmware version string.
const VersionSize = 32

// ErrUnsupportedChannel is returned for channels absent from the SoC
// channel table.
var ErrUnsupportedChannel = errors.New("unsupported mailbox channel")

// Client represents an SCPI requester.
type Client struct {
	// Transport is the mailbox transport
	Transport *mhu.Transport
	// Channels is the mailbox channel table
	Channels map[soc.ChannelID]soc.Channel
}

// New returns an SCPI client for the channels of a SoC variant.
func New(t *mhu.Transport, variant *soc.Variant) *Client {
	return &Client{
		Transport: t,
		Channels:  variant.Channels,
	}
}

// SendData issues a command with an optional payload on a mailbox channel
// and waits for its completion, the response is read in recv.
//
// Requests are validated before any hardware access, channel timeouts are
// returned as *mhu.TimeoutError in which case recv is left untouched.
func (c *Client) SendData(id soc.ChannelID, cmd uint32, send []byte, recv []byte) (err error) {
	ch, ok := c.Channels[id]

	if !ok {
		klog.Errorf("scpi: %s not supported", id)
		return fmt.Errorf("%s: %w", id, ErrUnsupportedChannel)
	}

	if len(send) > mhu.Capacity || len(recv) > mhu.Capacity {
		klog.Errorf("scpi: cmd %#x send:%d recv:%d exceeds capacity %d", cmd, len(send), len(recv), mhu.Capacity)
		return fmt.Errorf("cmd %#x: %w", cmd, mhu.ErrCapacity)
	}

	tx := c.Transport.Begin(ch)
	defer tx.End()

	tx.Start()

	if err = tx.Send(cmd, send); err != nil {
		return
	}

	if _, err = tx.Wait(); err != nil {
		return fmt.Errorf("cmd %#x: %w", cmd, err)
	}

	if len(recv) > 0 {
		err = tx.Receive(recv)
	}

	return
}

// SendDataStatus issues a request like SendData, it returns -1 for
// unsupported channels and 0 otherwise, other failures are only logged.
func (c *Client) SendDataStatus(id soc.ChannelID, cmd uint32, send []byte, recv []byte) int {
	err := c.SendData(id, cmd, send, recv)

	switch {
	case errors.Is(err, ErrUnsupportedChannel):
		return -1
	case err != nil:
		klog.Warningf("scpi: %v", err)
	}

	return 0
}

func word(val uint32) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, val)

	return buf
}

// Version returns the co-processor firmware version.
func (c *Client) Version() (string, error) {
	buf := make([]byte, VersionSize)

	if err := c.SendData(soc.ChannelAOCPUREE, CmdVersion, nil, buf); err != nil {
		return "", err
	}

	if i := bytes.IndexByte(buf, 0); i >= 0 {
		buf = buf[:i]
	}

	return string(buf), nil
}

// SetPrintEnable enables or disables the co-processor console output.
func (c *Client) SetPrintEnable(on bool) error {
	var val uint32

	if on {
		val = 1
	}

	return c.SendData(soc.ChannelAOCPUREE, CmdSetPrintEnable, word(val), nil)
}

// RebootFlag returns the reboot flag recorded by the co-processor.
func (c *Client) RebootFlag() (uint32, error) {
	buf := make([]byte, 4)

	if err := c.SendData(soc.ChannelAOCPUREE, CmdRebootFlag, nil, buf); err != nil {
		return 0, err
	}

	return binary.LittleEndian.Uint32(buf), nil
}

// WakeDSP requests the co-processor to wake up a DSP core.
func (c *Client) WakeDSP(id uint32) error {
	return c.SendData(soc.ChannelAOCPUREE, CmdWakeDSP, word(id), nil)
}
