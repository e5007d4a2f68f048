// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package soc describes the register maps of supported Amlogic Meson SoC
// variants.
package soc

import (
	"fmt"
	"sort"
)

// ChannelID identifies a mailbox channel.
type ChannelID int

// Mailbox channels
const (
	// AOCPU Rich Execution Environment channel
	ChannelAOCPUREE ChannelID = iota
)

func (id ChannelID) String() string {
	switch id {
	case ChannelAOCPUREE:
		return "aocpu-ree"
	default:
		return fmt.Sprintf("channel(%d)", int(id))
	}
}

// Channel represents the registers of a mailbox channel.
type Channel struct {
	// ID is the channel index, used to derive the acknowledgment mask
	ID uint32
	// Set is the command (doorbell) register
	Set uint32
	// Status is the channel status register
	Status uint32
	// Write is the base of the write buffer window
	Write uint32
	// Read is the base of the read buffer window
	Read uint32
	// IRQClear is the interrupt clear register
	IRQClear uint32
}

// Variant represents an SoC family register map.
type Variant struct {
	// Name is the SoC family name
	Name string
	// ChipInfo is the chip identification register (family, revision,
	// package)
	ChipInfo uint32
	// Timer is the free running 1 MHz timer register
	Timer uint32
	// AOCPUTick is the AOCPU tick counter register
	AOCPUTick uint32
	// Channels is the mailbox channel table
	Channels map[ChannelID]Channel
}

var variants = map[string]*Variant{
	"g12a": {
		Name:      "g12a",
		ChipInfo:  0xff800228,
		Timer:     0xffd0f188,
		AOCPUTick: 0xff80f0e0,
	},
	"sc2": {
		Name:      "sc2",
		ChipInfo:  0xfe005010,
		Timer:     0xfe005098,
		AOCPUTick: 0xfe0900ec,
		Channels: map[ChannelID]Channel{
			ChannelAOCPUREE: {
				ID:       3,
				Set:      0xfe006058,
				Status:   0xfe006118,
				Write:    0xfe006e00,
				Read:     0xfe006e00 + 0x80,
				IRQClear: 0xfe006288,
			},
		},
	},
	"t7": {
		Name:      "t7",
		ChipInfo:  0xfe005010,
		Timer:     0xfe005098,
		AOCPUTick: 0xfe0900ec,
		Channels: map[ChannelID]Channel{
			ChannelAOCPUREE: {
				ID:       1,
				Set:      0xfe00603c,
				Status:   0xfe0060fc,
				Write:    0xfe006a00,
				Read:     0xfe006a00 + 0x80,
				IRQClear: 0xfe006284,
			},
		},
	},
}

// Lookup returns the register map of a named SoC variant.
func Lookup(name string) (*Variant, error) {
	v, ok := variants[name]

	if !ok {
		return nil, fmt.Errorf("unsupported SoC variant %q", name)
	}

	return v, nil
}

// Names returns the supported SoC variant names.
func Names() (names []string) {
	for name := range variants {
		names = append(names, name)
	}

	sort.Strings(names)

	return
}
