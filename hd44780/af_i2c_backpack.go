// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hd44780

import (
	"fmt"

	"github.com/GermanBionicSystems/charlcd/mcp23xxx"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/i2c"
)

// MCP23008 lines on the I²C side of the Adafruit I²C/SPI backpack. GP3..GP6
// carry D4..D7.
const (
	mcpRS        = 1
	mcpE         = 2
	mcpD4        = 3
	mcpBacklight = 7
)

// NewAdafruitI2CBackpack returns a FourBit Dev behind the I²C side of the
// Adafruit I²C/SPI LCD backpack, at address 0x20 unless the jumpers are
// bridged. Begin must still be called.
//
// # Product Information
//
// https://www.adafruit.com/product/292
//
// Every expander line is made an output and driven low first. Unless opts
// already has one, the backlight is set up on GP7.
func NewAdafruitI2CBackpack(bus i2c.Bus, address uint16, opts *Opts) (*Dev, error) {
	mcp, err := mcp23xxx.New(bus, address, mcp23xxx.MCP23008)
	if err != nil {
		return nil, fmt.Errorf("hd44780: %w", err)
	}
	if err := mcp.Halt(); err != nil {
		return nil, fmt.Errorf("hd44780: %w", err)
	}
	data := make([]gpio.PinOut, 4)
	for i := range data {
		data[i] = mcp.Pins[mcpD4+i]
	}
	o := withBacklight(opts, NewBacklight(mcp.Pins[mcpBacklight]))
	return New(mcp.Pins[mcpRS], mcp.Pins[mcpE], data, FourBit, &o)
}
