// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hd44780

import (
	"fmt"

	"github.com/GermanBionicSystems/charlcd/pcf857x"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/i2c"
)

// PCF8574 lines on the LCD1602/LCD2004 I²C backpacks.
const (
	pcfRS        = 0
	pcfRW        = 1
	pcfE         = 2
	pcfBacklight = 3
	pcfD4        = 4
)

// NewPCF857xBackpack returns a FourBit Dev behind a PCF8574 I²C backpack at
// address, usually 0x27 or 0x3F. Begin must still be called.
//
// # Product Information
//
// https://www.handsontec.com/dataspecs/I2C_2004_LCD.pdf
//
// All the expander lines are driven low first, which holds R/W low. Unless
// opts already has one, the backlight is set up on P3.
func NewPCF857xBackpack(bus i2c.Bus, address uint16, opts *Opts) (*Dev, error) {
	pcf, err := pcf857x.New(bus, address, pcf857x.PCF8574)
	if err != nil {
		return nil, fmt.Errorf("hd44780: %w", err)
	}
	if err := pcf.Out(0, 1<<pcfRW|1<<pcfRS|1<<pcfE|0xf<<pcfD4); err != nil {
		return nil, fmt.Errorf("hd44780: %w", err)
	}
	data := make([]gpio.PinOut, 4)
	for i := range data {
		data[i] = pcf.Pins[pcfD4+i]
	}
	o := withBacklight(opts, NewBacklight(pcf.Pins[pcfBacklight]))
	return New(pcf.Pins[pcfRS], pcf.Pins[pcfE], data, FourBit, &o)
}

// withBacklight returns a copy of opts, or DefaultOpts, using bl unless a
// backlight is already configured.
func withBacklight(opts *Opts, bl *GPIOBacklight) Opts {
	o := DefaultOpts
	if opts != nil {
		o = *opts
	}
	if o.Backlight == nil {
		o.Backlight = bl
	}
	return o
}
