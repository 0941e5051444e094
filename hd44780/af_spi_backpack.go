// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hd44780

import (
	"fmt"

	"github.com/GermanBionicSystems/charlcd/nxp74hc595"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/spi"
)

// 74HC595 outputs on the SPI side of the Adafruit I²C/SPI backpack. The data
// lines run in reverse: Q6 is D4 and Q3 is D7.
const (
	afRS        = 1
	afE         = 2
	afD4        = 6
	afBacklight = 7
)

// NewAdafruitSPIBackpack returns a FourBit Dev behind the SPI side of the
// Adafruit I²C/SPI LCD backpack. Begin must still be called.
//
// # Product Information
//
// https://www.adafruit.com/product/292
//
// Unless opts already has one, the backlight is set up on Q7.
func NewAdafruitSPIBackpack(c spi.Conn, opts *Opts) (*Dev, error) {
	chip, err := nxp74hc595.New(c)
	if err != nil {
		return nil, fmt.Errorf("hd44780: %w", err)
	}
	data := make([]gpio.PinOut, 4)
	for i := range data {
		data[i] = chip.Pins[afD4-i]
	}
	o := withBacklight(opts, NewBacklight(chip.Pins[afBacklight]))
	return New(chip.Pins[afRS], chip.Pins[afE], data, FourBit, &o)
}
