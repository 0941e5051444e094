// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hd44780

import (
	"fmt"

	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/gpio"
)

// GPIOBacklight is an on/off backlight switched by a single line, usually
// through a transistor.
type GPIOBacklight struct {
	p         gpio.PinOut
	activeLow bool
}

// NewBacklight returns a backlight driven high to turn on.
func NewBacklight(p gpio.PinOut) *GPIOBacklight {
	return &GPIOBacklight{p: p}
}

// NewBacklightActiveLow returns a backlight driven low to turn on, as found on
// boards using a PNP transistor.
func NewBacklightActiveLow(p gpio.PinOut) *GPIOBacklight {
	return &GPIOBacklight{p: p, activeLow: true}
}

// Backlight turns the backlight on for any non zero intensity.
func (bl *GPIOBacklight) Backlight(intensity display.Intensity) error {
	on := intensity != 0
	if err := bl.p.Out(gpio.Level(on != bl.activeLow)); err != nil {
		return fmt.Errorf("hd44780: backlight: %w", err)
	}
	return nil
}

func (bl *GPIOBacklight) String() string {
	return fmt.Sprintf("GPIOBacklight{%s}", bl.p)
}

var _ display.DisplayBacklight = &GPIOBacklight{}
