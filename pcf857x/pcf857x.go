// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package pcf857x drives the outputs of the TI/NXP PCF8574 (8 lines) and
// PCF8575 (16 lines) I²C I/O expanders.
//
// These chips are the heart of the ubiquitous LCD1602/LCD2004 I²C backpacks.
// Only the output side is supported: each write sends the whole port, so the
// driver keeps a copy of the last value written and only touches the bus when
// a line actually changes.
//
// # Datasheet
//
// https://www.ti.com/lit/ds/symlink/pcf8574.pdf
//
// A description of the LCD backpack wiring:
//
// https://www.handsontec.com/dataspecs/I2C_2004_LCD.pdf
package pcf857x

import (
	"errors"
	"fmt"
	"sync"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

// Variant represents the actual chip model.
type Variant string

const (
	PCF8574 Variant = "PCF8574"
	PCF8575 Variant = "PCF8575"

	// DefaultAddress is the address with A0..A2 tied low.
	DefaultAddress uint16 = 0x20
)

var (
	// ErrNotImplemented is returned by Pin.PWM.
	ErrNotImplemented = errors.New("pcf857x: not implemented")
	// ErrVariant is returned by New for an unknown chip.
	ErrVariant = errors.New("pcf857x: unknown variant")
)

// Dev is a PCF857x expander used as outputs.
type Dev struct {
	// Pins are the expander lines, P0 first. 8 for the PCF8574, 16 for the
	// PCF8575.
	Pins []*Pin

	variant Variant
	mask    gpio.GPIOValue

	mu    sync.Mutex
	d     *i2c.Dev
	value gpio.GPIOValue
	valid bool
}

// New returns a PCF857x at address on bus. No bus traffic happens until the
// first write.
func New(bus i2c.Bus, address uint16, variant Variant) (*Dev, error) {
	var width int
	switch variant {
	case PCF8574:
		width = 8
	case PCF8575:
		width = 16
	default:
		return nil, fmt.Errorf("%w: %q", ErrVariant, variant)
	}
	dev := &Dev{
		variant: variant,
		mask:    gpio.GPIOValue(1)<<width - 1,
		d:       &i2c.Dev{Bus: bus, Addr: address},
		Pins:    make([]*Pin, width),
	}
	s := dev.String()
	for i := range dev.Pins {
		dev.Pins[i] = &Pin{dev: dev, number: i, name: fmt.Sprintf("%s_P%d", s, i)}
	}
	return dev, nil
}

// Out sets the lines selected by mask to the matching bits of value, in a
// single bus transaction.
func (dev *Dev) Out(value, mask gpio.GPIOValue) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	mask &= dev.mask
	next := dev.value&^mask | value&mask
	if dev.valid && next == dev.value {
		return nil
	}
	w := make([]byte, len(dev.Pins)/8)
	for i := range w {
		w[i] = byte(next >> (8 * i))
	}
	if err := dev.d.Tx(w, nil); err != nil {
		return fmt.Errorf("pcf857x: %w", err)
	}
	dev.value = next
	dev.valid = true
	return nil
}

// Value returns the last value written to the port.
func (dev *Dev) Value() gpio.GPIOValue {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return dev.value
}

// Halt drives every line low.
func (dev *Dev) Halt() error {
	return dev.Out(0, dev.mask)
}

func (dev *Dev) String() string {
	return fmt.Sprintf("%s_%x", dev.variant, dev.d.Addr)
}

// Pin is one expander line.
type Pin struct {
	dev    *Dev
	number int
	name   string
}

// Out implements gpio.PinOut.
func (p *Pin) Out(l gpio.Level) error {
	mask := gpio.GPIOValue(1) << p.number
	var v gpio.GPIOValue
	if l {
		v = mask
	}
	return p.dev.Out(v, mask)
}

// PWM is not supported.
func (p *Pin) PWM(duty gpio.Duty, f physic.Frequency) error {
	return ErrNotImplemented
}

// Halt implements conn.Resource. It does nothing, halt the Dev instead.
func (p *Pin) Halt() error {
	return nil
}

// Name implements pin.Pin.
func (p *Pin) Name() string {
	return p.name
}

// Number implements pin.Pin.
func (p *Pin) Number() int {
	return p.number
}

// Function implements pin.Pin.
func (p *Pin) Function() string {
	return "Out"
}

func (p *Pin) String() string {
	return p.name
}

var _ conn.Resource = &Dev{}
var _ gpio.PinOut = &Pin{}
