// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package mcp23xxx drives the outputs of the Microchip MCP23008 (8 lines) and
// MCP23017 (16 lines) I²C GPIO expanders.
//
// The MCP23008 sits on the I²C side of the Adafruit I²C/SPI LCD backpack. Only
// the output side is supported. The chip powers up with every line as an
// input, so the first write turns them all into outputs, then the output
// latch is written through whenever a line changes.
//
// # Datasheet
//
// https://ww1.microchip.com/downloads/en/DeviceDoc/20001952C.pdf
package mcp23xxx

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
	MCP23008 Variant = "MCP23008"
	MCP23017 Variant = "MCP23017"

	// DefaultAddress is the address with A0..A2 tied low.
	DefaultAddress uint16 = 0x20
)

// Register addresses, with IOCON.BANK left at its power on value of 0.
type registers struct {
	iodir byte
	olat  byte
}

var variants = map[Variant]struct {
	width int
	regs  registers
}{
	MCP23008: {8, registers{iodir: 0x00, olat: 0x0a}},
	MCP23017: {16, registers{iodir: 0x00, olat: 0x14}},
}

var (
	// ErrNotImplemented is returned by Pin.PWM.
	ErrNotImplemented = errors.New("mcp23xxx: not implemented")
	// ErrVariant is returned by New for an unknown chip.
	ErrVariant = errors.New("mcp23xxx: unknown variant")
)

// Dev is an MCP23xxx expander used as outputs.
type Dev struct {
	// Pins are the expander lines, GP0 first. On the MCP23017, GPA0..GPA7
	// come before GPB0..GPB7.
	Pins []*Pin

	variant Variant
	regs    registers
	mask    gpio.GPIOValue

	mu         sync.Mutex
	d          *i2c.Dev
	value      gpio.GPIOValue
	valid      bool
	configured bool
}

// New returns an MCP23xxx at address on bus. No bus traffic happens until the
// first write.
func New(bus i2c.Bus, address uint16, variant Variant) (*Dev, error) {
	v, ok := variants[variant]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrVariant, variant)
	}
	dev := &Dev{
		variant: variant,
		regs:    v.regs,
		mask:    gpio.GPIOValue(1)<<v.width - 1,
		d:       &i2c.Dev{Bus: bus, Addr: address},
		Pins:    make([]*Pin, v.width),
	}
	s := dev.String()
	for i := range dev.Pins {
		dev.Pins[i] = &Pin{dev: dev, number: i, name: fmt.Sprintf("%s_GP%d", s, i)}
	}
	return dev, nil
}

// Out sets the lines selected by mask to the matching bits of value, in a
// single write of the output latch.
func (dev *Dev) Out(value, mask gpio.GPIOValue) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	mask &= dev.mask
	next := dev.value&^mask | value&mask
	if dev.valid && next == dev.value {
		return nil
	}
	// OLAT reads 0 at power on, so switching the direction first drives
	// every line low.
	if !dev.configured {
		if err := dev.d.Tx(dev.frame(dev.regs.iodir, 0), nil); err != nil {
			return fmt.Errorf("mcp23xxx: set direction: %w", err)
		}
		dev.configured = true
	}
	if err := dev.d.Tx(dev.frame(dev.regs.olat, next), nil); err != nil {
		return fmt.Errorf("mcp23xxx: %w", err)
	}
	dev.value = next
	dev.valid = true
	return nil
}

// Value returns the last value written to the output latch.
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

// frame returns a register write. Sequential addressing moves from port A to
// port B on the MCP23017.
func (dev *Dev) frame(reg byte, v gpio.GPIOValue) []byte {
	w := make([]byte, 1+len(dev.Pins)/8)
	w[0] = reg
	for i := range w[1:] {
		w[1+i] = byte(v >> (8 * i))
	}
	return w
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
