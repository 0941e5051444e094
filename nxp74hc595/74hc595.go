// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package nxp74hc595 drives a 74HC595 serial to parallel shift register on an
// SPI bus as 8 output lines.
//
// The register is write only. The driver keeps a copy of the last byte shifted
// out and only touches the bus when an output actually changes. The latch
// (RCLK) is expected on the SPI chip select, so a whole byte is presented on
// Q0..Q7 at once.
//
// # Datasheet
//
// https://www.nexperia.com/product/74HC595D
//
// There's a nice tutorial on the device here:
//
// https://docs.arduino.cc/tutorials/communication/guide-to-shift-out/
package nxp74hc595

import (
	"errors"
	"fmt"
	"sync"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

const (
	devName = "74HC595"
	numPins = 8
	devMask = gpio.GPIOValue(1)<<numPins - 1
)

// ErrNotImplemented is returned by Pin.PWM.
var ErrNotImplemented = errors.New("nxp74hc595: not implemented")

// Dev represents a 74HC595 device.
type Dev struct {
	// Pins are the outputs, Q0 first.
	Pins []*Pin

	mu    sync.Mutex
	conn  spi.Conn
	value gpio.GPIOValue
	valid bool
}

// New returns a 74HC595 on conn. No bus traffic happens until the first
// write.
func New(conn spi.Conn) (*Dev, error) {
	dev := &Dev{conn: conn, Pins: make([]*Pin, numPins)}
	for i := range dev.Pins {
		dev.Pins[i] = &Pin{dev: dev, number: i, name: fmt.Sprintf("%s_Q%d", devName, i)}
	}
	return dev, nil
}

// Out sets the outputs selected by mask to the matching bits of value, in a
// single transfer.
func (dev *Dev) Out(value, mask gpio.GPIOValue) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	mask &= devMask
	next := dev.value&^mask | value&mask
	if dev.valid && next == dev.value {
		return nil
	}
	if err := dev.conn.Tx([]byte{byte(next)}, nil); err != nil {
		return fmt.Errorf("nxp74hc595: %w", err)
	}
	dev.value = next
	dev.valid = true
	return nil
}

// Value returns the last byte shifted out.
func (dev *Dev) Value() gpio.GPIOValue {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return dev.value
}

// Halt drives every output low.
func (dev *Dev) Halt() error {
	return dev.Out(0, devMask)
}

func (dev *Dev) String() string {
	return devName
}

// Pin is one output of the shift register.
type Pin struct {
	dev    *Dev
	name   string
	number int
}

// Out implements gpio.PinOut.
func (pin *Pin) Out(l gpio.Level) error {
	mask := gpio.GPIOValue(1) << pin.number
	var v gpio.GPIOValue
	if l {
		v = mask
	}
	return pin.dev.Out(v, mask)
}

// PWM is not supported.
func (pin *Pin) PWM(duty gpio.Duty, f physic.Frequency) error {
	return ErrNotImplemented
}

// Halt implements conn.Resource. It does nothing, halt the Dev instead.
func (pin *Pin) Halt() error {
	return nil
}

// Name returns the name of the output.
func (pin *Pin) Name() string {
	return pin.name
}

// Number returns the output number, 0 for Q0.
func (pin *Pin) Number() int {
	return pin.number
}

// Function implements pin.Pin.
func (pin *Pin) Function() string {
	return "Out"
}

func (pin *Pin) String() string {
	return pin.name
}

var _ conn.Resource = &Dev{}
var _ gpio.PinOut = &Pin{}
