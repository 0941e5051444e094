// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package gpioline provides exclusively owned GPIO output lines for
// bit-banged peripherals.
//
// A Line is acquired once, either by GPIO chip and line offset using the Linux
// GPIO character device, or by its registered name, and is then handed to the
// driver that uses it. Lines are write only. There is no read back of the
// level that was applied.
//
// # Linux GPIO uAPI
//
// https://docs.kernel.org/userspace-api/gpio/chardev.html
package gpioline

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
	"periph.io/x/host/v3/gpioioctl"
)

var (
	// ErrChipNotFound is returned when no GPIO chip matches the requested
	// path or name.
	ErrChipNotFound = errors.New("gpioline: gpio chip not found")
	// ErrLineNotFound is returned when the chip has no line at the requested
	// offset, or when no line is registered under the requested name.
	ErrLineNotFound = errors.New("gpioline: line not found")
	// ErrReleased is returned when writing to a line after Halt.
	ErrReleased = errors.New("gpioline: line released")
	// ErrBusy is returned when the line is already held by another Line.
	ErrBusy = errors.New("gpioline: line busy")
)

// Lines held by Acquire or ByName. The host hands out one shared pin value per
// physical line, so the pin itself is the key.
var (
	claimedMu sync.Mutex
	claimed   = map[gpio.PinOut]string{}
)

func claim(p gpio.PinOut, name string) error {
	claimedMu.Lock()
	defer claimedMu.Unlock()
	if owner, ok := claimed[p]; ok {
		return fmt.Errorf("%w: %s held as %s", ErrBusy, name, owner)
	}
	claimed[p] = name
	return nil
}

func unclaim(p gpio.PinOut) {
	claimedMu.Lock()
	delete(claimed, p)
	claimedMu.Unlock()
}

// Line is one GPIO line configured as an output.
//
// A Line must not be copied after first use. Ownership is transferred by
// passing the *Line around.
type Line struct {
	noCopy noCopy

	pin      gpio.PinOut
	name     string
	offset   int
	owned    bool
	released bool
}

// Acquire requests exclusive output control of the line at offset on the GPIO
// chip identified by chip. chip may be the character device path
// ("/dev/gpiochip1"), its base name ("gpiochip1") or the chip label.
//
// The line is claimed by driving it low. Acquiring a line that is already held
// returns ErrBusy until the holder calls Halt.
func Acquire(chip string, offset int) (*Line, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("gpioline: host init: %w", err)
	}
	c := findChip(chip)
	if c == nil {
		return nil, fmt.Errorf("%w: %q", ErrChipNotFound, chip)
	}
	if offset < 0 || offset >= c.LineCount() {
		return nil, fmt.Errorf("%w: %s has %d lines, requested offset %d", ErrLineNotFound, c.Path(), c.LineCount(), offset)
	}
	gl := c.ByNumber(offset)
	if gl == nil {
		return nil, fmt.Errorf("%w: %s offset %d", ErrLineNotFound, c.Path(), offset)
	}
	return own(gl, fmt.Sprintf("%s:%d", c.Path(), offset), offset)
}

// ByName requests the line registered in gpioreg under name, for example
// "GPIO17" on a Raspberry Pi.
func ByName(name string) (*Line, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("gpioline: host init: %w", err)
	}
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("%w: %q", ErrLineNotFound, name)
	}
	return own(p, p.Name(), p.Number())
}

func own(p gpio.PinOut, name string, offset int) (*Line, error) {
	if err := claim(p, name); err != nil {
		return nil, err
	}
	l := &Line{pin: p, name: name, offset: offset, owned: true}
	if err := p.Out(gpio.Low); err != nil {
		unclaim(p)
		return nil, fmt.Errorf("gpioline: request %s: %w", name, err)
	}
	return l, nil
}

// New wraps an output pin the caller already owns, like an I/O expander pin or
// a test double. The pin level is left unchanged.
func New(p gpio.PinOut) *Line {
	return &Line{pin: p, name: p.Name(), offset: p.Number()}
}

// SetHigh drives the line high.
func (l *Line) SetHigh() error {
	return l.Out(gpio.High)
}

// SetLow drives the line low.
func (l *Line) SetLow() error {
	return l.Out(gpio.Low)
}

// Out implements gpio.PinOut.
func (l *Line) Out(level gpio.Level) error {
	if l.released {
		return fmt.Errorf("%w: %s", ErrReleased, l.name)
	}
	if err := l.pin.Out(level); err != nil {
		return fmt.Errorf("gpioline: %s set %s: %w", l.name, level, err)
	}
	return nil
}

// PWM implements gpio.PinOut. Lines are plain digital outputs.
func (l *Line) PWM(duty gpio.Duty, f physic.Frequency) error {
	return fmt.Errorf("gpioline: %s: PWM not supported", l.name)
}

// Halt implements conn.Resource.
//
// It releases the underlying line back to the kernel when the pin supports it.
// The Line can't be used afterward.
func (l *Line) Halt() error {
	if l.released {
		return nil
	}
	l.released = true
	if l.owned {
		defer unclaim(l.pin)
	}
	switch c := l.pin.(type) {
	case *gpioioctl.GPIOLine:
		c.Close()
	case interface{ Close() error }:
		return c.Close()
	}
	return nil
}

// Name implements pin.Pin.
func (l *Line) Name() string {
	return l.name
}

// Number implements pin.Pin. It is the offset of the line on its chip.
func (l *Line) Number() int {
	return l.offset
}

// Function implements pin.Pin.
func (l *Line) Function() string {
	return "Out"
}

func (l *Line) String() string {
	return l.name
}

func findChip(id string) *gpioioctl.GPIOChip {
	for _, c := range gpioioctl.Chips {
		if c.Path() == id || c.Name() == id || c.Label() == id || filepath.Base(c.Path()) == id {
			return c
		}
	}
	return nil
}

// noCopy makes go vet's copylocks check flag copies of Line.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

var _ gpio.PinOut = &Line{}
var _ conn.Resource = &Line{}
