// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package lcdsim

import (
	"errors"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

// ErrNotImplemented is returned by Pin.PWM.
var ErrNotImplemented = errors.New("lcdsim: not implemented")

// Pin is one controller input of a Sim.
type Pin struct {
	// Err, when set, is returned by Out and the level is left unchanged.
	// Use it to simulate a line that can no longer be driven.
	Err error

	sim   *Sim
	name  string
	num   int
	level gpio.Level
}

// Out implements gpio.PinOut.
func (p *Pin) Out(l gpio.Level) error {
	if p.Err != nil {
		return p.Err
	}
	p.sim.out(p, l)
	return nil
}

// Level returns the level last driven on the pin.
func (p *Pin) Level() gpio.Level {
	return p.level
}

// PWM implements gpio.PinOut. Not supported.
func (p *Pin) PWM(duty gpio.Duty, f physic.Frequency) error {
	return ErrNotImplemented
}

// Halt implements conn.Resource.
func (p *Pin) Halt() error {
	return nil
}

// Name implements pin.Pin.
func (p *Pin) Name() string {
	return p.name
}

// Number implements pin.Pin. It is the controller data bit for data lines,
// -1 for RS and E.
func (p *Pin) Number() int {
	return p.num
}

// Function implements pin.Pin.
func (p *Pin) Function() string {
	return "Out"
}

func (p *Pin) String() string {
	return "lcdsim." + p.name
}

var _ gpio.PinOut = &Pin{}
