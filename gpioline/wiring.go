// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gpioline

import (
	"errors"
	"fmt"
	"path/filepath"

	"gopkg.in/yaml.v3"
	"periph.io/x/conn/v3/gpio"
)

// ErrWiring is returned for a wiring description that can't drive a display.
var ErrWiring = errors.New("gpioline: invalid wiring")

// Pin identifies one line of a GPIO chip.
type Pin struct {
	Chip   string `yaml:"chip"`
	Offset int    `yaml:"offset"`
}

// Wiring describes how a parallel character display is connected to the
// host. Data lists the data lines from the least significant bit up: D4..D7
// for a 4 bit bus, D0..D7 for an 8 bit bus.
//
// A 4 bit display spread over several chips:
//
//	rs: {chip: /dev/gpiochip1, offset: 3}
//	e:  {chip: /dev/gpiochip1, offset: 4}
//	data:
//	  - {chip: /dev/gpiochip0, offset: 12}
//	  - {chip: /dev/gpiochip3, offset: 26}
//	  - {chip: /dev/gpiochip0, offset: 14}
//	  - {chip: /dev/gpiochip1, offset: 1}
type Wiring struct {
	RS        Pin   `yaml:"rs"`
	E         Pin   `yaml:"e"`
	Data      []Pin `yaml:"data"`
	Backlight *Pin  `yaml:"backlight,omitempty"`
}

// ParseWiring decodes a YAML wiring description and validates it.
func ParseWiring(b []byte) (*Wiring, error) {
	w := &Wiring{}
	if err := yaml.Unmarshal(b, w); err != nil {
		return nil, fmt.Errorf("gpioline: parse wiring: %w", err)
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return w, nil
}

// Validate checks that every line is named, that no line is used twice and
// that the data bus is 4 or 8 lines wide.
func (w *Wiring) Validate() error {
	if n := len(w.Data); n != 4 && n != 8 {
		return fmt.Errorf("%w: %d data lines, want 4 or 8", ErrWiring, n)
	}
	seen := map[Pin]string{}
	for _, r := range w.roles() {
		if r.pin.Chip == "" {
			return fmt.Errorf("%w: %s has no chip", ErrWiring, r.name)
		}
		if r.pin.Offset < 0 {
			return fmt.Errorf("%w: %s offset %d", ErrWiring, r.name, r.pin.Offset)
		}
		// "/dev/gpiochip0" and "gpiochip0" are the same chip.
		k := Pin{Chip: filepath.Base(r.pin.Chip), Offset: r.pin.Offset}
		if other, ok := seen[k]; ok {
			return fmt.Errorf("%w: %s and %s share %s:%d", ErrWiring, other, r.name, r.pin.Chip, r.pin.Offset)
		}
		seen[k] = r.name
	}
	return nil
}

// Width returns the data bus width in bits.
func (w *Wiring) Width() int {
	return len(w.Data)
}

// Lines holds the lines acquired for a Wiring.
type Lines struct {
	RS        *Line
	E         *Line
	Data      []*Line
	Backlight *Line
}

// Open acquires every line of w, in order. If a line can't be acquired, the
// lines already acquired are released and the error names the failing role.
func Open(w *Wiring) (*Lines, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	ls := &Lines{}
	var got []*Line
	for _, r := range w.roles() {
		l, err := Acquire(r.pin.Chip, r.pin.Offset)
		if err != nil {
			for _, g := range got {
				_ = g.Halt()
			}
			return nil, fmt.Errorf("gpioline: %s: %w", r.name, err)
		}
		got = append(got, l)
	}
	ls.RS, ls.E = got[0], got[1]
	ls.Data = got[2 : 2+len(w.Data)]
	if w.Backlight != nil {
		ls.Backlight = got[len(got)-1]
	}
	return ls, nil
}

// DataPins returns the data lines as gpio.PinOut, the way display drivers
// take them.
func (ls *Lines) DataPins() []gpio.PinOut {
	out := make([]gpio.PinOut, len(ls.Data))
	for i, l := range ls.Data {
		out[i] = l
	}
	return out
}

// Halt releases every line.
func (ls *Lines) Halt() error {
	var errs []error
	for _, l := range ls.all() {
		if err := l.Halt(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (ls *Lines) all() []*Line {
	all := append([]*Line{ls.RS, ls.E}, ls.Data...)
	if ls.Backlight != nil {
		all = append(all, ls.Backlight)
	}
	return all
}

type role struct {
	name string
	pin  Pin
}

func (w *Wiring) roles() []role {
	rs := []role{{"rs", w.RS}, {"e", w.E}}
	// Data lines are named after the controller pins they drive.
	first := 8 - len(w.Data)
	for i, p := range w.Data {
		rs = append(rs, role{fmt.Sprintf("d%d", first+i), p})
	}
	if w.Backlight != nil {
		rs = append(rs, role{"backlight", *w.Backlight})
	}
	return rs
}
