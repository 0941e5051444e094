// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package lcdsim emulates an HD44780 character LCD controller at the pin
// level.
//
// A Sim exposes register select, enable and data lines as gpio.PinOut. It
// latches the data lines on each falling edge of enable, reassembles nibbles
// once the controller has been switched to a 4 bit interface, and executes
// the resulting instructions against a DDRAM model. Everything that crosses
// the bus is recorded so tests can assert the exact transfer sequence.
//
// When a clock is supplied, the Sim also checks the bus timing against the
// datasheet minimums and keeps a list of violations.
//
// # Datasheet
//
// https://www.sparkfun.com/datasheets/LCD/HD44780.pdf
package lcdsim

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"periph.io/x/conn/v3/gpio"
)

// Datasheet timing, at 270kHz oscillator frequency.
const (
	// PowerOnDelay is the wait required after Vcc rises before the first
	// instruction.
	PowerOnDelay = 40 * time.Millisecond
	// MinEnablePulse is the minimum enable high level width (PW_EH).
	MinEnablePulse = 450 * time.Nanosecond
	// ExecTime is the execution time of most instructions and data writes.
	ExecTime = 37 * time.Microsecond
	// ExecTimeLong is the execution time of clear display and return home.
	ExecTimeLong = 1520 * time.Microsecond
	// firstResetTime and secondResetTime are the waits the initialization by
	// instruction flow requires after the first two function sets.
	firstResetTime  = 4100 * time.Microsecond
	secondResetTime = 100 * time.Microsecond
)

var rowOffsets = [...]byte{0x00, 0x40, 0x14, 0x54}

// EventKind identifies what happened on the bus.
type EventKind int

const (
	// RegisterSelect is recorded each time the RS line is driven.
	RegisterSelect EventKind = iota
	// Latch is recorded on each falling edge of enable.
	Latch
)

func (k EventKind) String() string {
	switch k {
	case RegisterSelect:
		return "RS"
	case Latch:
		return "Latch"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is one observable bus action.
type Event struct {
	Kind EventKind
	// Level is the RS level, either the one just driven or the one
	// sampled at the latch.
	Level gpio.Level
	// Value holds the bits present on the connected data lines at a latch.
	// With 4 lines connected to D4..D7 it is the nibble, 0 to 15.
	Value byte
}

func (e Event) String() string {
	if e.Kind == RegisterSelect {
		return fmt.Sprintf("RS=%s", e.Level)
	}
	return fmt.Sprintf("Latch(RS=%s, %#x)", e.Level, e.Value)
}

// Transfer is one complete instruction (Data false) or data byte (Data true)
// as assembled by the controller.
type Transfer struct {
	Data  bool
	Value byte
}

func (t Transfer) String() string {
	if t.Data {
		return fmt.Sprintf("data %#02x", t.Value)
	}
	return fmt.Sprintf("cmd %#02x", t.Value)
}

// Opts configures a Sim.
type Opts struct {
	// Rows and Cols are the visible geometry of the panel.
	Rows int
	Cols int
	// DataLines is 4 when only D4..D7 are connected, or 8.
	DataLines int
	// Clock enables timing checks when set. Share it with the driver.
	Clock clockwork.Clock
}

// DefaultOpts is a 16x2 panel on a 4 bit bus.
var DefaultOpts = Opts{Rows: 2, Cols: 16, DataLines: 4}

// Sim is an emulated HD44780 and the lines connected to it.
type Sim struct {
	// RS, E and D are the controller inputs. D[0] is the least significant
	// connected line: D4 on a 4 bit bus, D0 on an 8 bit bus.
	RS *Pin
	E  *Pin
	D  []*Pin

	opts Opts

	// Controller state.
	eightBit    bool
	twoLine     bool
	pending     bool
	high        byte
	ddram       [0x80]byte
	addr        byte
	cgram       bool
	increment   bool
	shiftOnData bool
	displayOn   bool
	cursorOn    bool
	blinkOn     bool
	shift       int
	resets      int

	// Recording.
	events     []Event
	transfers  []Transfer
	violations []error

	// Timing.
	start     time.Time
	latched   bool
	enableAt  time.Time
	busyUntil time.Time
}

// New returns a Sim in its power-on reset state: 8 bit interface, one line,
// display off, increment mode.
func New(opts *Opts) *Sim {
	o := DefaultOpts
	if opts != nil {
		o = *opts
	}
	if o.DataLines != 8 {
		o.DataLines = 4
	}
	s := &Sim{opts: o, eightBit: true, increment: true}
	s.RS = &Pin{sim: s, name: "RS", num: -1}
	s.E = &Pin{sim: s, name: "E", num: -1}
	first := 8 - o.DataLines
	s.D = make([]*Pin, o.DataLines)
	for i := range s.D {
		s.D[i] = &Pin{sim: s, name: fmt.Sprintf("D%d", first+i), num: first + i}
	}
	for i := range s.ddram {
		s.ddram[i] = ' '
	}
	if o.Clock != nil {
		s.start = o.Clock.Now()
	}
	return s
}

// Data returns the data lines as gpio.PinOut, in driver order.
func (s *Sim) Data() []gpio.PinOut {
	out := make([]gpio.PinOut, len(s.D))
	for i, p := range s.D {
		out[i] = p
	}
	return out
}

// Events returns every recorded bus event.
func (s *Sim) Events() []Event {
	return append([]Event(nil), s.events...)
}

// Transfers returns every instruction and data byte the controller received.
func (s *Sim) Transfers() []Transfer {
	return append([]Transfer(nil), s.transfers...)
}

// Forget drops the recorded events and transfers. Controller state and
// timing violations are kept.
func (s *Sim) Forget() {
	s.events = nil
	s.transfers = nil
}

// Violations returns the timing and protocol violations detected so far.
func (s *Sim) Violations() []error {
	return append([]error(nil), s.violations...)
}

// Err returns all violations joined, or nil.
func (s *Sim) Err() error {
	return errors.Join(s.violations...)
}

// InterfaceBits returns the current interface data length, 4 or 8.
func (s *Sim) InterfaceBits() int {
	if s.eightBit {
		return 8
	}
	return 4
}

// TwoLine reports whether the controller is in 2 line mode.
func (s *Sim) TwoLine() bool {
	return s.twoLine
}

// Address returns the address counter.
func (s *Sim) Address() byte {
	return s.addr
}

// DisplayState returns the display, cursor and blink flags.
func (s *Sim) DisplayState() (on, cursor, blink bool) {
	return s.displayOn, s.cursorOn, s.blinkOn
}

// EntryMode returns the increment and display shift flags.
func (s *Sim) EntryMode() (increment, shift bool) {
	return s.increment, s.shiftOnData
}

// DDRAM returns the byte stored at a DDRAM address.
func (s *Sim) DDRAM(addr byte) byte {
	return s.ddram[addr&0x7f]
}

// Lines returns the visible text, one string per row. Rows are blank while
// the display is off.
func (s *Sim) Lines() []string {
	out := make([]string, s.opts.Rows)
	for r := range out {
		var b strings.Builder
		for c := range s.opts.Cols {
			if !s.displayOn {
				b.WriteByte(' ')
				continue
			}
			b.WriteRune(glyph(s.visible(r, c)))
		}
		out[r] = b.String()
	}
	return out
}

func (s *Sim) String() string {
	return strings.Join(s.Lines(), "\n")
}

// visible returns the character code shown at row r, column c, taking the
// display shift into account.
func (s *Sim) visible(r, c int) byte {
	if r >= len(rowOffsets) {
		return ' '
	}
	if !s.twoLine {
		if r != 0 {
			return ' '
		}
		return s.ddram[mod(c+s.shift, 80)]
	}
	off := rowOffsets[r]
	start := off & 0x40
	idx := mod(int(off-start)+c+s.shift, 40)
	return s.ddram[int(start)+idx]
}

// glyph maps the A00 character ROM to runes for the printable range.
func glyph(b byte) rune {
	switch {
	case b >= 0x20 && b <= 0x7d && b != 0x5c:
		return rune(b)
	case b == 0x5c:
		return '¥'
	case b == 0x7e:
		return '→'
	case b == 0x7f:
		return '←'
	case b == 0xdf:
		return '°'
	case b < 0x10:
		// CGRAM characters.
		return '▯'
	default:
		return '?'
	}
}

func mod(a, n int) int {
	a %= n
	if a < 0 {
		a += n
	}
	return a
}

// out is called by the pins.
func (s *Sim) out(p *Pin, l gpio.Level) {
	prev := p.level
	p.level = l
	switch p {
	case s.RS:
		s.events = append(s.events, Event{Kind: RegisterSelect, Level: l})
	case s.E:
		switch {
		case prev == gpio.Low && l == gpio.High:
			s.enableAt = s.now()
		case prev == gpio.High && l == gpio.Low:
			s.checkPulse()
			s.latch()
		}
	default:
		if s.E.level && prev != l {
			s.violatef("%s changed while enable was high", p.name)
		}
	}
}

func (s *Sim) now() time.Time {
	if s.opts.Clock == nil {
		return time.Time{}
	}
	return s.opts.Clock.Now()
}

func (s *Sim) checkPulse() {
	if s.opts.Clock == nil {
		return
	}
	if w := s.now().Sub(s.enableAt); w < MinEnablePulse {
		s.violatef("enable pulse %v shorter than %v", w, MinEnablePulse)
	}
}

func (s *Sim) latch() {
	var v byte
	for i, p := range s.D {
		if p.level {
			v |= 1 << i
		}
	}
	rs := s.RS.level
	s.events = append(s.events, Event{Kind: Latch, Level: rs, Value: v})

	if s.opts.Clock != nil {
		now := s.now()
		if !s.latched && now.Sub(s.start) < PowerOnDelay {
			s.violatef("first write %v after power on, need %v", now.Sub(s.start), PowerOnDelay)
		}
		if now.Before(s.busyUntil) {
			s.violatef("write while busy, %v early", s.busyUntil.Sub(now))
		}
	}
	s.latched = true

	// Align the sample to D7..D0.
	if len(s.D) == 4 {
		v <<= 4
	}
	if s.eightBit {
		s.execute(bool(rs), v)
		return
	}
	if !s.pending {
		s.high = v & 0xf0
		s.pending = true
		return
	}
	s.pending = false
	s.execute(bool(rs), s.high|v>>4)
}

func (s *Sim) execute(data bool, b byte) {
	s.transfers = append(s.transfers, Transfer{Data: data, Value: b})
	exec := ExecTime
	if data {
		s.writeData(b)
	} else {
		exec = s.instruction(b)
	}
	if s.opts.Clock != nil {
		s.busyUntil = s.now().Add(exec)
	}
}

func (s *Sim) writeData(b byte) {
	if s.cgram {
		return
	}
	s.ddram[s.addr&0x7f] = b
	s.step(s.increment)
	if s.shiftOnData {
		if s.increment {
			s.shift++
		} else {
			s.shift--
		}
	}
}

func (s *Sim) instruction(b byte) time.Duration {
	switch {
	case b&0x80 != 0:
		s.addr = b & 0x7f
		s.cgram = false
	case b&0x40 != 0:
		s.cgram = true
	case b&0x20 != 0:
		wasEight := s.eightBit
		s.eightBit = b&0x10 != 0
		s.twoLine = b&0x08 != 0
		if wasEight && !s.eightBit {
			s.pending = false
		}
		s.resets++
		switch s.resets {
		case 1:
			return firstResetTime
		case 2:
			return secondResetTime
		}
	case b&0x10 != 0:
		right := b&0x04 != 0
		if b&0x08 != 0 {
			if right {
				s.shift--
			} else {
				s.shift++
			}
		} else {
			s.step(right)
		}
	case b&0x08 != 0:
		s.displayOn = b&0x04 != 0
		s.cursorOn = b&0x02 != 0
		s.blinkOn = b&0x01 != 0
	case b&0x04 != 0:
		s.increment = b&0x02 != 0
		s.shiftOnData = b&0x01 != 0
	case b&0x02 != 0:
		s.addr = 0
		s.cgram = false
		s.shift = 0
		return ExecTimeLong
	case b&0x01 != 0:
		for i := range s.ddram {
			s.ddram[i] = ' '
		}
		s.addr = 0
		s.cgram = false
		s.shift = 0
		s.increment = true
		return ExecTimeLong
	}
	return ExecTime
}

// step moves the address counter one position, wrapping the way the
// controller does for the current line mode.
func (s *Sim) step(forward bool) {
	a := s.addr
	if !s.twoLine {
		if forward {
			a = byte(mod(int(a)+1, 80))
		} else {
			a = byte(mod(int(a)-1, 80))
		}
		s.addr = a
		return
	}
	switch {
	case forward && a == 0x27:
		a = 0x40
	case forward && a == 0x67:
		a = 0x00
	case forward:
		a++
	case a == 0x40:
		a = 0x27
	case a == 0x00:
		a = 0x67
	default:
		a--
	}
	s.addr = a
}

func (s *Sim) violatef(format string, args ...any) {
	s.violations = append(s.violations, fmt.Errorf("lcdsim: "+format, args...))
}
