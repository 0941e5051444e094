// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package hd44780 controls character LCDs built on the Hitachi HD44780
// controller, or one of its many clones, over a parallel bus.
//
// The controller is driven through discrete output lines: register select,
// enable, and either 4 (D4..D7) or 8 (D0..D7) data lines. The R/W line must be
// tied low. The busy flag is never read, fixed delays are used instead.
//
// Any gpio.PinOut can be used: host GPIO lines, I/O expander pins, or the
// emulated controller in package lcdsim.
//
// # Datasheet
//
// https://www.sparkfun.com/datasheets/LCD/HD44780.pdf
package hd44780

import (
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/gpio"
)

// Mode is the width of the data bus.
type Mode int

const (
	// FourBit uses D4..D7, each byte is sent as two nibbles.
	FourBit Mode = 4
	// EightBit uses D0..D7.
	EightBit Mode = 8
)

func (m Mode) String() string {
	switch m {
	case FourBit:
		return "4-bit"
	case EightBit:
		return "8-bit"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Instruction set.
const (
	CmdClear          byte = 0x01
	CmdHome           byte = 0x02
	CmdEntryMode      byte = 0x04
	CmdDisplayControl byte = 0x08
	CmdShift          byte = 0x10
	CmdFunctionSet    byte = 0x20
	CmdSetCGRAM       byte = 0x40
	CmdSetDDRAM       byte = 0x80

	// CmdEntryMode flags.
	EntryIncrement byte = 0x02
	EntryShift     byte = 0x01

	// CmdDisplayControl flags.
	DisplayOn byte = 0x04
	CursorOn  byte = 0x02
	BlinkOn   byte = 0x01

	// CmdShift flags.
	ShiftDisplay byte = 0x08
	ShiftRight   byte = 0x04

	// CmdFunctionSet flags.
	Function8Bit  byte = 0x10
	Function2Line byte = 0x08
)

var (
	// ErrDataLines is returned by New when the number of data lines does not
	// match the mode.
	ErrDataLines = errors.New("hd44780: data line count does not match mode")
	// ErrMode is returned by New for an unknown Mode.
	ErrMode = errors.New("hd44780: unknown mode")
	// ErrNilLine is returned by New when a line is missing.
	ErrNilLine = errors.New("hd44780: nil line")
	// ErrGeometry is returned by Begin for an unsupported panel size.
	ErrGeometry = errors.New("hd44780: unsupported geometry")
	// ErrRowRange is returned when addressing a row the panel does not have.
	ErrRowRange = errors.New("hd44780: row out of range")
	// ErrColRange is returned when a column does not map to a DDRAM address.
	ErrColRange = errors.New("hd44780: column out of range")
	// ErrNotReady is returned by every operation until Begin succeeds, and
	// again after a line failure.
	ErrNotReady = errors.New("hd44780: not initialized")
)

// DDRAM address of the first column of each row.
var rowOffsets = [...]byte{0x00, 0x40, 0x14, 0x54}

const (
	maxRows = len(rowOffsets)
	maxCols = 40
)

// Dev is a handle to an HD44780 controller.
//
// Dev is not safe for concurrent use.
type Dev struct {
	rs   gpio.PinOut
	e    gpio.PinOut
	data []gpio.PinOut
	mode Mode

	timing    Timing
	clock     clockwork.Clock
	log       zerolog.Logger
	backlight display.DisplayBacklight

	cols    int
	rows    int
	ready   bool
	control byte
	entry   byte
}

// New returns a Dev driving the controller through the given lines. data[0]
// is the least significant line: D4 in FourBit mode, D0 in EightBit mode.
//
// No bus traffic happens until Begin is called.
func New(rs, e gpio.PinOut, data []gpio.PinOut, mode Mode, opts *Opts) (*Dev, error) {
	if mode != FourBit && mode != EightBit {
		return nil, ErrMode
	}
	if len(data) != int(mode) {
		return nil, fmt.Errorf("%w: %s needs %d, got %d", ErrDataLines, mode, int(mode), len(data))
	}
	if rs == nil || e == nil {
		return nil, ErrNilLine
	}
	for _, p := range data {
		if p == nil {
			return nil, ErrNilLine
		}
	}
	if opts == nil {
		opts = &DefaultOpts
	}
	d := &Dev{
		rs:        rs,
		e:         e,
		data:      append([]gpio.PinOut(nil), data...),
		mode:      mode,
		timing:    opts.Timing,
		clock:     opts.Clock,
		log:       opts.Logger,
		backlight: opts.Backlight,
	}
	if d.timing == (Timing{}) {
		d.timing = DefaultTiming
	}
	if d.clock == nil {
		d.clock = clockwork.NewRealClock()
	}
	return d, nil
}

// Begin initializes the controller for a panel of the given size and leaves it
// with the display on, the cursor hidden, the screen cleared and the entry
// mode set to increment.
//
// It can be called again at any time to start over, including after a line
// failure.
func (d *Dev) Begin(cols, rows int) error {
	if rows < 1 || rows > maxRows || cols < 1 || cols > maxCols {
		return fmt.Errorf("%w: %dx%d", ErrGeometry, cols, rows)
	}
	d.ready = false
	d.cols = cols
	d.rows = rows
	d.log.Debug().Stringer("mode", d.mode).Int("cols", cols).Int("rows", rows).Msg("hd44780: begin")

	t := &d.timing
	d.clock.Sleep(t.PowerOn)
	if err := d.out(d.rs, gpio.Low); err != nil {
		return err
	}
	if err := d.out(d.e, gpio.Low); err != nil {
		return err
	}

	fs := CmdFunctionSet
	if rows > 1 {
		fs |= Function2Line
	}
	if d.mode == FourBit {
		// The controller powers up in 8 bit mode, or may be in the middle of
		// a 4 bit transfer. Three function sets bring it to a known state
		// and the fourth switches to 4 bit.
		for _, w := range []struct {
			v     byte
			delay time.Duration
		}{{0x03, t.ResetLong}, {0x03, t.ResetLong}, {0x03, t.ResetShort}, {0x02, t.ResetShort}} {
			if err := d.writeNibble(w.v); err != nil {
				return err
			}
			d.clock.Sleep(w.delay)
		}
	} else {
		fs |= Function8Bit
		for _, delay := range []time.Duration{t.ResetLong, t.ResetShort, t.ResetShort} {
			if err := d.writeBits(CmdFunctionSet | Function8Bit); err != nil {
				return err
			}
			d.clock.Sleep(delay)
		}
	}
	if err := d.command(fs); err != nil {
		return err
	}
	d.clock.Sleep(t.FunctionSet)

	d.control = DisplayOn
	if err := d.command(CmdDisplayControl | d.control); err != nil {
		return err
	}
	d.clock.Sleep(t.Command)
	if err := d.clear(); err != nil {
		return err
	}
	d.entry = EntryIncrement
	if err := d.command(CmdEntryMode | d.entry); err != nil {
		return err
	}
	d.clock.Sleep(t.Command)
	d.clock.Sleep(t.Ready)
	d.ready = true
	return nil
}

// Clear blanks the screen and moves the cursor to the first position.
func (d *Dev) Clear() error {
	if !d.ready {
		return ErrNotReady
	}
	return d.clear()
}

// SetCursor moves the cursor to a zero based column and row.
//
// The column is not checked against the panel width. Columns past the end of
// a row address DDRAM that is either off screen or, on 4 row panels, on the
// row below.
func (d *Dev) SetCursor(col, row int) error {
	if !d.ready {
		return ErrNotReady
	}
	if row < 0 || row >= d.rows {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrRowRange, row, d.rows)
	}
	addr := col + int(rowOffsets[row])
	if col < 0 || addr > 0x7f {
		return fmt.Errorf("%w: %d", ErrColRange, col)
	}
	return d.command(CmdSetDDRAM | byte(addr))
}

// Print writes text at the cursor position. Each rune is sent as its low byte,
// so only the ASCII range maps to the expected glyphs. Bytes that are not
// valid UTF-8, like "\xdf" for the degree sign, are sent as is.
func (d *Dev) Print(text string) error {
	if !d.ready {
		return ErrNotReady
	}
	for len(text) > 0 {
		r, n := utf8.DecodeRuneInString(text)
		c := byte(r)
		if r == utf8.RuneError && n == 1 {
			c = text[0]
		}
		text = text[n:]
		if err := d.writeChar(c); err != nil {
			return err
		}
		d.clock.Sleep(d.timing.Character)
	}
	d.clock.Sleep(d.timing.Character)
	return nil
}

// Cols returns the number of columns set by Begin, or 0.
func (d *Dev) Cols() int {
	return d.cols
}

// Rows returns the number of rows set by Begin, or 0.
func (d *Dev) Rows() int {
	return d.rows
}

func (d *Dev) clear() error {
	if err := d.command(CmdClear); err != nil {
		return err
	}
	d.clock.Sleep(d.timing.Clear)
	return nil
}

// command sends an instruction.
func (d *Dev) command(v byte) error {
	d.log.Debug().Hex("cmd", []byte{v}).Msg("hd44780: send")
	return d.send(v, false)
}

// writeChar sends a data byte.
func (d *Dev) writeChar(v byte) error {
	d.log.Debug().Hex("data", []byte{v}).Msg("hd44780: send")
	return d.send(v, true)
}

func (d *Dev) send(v byte, isData bool) error {
	if err := d.out(d.rs, gpio.Level(isData)); err != nil {
		return err
	}
	d.clock.Sleep(d.timing.RegisterSelect)
	if d.mode == FourBit {
		if err := d.writeNibble(v >> 4); err != nil {
			return err
		}
		return d.writeNibble(v & 0x0f)
	}
	return d.writeBits(v)
}

// writeNibble drives the low 4 data lines from the low 4 bits of v and
// strobes enable.
func (d *Dev) writeNibble(v byte) error {
	return d.strobe(d.data[:4], v)
}

// writeBits drives every data line and strobes enable.
func (d *Dev) writeBits(v byte) error {
	return d.strobe(d.data, v)
}

func (d *Dev) strobe(lines []gpio.PinOut, v byte) error {
	for i, p := range lines {
		if err := d.out(p, gpio.Level(v&(1<<i) != 0)); err != nil {
			return err
		}
	}
	return d.pulseEnable()
}

// pulseEnable latches the data lines on the falling edge of enable.
func (d *Dev) pulseEnable() error {
	if err := d.out(d.e, gpio.Low); err != nil {
		return err
	}
	d.clock.Sleep(d.timing.EnableSetup)
	if err := d.out(d.e, gpio.High); err != nil {
		return err
	}
	d.clock.Sleep(d.timing.EnableHigh)
	if err := d.out(d.e, gpio.Low); err != nil {
		return err
	}
	d.clock.Sleep(d.timing.EnableSettle)
	return nil
}

// out drives one line. On failure the controller state is unknown, so the Dev
// needs Begin again.
func (d *Dev) out(p gpio.PinOut, l gpio.Level) error {
	if err := p.Out(l); err != nil {
		d.ready = false
		d.log.Debug().Err(err).Stringer("line", p).Msg("hd44780: line failure")
		return fmt.Errorf("hd44780: drive %s %s: %w", p, l, err)
	}
	return nil
}

var _ conn.Resource = &Dev{}
