// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hd44780

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/gpio"
)

// AutoScroll makes the display shift with each character written, so the
// cursor stays in place and the text scrolls.
func (d *Dev) AutoScroll(enabled bool) error {
	if !d.ready {
		return ErrNotReady
	}
	if enabled {
		d.entry |= EntryShift
	} else {
		d.entry &^= EntryShift
	}
	return d.commandWait(CmdEntryMode | d.entry)
}

// Cursor sets the cursor mode. Modes accumulate, so
// Cursor(display.CursorUnderline, display.CursorBlink) shows both.
func (d *Dev) Cursor(modes ...display.CursorMode) error {
	if !d.ready {
		return ErrNotReady
	}
	control := d.control
	for _, mode := range modes {
		switch mode {
		case display.CursorOff:
			control &^= CursorOn | BlinkOn
		case display.CursorUnderline:
			control |= CursorOn
		case display.CursorBlock, display.CursorBlink:
			control |= BlinkOn
		default:
			return fmt.Errorf("hd44780: cursor mode %d: %w", mode, display.ErrInvalidCommand)
		}
	}
	d.control = control
	return d.commandWait(CmdDisplayControl | d.control)
}

// Display turns the display on or off. DDRAM content and the cursor mode are
// preserved.
func (d *Dev) Display(on bool) error {
	if !d.ready {
		return ErrNotReady
	}
	if on {
		d.control |= DisplayOn
	} else {
		d.control &^= DisplayOn
	}
	return d.commandWait(CmdDisplayControl | d.control)
}

// Home moves the cursor to the first position and undoes any display shift.
func (d *Dev) Home() error {
	if !d.ready {
		return ErrNotReady
	}
	if err := d.command(CmdHome); err != nil {
		return err
	}
	d.clock.Sleep(d.timing.Clear)
	return nil
}

// MinCol returns 1, MoveTo is 1 based.
func (d *Dev) MinCol() int {
	return 1
}

// MinRow returns 1, MoveTo is 1 based.
func (d *Dev) MinRow() int {
	return 1
}

// Move shifts the cursor one position forward or backward. The controller
// cannot move between rows.
func (d *Dev) Move(dir display.CursorDirection) error {
	if !d.ready {
		return ErrNotReady
	}
	switch dir {
	case display.Backward:
		return d.commandWait(CmdShift)
	case display.Forward:
		return d.commandWait(CmdShift | ShiftRight)
	case display.Up, display.Down:
		return fmt.Errorf("hd44780: move %d: %w", dir, display.ErrNotImplemented)
	default:
		return fmt.Errorf("hd44780: move %d: %w", dir, display.ErrInvalidCommand)
	}
}

// MoveTo moves the cursor to a 1 based row and column within the panel.
func (d *Dev) MoveTo(row, col int) error {
	if !d.ready {
		return ErrNotReady
	}
	if row < d.MinRow() || row > d.rows {
		return fmt.Errorf("%w: MoveTo(%d, %d)", ErrRowRange, row, col)
	}
	if col < d.MinCol() || col > d.cols {
		return fmt.Errorf("%w: MoveTo(%d, %d)", ErrColRange, row, col)
	}
	return d.SetCursor(col-1, row-1)
}

// Write sends p as character codes at the cursor position.
func (d *Dev) Write(p []byte) (int, error) {
	if !d.ready {
		return 0, ErrNotReady
	}
	for i, c := range p {
		if err := d.writeChar(c); err != nil {
			return i, err
		}
		d.clock.Sleep(d.timing.Character)
	}
	if len(p) != 0 {
		d.clock.Sleep(d.timing.Character)
	}
	return len(p), nil
}

// WriteString sends the bytes of text at the cursor position.
func (d *Dev) WriteString(text string) (int, error) {
	return d.Write([]byte(text))
}

// Backlight turns the backlight on for any non zero intensity. It needs
// Opts.Backlight.
func (d *Dev) Backlight(intensity display.Intensity) error {
	if d.backlight == nil {
		return fmt.Errorf("hd44780: backlight: %w", display.ErrNotImplemented)
	}
	return d.backlight.Backlight(intensity)
}

// Halt clears the screen, turns the display and the backlight off and halts
// every line. The display commands are skipped when the controller is not
// initialized.
func (d *Dev) Halt() error {
	var errs []error
	if d.ready {
		if err := d.clear(); err != nil {
			errs = append(errs, err)
		} else {
			errs = append(errs, d.Display(false))
		}
	}
	if d.backlight != nil {
		errs = append(errs, d.backlight.Backlight(0))
	}
	d.ready = false
	for _, p := range d.lines() {
		errs = append(errs, p.Halt())
	}
	return errors.Join(errs...)
}

func (d *Dev) String() string {
	return fmt.Sprintf("HD44780{%s, %dx%d}", d.mode, d.cols, d.rows)
}

func (d *Dev) lines() []gpio.PinOut {
	return append([]gpio.PinOut{d.rs, d.e}, d.data...)
}

// commandWait sends an instruction and waits for it to execute.
func (d *Dev) commandWait(v byte) error {
	if err := d.command(v); err != nil {
		return err
	}
	d.clock.Sleep(d.timing.Command)
	return nil
}

var _ display.TextDisplay = &Dev{}
var _ display.DisplayBacklight = &Dev{}
