// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hd44780

import (
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"periph.io/x/conn/v3/display"
)

// Timing is the set of fixed delays used on the bus. The controller busy flag
// is never read, so every instruction is followed by a wait long enough for
// the slowest compatible controller.
type Timing struct {
	// PowerOn is waited at the start of Begin, for Vcc to settle.
	PowerOn time.Duration
	// ResetLong and ResetShort follow the function set writes of the
	// initialization by instruction flow.
	ResetLong  time.Duration
	ResetShort time.Duration
	// FunctionSet is waited after the final function set.
	FunctionSet time.Duration
	// Command is waited after display control, entry mode and shift
	// instructions.
	Command time.Duration
	// Clear is waited after clear display and return home.
	Clear time.Duration
	// Ready is waited at the end of Begin.
	Ready time.Duration

	// EnableSetup, EnableHigh and EnableSettle shape the enable strobe:
	// low, high, then low again.
	EnableSetup  time.Duration
	EnableHigh   time.Duration
	EnableSettle time.Duration
	// RegisterSelect is waited after driving RS.
	RegisterSelect time.Duration
	// Character is waited after each data byte, and once more at the end of
	// each Print or Write.
	Character time.Duration
}

// DefaultTiming works with every HD44780 compatible controller seen so far,
// including the slow ones on 3.3V.
var DefaultTiming = Timing{
	PowerOn:        50 * time.Millisecond,
	ResetLong:      5 * time.Millisecond,
	ResetShort:     150 * time.Microsecond,
	FunctionSet:    time.Millisecond,
	Command:        50 * time.Microsecond,
	Clear:          2 * time.Millisecond,
	Ready:          100 * time.Millisecond,
	EnableSetup:    2 * time.Microsecond,
	EnableHigh:     2 * time.Microsecond,
	EnableSettle:   time.Millisecond,
	RegisterSelect: 100 * time.Microsecond,
	Character:      150 * time.Microsecond,
}

// Opts holds the configuration options.
type Opts struct {
	Timing Timing
	// Clock is used for every delay. It defaults to the real clock. Tests
	// inject a fake one.
	Clock clockwork.Clock
	// Logger traces instructions and line failures at debug level. The zero
	// value discards everything.
	Logger zerolog.Logger
	// Backlight, when set, is driven by Dev.Backlight.
	Backlight display.DisplayBacklight
}

// DefaultOpts is the recommended default options.
var DefaultOpts = Opts{
	Timing: DefaultTiming,
	Logger: zerolog.Nop(),
}
