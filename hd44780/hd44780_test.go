// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hd44780

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/GermanBionicSystems/charlcd/lcdsim"
	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"pgregory.net/rapid"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fixture is a Dev wired to an emulated controller, sharing a fake clock.
type fixture struct {
	dev        *Dev
	sim        *lcdsim.Sim
	clk        *lcdsim.Clock
	cols, rows int
}

func newFixture(t rapid.TB, mode Mode, cols, rows int) *fixture {
	t.Helper()
	clk := lcdsim.NewClock()
	sim := lcdsim.New(&lcdsim.Opts{Rows: rows, Cols: cols, DataLines: int(mode), Clock: clk})
	opts := DefaultOpts
	opts.Clock = clk
	dev, err := New(sim.RS, sim.E, sim.Data(), mode, &opts)
	if err != nil {
		t.Fatal(err)
	}
	return &fixture{dev: dev, sim: sim, clk: clk, cols: cols, rows: rows}
}

// begin initializes the controller and drops what was recorded so far.
func (f *fixture) begin(t rapid.TB) *fixture {
	t.Helper()
	if err := f.dev.Begin(f.cols, f.rows); err != nil {
		t.Fatal(err)
	}
	if err := f.sim.Err(); err != nil {
		t.Fatal(err)
	}
	f.sim.Forget()
	f.clk.Forget()
	return f
}

func latches(events []lcdsim.Event) []lcdsim.Event {
	var out []lcdsim.Event
	for _, e := range events {
		if e.Kind == lcdsim.Latch {
			out = append(out, e)
		}
	}
	return out
}

func cmds(values ...byte) []lcdsim.Transfer {
	out := make([]lcdsim.Transfer, len(values))
	for i, v := range values {
		out[i] = lcdsim.Transfer{Value: v}
	}
	return out
}

var (
	pulse = []time.Duration{2 * time.Microsecond, 2 * time.Microsecond, time.Millisecond}
	// A FourBit send: RS setup, then two strobes.
	send4 = append(append([]time.Duration{100 * time.Microsecond}, pulse...), pulse...)
)

func join(parts ...[]time.Duration) []time.Duration {
	var out []time.Duration
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func d(v time.Duration) []time.Duration {
	return []time.Duration{v}
}

func TestNew(t *testing.T) {
	sim4 := lcdsim.New(nil)
	sim8 := lcdsim.New(&lcdsim.Opts{Rows: 2, Cols: 16, DataLines: 8})
	tests := []struct {
		name string
		data []gpio.PinOut
		mode Mode
		want error
	}{
		{"four", sim4.Data(), FourBit, nil},
		{"eight", sim8.Data(), EightBit, nil},
		{"four with eight", sim8.Data(), FourBit, ErrDataLines},
		{"eight with four", sim4.Data(), EightBit, ErrDataLines},
		{"three", sim4.Data()[:3], FourBit, ErrDataLines},
		{"none", nil, FourBit, ErrDataLines},
		{"unknown mode", sim4.Data(), Mode(5), ErrMode},
		{"nil data line", []gpio.PinOut{sim4.D[0], nil, sim4.D[2], sim4.D[3]}, FourBit, ErrNilLine},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dev, err := New(sim4.RS, sim4.E, tc.data, tc.mode, nil)
			if !errors.Is(err, tc.want) {
				t.Fatalf("New() = %v, want %v", err, tc.want)
			}
			if tc.want != nil {
				if dev != nil {
					t.Error("New() returned a Dev with an error")
				}
				return
			}
			if dev.Cols() != 0 || dev.Rows() != 0 {
				t.Errorf("geometry %dx%d before Begin", dev.Cols(), dev.Rows())
			}
		})
	}
	if _, err := New(nil, sim4.E, sim4.Data(), FourBit, nil); !errors.Is(err, ErrNilLine) {
		t.Errorf("New(nil rs) = %v, want ErrNilLine", err)
	}
	if n := len(sim4.Events()) + len(sim8.Events()); n != 0 {
		t.Errorf("New() caused %d bus events", n)
	}
}

func TestNotReady(t *testing.T) {
	f := newFixture(t, FourBit, 16, 2)
	ops := map[string]func() error{
		"Clear":      f.dev.Clear,
		"SetCursor":  func() error { return f.dev.SetCursor(0, 0) },
		"Print":      func() error { return f.dev.Print("x") },
		"Home":       f.dev.Home,
		"MoveTo":     func() error { return f.dev.MoveTo(1, 1) },
		"Move":       func() error { return f.dev.Move(0) },
		"Cursor":     func() error { return f.dev.Cursor() },
		"Display":    func() error { return f.dev.Display(true) },
		"AutoScroll": func() error { return f.dev.AutoScroll(true) },
		"Write": func() error {
			_, err := f.dev.WriteString("x")
			return err
		},
	}
	for name, op := range ops {
		if err := op(); !errors.Is(err, ErrNotReady) {
			t.Errorf("%s() = %v, want ErrNotReady", name, err)
		}
	}
	if len(f.sim.Events()) != 0 {
		t.Errorf("bus traffic before Begin: %v", f.sim.Events())
	}
}

func TestBeginFourBit(t *testing.T) {
	f := newFixture(t, FourBit, 16, 2)
	if err := f.dev.Begin(16, 2); err != nil {
		t.Fatal(err)
	}
	if err := f.sim.Err(); err != nil {
		t.Fatal(err)
	}
	wantNibbles := []byte{0x3, 0x3, 0x3, 0x2, 0x2, 0x8, 0x0, 0xc, 0x0, 0x1, 0x0, 0x6}
	var got []byte
	for _, e := range latches(f.sim.Events()) {
		if e.Level {
			t.Errorf("latch with RS high during Begin: %v", e)
		}
		got = append(got, e.Value)
	}
	if diff := cmp.Diff(wantNibbles, got); diff != "" {
		t.Errorf("nibbles mismatch (-want +got):\n%s", diff)
	}
	wantTransfers := cmds(0x30, 0x30, 0x30, 0x20, 0x28, 0x0c, 0x01, 0x06)
	if diff := cmp.Diff(wantTransfers, f.sim.Transfers()); diff != "" {
		t.Errorf("transfers mismatch (-want +got):\n%s", diff)
	}
	wantSleeps := join(
		d(50*time.Millisecond),
		pulse, d(5*time.Millisecond),
		pulse, d(5*time.Millisecond),
		pulse, d(150*time.Microsecond),
		pulse, d(150*time.Microsecond),
		send4, d(time.Millisecond),
		send4, d(50*time.Microsecond),
		send4, d(2*time.Millisecond),
		send4, d(50*time.Microsecond),
		d(100*time.Millisecond),
	)
	if diff := cmp.Diff(wantSleeps, f.clk.Slept()); diff != "" {
		t.Errorf("sleeps mismatch (-want +got):\n%s", diff)
	}
	if f.sim.InterfaceBits() != 4 || !f.sim.TwoLine() {
		t.Errorf("controller left in %d bit, two line %t", f.sim.InterfaceBits(), f.sim.TwoLine())
	}
	if on, cursor, blink := f.sim.DisplayState(); !on || cursor || blink {
		t.Errorf("DisplayState() = %t %t %t, want on without cursor", on, cursor, blink)
	}
	if f.dev.Cols() != 16 || f.dev.Rows() != 2 {
		t.Errorf("geometry %dx%d", f.dev.Cols(), f.dev.Rows())
	}
}

func TestBeginEightBit(t *testing.T) {
	f := newFixture(t, EightBit, 20, 4)
	if err := f.dev.Begin(20, 4); err != nil {
		t.Fatal(err)
	}
	if err := f.sim.Err(); err != nil {
		t.Fatal(err)
	}
	want := cmds(0x30, 0x30, 0x30, 0x38, 0x0c, 0x01, 0x06)
	if diff := cmp.Diff(want, f.sim.Transfers()); diff != "" {
		t.Errorf("transfers mismatch (-want +got):\n%s", diff)
	}
	if n := len(latches(f.sim.Events())); n != len(want) {
		t.Errorf("%d latches for %d transfers", n, len(want))
	}
	send8 := append([]time.Duration{100 * time.Microsecond}, pulse...)
	wantSleeps := join(
		d(50*time.Millisecond),
		pulse, d(5*time.Millisecond),
		pulse, d(150*time.Microsecond),
		pulse, d(150*time.Microsecond),
		send8, d(time.Millisecond),
		send8, d(50*time.Microsecond),
		send8, d(2*time.Millisecond),
		send8, d(50*time.Microsecond),
		d(100*time.Millisecond),
	)
	if diff := cmp.Diff(wantSleeps, f.clk.Slept()); diff != "" {
		t.Errorf("sleeps mismatch (-want +got):\n%s", diff)
	}
}

func TestFunctionSetLines(t *testing.T) {
	tests := []struct {
		mode Mode
		rows int
		want byte
	}{
		{FourBit, 1, 0x20},
		{FourBit, 2, 0x28},
		{FourBit, 4, 0x28},
		{EightBit, 1, 0x30},
		{EightBit, 2, 0x38},
	}
	for _, tc := range tests {
		t.Run(tc.mode.String(), func(t *testing.T) {
			f := newFixture(t, tc.mode, 16, tc.rows)
			if err := f.dev.Begin(16, tc.rows); err != nil {
				t.Fatal(err)
			}
			tr := f.sim.Transfers()
			// The function set follows the three resets, and in FourBit
			// mode the switch to 4 bit.
			i := 3
			if tc.mode == FourBit {
				i = 4
			}
			if got := tr[i].Value; got != tc.want {
				t.Errorf("rows=%d: function set %#x, want %#x", tc.rows, got, tc.want)
			}
			if f.sim.TwoLine() != (tc.rows > 1) {
				t.Errorf("rows=%d: two line mode %t", tc.rows, f.sim.TwoLine())
			}
		})
	}
}

func TestBeginGeometry(t *testing.T) {
	f := newFixture(t, FourBit, 16, 2)
	for _, g := range [][2]int{{16, 0}, {16, 5}, {0, 2}, {41, 2}, {-1, -1}} {
		if err := f.dev.Begin(g[0], g[1]); !errors.Is(err, ErrGeometry) {
			t.Errorf("Begin(%d, %d) = %v, want ErrGeometry", g[0], g[1], err)
		}
	}
	if len(f.sim.Events()) != 0 {
		t.Error("rejected Begin touched the bus")
	}
	if err := f.dev.Clear(); !errors.Is(err, ErrNotReady) {
		t.Errorf("Clear() = %v, want ErrNotReady", err)
	}
}

func TestBeginAgain(t *testing.T) {
	f := newFixture(t, FourBit, 16, 2).begin(t)
	if err := f.dev.Print("stale"); err != nil {
		t.Fatal(err)
	}
	if err := f.dev.Begin(16, 1); err != nil {
		t.Fatal(err)
	}
	if err := f.sim.Err(); err != nil {
		t.Fatal(err)
	}
	if f.sim.TwoLine() || f.dev.Rows() != 1 {
		t.Error("second Begin did not switch to one line")
	}
	if got := f.sim.Lines()[0]; strings.TrimSpace(got) != "" {
		t.Errorf("second Begin did not clear, row 0 = %q", got)
	}
}

func TestSetCursor(t *testing.T) {
	offsets := []int{0x00, 0x40, 0x14, 0x54}
	rapid.Check(t, func(t *rapid.T) {
		rows := rapid.IntRange(1, 4).Draw(t, "rows")
		f := newFixture(t, FourBit, 20, rows).begin(t)
		row := rapid.IntRange(0, rows-1).Draw(t, "row")
		col := rapid.IntRange(0, 0x7f-offsets[row]).Draw(t, "col")
		if err := f.dev.SetCursor(col, row); err != nil {
			t.Fatalf("SetCursor(%d, %d) = %v", col, row, err)
		}
		want := cmds(byte(0x80 | (col + offsets[row])))
		if diff := cmp.Diff(want, f.sim.Transfers()); diff != "" {
			t.Fatalf("SetCursor(%d, %d) mismatch (-want +got):\n%s", col, row, diff)
		}
		if got := int(f.sim.Address()); got != col+offsets[row] {
			t.Fatalf("address counter %#x, want %#x", got, col+offsets[row])
		}
	})
}

func TestSetCursorRange(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		rows := rapid.IntRange(1, 4).Draw(t, "rows")
		f := newFixture(t, FourBit, 20, rows).begin(t)
		row := rapid.OneOf(rapid.IntRange(rows, 100), rapid.IntRange(-100, -1)).Draw(t, "row")
		col := rapid.IntRange(0, 19).Draw(t, "col")
		if err := f.dev.SetCursor(col, row); !errors.Is(err, ErrRowRange) {
			t.Fatalf("SetCursor(%d, %d) = %v, want ErrRowRange", col, row, err)
		}
		if len(f.sim.Events()) != 0 {
			t.Fatalf("SetCursor(%d, %d) touched the bus", col, row)
		}
	})
	f := newFixture(t, FourBit, 16, 2).begin(t)
	for _, col := range []int{-1, 0x40} {
		if err := f.dev.SetCursor(col, 1); !errors.Is(err, ErrColRange) {
			t.Errorf("SetCursor(%d, 1) = %v, want ErrColRange", col, err)
		}
	}
	// Past the panel width, still a DDRAM address.
	if err := f.dev.SetCursor(30, 0); err != nil {
		t.Error(err)
	}
}

func TestClear(t *testing.T) {
	f := newFixture(t, FourBit, 16, 2).begin(t)
	if err := f.dev.Print("abc"); err != nil {
		t.Fatal(err)
	}
	f.sim.Forget()
	f.clk.Forget()
	if err := f.dev.Clear(); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(cmds(0x01), f.sim.Transfers()); diff != "" {
		t.Errorf("transfers mismatch (-want +got):\n%s", diff)
	}
	slept := f.clk.Slept()
	if last := slept[len(slept)-1]; last < 2*time.Millisecond {
		t.Errorf("Clear() waited %v after the command, want at least 2ms", last)
	}
	if diff := cmp.Diff([]string{strings.Repeat(" ", 16), strings.Repeat(" ", 16)}, f.sim.Lines()); diff != "" {
		t.Errorf("screen mismatch (-want +got):\n%s", diff)
	}
}

func TestPrintFourBit(t *testing.T) {
	f := newFixture(t, FourBit, 16, 2).begin(t)
	if err := f.dev.Print("AB"); err != nil {
		t.Fatal(err)
	}
	want := []lcdsim.Event{
		{Kind: lcdsim.RegisterSelect, Level: gpio.High},
		{Kind: lcdsim.Latch, Level: gpio.High, Value: 0x4},
		{Kind: lcdsim.Latch, Level: gpio.High, Value: 0x1},
		{Kind: lcdsim.RegisterSelect, Level: gpio.High},
		{Kind: lcdsim.Latch, Level: gpio.High, Value: 0x4},
		{Kind: lcdsim.Latch, Level: gpio.High, Value: 0x2},
	}
	if diff := cmp.Diff(want, f.sim.Events()); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
	char := 150 * time.Microsecond
	wantSleeps := join(send4, d(char), send4, d(char), d(char))
	if diff := cmp.Diff(wantSleeps, f.clk.Slept()); diff != "" {
		t.Errorf("sleeps mismatch (-want +got):\n%s", diff)
	}
	if got := f.sim.Lines()[0]; got != "AB              " {
		t.Errorf("row 0 = %q", got)
	}
}

func TestPrintEightBit(t *testing.T) {
	f := newFixture(t, EightBit, 16, 2).begin(t)
	if err := f.dev.Print("AB"); err != nil {
		t.Fatal(err)
	}
	want := []lcdsim.Event{
		{Kind: lcdsim.RegisterSelect, Level: gpio.High},
		{Kind: lcdsim.Latch, Level: gpio.High, Value: 'A'},
		{Kind: lcdsim.RegisterSelect, Level: gpio.High},
		{Kind: lcdsim.Latch, Level: gpio.High, Value: 'B'},
	}
	if diff := cmp.Diff(want, f.sim.Events()); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestPrintEmpty(t *testing.T) {
	f := newFixture(t, FourBit, 16, 2).begin(t)
	if err := f.dev.Print(""); err != nil {
		t.Fatal(err)
	}
	if len(f.sim.Events()) != 0 {
		t.Errorf("Print(\"\") touched the bus: %v", f.sim.Events())
	}
	if diff := cmp.Diff(d(150*time.Microsecond), f.clk.Slept()); diff != "" {
		t.Errorf("sleeps mismatch (-want +got):\n%s", diff)
	}
}

func TestPrintRawBytes(t *testing.T) {
	f := newFixture(t, FourBit, 16, 2).begin(t)
	if err := f.dev.Print("25\xdfC \u00e9"); err != nil {
		t.Fatal(err)
	}
	var want []lcdsim.Transfer
	for _, v := range []byte{'2', '5', 0xdf, 'C', ' ', 0xe9} {
		want = append(want, lcdsim.Transfer{Data: true, Value: v})
	}
	if diff := cmp.Diff(want, f.sim.Transfers()); diff != "" {
		t.Errorf("transfers mismatch (-want +got):\n%s", diff)
	}
	if got := f.sim.Lines()[0]; !strings.HasPrefix(got, "25°C") {
		t.Errorf("row 0 = %q", got)
	}
}

func TestZeroTiming(t *testing.T) {
	clk := lcdsim.NewClock()
	sim := lcdsim.New(&lcdsim.Opts{Rows: 2, Cols: 16, DataLines: 4, Clock: clk})
	dev, err := New(sim.RS, sim.E, sim.Data(), FourBit, &Opts{Clock: clk})
	if err != nil {
		t.Fatal(err)
	}
	if err := dev.Begin(16, 2); err != nil {
		t.Fatal(err)
	}
	if err := sim.Err(); err != nil {
		t.Errorf("timing violations with zero Opts.Timing: %v", err)
	}
	if slept := clk.Slept(); len(slept) == 0 || slept[0] != DefaultTiming.PowerOn {
		t.Errorf("first sleep %v, want %v", slept, DefaultTiming.PowerOn)
	}
}

func TestHi(t *testing.T) {
	f := newFixture(t, FourBit, 16, 2).begin(t)
	if err := f.dev.SetCursor(0, 1); err != nil {
		t.Fatal(err)
	}
	if err := f.dev.Print("Hi"); err != nil {
		t.Fatal(err)
	}
	want := []lcdsim.Event{
		{Kind: lcdsim.Latch, Level: gpio.Low, Value: 0xc},
		{Kind: lcdsim.Latch, Level: gpio.Low, Value: 0x0},
		{Kind: lcdsim.Latch, Level: gpio.High, Value: 0x4},
		{Kind: lcdsim.Latch, Level: gpio.High, Value: 0x8},
		{Kind: lcdsim.Latch, Level: gpio.High, Value: 0x6},
		{Kind: lcdsim.Latch, Level: gpio.High, Value: 0x9},
	}
	if diff := cmp.Diff(want, latches(f.sim.Events())); diff != "" {
		t.Errorf("latches mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{strings.Repeat(" ", 16), "Hi" + strings.Repeat(" ", 14)}, f.sim.Lines()); diff != "" {
		t.Errorf("screen mismatch (-want +got):\n%s", diff)
	}
	if err := f.sim.Err(); err != nil {
		t.Error(err)
	}
}

func TestLineFailure(t *testing.T) {
	f := newFixture(t, FourBit, 16, 2).begin(t)
	broken := errors.New("line gone")
	f.sim.D[2].Err = broken
	err := f.dev.Print("hello")
	if !errors.Is(err, broken) {
		t.Fatalf("Print() = %v, want %v", err, broken)
	}
	if !strings.HasPrefix(err.Error(), "hd44780: drive lcdsim.D6") {
		t.Errorf("error does not name the line: %v", err)
	}
	if err := f.dev.Clear(); !errors.Is(err, ErrNotReady) {
		t.Errorf("Clear() after failure = %v, want ErrNotReady", err)
	}
	f.sim.D[2].Err = nil
	if err := f.dev.Begin(16, 2); err != nil {
		t.Fatal(err)
	}
	if err := f.dev.Print("ok"); err != nil {
		t.Fatal(err)
	}
	if got := f.sim.Lines()[0]; got != "ok              " {
		t.Errorf("row 0 = %q", got)
	}
}

func TestBeginLineFailure(t *testing.T) {
	f := newFixture(t, EightBit, 16, 2)
	broken := errors.New("line gone")
	f.sim.E.Err = broken
	if err := f.dev.Begin(16, 2); !errors.Is(err, broken) {
		t.Fatalf("Begin() = %v, want %v", err, broken)
	}
	if err := f.dev.Print("x"); !errors.Is(err, ErrNotReady) {
		t.Errorf("Print() = %v, want ErrNotReady", err)
	}
}

func TestMode(t *testing.T) {
	for m, want := range map[Mode]string{FourBit: "4-bit", EightBit: "8-bit", Mode(3): "Mode(3)"} {
		if got := m.String(); got != want {
			t.Errorf("Mode(%d).String() = %q, want %q", int(m), got, want)
		}
	}
}

func TestBacklight(t *testing.T) {
	p := &gpiotest.Pin{N: "BL"}
	bl := NewBacklight(p)
	if err := bl.Backlight(0xff); err != nil {
		t.Fatal(err)
	}
	if p.Read() != gpio.High {
		t.Error("backlight not on")
	}
	if err := bl.Backlight(0); err != nil {
		t.Fatal(err)
	}
	if p.Read() != gpio.Low {
		t.Error("backlight not off")
	}
	inv := NewBacklightActiveLow(p)
	if err := inv.Backlight(1); err != nil {
		t.Fatal(err)
	}
	if p.Read() != gpio.Low {
		t.Error("active low backlight not on")
	}
	if s := inv.String(); s != "GPIOBacklight{BL(0)}" {
		t.Errorf("String() = %q", s)
	}
}
