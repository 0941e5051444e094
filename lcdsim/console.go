// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package lcdsim

import (
	"bytes"
	"image/color"
	"io"
	"strconv"

	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
)

// ConsoleOpts represents the options available for a Console.
type ConsoleOpts struct {
	// W defaults to stdout, with ANSI support on Windows.
	W       io.Writer
	Palette *ansi256.Palette

	_ struct{}
}

// Console draws the panel of a Sim in a terminal using ANSI color codes.
//
// Useful while the real display is still in the mail.
type Console struct {
	sim     *Sim
	w       io.Writer
	palette ansi256.Palette
	buf     bytes.Buffer
	drawn   int
}

var bezelColor = color.NRGBA{R: 0x10, G: 0x30, B: 0x10, A: 255}

// NewConsole returns a Console showing s.
func NewConsole(s *Sim, opts *ConsoleOpts) *Console {
	o := ConsoleOpts{}
	if opts != nil {
		o = *opts
	}
	p := o.Palette
	if p == nil {
		p = ansi256.Default
	}
	w := o.W
	if w == nil {
		w = colorable.NewColorableStdout()
	}
	return &Console{sim: s, w: w, palette: *p}
}

func (c *Console) String() string {
	return "lcdsim.Console"
}

// Halt implements conn.Resource.
//
// It resets the terminal attributes so the shell is not left colored.
func (c *Console) Halt() error {
	_, err := io.WriteString(c.w, "\033[0m\n")
	return err
}

// Refresh redraws the panel in place.
func (c *Console) Refresh() error {
	lines := c.sim.Lines()
	c.buf.Reset()
	if c.drawn > 0 {
		// Move back up over the previous frame.
		c.buf.WriteString("\033[" + strconv.Itoa(c.drawn) + "A")
	}
	c.border()
	on, _, _ := c.sim.DisplayState()
	for _, l := range lines {
		c.buf.WriteString("\r\033[0m")
		c.buf.WriteString(c.palette.Block(bezelColor))
		if on {
			// Dark glyphs on a yellow-green panel.
			c.buf.WriteString("\033[30;102m")
		} else {
			c.buf.WriteString("\033[30;42m")
		}
		c.buf.WriteString(l)
		c.buf.WriteString("\033[0m")
		c.buf.WriteString(c.palette.Block(bezelColor))
		c.buf.WriteString("\033[0m\n")
	}
	c.border()
	c.drawn = len(lines) + 2
	_, err := c.buf.WriteTo(c.w)
	return err
}

func (c *Console) border() {
	c.buf.WriteString("\r\033[0m")
	cols := c.sim.opts.Cols + 2
	for range cols {
		c.buf.WriteString(c.palette.Block(bezelColor))
	}
	c.buf.WriteString("\033[0m\n")
}
