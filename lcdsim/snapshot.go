// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package lcdsim

import (
	"image"
	"image/png"
	"io"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
)

// Cell geometry of a Snapshot, in pixels.
const (
	CellWidth  = 14
	CellHeight = 22
	border     = 12
)

var (
	faceOnce sync.Once
	face     font.Face
	faceErr  error
)

func glyphFace() (font.Face, error) {
	faceOnce.Do(func() {
		var f *truetype.Font
		if f, faceErr = truetype.Parse(gomono.TTF); faceErr == nil {
			face = truetype.NewFace(f, &truetype.Options{Size: 18, DPI: 72, Hinting: font.HintingFull})
		}
	})
	return face, faceErr
}

// Snapshot renders the panel as it would look, one cell per character.
func (s *Sim) Snapshot() (image.Image, error) {
	dc, err := s.draw()
	if err != nil {
		return nil, err
	}
	return dc.Image(), nil
}

// WritePNG renders the panel and encodes it as PNG.
func (s *Sim) WritePNG(w io.Writer) error {
	dc, err := s.draw()
	if err != nil {
		return err
	}
	return png.Encode(w, dc.Image())
}

func (s *Sim) draw() (*gg.Context, error) {
	f, err := glyphFace()
	if err != nil {
		return nil, err
	}
	w := s.opts.Cols*CellWidth + 2*border
	h := s.opts.Rows*CellHeight + 2*border
	dc := gg.NewContext(w, h)
	dc.SetRGB255(0x10, 0x30, 0x10)
	dc.Clear()

	on, _, _ := s.DisplayState()
	if on {
		dc.SetRGB255(0x9a, 0xc8, 0x2a)
	} else {
		dc.SetRGB255(0x5a, 0x78, 0x20)
	}
	dc.DrawRoundedRectangle(border/2, border/2, float64(w-border), float64(h-border), border/2)
	dc.Fill()

	dc.SetFontFace(f)
	for r, line := range s.Lines() {
		y := float64(border + r*CellHeight)
		c := 0
		for _, g := range line {
			x := float64(border + c*CellWidth)
			// Unlit dot matrix background.
			dc.SetRGBA255(0, 0, 0, 0x18)
			dc.DrawRectangle(x+1, y+1, CellWidth-2, CellHeight-2)
			dc.Fill()
			if g != ' ' {
				dc.SetRGB255(0x10, 0x20, 0x10)
				dc.DrawStringAnchored(string(g), x+CellWidth/2, y+CellHeight/2, 0.5, 0.35)
			}
			c++
		}
	}
	return dc, nil
}
