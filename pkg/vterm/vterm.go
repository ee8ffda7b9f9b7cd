// Benchterm
// Copyright (c) 2026 The Benchterm Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Benchterm.
//
// Benchterm is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Benchterm is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Benchterm.  If not, see <http://www.gnu.org/licenses/>.

// Package vterm wraps the vt10x terminal emulator behind the small surface
// the rest of the pipeline needs: feed raw ANSI text, read back the plain
// screen, and query per-cell foreground colors. The grid size is fixed at
// creation and never changes.
package vterm

import (
	"strings"

	"github.com/hinshun/vt10x"
	"github.com/rs/zerolog/log"
)

// Screen is the emulated fixed-size character grid.
type Screen struct {
	vt   vt10x.Terminal
	cols int
	rows int
}

// New creates a blank cols x rows screen.
func New(cols, rows int) *Screen {
	return &Screen{
		vt:   vt10x.New(vt10x.WithSize(cols, rows)),
		cols: cols,
		rows: rows,
	}
}

func (s *Screen) Cols() int { return s.cols }
func (s *Screen) Rows() int { return s.rows }

// Feed interprets a chunk of raw device output, control sequences included.
// Must only run on the reader worker; readers of the grid run after Feed has
// returned (the render handoff guarantees the ordering).
func (s *Screen) Feed(text string) {
	if _, err := s.vt.Write([]byte(text)); err != nil {
		// The emulator is in-memory; a parse hiccup is not fatal.
		log.Warn().Err(err).Msg("terminal emulator rejected input")
	}
}

// Cell returns the character and foreground color at (row, col).
func (s *Screen) Cell(row, col int) (rune, vt10x.Color) {
	s.vt.Lock()
	defer s.vt.Unlock()
	g := s.vt.Cell(col, row)
	ch := g.Char
	if ch == 0 {
		ch = ' '
	}
	return ch, g.FG
}

// PlainLines returns the grid rows as attribute-free text, right-trimmed.
func (s *Screen) PlainLines() []string {
	s.vt.Lock()
	defer s.vt.Unlock()

	lines := make([]string, s.rows)
	var b strings.Builder
	for row := 0; row < s.rows; row++ {
		b.Reset()
		for col := 0; col < s.cols; col++ {
			ch := s.vt.Cell(col, row).Char
			if ch == 0 {
				ch = ' '
			}
			b.WriteRune(ch)
		}
		lines[row] = strings.TrimRight(b.String(), " ")
	}
	return lines
}

// LineColor returns the foreground color of the first cell on the row that
// carries an explicit (non-default) color, or the default color if the whole
// row is unstyled.
func (s *Screen) LineColor(row int) vt10x.Color {
	s.vt.Lock()
	defer s.vt.Unlock()

	for col := 0; col < s.cols; col++ {
		g := s.vt.Cell(col, row)
		if g.FG != vt10x.DefaultFG {
			return g.FG
		}
	}
	return vt10x.DefaultFG
}

// Tone is the coarse three-way color class carried into the spreadsheet:
// pass markers render green, failures red, everything else default/black.
type Tone int

const (
	ToneDefault Tone = iota
	ToneGreen
	ToneRed
)

// ToneOf buckets a terminal foreground color into a Tone.
func ToneOf(c vt10x.Color) Tone {
	switch c {
	case vt10x.Green, vt10x.LightGreen:
		return ToneGreen
	case vt10x.Red, vt10x.LightRed:
		return ToneRed
	default:
		return ToneDefault
	}
}
