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

// Package render diffs the emulated screen against the last drawn state and
// pushes only changed cells to the UI, so an unchanged screen repaints
// nothing and the terminal view never flickers.
package render

import (
	"github.com/gdamore/tcell/v2"
	"github.com/hinshun/vt10x"

	"github.com/flashchine/benchterm/pkg/vterm"
)

// CellSink receives cell updates. The TUI's terminal view implements it.
type CellSink interface {
	SetCell(row, col int, ch rune, fg tcell.Color)
}

// Renderer tracks the last rendered character and color per cell.
//
// Render must only be called from the UI goroutine, and only after the
// Feed call that produced the screen contents has returned; the session's
// render handoff enforces both.
type Renderer struct {
	sink   CellSink
	cols   int
	rows   int
	chars  [][]rune
	colors [][]vt10x.Color
}

// New returns a renderer for a cols x rows grid, primed as blank so the
// first Render paints every non-blank cell.
func New(sink CellSink, cols, rows int) *Renderer {
	r := &Renderer{sink: sink, cols: cols, rows: rows}
	r.Invalidate()
	return r
}

// Invalidate resets the cache to a blank screen, forcing the next Render to
// repaint all differing cells.
func (r *Renderer) Invalidate() {
	r.chars = make([][]rune, r.rows)
	r.colors = make([][]vt10x.Color, r.rows)
	for row := 0; row < r.rows; row++ {
		r.chars[row] = make([]rune, r.cols)
		r.colors[row] = make([]vt10x.Color, r.cols)
		for col := 0; col < r.cols; col++ {
			r.chars[row][col] = ' '
			r.colors[row][col] = vt10x.DefaultFG
		}
	}
}

// Render pushes every cell that differs from the cached state to the sink
// and updates the cache. Returns the number of cells touched.
func (r *Renderer) Render(s *vterm.Screen) int {
	updated := 0
	for row := 0; row < r.rows; row++ {
		for col := 0; col < r.cols; col++ {
			ch, fg := s.Cell(row, col)
			if ch == r.chars[row][col] && fg == r.colors[row][col] {
				continue
			}
			r.sink.SetCell(row, col, ch, ToTcell(fg))
			r.chars[row][col] = ch
			r.colors[row][col] = fg
			updated++
		}
	}
	return updated
}

var ansiToTcell = map[vt10x.Color]tcell.Color{
	vt10x.Black:        tcell.ColorBlack,
	vt10x.Red:          tcell.ColorMaroon,
	vt10x.Green:        tcell.ColorGreen,
	vt10x.Yellow:       tcell.ColorOlive,
	vt10x.Blue:         tcell.ColorNavy,
	vt10x.Magenta:      tcell.ColorPurple,
	vt10x.Cyan:         tcell.ColorTeal,
	vt10x.LightGrey:    tcell.ColorSilver,
	vt10x.DarkGrey:     tcell.ColorGray,
	vt10x.LightRed:     tcell.ColorRed,
	vt10x.LightGreen:   tcell.ColorLime,
	vt10x.LightYellow:  tcell.ColorYellow,
	vt10x.LightBlue:    tcell.ColorBlue,
	vt10x.LightMagenta: tcell.ColorFuchsia,
	vt10x.LightCyan:    tcell.ColorAqua,
	vt10x.White:        tcell.ColorWhite,
}

// ToTcell maps an emulator foreground color to the tcell palette. Colors
// outside the basic 16 fall back to the terminal default.
func ToTcell(c vt10x.Color) tcell.Color {
	if tc, ok := ansiToTcell[c]; ok {
		return tc
	}
	return tcell.ColorDefault
}
