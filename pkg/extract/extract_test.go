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

package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/flashchine/benchterm/pkg/vterm"
)

func defaultTone(int) vterm.Tone { return vterm.ToneDefault }

var sampleLines = []string{
	"          ID:7F2A",
	"UART [++]",
	"Voltage [+]",
	" U_bat 14002 mV",
	" U_src 19504 mV",
	"Current [+]",
	" I_crg 1200 mA",
	" I_ch1 350 mA",
	" I_ch2 0 mA",
	"Charger [OK]",
	"M_sens [ok]",
	"L_sens [--]",
	"   PASSED",
}

func TestFromLinesFullScreen(t *testing.T) {
	t.Parallel()

	rec := FromLines(sampleLines, defaultTone)

	want := [FieldCount]string{
		"7F2A", "++", "+", "14002", "19504", "+",
		"1200", "350", "0", "OK", "ok", "--",
	}
	assert.Equal(t, want, rec.Values)
	assert.Equal(t, "7F2A", rec.Fingerprint())
}

func TestFromLinesMissingFieldsStayEmpty(t *testing.T) {
	t.Parallel()

	rec := FromLines([]string{"UART [++]"}, defaultTone)

	assert.Equal(t, "++", rec.Values[1])
	assert.Empty(t, rec.Values[0])
	for i := 2; i < FieldCount; i++ {
		assert.Empty(t, rec.Values[i], Fields[i])
		assert.Equal(t, vterm.ToneDefault, rec.Tones[i])
	}
}

func TestFromLinesFirstIDWins(t *testing.T) {
	t.Parallel()

	rec := FromLines([]string{"ID:AAAA", "ID:BBBB"}, defaultTone)
	assert.Equal(t, "AAAA", rec.Values[0])
}

func TestFromLinesLastLabelMatchWins(t *testing.T) {
	t.Parallel()

	rec := FromLines([]string{
		"UART [first]",
		"noise",
		"UART [second]",
	}, defaultTone)
	assert.Equal(t, "second", rec.Values[1])
}

func TestFromLinesNumberMode(t *testing.T) {
	t.Parallel()

	rec := FromLines([]string{" U_bat -120 mV"}, defaultTone)
	assert.Equal(t, "-120", rec.Values[3])

	// A label with no trailing integer is not a match.
	rec = FromLines([]string{" U_bat pending"}, defaultTone)
	assert.Empty(t, rec.Values[3])
}

func TestFromLinesBracketTrimsWhitespace(t *testing.T) {
	t.Parallel()

	rec := FromLines([]string{"Charger [ OK ]"}, defaultTone)
	assert.Equal(t, "OK", rec.Values[9])
}

func TestFromLinesTonesFollowMatchedLine(t *testing.T) {
	t.Parallel()

	tones := map[int]vterm.Tone{
		0: vterm.ToneGreen,
		1: vterm.ToneRed,
	}
	rec := FromLines([]string{"ID:1234", "UART [++]"}, func(row int) vterm.Tone {
		return tones[row]
	})

	assert.Equal(t, vterm.ToneGreen, rec.Tones[0])
	assert.Equal(t, vterm.ToneRed, rec.Tones[1])
}

func TestFromScreen(t *testing.T) {
	t.Parallel()

	s := vterm.New(40, 6)
	s.Feed("\x1b[2J\x1b[1;1H   ID:0BAD\r\nUART \x1b[32m[++]\x1b[0m\r\n U_bat 14002 mV")

	rec := FromScreen(s)
	assert.Equal(t, "0BAD", rec.Values[0])
	assert.Equal(t, "++", rec.Values[1])
	assert.Equal(t, "14002", rec.Values[3])
	assert.Equal(t, vterm.ToneGreen, rec.Tones[1])
}
