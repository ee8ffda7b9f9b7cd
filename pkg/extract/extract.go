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

// Package extract parses the emulated screen's plain text into the fixed
// record the logger persists.
package extract

import (
	"regexp"
	"strings"

	"github.com/flashchine/benchterm/pkg/vterm"
)

// FieldCount is the number of columns in a record.
const FieldCount = 12

// Fields lists the record columns in sheet order.
var Fields = [FieldCount]string{
	"ID", "UART", "Voltage", "U_bat", "U_src", "Current",
	"I_crg", "I_ch1", "I_ch2", "Charger", "M_sens", "L_sens",
}

// Record is one extracted test result. Unmatched fields stay empty with the
// default tone. Records are created per frame and never mutated afterwards.
type Record struct {
	Values [FieldCount]string
	Tones  [FieldCount]vterm.Tone
}

// Fingerprint returns the device fingerprint embedded in the record, if the
// screen carried a masked ID.
func (r Record) Fingerprint() string {
	return r.Values[0]
}

type mode int

const (
	modeBracket mode = iota // value inside the first [...] on the line
	modeNumber              // integer token right after the label
)

type fieldSpec struct {
	numRe *regexp.Regexp
	label string
	mode  mode
}

var idRe = regexp.MustCompile(`ID:([0-9A-F]{4})`)

var bracketRe = regexp.MustCompile(`\[([^\]]*)\]`)

// The label fixture is part of the wire contract with the fixture firmware;
// extraction modes follow the line layouts it prints.
var fixture = buildFixture()

func buildFixture() [FieldCount - 1]fieldSpec {
	specs := [FieldCount - 1]fieldSpec{
		{label: "UART", mode: modeBracket},
		{label: "Voltage", mode: modeBracket},
		{label: "U_bat", mode: modeNumber},
		{label: "U_src", mode: modeNumber},
		{label: "Current", mode: modeBracket},
		{label: "I_crg", mode: modeNumber},
		{label: "I_ch1", mode: modeNumber},
		{label: "I_ch2", mode: modeNumber},
		{label: "Charger", mode: modeBracket},
		{label: "M_sens", mode: modeBracket},
		{label: "L_sens", mode: modeBracket},
	}
	for i := range specs {
		if specs[i].mode == modeNumber {
			specs[i].numRe = regexp.MustCompile(
				`\b` + regexp.QuoteMeta(specs[i].label) + `\b\s*(-?[0-9]+)`)
		}
	}
	return specs
}

// FromScreen extracts a record from the emulator's current contents.
func FromScreen(s *vterm.Screen) Record {
	lines := s.PlainLines()
	return FromLines(lines, func(row int) vterm.Tone {
		return vterm.ToneOf(s.LineColor(row))
	})
}

// FromLines extracts a record from plain lines; lineTone supplies the
// display tone of a row (the first colored cell's bucket).
//
// When a label occurs on several lines the last occurrence wins. That
// mirrors the fixture's historical behavior and is pinned by tests; see
// DESIGN.md before changing it.
func FromLines(lines []string, lineTone func(row int) vterm.Tone) Record {
	var rec Record

	for row, line := range lines {
		if m := idRe.FindStringSubmatch(line); m != nil {
			rec.Values[0] = m[1]
			rec.Tones[0] = lineTone(row)
			break // first ID match wins
		}
	}

	for i, spec := range fixture {
		for row, line := range lines {
			if !strings.Contains(line, spec.label) {
				continue
			}
			val, ok := spec.extract(line)
			if !ok {
				continue
			}
			rec.Values[i+1] = val
			rec.Tones[i+1] = lineTone(row)
		}
	}

	return rec
}

func (f fieldSpec) extract(line string) (string, bool) {
	switch f.mode {
	case modeBracket:
		if m := bracketRe.FindStringSubmatch(line); m != nil {
			return strings.TrimSpace(m[1]), true
		}
	case modeNumber:
		if m := f.numRe.FindStringSubmatch(line); m != nil {
			return m[1], true
		}
	}
	return "", false
}
