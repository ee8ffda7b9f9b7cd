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

package frames

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprintDeterministic(t *testing.T) {
	t.Parallel()

	a := Fingerprint("7-c-32305311-20383346")
	b := Fingerprint("7-c-32305311-20383346")
	other := Fingerprint("1-a-11111111-11111111")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, other)
	assert.Regexp(t, regexp.MustCompile(`^[0-9A-F]{4}$`), a)
}

func TestMaskUIDReplacesMatchInPlace(t *testing.T) {
	t.Parallel()

	in := "\x1b[0m7-c-32305311-20383346\nUART [++]\n"
	out, fp := MaskUID(in)

	require.NotEmpty(t, fp)
	assert.NotContains(t, out, "32305311")
	assert.Contains(t, out, "ID:"+fp)
	assert.True(t, strings.HasSuffix(out, "\nUART [++]\n"))
	// Escape codes around the UID survive untouched.
	assert.True(t, strings.HasPrefix(out, "\x1b[0m"))
}

func TestMaskUIDPreservesSpanWidth(t *testing.T) {
	t.Parallel()

	uids := []string{
		"7-c-32305311-20383346", // wider than ID:XXXX, padded
		"abc-def-1234-z",        // padded
		"1-2-3-4",               // exactly ID:XXXX width
		"a-b-c",                 // no match, three groups only
	}
	for _, uid := range uids {
		in := "| " + uid + " |"
		out, _ := MaskUID(in)
		assert.Len(t, out, len(in), "uid %q", uid)
	}
}

func TestMaskUIDExactWidthSpan(t *testing.T) {
	t.Parallel()

	in := "x 1-2-3-4 y" // span of 7, ID:XXXX needs 7 -- exact fit
	out, fp := MaskUID(in)
	assert.Equal(t, "x ID:"+fp+" y", out)

	in = "x 1-2-3 y" // three groups: not a UID
	out, fp = MaskUID(in)
	assert.Equal(t, in, out)
	assert.Empty(t, fp)
}

func TestMaskUIDAbsentClearsFingerprint(t *testing.T) {
	t.Parallel()

	out, fp := MaskUID("UART [++]\nVoltage [+]\n")
	assert.Equal(t, "UART [++]\nVoltage [+]\n", out)
	assert.Empty(t, fp)
}

func TestMaskUIDDoesNotAbsorbEscapeSequences(t *testing.T) {
	t.Parallel()

	plain := "7-c-32305311-20383346"
	_, fpPlain := MaskUID(plain)
	_, fpWrapped := MaskUID("\x1b[0m" + plain + "\x1b[32m")

	assert.Equal(t, fpPlain, fpWrapped)
}

func TestMaskUIDSkipsCandidatesStartingInsideCSI(t *testing.T) {
	t.Parallel()

	uid := "7-c-32305311-20383346"
	want := Fingerprint(uid)
	// The UID is 21 chars, the replacement 7, so 14 pad spaces keep the span.
	maskedSpan := strings.Repeat(" ", 14) + "ID:" + want

	// SGR reset directly before the UID: the leftmost regex match starts at
	// the reset's `[`, which must be rejected in favor of the real UID.
	out, fp := MaskUID("\x1b[0m" + uid + "\nUART [++]\n")
	assert.Equal(t, want, fp)
	assert.Equal(t, "\x1b[0m"+maskedSpan+"\nUART [++]\n", out)

	// Multi-parameter SGR before the UID.
	out, fp = MaskUID("\x1b[1;32m" + uid + "\x1b[0m")
	assert.Equal(t, want, fp)
	assert.Equal(t, "\x1b[1;32m"+maskedSpan+"\x1b[0m", out)
}
