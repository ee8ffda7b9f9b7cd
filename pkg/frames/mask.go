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
	"fmt"
	"hash/crc32"
	"regexp"
	"strings"
)

// uidPattern matches the device unique ID the fixture prints: four non-empty
// dash-separated groups. Groups exclude whitespace, the dash and ESC so a
// trailing escape sequence is never absorbed into the match.
var uidPattern = regexp.MustCompile(`[^\s\x1b-]+-[^\s\x1b-]+-[^\s\x1b-]+-[^\s\x1b-]+`)

// csiPattern matches an ANSI CSI sequence. The UID group class admits `[`,
// digits and letters, so a candidate starting inside a CSI span (an SGR reset
// printed right before the UID) is escape-sequence text, not a device ID.
var csiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[A-Za-z]`)

// Fingerprint derives the short device fingerprint from a UID string: the
// low 16 bits of its CRC-32, as four uppercase hex digits.
func Fingerprint(uid string) string {
	return fmt.Sprintf("%04X", crc32.ChecksumIEEE([]byte(uid))&0xFFFF)
}

// MaskUID rewrites the first UID occurrence in frame text as ID:XXXX and
// returns the masked text plus the fingerprint. The replacement occupies
// exactly the matched span's width (left-padded, or truncated if the span is
// narrower) so column alignment on the fixed terminal grid is preserved.
//
// When the frame contains no UID the returned fingerprint is empty: a stale
// fingerprint from an earlier frame must never be attached to an unrelated
// one.
func MaskUID(text string) (masked, fingerprint string) {
	csiSpans := csiPattern.FindAllStringIndex(text, -1)

	start := 0
	for {
		loc := uidPattern.FindStringIndex(text[start:])
		if loc == nil {
			return text, ""
		}
		begin, end := start+loc[0], start+loc[1]

		if span := csiSpanAt(csiSpans, begin); span != nil {
			// Candidate begins inside an escape sequence; resume the
			// search right after it.
			start = span[1]
			continue
		}

		uid := text[begin:end]
		fingerprint = Fingerprint(uid)

		repl := "ID:" + fingerprint
		width := end - begin
		if len(repl) > width {
			repl = repl[:width]
		} else if len(repl) < width {
			repl = strings.Repeat(" ", width-len(repl)) + repl
		}

		return text[:begin] + repl + text[end:], fingerprint
	}
}

// csiSpanAt returns the CSI span containing pos, or nil.
func csiSpanAt(spans [][]int, pos int) []int {
	for _, s := range spans {
		if pos >= s[0] && pos < s[1] {
			return s
		}
	}
	return nil
}
