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

// Package frames turns the decoded UART text stream into discrete test
// frames. A frame is everything between two clear-screen markers, with the
// leading marker included so feeding a frame to the terminal emulator starts
// from a blank screen.
package frames

import "strings"

// Marker is the clear-screen sequence the fixture prints before every test
// snapshot.
const Marker = "\x1b[2J"

// Splitter accumulates decoded text chunks and emits one frame per
// clear-screen boundary. Chunks may split the marker at any byte; the
// splitter carries a partial marker suffix across Feed calls so the emitted
// frames are identical no matter how the stream is chunked.
type Splitter struct {
	onFrame func(frame string)
	buf     strings.Builder
	carry   string
	started bool
}

// NewSplitter returns a splitter that calls onFrame for every completed,
// non-trivial frame.
func NewSplitter(onFrame func(frame string)) *Splitter {
	return &Splitter{onFrame: onFrame}
}

// Feed consumes one decoded chunk. Markers are processed in order, so a
// single chunk containing several markers emits that many frames.
func (s *Splitter) Feed(chunk string) {
	data := s.carry + chunk
	s.carry = ""

	for {
		i := strings.Index(data, Marker)
		if i < 0 {
			break
		}
		if s.started {
			s.buf.WriteString(data[:i])
			s.emit()
		}
		s.buf.Reset()
		s.buf.WriteString(Marker)
		s.started = true
		data = data[i+len(Marker):]
	}

	// Hold back a tail that could be the start of a marker split across
	// chunks. Everything before it is ordinary frame text.
	keep := partialMarkerLen(data)
	text := data[:len(data)-keep]
	s.carry = data[len(data)-keep:]

	if s.started {
		s.buf.WriteString(text)
	}
	// Text before the very first marker is discarded.
}

// Reset discards any partially received frame. Called on connection loss so
// a truncated snapshot is never flushed downstream.
func (s *Splitter) Reset() {
	s.buf.Reset()
	s.carry = ""
	s.started = false
}

func (s *Splitter) emit() {
	// A marker immediately followed by another marker is not a frame.
	if s.buf.Len() <= len(Marker) {
		return
	}
	if s.onFrame != nil {
		s.onFrame(s.buf.String())
	}
}

// partialMarkerLen returns the length of the longest suffix of data that is
// a proper prefix of the marker.
func partialMarkerLen(data string) int {
	maxKeep := len(Marker) - 1
	if len(data) < maxKeep {
		maxKeep = len(data)
	}
	for n := maxKeep; n > 0; n-- {
		if strings.HasPrefix(Marker, data[len(data)-n:]) {
			return n
		}
	}
	return 0
}
