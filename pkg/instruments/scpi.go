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

package instruments

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/flashchine/benchterm/pkg/helpers/syncutil"
)

// scpiConn serializes SCPI traffic over one byte stream. It satisfies
// query.Querier so the gotmc helpers can parse responses.
type scpiConn struct {
	rw io.ReadWriter
	br *bufio.Reader
	mu syncutil.Mutex
}

func newSCPIConn(rw io.ReadWriter) *scpiConn {
	return &scpiConn{rw: rw, br: bufio.NewReader(rw)}
}

// Command sends a set command that produces no response.
func (c *scpiConn) Command(format string, a ...any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cmd := fmt.Sprintf(format, a...)
	if _, err := c.rw.Write([]byte(cmd + "\n")); err != nil {
		return fmt.Errorf("scpi write %q: %w", cmd, err)
	}
	return nil
}

// Query sends a command and reads one newline-terminated response.
func (c *scpiConn) Query(cmd string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.rw.Write([]byte(cmd + "\n")); err != nil {
		return "", fmt.Errorf("scpi write %q: %w", cmd, err)
	}
	line, err := c.br.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("scpi read for %q: %w", cmd, err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
