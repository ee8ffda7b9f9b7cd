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

// Package results persists completed test frames: an unconditional
// plain-text append log plus one spreadsheet row per record, with
// at-most-once automatic recording per device fingerprint.
package results

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/flashchine/benchterm/pkg/extract"
	"github.com/flashchine/benchterm/pkg/helpers/syncutil"
	"github.com/flashchine/benchterm/pkg/status"
)

const (
	TxtName  = "mppt_log.txt"
	XlsxName = "mppt_log.xlsx"

	separator = "--------------------------------------------------" // 50 dashes
)

// Gate decides per completed frame whether and where to log.
type Gate struct {
	fs       afero.Fs
	onStatus status.Func
	now      func() time.Time
	txtPath  string
	xlsxPath string

	// lastRecorded is the fingerprint of the last auto-recorded unit. It
	// lives for the whole process: reconnecting the serial link does NOT
	// clear it, so a unit is never auto-recorded twice in one run.
	lastRecorded string
	mu           syncutil.Mutex
}

// NewGate creates the gate writing into dir on fs. The directory is created
// if missing.
func NewGate(fs afero.Fs, dir string, onStatus status.Func) (*Gate, error) {
	if err := fs.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create log dir %s: %w", dir, err)
	}
	return &Gate{
		fs:       fs,
		onStatus: onStatus,
		now:      time.Now,
		txtPath:  filepath.Join(dir, TxtName),
		xlsxPath: filepath.Join(dir, XlsxName),
	}, nil
}

// TxtPath returns the plain-text log location.
func (g *Gate) TxtPath() string { return g.txtPath }

// XlsxPath returns the workbook location.
func (g *Gate) XlsxPath() string { return g.xlsxPath }

// LastRecorded returns the fingerprint of the last auto-recorded unit.
func (g *Gate) LastRecorded() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastRecorded
}

// HasPassed reports whether any line carries the pass marker.
func HasPassed(lines []string) bool {
	for _, l := range lines {
		if strings.Contains(strings.ToUpper(l), "PASSED") {
			return true
		}
	}
	return false
}

// Save applies the persistence decision table to one completed frame.
//
// fingerprint, when non-empty, overrides the fingerprint embedded in the
// record. With auto set, only frames carrying the pass marker are recorded,
// each fingerprint at most once per process. Manual saves always persist:
// to the PASSED sheet when the marker is present, to the main sheet
// otherwise, with no dedupe.
//
// The text log is written first and independently; a spreadsheet failure
// (file locked, disk trouble) is recoverable and does not roll it back.
func (g *Gate) Save(lines []string, rec extract.Record, fingerprint string, auto bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	fp := fingerprint
	if fp == "" {
		fp = rec.Fingerprint()
	}
	passed := HasPassed(lines)

	if auto {
		switch {
		case !passed:
			return nil
		case fp == "":
			g.onStatus.Notify("PASSED without ID, skipped", status.Warn)
			return nil
		case fp == g.lastRecorded:
			g.onStatus.Notify(fmt.Sprintf("unit %s already recorded", fp), status.Info)
			return nil
		}
	}

	if err := g.appendText(lines); err != nil {
		g.onStatus.Notify(fmt.Sprintf("text log write failed: %v", err), status.Error)
		return err
	}

	sheet := SheetMain
	if passed {
		sheet = SheetPassed
	}
	if err := g.appendRow(sheet, rec); err != nil {
		// Typically the workbook is open in another program. The text log
		// already landed; the next frame or a manual save can retry.
		g.onStatus.Notify(fmt.Sprintf("workbook write failed: %v (text log saved)", err), status.Warn)
		return err
	}

	if auto {
		g.lastRecorded = fp
	}
	g.onStatus.Notify(fmt.Sprintf("recorded result on sheet %s", sheet), status.Success)
	return nil
}

func (g *Gate) appendText(lines []string) error {
	f, err := g.fs.OpenFile(g.txtPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", g.txtPath, err)
	}
	defer func() { _ = f.Close() }()

	ts := g.now().Format("2006-01-02 15:04:05")
	block := trimTrailingEmpty(lines)
	_, err = fmt.Fprintf(f, "\n%s\n[%s]\n%s\n%s\n",
		separator, ts, strings.Join(block, "\n"), separator)
	if err != nil {
		return fmt.Errorf("failed to append to %s: %w", g.txtPath, err)
	}
	return nil
}

func trimTrailingEmpty(lines []string) []string {
	end := len(lines)
	for end > 0 && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	return lines[:end]
}
