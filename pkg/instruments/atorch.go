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
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/flashchine/benchterm/pkg/helpers/syncutil"
)

// DefaultDL24Binary is the helper CLI that speaks the Atorch BLE/serial
// protocol. Overridable from config for machines that install it elsewhere.
const DefaultDL24Binary = "dl24"

const atorchBaud = 9600

// cliRunner executes the helper binary and returns its stdout. Swapped out
// in tests.
type cliRunner func(name string, args ...string) (string, error)

func execCLI(name string, args ...string) (string, error) {
	out, err := exec.Command(name, args...).Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok && len(exitErr.Stderr) > 0 {
			return "", fmt.Errorf("%s: %s", name, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("%s: %w", name, err)
	}
	return string(out), nil
}

// Atorch drives a DL24 load through its helper CLI. The protocol cannot
// read back the setpoint or the input state, so both are cached from the
// last command we issued.
type Atorch struct {
	run      cliRunner
	lookPath func(string) (string, error)
	bin      string
	port     string
	setpoint float64
	open     bool
	outputOn bool
	mu       syncutil.Mutex
}

// NewAtorch builds a DL24 driver on a serial port.
func NewAtorch(port string) *Atorch {
	return &Atorch{
		bin:      DefaultDL24Binary,
		port:     port,
		run:      execCLI,
		lookPath: exec.LookPath,
	}
}

// SetBinary overrides the helper CLI path before Open.
func (a *Atorch) SetBinary(bin string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if bin != "" {
		a.bin = bin
	}
}

func (a *Atorch) cli(args ...string) (string, error) {
	full := append([]string{fmt.Sprintf("PORT=%s@%d", a.port, atorchBaud)}, args...)
	out, err := a.run(a.bin, full...)
	if err != nil {
		return "", fmt.Errorf("atorch command failed: %w", err)
	}
	return out, nil
}

// Open verifies the helper binary is installed and the device answers a
// measurement query.
func (a *Atorch) Open() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.open {
		return nil
	}
	if _, err := a.lookPath(a.bin); err != nil {
		return fmt.Errorf("dl24 helper not found: %w", err)
	}
	if _, _, err := a.readMilli(); err != nil {
		return err
	}
	a.open = true
	log.Info().Str("port", a.port).Msg("atorch load connected")
	return nil
}

// Close drops the logical connection. There is no persistent link to tear
// down, but we switch the input off first.
func (a *Atorch) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.open {
		return nil
	}
	_, err := a.cli("OFF")
	a.open = false
	a.outputOn = false
	return err
}

func (a *Atorch) ReadIdentity() (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.open {
		return "", ErrNotOpen
	}
	return fmt.Sprintf("Atorch DL24 on %s via %s", a.port, a.bin), nil
}

// readMilli runs a combined query and parses "millivolts milliamps".
func (a *Atorch) readMilli() (mv, ma float64, err error) {
	out, err := a.cli("LINE", "QMV", "QMA")
	if err != nil {
		return 0, 0, err
	}
	fields := strings.Fields(strings.TrimSpace(out))
	if len(fields) < 2 {
		return 0, 0, fmt.Errorf("unexpected dl24 reply %q", strings.TrimSpace(out))
	}
	mv, err = strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("bad millivolt reading %q: %w", fields[0], err)
	}
	ma, err = strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("bad milliamp reading %q: %w", fields[1], err)
	}
	return mv, ma, nil
}

func (a *Atorch) MeasureVoltage() (float64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.open {
		return 0, ErrNotOpen
	}
	mv, _, err := a.readMilli()
	if err != nil {
		return 0, err
	}
	return mv / 1000, nil
}

func (a *Atorch) MeasureCurrent() (float64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.open {
		return 0, ErrNotOpen
	}
	_, ma, err := a.readMilli()
	if err != nil {
		return 0, err
	}
	return ma / 1000, nil
}

func (a *Atorch) SetCurrent(amps float64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.open {
		return ErrNotOpen
	}
	if _, err := a.cli(fmt.Sprintf("%.3fA", amps)); err != nil {
		return err
	}
	a.setpoint = amps
	return nil
}

func (a *Atorch) CurrentSetpoint() (float64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.open {
		return 0, ErrNotOpen
	}
	return a.setpoint, nil
}

func (a *Atorch) SetOutput(on bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.open {
		return ErrNotOpen
	}
	verb := "OFF"
	if on {
		verb = "ON"
	}
	if _, err := a.cli(verb); err != nil {
		return err
	}
	a.outputOn = on
	return nil
}

func (a *Atorch) Output() (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.open {
		return false, ErrNotOpen
	}
	return a.outputOn, nil
}
