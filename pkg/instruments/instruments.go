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

// Package instruments wraps the bench's programmable load and power supply
// behind small interfaces so the UI stays independent of the wire protocol
// each vendor speaks.
package instruments

import (
	"errors"
	"fmt"
)

// ErrNotOpen is returned by operations on a closed instrument.
var ErrNotOpen = errors.New("instrument not open")

// Load kinds selectable at connect time.
const (
	KindRigol  = "rigol"
	KindAtorch = "atorch"
)

// Load is an electronic load in constant-current mode.
type Load interface {
	Open() error
	Close() error
	ReadIdentity() (string, error)
	MeasureVoltage() (float64, error)
	MeasureCurrent() (float64, error)
	SetCurrent(amps float64) error
	CurrentSetpoint() (float64, error)
	SetOutput(on bool) error
	Output() (bool, error)
}

// NewLoad builds the load driver for a kind tag. resource is a VISA-style
// TCP endpoint or serial path for the Rigol, a serial port for the Atorch.
func NewLoad(kind, resource string) (Load, error) {
	switch kind {
	case KindRigol:
		return NewRigol(resource), nil
	case KindAtorch:
		return NewAtorch(resource), nil
	default:
		return nil, fmt.Errorf("unknown load kind %q", kind)
	}
}
