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
	"io"
	"strings"

	"github.com/gotmc/query"
	"github.com/rs/zerolog/log"
	"go.bug.st/serial"
	"go.uber.org/multierr"

	"github.com/flashchine/benchterm/pkg/helpers/syncutil"
)

// DefaultPSUBaud matches the SPE6103's factory serial settings.
const DefaultPSUBaud = 9600

// psuDialer opens the serial link to the supply. Swapped out in tests.
type psuDialer func(port string, baud int) (io.ReadWriteCloser, error)

func dialPSU(port string, baud int) (io.ReadWriteCloser, error) {
	p, err := serial.Open(port, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("failed to open PSU port %s: %w", port, err)
	}
	return p, nil
}

// PSU drives an Owon SPE-series programmable supply over serial SCPI.
type PSU struct {
	dial psuDialer
	conn io.ReadWriteCloser
	scpi *scpiConn
	port string
	baud int
	mu   syncutil.Mutex
}

// NewPSU builds a driver; Connect opens the link.
func NewPSU(baud int) *PSU {
	if baud <= 0 {
		baud = DefaultPSUBaud
	}
	return &PSU{baud: baud, dial: dialPSU}
}

// Connect opens the port, switches the supply to remote mode and forces the
// output off so a stale front-panel setting never energizes the fixture.
func (p *PSU) Connect(port string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn != nil {
		return fmt.Errorf("PSU already connected on %s", p.port)
	}

	conn, err := p.dial(port, p.baud)
	if err != nil {
		return err
	}
	scpi := newSCPIConn(conn)

	for _, cmd := range []string{"SYST:REM", "OUTP 0"} {
		if err := scpi.Command("%s", cmd); err != nil {
			return multierr.Append(err, conn.Close())
		}
	}

	p.conn = conn
	p.scpi = scpi
	p.port = port
	log.Info().Str("port", port).Msg("PSU connected")
	return nil
}

// Disconnect turns the output off and releases the port.
func (p *PSU) Disconnect() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		return nil
	}

	err := p.scpi.Command("OUTP 0")
	err = multierr.Append(err, p.conn.Close())
	p.conn = nil
	p.scpi = nil
	return err
}

// ResetCOM drops and reopens the link on the same port, the recovery move
// when the supply's USB bridge wedges.
func (p *PSU) ResetCOM() error {
	p.mu.Lock()
	port := p.port
	conn := p.conn
	p.conn = nil
	p.scpi = nil
	p.mu.Unlock()

	if conn == nil {
		return ErrNotOpen
	}
	if err := conn.Close(); err != nil {
		log.Warn().Err(err).Msg("PSU close during reset failed")
	}
	return p.Connect(port)
}

// Connected reports whether the link is open.
func (p *PSU) Connected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.conn != nil
}

// Port returns the connected port name, empty when disconnected.
func (p *PSU) Port() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		return ""
	}
	return p.port
}

func (p *PSU) querier() (*scpiConn, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.scpi == nil {
		return nil, ErrNotOpen
	}
	return p.scpi, nil
}

// Identify reads the *IDN? string.
func (p *PSU) Identify() (string, error) {
	q, err := p.querier()
	if err != nil {
		return "", err
	}
	idn, err := q.Query("*IDN?")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(idn), nil
}

// Apply programs a voltage/current pair without touching the output state.
func (p *PSU) Apply(volts, amps float64) error {
	q, err := p.querier()
	if err != nil {
		return err
	}
	if err := q.Command("VOLT %.2f", volts); err != nil {
		return err
	}
	return q.Command("CURR %.3f", amps)
}

// SetOutput switches the output relay.
func (p *PSU) SetOutput(on bool) error {
	q, err := p.querier()
	if err != nil {
		return err
	}
	state := 0
	if on {
		state = 1
	}
	return q.Command("OUTP %d", state)
}

// Measure reads back the live output voltage and current.
func (p *PSU) Measure() (volts, amps float64, err error) {
	q, err := p.querier()
	if err != nil {
		return 0, 0, err
	}
	volts, err = query.Float64(q, "MEAS:VOLT?")
	if err != nil {
		return 0, 0, err
	}
	amps, err = query.Float64(q, "MEAS:CURR?")
	if err != nil {
		return 0, 0, err
	}
	return volts, amps, nil
}
