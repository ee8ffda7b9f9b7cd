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
	"net"
	"strings"
	"time"

	"github.com/gotmc/query"
	"github.com/rs/zerolog/log"
	"go.bug.st/serial"
	"go.uber.org/multierr"

	"github.com/flashchine/benchterm/pkg/helpers/syncutil"
)

const rigolDialTimeout = 3 * time.Second

// Rigol drives a DL3000-series electronic load over raw SCPI, either on
// the instrument's TCP socket or a serial bridge.
type Rigol struct {
	dial     func(resource string) (io.ReadWriteCloser, error)
	conn     io.ReadWriteCloser
	scpi     *scpiConn
	resource string
	mu       syncutil.Mutex
}

// NewRigol builds a driver for resource, a "host:port" TCP endpoint or a
// serial device path.
func NewRigol(resource string) *Rigol {
	return &Rigol{
		resource: resource,
		dial:     dialRigol,
	}
}

func dialRigol(resource string) (io.ReadWriteCloser, error) {
	if strings.Contains(resource, ":") {
		conn, err := net.DialTimeout("tcp", resource, rigolDialTimeout)
		if err != nil {
			return nil, fmt.Errorf("failed to dial load at %s: %w", resource, err)
		}
		return conn, nil
	}
	port, err := serial.Open(resource, &serial.Mode{BaudRate: 115200})
	if err != nil {
		return nil, fmt.Errorf("failed to open load port %s: %w", resource, err)
	}
	return port, nil
}

// Open connects and forces a safe state: constant-current mode, 0 A,
// input off.
func (r *Rigol) Open() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn != nil {
		return nil
	}

	conn, err := r.dial(r.resource)
	if err != nil {
		return err
	}
	scpi := newSCPIConn(conn)

	for _, cmd := range []string{
		":SOUR:FUNC CURR",
		":SOUR:CURR:LEV:IMM 0",
		":SOUR:INP:STAT 0",
	} {
		if err := scpi.Command("%s", cmd); err != nil {
			return multierr.Append(err, conn.Close())
		}
	}

	r.conn = conn
	r.scpi = scpi
	log.Info().Str("resource", r.resource).Msg("load connected")
	return nil
}

// Close turns the input off before dropping the connection, so a crash of
// the operator UI never leaves the load sinking current.
func (r *Rigol) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn == nil {
		return nil
	}

	err := r.scpi.Command(":SOUR:INP:STAT 0")
	err = multierr.Append(err, r.conn.Close())
	r.conn = nil
	r.scpi = nil
	return err
}

func (r *Rigol) querier() (*scpiConn, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.scpi == nil {
		return nil, ErrNotOpen
	}
	return r.scpi, nil
}

func (r *Rigol) ReadIdentity() (string, error) {
	q, err := r.querier()
	if err != nil {
		return "", err
	}
	idn, err := q.Query("*IDN?")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(idn), nil
}

func (r *Rigol) MeasureVoltage() (float64, error) {
	q, err := r.querier()
	if err != nil {
		return 0, err
	}
	return query.Float64(q, ":MEAS:VOLT?")
}

func (r *Rigol) MeasureCurrent() (float64, error) {
	q, err := r.querier()
	if err != nil {
		return 0, err
	}
	return query.Float64(q, ":MEAS:CURR?")
}

func (r *Rigol) SetCurrent(amps float64) error {
	q, err := r.querier()
	if err != nil {
		return err
	}
	return q.Command(":SOUR:CURR:LEV:IMM %.4f", amps)
}

func (r *Rigol) CurrentSetpoint() (float64, error) {
	q, err := r.querier()
	if err != nil {
		return 0, err
	}
	return query.Float64(q, ":SOUR:CURR:LEV:IMM?")
}

func (r *Rigol) SetOutput(on bool) error {
	q, err := r.querier()
	if err != nil {
		return err
	}
	state := 0
	if on {
		state = 1
	}
	return q.Command(":SOUR:INP:STAT %d", state)
}

func (r *Rigol) Output() (bool, error) {
	q, err := r.querier()
	if err != nil {
		return false, err
	}
	return query.Bool(q, ":SOUR:INP:STAT?")
}
