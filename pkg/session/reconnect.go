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

package session

import (
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// DefaultReconnectInterval is how often the reconnector retries while the
// link is down.
const DefaultReconnectInterval = 2 * time.Second

// Reconnector periodically retries a connection while enabled. Connection
// loss leaves it enabled so the link comes back on its own; a user
// disconnect disables it until the user reconnects.
type Reconnector struct {
	clock     clockwork.Clock
	connected func() bool
	connect   func() error
	stop      chan struct{}
	interval  time.Duration
	enabled   atomic.Bool
	started   atomic.Bool
}

// NewReconnector builds a reconnector; it does nothing until Start.
func NewReconnector(
	clock clockwork.Clock,
	interval time.Duration,
	connected func() bool,
	connect func() error,
) *Reconnector {
	if interval <= 0 {
		interval = DefaultReconnectInterval
	}
	return &Reconnector{
		clock:     clock,
		interval:  interval,
		connected: connected,
		connect:   connect,
		stop:      make(chan struct{}),
	}
}

// SetEnabled turns automatic retries on or off.
func (r *Reconnector) SetEnabled(on bool) {
	r.enabled.Store(on)
}

// Enabled reports whether automatic retries are on.
func (r *Reconnector) Enabled() bool {
	return r.enabled.Load()
}

// Start launches the retry loop.
func (r *Reconnector) Start() {
	if !r.started.CompareAndSwap(false, true) {
		return
	}
	go r.run()
}

// Stop terminates the retry loop. Safe to call once.
func (r *Reconnector) Stop() {
	close(r.stop)
}

func (r *Reconnector) run() {
	ticker := r.clock.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-ticker.Chan():
			if !r.enabled.Load() || r.connected() {
				continue
			}
			if err := r.connect(); err != nil {
				log.Debug().Err(err).Msg("reconnect attempt failed")
			}
		}
	}
}
