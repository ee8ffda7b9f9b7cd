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

// Package session owns the serial connection to the MPPT fixture and the
// worker that pumps its byte stream through the frame pipeline:
//
//	read -> decode -> split frames -> mask UID -> feed emulator
//	                                             -> render signal (UI queue)
//	                                             -> auto-save gate
//
// One goroutine per connection touches the port and the emulator; the UI
// only reads the emulator after the render handoff, which is the single
// cross-thread interaction point.
package session

import (
	"bytes"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"go.bug.st/serial"

	"github.com/flashchine/benchterm/pkg/extract"
	"github.com/flashchine/benchterm/pkg/frames"
	"github.com/flashchine/benchterm/pkg/helpers/syncutil"
	"github.com/flashchine/benchterm/pkg/status"
	"github.com/flashchine/benchterm/pkg/vterm"
)

const (
	// DefaultBaud matches the fixture's UART.
	DefaultBaud = 115200

	readTimeout  = 50 * time.Millisecond
	readBufSize  = 1024
	wakeByte     = '\r'
	wakeInterval = 200 * time.Millisecond
)

// ErrNoPort is returned by Connect when no candidate port exists.
var ErrNoPort = errors.New("no serial port available")

// Port is the subset of a serial connection the session uses. Tests inject
// fakes through PortFactory.
type Port interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
	SetReadTimeout(t time.Duration) error
}

// PortFactory creates a serial port connection.
type PortFactory func(path string, mode *serial.Mode) (Port, error)

// DefaultPortFactory opens real serial ports.
func DefaultPortFactory(path string, mode *serial.Mode) (Port, error) {
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port: %w", err)
	}
	return port, nil
}

// Saver persists completed frames. *results.Gate implements it.
type Saver interface {
	Save(lines []string, rec extract.Record, fingerprint string, auto bool) error
}

// Options configures a Session. Zero-value fields get defaults.
type Options struct {
	PortFactory PortFactory
	OnStatus    status.Func
	// QueueUpdate posts a task to the UI goroutine, e.g. tview's
	// QueueUpdateDraw. Render then runs there.
	QueueUpdate func(func())
	Render      func()
	// OnDisconnect is told whether the user asked for the disconnect;
	// connection loss keeps auto-reconnect eligible, a user stop does not.
	OnDisconnect func(userRequested bool)
	Baud         int
}

// Session drives one fixture connection.
type Session struct {
	screen      *vterm.Screen
	saver       Saver
	splitter    *frames.Splitter
	portFactory PortFactory
	onStatus    status.Func
	queueUpdate func(func())
	render      func()
	onDisc      func(bool)

	port     Port
	portName string
	baud     int
	running  bool
	// lastFingerprint belongs to the frame currently on screen; cleared
	// when a frame carries no UID.
	lastFingerprint string
	mu              syncutil.RWMutex

	renderPending atomic.Bool
	wakeActive    atomic.Bool
}

// New creates a session rendering into screen and persisting through saver.
func New(screen *vterm.Screen, saver Saver, opts Options) *Session {
	s := &Session{
		screen:      screen,
		saver:       saver,
		portFactory: opts.PortFactory,
		onStatus:    opts.OnStatus,
		queueUpdate: opts.QueueUpdate,
		render:      opts.Render,
		onDisc:      opts.OnDisconnect,
		baud:        opts.Baud,
	}
	if s.portFactory == nil {
		s.portFactory = DefaultPortFactory
	}
	if s.baud == 0 {
		s.baud = DefaultBaud
	}
	s.splitter = frames.NewSplitter(s.handleFrame)
	return s
}

// Connect opens the named port, or auto-picks one when name is empty, and
// starts the reader worker.
func (s *Session) Connect(name string) error {
	if s.Connected() {
		return errors.New("already connected")
	}

	if name == "" {
		ports, err := ListPorts()
		if err != nil {
			return fmt.Errorf("failed to enumerate ports: %w", err)
		}
		info, ok := PickPort(ports)
		if !ok {
			return ErrNoPort
		}
		name = info.Name
	}

	port, err := s.portFactory(name, &serial.Mode{BaudRate: s.baud})
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", name, err)
	}
	if err := port.SetReadTimeout(readTimeout); err != nil {
		_ = port.Close()
		return fmt.Errorf("failed to set read timeout: %w", err)
	}

	s.mu.Lock()
	s.port = port
	s.portName = name
	s.running = true
	s.splitter.Reset()
	s.mu.Unlock()

	s.onStatus.Notify(fmt.Sprintf("MPPT connected on %s", name), status.Success)
	go s.readLoop(port)
	return nil
}

// Disconnect is the user-initiated close. The partially received frame, if
// any, is discarded.
func (s *Session) Disconnect() {
	if !s.stop() {
		return
	}
	s.onStatus.Notify("MPPT disconnected", status.Info)
	if s.onDisc != nil {
		s.onDisc(true)
	}
}

// Connected reports whether the reader worker is active.
func (s *Session) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running && s.port != nil
}

// PortName returns the open port's name, or "".
func (s *Session) PortName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.portName
}

// LastFingerprint returns the fingerprint of the frame currently on screen.
func (s *Session) LastFingerprint() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastFingerprint
}

// SaveCurrent persists whatever is on screen right now as a manual save.
// Called from the UI goroutine on a button press.
func (s *Session) SaveCurrent() error {
	lines := s.screen.PlainLines()
	rec := extract.FromScreen(s.screen)
	return s.saver.Save(lines, rec, s.LastFingerprint(), false)
}

// readLoop runs on the worker goroutine until stopped or the port fails.
func (s *Session) readLoop(port Port) {
	buf := make([]byte, readBufSize)
	for {
		if !s.isRunning() {
			return
		}
		n, err := port.Read(buf)
		if err != nil {
			if !s.isRunning() {
				// User disconnect closed the port under us.
				return
			}
			log.Error().Err(err).Str("port", s.PortName()).Msg("serial read failed")
			s.onStatus.Notify("MPPT read failed, connection lost", status.Error)
			s.stop()
			if s.onDisc != nil {
				// Connection loss keeps auto-reconnect eligible.
				s.onDisc(false)
			}
			return
		}
		if n == 0 {
			// Read timeout expired with nothing pending; this is the
			// worker's suspension point.
			continue
		}
		if text := decode(buf[:n]); text != "" {
			s.splitter.Feed(text)
		}
	}
}

// handleFrame runs on the worker goroutine for every completed frame.
func (s *Session) handleFrame(frame string) {
	masked, fp := frames.MaskUID(frame)

	s.mu.Lock()
	s.lastFingerprint = fp
	s.mu.Unlock()

	s.screen.Feed(masked)
	s.signalRender()

	lines := s.screen.PlainLines()
	rec := extract.FromScreen(s.screen)
	if err := s.saver.Save(lines, rec, fp, true); err != nil {
		// The gate already reported it; keep the worker alive.
		log.Warn().Err(err).Msg("auto-save failed")
	}
}

// signalRender queues one render on the UI goroutine. A second signal while
// one is pending is coalesced, never queued twice.
func (s *Session) signalRender() {
	if s.queueUpdate == nil || s.render == nil {
		return
	}
	if !s.renderPending.CompareAndSwap(false, true) {
		return
	}
	s.queueUpdate(func() {
		s.renderPending.Store(false)
		s.render()
	})
}

// HoldWake starts sending the wake byte at a fixed interval, for as long as
// the wake button is held. The goroutine only writes outbound bytes; it
// never touches the screen.
func (s *Session) HoldWake() {
	if !s.Connected() {
		return
	}
	if !s.wakeActive.CompareAndSwap(false, true) {
		return
	}
	go func() {
		ticker := time.NewTicker(wakeInterval)
		defer ticker.Stop()
		for s.wakeActive.Load() {
			port := s.currentPort()
			if port == nil {
				break
			}
			if _, err := port.Write([]byte{wakeByte}); err != nil {
				log.Warn().Err(err).Msg("wake write failed")
				break
			}
			<-ticker.C
		}
		s.wakeActive.Store(false)
	}()
}

// ReleaseWake stops the wake sender.
func (s *Session) ReleaseWake() {
	s.wakeActive.Store(false)
}

func (s *Session) currentPort() Port {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.running {
		return nil
	}
	return s.port
}

func (s *Session) isRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// stop halts the worker and closes the port. Returns false when already
// stopped.
func (s *Session) stop() bool {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return false
	}
	s.running = false
	port := s.port
	s.port = nil
	s.portName = ""
	s.splitter.Reset()
	s.mu.Unlock()

	if port != nil {
		if err := port.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close serial port")
		}
	}
	return true
}

// decode turns raw bytes into text: undecodable bytes are dropped, embedded
// NULs stripped.
func decode(b []byte) string {
	b = bytes.ReplaceAll(b, []byte{0}, nil)
	return string(bytes.ToValidUTF8(b, nil))
}
