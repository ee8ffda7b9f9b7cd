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
	"errors"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"
	"go.uber.org/goleak"

	"github.com/flashchine/benchterm/pkg/extract"
	"github.com/flashchine/benchterm/pkg/frames"
	"github.com/flashchine/benchterm/pkg/status"
	"github.com/flashchine/benchterm/pkg/vterm"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakePort scripts a sequence of reads; once exhausted it mimics the read
// timeout by returning (0, nil), or fails with readErr when set.
type fakePort struct {
	readErr error
	chunks  [][]byte
	writes  []byte
	idx     int
	closed  bool
	mu      sync.Mutex
}

func (p *fakePort) Read(b []byte) (int, error) {
	p.mu.Lock()
	if p.idx < len(p.chunks) {
		n := copy(b, p.chunks[p.idx])
		p.idx++
		p.mu.Unlock()
		return n, nil
	}
	err := p.readErr
	p.mu.Unlock()
	if err != nil {
		return 0, err
	}
	time.Sleep(time.Millisecond)
	return 0, nil
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writes = append(p.writes, b...)
	return len(b), nil
}

func (p *fakePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (*fakePort) SetReadTimeout(time.Duration) error { return nil }

func (p *fakePort) writeCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.writes)
}

func (p *fakePort) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *fakePort) firstWrite() byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.writes[0]
}

func factoryFor(p *fakePort) PortFactory {
	return func(string, *serial.Mode) (Port, error) {
		return p, nil
	}
}

type savedCall struct {
	fingerprint string
	lines       []string
	rec         extract.Record
	auto        bool
}

type fakeSaver struct {
	calls []savedCall
	mu    sync.Mutex
}

func (f *fakeSaver) Save(lines []string, rec extract.Record, fp string, auto bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, savedCall{lines: lines, rec: rec, fingerprint: fp, auto: auto})
	return nil
}

func (f *fakeSaver) snapshot() []savedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]savedCall(nil), f.calls...)
}

type statusSink struct {
	msgs []string
	sevs []status.Severity
	mu   sync.Mutex
}

func (s *statusSink) fn() status.Func {
	return func(msg string, sev status.Severity) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.msgs = append(s.msgs, msg)
		s.sevs = append(s.sevs, sev)
	}
}

func (s *statusSink) all() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.msgs...)
}

func TestPipelineEndToEnd(t *testing.T) {
	stream := "\x1b[2J\x1b[1;1H" +
		"\x1b[0m7-c-32305311-20383346\r\n" +
		"UART [++]\r\n" +
		"Voltage [+]\r\n" +
		" U_bat 14002 mV\r\n" +
		"test \x1b[32mPASSED\x1b[0m\r\n" +
		"\x1b[2J"

	port := &fakePort{chunks: [][]byte{[]byte(stream[:10]), []byte(stream[10:])}}
	saver := &fakeSaver{}
	screen := vterm.New(64, 18)

	s := New(screen, saver, Options{PortFactory: factoryFor(port)})
	require.NoError(t, s.Connect("COM5"))
	defer s.Disconnect()

	require.Eventually(t, func() bool {
		return len(saver.snapshot()) == 1
	}, time.Second, 5*time.Millisecond)

	call := saver.snapshot()[0]
	assert.True(t, call.auto)
	assert.Regexp(t, regexp.MustCompile(`^[0-9A-F]{4}$`), call.fingerprint)
	// The fingerprint must be derived from the UID alone, not from a match
	// polluted by the SGR reset printed right before it.
	assert.Equal(t, frames.Fingerprint("7-c-32305311-20383346"), call.fingerprint)
	assert.Equal(t, call.fingerprint, call.rec.Values[0])
	assert.Equal(t, "++", call.rec.Values[1])
	assert.Equal(t, "14002", call.rec.Values[3])

	// The screen shows the masked ID, never the raw UID. The UID span is 21
	// chars wide, so the emulator consumed the reset as an escape sequence
	// and rendered 14 pad spaces plus the 7-char replacement.
	require.NotEmpty(t, call.lines)
	assert.Equal(t, strings.Repeat(" ", 14)+"ID:"+call.fingerprint, call.lines[0])

	joined := ""
	for _, l := range call.lines {
		joined += l + "\n"
	}
	assert.NotContains(t, joined, "32305311")
	assert.Contains(t, joined, "PASSED")
}

func TestFingerprintClearedWhenFrameHasNoUID(t *testing.T) {
	stream := "\x1b[2J7-c-32305311-20383346\r\n" +
		"\x1b[2Jno uid here\r\n" +
		"\x1b[2J"

	port := &fakePort{chunks: [][]byte{[]byte(stream)}}
	saver := &fakeSaver{}
	s := New(vterm.New(64, 18), saver, Options{PortFactory: factoryFor(port)})
	require.NoError(t, s.Connect("COM5"))
	defer s.Disconnect()

	require.Eventually(t, func() bool {
		return len(saver.snapshot()) == 2
	}, time.Second, 5*time.Millisecond)

	calls := saver.snapshot()
	assert.NotEmpty(t, calls[0].fingerprint)
	assert.Empty(t, calls[1].fingerprint)
	assert.Empty(t, s.LastFingerprint())
}

func TestReadFailureStopsWorkerAndNotifies(t *testing.T) {
	port := &fakePort{readErr: errors.New("device gone")}
	st := &statusSink{}
	userReq := make(chan bool, 1)

	s := New(vterm.New(64, 18), &fakeSaver{}, Options{
		PortFactory:  factoryFor(port),
		OnStatus:     st.fn(),
		OnDisconnect: func(user bool) { userReq <- user },
	})
	require.NoError(t, s.Connect("COM5"))

	select {
	case user := <-userReq:
		assert.False(t, user, "loss is not a user disconnect")
	case <-time.After(time.Second):
		t.Fatal("disconnect callback never fired")
	}
	assert.False(t, s.Connected())
	assert.True(t, port.isClosed())

	found := false
	for _, m := range st.all() {
		if m == "MPPT read failed, connection lost" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestUserDisconnect(t *testing.T) {
	port := &fakePort{}
	users := make(chan bool, 1)
	s := New(vterm.New(64, 18), &fakeSaver{}, Options{
		PortFactory:  factoryFor(port),
		OnDisconnect: func(user bool) { users <- user },
	})
	require.NoError(t, s.Connect("COM5"))
	s.Disconnect()

	select {
	case user := <-users:
		assert.True(t, user)
	case <-time.After(time.Second):
		t.Fatal("disconnect callback never fired")
	}
	assert.False(t, s.Connected())

	require.Eventually(t, port.isClosed, time.Second, 5*time.Millisecond)

	// Double disconnect is a no-op.
	s.Disconnect()
}

func TestRenderSignalCoalesced(t *testing.T) {
	var queued []func()
	var mu sync.Mutex
	renders := 0

	s := New(vterm.New(64, 18), &fakeSaver{}, Options{
		PortFactory: factoryFor(&fakePort{}),
		QueueUpdate: func(f func()) {
			mu.Lock()
			defer mu.Unlock()
			queued = append(queued, f)
		},
		Render: func() { renders++ },
	})

	s.signalRender()
	s.signalRender() // coalesced while the first is pending
	mu.Lock()
	assert.Len(t, queued, 1)
	mu.Unlock()

	queued[0]()
	assert.Equal(t, 1, renders)

	// After the pending render ran, the next signal queues again.
	s.signalRender()
	mu.Lock()
	assert.Len(t, queued, 2)
	mu.Unlock()
}

func TestHoldWakeWritesUntilReleased(t *testing.T) {
	port := &fakePort{}
	s := New(vterm.New(64, 18), &fakeSaver{}, Options{PortFactory: factoryFor(port)})
	require.NoError(t, s.Connect("COM5"))
	defer s.Disconnect()

	s.HoldWake()
	require.Eventually(t, func() bool {
		return port.writeCount() >= 2
	}, 2*time.Second, 10*time.Millisecond)

	s.ReleaseWake()
	require.Eventually(t, func() bool {
		return !s.wakeActive.Load()
	}, time.Second, 10*time.Millisecond)

	assert.Equal(t, byte('\r'), port.firstWrite())
}

func TestHoldWakeNoopWhenDisconnected(t *testing.T) {
	s := New(vterm.New(64, 18), &fakeSaver{}, Options{PortFactory: factoryFor(&fakePort{})})
	s.HoldWake()
	assert.False(t, s.wakeActive.Load())
}

func TestConnectTwiceFails(t *testing.T) {
	s := New(vterm.New(64, 18), &fakeSaver{}, Options{PortFactory: factoryFor(&fakePort{})})
	require.NoError(t, s.Connect("COM5"))
	defer s.Disconnect()

	assert.Error(t, s.Connect("COM5"))
}

func TestDecode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "abc", decode([]byte{'a', 0, 'b', 0xFF, 'c'}))
	assert.Equal(t, "", decode([]byte{0, 0}))
}

func TestPickPort(t *testing.T) {
	t.Parallel()

	_, ok := PickPort(nil)
	assert.False(t, ok)

	ports := []PortInfo{
		{Name: "COM3", Description: "USB Serial"},
		{Name: "COM7", Description: "STLink Virtual COM Port"},
	}
	p, ok := PickPort(ports)
	require.True(t, ok)
	assert.Equal(t, "COM7", p.Name)

	p, ok = PickPort(ports[:1])
	require.True(t, ok)
	assert.Equal(t, "COM3", p.Name)
}

func TestIsIgnored(t *testing.T) {
	t.Parallel()

	assert.True(t, isIgnored("USB-SERIAL CH340 (COM4)"))
	assert.False(t, isIgnored("STLink Virtual COM Port"))
}
