package tui

import (
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rivo/tview"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"github.com/flashchine/benchterm/pkg/config"
	"github.com/flashchine/benchterm/pkg/gitlog"
	"github.com/flashchine/benchterm/pkg/instruments"
	"github.com/flashchine/benchterm/pkg/render"
	"github.com/flashchine/benchterm/pkg/results"
	"github.com/flashchine/benchterm/pkg/session"
	"github.com/flashchine/benchterm/pkg/status"
	"github.com/flashchine/benchterm/pkg/vterm"
)

const psuPollInterval = time.Second

// severityTags map a status severity to a tview color tag.
var severityTags = map[status.Severity]string{
	status.Info:    "white",
	status.Success: "green",
	status.Busy:    "yellow",
	status.Warn:    "orange",
	status.Error:   "red",
}

// UI owns the tview application and every bench collaborator behind it.
type UI struct {
	app       *tview.Application
	cfg       *config.Instance
	screen    *vterm.Screen
	renderer  *render.Renderer
	grid      *TermGrid
	sess      *session.Session
	recon     *session.Reconnector
	gate      *results.Gate
	git       *gitlog.Committer
	psu       *instruments.PSU
	load      instruments.Load
	statusBar *tview.TextView
	psuGauge  *tview.TextView
	loadGauge *tview.TextView
	wakeBtn   *tview.Button
	wakeOn    bool

	psuPollStop chan struct{}
}

// New assembles the application from config. Nothing connects until the
// user presses the buttons.
func New(cfg *config.Instance) (*UI, error) {
	cols, rows := cfg.TerminalSize()

	u := &UI{
		app:    tview.NewApplication(),
		cfg:    cfg,
		screen: vterm.New(cols, rows),
		grid:   NewTermGrid(cols, rows),
	}
	u.renderer = render.New(u.grid, cols, rows)
	session.AddIgnoredDescriptions(cfg.IgnorePorts()...)

	gate, err := results.NewGate(afero.NewOsFs(), cfg.LogsDir(), u.notify)
	if err != nil {
		return nil, err
	}
	u.gate = gate

	u.sess = session.New(u.screen, gate, session.Options{
		Baud:     cfg.SerialBaud(),
		OnStatus: u.notify,
		QueueUpdate: func(f func()) {
			u.app.QueueUpdateDraw(f)
		},
		Render: func() {
			u.renderer.Render(u.screen)
		},
		OnDisconnect: u.onDisconnect,
	})

	u.recon = session.NewReconnector(
		clockwork.NewRealClock(),
		time.Duration(cfg.ReconnectSeconds())*time.Second,
		u.sess.Connected,
		func() error { return u.sess.Connect(cfg.SerialPort()) },
	)

	if cfg.GitEnabled() {
		u.git = gitlog.NewCommitter(cfg.GitDir(), u.notify)
	}

	u.psu = instruments.NewPSU(cfg.PSUBaud())

	u.buildLayout()
	return u, nil
}

// Run starts the reconnector and blocks in the tview event loop.
func (u *UI) Run() error {
	u.recon.Start()
	defer u.recon.Stop()
	defer u.shutdown()
	return u.app.Run()
}

// notify is safe to call from any goroutine, including the event loop
// itself. QueueUpdate blocks until the event loop runs the closure and
// button handlers run on that loop, so the update is always dispatched from
// a fresh goroutine.
func (u *UI) notify(msg string, sev status.Severity) {
	tag, ok := severityTags[sev]
	if !ok {
		tag = "white"
	}
	go u.app.QueueUpdateDraw(func() {
		u.statusBar.SetText(fmt.Sprintf("[%s]%s", tag, tview.Escape(msg)))
	})
}

// onDisconnect runs on whichever goroutine triggered the disconnect, the
// Disconnect button's event loop included; same dispatch rule as notify.
func (u *UI) onDisconnect(userRequested bool) {
	if userRequested {
		u.recon.SetEnabled(false)
	}
	go u.app.QueueUpdateDraw(func() {
		u.renderer.Invalidate()
	})
}

func (u *UI) connectMPPT() {
	u.recon.SetEnabled(true)
	go func() {
		if err := u.sess.Connect(u.cfg.SerialPort()); err != nil {
			log.Warn().Err(err).Msg("connect failed")
			u.notify(err.Error(), status.Error)
		}
	}()
}

func (u *UI) toggleWake() {
	if u.wakeOn {
		u.sess.ReleaseWake()
		u.wakeOn = false
		u.wakeBtn.SetLabel("Wake: off")
		return
	}
	if !u.sess.Connected() {
		u.notify("MPPT not connected", status.Warn)
		return
	}
	u.sess.HoldWake()
	u.wakeOn = true
	u.wakeBtn.SetLabel("Wake: ON")
}

func (u *UI) rescanPorts() {
	go func() {
		ports, err := session.ListPorts()
		if err != nil {
			u.notify("port scan failed", status.Error)
			return
		}
		if len(ports) == 0 {
			u.notify("no serial ports found", status.Warn)
			return
		}
		msg := "ports:"
		for _, p := range ports {
			msg += " " + p.Name
		}
		u.notify(msg, status.Info)
	}()
}

// startPSUPoll refreshes the measured readout once a second while the PSU
// stays connected.
func (u *UI) startPSUPoll() {
	if u.psuPollStop != nil {
		return
	}
	stop := make(chan struct{})
	u.psuPollStop = stop

	go func() {
		ticker := time.NewTicker(psuPollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				volts, amps, err := u.psu.Measure()
				if err != nil {
					continue
				}
				u.app.QueueUpdateDraw(func() {
					u.psuGauge.SetText(fmt.Sprintf("%.2f V  %.3f A", volts, amps))
				})
			}
		}
	}()
}

func (u *UI) stopPSUPoll() {
	if u.psuPollStop == nil {
		return
	}
	close(u.psuPollStop)
	u.psuPollStop = nil
}

func (u *UI) shutdown() {
	u.stopPSUPoll()
	u.sess.ReleaseWake()
	u.sess.Disconnect()
	if u.psu.Connected() {
		if err := u.psu.Disconnect(); err != nil {
			log.Warn().Err(err).Msg("PSU disconnect on exit failed")
		}
	}
	if u.load != nil {
		if err := u.load.Close(); err != nil {
			log.Warn().Err(err).Msg("load close on exit failed")
		}
	}
}
