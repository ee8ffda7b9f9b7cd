package tui

import (
	"fmt"
	"strconv"

	"github.com/rivo/tview"
	"github.com/rs/zerolog/log"

	"github.com/flashchine/benchterm/pkg/instruments"
	"github.com/flashchine/benchterm/pkg/status"
)

func (u *UI) buildLayout() {
	u.statusBar = tview.NewTextView().SetDynamicColors(true)
	u.statusBar.SetBorder(true).SetTitle(" Status ")

	toolbar := u.buildToolbar()
	right := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(u.buildPSUPanel(), 0, 1, false).
		AddItem(u.buildLoadPanel(), 0, 1, false)

	cols, rows := u.grid.Size()
	body := tview.NewFlex().
		AddItem(u.grid, cols+2, 0, false).
		AddItem(right, 0, 1, false)

	root := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(toolbar, 3, 0, true).
		AddItem(body, rows+2, 0, false).
		AddItem(u.statusBar, 3, 0, false)

	u.app.SetRoot(root, true).EnableMouse(true)
}

func (u *UI) buildToolbar() tview.Primitive {
	connectBtn := tview.NewButton("Connect").SetSelectedFunc(u.connectMPPT)
	disconnectBtn := tview.NewButton("Disconnect").SetSelectedFunc(func() {
		u.sess.Disconnect()
	})
	saveBtn := tview.NewButton("Save block").SetSelectedFunc(func() {
		go func() {
			if err := u.sess.SaveCurrent(); err != nil {
				log.Warn().Err(err).Msg("manual save failed")
			}
		}()
	})
	u.wakeBtn = tview.NewButton("Wake: off").SetSelectedFunc(u.toggleWake)
	rescanBtn := tview.NewButton("Rescan ports").SetSelectedFunc(u.rescanPorts)

	bar := tview.NewFlex().
		AddItem(connectBtn, 0, 1, true).
		AddItem(nil, 1, 0, false).
		AddItem(disconnectBtn, 0, 1, false).
		AddItem(nil, 1, 0, false).
		AddItem(saveBtn, 0, 1, false).
		AddItem(nil, 1, 0, false).
		AddItem(u.wakeBtn, 0, 1, false).
		AddItem(nil, 1, 0, false).
		AddItem(rescanBtn, 0, 1, false)

	if u.git != nil {
		commitBtn := tview.NewButton("Git commit").SetSelectedFunc(func() {
			u.notify("committing logs...", status.Busy)
			go func() {
				if err := u.git.Commit(); err != nil {
					log.Warn().Err(err).Msg("git commit failed")
				}
			}()
		})
		pullBtn := tview.NewButton("Git pull").SetSelectedFunc(func() {
			u.notify("pulling logs...", status.Busy)
			go func() {
				if err := u.git.Pull(); err != nil {
					log.Warn().Err(err).Msg("git pull failed")
				}
			}()
		})
		bar.AddItem(nil, 1, 0, false).
			AddItem(commitBtn, 0, 1, false).
			AddItem(nil, 1, 0, false).
			AddItem(pullBtn, 0, 1, false)
	}

	wrap := tview.NewFlex().SetDirection(tview.FlexRow).AddItem(bar, 1, 0, true)
	wrap.SetBorder(true)
	return wrap
}

func (u *UI) buildPSUPanel() tview.Primitive {
	u.psuGauge = tview.NewTextView().SetText("--.- V  -.--- A")

	presets := u.cfg.PSUPresets()
	names := make([]string, len(presets))
	for i, p := range presets {
		names[i] = fmt.Sprintf("%s (%.1fV %.1fA)", p.Name, p.Volts, p.Amps)
	}

	form := tview.NewForm()
	portField := tview.NewInputField().
		SetLabel("Port").
		SetFieldWidth(12).
		SetText(u.cfg.PSUPort())
	form.AddFormItem(portField)
	voltsField := tview.NewInputField().SetLabel("Volts").SetFieldWidth(8)
	ampsField := tview.NewInputField().SetLabel("Amps").SetFieldWidth(8)

	form.AddDropDown("Preset", names, -1, func(_ string, index int) {
		if index < 0 || index >= len(presets) {
			return
		}
		voltsField.SetText(strconv.FormatFloat(presets[index].Volts, 'f', 2, 64))
		ampsField.SetText(strconv.FormatFloat(presets[index].Amps, 'f', 3, 64))
	})
	form.AddFormItem(voltsField)
	form.AddFormItem(ampsField)

	form.AddButton("Connect", func() {
		port := portField.GetText()
		u.cfg.SetPSUPort(port)
		go func() {
			if err := u.psu.Connect(port); err != nil {
				u.notify(err.Error(), status.Error)
				return
			}
			u.notify("PSU connected", status.Success)
			u.startPSUPoll()
		}()
	})
	form.AddButton("Apply", func() {
		volts, err1 := strconv.ParseFloat(voltsField.GetText(), 64)
		amps, err2 := strconv.ParseFloat(ampsField.GetText(), 64)
		if err1 != nil || err2 != nil {
			u.notify("invalid PSU setpoint", status.Warn)
			return
		}
		go func() {
			if err := u.psu.Apply(volts, amps); err != nil {
				u.notify(err.Error(), status.Error)
				return
			}
			u.notify(fmt.Sprintf("PSU set to %.2f V %.3f A", volts, amps), status.Info)
		}()
	})
	form.AddButton("On", func() { u.setPSUOutput(true) })
	form.AddButton("Off", func() { u.setPSUOutput(false) })
	form.AddButton("Reset COM", func() {
		go func() {
			if err := u.psu.ResetCOM(); err != nil {
				u.notify(err.Error(), status.Error)
				return
			}
			u.notify("PSU COM reset", status.Success)
		}()
	})

	panel := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(u.psuGauge, 1, 0, false).
		AddItem(form, 0, 1, false)
	panel.SetBorder(true).SetTitle(" Power Supply ")
	return panel
}

func (u *UI) setPSUOutput(on bool) {
	go func() {
		if err := u.psu.SetOutput(on); err != nil {
			u.notify(err.Error(), status.Error)
			return
		}
		if on {
			u.notify("PSU output ON", status.Success)
		} else {
			u.notify("PSU output off", status.Info)
		}
	}()
}

func (u *UI) buildLoadPanel() tview.Primitive {
	u.loadGauge = tview.NewTextView().SetText("--.- V  -.--- A")

	kinds := []string{instruments.KindRigol, instruments.KindAtorch}
	kind := u.cfg.LoadKind()

	form := tview.NewForm()
	initialKind := 0
	for i, k := range kinds {
		if k == kind {
			initialKind = i
		}
	}
	form.AddDropDown("Kind", kinds, initialKind, func(option string, _ int) {
		kind = option
	})
	resourceField := tview.NewInputField().
		SetLabel("Resource").
		SetFieldWidth(20).
		SetText(u.cfg.LoadResource())
	form.AddFormItem(resourceField)
	currentField := tview.NewInputField().SetLabel("Current A").SetFieldWidth(8)
	form.AddFormItem(currentField)

	form.AddButton("Open", func() {
		if u.load != nil {
			u.notify("load already open", status.Warn)
			return
		}
		ld, err := instruments.NewLoad(kind, resourceField.GetText())
		if err != nil {
			u.notify(err.Error(), status.Error)
			return
		}
		if a, ok := ld.(*instruments.Atorch); ok {
			a.SetBinary(u.cfg.DL24Binary())
		}
		go func() {
			if err := ld.Open(); err != nil {
				u.notify(err.Error(), status.Error)
				return
			}
			idn, err := ld.ReadIdentity()
			if err != nil {
				idn = "load"
			}
			u.app.QueueUpdateDraw(func() { u.load = ld })
			u.notify(idn+" connected", status.Success)
			u.refreshLoadGauge(ld)
		}()
	})
	form.AddButton("Set", func() {
		ld := u.load
		if ld == nil {
			u.notify("load not open", status.Warn)
			return
		}
		amps, err := strconv.ParseFloat(currentField.GetText(), 64)
		if err != nil {
			u.notify("invalid load current", status.Warn)
			return
		}
		go func() {
			if err := ld.SetCurrent(amps); err != nil {
				u.notify(err.Error(), status.Error)
				return
			}
			u.notify(fmt.Sprintf("load set to %.3f A", amps), status.Info)
			u.refreshLoadGauge(ld)
		}()
	})
	form.AddButton("On", func() { u.setLoadInput(true) })
	form.AddButton("Off", func() { u.setLoadInput(false) })
	form.AddButton("Close", func() {
		ld := u.load
		if ld == nil {
			return
		}
		u.load = nil
		go func() {
			if err := ld.Close(); err != nil {
				u.notify(err.Error(), status.Error)
				return
			}
			u.notify("load closed", status.Info)
		}()
	})

	panel := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(u.loadGauge, 1, 0, false).
		AddItem(form, 0, 1, false)
	panel.SetBorder(true).SetTitle(" Electronic Load ")
	return panel
}

func (u *UI) setLoadInput(on bool) {
	ld := u.load
	if ld == nil {
		u.notify("load not open", status.Warn)
		return
	}
	go func() {
		if err := ld.SetOutput(on); err != nil {
			u.notify(err.Error(), status.Error)
			return
		}
		if on {
			u.notify("load input ON", status.Success)
		} else {
			u.notify("load input off", status.Info)
		}
		u.refreshLoadGauge(ld)
	}()
}

func (u *UI) refreshLoadGauge(ld instruments.Load) {
	volts, err := ld.MeasureVoltage()
	if err != nil {
		return
	}
	amps, err := ld.MeasureCurrent()
	if err != nil {
		return
	}
	u.app.QueueUpdateDraw(func() {
		u.loadGauge.SetText(fmt.Sprintf("%.2f V  %.3f A", volts, amps))
	})
}
