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
	"fmt"
	"strings"

	"go.bug.st/serial/enumerator"
)

// IgnoredDescriptions filters out ports we never want to auto-pick, mostly
// cheap UART adapter clones that show up on lab machines. Config-defined
// filters are appended at startup.
var IgnoredDescriptions = []string{
	"CH340",
}

// AddIgnoredDescriptions extends the filter list, e.g. from config.
func AddIgnoredDescriptions(descs ...string) {
	IgnoredDescriptions = append(IgnoredDescriptions, descs...)
}

// PreferredDescriptions mark the fixture's own bridge: the ST-Link virtual
// COM port in front of the MPPT terminal.
var PreferredDescriptions = []string{
	"STMicroelectronics STLink Virtual COM Port",
	"STLink Virtual COM Port",
}

// PortInfo describes one candidate serial port.
type PortInfo struct {
	Name        string
	Description string
}

// ListPorts returns the connected serial ports minus the ignored ones, for
// both auto-picking and the UI's port selector.
func ListPorts() ([]PortInfo, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	var ports []PortInfo
	for _, d := range details {
		desc := strings.TrimSpace(d.Product)
		if isIgnored(desc) {
			continue
		}
		ports = append(ports, PortInfo{Name: d.Name, Description: desc})
	}
	return ports, nil
}

// PickPort chooses the connection target: the first port matching a
// preferred description, else the first candidate.
func PickPort(ports []PortInfo) (PortInfo, bool) {
	if len(ports) == 0 {
		return PortInfo{}, false
	}
	for _, p := range ports {
		for _, mark := range PreferredDescriptions {
			if strings.Contains(p.Description, mark) {
				return p, true
			}
		}
	}
	return ports[0], true
}

func isIgnored(desc string) bool {
	for _, bad := range IgnoredDescriptions {
		if bad != "" && strings.Contains(desc, bad) {
			return true
		}
	}
	return false
}
