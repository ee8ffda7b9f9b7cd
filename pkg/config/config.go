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

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"

	"github.com/flashchine/benchterm/pkg/helpers/syncutil"
)

const (
	SchemaVersion = 1
	CfgEnv        = "BENCHTERM_CFG"
	CfgFile       = "config.toml"
)

type Values struct {
	Serial       Serial   `toml:"serial"`
	Terminal     Terminal `toml:"terminal"`
	Logs         Logs     `toml:"logs"`
	Git          Git      `toml:"git,omitempty"`
	PSU          PSU      `toml:"psu,omitempty"`
	Load         Load     `toml:"load,omitempty"`
	ConfigSchema int      `toml:"config_schema"`
	DebugLogging bool     `toml:"debug_logging"`
}

type Serial struct {
	Port             string   `toml:"port,omitempty"`
	IgnorePorts      []string `toml:"ignore_ports,omitempty,multiline"`
	Baud             int      `toml:"baud"`
	ReconnectSeconds int      `toml:"reconnect_seconds"`
}

type Terminal struct {
	Cols int `toml:"cols"`
	Rows int `toml:"rows"`
}

type Logs struct {
	Dir string `toml:"dir,omitempty"`
}

type Git struct {
	Dir     string `toml:"dir,omitempty"`
	Enabled bool   `toml:"enabled"`
}

type PSU struct {
	Port    string   `toml:"port,omitempty"`
	Presets []Preset `toml:"presets,omitempty"`
	Baud    int      `toml:"baud"`
}

// Preset is a named voltage/current pair selectable from the PSU panel.
type Preset struct {
	Name  string  `toml:"name"`
	Volts float64 `toml:"volts"`
	Amps  float64 `toml:"amps"`
}

type Load struct {
	Kind       string `toml:"kind,omitempty"`
	Resource   string `toml:"resource,omitempty"`
	DL24Binary string `toml:"dl24_binary,omitempty"`
}

var BaseDefaults = Values{
	ConfigSchema: SchemaVersion,
	Serial: Serial{
		Baud:             115200,
		ReconnectSeconds: 2,
	},
	Terminal: Terminal{
		Cols: 80,
		Rows: 24,
	},
	PSU: PSU{
		Baud: 9600,
	},
	Load: Load{
		Kind: "rigol",
	},
}

type Instance struct {
	cfgPath  string
	vals     Values
	defaults Values
	mu       syncutil.RWMutex
}

//nolint:gocritic // config struct copied for immutability
func NewConfig(configDir string, defaults Values) (*Instance, error) {
	cfgPath := os.Getenv(CfgEnv)
	log.Debug().Msgf("env config path: %s", cfgPath)

	if cfgPath == "" {
		cfgPath = filepath.Join(configDir, CfgFile)
	}

	cfg := Instance{
		mu:       syncutil.RWMutex{},
		cfgPath:  cfgPath,
		vals:     defaults,
		defaults: defaults,
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		log.Info().Msg("saving new default config to disk")

		err := os.MkdirAll(filepath.Dir(cfgPath), 0o750)
		if err != nil {
			return nil, fmt.Errorf("failed to create config directory: %w", err)
		}

		err = cfg.Save()
		if err != nil {
			return nil, err
		}
	}

	err := cfg.Load()
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Instance) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfgPath == "" {
		return errors.New("config path not set")
	}

	data, err := os.ReadFile(c.cfgPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults, then unmarshal file values on top so fields
	// missing from the file keep their default values.
	newVals := c.defaults
	err = toml.Unmarshal(data, &newVals)
	if err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if newVals.ConfigSchema != SchemaVersion {
		log.Error().Msgf(
			"schema version mismatch: got %d, expecting %d",
			newVals.ConfigSchema,
			SchemaVersion,
		)
		return errors.New("schema version mismatch")
	}

	c.vals = newVals
	return nil
}

func (c *Instance) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfgPath == "" {
		return errors.New("config path not set")
	}

	data, err := toml.Marshal(&c.vals)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(c.cfgPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func (c *Instance) Path() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfgPath
}

func (c *Instance) SerialPort() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Serial.Port
}

func (c *Instance) SetSerialPort(port string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Serial.Port = port
}

func (c *Instance) SerialBaud() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Serial.Baud
}

func (c *Instance) IgnorePorts() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.vals.Serial.IgnorePorts...)
}

func (c *Instance) ReconnectSeconds() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Serial.ReconnectSeconds
}

func (c *Instance) TerminalSize() (cols, rows int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Terminal.Cols, c.vals.Terminal.Rows
}

// LogsDir is where mppt_log.txt and mppt_log.xlsx land; defaults under the
// XDG data home.
func (c *Instance) LogsDir() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Logs.Dir != "" {
		return c.vals.Logs.Dir
	}
	return filepath.Join(xdg.DataHome, "benchterm", "logs")
}

func (c *Instance) GitEnabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Git.Enabled && c.vals.Git.Dir != ""
}

func (c *Instance) GitDir() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Git.Dir
}

func (c *Instance) PSUPort() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.PSU.Port
}

func (c *Instance) SetPSUPort(port string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.PSU.Port = port
}

func (c *Instance) PSUBaud() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.PSU.Baud
}

// builtinPresets back the PSU panel when the config file defines none.
// Defaults stay out of BaseDefaults because toml unmarshaling appends
// array-of-table entries to a pre-populated slice.
var builtinPresets = []Preset{
	{Name: "12V battery", Volts: 13.8, Amps: 3.0},
	{Name: "24V battery", Volts: 27.6, Amps: 3.0},
}

func (c *Instance) PSUPresets() []Preset {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.vals.PSU.Presets) == 0 {
		return append([]Preset(nil), builtinPresets...)
	}
	return append([]Preset(nil), c.vals.PSU.Presets...)
}

func (c *Instance) LoadKind() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Load.Kind
}

func (c *Instance) LoadResource() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Load.Resource
}

func (c *Instance) DL24Binary() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Load.DL24Binary
}

func (c *Instance) DebugLogging() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.DebugLogging
}
