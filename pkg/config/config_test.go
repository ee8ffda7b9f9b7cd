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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigWritesDefaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := NewConfig(dir, BaseDefaults)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, CfgFile))
	require.NoError(t, err)

	assert.Equal(t, 115200, cfg.SerialBaud())
	assert.Equal(t, 2, cfg.ReconnectSeconds())
	cols, rows := cfg.TerminalSize()
	assert.Equal(t, 80, cols)
	assert.Equal(t, 24, rows)
	assert.Equal(t, 9600, cfg.PSUBaud())
	assert.Equal(t, "rigol", cfg.LoadKind())
	assert.False(t, cfg.GitEnabled())
}

func TestLoadKeepsDefaultsForMissingFields(t *testing.T) {
	dir := t.TempDir()
	data := `config_schema = 1

[serial]
port = "COM7"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, CfgFile), []byte(data), 0o600))

	cfg, err := NewConfig(dir, BaseDefaults)
	require.NoError(t, err)

	assert.Equal(t, "COM7", cfg.SerialPort())
	// Fields absent from the file keep their defaults.
	assert.Equal(t, 115200, cfg.SerialBaud())
	// No presets in the file falls back to the built-in pairs.
	assert.Len(t, cfg.PSUPresets(), 2)
}

func TestLoadRejectsSchemaMismatch(t *testing.T) {
	dir := t.TempDir()
	data := "config_schema = 99\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, CfgFile), []byte(data), 0o600))

	_, err := NewConfig(dir, BaseDefaults)
	assert.ErrorContains(t, err, "schema version mismatch")
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()

	cfg, err := NewConfig(dir, BaseDefaults)
	require.NoError(t, err)

	cfg.SetSerialPort("COM3")
	cfg.SetPSUPort("COM4")
	require.NoError(t, cfg.Save())

	reloaded, err := NewConfig(dir, BaseDefaults)
	require.NoError(t, err)
	assert.Equal(t, "COM3", reloaded.SerialPort())
	assert.Equal(t, "COM4", reloaded.PSUPort())
}

func TestGitEnabledNeedsDir(t *testing.T) {
	dir := t.TempDir()
	data := `config_schema = 1

[git]
enabled = true
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, CfgFile), []byte(data), 0o600))

	cfg, err := NewConfig(dir, BaseDefaults)
	require.NoError(t, err)
	assert.False(t, cfg.GitEnabled())

	data = `config_schema = 1

[git]
enabled = true
dir = "/srv/mppt-logs"
`
	require.NoError(t, os.WriteFile(cfg.Path(), []byte(data), 0o600))
	require.NoError(t, cfg.Load())
	assert.True(t, cfg.GitEnabled())
	assert.Equal(t, "/srv/mppt-logs", cfg.GitDir())
}

func TestCfgEnvOverridesPath(t *testing.T) {
	dir := t.TempDir()
	custom := filepath.Join(dir, "nested", "bench.toml")
	t.Setenv(CfgEnv, custom)

	cfg, err := NewConfig(t.TempDir(), BaseDefaults)
	require.NoError(t, err)
	assert.Equal(t, custom, cfg.Path())

	_, err = os.Stat(custom)
	require.NoError(t, err)
}

func TestPresetsFromFile(t *testing.T) {
	dir := t.TempDir()
	data := `config_schema = 1

[[psu.presets]]
name = "bench 5V"
volts = 5.0
amps = 1.5
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, CfgFile), []byte(data), 0o600))

	cfg, err := NewConfig(dir, BaseDefaults)
	require.NoError(t, err)

	presets := cfg.PSUPresets()
	require.Len(t, presets, 1)
	assert.Equal(t, "bench 5V", presets[0].Name)
	assert.InDelta(t, 5.0, presets[0].Volts, 1e-9)
	assert.InDelta(t, 1.5, presets[0].Amps, 1e-9)
}
