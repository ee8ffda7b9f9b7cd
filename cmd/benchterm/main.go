/*
Benchterm
Copyright (C) 2026 The Benchterm Contributors

This file is part of Benchterm.

Benchterm is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

Benchterm is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with Benchterm.  If not, see <http://www.gnu.org/licenses/>.
*/

package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/flashchine/benchterm/pkg/config"
	"github.com/flashchine/benchterm/pkg/helpers"
	"github.com/flashchine/benchterm/pkg/session"
	"github.com/flashchine/benchterm/pkg/ui/tui"
)

// AppVersion is set at build time via -ldflags.
var AppVersion = "dev"

func main() {
	if err := run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func run() error {
	configDir := flag.String(
		"config",
		filepath.Join(xdg.ConfigHome, "benchterm"),
		"config directory",
	)
	port := flag.String(
		"port",
		"",
		"serial port of the MPPT fixture (overrides config)",
	)
	showVersion := flag.Bool("version", false, "print version and exit")
	listPorts := flag.Bool("list-ports", false, "list candidate serial ports and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("benchterm v" + AppVersion)
		return nil
	}

	if *listPorts {
		ports, err := session.ListPorts()
		if err != nil {
			return err
		}
		for _, p := range ports {
			fmt.Printf("%s\t%s\n", p.Name, p.Description)
		}
		return nil
	}

	cfg, err := config.NewConfig(*configDir, config.BaseDefaults)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	if err := helpers.InitLogging(cfg.LogsDir()); err != nil {
		return fmt.Errorf("error setting up logging: %w", err)
	}
	if cfg.DebugLogging() {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	if *port != "" {
		cfg.SetSerialPort(*port)
	}

	defer func() {
		if err := recover(); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Panic: %s\n", err)
			log.Fatal().Msgf("panic: %v", err)
		}
	}()

	app, err := tui.New(cfg)
	if err != nil {
		log.Error().Err(err).Msg("error building UI")
		return fmt.Errorf("error building UI: %w", err)
	}

	log.Info().Str("version", AppVersion).Msg("benchterm started")
	if err := app.Run(); err != nil {
		log.Error().Err(err).Msg("error running UI")
		return fmt.Errorf("error running UI: %w", err)
	}
	return nil
}
