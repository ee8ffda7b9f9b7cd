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

// Package gitlog pushes the result logs to a git remote so the lab archive
// survives the bench machine.
package gitlog

import (
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/flashchine/benchterm/pkg/status"
)

// gitRunner executes git in a working directory and returns combined
// output. Swapped out in tests.
type gitRunner func(dir string, args ...string) (string, error)

func execGit(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("git %s: %s: %w",
			strings.Join(args, " "), strings.TrimSpace(string(out)), err)
	}
	return string(out), nil
}

// Committer stages, commits and pushes the log directory.
type Committer struct {
	run      gitRunner
	onStatus status.Func
	now      func() time.Time
	dir      string
}

// NewCommitter builds a committer for a git working directory. onStatus may
// be nil.
func NewCommitter(dir string, onStatus status.Func) *Committer {
	return &Committer{
		dir:      dir,
		onStatus: onStatus,
		run:      execGit,
		now:      time.Now,
	}
}

// Commit stages everything and pushes a "log update" commit. A clean tree
// is reported and skipped, not an error.
func (c *Committer) Commit() error {
	out, err := c.run(c.dir, "status", "--porcelain")
	if err != nil {
		c.onStatus.Notify("git status failed", status.Error)
		return err
	}
	if strings.TrimSpace(out) == "" {
		c.onStatus.Notify("nothing to commit", status.Info)
		return nil
	}

	steps := [][]string{
		{"add", "."},
		{"commit", "-m", fmt.Sprintf("log update %s", c.now().Format("2006-01-02 15:04:05"))},
		{"push"},
	}
	for _, args := range steps {
		if _, err := c.run(c.dir, args...); err != nil {
			c.onStatus.Notify(fmt.Sprintf("git %s failed", args[0]), status.Error)
			return err
		}
	}

	log.Info().Str("dir", c.dir).Msg("logs committed and pushed")
	c.onStatus.Notify("logs pushed", status.Success)
	return nil
}

// Pull fast-forwards the working directory from the remote.
func (c *Committer) Pull() error {
	if _, err := c.run(c.dir, "pull", "--ff-only"); err != nil {
		c.onStatus.Notify("git pull failed", status.Error)
		return err
	}
	c.onStatus.Notify("logs pulled", status.Success)
	return nil
}
