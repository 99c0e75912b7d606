// OpenXR Launcher
// Copyright (c) 2026 The OpenXR Launcher Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of OpenXR Launcher.
//
// OpenXR Launcher is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// OpenXR Launcher is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with OpenXR Launcher.  If not, see <http://www.gnu.org/licenses/>.

package helpers

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/oxrlauncher/oxrlauncher/pkg/config"
)

// Dirs are the per-user directories the launcher writes to.
type Dirs struct {
	Config string
	Data   string
	State  string
}

// DefaultDirs follows the XDG base directory layout.
func DefaultDirs() Dirs {
	return Dirs{
		Config: filepath.Join(xdg.ConfigHome, config.AppName),
		Data:   filepath.Join(xdg.DataHome, config.AppName),
		State:  filepath.Join(xdg.StateHome, config.AppName),
	}
}

// LogDir is where the rotated log file lives.
func (d Dirs) LogDir() string {
	return d.State
}

// HistoryDbPath is the launch history database file.
func (d Dirs) HistoryDbPath() string {
	return filepath.Join(d.Data, config.HistoryDbFile)
}

// Ensure creates all directories.
func (d Dirs) Ensure() error {
	for _, dir := range []string{d.Config, d.Data, d.State} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
