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

package config

// TitleEntry declares a Direct title in [[titles]].
type TitleEntry struct {
	Name       string   `toml:"name" validate:"required"`
	Executable string   `toml:"executable" validate:"required"`
	InstallDir string   `toml:"install_dir,omitempty"`
	Args       []string `toml:"args,omitempty"`
	VR         bool     `toml:"vr"`
}

func (c *Instance) DirectTitles() []TitleEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]TitleEntry(nil), c.vals.Titles...)
}

func (c *Instance) AddDirectTitle(entry TitleEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Titles = append(c.vals.Titles, entry)
}
