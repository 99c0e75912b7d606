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

// URL handler choices for Indirect titles.
const (
	OpenXdg    = "xdg-open"
	OpenSteam  = "steam"
	OpenPortal = "portal"
)

var defaultMarkerVars = []string{"SteamAppId", "SteamGameId"}

type Steam struct {
	InstallDir     string   `toml:"install_dir,omitempty"`
	LaunchMode     string   `toml:"launch_mode" validate:"omitempty,oneof=vr launch rungameid"`
	OpenMethod     string   `toml:"open_method" validate:"omitempty,oneof=xdg-open steam portal"`
	SupervisorName string   `toml:"supervisor_name,omitempty" validate:"omitempty,max=15"`
	MarkerVars     []string `toml:"marker_vars,omitempty" validate:"dive,required"`
	VROnly         bool     `toml:"vr_only"`
	Protontricks   bool     `toml:"protontricks"`
}

func (c *Instance) SteamInstallDir() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Steam.InstallDir
}

func (c *Instance) SetSteamInstallDir(dir string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Steam.InstallDir = dir
}

func (c *Instance) LaunchMode() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Steam.LaunchMode
}

// OpenMethod returns how steam:// URLs are opened, defaulting to xdg-open.
func (c *Instance) OpenMethod() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Steam.OpenMethod == "" {
		return OpenXdg
	}
	return c.vals.Steam.OpenMethod
}

func (c *Instance) VROnly() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Steam.VROnly
}

func (c *Instance) ProtontricksEnabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Steam.Protontricks
}

// SupervisorName is the process name of Steam's launch supervisor. Empty
// means the built-in default.
func (c *Instance) SupervisorName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Steam.SupervisorName
}

// MarkerVars lists the env vars that carry a title's app id.
func (c *Instance) MarkerVars() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.vals.Steam.MarkerVars) == 0 {
		return append([]string(nil), defaultMarkerVars...)
	}
	return append([]string(nil), c.vals.Steam.MarkerVars...)
}
