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

import (
	"net"
	"strconv"
)

type UI struct {
	RunningSound string `toml:"running_sound,omitempty" validate:"omitempty,filepath"`
	FailedSound  string `toml:"failed_sound,omitempty" validate:"omitempty,filepath"`
	FrameRate    int    `toml:"frame_rate" validate:"omitempty,gte=1,lte=240"`
	Sounds       bool   `toml:"sounds"`
}

type API struct {
	AllowedOrigins []string `toml:"allowed_origins,omitempty"`
	Port           int      `toml:"port" validate:"omitempty,gte=1,lte=65535"`
	Enabled        bool     `toml:"enabled"`
}

type History struct {
	RetentionDays int  `toml:"retention_days" validate:"gte=0"`
	Enabled       bool `toml:"enabled"`
}

// FrameRate is the frame loop tick rate in Hz.
func (c *Instance) FrameRate() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.UI.FrameRate <= 0 {
		return BaseDefaults.UI.FrameRate
	}
	return c.vals.UI.FrameRate
}

// SoundsEnabled reports whether launch outcomes play an audio cue.
func (c *Instance) SoundsEnabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.UI.Sounds
}

// SoundFiles returns custom cue files for running and failed launches.
func (c *Instance) SoundFiles() (running, failed string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.UI.RunningSound, c.vals.UI.FailedSound
}

func (c *Instance) APIEnabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.API.Enabled
}

func (c *Instance) SetAPIEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.API.Enabled = enabled
}

func (c *Instance) APIPort() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.apiPortLocked()
}

// apiPortLocked returns the API port. Caller must hold mu (read or write).
func (c *Instance) apiPortLocked() int {
	if c.vals.API.Port == 0 {
		return DefaultAPIPort
	}
	return c.vals.API.Port
}

func (c *Instance) SetAPIPort(port int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.API.Port = port
}

// APIListen is the loopback address the API binds to.
func (c *Instance) APIListen() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return net.JoinHostPort("127.0.0.1", strconv.Itoa(c.apiPortLocked()))
}

func (c *Instance) AllowedOrigins() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.API.AllowedOrigins
}

func (c *Instance) HistoryEnabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.History.Enabled
}

// RetentionDays is how long history is kept. Zero keeps it forever.
func (c *Instance) RetentionDays() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.History.RetentionDays
}
