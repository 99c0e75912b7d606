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

import "time"

// Tracker tunes discovery of the launch supervisor. Durations use Go
// syntax, e.g. "5s" or "500ms".
type Tracker struct {
	SettleDelay  string `toml:"settle_delay" validate:"duration"`
	ScanInterval string `toml:"scan_interval" validate:"duration"`
	MaxAttempts  int    `toml:"max_attempts" validate:"gte=0,lte=1000"`
}

func (c *Instance) SettleDelay() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return parseDuration(c.vals.Tracker.SettleDelay)
}

func (c *Instance) ScanInterval() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return parseDuration(c.vals.Tracker.ScanInterval)
}

func (c *Instance) MaxAttempts() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Tracker.MaxAttempts
}

// parseDuration returns 0 for empty or invalid values so callers fall back
// to their own defaults. Load has already rejected invalid ones.
func parseDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}
