//go:build deadlock

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

// Package syncutil wraps the sync mutexes so lock-order bugs in the launcher
// session can be caught during development with -tags=deadlock.
package syncutil

import (
	"time"

	deadlock "github.com/sasha-s/go-deadlock"
)

// DeadlockEnabled reports whether the detector is compiled in.
const DeadlockEnabled = true

func init() {
	// termination and discovery can legitimately hold a lock for a few
	// seconds while the process table is walked
	deadlock.Opts.DeadlockTimeout = 20 * time.Second
}

// Mutex is a mutual exclusion lock backed by go-deadlock.
type Mutex struct {
	deadlock.Mutex
}

// RWMutex is a reader/writer lock backed by go-deadlock.
type RWMutex struct {
	deadlock.RWMutex
}
