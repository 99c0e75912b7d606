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

package launcher

import (
	"errors"
	"fmt"
)

// ErrSessionBusy is returned when a launch is requested while a title is
// starting or running. The request is not queued.
var ErrSessionBusy = errors.New("a title is already starting or running")

// LaunchErrorKind classifies a failed dispatch.
type LaunchErrorKind int

const (
	// HandlerUnavailable means the OS URL handler could not be invoked.
	HandlerUnavailable LaunchErrorKind = iota
	// SpawnFailed means a direct title's executable could not be started.
	SpawnFailed
)

func (k LaunchErrorKind) String() string {
	switch k {
	case HandlerUnavailable:
		return "handler unavailable"
	case SpawnFailed:
		return "spawn failed"
	default:
		return "unknown"
	}
}

// LaunchError is returned by Dispatch.
type LaunchError struct {
	Err     error
	TitleID string
	Kind    LaunchErrorKind
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launch %s: %s: %v", e.TitleID, e.Kind, e.Err)
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}
