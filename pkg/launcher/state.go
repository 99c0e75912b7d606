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
	"github.com/google/uuid"
	"github.com/oxrlauncher/oxrlauncher/pkg/catalog"
)

// Phase is the tag of a State.
type Phase int

const (
	NotStarted Phase = iota
	Starting
	Running
)

func (p Phase) String() string {
	switch p {
	case NotStarted:
		return "not_started"
	case Starting:
		return "starting"
	case Running:
		return "running"
	default:
		return "unknown"
	}
}

// ProcessHandle is a lookup key for the process running a title. It does
// not own the process and goes stale as soon as the process exits.
type ProcessHandle struct {
	Title catalog.Title
	PID   int
}

// TitleID is the id of the title the handle refers to.
func (h ProcessHandle) TitleID() string {
	return h.Title.ID
}

// State is the launch state. Title is set while Starting and Running;
// Handle only while Running.
type State struct {
	Title  catalog.Title
	Handle ProcessHandle
	Phase  Phase
}

// Machine holds the single authoritative launch state. It is not safe for
// concurrent use; only the frame loop mutates it.
type Machine struct {
	state   State
	attempt uuid.UUID
}

// State returns the current state.
func (m *Machine) State() State {
	return m.state
}

// Attempt is the id of the current launch attempt, uuid.Nil when idle.
func (m *Machine) Attempt() uuid.UUID {
	return m.attempt
}

// Begin moves NotStarted to Starting and opens a new attempt.
func (m *Machine) Begin(title catalog.Title) (uuid.UUID, error) {
	if m.state.Phase != NotStarted {
		return uuid.Nil, ErrSessionBusy
	}
	m.attempt = uuid.New()
	m.state = State{Phase: Starting, Title: title}
	return m.attempt, nil
}

// Found moves Starting to Running. It is ignored for other attempts.
func (m *Machine) Found(attempt uuid.UUID, handle ProcessHandle) bool {
	if attempt != m.attempt || m.state.Phase != Starting {
		return false
	}
	m.state = State{Phase: Running, Title: m.state.Title, Handle: handle}
	return true
}

// Abort moves Starting back to NotStarted after a timeout or dispatch
// failure.
func (m *Machine) Abort(attempt uuid.UUID) bool {
	if attempt != m.attempt || m.state.Phase != Starting {
		return false
	}
	m.reset()
	return true
}

// Stop moves Running back to NotStarted after the title exited or was
// killed.
func (m *Machine) Stop(attempt uuid.UUID) bool {
	if attempt != m.attempt || m.state.Phase != Running {
		return false
	}
	m.reset()
	return true
}

func (m *Machine) reset() {
	m.state = State{}
	m.attempt = uuid.Nil
}
