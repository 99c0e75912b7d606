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

// Package models holds the JSON shapes of the local API.
package models

import (
	"github.com/oxrlauncher/oxrlauncher/pkg/catalog"
	"github.com/oxrlauncher/oxrlauncher/pkg/database/historydb"
	"github.com/oxrlauncher/oxrlauncher/pkg/launcher"
)

// Event names sent on the websocket.
const (
	EventStarting   = "launch.starting"
	EventRunning    = "launch.running"
	EventNotStarted = "launch.not_started"
	EventState      = "state"
)

// State is the launch state as reported by GET /api/state.
type State struct {
	Title *catalog.Title `json:"title,omitempty"`
	Phase string         `json:"phase"`
	PID   int            `json:"pid,omitempty"`
}

func NewState(st launcher.State) State {
	out := State{Phase: st.Phase.String()}
	if st.Phase != launcher.NotStarted {
		title := st.Title
		out.Title = &title
	}
	if st.Phase == launcher.Running {
		out.PID = st.Handle.PID
	}
	return out
}

// Event is one websocket message.
type Event struct {
	Event   string `json:"event"`
	TitleID string `json:"titleId,omitempty"`
	Reason  string `json:"reason,omitempty"`
	State   State  `json:"state"`
}

func NewEvent(n launcher.Notification, st launcher.State) Event {
	return Event{
		Event:   EventName(n.Kind),
		TitleID: n.TitleID,
		Reason:  n.Reason,
		State:   NewState(st),
	}
}

func EventName(kind launcher.NotificationKind) string {
	switch kind {
	case launcher.NotifyStarting:
		return EventStarting
	case launcher.NotifyRunning:
		return EventRunning
	case launcher.NotifyNotStarted:
		return EventNotStarted
	default:
		return "launch." + kind.String()
	}
}

type Titles struct {
	Titles []catalog.Title `json:"titles"`
}

type History struct {
	Launches []historydb.Entry `json:"launches"`
}

// LaunchRequest is the body of POST /api/launch.
type LaunchRequest struct {
	Query string `json:"query" validate:"required,max=256"`
}

// LaunchByID is validated against the current catalog.
type LaunchByID struct {
	ID string `validate:"required,titleid,known"`
}

type HistoryQuery struct {
	Limit int `validate:"gte=0,lte=500"`
}

type Launched struct {
	Title catalog.Title `json:"title"`
}

type Error struct {
	Fields any    `json:"fields,omitempty"`
	Error  string `json:"error"`
}
