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

package tui

import (
	"fmt"

	"github.com/oxrlauncher/oxrlauncher/pkg/catalog"
	"github.com/oxrlauncher/oxrlauncher/pkg/launcher"
	"github.com/rivo/tview"
)

// titleLabel is the list entry for a title.
func titleLabel(t catalog.Title) string {
	label := tview.Escape(t.Name)
	if t.VR {
		label += " [::d](VR)[::-]"
	}
	return label
}

func titleSecondary(t catalog.Title) string {
	if t.Kind == catalog.Direct {
		return "  " + tview.Escape(t.Executable)
	}
	return "  Steam app " + t.ID
}

// statusText renders the session state and the last failure reason.
func statusText(st launcher.State, reason string) string {
	var line string
	switch st.Phase {
	case launcher.Starting:
		line = fmt.Sprintf("[yellow::b]Starting[-::-] %s", tview.Escape(st.Title.Name))
	case launcher.Running:
		line = fmt.Sprintf("[green::b]Running[-::-] %s [::d](pid %d)[::-]", tview.Escape(st.Title.Name), st.Handle.PID)
	default:
		line = "[::b]Idle[::-]"
	}
	if reason != "" {
		line += "\n[red]" + tview.Escape(reason) + "[-]"
	}
	return line
}
