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

package steam

import (
	"fmt"
	"strings"
)

// LaunchMode selects the steam:// URL used to start a title.
type LaunchMode string

const (
	// LaunchVR asks Steam to start the title in its VR mode.
	LaunchVR LaunchMode = "vr"
	// LaunchPlain starts the title with its default launch option.
	LaunchPlain LaunchMode = "launch"
	// LaunchRunGameID uses the older rungameid form, which also works for
	// non-Steam shortcuts.
	LaunchRunGameID LaunchMode = "rungameid"
)

// ParseLaunchMode validates a configured mode. Empty means LaunchVR.
func ParseLaunchMode(s string) (LaunchMode, error) {
	switch mode := LaunchMode(strings.ToLower(strings.TrimSpace(s))); mode {
	case "":
		return LaunchVR, nil
	case LaunchVR, LaunchPlain, LaunchRunGameID:
		return mode, nil
	default:
		return "", fmt.Errorf("unknown steam launch mode %q", s)
	}
}

// LaunchURL builds the URL handed to the desktop URL handler.
func LaunchURL(mode LaunchMode, appID int) string {
	switch mode {
	case LaunchPlain:
		return fmt.Sprintf("steam://launch/%d", appID)
	case LaunchRunGameID:
		return fmt.Sprintf("steam://rungameid/%d", appID)
	default:
		return fmt.Sprintf("steam://launch/%d/vr", appID)
	}
}
