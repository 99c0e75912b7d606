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

// Package steamtracker finds the process running a title that was started
// indirectly through the Steam client. Steam forks a "reaper" supervisor per
// launch, which starts the compatibility layer, which execs the game; the
// supervisor carrying the title's environment marker is the one we want.
package steamtracker

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/oxrlauncher/oxrlauncher/pkg/procscanner"
)

// DefaultSupervisorName is the comm of Steam's per-launch supervisor.
const DefaultSupervisorName = "reaper"

// steamLaunchArg marks a reaper started for a game launch.
const steamLaunchArg = "SteamLaunch"

var appIDRegex = regexp.MustCompile(`^AppId=(\d+)$`)

// DefaultMarkerVars are the environment variables Steam sets to the app id
// in every process of a launched title.
var DefaultMarkerVars = []string{"SteamAppId", "SteamGameId"}

// parseAppIDFromArgs returns the id of the AppId=<id> argument.
func parseAppIDFromArgs(args []string) (int, bool) {
	for _, arg := range args {
		m := appIDRegex.FindStringSubmatch(arg)
		if len(m) < 2 {
			continue
		}
		id, err := strconv.Atoi(m[1])
		if err != nil {
			return 0, false
		}
		return id, true
	}
	return 0, false
}

// isEntryMarker reports whether arg is one of the reaper's own bookkeeping
// arguments rather than part of the game's command line.
func isEntryMarker(arg string) bool {
	return arg == steamLaunchArg || arg == "--" || strings.HasPrefix(arg, "AppId=")
}

// payloadArgs returns the arguments of a supervisor's command line with the
// executable and entry markers removed.
func payloadArgs(proc procscanner.ProcessInfo) []string {
	args := proc.Args()
	if len(args) <= 1 {
		return nil
	}
	out := make([]string, 0, len(args)-1)
	for _, arg := range args[1:] {
		if isEntryMarker(arg) {
			continue
		}
		out = append(out, arg)
	}
	return out
}

// gamePathFromArgs returns the first argument after the last "--", which is
// where the reaper puts the command it supervises.
func gamePathFromArgs(args []string) string {
	last := -1
	for i, arg := range args {
		if arg == "--" {
			last = i
		}
	}
	if last == -1 || last >= len(args)-1 {
		return ""
	}
	return strings.TrimSpace(args[last+1])
}

// mentionsInstallDir reports whether any payload argument refers to the
// install directory, either by full path or by its steamapps/common folder.
func mentionsInstallDir(proc procscanner.ProcessInfo, installDir string) bool {
	if installDir == "" {
		return false
	}
	dir := filepath.Clean(installDir)
	fragment := string(filepath.Separator) + filepath.Base(dir) + string(filepath.Separator)
	for _, arg := range payloadArgs(proc) {
		if strings.HasPrefix(arg, dir) || strings.Contains(arg, fragment) {
			return true
		}
	}
	return false
}

// isLaunchSupervisor reports whether proc looks like a reaper started by
// SteamLaunch.
func isLaunchSupervisor(proc procscanner.ProcessInfo) bool {
	for _, arg := range proc.Args() {
		if arg == steamLaunchArg {
			return true
		}
	}
	return false
}
