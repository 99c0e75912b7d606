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

// Package steam reads the local Steam installation: its libraries, app
// manifests and app info cache. It provides the Indirect titles of the
// catalog.
package steam

import (
	"errors"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// ErrSteamNotFound is returned when no Steam root directory exists.
var ErrSteamNotFound = errors.New("steam installation not found")

// RootCandidates lists possible Steam roots in lookup order: the configured
// directory, then STEAM_DIR, then the usual per-user locations including the
// Flatpak one.
func RootCandidates(configured, envDir, home string) []string {
	var out []string
	if configured != "" {
		out = append(out, configured)
	}
	if envDir != "" {
		out = append(out, envDir)
	}
	if home != "" {
		out = append(out,
			filepath.Join(home, ".steam", "root"),
			filepath.Join(home, ".steam", "steam"),
			filepath.Join(home, ".local", "share", "Steam"),
			filepath.Join(home, ".var", "app", "com.valvesoftware.Steam", ".steam", "steam"),
		)
	}
	return out
}

// FindRoot returns the first candidate containing a steamapps directory.
// Symlinks such as ~/.steam/root are resolved.
func FindRoot(fs afero.Fs, candidates []string) (string, error) {
	for _, dir := range candidates {
		if ok, _ := afero.DirExists(fs, SteamAppsDir(fs, dir)); !ok {
			continue
		}
		if _, isOs := fs.(*afero.OsFs); isOs {
			if resolved, err := filepath.EvalSymlinks(dir); err == nil {
				dir = resolved
			}
		}
		log.Debug().Str("path", dir).Msg("found steam root")
		return dir, nil
	}
	return "", ErrSteamNotFound
}

// SteamAppsDir returns the steamapps directory of a library or Steam root,
// accepting the mixed-case spelling older installs used.
func SteamAppsDir(fs afero.Fs, root string) string {
	for _, name := range []string{"steamapps", "SteamApps"} {
		path := filepath.Join(root, name)
		if ok, _ := afero.DirExists(fs, path); ok {
			return path
		}
	}
	return filepath.Join(root, "steamapps")
}
