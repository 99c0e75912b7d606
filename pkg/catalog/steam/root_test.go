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
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCandidates(t *testing.T) {
	t.Parallel()

	got := RootCandidates("/opt/steam", "/env/steam", "/home/user")
	assert.Equal(t, []string{
		"/opt/steam",
		"/env/steam",
		"/home/user/.steam/root",
		"/home/user/.steam/steam",
		"/home/user/.local/share/Steam",
		"/home/user/.var/app/com.valvesoftware.Steam/.steam/steam",
	}, got)

	assert.Empty(t, RootCandidates("", "", ""))
}

func TestFindRoot(t *testing.T) {
	t.Parallel()

	t.Run("first with steamapps wins", func(t *testing.T) {
		t.Parallel()
		fs := afero.NewMemMapFs()
		require.NoError(t, fs.MkdirAll("/env/steam/steamapps", 0o755))
		require.NoError(t, fs.MkdirAll("/home/user/.local/share/Steam/steamapps", 0o755))
		require.NoError(t, fs.MkdirAll("/opt/steam", 0o755))

		root, err := FindRoot(fs, RootCandidates("/opt/steam", "/env/steam", "/home/user"))
		require.NoError(t, err)
		assert.Equal(t, "/env/steam", root)
	})

	t.Run("legacy SteamApps spelling", func(t *testing.T) {
		t.Parallel()
		fs := afero.NewMemMapFs()
		require.NoError(t, fs.MkdirAll("/old/SteamApps", 0o755))

		root, err := FindRoot(fs, []string{"/old"})
		require.NoError(t, err)
		assert.Equal(t, "/old", root)
		assert.Equal(t, "/old/SteamApps", SteamAppsDir(fs, root))
	})

	t.Run("not found", func(t *testing.T) {
		t.Parallel()
		_, err := FindRoot(afero.NewMemMapFs(), RootCandidates("", "", "/home/user"))
		require.ErrorIs(t, err, ErrSteamNotFound)
	})
}
