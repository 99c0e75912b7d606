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

package catalog

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectProvider_ListTitles(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/opt/pavlov/pavlov.sh", []byte("#!/bin/sh\n"), 0o755))
	require.NoError(t, afero.WriteFile(fs, "/opt/lab/thelab", []byte{}, 0o755))
	require.NoError(t, fs.MkdirAll("/opt/notafile", 0o755))

	p := NewDirectProvider(fs, []DirectEntry{
		{Name: "Pavlov", Executable: "/opt/pavlov/pavlov.sh", Args: []string{"-vr"}, VR: true},
		{Executable: "/opt/lab/../lab/thelab"},
		{Name: "Relative", Executable: "bin/game"},
		{Name: "Missing", Executable: "/opt/missing/game"},
		{Name: "Directory", Executable: "/opt/notafile"},
	})

	titles, err := p.ListTitles(context.Background())

	require.NoError(t, err)
	require.Len(t, titles, 2)
	assert.Equal(t, Title{
		ID:         "/opt/pavlov/pavlov.sh",
		Name:       "Pavlov",
		Kind:       Direct,
		Executable: "/opt/pavlov/pavlov.sh",
		Args:       []string{"-vr"},
		VR:         true,
	}, titles[0])
	assert.Equal(t, "/opt/lab/thelab", titles[1].ID)
	assert.Equal(t, "thelab", titles[1].Name)
}

func TestDirectProvider_Empty(t *testing.T) {
	t.Parallel()

	titles, err := NewDirectProvider(afero.NewMemMapFs(), nil).ListTitles(context.Background())

	require.NoError(t, err)
	assert.Empty(t, titles)
}
