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
	"context"
	"errors"
	"testing"

	"github.com/oxrlauncher/oxrlauncher/pkg/testing/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const protontricksOutput = `Found the following games:
Beat Saber (620980)
Half-Life: Alyx (546560)
Some Game 2 (1234567) (1234567)

To run Protontricks for the chosen game, run:
$ protontricks APPID COMMAND
`

func TestParseProtontricksList(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []int{620980, 546560, 1234567}, ParseProtontricksList(protontricksOutput))
	assert.Empty(t, ParseProtontricksList("No games found\n"))
	assert.Empty(t, ParseProtontricksList("Game (abc) (0)"))
}

func TestProtontricksProvider_ListTitles(t *testing.T) {
	t.Parallel()

	t.Run("names_from_manifests", func(t *testing.T) {
		t.Parallel()

		cmd := &mocks.MockCommandExecutor{}
		cmd.On("OutputEnv", mock.Anything, []string{"STEAM_DIR=" + testRoot}, "protontricks", []string{"-l"}).
			Return([]byte(protontricksOutput), nil).Once()
		p := NewProtontricksProvider(cmd, newSteamFs(t, false), testRoot)

		titles, err := p.ListTitles(context.Background())

		require.NoError(t, err)
		cmd.AssertExpectations(t)
		require.Len(t, titles, 3)
		assert.Equal(t, "Beat Saber", titles[0].Name)
		assert.Equal(t, "Half-Life: Alyx", titles[1].Name)
		assert.Equal(t, "1234567", titles[2].Name, "unknown ids fall back to the id")
	})

	t.Run("helper_missing", func(t *testing.T) {
		t.Parallel()

		cmd := &mocks.MockCommandExecutor{}
		cmd.On("OutputEnv", mock.Anything, mock.Anything, "protontricks", mock.Anything).
			Return(nil, errors.New("executable file not found in $PATH"))
		p := NewProtontricksProvider(cmd, newSteamFs(t, false), testRoot)

		_, err := p.ListTitles(context.Background())

		require.ErrorIs(t, err, ErrProtontricksUnavailable)
	})
}
