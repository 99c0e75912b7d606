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
	"context"
	"errors"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/oxrlauncher/oxrlauncher/pkg/catalog"
	"github.com/oxrlauncher/oxrlauncher/pkg/catalog/steam"
	"github.com/oxrlauncher/oxrlauncher/pkg/helpers/command"
	"github.com/oxrlauncher/oxrlauncher/pkg/testing/helpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestDispatch_Indirect(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mode    steam.LaunchMode
		wantURL string
	}{
		{name: "vr_default", mode: "", wantURL: "steam://launch/620980/vr"},
		{name: "plain_launch", mode: steam.LaunchPlain, wantURL: "steam://launch/620980"},
		{name: "rungameid", mode: steam.LaunchRunGameID, wantURL: "steam://rungameid/620980"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cmd := helpers.NewMockCommandExecutor()
			cmd.ExpectedCalls = nil
			cmd.On("Start", mock.Anything, "xdg-open", []string{tc.wantURL}).Return(nil).Once()
			d := NewDispatcher(NewCommandOpener(cmd, ""), cmd, tc.mode)

			got, err := d.Dispatch(context.Background(), indirectTitle)

			require.NoError(t, err)
			assert.Equal(t, tc.wantURL, got.URL)
			assert.Zero(t, got.PID, "indirect launches have no pid yet")
			cmd.AssertExpectations(t)
		})
	}
}

func TestDispatch_HandlerUnavailable(t *testing.T) {
	t.Parallel()

	cmd := helpers.NewMockCommandExecutor()
	cmd.ExpectedCalls = nil
	cmd.On("Start", mock.Anything, "steam", mock.Anything).Return(errors.New("executable file not found"))
	d := NewDispatcher(NewCommandOpener(cmd, "steam"), cmd, steam.LaunchVR)

	_, err := d.Dispatch(context.Background(), indirectTitle)

	var lerr *LaunchError
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, HandlerUnavailable, lerr.Kind)
	assert.Equal(t, "620980", lerr.TitleID)
}

func TestDispatch_InvalidAppID(t *testing.T) {
	t.Parallel()

	cmd := helpers.NewMockCommandExecutor()
	d := NewDispatcher(NewCommandOpener(cmd, ""), cmd, "")

	_, err := d.Dispatch(context.Background(), catalog.Title{ID: "abc", Kind: catalog.Indirect})

	var lerr *LaunchError
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, HandlerUnavailable, lerr.Kind)
	cmd.AssertNotCalled(t, "Start", mock.Anything, mock.Anything, mock.Anything)
}

func TestDispatch_Direct(t *testing.T) {
	t.Parallel()

	t.Run("returns_spawned_pid", func(t *testing.T) {
		t.Parallel()

		cmd := helpers.NewMockCommandExecutor()
		cmd.ExpectedCalls = nil
		cmd.On("Spawn", mock.Anything,
			command.SpawnOptions{Dir: "/opt/game", NewProcessGroup: true},
			"/opt/game/game.x86_64", []string(nil),
		).Return(777, nil).Once()
		d := NewDispatcher(NewCommandOpener(cmd, ""), cmd, "")

		got, err := d.Dispatch(context.Background(), directTitle)

		require.NoError(t, err)
		assert.Equal(t, 777, got.PID)
		cmd.AssertExpectations(t)
	})

	t.Run("nonexistent_executable_is_spawn_failed", func(t *testing.T) {
		t.Parallel()

		d := NewDispatcher(nil, &command.RealExecutor{}, "")
		title := catalog.Title{ID: "/nonexistent/oxrl/game.x86_64", Kind: catalog.Direct}

		_, err := d.Dispatch(context.Background(), title)

		var lerr *LaunchError
		require.ErrorAs(t, err, &lerr)
		assert.Equal(t, SpawnFailed, lerr.Kind)
	})
}

type fakePortal struct {
	err    error
	method string
	args   []any
	// hang waits for the call context instead of replying.
	hang bool
}

func (f *fakePortal) CallWithContext(ctx context.Context, method string, _ dbus.Flags, args ...any) *dbus.Call {
	f.method = method
	f.args = args
	if f.hang {
		<-ctx.Done()
		return &dbus.Call{Err: ctx.Err()}
	}
	return &dbus.Call{Err: f.err}
}

func TestPortalOpener(t *testing.T) {
	t.Parallel()

	t.Run("calls_open_uri", func(t *testing.T) {
		t.Parallel()

		portal := &fakePortal{}
		o := &PortalOpener{connect: func() (portalObject, error) { return portal, nil }}

		require.NoError(t, o.Open(context.Background(), "steam://launch/620980/vr"))
		assert.Equal(t, portalOpenURI, portal.method)
		require.Len(t, portal.args, 3)
		assert.Equal(t, "steam://launch/620980/vr", portal.args[1])
	})

	t.Run("call_error", func(t *testing.T) {
		t.Parallel()

		portal := &fakePortal{err: errors.New("no handler")}
		o := &PortalOpener{connect: func() (portalObject, error) { return portal, nil }}

		require.Error(t, o.Open(context.Background(), "steam://launch/1/vr"))
	})

	t.Run("unresponsive_portal_fails_fast", func(t *testing.T) {
		t.Parallel()

		portal := &fakePortal{hang: true}
		o := &PortalOpener{connect: func() (portalObject, error) { return portal, nil }}
		d := NewDispatcher(o, nil, "")

		start := time.Now()
		_, err := d.Dispatch(context.Background(), catalog.Title{ID: "620980", Kind: catalog.Indirect})

		var lerr *LaunchError
		require.ErrorAs(t, err, &lerr)
		assert.Equal(t, HandlerUnavailable, lerr.Kind)
		require.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Less(t, time.Since(start), time.Second, "frame loop must not stall on the portal")
	})

	t.Run("no_session_bus", func(t *testing.T) {
		t.Parallel()

		o := &PortalOpener{connect: func() (portalObject, error) { return nil, errors.New("no bus") }}

		require.Error(t, o.Open(context.Background(), "steam://launch/1/vr"))
	})
}
