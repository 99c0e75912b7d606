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
	"fmt"
	"path/filepath"

	"github.com/oxrlauncher/oxrlauncher/pkg/catalog"
	"github.com/oxrlauncher/oxrlauncher/pkg/catalog/steam"
	"github.com/oxrlauncher/oxrlauncher/pkg/helpers/command"
	"github.com/rs/zerolog/log"
)

// Opener hands a URL to whatever the desktop has registered for its scheme.
type Opener interface {
	Open(ctx context.Context, url string) error
}

// Dispatched is the immediate result of a dispatch. PID is only known for
// direct titles.
type Dispatched struct {
	URL string
	PID int
}

// Dispatcher issues the OS-level launch action for a title. It never waits
// for the title to appear.
type Dispatcher struct {
	opener Opener
	exec   command.Executor
	mode   steam.LaunchMode
}

// NewDispatcher creates a Dispatcher. An empty mode means steam.LaunchVR.
func NewDispatcher(opener Opener, exec command.Executor, mode steam.LaunchMode) *Dispatcher {
	if mode == "" {
		mode = steam.LaunchVR
	}
	return &Dispatcher{opener: opener, exec: exec, mode: mode}
}

// Dispatch starts title. Indirect titles are opened as a steam:// URL;
// direct titles are spawned and their pid returned.
func (d *Dispatcher) Dispatch(ctx context.Context, title catalog.Title) (Dispatched, error) {
	switch title.Kind {
	case catalog.Direct:
		return d.spawn(ctx, title)
	case catalog.Indirect:
		return d.open(ctx, title)
	default:
		return Dispatched{}, &LaunchError{
			TitleID: title.ID,
			Kind:    HandlerUnavailable,
			Err:     fmt.Errorf("unknown launch kind %d", title.Kind),
		}
	}
}

func (d *Dispatcher) open(ctx context.Context, title catalog.Title) (Dispatched, error) {
	appID, ok := title.AppID()
	if !ok {
		return Dispatched{}, &LaunchError{
			TitleID: title.ID,
			Kind:    HandlerUnavailable,
			Err:     fmt.Errorf("invalid app id %q", title.ID),
		}
	}

	url := steam.LaunchURL(d.mode, appID)
	if err := d.opener.Open(ctx, url); err != nil {
		return Dispatched{}, &LaunchError{TitleID: title.ID, Kind: HandlerUnavailable, Err: err}
	}
	log.Info().Str("titleID", title.ID).Str("url", url).Msg("launch handed to url handler")
	return Dispatched{URL: url}, nil
}

func (d *Dispatcher) spawn(ctx context.Context, title catalog.Title) (Dispatched, error) {
	exe := title.Executable
	if exe == "" {
		exe = title.ID
	}
	dir := title.InstallDir
	if dir == "" {
		dir = filepath.Dir(exe)
	}

	pid, err := d.exec.Spawn(ctx, command.SpawnOptions{Dir: dir, NewProcessGroup: true}, exe, title.Args...)
	if err != nil {
		return Dispatched{}, &LaunchError{TitleID: title.ID, Kind: SpawnFailed, Err: err}
	}
	log.Info().Str("titleID", title.ID).Int("pid", pid).Msg("spawned direct title")
	return Dispatched{PID: pid}, nil
}
