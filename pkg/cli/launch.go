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

package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/oxrlauncher/oxrlauncher/pkg/api/models"
	"github.com/oxrlauncher/oxrlauncher/pkg/catalog"
	"github.com/oxrlauncher/oxrlauncher/pkg/launcher"
	"github.com/oxrlauncher/oxrlauncher/pkg/ui/frame"
	"github.com/rs/zerolog/log"
)

const killGrace = 10 * time.Second

// Controller is the in-process frame loop.
type Controller interface {
	Launch(ctx context.Context, title catalog.Title) error
	Kill(ctx context.Context) error
	Subscribe(obs frame.Observer) func()
}

// Loader returns the current catalog.
type Loader func(ctx context.Context) ([]catalog.Title, error)

// LaunchLocal finds query in the catalog, launches it and blocks until the
// title exits. Cancelling ctx kills the title.
func LaunchLocal(ctx context.Context, ctrl Controller, load Loader, query string, out io.Writer) error {
	titles, err := load(ctx)
	if err != nil {
		return err
	}
	title, err := catalog.Search(titles, query)
	if err != nil {
		return fmt.Errorf("finding %q: %w", query, err)
	}

	events := make(chan models.Event, 16)
	unsubscribe := ctrl.Subscribe(func(n launcher.Notification, st launcher.State) {
		if n.TitleID != title.ID {
			return
		}
		select {
		case events <- models.NewEvent(n, st):
		default:
			log.Warn().Str("titleID", n.TitleID).Msg("dropping launch event, reader is behind")
		}
	})
	defer unsubscribe()

	if err := ctrl.Launch(ctx, title); err != nil {
		return fmt.Errorf("launch %s: %w", title.Name, err)
	}
	_, _ = fmt.Fprintf(out, "starting %s\n", title.Name)

	running := false
	for {
		select {
		case <-ctx.Done():
			return killAndWait(ctrl, events, out, title)
		case ev := <-events:
			switch ev.Event {
			case models.EventRunning:
				running = true
				printState(out, ev.State)
			case models.EventNotStarted:
				if !running {
					return fmt.Errorf("%w: %s", ErrNotStarted, ev.Reason)
				}
				_, _ = fmt.Fprintf(out, "%s exited\n", title.Name)
				return nil
			}
		}
	}
}

func killAndWait(ctrl Controller, events <-chan models.Event, out io.Writer, title catalog.Title) error {
	ctx, cancel := context.WithTimeout(context.Background(), killGrace)
	defer cancel()

	_, _ = fmt.Fprintf(out, "stopping %s\n", title.Name)
	if err := ctrl.Kill(ctx); err != nil {
		return fmt.Errorf("kill %s: %w", title.Name, err)
	}
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for %s to stop: %w", title.Name, ctx.Err())
		case ev := <-events:
			if ev.Event == models.EventNotStarted {
				return nil
			}
		}
	}
}
