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

// Package tui is the terminal frontend: a title list and a status line.
package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/oxrlauncher/oxrlauncher/pkg/catalog"
	"github.com/oxrlauncher/oxrlauncher/pkg/launcher"
	"github.com/oxrlauncher/oxrlauncher/pkg/ui/frame"
	"github.com/rivo/tview"
	"github.com/rs/zerolog/log"
)

const (
	hints         = "Enter: Launch | k: Kill | r: Reload | q: Quit"
	submitTimeout = 5 * time.Second
)

// Controller is the frame loop as seen by the TUI.
type Controller interface {
	Launch(ctx context.Context, title catalog.Title) error
	Kill(ctx context.Context) error
	State() launcher.State
	Subscribe(obs frame.Observer) func()
}

// Loader reloads the catalog.
type Loader func(ctx context.Context) ([]catalog.Title, error)

type App struct {
	ctrl   Controller
	load   Loader
	app    *tview.Application
	page   *Page
	list   *tview.List
	titles []catalog.Title
	reason string
}

func New(ctrl Controller, load Loader) *App {
	a := &App{
		ctrl: ctrl,
		load: load,
		app:  tview.NewApplication(),
		page: NewPage(),
		list: tview.NewList().SetHighlightFullLine(true),
	}
	a.page.SetTitle("OpenXR Launcher", "Titles").SetContent(a.list).SetHints(hints)
	a.app.SetRoot(a.page, true).EnableMouse(true)
	a.app.SetInputCapture(a.handleKey)
	return a
}

// Run shows the UI until the user quits or ctx is done.
func (a *App) Run(ctx context.Context) error {
	a.reload(ctx)
	a.render(a.ctrl.State())

	unsubscribe := a.ctrl.Subscribe(func(n launcher.Notification, st launcher.State) {
		a.app.QueueUpdateDraw(func() {
			a.observe(n, st)
		})
	})
	defer unsubscribe()

	go func() {
		<-ctx.Done()
		a.app.Stop()
	}()

	if err := a.app.Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}

func (a *App) observe(n launcher.Notification, st launcher.State) {
	switch n.Kind {
	case launcher.NotifyStarting, launcher.NotifyRunning:
		a.reason = ""
	case launcher.NotifyNotStarted:
		a.reason = n.Reason
	}
	a.render(st)
}

func (a *App) render(st launcher.State) {
	a.page.Status().SetText(statusText(st, a.reason))
}

func (a *App) setTitles(titles []catalog.Title) {
	a.titles = titles
	a.list.Clear()
	for _, t := range titles {
		a.list.AddItem(titleLabel(t), titleSecondary(t), 0, nil)
	}
	a.page.SetTitle("OpenXR Launcher", fmt.Sprintf("Titles (%d)", len(titles)))
}

func (a *App) reload(ctx context.Context) {
	titles, err := a.load(ctx)
	a.applyLoad(titles, err)
}

// reloadAsync loads off the UI goroutine and applies the result on it.
func (a *App) reloadAsync() {
	ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
	defer cancel()
	titles, err := a.load(ctx)
	a.app.QueueUpdateDraw(func() {
		a.applyLoad(titles, err)
		a.render(a.ctrl.State())
	})
}

func (a *App) applyLoad(titles []catalog.Title, err error) {
	if err != nil {
		log.Error().Err(err).Msg("failed to load titles")
		a.reason = "could not load titles: " + err.Error()
		return
	}
	a.setTitles(titles)
}

func (a *App) selected() (catalog.Title, bool) {
	i := a.list.GetCurrentItem()
	if i < 0 || i >= len(a.titles) {
		return catalog.Title{}, false
	}
	return a.titles[i], true
}

func (a *App) handleKey(event *tcell.EventKey) *tcell.EventKey {
	switch event.Key() { //nolint:exhaustive
	case tcell.KeyEnter:
		if t, ok := a.selected(); ok {
			go a.submit(func(ctx context.Context) error { return a.ctrl.Launch(ctx, t) })
		}
		return nil
	case tcell.KeyEscape:
		a.app.Stop()
		return nil
	case tcell.KeyRune:
		switch event.Rune() {
		case 'k':
			go a.submit(a.ctrl.Kill)
			return nil
		case 'r':
			go a.reloadAsync()
			return nil
		case 'q':
			a.app.Stop()
			return nil
		}
	}
	return event
}

// submit runs a command off the UI goroutine and shows its error.
func (a *App) submit(cmd func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
	defer cancel()
	err := cmd(ctx)
	if err == nil {
		return
	}
	msg := err.Error()
	if errors.Is(err, launcher.ErrSessionBusy) {
		msg = "a title is already running, kill it first"
	}
	a.app.QueueUpdateDraw(func() {
		a.reason = msg
		a.render(a.ctrl.State())
	})
}
