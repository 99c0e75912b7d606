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

// Package frame runs the frontend frame loop: the one goroutine that
// drives the launch session.
package frame

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/oxrlauncher/oxrlauncher/pkg/catalog"
	"github.com/oxrlauncher/oxrlauncher/pkg/helpers/syncutil"
	"github.com/oxrlauncher/oxrlauncher/pkg/launcher"
	"github.com/rs/zerolog/log"
)

const (
	DefaultFrameRate = 60
	// DefaultQueueSize bounds the commands waiting for the next frame.
	DefaultQueueSize = 16
)

var (
	ErrQueueFull = errors.New("frame loop command queue full")
	ErrStopped   = errors.New("frame loop stopped")
)

// Controller is the part of launcher.Session the loop drives.
type Controller interface {
	Launch(title catalog.Title) error
	Kill() error
	Poll() []launcher.Notification
	State() launcher.State
}

// Observer receives notifications on the loop goroutine and must return
// quickly.
type Observer func(n launcher.Notification, st launcher.State)

type commandKind int

const (
	cmdLaunch commandKind = iota
	cmdKill
)

type command struct {
	result chan error
	title  catalog.Title
	kind   commandKind
}

// Loop ticks at a fixed rate. Each tick it runs queued commands, polls the
// session once and fans notifications out to observers.
type Loop struct {
	clock     clockwork.Clock
	ctrl      Controller
	cmds      chan command
	stopped   chan struct{}
	observers map[int]Observer
	interval  time.Duration
	nextID    int
	mu        syncutil.Mutex
}

type Option func(*Loop)

func WithClock(clock clockwork.Clock) Option {
	return func(l *Loop) { l.clock = clock }
}

// WithFrameRate sets ticks per second. Values below 1 keep the default.
func WithFrameRate(hz int) Option {
	return func(l *Loop) {
		if hz > 0 {
			l.interval = time.Second / time.Duration(hz)
		}
	}
}

func WithQueueSize(n int) Option {
	return func(l *Loop) {
		if n > 0 {
			l.cmds = make(chan command, n)
		}
	}
}

func New(ctrl Controller, opts ...Option) *Loop {
	l := &Loop{
		clock:     clockwork.NewRealClock(),
		ctrl:      ctrl,
		cmds:      make(chan command, DefaultQueueSize),
		stopped:   make(chan struct{}),
		observers: make(map[int]Observer),
		interval:  time.Second / DefaultFrameRate,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Subscribe registers an observer. The returned func removes it.
func (l *Loop) Subscribe(obs Observer) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	id := l.nextID
	l.nextID++
	l.observers[id] = obs
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.observers, id)
	}
}

// State is safe to call from any goroutine.
func (l *Loop) State() launcher.State {
	return l.ctrl.State()
}

// Launch queues a launch and waits for the next frame to run it. The
// error is the session's synchronous result, e.g. launcher.ErrSessionBusy.
func (l *Loop) Launch(ctx context.Context, title catalog.Title) error {
	return l.submit(ctx, command{kind: cmdLaunch, title: title})
}

// Kill queues a kill of the current title.
func (l *Loop) Kill(ctx context.Context) error {
	return l.submit(ctx, command{kind: cmdKill})
}

func (l *Loop) submit(ctx context.Context, cmd command) error {
	cmd.result = make(chan error, 1)
	select {
	case <-l.stopped:
		return ErrStopped
	default:
	}
	select {
	case l.cmds <- cmd:
	default:
		return ErrQueueFull
	}
	select {
	case err := <-cmd.result:
		return err
	case <-l.stopped:
		return ErrStopped
	case <-ctx.Done():
		return fmt.Errorf("waiting for frame: %w", ctx.Err())
	}
}

// Run ticks until ctx is done. It must only be called once.
func (l *Loop) Run(ctx context.Context) {
	ticker := l.clock.NewTicker(l.interval)
	defer ticker.Stop()
	defer close(l.stopped)

	log.Debug().Dur("interval", l.interval).Msg("frame loop started")
	for {
		select {
		case <-ctx.Done():
			log.Debug().Msg("frame loop stopped")
			return
		case <-ticker.Chan():
			l.frame()
		}
	}
}

func (l *Loop) frame() {
drain:
	for {
		select {
		case cmd := <-l.cmds:
			cmd.result <- l.run(cmd)
		default:
			break drain
		}
	}

	notes := l.ctrl.Poll()
	if len(notes) == 0 {
		return
	}
	st := l.ctrl.State()

	l.mu.Lock()
	observers := make([]Observer, 0, len(l.observers))
	for _, obs := range l.observers {
		observers = append(observers, obs)
	}
	l.mu.Unlock()

	for _, n := range notes {
		for _, obs := range observers {
			obs(n, st)
		}
	}
}

func (l *Loop) run(cmd command) error {
	switch cmd.kind {
	case cmdLaunch:
		return l.ctrl.Launch(cmd.title)
	case cmdKill:
		return l.ctrl.Kill()
	default:
		return fmt.Errorf("unknown command %d", cmd.kind)
	}
}
