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

// Package proctracker watches processes for exit using pidfd_open on
// Linux 5.3+, falling back to kill(pid, 0) polling when pidfd is unavailable.
// The launcher uses it as the liveness check for a running title.
package proctracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/oxrlauncher/oxrlauncher/pkg/helpers/syncutil"
	"github.com/rs/zerolog/log"
	"golang.org/x/sys/unix"
)

// ErrProcessNotFound is returned when a process doesn't exist.
var ErrProcessNotFound = errors.New("process not found")

// DefaultPollInterval is the interval for the kill(0) fallback.
const DefaultPollInterval = 2 * time.Second

// pidfdPollTimeout bounds each poll(2) so cancellation is noticed.
const pidfdPollTimeout = 100

// ExitCallback is called once when a tracked process exits.
type ExitCallback func(pid int)

// AliveFunc reports whether a pid is alive. The default sends signal 0.
type AliveFunc func(pid int) (bool, error)

// Tracker monitors processes and calls callbacks when they exit.
type Tracker struct {
	clock        clockwork.Clock
	alive        AliveFunc
	tracked      map[int]*trackedProcess
	done         chan struct{}
	wg           sync.WaitGroup
	pollInterval time.Duration
	mu           syncutil.Mutex
	usePidfd     bool
	stopOnce     sync.Once
}

type trackedProcess struct {
	callback ExitCallback
	cancel   context.CancelFunc
	pid      int
	pidfd    int
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock sets the clock used by the polling fallback.
func WithClock(clock clockwork.Clock) Option {
	return func(t *Tracker) {
		t.clock = clock
	}
}

// WithPollInterval sets the polling fallback interval.
func WithPollInterval(d time.Duration) Option {
	return func(t *Tracker) {
		t.pollInterval = d
	}
}

// WithAliveFunc replaces the signal 0 check and forces polling mode.
func WithAliveFunc(fn AliveFunc) Option {
	return func(t *Tracker) {
		t.alive = fn
		t.usePidfd = false
	}
}

// New creates a new process tracker.
// It automatically detects whether pidfd_open is available.
func New(opts ...Option) *Tracker {
	t := &Tracker{
		clock:        clockwork.NewRealClock(),
		alive:        signalZero,
		tracked:      make(map[int]*trackedProcess),
		done:         make(chan struct{}),
		pollInterval: DefaultPollInterval,
		usePidfd:     checkPidfdSupport(),
	}
	for _, opt := range opts {
		opt(t)
	}

	if t.usePidfd {
		log.Debug().Msg("proctracker: using pidfd_open for process tracking")
	} else {
		log.Debug().Msg("proctracker: using poll fallback")
	}
	return t
}

// Track starts monitoring a process and calls the callback when it exits.
// Returns ErrProcessNotFound if the process doesn't exist. Tracking an
// already tracked pid is a no-op.
func (t *Tracker) Track(pid int, callback ExitCallback) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	select {
	case <-t.done:
		return errors.New("tracker stopped")
	default:
	}

	if _, exists := t.tracked[pid]; exists {
		return nil
	}

	ok, err := t.alive(pid)
	if err != nil {
		return fmt.Errorf("check process %d: %w", pid, err)
	}
	if !ok {
		return ErrProcessNotFound
	}

	ctx, cancel := context.WithCancel(context.Background())
	tp := &trackedProcess{
		pid:      pid,
		pidfd:    -1,
		callback: callback,
		cancel:   cancel,
	}

	if t.usePidfd {
		fd, err := unix.PidfdOpen(pid, 0)
		switch {
		case errors.Is(err, unix.ESRCH):
			cancel()
			return ErrProcessNotFound
		case err != nil:
			log.Debug().Err(err).Int("pid", pid).Msg("pidfd_open failed, using poll fallback")
		default:
			tp.pidfd = fd
		}
	}

	t.tracked[pid] = tp

	t.wg.Add(1)
	if tp.pidfd >= 0 {
		go t.watchPidfd(ctx, tp, tp.pidfd)
	} else {
		go t.watchPoll(ctx, tp)
	}

	return nil
}

// Untrack stops monitoring a process without calling its callback.
func (t *Tracker) Untrack(pid int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if tp, exists := t.tracked[pid]; exists {
		t.release(tp)
	}
}

// Tracked reports whether pid is currently being watched.
func (t *Tracker) Tracked(pid int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.tracked[pid]
	return ok
}

// Stop stops all tracking and waits for goroutines to finish.
// Safe to call multiple times.
func (t *Tracker) Stop() {
	t.stopOnce.Do(func() {
		close(t.done)

		t.mu.Lock()
		for _, tp := range t.tracked {
			t.release(tp)
		}
		t.mu.Unlock()

		t.wg.Wait()
	})
}

// release must be called with mu held.
func (t *Tracker) release(tp *trackedProcess) {
	tp.cancel()
	if tp.pidfd >= 0 {
		_ = unix.Close(tp.pidfd)
		tp.pidfd = -1
	}
	delete(t.tracked, tp.pid)
}

// watchPidfd waits for the pidfd to become readable, which happens on exit.
func (t *Tracker) watchPidfd(ctx context.Context, tp *trackedProcess, pidfd int) {
	defer t.wg.Done()

	pollFds := []unix.PollFd{
		{Fd: int32(pidfd), Events: unix.POLLIN}, //nolint:gosec // pidfd is always small
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.done:
			return
		default:
		}

		n, err := unix.Poll(pollFds, pidfdPollTimeout)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			log.Warn().Err(err).Int("pid", tp.pid).Msg("poll error on pidfd")
			return
		}

		if n > 0 && pollFds[0].Revents&(unix.POLLIN|unix.POLLHUP) != 0 {
			t.handleExit(tp)
			return
		}
	}
}

// watchPoll checks the process on every tick.
func (t *Tracker) watchPoll(ctx context.Context, tp *trackedProcess) {
	defer t.wg.Done()

	ticker := t.clock.NewTicker(t.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.done:
			return
		case <-ticker.Chan():
			ok, err := t.alive(tp.pid)
			if err != nil {
				log.Warn().Err(err).Int("pid", tp.pid).Msg("liveness check failed")
				continue
			}
			if !ok {
				t.handleExit(tp)
				return
			}
		}
	}
}

// handleExit cleans up and calls the exit callback.
func (t *Tracker) handleExit(tp *trackedProcess) {
	t.mu.Lock()
	if current, exists := t.tracked[tp.pid]; !exists || current != tp {
		t.mu.Unlock()
		return
	}
	t.release(tp)
	t.mu.Unlock()

	log.Debug().Int("pid", tp.pid).Msg("tracked process exited")
	if tp.callback != nil {
		tp.callback(tp.pid)
	}
}

// signalZero checks process existence with kill(pid, 0).
func signalZero(pid int) (bool, error) {
	err := unix.Kill(pid, 0)
	switch {
	case err == nil, errors.Is(err, unix.EPERM):
		return true, nil
	case errors.Is(err, unix.ESRCH):
		return false, nil
	default:
		return false, fmt.Errorf("kill(%d, 0): %w", pid, err)
	}
}

// checkPidfdSupport tests if pidfd_open is available.
func checkPidfdSupport() bool {
	fd, err := unix.PidfdOpen(unix.Getpid(), 0)
	if err != nil {
		return false
	}
	_ = unix.Close(fd)
	return true
}
