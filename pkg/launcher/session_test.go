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
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/oxrlauncher/oxrlauncher/pkg/catalog"
	"github.com/oxrlauncher/oxrlauncher/pkg/helpers/command"
	"github.com/oxrlauncher/oxrlauncher/pkg/launcher/proctree"
	"github.com/oxrlauncher/oxrlauncher/pkg/launcher/steamtracker"
	"github.com/oxrlauncher/oxrlauncher/pkg/procscanner"
	"github.com/oxrlauncher/oxrlauncher/pkg/proctracker"
	"github.com/oxrlauncher/oxrlauncher/pkg/testing/helpers"
	"github.com/oxrlauncher/oxrlauncher/pkg/testing/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type discovery struct {
	err error
	pid int
}

type fakeDiscoverer struct {
	results chan discovery
	calls   atomic.Int32
}

func newFakeDiscoverer() *fakeDiscoverer {
	return &fakeDiscoverer{results: make(chan discovery, 1)}
}

func (f *fakeDiscoverer) Discover(ctx context.Context, _ catalog.Title) (steamtracker.Candidate, error) {
	f.calls.Add(1)
	select {
	case r := <-f.results:
		if r.err != nil {
			return steamtracker.Candidate{}, r.err
		}
		return steamtracker.Candidate{Process: procscanner.ProcessInfo{PID: r.pid}}, nil
	case <-ctx.Done():
		return steamtracker.Candidate{}, ctx.Err()
	}
}

type fakeTerminator struct {
	err   error
	pids  []int
	mu    sync.Mutex
	block chan struct{}
}

func (f *fakeTerminator) Terminate(_ context.Context, _ catalog.Title, pid int) (proctree.Report, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pids = append(f.pids, pid)
	return proctree.Report{Root: pid, Members: []int{pid}}, f.err
}

func (f *fakeTerminator) calls() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.pids...)
}

type fakeLiveness struct {
	trackErr error
	watched  map[int]proctracker.ExitCallback
	mu       sync.Mutex
}

func newFakeLiveness() *fakeLiveness {
	return &fakeLiveness{watched: make(map[int]proctracker.ExitCallback)}
}

func (f *fakeLiveness) Track(pid int, cb proctracker.ExitCallback) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.trackErr != nil {
		return f.trackErr
	}
	f.watched[pid] = cb
	return nil
}

func (f *fakeLiveness) Untrack(pid int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.watched, pid)
}

func (f *fakeLiveness) exit(pid int) bool {
	f.mu.Lock()
	cb, ok := f.watched[pid]
	delete(f.watched, pid)
	f.mu.Unlock()
	if ok {
		cb(pid)
	}
	return ok
}

func (f *fakeLiveness) tracking(pid int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.watched[pid]
	return ok
}

type recordedEnd struct {
	outcome Outcome
	reason  string
}

type fakeRecorder struct {
	ends    []recordedEnd
	starts  int
	running int
}

func (r *fakeRecorder) RecordStart(uuid.UUID, catalog.Title, time.Time) { r.starts++ }
func (r *fakeRecorder) RecordRunning(uuid.UUID, int, time.Time)         { r.running++ }
func (r *fakeRecorder) RecordEnd(_ uuid.UUID, o Outcome, reason string, _ time.Time) {
	r.ends = append(r.ends, recordedEnd{outcome: o, reason: reason})
}

type sessionEnv struct {
	session    *Session
	cmd        *mocks.MockCommandExecutor
	discoverer *fakeDiscoverer
	terminator *fakeTerminator
	liveness   *fakeLiveness
	recorder   *fakeRecorder
}

func newSessionEnv(t *testing.T) *sessionEnv {
	t.Helper()

	env := &sessionEnv{
		cmd:        helpers.NewMockCommandExecutor(),
		discoverer: newFakeDiscoverer(),
		terminator: &fakeTerminator{},
		liveness:   newFakeLiveness(),
		recorder:   &fakeRecorder{},
	}
	env.session = NewSession(Deps{
		Dispatcher: NewDispatcher(NewCommandOpener(env.cmd, ""), env.cmd, ""),
		Discoverer: env.discoverer,
		Terminator: env.terminator,
		Liveness:   env.liveness,
		Recorder:   env.recorder,
	}, WithClock(clockwork.NewFakeClock()))
	t.Cleanup(env.session.Close)
	return env
}

// pollUntil acts as the frame loop until the state reaches phase.
func pollUntil(t *testing.T, s *Session, phase Phase) []Notification {
	t.Helper()

	var got []Notification
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		got = append(got, s.Poll()...)
		if s.State().Phase == phase {
			return got
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("state never reached %s, stuck in %s", phase, s.State().Phase)
	return nil
}

func kinds(ns []Notification) []NotificationKind {
	out := make([]NotificationKind, 0, len(ns))
	for _, n := range ns {
		out = append(out, n.Kind)
	}
	return out
}

func TestSession_IndirectLaunchFound(t *testing.T) {
	t.Parallel()

	env := newSessionEnv(t)

	require.NoError(t, env.session.Launch(indirectTitle))
	assert.Equal(t, Starting, env.session.State().Phase, "indirect dispatch never jumps to running")

	env.discoverer.results <- discovery{pid: 200}
	notes := pollUntil(t, env.session, Running)

	assert.Equal(t, []NotificationKind{NotifyStarting, NotifyRunning}, kinds(notes))
	assert.Equal(t, "620980", notes[1].TitleID)
	assert.Equal(t, 200, env.session.State().Handle.PID)
	assert.True(t, env.liveness.tracking(200))
	assert.Equal(t, 1, env.recorder.running)
}

func TestSession_SecondLaunchRejected(t *testing.T) {
	t.Parallel()

	env := newSessionEnv(t)
	require.NoError(t, env.session.Launch(indirectTitle))

	err := env.session.Launch(directTitle)
	require.ErrorIs(t, err, ErrSessionBusy)
	assert.Equal(t, Starting, env.session.State().Phase)
	assert.Equal(t, indirectTitle.ID, env.session.State().Title.ID)

	env.discoverer.results <- discovery{pid: 200}
	pollUntil(t, env.session, Running)

	err = env.session.Launch(directTitle)
	require.ErrorIs(t, err, ErrSessionBusy)
	assert.Equal(t, 200, env.session.State().Handle.PID, "first title unaffected")
	env.cmd.AssertNotCalled(t, "Spawn", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSession_DirectLaunch(t *testing.T) {
	t.Parallel()

	t.Run("runs_immediately_without_discovery", func(t *testing.T) {
		t.Parallel()

		env := newSessionEnv(t)

		require.NoError(t, env.session.Launch(directTitle))

		assert.Equal(t, Running, env.session.State().Phase)
		assert.Equal(t, 4242, env.session.State().Handle.PID)
		assert.Equal(t, []NotificationKind{NotifyStarting, NotifyRunning}, kinds(env.session.Poll()))
		assert.Zero(t, env.discoverer.calls.Load())
	})

	t.Run("nonexistent_executable_reverts", func(t *testing.T) {
		t.Parallel()

		discoverer := newFakeDiscoverer()
		s := NewSession(Deps{
			Dispatcher: NewDispatcher(nil, &command.RealExecutor{}, ""),
			Discoverer: discoverer,
			Terminator: &fakeTerminator{},
		})
		defer s.Close()

		err := s.Launch(catalog.Title{ID: "/nonexistent/oxrl/game", Kind: catalog.Direct})

		var lerr *LaunchError
		require.ErrorAs(t, err, &lerr)
		assert.Equal(t, SpawnFailed, lerr.Kind)
		assert.Equal(t, NotStarted, s.State().Phase)
		notes := s.Poll()
		assert.Equal(t, []NotificationKind{NotifyStarting, NotifyNotStarted}, kinds(notes))
		assert.NotEmpty(t, notes[1].Reason)
		assert.Zero(t, discoverer.calls.Load())
	})

	t.Run("exited_before_watch", func(t *testing.T) {
		t.Parallel()

		env := newSessionEnv(t)
		env.liveness.trackErr = proctracker.ErrProcessNotFound

		require.NoError(t, env.session.Launch(directTitle))

		assert.Equal(t, NotStarted, env.session.State().Phase)
		require.Len(t, env.recorder.ends, 1)
		assert.Equal(t, OutcomeExited, env.recorder.ends[0].outcome)
	})
}

func TestSession_HandlerUnavailable(t *testing.T) {
	t.Parallel()

	env := newSessionEnv(t)
	env.cmd.ExpectedCalls = nil
	env.cmd.On("Start", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("no xdg-open"))

	err := env.session.Launch(indirectTitle)

	var lerr *LaunchError
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, HandlerUnavailable, lerr.Kind)
	assert.Equal(t, NotStarted, env.session.State().Phase)
	assert.Zero(t, env.discoverer.calls.Load())
	assert.Equal(t, OutcomeLaunchFailed, env.recorder.ends[0].outcome)
}

func TestSession_TimedOut(t *testing.T) {
	t.Parallel()

	env := newSessionEnv(t)
	require.NoError(t, env.session.Launch(indirectTitle))

	env.discoverer.results <- discovery{err: &steamtracker.DiscoveryError{
		TitleID: indirectTitle.ID, Kind: steamtracker.DiscoveryTimedOut, Attempts: 10,
	}}
	notes := pollUntil(t, env.session, NotStarted)

	require.Equal(t, []NotificationKind{NotifyStarting, NotifyNotStarted}, kinds(notes))
	assert.Contains(t, notes[1].Reason, "timed out")
	assert.Equal(t, OutcomeTimedOut, env.recorder.ends[0].outcome)
}

func TestSession_TableUnavailable(t *testing.T) {
	t.Parallel()

	env := newSessionEnv(t)
	require.NoError(t, env.session.Launch(indirectTitle))

	env.discoverer.results <- discovery{err: procscanner.ErrTableUnavailable}
	pollUntil(t, env.session, NotStarted)

	assert.True(t, env.session.tableFailed)
	assert.Equal(t, OutcomeTableUnavailable, env.recorder.ends[0].outcome)
}

func TestSession_Kill(t *testing.T) {
	t.Parallel()

	t.Run("not_started_is_noop", func(t *testing.T) {
		t.Parallel()

		env := newSessionEnv(t)

		require.NoError(t, env.session.Kill())

		assert.Equal(t, NotStarted, env.session.State().Phase)
		assert.Empty(t, env.session.Poll())
		assert.Empty(t, env.terminator.calls())
	})

	t.Run("running_resets_to_not_started", func(t *testing.T) {
		t.Parallel()

		env := newSessionEnv(t)
		require.NoError(t, env.session.Launch(directTitle))

		require.NoError(t, env.session.Kill())
		assert.False(t, env.liveness.tracking(4242), "kill stops the liveness watch")
		pollUntil(t, env.session, NotStarted)

		assert.Equal(t, []int{4242}, env.terminator.calls())
		assert.Equal(t, OutcomeKilled, env.recorder.ends[0].outcome)
	})

	t.Run("partial_failure_still_resets", func(t *testing.T) {
		t.Parallel()

		env := newSessionEnv(t)
		env.terminator.err = &proctree.TerminationError{TitleID: directTitle.ID, Failed: []int{4243}}
		require.NoError(t, env.session.Launch(directTitle))

		require.NoError(t, env.session.Kill())
		notes := pollUntil(t, env.session, NotStarted)

		last := notes[len(notes)-1]
		assert.Equal(t, NotifyNotStarted, last.Kind)
		assert.Contains(t, last.Reason, "4243")
		assert.Equal(t, OutcomeKillFailed, env.recorder.ends[0].outcome)
	})

	t.Run("double_kill_terminates_once", func(t *testing.T) {
		t.Parallel()

		env := newSessionEnv(t)
		env.terminator.block = make(chan struct{})
		require.NoError(t, env.session.Launch(directTitle))

		require.NoError(t, env.session.Kill())
		require.NoError(t, env.session.Kill())
		close(env.terminator.block)
		pollUntil(t, env.session, NotStarted)

		assert.Len(t, env.terminator.calls(), 1)
	})

	t.Run("while_starting_terminates_after_discovery", func(t *testing.T) {
		t.Parallel()

		env := newSessionEnv(t)
		require.NoError(t, env.session.Launch(indirectTitle))

		require.NoError(t, env.session.Kill())
		assert.Equal(t, Starting, env.session.State().Phase)
		assert.Empty(t, env.terminator.calls())

		env.discoverer.results <- discovery{pid: 200}
		notes := pollUntil(t, env.session, NotStarted)

		assert.Equal(t, []NotificationKind{NotifyStarting, NotifyRunning, NotifyNotStarted}, kinds(notes))
		assert.Equal(t, []int{200}, env.terminator.calls())
		assert.False(t, env.liveness.tracking(200))
	})

	t.Run("while_starting_then_timeout", func(t *testing.T) {
		t.Parallel()

		env := newSessionEnv(t)
		require.NoError(t, env.session.Launch(indirectTitle))
		require.NoError(t, env.session.Kill())

		env.discoverer.results <- discovery{err: &steamtracker.DiscoveryError{Kind: steamtracker.DiscoveryTimedOut}}
		pollUntil(t, env.session, NotStarted)

		assert.Empty(t, env.terminator.calls())
		assert.False(t, env.session.pendingKill)
	})
}

func TestSession_ExitDetected(t *testing.T) {
	t.Parallel()

	env := newSessionEnv(t)
	require.NoError(t, env.session.Launch(directTitle))

	require.True(t, env.liveness.exit(4242))
	notes := pollUntil(t, env.session, NotStarted)

	assert.Equal(t, NotifyNotStarted, notes[len(notes)-1].Kind)
	assert.Equal(t, OutcomeExited, env.recorder.ends[0].outcome)

	require.NoError(t, env.session.Launch(directTitle), "a new launch is accepted after exit")
}

func TestSession_StaleEventsDropped(t *testing.T) {
	t.Parallel()

	env := newSessionEnv(t)
	require.NoError(t, env.session.Launch(indirectTitle))

	require.NoError(t, env.session.pub.Publish(context.Background(), Event{
		Attempt: uuid.New(),
		Kind:    EventFound,
		Handle:  ProcessHandle{Title: indirectTitle, PID: 999},
	}))
	env.session.Poll()

	assert.Equal(t, Starting, env.session.State().Phase)
}

// TestSession_FindsMarkedSupervisorAmongTwo runs the real tracker and
// terminator against a fake process table with two concurrent Steam titles.
func TestSession_FindsMarkedSupervisorAmongTwo(t *testing.T) {
	t.Parallel()

	fs := helpers.NewFakeProcFs(t,
		helpers.FakeProcess{PID: 1, Comm: "systemd"},
		helpers.FakeProcess{PID: 100, PPID: 1, Comm: "reaper", Args: []string{"reaper", "SteamLaunch", "AppId=546560", "--", "hlvr"}},
		helpers.FakeProcess{PID: 101, PPID: 100, Comm: "pv", Env: map[string]string{"SteamAppId": "546560"}},
		helpers.FakeProcess{PID: 200, PPID: 1, Comm: "reaper", Args: []string{"reaper", "SteamLaunch", "AppId=620980", "--", "bs"}},
		helpers.FakeProcess{PID: 201, PPID: 200, Comm: "pv", Env: map[string]string{"SteamAppId": "620980"}},
	)
	table := procscanner.New(procscanner.WithFs(fs))
	clock := clockwork.NewFakeClock()
	tracker := steamtracker.New(table, steamtracker.WithClock(clock))
	signaler := mocks.NewMockSignaler(t)
	signaler.On("Kill", 201).Return(nil).Once()
	signaler.On("Kill", 200).Return(nil).Once()

	cmd := helpers.NewMockCommandExecutor()
	s := NewSession(Deps{
		Dispatcher: NewDispatcher(NewCommandOpener(cmd, ""), cmd, ""),
		Discoverer: tracker,
		Terminator: proctree.New(table, tracker, signaler),
		Liveness:   newFakeLiveness(),
	})
	defer s.Close()

	require.NoError(t, s.Launch(indirectTitle))
	require.NoError(t, clock.BlockUntilContext(context.Background(), 1))
	clock.Advance(steamtracker.DefaultSettleDelay)
	pollUntil(t, s, Running)

	assert.Equal(t, 200, s.State().Handle.PID)

	require.NoError(t, s.Kill())
	pollUntil(t, s, NotStarted)
}

func TestSession_CloseLeavesNoGoroutines(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	discoverer := newFakeDiscoverer()
	cmd := helpers.NewMockCommandExecutor()
	s := NewSession(Deps{
		Dispatcher: NewDispatcher(NewCommandOpener(cmd, ""), cmd, ""),
		Discoverer: discoverer,
		Terminator: &fakeTerminator{},
	})

	require.NoError(t, s.Launch(indirectTitle))
	assert.Eventually(t, func() bool { return discoverer.calls.Load() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, []NotificationKind{NotifyStarting}, kinds(s.Poll()))

	s.Close()
	assert.Empty(t, s.Poll(), "cancelled discovery publishes nothing")
}
