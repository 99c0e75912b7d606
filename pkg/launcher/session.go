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
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/oxrlauncher/oxrlauncher/pkg/catalog"
	"github.com/oxrlauncher/oxrlauncher/pkg/launcher/proctree"
	"github.com/oxrlauncher/oxrlauncher/pkg/launcher/steamtracker"
	"github.com/oxrlauncher/oxrlauncher/pkg/procscanner"
	"github.com/oxrlauncher/oxrlauncher/pkg/proctracker"
	"github.com/rs/zerolog/log"
)

// TitleDispatcher issues launch actions.
type TitleDispatcher interface {
	Dispatch(ctx context.Context, title catalog.Title) (Dispatched, error)
}

// Discoverer finds the process of an indirectly launched title.
type Discoverer interface {
	Discover(ctx context.Context, title catalog.Title) (steamtracker.Candidate, error)
}

// TreeTerminator kills the process tree of a title.
type TreeTerminator interface {
	Terminate(ctx context.Context, title catalog.Title, pid int) (proctree.Report, error)
}

// LivenessWatcher reports when a running title's process exits.
type LivenessWatcher interface {
	Track(pid int, cb proctracker.ExitCallback) error
	Untrack(pid int)
}

// Deps are the collaborators a Session drives.
type Deps struct {
	Dispatcher TitleDispatcher
	Discoverer Discoverer
	Terminator TreeTerminator
	Liveness   LivenessWatcher
	Recorder   Recorder
}

// NotificationKind mirrors the phase a frontend should display.
type NotificationKind int

const (
	NotifyStarting NotificationKind = iota
	NotifyRunning
	NotifyNotStarted
)

func (k NotificationKind) String() string {
	switch k {
	case NotifyStarting:
		return "starting"
	case NotifyRunning:
		return "running"
	case NotifyNotStarted:
		return "not_started"
	default:
		return "unknown"
	}
}

// Notification is what frontends observe. Reason is a human readable
// diagnostic and is only set when a launch failed or a title stopped.
type Notification struct {
	TitleID string           `json:"titleId,omitempty"`
	Reason  string           `json:"reason,omitempty"`
	Kind    NotificationKind `json:"-"`
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithClock sets the clock used for history timestamps.
func WithClock(clock clockwork.Clock) SessionOption {
	return func(s *Session) {
		s.clock = clock
	}
}

// WithEventBuffer sets the publisher capacity.
func WithEventBuffer(size int) SessionOption {
	return func(s *Session) {
		s.pub = NewPublisher(size)
	}
}

// Session owns the launch state machine and the background tasks of the
// current attempt. Launch, Kill and Poll must be called from a single
// goroutine, the frame loop; State may be called from anywhere.
type Session struct {
	clock         clockwork.Clock
	deps          Deps
	ctx           context.Context
	pub           *Publisher
	cancel        context.CancelFunc
	attemptCancel context.CancelFunc
	state         atomic.Pointer[State]
	pending       []Notification
	machine       Machine
	wg            sync.WaitGroup
	pendingKill   bool
	terminating   bool
	tableFailed   bool
}

// NewSession creates an idle session.
func NewSession(deps Deps, opts ...SessionOption) *Session {
	if deps.Recorder == nil {
		deps.Recorder = NopRecorder{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		clock:  clockwork.NewRealClock(),
		deps:   deps,
		ctx:    ctx,
		cancel: cancel,
		pub:    NewPublisher(DefaultEventBuffer),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.publishState()
	return s
}

// State returns the last state applied by the frame loop.
func (s *Session) State() State {
	return *s.state.Load()
}

// Launch dispatches title. It fails synchronously with ErrSessionBusy when a
// title is already starting or running, or with a LaunchError when the
// dispatch itself fails; in both cases no background task is started.
func (s *Session) Launch(title catalog.Title) error {
	attempt, err := s.machine.Begin(title)
	if err != nil {
		log.Info().Str("titleID", title.ID).Stringer("phase", s.machine.State().Phase).
			Msg("launch rejected, session busy")
		return err
	}
	s.publishState()
	s.notify(Notification{Kind: NotifyStarting, TitleID: title.ID})
	s.deps.Recorder.RecordStart(attempt, title, s.clock.Now())

	dispatched, err := s.deps.Dispatcher.Dispatch(s.ctx, title)
	if err != nil {
		log.Error().Err(err).Str("titleID", title.ID).Msg("launch failed")
		s.machine.Abort(attempt)
		s.publishState()
		s.notify(Notification{Kind: NotifyNotStarted, TitleID: title.ID, Reason: err.Error()})
		s.deps.Recorder.RecordEnd(attempt, OutcomeLaunchFailed, err.Error(), s.clock.Now())
		return err
	}

	if title.Kind == catalog.Direct {
		s.enterRunning(attempt, ProcessHandle{Title: title, PID: dispatched.PID})
		return nil
	}

	ctx, cancel := context.WithCancel(s.ctx)
	s.attemptCancel = cancel
	s.wg.Add(1)
	go s.discover(ctx, attempt, title)
	return nil
}

// Kill terminates the running title. It is a no-op when nothing is running.
// While a title is still starting the kill is remembered and carried out as
// soon as discovery finds the title; if discovery times out there is nothing
// to kill.
func (s *Session) Kill() error {
	st := s.machine.State()
	switch st.Phase {
	case NotStarted:
		return nil
	case Starting:
		if !s.pendingKill {
			log.Info().Str("titleID", st.Title.ID).Msg("kill requested while starting, deferring")
		}
		s.pendingKill = true
		return nil
	case Running:
		s.startTermination(st.Handle)
		return nil
	default:
		return nil
	}
}

// Poll drains background events, applies them to the state machine and
// returns the notifications produced since the last call. It never blocks.
func (s *Session) Poll() []Notification {
	for _, ev := range s.pub.Drain() {
		if ev.Attempt != s.machine.Attempt() {
			log.Debug().Stringer("kind", ev.Kind).Str("attempt", ev.Attempt.String()).
				Msg("dropping event from stale attempt")
			continue
		}
		s.apply(ev)
	}
	out := s.pending
	s.pending = nil
	return out
}

// Close cancels in-flight work and waits for background tasks to finish.
func (s *Session) Close() {
	s.cancel()
	if st := s.machine.State(); st.Phase == Running && s.deps.Liveness != nil {
		s.deps.Liveness.Untrack(st.Handle.PID)
	}
	s.wg.Wait()
}

func (s *Session) apply(ev Event) {
	st := s.machine.State()
	switch ev.Kind {
	case EventFound:
		s.releaseAttempt()
		s.enterRunning(ev.Attempt, ev.Handle)
	case EventTimedOut:
		s.releaseAttempt()
		s.pendingKill = false
		s.stop(ev.Attempt, st.Title.ID, OutcomeTimedOut, reasonOf(ev.Err, "title did not start"))
	case EventTableUnavailable:
		s.releaseAttempt()
		s.pendingKill = false
		s.reportTableUnavailable(ev.Err)
		s.stop(ev.Attempt, st.Title.ID, OutcomeTableUnavailable, reasonOf(ev.Err, "process table unavailable"))
	case EventExited:
		s.stop(ev.Attempt, st.Title.ID, OutcomeExited, "")
	case EventTerminated:
		s.terminating = false
		outcome := OutcomeKilled
		reason := ""
		if ev.Err != nil {
			outcome = OutcomeKillFailed
			reason = ev.Err.Error()
			if errors.Is(ev.Err, procscanner.ErrTableUnavailable) {
				s.reportTableUnavailable(ev.Err)
			}
		}
		s.stop(ev.Attempt, st.Title.ID, outcome, reason)
	}
}

func (s *Session) enterRunning(attempt uuid.UUID, handle ProcessHandle) {
	if !s.machine.Found(attempt, handle) {
		return
	}
	s.publishState()
	s.notify(Notification{Kind: NotifyRunning, TitleID: handle.TitleID()})
	s.deps.Recorder.RecordRunning(attempt, handle.PID, s.clock.Now())
	log.Info().Str("titleID", handle.TitleID()).Int("pid", handle.PID).Msg("title running")

	if s.pendingKill {
		s.pendingKill = false
		s.startTermination(handle)
		return
	}
	s.watch(attempt, handle)
}

func (s *Session) watch(attempt uuid.UUID, handle ProcessHandle) {
	if s.deps.Liveness == nil {
		return
	}
	err := s.deps.Liveness.Track(handle.PID, func(int) {
		if perr := s.pub.Publish(s.ctx, Event{Attempt: attempt, Kind: EventExited, Handle: handle}); perr != nil {
			log.Debug().Err(perr).Msg("exit event not delivered")
		}
	})
	switch {
	case errors.Is(err, proctracker.ErrProcessNotFound):
		// exited between discovery and now
		s.stop(attempt, handle.TitleID(), OutcomeExited, "title exited immediately")
	case err != nil:
		log.Warn().Err(err).Int("pid", handle.PID).Msg("liveness watch unavailable")
	}
}

func (s *Session) startTermination(handle ProcessHandle) {
	if s.terminating {
		return
	}
	s.terminating = true
	if s.deps.Liveness != nil {
		s.deps.Liveness.Untrack(handle.PID)
	}

	attempt := s.machine.Attempt()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		_, err := s.deps.Terminator.Terminate(s.ctx, handle.Title, handle.PID)
		if perr := s.pub.Publish(s.ctx, Event{
			Attempt: attempt,
			Kind:    EventTerminated,
			Handle:  handle,
			Err:     err,
		}); perr != nil {
			log.Debug().Err(perr).Msg("termination event not delivered")
		}
	}()
}

func (s *Session) discover(ctx context.Context, attempt uuid.UUID, title catalog.Title) {
	defer s.wg.Done()

	cand, err := s.deps.Discoverer.Discover(ctx, title)
	ev := Event{Attempt: attempt, Err: err}
	switch {
	case err == nil:
		ev.Kind = EventFound
		ev.Handle = ProcessHandle{Title: title, PID: cand.PID()}
	case ctx.Err() != nil:
		return
	case errors.Is(err, procscanner.ErrTableUnavailable):
		ev.Kind = EventTableUnavailable
	default:
		ev.Kind = EventTimedOut
	}

	if perr := s.pub.Publish(s.ctx, ev); perr != nil {
		log.Debug().Err(perr).Msg("discovery event not delivered")
	}
}

func (s *Session) stop(attempt uuid.UUID, titleID string, outcome Outcome, reason string) {
	st := s.machine.State()
	var ok bool
	if st.Phase == Running {
		if s.deps.Liveness != nil {
			s.deps.Liveness.Untrack(st.Handle.PID)
		}
		ok = s.machine.Stop(attempt)
	} else {
		ok = s.machine.Abort(attempt)
	}
	if !ok {
		return
	}
	s.terminating = false
	s.publishState()
	s.notify(Notification{Kind: NotifyNotStarted, TitleID: titleID, Reason: reason})
	s.deps.Recorder.RecordEnd(attempt, outcome, reason, s.clock.Now())
}

func (s *Session) releaseAttempt() {
	if s.attemptCancel != nil {
		s.attemptCancel()
		s.attemptCancel = nil
	}
}

// reportTableUnavailable logs the environment failure once per session.
func (s *Session) reportTableUnavailable(err error) {
	if s.tableFailed {
		return
	}
	s.tableFailed = true
	log.Error().Err(err).Msg("cannot read the process table, launched titles cannot be tracked")
}

func (s *Session) notify(n Notification) {
	s.pending = append(s.pending, n)
}

func (s *Session) publishState() {
	st := s.machine.State()
	s.state.Store(&st)
}

func reasonOf(err error, fallback string) string {
	if err != nil {
		return err.Error()
	}
	return fallback
}

// Recorder receives launch lifecycle facts, typically for history. Calls
// come from the frame loop and must not block.
type Recorder interface {
	RecordStart(attempt uuid.UUID, title catalog.Title, at time.Time)
	RecordRunning(attempt uuid.UUID, pid int, at time.Time)
	RecordEnd(attempt uuid.UUID, outcome Outcome, reason string, at time.Time)
}

// Outcome is how a launch attempt ended.
type Outcome string

const (
	OutcomeExited           Outcome = "exited"
	OutcomeKilled           Outcome = "killed"
	OutcomeKillFailed       Outcome = "kill_failed"
	OutcomeTimedOut         Outcome = "timed_out"
	OutcomeLaunchFailed     Outcome = "launch_failed"
	OutcomeTableUnavailable Outcome = "table_unavailable"
)

// NopRecorder discards everything.
type NopRecorder struct{}

func (NopRecorder) RecordStart(uuid.UUID, catalog.Title, time.Time) {}
func (NopRecorder) RecordRunning(uuid.UUID, int, time.Time)         {}
func (NopRecorder) RecordEnd(uuid.UUID, Outcome, string, time.Time) {}
