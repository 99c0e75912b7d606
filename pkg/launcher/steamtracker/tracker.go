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

package steamtracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mackerelio/go-osstat/loadavg"
	"github.com/oxrlauncher/oxrlauncher/pkg/catalog"
	"github.com/oxrlauncher/oxrlauncher/pkg/procscanner"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	DefaultSettleDelay  = 5 * time.Second
	DefaultScanInterval = 500 * time.Millisecond
	DefaultMaxAttempts  = 10
)

// DiscoveryKind classifies a failed discovery.
type DiscoveryKind int

const (
	DiscoveryTimedOut DiscoveryKind = iota
	DiscoveryAmbiguous
	DiscoveryNotIndirect
)

func (k DiscoveryKind) String() string {
	switch k {
	case DiscoveryTimedOut:
		return "timed out"
	case DiscoveryAmbiguous:
		return "ambiguous"
	case DiscoveryNotIndirect:
		return "not an indirect title"
	default:
		return "unknown"
	}
}

// DiscoveryError is returned when no process could be attributed to a title.
type DiscoveryError struct {
	Err      error
	TitleID  string
	Attempts int
	Kind     DiscoveryKind
}

func (e *DiscoveryError) Error() string {
	msg := fmt.Sprintf("discover %s: %s after %d attempts", e.TitleID, e.Kind, e.Attempts)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DiscoveryError) Unwrap() error {
	return e.Err
}

// Config holds the discovery tuning knobs.
type Config struct {
	SupervisorName string
	MarkerVars     []string
	SettleDelay    time.Duration
	ScanInterval   time.Duration
	MaxAttempts    int
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		SupervisorName: DefaultSupervisorName,
		MarkerVars:     append([]string(nil), DefaultMarkerVars...),
		SettleDelay:    DefaultSettleDelay,
		ScanInterval:   DefaultScanInterval,
		MaxAttempts:    DefaultMaxAttempts,
	}
}

// Tracker discovers the supervisor process of an indirectly launched title.
type Tracker struct {
	table   procscanner.Table
	clock   clockwork.Clock
	loadAvg func() (*loadavg.Stats, error)
	cfg     Config
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock sets the clock used for the settle delay and scan interval.
func WithClock(clock clockwork.Clock) Option {
	return func(t *Tracker) {
		t.clock = clock
	}
}

// WithConfig replaces the default configuration. Zero fields keep their
// defaults.
func WithConfig(cfg Config) Option {
	return func(t *Tracker) {
		if cfg.SupervisorName != "" {
			t.cfg.SupervisorName = cfg.SupervisorName
		}
		if len(cfg.MarkerVars) > 0 {
			t.cfg.MarkerVars = append([]string(nil), cfg.MarkerVars...)
		}
		if cfg.SettleDelay > 0 {
			t.cfg.SettleDelay = cfg.SettleDelay
		}
		if cfg.ScanInterval > 0 {
			t.cfg.ScanInterval = cfg.ScanInterval
		}
		if cfg.MaxAttempts > 0 {
			t.cfg.MaxAttempts = cfg.MaxAttempts
		}
	}
}

// New creates a Tracker reading the given process table.
func New(table procscanner.Table, opts ...Option) *Tracker {
	t := &Tracker{
		table:   table,
		clock:   clockwork.NewRealClock(),
		loadAvg: loadavg.Get,
		cfg:     DefaultConfig(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Config returns the effective configuration.
func (t *Tracker) Config() Config {
	return t.cfg
}

// Locate resolves the supervisor of title within snap. It performs a single
// scan and does not wait.
func (t *Tracker) Locate(snap *procscanner.Snapshot, title catalog.Title) (Candidate, error) {
	supervisors := snap.Filter(t.supervisorMatcher())
	if len(supervisors) == 0 {
		return Candidate{}, ErrNoCandidate
	}

	pred := markerPredicate(t.table, t.cfg.MarkerVars, title.ID, title.InstallDir)
	return Resolve(snap, supervisors, pred)
}

// Owns reports whether pid is still a launch supervisor carrying title's
// marker in snap. A pid that exited and was reused by an unrelated process
// is not owned.
func (t *Tracker) Owns(snap *procscanner.Snapshot, title catalog.Title, pid int) bool {
	proc, ok := snap.Get(pid)
	if !ok || !t.supervisorMatcher().Match(proc) {
		return false
	}
	pred := markerPredicate(t.table, t.cfg.MarkerVars, title.ID, title.InstallDir)
	return pred(snap, proc) != EvidenceNone
}

func (t *Tracker) supervisorMatcher() procscanner.Matcher {
	return procscanner.NewAndMatcher(
		procscanner.NewExactCommMatcher(t.cfg.SupervisorName),
		procscanner.NewCmdlineContainsMatcher(steamLaunchArg),
		procscanner.MatcherFunc(isLaunchSupervisor),
	)
}

// Discover waits for the settle delay and then scans the process table until
// the title's supervisor is found or the attempts run out. The returned
// candidate existed in the process table at the time of return.
//
// procscanner.ErrTableUnavailable is returned unwrapped by a DiscoveryError
// so callers can surface it as an environment failure.
func (t *Tracker) Discover(ctx context.Context, title catalog.Title) (Candidate, error) {
	if _, ok := title.AppID(); !ok {
		return Candidate{}, &DiscoveryError{TitleID: title.ID, Kind: DiscoveryNotIndirect}
	}

	logger := log.With().Str("titleID", title.ID).Logger()
	logger.Debug().Dur("settle", t.cfg.SettleDelay).Msg("waiting for steam to start supervisor")

	if err := t.sleep(ctx, t.cfg.SettleDelay); err != nil {
		return Candidate{}, err
	}

	var lastErr error
	for attempt := 1; attempt <= t.cfg.MaxAttempts; attempt++ {
		snap, err := t.table.Snapshot()
		if err != nil {
			return Candidate{}, fmt.Errorf("scan for %s: %w", title.ID, err)
		}

		cand, err := t.Locate(snap, title)
		switch {
		case err == nil && t.table.Exists(cand.PID()):
			logger.Info().
				Int("pid", cand.PID()).
				Int("attempt", attempt).
				Stringer("evidence", cand.Evidence).
				Str("gamePath", gamePathFromArgs(cand.Process.Args())).
				Msg("found title supervisor")
			return cand, nil
		case err == nil:
			lastErr = fmt.Errorf("%w: pid %d exited before it could be reported", ErrNoCandidate, cand.PID())
		default:
			lastErr = err
		}
		logger.Debug().Err(lastErr).Int("attempt", attempt).Msg("supervisor not resolved yet")

		if attempt == t.cfg.MaxAttempts {
			break
		}
		if err := t.sleep(ctx, t.cfg.ScanInterval); err != nil {
			return Candidate{}, err
		}
	}

	kind := DiscoveryTimedOut
	if errors.Is(lastErr, ErrAmbiguous) {
		kind = DiscoveryAmbiguous
	}
	t.logLoad(logger.Warn().Err(lastErr).Int("attempts", t.cfg.MaxAttempts))
	return Candidate{}, &DiscoveryError{
		TitleID:  title.ID,
		Kind:     kind,
		Attempts: t.cfg.MaxAttempts,
		Err:      lastErr,
	}
}

func (t *Tracker) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err() //nolint:wrapcheck // plain cancellation
	}
	timer := t.clock.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err() //nolint:wrapcheck // plain cancellation
	case <-timer.Chan():
		return nil
	}
}

// logLoad adds the load average to a discovery timeout so slow machines can
// be told apart from launches that never happened.
func (t *Tracker) logLoad(ev *zerolog.Event) {
	stats, err := t.loadAvg()
	if err == nil && stats != nil {
		ev = ev.Float64("load1", stats.Loadavg1).Float64("load5", stats.Loadavg5)
	}
	ev.Msg("gave up discovering title supervisor")
}
