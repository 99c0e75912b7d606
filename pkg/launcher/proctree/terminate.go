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

// Package proctree terminates the whole process tree of a running title.
// Membership is recomputed from a fresh process table snapshot on every
// attempt and every member is signalled individually.
package proctree

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/oxrlauncher/oxrlauncher/pkg/catalog"
	"github.com/oxrlauncher/oxrlauncher/pkg/launcher/steamtracker"
	"github.com/oxrlauncher/oxrlauncher/pkg/procscanner"
	"github.com/rs/zerolog/log"
)

// Locator finds the supervisor of an indirectly launched title.
type Locator interface {
	Locate(snap *procscanner.Snapshot, title catalog.Title) (steamtracker.Candidate, error)
	// Owns reports whether pid is still title's supervisor.
	Owns(snap *procscanner.Snapshot, title catalog.Title, pid int) bool
}

// TerminationError lists the pids that survived both kill passes.
type TerminationError struct {
	Errs    map[int]error
	TitleID string
	Failed  []int
}

func (e *TerminationError) Error() string {
	return fmt.Sprintf("terminate %s: %d processes could not be killed: %v", e.TitleID, len(e.Failed), e.Failed)
}

// Report describes one termination attempt.
type Report struct {
	Members     []int
	Killed      []int
	AlreadyGone []int
	Root        int
	// Fallback is set when membership came from the executable name match
	// instead of a resolved supervisor.
	Fallback bool
}

// Terminator kills process trees.
type Terminator struct {
	table    procscanner.Table
	locator  Locator
	signaler Signaler
	self     int
}

// New creates a Terminator. A nil locator disables supervisor resolution.
func New(table procscanner.Table, locator Locator, signaler Signaler) *Terminator {
	if signaler == nil {
		signaler = ProcessSignaler{}
	}
	return &Terminator{
		table:    table,
		locator:  locator,
		signaler: signaler,
		self:     os.Getpid(),
	}
}

// Terminate kills every process belonging to title. pid is the handle the
// launcher tracked; it is only trusted when the supervisor cannot be
// re-resolved. A tree that has already exited is success.
func (t *Terminator) Terminate(ctx context.Context, title catalog.Title, pid int) (Report, error) {
	snap, err := t.table.Snapshot()
	if err != nil {
		return Report{}, fmt.Errorf("terminate %s: %w", title.ID, err)
	}

	report := t.membership(snap, title, pid)
	logger := log.With().Str("titleID", title.ID).Int("root", report.Root).Logger()
	if len(report.Members) == 0 {
		logger.Info().Msg("nothing left to terminate")
		return report, nil
	}
	logger.Info().
		Ints("members", report.Members).
		Bool("fallback", report.Fallback).
		Msg("terminating process tree")

	failed := t.killAll(ctx, &report, report.Members)
	if len(failed) > 0 {
		logger.Warn().Ints("failed", pidsOf(failed)).Msg("retrying processes that survived SIGKILL")
		failed = t.killAll(ctx, &report, pidsOf(failed))
	}
	if len(failed) > 0 {
		terr := &TerminationError{TitleID: title.ID, Failed: pidsOf(failed), Errs: failed}
		logger.Error().Err(terr).Msg("process tree partially terminated")
		return report, terr
	}
	return report, nil
}

// membership computes the set to kill: the supervisor's descendants followed
// by the supervisor, or the fallback set when no supervisor is found.
//
// For indirect titles the handle pid is only trusted while it still looks
// like the title's supervisor, since the supervisor may have exited and its
// pid been reused.
func (t *Terminator) membership(snap *procscanner.Snapshot, title catalog.Title, pid int) Report {
	trustPID := title.Kind != catalog.Indirect
	if title.Kind == catalog.Indirect && t.locator != nil {
		cand, err := t.locator.Locate(snap, title)
		if err == nil {
			root := cand.PID()
			return Report{Root: root, Members: t.filter(append(snap.Descendants(root), root))}
		}
		trustPID = t.locator.Owns(snap, title, pid)
		log.Debug().Err(err).Str("titleID", title.ID).Bool("handleOwned", trustPID).
			Msg("supervisor not found, using name match")
	}

	var members []int
	if _, ok := snap.Get(pid); ok && pid > 0 && trustPID {
		members = append(members, snap.Descendants(pid)...)
		members = append(members, pid)
	}
	if name := title.ExecutableName(); name != "" {
		for _, proc := range snap.Filter(procscanner.NewExecutableMatcher(name)) {
			members = append(members, snap.Descendants(proc.PID)...)
			members = append(members, proc.PID)
		}
	}
	return Report{Root: pid, Members: t.filter(members), Fallback: true}
}

// filter drops duplicates, init and the launcher itself.
func (t *Terminator) filter(pids []int) []int {
	seen := make(map[int]struct{}, len(pids))
	out := make([]int, 0, len(pids))
	for _, pid := range pids {
		if pid <= 1 || pid == t.self {
			continue
		}
		if _, dup := seen[pid]; dup {
			continue
		}
		seen[pid] = struct{}{}
		out = append(out, pid)
	}
	return out
}

func (t *Terminator) killAll(ctx context.Context, report *Report, pids []int) map[int]error {
	failed := make(map[int]error)
	for _, pid := range pids {
		if err := ctx.Err(); err != nil {
			failed[pid] = err
			continue
		}
		err := t.signaler.Kill(pid)
		switch {
		case err == nil:
			report.Killed = append(report.Killed, pid)
		case errors.Is(err, ErrProcessGone):
			report.AlreadyGone = append(report.AlreadyGone, pid)
		default:
			failed[pid] = err
		}
	}
	return failed
}

func pidsOf(m map[int]error) []int {
	pids := make([]int, 0, len(m))
	for pid := range m {
		pids = append(pids, pid)
	}
	slices.Sort(pids)
	return pids
}
