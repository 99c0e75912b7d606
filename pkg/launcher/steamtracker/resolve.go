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
	"errors"
	"fmt"
	"strconv"

	"github.com/oxrlauncher/oxrlauncher/pkg/procscanner"
)

var (
	// ErrNoCandidate means no supervisor satisfied the predicate.
	ErrNoCandidate = errors.New("no matching supervisor process")
	// ErrAmbiguous means more than one unrelated supervisor satisfied it.
	ErrAmbiguous = errors.New("multiple matching supervisor processes")
)

// Evidence records why a candidate was accepted.
type Evidence int

const (
	// EvidenceNone rejects the candidate.
	EvidenceNone Evidence = iota
	// EvidenceEnvMarker: the candidate or a descendant carries the app id
	// in its environment.
	EvidenceEnvMarker
	// EvidenceAppIDArg: no environment was readable and the AppId argument
	// matches.
	EvidenceAppIDArg
	// EvidenceInstallPath: no environment was readable, there is no AppId
	// argument and the command line points into the install directory.
	EvidenceInstallPath
)

func (e Evidence) String() string {
	switch e {
	case EvidenceEnvMarker:
		return "env_marker"
	case EvidenceAppIDArg:
		return "appid_arg"
	case EvidenceInstallPath:
		return "install_path"
	default:
		return "none"
	}
}

// Predicate decides whether a candidate belongs to the title being resolved.
type Predicate func(snap *procscanner.Snapshot, candidate procscanner.ProcessInfo) Evidence

// Candidate is a resolved supervisor.
type Candidate struct {
	Process  procscanner.ProcessInfo
	Evidence Evidence
}

// PID is the resolved supervisor's pid.
func (c Candidate) PID() int {
	return c.Process.PID
}

// Resolve picks the single candidate accepted by pred. Accepted candidates
// nested under another accepted candidate collapse into the outermost one.
// It never falls back to the first match: zero survivors is ErrNoCandidate
// and more than one is ErrAmbiguous.
func Resolve(
	snap *procscanner.Snapshot,
	candidates []procscanner.ProcessInfo,
	pred Predicate,
) (Candidate, error) {
	accepted := make([]Candidate, 0, len(candidates))
	for _, proc := range candidates {
		if ev := pred(snap, proc); ev != EvidenceNone {
			accepted = append(accepted, Candidate{Process: proc, Evidence: ev})
		}
	}

	outermost := accepted[:0:0]
	for i, c := range accepted {
		nested := false
		for j, other := range accepted {
			if i != j && snap.IsAncestor(other.PID(), c.PID()) {
				nested = true
				break
			}
		}
		if !nested {
			outermost = append(outermost, c)
		}
	}

	switch len(outermost) {
	case 0:
		return Candidate{}, ErrNoCandidate
	case 1:
		return outermost[0], nil
	default:
		pids := make([]int, 0, len(outermost))
		for _, c := range outermost {
			pids = append(pids, c.PID())
		}
		return Candidate{}, fmt.Errorf("%w: pids %v", ErrAmbiguous, pids)
	}
}

// markerPredicate builds the predicate for one title. The environment
// marker is decisive whenever any environment in the candidate's subtree is
// readable; the AppId argument and install path are only consulted when
// none is.
func markerPredicate(
	table procscanner.Table,
	markerVars []string,
	appID string,
	installDir string,
) Predicate {
	return func(snap *procscanner.Snapshot, candidate procscanner.ProcessInfo) Evidence {
		subtree := append([]int{candidate.PID}, snap.Descendants(candidate.PID)...)

		readable := false
		for _, pid := range subtree {
			env, err := table.Environ(pid)
			if err != nil {
				continue
			}
			readable = true
			for _, name := range markerVars {
				if v, ok := env[name]; ok && v == appID {
					return EvidenceEnvMarker
				}
			}
		}
		if readable {
			return EvidenceNone
		}

		if id, ok := parseAppIDFromArgs(candidate.Args()); ok {
			if strconv.Itoa(id) == appID {
				return EvidenceAppIDArg
			}
			return EvidenceNone
		}
		if mentionsInstallDir(candidate, installDir) {
			return EvidenceInstallPath
		}
		return EvidenceNone
	}
}
