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

package procscanner

import "sort"

// Snapshot is an immutable copy of the process table taken at one moment.
// Parent/child links are computed once when the snapshot is built.
type Snapshot struct {
	byPID     map[int]ProcessInfo
	children  map[int][]int
	Processes []ProcessInfo
}

// NewSnapshot indexes a list of processes. Processes are ordered by pid.
func NewSnapshot(processes []ProcessInfo) *Snapshot {
	sorted := make([]ProcessInfo, len(processes))
	copy(sorted, processes)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].PID < sorted[j].PID
	})

	s := &Snapshot{
		Processes: sorted,
		byPID:     make(map[int]ProcessInfo, len(sorted)),
		children:  make(map[int][]int),
	}
	for _, proc := range sorted {
		s.byPID[proc.PID] = proc
	}
	for _, proc := range sorted {
		if proc.PPID == proc.PID {
			continue
		}
		s.children[proc.PPID] = append(s.children[proc.PPID], proc.PID)
	}
	return s
}

// Len returns the number of processes in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.Processes)
}

// Get returns the process with the given pid.
func (s *Snapshot) Get(pid int) (ProcessInfo, bool) {
	proc, ok := s.byPID[pid]
	return proc, ok
}

// Children returns the direct children of pid.
func (s *Snapshot) Children(pid int) []int {
	return s.children[pid]
}

// Descendants returns every direct and indirect descendant of pid,
// breadth-first. The root itself is not included.
func (s *Snapshot) Descendants(pid int) []int {
	var result []int
	seen := map[int]bool{pid: true}
	queue := append([]int(nil), s.children[pid]...)

	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if seen[next] {
			continue
		}
		seen[next] = true
		result = append(result, next)
		queue = append(queue, s.children[next]...)
	}
	return result
}

// IsAncestor reports whether ancestor appears on the parent chain of pid.
func (s *Snapshot) IsAncestor(ancestor, pid int) bool {
	seen := make(map[int]bool)
	current, ok := s.byPID[pid]
	for ok && !seen[current.PID] {
		seen[current.PID] = true
		if current.PPID == ancestor {
			return true
		}
		current, ok = s.byPID[current.PPID]
	}
	return false
}

// Filter returns every process accepted by the matcher, ordered by pid.
func (s *Snapshot) Filter(m Matcher) []ProcessInfo {
	var result []ProcessInfo
	for _, proc := range s.Processes {
		if m.Match(proc) {
			result = append(result, proc)
		}
	}
	return result
}
