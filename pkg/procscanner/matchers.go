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

import "strings"

// Matcher determines if a process should be selected.
type Matcher interface {
	Match(proc ProcessInfo) bool
}

// MatcherFunc is a function adapter for Matcher interface.
type MatcherFunc func(proc ProcessInfo) bool

// Match implements Matcher.
func (f MatcherFunc) Match(proc ProcessInfo) bool {
	return f(proc)
}

// ExactCommMatcher matches processes by exact comm name (case-sensitive).
type ExactCommMatcher struct {
	name string
}

// NewExactCommMatcher creates a matcher for an exact process name.
// Names longer than the kernel comm limit are truncated before comparing.
func NewExactCommMatcher(name string) *ExactCommMatcher {
	return &ExactCommMatcher{name: TruncateComm(name)}
}

// Match returns true if the process comm exactly matches.
func (m *ExactCommMatcher) Match(proc ProcessInfo) bool {
	return proc.Comm == m.name
}

// ExecutableMatcher matches a process by the file name of its executable,
// either through argv[0] or through the (possibly truncated) comm.
type ExecutableMatcher struct {
	name string
}

// NewExecutableMatcher creates a matcher for an executable base name.
func NewExecutableMatcher(name string) *ExecutableMatcher {
	return &ExecutableMatcher{name: name}
}

// Match implements Matcher.
func (m *ExecutableMatcher) Match(proc ProcessInfo) bool {
	if m.name == "" {
		return false
	}
	if proc.ExecutableName() == m.name {
		return true
	}
	return proc.Comm == TruncateComm(m.name)
}

// CmdlineContainsMatcher matches processes whose cmdline contains a substring.
type CmdlineContainsMatcher struct {
	substring string
}

// NewCmdlineContainsMatcher creates a matcher that checks if cmdline contains a substring.
func NewCmdlineContainsMatcher(substring string) *CmdlineContainsMatcher {
	return &CmdlineContainsMatcher{substring: substring}
}

// Match returns true if the process cmdline contains the substring.
func (m *CmdlineContainsMatcher) Match(proc ProcessInfo) bool {
	return strings.Contains(proc.Cmdline, m.substring)
}

// AndMatcher combines multiple matchers with AND logic.
type AndMatcher struct {
	matchers []Matcher
}

// NewAndMatcher creates a matcher that requires all sub-matchers to match.
func NewAndMatcher(matchers ...Matcher) *AndMatcher {
	return &AndMatcher{matchers: matchers}
}

// Match returns true if all sub-matchers match.
func (m *AndMatcher) Match(proc ProcessInfo) bool {
	for _, matcher := range m.matchers {
		if !matcher.Match(proc) {
			return false
		}
	}
	return true
}
