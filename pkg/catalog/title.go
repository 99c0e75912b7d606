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

// Package catalog enumerates launchable titles. Providers produce Titles;
// the launcher only ever borrows them.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
)

var ErrUnknownKind = errors.New("unknown title kind")

// Kind discriminates how a title is started.
type Kind int

const (
	// Indirect titles are opened through the OS URL handler and started by
	// the running Steam client.
	Indirect Kind = iota
	// Direct titles are started by spawning their executable.
	Direct
)

func (k Kind) String() string {
	switch k {
	case Indirect:
		return "indirect"
	case Direct:
		return "direct"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "indirect":
		*k = Indirect
	case "direct":
		*k = Direct
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, text)
	}
	return nil
}

// Title is one launchable entry. Values are immutable after load.
type Title struct {
	// ID is the numeric app id for Indirect titles and the executable path
	// for Direct titles.
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	InstallDir string   `json:"installDir,omitempty"`
	Executable string   `json:"executable,omitempty"`
	Args       []string `json:"args,omitempty"`
	Kind       Kind     `json:"kind"`
	VR         bool     `json:"vr"`
}

// AppID returns the numeric Steam app id of an Indirect title.
func (t Title) AppID() (int, bool) {
	if t.Kind != Indirect {
		return 0, false
	}
	id, err := strconv.Atoi(t.ID)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// ExecutableName is the last path component of the title's executable,
// used when a process has to be found by name.
func (t Title) ExecutableName() string {
	if t.Executable != "" {
		return filepath.Base(t.Executable)
	}
	if t.Kind == Direct {
		return filepath.Base(t.ID)
	}
	return ""
}

// Provider lists launchable titles in display order. Filtering, such as
// dropping titles without VR support, is the provider's job.
type Provider interface {
	ListTitles(ctx context.Context) ([]Title, error)
}
