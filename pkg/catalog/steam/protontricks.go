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

package steam

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/oxrlauncher/oxrlauncher/pkg/catalog"
	"github.com/oxrlauncher/oxrlauncher/pkg/helpers/command"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// ErrProtontricksUnavailable is returned when the helper cannot be run.
var ErrProtontricksUnavailable = errors.New("protontricks unavailable")

var protontricksIDRegex = regexp.MustCompile(`\((\d+)\)`)

// ParseProtontricksList extracts app ids from `protontricks -l` output, in
// order of appearance and without duplicates.
func ParseProtontricksList(out string) []int {
	var ids []int
	seen := make(map[int]bool)
	for _, m := range protontricksIDRegex.FindAllStringSubmatch(out, -1) {
		id, err := strconv.Atoi(m[1])
		if err != nil || id <= 0 || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

// ProtontricksProvider lists installed Proton titles through the
// protontricks helper.
type ProtontricksProvider struct {
	exec    command.Executor
	fs      afero.Fs
	root    string
	program string
}

// NewProtontricksProvider creates a provider for the Steam install at root.
// Names are looked up in the app manifests under root through fs.
func NewProtontricksProvider(exec command.Executor, fs afero.Fs, root string) *ProtontricksProvider {
	return &ProtontricksProvider{exec: exec, fs: fs, root: root, program: "protontricks"}
}

func (p *ProtontricksProvider) ListTitles(ctx context.Context) ([]catalog.Title, error) {
	out, err := p.exec.OutputEnv(ctx, []string{"STEAM_DIR=" + p.root}, p.program, "-l")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProtontricksUnavailable, err)
	}

	ids := ParseProtontricksList(string(out))
	titles := make([]catalog.Title, 0, len(ids))
	for _, id := range ids {
		t := catalog.Title{ID: strconv.Itoa(id), Kind: catalog.Indirect}
		if name, ok := LookupName(p.fs, p.root, id); ok {
			t.Name = name
		} else {
			t.Name = t.ID
		}
		titles = append(titles, t)
	}
	log.Debug().Int("count", len(titles)).Msg("listed protontricks titles")
	return titles, nil
}
