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

package catalog

import (
	"context"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// DirectEntry declares a title that is started by spawning an executable.
type DirectEntry struct {
	Name       string
	Executable string
	InstallDir string
	Args       []string
	VR         bool
}

// DirectProvider lists configured Direct titles whose executable exists.
type DirectProvider struct {
	fs      afero.Fs
	entries []DirectEntry
}

// NewDirectProvider creates a provider over the given entries. A nil fs
// means the OS filesystem.
func NewDirectProvider(fs afero.Fs, entries []DirectEntry) *DirectProvider {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &DirectProvider{fs: fs, entries: entries}
}

func (p *DirectProvider) ListTitles(ctx context.Context) ([]Title, error) {
	titles := make([]Title, 0, len(p.entries))
	for _, e := range p.entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if e.Executable == "" || !filepath.IsAbs(e.Executable) {
			log.Warn().Str("name", e.Name).Str("executable", e.Executable).
				Msg("direct title needs an absolute executable path")
			continue
		}
		exe := filepath.Clean(e.Executable)
		info, err := p.fs.Stat(exe)
		if err != nil || info.IsDir() {
			log.Warn().Err(err).Str("executable", exe).Msg("skipping direct title with missing executable")
			continue
		}

		name := e.Name
		if name == "" {
			name = filepath.Base(exe)
		}
		titles = append(titles, Title{
			ID:         exe,
			Name:       name,
			Kind:       Direct,
			Executable: exe,
			InstallDir: e.InstallDir,
			Args:       e.Args,
			VR:         e.VR,
		})
	}
	return titles, nil
}
