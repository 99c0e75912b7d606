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
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/oxrlauncher/oxrlauncher/pkg/catalog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// Manifest is the subset of an appmanifest_<id>.acf the catalog uses.
type Manifest struct {
	Name       string
	InstallDir string
	AppID      int
}

// ReadManifest reads appmanifest_<id>.acf from a steamapps directory.
func ReadManifest(fs afero.Fs, steamAppsDir string, appID int) (Manifest, error) {
	return readManifestFile(fs, filepath.Join(steamAppsDir, fmt.Sprintf("appmanifest_%d.acf", appID)))
}

func readManifestFile(fs afero.Fs, path string) (Manifest, error) {
	m, err := parseVDFFile(fs, path)
	if err != nil {
		return Manifest{}, err
	}
	state, ok := m["appstate"].(map[string]any)
	if !ok {
		return Manifest{}, fmt.Errorf("%s: missing AppState", path)
	}
	idStr, _ := state["appid"].(string)
	id, err := strconv.Atoi(idStr)
	if err != nil || id <= 0 {
		return Manifest{}, fmt.Errorf("%s: invalid appid %q", path, idStr)
	}
	name, _ := state["name"].(string)
	if name == "" {
		return Manifest{}, fmt.Errorf("%s: missing name", path)
	}
	installDir, _ := state["installdir"].(string)
	return Manifest{AppID: id, Name: name, InstallDir: installDir}, nil
}

// LibraryDirs returns the steamapps directory of every library listed in
// libraryfolders.vdf. The root's own steamapps directory is always first.
func LibraryDirs(fs afero.Fs, root string) []string {
	main := SteamAppsDir(fs, root)
	dirs := []string{main}
	seen := map[string]bool{filepath.Clean(main): true}

	m, err := parseVDFFile(fs, filepath.Join(main, "libraryfolders.vdf"))
	if err != nil {
		log.Debug().Err(err).Msg("no libraryfolders.vdf, using main library only")
		return dirs
	}
	folders, ok := m["libraryfolders"].(map[string]any)
	if !ok {
		log.Warn().Str("root", root).Msg("libraryfolders.vdf has no libraryfolders section")
		return dirs
	}

	keys := make([]string, 0, len(folders))
	for k := range folders {
		keys = append(keys, k)
	}
	sortNumericKeys(keys)

	for _, k := range keys {
		var path string
		switch v := folders[k].(type) {
		case map[string]any:
			path, _ = v["path"].(string)
		case string:
			// pre-2021 format stores the path directly
			if _, err := strconv.Atoi(k); err == nil {
				path = v
			}
		}
		if path == "" {
			continue
		}
		dir := SteamAppsDir(fs, path)
		if seen[filepath.Clean(dir)] {
			continue
		}
		seen[filepath.Clean(dir)] = true
		dirs = append(dirs, dir)
	}
	return dirs
}

// LibraryProvider lists the titles installed in every Steam library.
type LibraryProvider struct {
	fs     afero.Fs
	root   string
	vrOnly bool
}

// LibraryOption configures a LibraryProvider.
type LibraryOption func(*LibraryProvider)

// WithFs sets the filesystem the provider reads from.
func WithFs(fs afero.Fs) LibraryOption {
	return func(p *LibraryProvider) { p.fs = fs }
}

// WithVROnly drops titles that are not marked as VR in the app info cache.
func WithVROnly(vrOnly bool) LibraryOption {
	return func(p *LibraryProvider) { p.vrOnly = vrOnly }
}

// NewLibraryProvider creates a provider for the Steam install at root.
func NewLibraryProvider(root string, opts ...LibraryOption) *LibraryProvider {
	p := &LibraryProvider{fs: afero.NewOsFs(), root: root}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Root returns the Steam root directory the provider reads.
func (p *LibraryProvider) Root() string {
	return p.root
}

// SteamAppsDirs returns the library directories, for watching.
func (p *LibraryProvider) SteamAppsDirs() []string {
	return LibraryDirs(p.fs, p.root)
}

func (p *LibraryProvider) ListTitles(ctx context.Context) ([]catalog.Title, error) {
	libs := LibraryDirs(p.fs, p.root)

	type found struct {
		manifest Manifest
		lib      string
	}
	var manifests []found
	byID := make(map[int]bool)

	for _, lib := range libs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		entries, err := afero.ReadDir(p.fs, lib)
		if err != nil {
			log.Warn().Err(err).Str("path", lib).Msg("error listing steam library")
			continue
		}
		for _, e := range entries {
			name := e.Name()
			if e.IsDir() || !strings.HasPrefix(name, "appmanifest_") || !strings.HasSuffix(name, ".acf") {
				continue
			}
			m, err := readManifestFile(p.fs, filepath.Join(lib, name))
			if err != nil {
				log.Warn().Err(err).Msg("skipping unreadable app manifest")
				continue
			}
			if byID[m.AppID] {
				continue
			}
			byID[m.AppID] = true
			manifests = append(manifests, found{manifest: m, lib: lib})
		}
	}

	details, err := ReadAppInfo(p.fs, p.root, byID)
	if err != nil {
		log.Warn().Err(err).Msg("app info cache unavailable, VR flags unknown")
		details = nil
	}

	titles := make([]catalog.Title, 0, len(manifests))
	for _, f := range manifests {
		d, known := details[f.manifest.AppID]
		if known && !d.IsGame() {
			log.Debug().Int("appID", f.manifest.AppID).Str("type", d.Type).Msg("skipping non-game app")
			continue
		}
		if p.vrOnly && details != nil && !d.VR {
			continue
		}

		t := catalog.Title{
			ID:   strconv.Itoa(f.manifest.AppID),
			Name: f.manifest.Name,
			Kind: catalog.Indirect,
			VR:   d.VR,
		}
		if f.manifest.InstallDir != "" {
			t.InstallDir = filepath.Join(f.lib, "common", f.manifest.InstallDir)
			if d.Executable != "" {
				t.Executable = filepath.Join(t.InstallDir, filepath.FromSlash(strings.ReplaceAll(d.Executable, `\`, "/")))
			}
		}
		titles = append(titles, t)
	}

	log.Info().Int("count", len(titles)).Int("libraries", len(libs)).Msg("scanned steam libraries")
	return titles, nil
}

// LookupName finds an app's display name in any library.
func LookupName(fs afero.Fs, root string, appID int) (string, bool) {
	for _, lib := range LibraryDirs(fs, root) {
		m, err := ReadManifest(fs, lib, appID)
		if err == nil {
			return m.Name, true
		}
		if !errors.Is(err, afero.ErrFileNotFound) {
			log.Debug().Err(err).Int("appID", appID).Msg("manifest lookup failed")
		}
	}
	return "", false
}

func sortNumericKeys(keys []string) {
	slices.SortFunc(keys, func(a, b string) int {
		ai, aerr := strconv.Atoi(a)
		bi, berr := strconv.Atoi(b)
		if aerr == nil && berr == nil {
			return ai - bi
		}
		return strings.Compare(a, b)
	})
}
