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

package helpers

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

// FakeProcPath is the procfs root used by NewFakeProcFs.
const FakeProcPath = "/proc"

// FakeProcess describes one entry of a fake procfs.
type FakeProcess struct {
	Env   map[string]string
	Comm  string
	State string
	Args  []string
	PID   int
	PPID  int
	// NoEnviron omits the environ file, as when it is not readable.
	NoEnviron bool
}

// NewFakeProcFs creates an in-memory procfs populated with the given processes.
//
// Example:
//
//	fs := helpers.NewFakeProcFs(t,
//		helpers.FakeProcess{PID: 100, PPID: 1, Comm: "reaper", Args: []string{"reaper", "SteamLaunch"}},
//	)
//	table := procscanner.New(procscanner.WithFs(fs))
func NewFakeProcFs(t *testing.T, procs ...FakeProcess) afero.Fs {
	t.Helper()

	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll(FakeProcPath, 0o755))
	for _, p := range procs {
		WriteFakeProcess(t, fs, p)
	}
	return fs
}

// WriteFakeProcess adds or replaces a process in a fake procfs.
func WriteFakeProcess(t *testing.T, fs afero.Fs, p FakeProcess) {
	t.Helper()

	dir := filepath.Join(FakeProcPath, strconv.Itoa(p.PID))
	require.NoError(t, fs.MkdirAll(dir, 0o755))

	state := p.State
	if state == "" {
		state = "S"
	}

	files := map[string]string{
		"comm":    p.Comm + "\n",
		"cmdline": encodeNulList(p.Args),
		"stat":    fmt.Sprintf("%d (%s) %s %d %d 0 0 -1", p.PID, p.Comm, state, p.PPID, p.PID),
	}
	if !p.NoEnviron {
		files["environ"] = encodeEnviron(p.Env)
	}

	for name, content := range files {
		require.NoError(t, afero.WriteFile(fs, filepath.Join(dir, name), []byte(content), 0o644))
	}
}

// RemoveFakeProcess deletes a process from a fake procfs, as if it exited.
func RemoveFakeProcess(fs afero.Fs, pid int) {
	_ = fs.RemoveAll(filepath.Join(FakeProcPath, strconv.Itoa(pid)))
}

func encodeNulList(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return strings.Join(args, "\x00") + "\x00"
}

func encodeEnviron(env map[string]string) string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+env[k])
	}
	return encodeNulList(pairs)
}
