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

// Package procscanner reads the Linux process table into immutable
// snapshots. Every lookup the launcher makes against running processes
// (supervisor discovery, environment markers, tree membership) goes through
// a snapshot taken here, so decisions are made against one consistent view.
package procscanner

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/afero"
)

// DefaultProcPath is the mount point of procfs.
const DefaultProcPath = "/proc"

// commMaxLen is the kernel limit for /proc/<pid>/comm (TASK_COMM_LEN - 1).
const commMaxLen = 15

var (
	// ErrTableUnavailable is returned when the process root cannot be listed
	// at all. It is an environment precondition failure, not a per-scan error.
	ErrTableUnavailable = errors.New("process table unavailable")
	// ErrProcessNotFound is returned when a pid has no entry in the table.
	ErrProcessNotFound = errors.New("process not found")
)

// ProcessInfo contains information about a running process.
type ProcessInfo struct {
	Comm    string
	Cmdline string
	State   string
	PID     int
	PPID    int
}

// Args splits the NUL separated command line into arguments.
func (p ProcessInfo) Args() []string {
	if p.Cmdline == "" {
		return nil
	}
	args := strings.Split(strings.TrimRight(p.Cmdline, "\x00"), "\x00")
	if len(args) == 1 && args[0] == "" {
		return nil
	}
	return args
}

// ExecutableName returns the base name of argv[0], falling back to comm.
func (p ProcessInfo) ExecutableName() string {
	args := p.Args()
	if len(args) > 0 && args[0] != "" {
		return filepath.Base(args[0])
	}
	return p.Comm
}

// Table is a queryable view of the system process table.
type Table interface {
	// Snapshot reads every process once. Errors wrap ErrTableUnavailable
	// when the table itself could not be listed.
	Snapshot() (*Snapshot, error)
	// Environ returns the environment of a process. Returns an error
	// wrapping ErrProcessNotFound if the process is gone.
	Environ(pid int) (map[string]string, error)
	// Exists reports whether pid is present and not a zombie.
	Exists(pid int) bool
}

// ProcTable reads process information from a procfs mount.
type ProcTable struct {
	fs       afero.Fs
	procPath string
}

// Option configures a ProcTable.
type Option func(*ProcTable)

// WithFs sets the filesystem procfs is read from (for testing).
func WithFs(fs afero.Fs) Option {
	return func(t *ProcTable) {
		t.fs = fs
	}
}

// WithProcPath sets a custom /proc path (for testing).
func WithProcPath(path string) Option {
	return func(t *ProcTable) {
		t.procPath = path
	}
}

// New creates a process table reader over the real /proc.
func New(opts ...Option) *ProcTable {
	t := &ProcTable{
		fs:       afero.NewOsFs(),
		procPath: DefaultProcPath,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

var _ Table = (*ProcTable)(nil)

// Snapshot reads comm, cmdline and stat for every pid directory.
func (t *ProcTable) Snapshot() (*Snapshot, error) {
	entries, err := afero.ReadDir(t.fs, t.procPath)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrTableUnavailable, t.procPath, err)
	}

	processes := make([]ProcessInfo, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		pid, err := strconv.Atoi(entry.Name())
		if err != nil {
			continue
		}

		// processes can exit between ReadDir and the reads below
		proc, ok := t.readProcessInfo(pid)
		if !ok {
			continue
		}
		processes = append(processes, proc)
	}

	return NewSnapshot(processes), nil
}

// Environ reads /proc/<pid>/environ.
func (t *ProcTable) Environ(pid int) (map[string]string, error) {
	path := filepath.Join(t.procPath, strconv.Itoa(pid), "environ")
	data, err := afero.ReadFile(t.fs, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("environ of pid %d: %w", pid, ErrProcessNotFound)
		}
		return nil, fmt.Errorf("read environ of pid %d: %w", pid, err)
	}
	return ParseEnviron(string(data)), nil
}

// Exists reports whether the pid has a live (non-zombie) entry.
func (t *ProcTable) Exists(pid int) bool {
	proc, ok := t.readProcessInfo(pid)
	if !ok {
		return false
	}
	return proc.State != "Z" && proc.State != "X"
}

// readProcessInfo reads comm, cmdline and stat for a process.
func (t *ProcTable) readProcessInfo(pid int) (ProcessInfo, bool) {
	pidDir := filepath.Join(t.procPath, strconv.Itoa(pid))

	commData, err := afero.ReadFile(t.fs, filepath.Join(pidDir, "comm"))
	if err != nil {
		return ProcessInfo{}, false
	}

	// kernel threads and exiting processes have an empty cmdline
	cmdlineData, _ := afero.ReadFile(t.fs, filepath.Join(pidDir, "cmdline"))

	proc := ProcessInfo{
		PID:     pid,
		Comm:    strings.TrimSpace(string(commData)),
		Cmdline: string(cmdlineData),
	}

	if statData, err := afero.ReadFile(t.fs, filepath.Join(pidDir, "stat")); err == nil {
		if state, ppid, ok := ParseStat(string(statData)); ok {
			proc.State = state
			proc.PPID = ppid
		}
	}

	return proc, true
}

// ParseStat extracts the state and parent pid from /proc/<pid>/stat.
// The comm field is parenthesised and may itself contain spaces or
// parentheses, so parsing starts after the last ')'.
func ParseStat(stat string) (state string, ppid int, ok bool) {
	end := strings.LastIndexByte(stat, ')')
	if end < 0 {
		return "", 0, false
	}

	fields := strings.Fields(stat[end+1:])
	if len(fields) < 2 {
		return "", 0, false
	}

	ppid, err := strconv.Atoi(fields[1])
	if err != nil {
		return "", 0, false
	}
	return fields[0], ppid, true
}

// ParseEnviron parses a NUL separated KEY=VALUE block.
func ParseEnviron(data string) map[string]string {
	env := make(map[string]string)
	for _, kv := range strings.Split(data, "\x00") {
		if kv == "" {
			continue
		}
		key, value, found := strings.Cut(kv, "=")
		if !found {
			continue
		}
		env[key] = value
	}
	return env
}

// TruncateComm shortens a name the same way the kernel does for comm.
func TruncateComm(name string) string {
	if len(name) > commMaxLen {
		return name[:commMaxLen]
	}
	return name
}
