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

package proctree

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/shirou/gopsutil/v4/process"
	"golang.org/x/sys/unix"
)

// ErrProcessGone means the process had already exited. Termination treats it
// as success.
var ErrProcessGone = errors.New("process already exited")

// Signaler delivers an uncatchable kill to a single pid.
type Signaler interface {
	Kill(pid int) error
}

// ProcessSignaler kills processes through gopsutil.
type ProcessSignaler struct{}

// Kill sends SIGKILL to pid.
func (ProcessSignaler) Kill(pid int) error {
	if pid <= 0 || pid > math.MaxInt32 {
		return fmt.Errorf("invalid pid %d", pid)
	}
	proc, err := process.NewProcess(int32(pid))
	if errors.Is(err, process.ErrorProcessNotRunning) {
		return ErrProcessGone
	}
	if err != nil {
		return fmt.Errorf("open process %d: %w", pid, err)
	}
	return killError(pid, proc.Kill())
}

// killError maps the ways a kill can find the process already gone onto
// ErrProcessGone.
func killError(pid int, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, unix.ESRCH), errors.Is(err, os.ErrProcessDone):
		return ErrProcessGone
	default:
		return fmt.Errorf("kill %d: %w", pid, err)
	}
}
