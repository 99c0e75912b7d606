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

// Package command abstracts process execution so catalog providers and
// launch handlers can be exercised without running real programs.
package command

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/rs/zerolog/log"
)

// SpawnOptions configures a detached child process.
type SpawnOptions struct {
	// Dir is the working directory. Empty inherits the launcher's.
	Dir string
	// Env is appended to the launcher's environment.
	Env []string
	// NewProcessGroup puts the child in its own process group so a signal
	// delivered to the launcher's terminal does not reach the title.
	NewProcessGroup bool
}

// Executor runs external programs.
type Executor interface {
	// Run executes a command and waits for it to complete.
	Run(ctx context.Context, name string, args ...string) error

	// Output runs a command and returns its standard output.
	Output(ctx context.Context, name string, args ...string) ([]byte, error)

	// OutputEnv is Output with extra KEY=VALUE entries added to the
	// inherited environment.
	OutputEnv(ctx context.Context, env []string, name string, args ...string) ([]byte, error)

	// Start starts a short-lived helper without waiting for it. The child
	// is reaped in the background.
	Start(ctx context.Context, name string, args ...string) error

	// Spawn starts a long-lived child that outlives ctx and returns its pid.
	// The child is reaped in the background once it exits.
	Spawn(ctx context.Context, opts SpawnOptions, name string, args ...string) (int, error)
}

// RealExecutor runs commands with os/exec.
type RealExecutor struct{}

// Run executes a system command using exec.CommandContext.
//
//nolint:wrapcheck // exec errors already name the program
func (*RealExecutor) Run(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}

// Output runs a command and returns its standard output.
//
//nolint:wrapcheck // exec errors already name the program
func (*RealExecutor) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// OutputEnv runs a command with additional environment entries.
//
//nolint:wrapcheck // exec errors already name the program
func (*RealExecutor) OutputEnv(ctx context.Context, env []string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = append(os.Environ(), env...)
	return cmd.Output()
}

// Start starts a command without waiting for it to complete. ctx only
// bounds the start; cancelling it later does not kill the helper, which may
// be the Steam client itself.
func (*RealExecutor) Start(ctx context.Context, name string, args ...string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("start %s: %w", name, err)
	}
	cmd := exec.Command(name, args...) //nolint:noctx // helper must outlive ctx
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", name, err)
	}
	go reap(cmd)
	return nil
}

// Spawn starts a detached child process. ctx only bounds the start itself.
func (*RealExecutor) Spawn(ctx context.Context, opts SpawnOptions, name string, args ...string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("spawn %s: %w", name, err)
	}

	cmd := exec.Command(name, args...) //nolint:noctx // child must outlive ctx
	cmd.Dir = opts.Dir
	if len(opts.Env) > 0 {
		cmd.Env = append(os.Environ(), opts.Env...)
	}
	applySpawnOptions(cmd, opts)

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("spawn %s: %w", name, err)
	}
	pid := cmd.Process.Pid
	go reap(cmd)
	return pid, nil
}

// reap waits on the child so it does not linger as a zombie.
func reap(cmd *exec.Cmd) {
	err := cmd.Wait()
	ev := log.Debug().Int("pid", cmd.Process.Pid).Str("cmd", cmd.Path)
	if err != nil {
		ev = ev.Err(err)
	}
	ev.Msg("child process exited")
}
