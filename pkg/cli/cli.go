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

// Package cli holds the command line flags and the one-shot commands that
// either talk to a running launcher or drive an in-process one.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/oxrlauncher/oxrlauncher/internal/telemetry"
	"github.com/oxrlauncher/oxrlauncher/pkg/api/models"
	"github.com/oxrlauncher/oxrlauncher/pkg/catalog"
	"github.com/oxrlauncher/oxrlauncher/pkg/config"
	"github.com/oxrlauncher/oxrlauncher/pkg/helpers"
	"github.com/rs/zerolog/log"
)

var (
	ErrNotRunning = errors.New("no launcher is running")
	ErrNotStarted = errors.New("title did not start")
)

type Flags struct {
	Launch  *string
	Daemon  *bool
	Kill    *bool
	List    *bool
	State   *bool
	Version *bool
}

func SetupFlags() *Flags {
	return &Flags{
		Launch: flag.String(
			"launch",
			"",
			"launch a title by name or id and wait until it is running",
		),
		Daemon: flag.Bool(
			"daemon",
			false,
			"run the launcher in the foreground with no UI, serving the local API",
		),
		Kill: flag.Bool(
			"kill",
			false,
			"kill the title started by the running launcher",
		),
		List: flag.Bool(
			"list",
			false,
			"print the title catalog and exit",
		),
		State: flag.Bool(
			"state",
			false,
			"print the running launcher's state and exit",
		),
		Version: flag.Bool(
			"version",
			false,
			"print version and exit",
		),
	}
}

// Pre parses flags and handles the ones that need no config.
func (f *Flags) Pre() {
	flag.Parse()

	if *f.Version {
		_, _ = fmt.Printf("OpenXR Launcher v%s\n", config.AppVersion)
		os.Exit(0)
	}
}

// Remote is a launcher running in another process.
type Remote interface {
	State(ctx context.Context) (models.State, error)
	Titles(ctx context.Context) ([]catalog.Title, error)
	Kill(ctx context.Context) (models.State, error)
	LaunchAndWait(ctx context.Context, query string) (models.Event, error)
}

// Post runs the client commands against a running launcher. handled is
// false when no client flag was given, or when the command can run
// in-process because nothing is listening.
func (f *Flags) Post(ctx context.Context, remote Remote, out io.Writer) (handled bool, err error) {
	if !*f.State && !*f.Kill && !*f.List && *f.Launch == "" {
		return false, nil
	}

	st, err := remote.State(ctx)
	running := err == nil
	if !running {
		log.Debug().Err(err).Msg("no launcher answering on the api port")
	}

	switch {
	case *f.State:
		if !running {
			return true, ErrNotRunning
		}
		printState(out, st)
		return true, nil
	case *f.Kill:
		if !running {
			return true, ErrNotRunning
		}
		st, err = remote.Kill(ctx)
		if err != nil {
			return true, fmt.Errorf("kill: %w", err)
		}
		printState(out, st)
		return true, nil
	case !running:
		return false, nil
	case *f.List:
		titles, err := remote.Titles(ctx)
		if err != nil {
			return true, fmt.Errorf("listing titles: %w", err)
		}
		PrintTitles(out, titles)
		return true, nil
	default:
		ev, err := remote.LaunchAndWait(ctx, *f.Launch)
		if err != nil {
			return true, fmt.Errorf("launch: %w", err)
		}
		return true, printOutcome(out, ev)
	}
}

func PrintTitles(out io.Writer, titles []catalog.Title) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tNAME\tKIND\tVR")
	for _, t := range titles {
		vr := ""
		if t.VR {
			vr = "yes"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", t.ID, t.Name, t.Kind, vr)
	}
	_ = tw.Flush()
}

func printState(out io.Writer, st models.State) {
	switch {
	case st.Title == nil:
		_, _ = fmt.Fprintln(out, st.Phase)
	case st.PID > 0:
		_, _ = fmt.Fprintf(out, "%s %s (pid %d)\n", st.Phase, st.Title.Name, st.PID)
	default:
		_, _ = fmt.Fprintf(out, "%s %s\n", st.Phase, st.Title.Name)
	}
}

func printOutcome(out io.Writer, ev models.Event) error {
	if ev.Event == models.EventNotStarted {
		return fmt.Errorf("%w: %s", ErrNotStarted, ev.Reason)
	}
	printState(out, ev.State)
	return nil
}

// Setup prepares directories, logging, config and error reporting, exiting
// on failure the same way for every entry point.
func Setup(defaults config.Values, writers []io.Writer) (*config.Instance, helpers.Dirs) {
	dirs := helpers.DefaultDirs()
	if err := dirs.Ensure(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error creating directories: %v\n", err)
		os.Exit(1)
	}

	if err := helpers.InitLogging(dirs.LogDir(), false, writers...); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error initializing logging: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.NewConfig(dirs.Config, defaults)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	helpers.SetDebugLogging(cfg.DebugLogging())

	if err := telemetry.Init(telemetry.Options{
		Enabled:    cfg.ErrorReporting(),
		AppVersion: config.AppVersion,
	}); err != nil {
		log.Warn().Err(err).Msg("failed to initialize error reporting")
	}

	return cfg, dirs
}
