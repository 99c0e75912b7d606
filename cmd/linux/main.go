//go:build linux

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

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oxrlauncher/oxrlauncher/internal/telemetry"
	"github.com/oxrlauncher/oxrlauncher/pkg/api/client"
	"github.com/oxrlauncher/oxrlauncher/pkg/cli"
	"github.com/oxrlauncher/oxrlauncher/pkg/config"
	"github.com/oxrlauncher/oxrlauncher/pkg/service"
	"github.com/oxrlauncher/oxrlauncher/pkg/ui/tui"
	"github.com/rs/zerolog/log"
)

const clientTimeout = 2 * time.Minute

func main() {
	if err := run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func run() error {
	flags := cli.SetupFlags()
	flags.Pre()

	if os.Geteuid() == 0 {
		return errors.New("openxr-launcher cannot be run as root")
	}

	var logWriters []io.Writer
	if *flags.Daemon {
		logWriters = []io.Writer{os.Stderr}
	}

	cfg, dirs := cli.Setup(config.BaseDefaults, logWriters)
	defer telemetry.Close()

	defer func() {
		if err := recover(); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Panic: %s\n", err)
			telemetry.Flush()
			log.Fatal().Msgf("panic: %v", err)
		}
	}()

	ctx, stopSignals := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()

	remote, err := client.New(client.LocalURL(cfg.APIPort()))
	if err != nil {
		return err
	}
	clientCtx, cancelClient := context.WithTimeout(ctx, clientTimeout)
	handled, err := flags.Post(clientCtx, remote, os.Stdout)
	cancelClient()
	if handled {
		return err
	}

	if *flags.Daemon && !cfg.APIEnabled() {
		log.Info().Msg("enabling the local api for daemon mode")
		cfg.SetAPIEnabled(true)
	}
	if *flags.List || *flags.Launch != "" {
		// one-shot commands must not take the port a daemon would use
		cfg.SetAPIEnabled(false)
	}

	svc, err := service.Start(cfg, dirs, service.OSEnv())
	if err != nil {
		log.Error().Err(err).Msg("error starting service")
		return fmt.Errorf("error starting service: %w", err)
	}
	defer func() {
		if err := svc.Stop(); err != nil {
			log.Error().Err(err).Msg("error stopping service")
		}
	}()

	switch {
	case *flags.List:
		titles, err := svc.Catalog.Titles(ctx)
		if err != nil {
			return err
		}
		cli.PrintTitles(os.Stdout, titles)
		return nil
	case *flags.Launch != "":
		return cli.LaunchLocal(ctx, svc.Loop, svc.Catalog.Titles, *flags.Launch, os.Stdout)
	case *flags.Daemon:
		log.Info().Msg("started in daemon mode")
		<-ctx.Done()
		return nil
	default:
		app := tui.New(svc.Loop, svc.Catalog.Reload)
		if err := app.Run(ctx); err != nil {
			log.Error().Err(err).Msg("error running UI")
			return fmt.Errorf("error running UI: %w", err)
		}
		return nil
	}
}
