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

// Package service assembles the launcher runtime: catalog, launch session,
// frame loop, history and the local API.
package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/oxrlauncher/oxrlauncher/pkg/api"
	"github.com/oxrlauncher/oxrlauncher/pkg/audio"
	"github.com/oxrlauncher/oxrlauncher/pkg/catalog"
	"github.com/oxrlauncher/oxrlauncher/pkg/catalog/steam"
	"github.com/oxrlauncher/oxrlauncher/pkg/config"
	"github.com/oxrlauncher/oxrlauncher/pkg/database/historydb"
	"github.com/oxrlauncher/oxrlauncher/pkg/helpers"
	"github.com/oxrlauncher/oxrlauncher/pkg/helpers/command"
	"github.com/oxrlauncher/oxrlauncher/pkg/launcher"
	"github.com/oxrlauncher/oxrlauncher/pkg/launcher/proctree"
	"github.com/oxrlauncher/oxrlauncher/pkg/launcher/steamtracker"
	"github.com/oxrlauncher/oxrlauncher/pkg/procscanner"
	"github.com/oxrlauncher/oxrlauncher/pkg/proctracker"
	"github.com/oxrlauncher/oxrlauncher/pkg/ui/frame"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

const historyQueueSize = 64

// Env is what Start reads from the process environment.
type Env struct {
	Home     string
	SteamDir string
}

// OSEnv reads Env from the running process.
func OSEnv() Env {
	home, err := os.UserHomeDir()
	if err != nil {
		log.Warn().Err(err).Msg("could not determine home directory")
	}
	return Env{Home: home, SteamDir: os.Getenv("STEAM_DIR")}
}

// Service is a running launcher. Loop is the only way to launch or kill.
type Service struct {
	Loop     *frame.Loop
	Catalog  *Catalog
	History  *historydb.HistoryDB
	session  *launcher.Session
	liveness *proctracker.Tracker
	recorder *historydb.Recorder
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
}

func Start(cfg *config.Instance, dirs helpers.Dirs, env Env) (*Service, error) {
	log.Info().Msgf("version: %s", config.AppVersion)

	if err := dirs.Ensure(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	svc := &Service{cancel: cancel}

	fs := afero.NewOsFs()
	exec := &command.RealExecutor{}
	table := procscanner.New()

	providers, steamAppsDirs := buildProviders(cfg, fs, exec, env)
	svc.Catalog = NewCatalog(catalog.NewMulti(providers...))
	if len(steamAppsDirs) > 0 {
		watcher, err := catalog.NewWatcher(steamAppsDirs)
		if err != nil {
			log.Warn().Err(err).Msg("not watching steam libraries for changes")
		} else {
			svc.goRun(func() { watcher.Run(ctx) })
			svc.goRun(func() { svc.Catalog.Follow(ctx, watcher.Reload()) })
		}
	}

	dispatcher, err := buildDispatcher(cfg, exec)
	if err != nil {
		cancel()
		return nil, err
	}

	tracker := steamtracker.New(table, steamtracker.WithConfig(steamtracker.Config{
		SupervisorName: cfg.SupervisorName(),
		MarkerVars:     cfg.MarkerVars(),
		SettleDelay:    cfg.SettleDelay(),
		ScanInterval:   cfg.ScanInterval(),
		MaxAttempts:    cfg.MaxAttempts(),
	}))
	svc.liveness = proctracker.New()

	deps := launcher.Deps{
		Dispatcher: dispatcher,
		Discoverer: tracker,
		Terminator: proctree.New(table, tracker, proctree.ProcessSignaler{}),
		Liveness:   svc.liveness,
	}

	if cfg.HistoryEnabled() {
		if err := svc.openHistory(ctx, cfg, dirs); err != nil {
			log.Error().Err(err).Msg("launch history unavailable")
		} else {
			deps.Recorder = svc.recorder
		}
	}

	svc.session = launcher.NewSession(deps)
	svc.Loop = frame.New(svc.session, frame.WithFrameRate(cfg.FrameRate()))
	if cfg.SoundsEnabled() {
		running, failed := cfg.SoundFiles()
		svc.Loop.Subscribe(audio.Feedback(audio.NewMalgoPlayer(), audio.Sounds{
			Running: running,
			Failed:  failed,
		}))
	}
	svc.goRun(func() { svc.Loop.Run(ctx) })

	if cfg.APIEnabled() {
		opts := []api.Option{api.WithAllowedOrigins(cfg.AllowedOrigins())}
		if svc.History != nil {
			opts = append(opts, api.WithHistory(svc.History))
		}
		srv := api.NewServer(svc.Loop, svc.Catalog.Titles, opts...)
		listen := cfg.APIListen()
		svc.goRun(func() {
			if err := srv.ListenAndServe(ctx, listen); err != nil {
				log.Error().Err(err).Msg("api server stopped")
			}
		})
	}

	log.Info().Msg("service started")
	return svc, nil
}

func (s *Service) goRun(fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn()
	}()
}

func (s *Service) openHistory(ctx context.Context, cfg *config.Instance, dirs helpers.Dirs) error {
	db, err := historydb.Open(ctx, dirs.HistoryDbPath())
	if err != nil {
		return fmt.Errorf("opening history: %w", err)
	}
	if n, err := db.Cleanup(ctx, cfg.RetentionDays(), time.Now()); err != nil {
		log.Warn().Err(err).Msg("history cleanup failed")
	} else if n > 0 {
		log.Info().Int64("rows", n).Msg("removed old launch history")
	}
	s.History = db
	s.recorder = historydb.NewRecorder(db, historyQueueSize)
	return nil
}

// Stop shuts everything down and waits for background work. It is safe to
// call more than once.
func (s *Service) Stop() error {
	var err error
	s.stopOnce.Do(func() {
		log.Info().Msg("stopping service")
		s.cancel()
		s.wg.Wait()
		s.session.Close()
		s.liveness.Stop()
		if s.recorder != nil {
			s.recorder.Close()
		}
		if s.History != nil {
			err = s.History.Close()
		}
		log.Info().Msg("service stopped")
	})
	return err
}

func buildProviders(
	cfg *config.Instance,
	fs afero.Fs,
	exec command.Executor,
	env Env,
) (providers []catalog.Provider, steamAppsDirs []string) {
	root, err := steam.FindRoot(fs, steam.RootCandidates(cfg.SteamInstallDir(), env.SteamDir, env.Home))
	switch {
	case errors.Is(err, steam.ErrSteamNotFound):
		log.Warn().Msg("no steam installation found, only direct titles are available")
	case err != nil:
		log.Error().Err(err).Msg("looking for steam")
	default:
		lib := steam.NewLibraryProvider(root, steam.WithFs(fs), steam.WithVROnly(cfg.VROnly()))
		providers = append(providers, lib)
		steamAppsDirs = lib.SteamAppsDirs()
		if cfg.ProtontricksEnabled() {
			providers = append(providers, steam.NewProtontricksProvider(exec, fs, root))
		}
	}

	entries := cfg.DirectTitles()
	if len(entries) > 0 {
		direct := make([]catalog.DirectEntry, len(entries))
		for i, e := range entries {
			direct[i] = catalog.DirectEntry{
				Name:       e.Name,
				Executable: e.Executable,
				InstallDir: e.InstallDir,
				Args:       e.Args,
				VR:         e.VR,
			}
		}
		providers = append(providers, catalog.NewDirectProvider(fs, direct))
	}
	return providers, steamAppsDirs
}

func buildDispatcher(cfg *config.Instance, exec command.Executor) (*launcher.Dispatcher, error) {
	mode, err := steam.ParseLaunchMode(cfg.LaunchMode())
	if err != nil {
		return nil, fmt.Errorf("steam.launch_mode: %w", err)
	}

	var opener launcher.Opener
	switch cfg.OpenMethod() {
	case config.OpenSteam:
		opener = launcher.NewCommandOpener(exec, "steam")
	case config.OpenPortal:
		opener = launcher.NewPortalOpener()
	default:
		opener = launcher.NewCommandOpener(exec, "xdg-open")
	}
	log.Debug().Str("open_method", cfg.OpenMethod()).Str("launch_mode", string(mode)).Msg("dispatcher configured")
	return launcher.NewDispatcher(opener, exec, mode), nil
}
