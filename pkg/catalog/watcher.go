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
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// DefaultDebounce is how long the watcher waits for changes to settle.
// Steam rewrites several manifests during an install.
const DefaultDebounce = 2 * time.Second

// Watcher signals when the catalog should be reloaded because app
// manifests changed in one of the watched directories.
type Watcher struct {
	clock    clockwork.Clock
	watcher  *fsnotify.Watcher
	reload   chan struct{}
	debounce time.Duration
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithWatcherClock sets the clock used for debouncing.
func WithWatcherClock(clock clockwork.Clock) WatcherOption {
	return func(w *Watcher) { w.clock = clock }
}

// WithDebounce sets the quiet period before a reload is signalled.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) { w.debounce = d }
}

// NewWatcher watches dirs. Directories that cannot be watched are logged
// and skipped.
func NewWatcher(dirs []string, opts ...WatcherOption) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	w := &Watcher{
		clock:    clockwork.NewRealClock(),
		watcher:  fw,
		reload:   make(chan struct{}, 1),
		debounce: DefaultDebounce,
	}
	for _, opt := range opts {
		opt(w)
	}

	for _, dir := range dirs {
		if err := fw.Add(dir); err != nil {
			log.Warn().Err(err).Str("path", dir).Msg("cannot watch catalog directory")
			continue
		}
		log.Debug().Str("path", dir).Msg("watching catalog directory")
	}
	return w, nil
}

// Reload delivers one value per settled burst of changes.
func (w *Watcher) Reload() <-chan struct{} {
	return w.reload
}

// Run forwards debounced change signals until ctx is done, then closes
// the underlying watcher.
func (w *Watcher) Run(ctx context.Context) {
	defer func() {
		if err := w.watcher.Close(); err != nil {
			log.Warn().Err(err).Msg("error closing catalog watcher")
		}
	}()

	var pending clockwork.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if pending != nil {
				pending.Stop()
			}
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !relevant(ev) {
				continue
			}
			log.Debug().Str("path", ev.Name).Str("op", ev.Op.String()).Msg("catalog change")
			if pending != nil {
				pending.Stop()
			}
			pending = w.clock.NewTimer(w.debounce)
			fire = pending.Chan()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Msg("error in catalog watcher")
		case <-fire:
			fire = nil
			select {
			case w.reload <- struct{}{}:
			default:
			}
		}
	}
}

func relevant(ev fsnotify.Event) bool {
	if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	base := filepath.Base(ev.Name)
	return strings.HasPrefix(base, "appmanifest_") && strings.HasSuffix(base, ".acf") ||
		base == "libraryfolders.vdf"
}
