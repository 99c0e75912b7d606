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

package service

import (
	"context"
	"fmt"
	"slices"

	"github.com/oxrlauncher/oxrlauncher/pkg/catalog"
	"github.com/oxrlauncher/oxrlauncher/pkg/helpers/syncutil"
	"github.com/rs/zerolog/log"
)

// Catalog caches the merged title list and refreshes it when a Steam
// library changes on disk.
type Catalog struct {
	provider catalog.Provider
	titles   []catalog.Title
	mu       syncutil.RWMutex
	loaded   bool
}

func NewCatalog(provider catalog.Provider) *Catalog {
	return &Catalog{provider: provider}
}

// Titles returns the cached list, loading it on first use.
func (c *Catalog) Titles(ctx context.Context) ([]catalog.Title, error) {
	c.mu.RLock()
	if c.loaded {
		titles := slices.Clone(c.titles)
		c.mu.RUnlock()
		return titles, nil
	}
	c.mu.RUnlock()
	return c.Reload(ctx)
}

// Reload lists titles again. On failure the previous list is kept.
func (c *Catalog) Reload(ctx context.Context) ([]catalog.Title, error) {
	titles, err := c.provider.ListTitles(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading titles: %w", err)
	}

	c.mu.Lock()
	c.titles = titles
	c.loaded = true
	c.mu.Unlock()

	log.Info().Int("count", len(titles)).Msg("title catalog loaded")
	return slices.Clone(titles), nil
}

// Follow reloads on every signal from reload until ctx is done.
func (c *Catalog) Follow(ctx context.Context, reload <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-reload:
			if _, err := c.Reload(ctx); err != nil {
				log.Warn().Err(err).Msg("catalog reload failed, keeping previous titles")
			}
		}
	}
}
