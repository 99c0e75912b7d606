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
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// ErrNoTitles is returned by Multi when every provider failed.
var ErrNoTitles = errors.New("no catalog provider succeeded")

// Multi merges several providers. Providers run concurrently; a failing
// provider is logged and skipped unless all of them fail. Titles are
// de-duplicated by ID, earlier providers winning, and sorted by name.
type Multi struct {
	providers []Provider
}

// NewMulti combines providers in priority order.
func NewMulti(providers ...Provider) *Multi {
	return &Multi{providers: providers}
}

func (m *Multi) ListTitles(ctx context.Context) ([]Title, error) {
	results := make([][]Title, len(m.providers))
	errs := make([]error, len(m.providers))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range m.providers {
		g.Go(func() error {
			titles, err := p.ListTitles(gctx)
			if err != nil {
				errs[i] = err
				if ctx.Err() != nil {
					return fmt.Errorf("list titles: %w", ctx.Err())
				}
				return nil
			}
			results[i] = titles
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	failed := 0
	for i, err := range errs {
		if err != nil {
			failed++
			log.Warn().Err(err).Int("provider", i).Msg("catalog provider failed")
		}
	}
	if len(m.providers) > 0 && failed == len(m.providers) {
		return nil, fmt.Errorf("%w: %w", ErrNoTitles, errors.Join(errs...))
	}

	seen := make(map[string]bool)
	var merged []Title
	for _, titles := range results {
		for _, t := range titles {
			if seen[t.ID] {
				continue
			}
			seen[t.ID] = true
			merged = append(merged, t)
		}
	}
	SortByName(merged)
	return merged, nil
}

// SortByName orders titles by display name, ignoring case and accents,
// with ID as the tie breaker.
func SortByName(titles []Title) {
	col := collate.New(language.Und, collate.IgnoreCase, collate.IgnoreDiacritics, collate.Numeric)
	var buf collate.Buffer
	keys := make(map[string][]byte, len(titles))
	for _, t := range titles {
		if _, ok := keys[t.Name]; !ok {
			keys[t.Name] = slices.Clone(col.KeyFromString(&buf, t.Name))
		}
	}
	slices.SortStableFunc(titles, func(a, b Title) int {
		if c := bytes.Compare(keys[a.Name], keys[b.Name]); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}
