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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type providerFunc func(ctx context.Context) ([]Title, error)

func (f providerFunc) ListTitles(ctx context.Context) ([]Title, error) {
	return f(ctx)
}

func fixed(titles ...Title) Provider {
	return providerFunc(func(context.Context) ([]Title, error) { return titles, nil })
}

func failing(err error) Provider {
	return providerFunc(func(context.Context) ([]Title, error) { return nil, err })
}

func names(titles []Title) []string {
	out := make([]string, 0, len(titles))
	for _, t := range titles {
		out = append(out, t.Name)
	}
	return out
}

func TestMulti_ListTitles(t *testing.T) {
	t.Parallel()

	t.Run("merges_dedupes_and_sorts", func(t *testing.T) {
		t.Parallel()

		library := fixed(
			Title{ID: "620980", Name: "Beat Saber", VR: true},
			Title{ID: "546560", Name: "Half-Life: Alyx", VR: true},
		)
		protontricks := fixed(
			Title{ID: "620980", Name: "620980"},
			Title{ID: "1", Name: "Échoes"},
		)
		direct := fixed(
			Title{ID: "/opt/g10", Name: "Game 10", Kind: Direct},
			Title{ID: "/opt/g2", Name: "game 2", Kind: Direct},
		)

		titles, err := NewMulti(library, protontricks, direct).ListTitles(context.Background())

		require.NoError(t, err)
		assert.Equal(t, []string{"Beat Saber", "Échoes", "game 2", "Game 10", "Half-Life: Alyx"}, names(titles))
		assert.True(t, titles[0].VR, "earlier providers win duplicates")
	})

	t.Run("failed_provider_is_skipped", func(t *testing.T) {
		t.Parallel()

		titles, err := NewMulti(failing(errors.New("no protontricks")), fixed(Title{ID: "1", Name: "A"})).
			ListTitles(context.Background())

		require.NoError(t, err)
		assert.Len(t, titles, 1)
	})

	t.Run("all_failed", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("boom")
		_, err := NewMulti(failing(boom), failing(errors.New("bang"))).ListTitles(context.Background())

		require.ErrorIs(t, err, ErrNoTitles)
		require.ErrorIs(t, err, boom)
	})

	t.Run("canceled", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		blocking := providerFunc(func(ctx context.Context) ([]Title, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		})

		_, err := NewMulti(blocking).ListTitles(ctx)

		require.ErrorIs(t, err, context.Canceled)
	})

	t.Run("no_providers", func(t *testing.T) {
		t.Parallel()

		titles, err := NewMulti().ListTitles(context.Background())

		require.NoError(t, err)
		assert.Empty(t, titles)
	})
}
