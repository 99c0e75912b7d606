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
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/oxrlauncher/oxrlauncher/pkg/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	err    error
	titles []catalog.Title
	calls  int
	mu     sync.Mutex
}

func (p *stubProvider) ListTitles(context.Context) ([]catalog.Title, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return p.titles, p.err
}

func (p *stubProvider) set(titles []catalog.Title, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.titles = titles
	p.err = err
}

func (p *stubProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func TestCatalog_CachesAfterFirstLoad(t *testing.T) {
	t.Parallel()

	p := &stubProvider{titles: []catalog.Title{{ID: "620980", Name: "Beat Saber"}}}
	c := NewCatalog(p)

	first, err := c.Titles(context.Background())
	require.NoError(t, err)
	first[0].Name = "mutated"

	second, err := c.Titles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Beat Saber", second[0].Name)
	assert.Equal(t, 1, p.callCount())
}

func TestCatalog_FailedReloadKeepsPrevious(t *testing.T) {
	t.Parallel()

	p := &stubProvider{titles: []catalog.Title{{ID: "620980", Name: "Beat Saber"}}}
	c := NewCatalog(p)
	_, err := c.Titles(context.Background())
	require.NoError(t, err)

	p.set(nil, errors.New("disk gone"))
	_, err = c.Reload(context.Background())
	require.Error(t, err)

	titles, err := c.Titles(context.Background())
	require.NoError(t, err)
	assert.Len(t, titles, 1)
}

func TestCatalog_FirstLoadErrorIsReturned(t *testing.T) {
	t.Parallel()

	c := NewCatalog(&stubProvider{err: catalog.ErrNoTitles})
	_, err := c.Titles(context.Background())
	require.ErrorIs(t, err, catalog.ErrNoTitles)
}

func TestCatalog_FollowReloads(t *testing.T) {
	t.Parallel()

	p := &stubProvider{titles: []catalog.Title{{ID: "1", Name: "One"}}}
	c := NewCatalog(p)
	_, err := c.Titles(context.Background())
	require.NoError(t, err)

	reload := make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Follow(ctx, reload)
		close(done)
	}()

	p.set([]catalog.Title{{ID: "1", Name: "One"}, {ID: "2", Name: "Two"}}, nil)
	reload <- struct{}{}

	assert.Eventually(t, func() bool {
		titles, err := c.Titles(context.Background())
		return err == nil && len(titles) == 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}
