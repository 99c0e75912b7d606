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

package steamtracker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mackerelio/go-osstat/loadavg"
	"github.com/oxrlauncher/oxrlauncher/pkg/catalog"
	"github.com/oxrlauncher/oxrlauncher/pkg/procscanner"
	"github.com/oxrlauncher/oxrlauncher/pkg/testing/helpers"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type discoverResult struct {
	err  error
	cand Candidate
}

func newTestTracker(fs afero.Fs, clock clockwork.Clock, cfg Config) *Tracker {
	tr := New(procscanner.New(procscanner.WithFs(fs)), WithClock(clock), WithConfig(cfg))
	tr.loadAvg = func() (*loadavg.Stats, error) {
		return &loadavg.Stats{Loadavg1: 1.5, Loadavg5: 1, Loadavg15: 0.5}, nil
	}
	return tr
}

// runDiscover drives the fake clock until Discover returns. onSleep is
// called before each advance with the number of sleeps so far.
func runDiscover(
	t *testing.T,
	ctx context.Context,
	tr *Tracker,
	clock *clockwork.FakeClock,
	title catalog.Title,
	onSleep func(n int),
) discoverResult {
	t.Helper()

	done := make(chan discoverResult, 1)
	go func() {
		cand, err := tr.Discover(ctx, title)
		done <- discoverResult{cand: cand, err: err}
	}()

	deadline := time.After(5 * time.Second)
	sleeps := 0
	for {
		select {
		case res := <-done:
			return res
		case <-deadline:
			t.Fatal("discover did not return")
		default:
		}

		waitCtx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		err := clock.BlockUntilContext(waitCtx, 1)
		cancel()
		if err != nil {
			continue
		}
		if onSleep != nil {
			onSleep(sleeps)
		}
		sleeps++
		clock.Advance(time.Minute)
	}
}

func beatSaber() catalog.Title {
	return catalog.Title{
		ID:         beatSaberID,
		Name:       "Beat Saber",
		Kind:       catalog.Indirect,
		InstallDir: "/home/deck/.steam/steamapps/common/Beat Saber",
		VR:         true,
	}
}

func TestDiscover_FindsMarkedCandidateAmongTwo(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	fs := helpers.NewFakeProcFs(t, twoTitlesRunning()...)
	tr := newTestTracker(fs, clock, Config{})

	res := runDiscover(t, context.Background(), tr, clock, beatSaber(), nil)

	require.NoError(t, res.err)
	assert.Equal(t, 200, res.cand.PID(), "must not pick the other reaper")
	assert.Equal(t, EvidenceEnvMarker, res.cand.Evidence)
}

func TestDiscover_WaitsForSupervisorToAppear(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	fs := helpers.NewFakeProcFs(t, helpers.FakeProcess{PID: 1, Comm: "systemd"})
	tr := newTestTracker(fs, clock, Config{MaxAttempts: 5})

	all := twoTitlesRunning()
	res := runDiscover(t, context.Background(), tr, clock, beatSaber(), func(n int) {
		// settle delay is sleep 0, first rescan is sleep 1
		if n == 2 {
			for _, p := range all {
				helpers.WriteFakeProcess(t, fs, p)
			}
		}
	})

	require.NoError(t, res.err)
	assert.Equal(t, 200, res.cand.PID())
}

func TestDiscover_TimesOut(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	fs := helpers.NewFakeProcFs(t, helpers.FakeProcess{PID: 1, Comm: "systemd"})
	tr := newTestTracker(fs, clock, Config{MaxAttempts: 3})

	sleeps := 0
	res := runDiscover(t, context.Background(), tr, clock, beatSaber(), func(int) { sleeps++ })

	var derr *DiscoveryError
	require.ErrorAs(t, res.err, &derr)
	assert.Equal(t, DiscoveryTimedOut, derr.Kind)
	assert.Equal(t, 3, derr.Attempts)
	require.ErrorIs(t, res.err, ErrNoCandidate)
	assert.Equal(t, 3, sleeps, "settle delay plus two rescans")
}

func TestDiscover_AmbiguousAfterRetries(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	procs := append(twoTitlesRunning(),
		helpers.FakeProcess{PID: 300, PPID: 1, Comm: "reaper", Args: reaperArgs(beatSaberID, "/x.exe")},
		helpers.FakeProcess{PID: 301, PPID: 300, Comm: "pv", Env: map[string]string{"SteamAppId": beatSaberID}},
	)
	tr := newTestTracker(helpers.NewFakeProcFs(t, procs...), clock, Config{MaxAttempts: 2})

	res := runDiscover(t, context.Background(), tr, clock, beatSaber(), nil)

	var derr *DiscoveryError
	require.ErrorAs(t, res.err, &derr)
	assert.Equal(t, DiscoveryAmbiguous, derr.Kind)
}

func TestDiscover_ZombieSupervisorIsNotReported(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	procs := twoTitlesRunning()
	for i := range procs {
		if procs[i].PID == 200 {
			procs[i].State = "Z"
		}
	}
	tr := newTestTracker(helpers.NewFakeProcFs(t, procs...), clock, Config{MaxAttempts: 2})

	res := runDiscover(t, context.Background(), tr, clock, beatSaber(), nil)

	require.Error(t, res.err)
	assert.Zero(t, res.cand.PID())
}

func TestDiscover_Cancelled(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	tr := newTestTracker(helpers.NewFakeProcFs(t), clock, Config{})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := tr.Discover(ctx, beatSaber())
		done <- err
	}()
	require.NoError(t, clock.BlockUntilContext(context.Background(), 1))
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("discover ignored cancellation")
	}
}

func TestDiscover_TableUnavailable(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	tr := New(
		procscanner.New(procscanner.WithFs(afero.NewMemMapFs()), procscanner.WithProcPath("/missing")),
		WithClock(clock),
	)

	res := runDiscover(t, context.Background(), tr, clock, beatSaber(), nil)

	require.ErrorIs(t, res.err, procscanner.ErrTableUnavailable)
	var derr *DiscoveryError
	assert.False(t, errors.As(res.err, &derr))
}

func TestDiscover_RejectsDirectTitle(t *testing.T) {
	t.Parallel()

	tr := New(procscanner.New(procscanner.WithFs(afero.NewMemMapFs())))

	_, err := tr.Discover(context.Background(), catalog.Title{ID: "/opt/game", Kind: catalog.Direct})

	var derr *DiscoveryError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, DiscoveryNotIndirect, derr.Kind)
}

func TestWithConfig_KeepsDefaultsForZeroFields(t *testing.T) {
	t.Parallel()

	tr := New(nil, WithConfig(Config{MaxAttempts: 3, SupervisorName: "pv-reaper"}))

	cfg := tr.Config()
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, "pv-reaper", cfg.SupervisorName)
	assert.Equal(t, DefaultSettleDelay, cfg.SettleDelay)
	assert.Equal(t, DefaultMarkerVars, cfg.MarkerVars)
}

func TestLocate_SkipsReaperWithoutSteamLaunch(t *testing.T) {
	t.Parallel()

	procs := append(twoTitlesRunning(), helpers.FakeProcess{
		PID: 300, PPID: 1, Comm: "reaper",
		Args: []string{"reaper", "--", "/home/deck/.steam/steamapps/common/Beat Saber/Beat Saber.exe"},
		Env:  map[string]string{"SteamAppId": beatSaberID},
	})
	tr := newTestTracker(helpers.NewFakeProcFs(t, procs...), clockwork.NewFakeClock(), Config{})
	snap, err := tr.table.Snapshot()
	require.NoError(t, err)

	cand, err := tr.Locate(snap, beatSaber())

	require.NoError(t, err)
	assert.Equal(t, 200, cand.PID())
}

func TestOwns(t *testing.T) {
	t.Parallel()

	procs := append(twoTitlesRunning(),
		helpers.FakeProcess{PID: 400, PPID: 1, Comm: "bash", Args: []string{"/bin/bash"}},
	)
	tr := newTestTracker(helpers.NewFakeProcFs(t, procs...), clockwork.NewFakeClock(), Config{})
	snap, err := tr.table.Snapshot()
	require.NoError(t, err)

	assert.True(t, tr.Owns(snap, beatSaber(), 200))
	assert.False(t, tr.Owns(snap, beatSaber(), 100), "another title's supervisor")
	assert.False(t, tr.Owns(snap, beatSaber(), 201), "not a supervisor")
	assert.False(t, tr.Owns(snap, beatSaber(), 400), "reused pid")
	assert.False(t, tr.Owns(snap, beatSaber(), 999), "gone")
}
