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

package audio

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/oxrlauncher/oxrlauncher/pkg/launcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockPlayer struct {
	mock.Mock
}

func (m *mockPlayer) PlayCue(cue Cue) error {
	args := m.Called(cue)
	return args.Error(0) //nolint:wrapcheck // mock
}

func (m *mockPlayer) PlayFile(path string) error {
	args := m.Called(path)
	return args.Error(0) //nolint:wrapcheck // mock
}

func drain(t *testing.T, s beep.Streamer) (n int, peak float64) {
	t.Helper()
	buf := make([][2]float64, 512)
	for {
		got, ok := s.Stream(buf)
		for _, smp := range buf[:got] {
			peak = math.Max(peak, math.Abs(smp[0]))
		}
		n += got
		if !ok {
			return n, peak
		}
		require.Less(t, n, int(SampleRate)*5, "cue never ended")
	}
}

func TestCueStreamer(t *testing.T) {
	t.Parallel()

	for _, cue := range []Cue{CueRunning, CueFailed} {
		t.Run(cue.String(), func(t *testing.T) {
			t.Parallel()

			s, err := CueStreamer(cue)
			require.NoError(t, err)

			var want int
			for _, n := range cueNotes[cue] {
				want += SampleRate.N(n.dur) + SampleRate.N(20*time.Millisecond)
			}
			n, peak := drain(t, s)
			assert.Equal(t, want, n)
			assert.Greater(t, peak, 0.0)
			assert.LessOrEqual(t, peak, 1+cueGain+1e-9)
		})
	}
}

func TestCueStreamer_Unknown(t *testing.T) {
	t.Parallel()

	_, err := CueStreamer(Cue(99))
	require.Error(t, err)
	assert.Equal(t, "unknown", Cue(99).String())
}

func TestPlayFile_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	txt := filepath.Join(dir, "sound.txt")
	require.NoError(t, os.WriteFile(txt, []byte("nope"), 0o600))
	bad := filepath.Join(dir, "sound.wav")
	require.NoError(t, os.WriteFile(bad, []byte("not a wav"), 0o600))

	p := NewMalgoPlayer()

	err := p.PlayFile(txt)
	require.ErrorIs(t, err, ErrUnsupportedFormat)

	err = p.PlayFile(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode")

	err = p.PlayFile(filepath.Join(dir, "missing.wav"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read")
}

func TestReadFileWithCache(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "a.wav")
	require.NoError(t, os.WriteFile(path, []byte("first"), 0o600))

	p := NewMalgoPlayer()
	got, err := p.readFileWithCache(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), got)

	require.NoError(t, os.WriteFile(path, []byte("second"), 0o600))
	got, err = p.readFileWithCache(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), got)
}

func TestEncodeF32(t *testing.T) {
	t.Parallel()

	out := make([]byte, 20)
	n := encodeF32(out, [][2]float64{{0.5, -0.5}, {1, 0}, {0.25, 0.25}})
	assert.Equal(t, 16, n)
	assert.InDelta(t, 0.5, math.Float32frombits(leU32(out[0:])), 1e-6)
	assert.InDelta(t, -0.5, math.Float32frombits(leU32(out[4:])), 1e-6)
	assert.InDelta(t, 1.0, math.Float32frombits(leU32(out[8:])), 1e-6)
}

func leU32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func TestFeedback(t *testing.T) {
	t.Parallel()

	t.Run("built-in cues", func(t *testing.T) {
		t.Parallel()
		p := &mockPlayer{}
		p.On("PlayCue", CueRunning).Return(nil).Once()
		p.On("PlayCue", CueFailed).Return(nil).Once()

		obs := Feedback(p, Sounds{})
		obs(launcher.Notification{Kind: launcher.NotifyStarting, TitleID: "1"}, launcher.State{})
		obs(launcher.Notification{Kind: launcher.NotifyRunning, TitleID: "1"}, launcher.State{})
		obs(launcher.Notification{Kind: launcher.NotifyNotStarted, TitleID: "1"}, launcher.State{})

		p.AssertExpectations(t)
		p.AssertNotCalled(t, "PlayFile", mock.Anything)
	})

	t.Run("custom file", func(t *testing.T) {
		t.Parallel()
		p := &mockPlayer{}
		p.On("PlayFile", "/sounds/ok.ogg").Return(nil).Once()

		obs := Feedback(p, Sounds{Running: "/sounds/ok.ogg"})
		obs(launcher.Notification{Kind: launcher.NotifyRunning}, launcher.State{})

		p.AssertExpectations(t)
		p.AssertNotCalled(t, "PlayCue", mock.Anything)
	})

	t.Run("custom file falls back", func(t *testing.T) {
		t.Parallel()
		p := &mockPlayer{}
		p.On("PlayFile", "/sounds/bad.ogg").Return(errors.New("boom")).Once()
		p.On("PlayCue", CueFailed).Return(nil).Once()

		obs := Feedback(p, Sounds{Failed: "/sounds/bad.ogg"})
		obs(launcher.Notification{Kind: launcher.NotifyNotStarted}, launcher.State{})

		p.AssertExpectations(t)
	})
}
