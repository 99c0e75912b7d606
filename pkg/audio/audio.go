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

// Package audio plays short launch feedback cues through malgo.
package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gen2brain/malgo"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/generators"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
	"github.com/oxrlauncher/oxrlauncher/pkg/helpers/syncutil"
	"github.com/rs/zerolog/log"
)

// SampleRate is the device output rate. Everything is resampled to it.
const SampleRate = beep.SampleRate(48000)

var ErrUnsupportedFormat = errors.New("unsupported audio format")

// Cue is a feedback sound.
type Cue int

const (
	CueRunning Cue = iota
	CueFailed
)

func (c Cue) String() string {
	switch c {
	case CueRunning:
		return "running"
	case CueFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Player is the interface for audio playback, allowing tests to mock sound output.
type Player interface {
	PlayCue(cue Cue) error
	PlayFile(path string) error
}

// MalgoPlayer implements Player using malgo for real audio hardware output.
// Starting a sound cancels the one already playing.
type MalgoPlayer struct {
	currentCancel context.CancelFunc
	fileCache     map[string][]byte
	playbackGen   uint64
	fileCacheMu   syncutil.RWMutex
	playbackMu    syncutil.Mutex
}

func NewMalgoPlayer() *MalgoPlayer {
	return &MalgoPlayer{
		fileCache: make(map[string][]byte),
	}
}

type note struct {
	freq float64
	dur  time.Duration
}

// cueNotes: rising for running, falling for failed.
var cueNotes = map[Cue][]note{
	CueRunning: {{freq: 660, dur: 90 * time.Millisecond}, {freq: 990, dur: 140 * time.Millisecond}},
	CueFailed:  {{freq: 440, dur: 140 * time.Millisecond}, {freq: 294, dur: 220 * time.Millisecond}},
}

// cueGain scales the generated sine waves down from full amplitude.
const cueGain = -0.75

// CueStreamer synthesizes the tone sequence for cue at SampleRate.
func CueStreamer(cue Cue) (beep.Streamer, error) {
	notes, ok := cueNotes[cue]
	if !ok {
		return nil, fmt.Errorf("unknown cue %d", cue)
	}
	parts := make([]beep.Streamer, 0, len(notes)*2)
	for _, n := range notes {
		sine, err := generators.SineTone(SampleRate, n.freq)
		if err != nil {
			return nil, fmt.Errorf("generating %v Hz tone: %w", n.freq, err)
		}
		parts = append(parts,
			beep.Take(SampleRate.N(n.dur), sine),
			generators.Silence(SampleRate.N(20*time.Millisecond)),
		)
	}
	return &effects.Gain{Streamer: beep.Seq(parts...), Gain: cueGain}, nil
}

// PlayCue plays a synthesized cue asynchronously.
func (p *MalgoPlayer) PlayCue(cue Cue) error {
	streamer, err := CueStreamer(cue)
	if err != nil {
		return err
	}
	p.play(streamer, nil)
	return nil
}

// PlayFile plays an audio file asynchronously, detecting format by extension.
// Supports WAV, MP3, OGG (Vorbis) and FLAC. File bytes are cached.
func (p *MalgoPlayer) PlayFile(path string) error {
	data, err := p.readFileWithCache(path)
	if err != nil {
		return fmt.Errorf("failed to read audio file: %w", err)
	}

	streamer, format, err := decode(filepath.Ext(path), data)
	if err != nil {
		return err
	}

	p.play(beep.Resample(4, format.SampleRate, SampleRate, streamer), streamer)
	return nil
}

func decode(ext string, data []byte) (beep.StreamSeekCloser, beep.Format, error) {
	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
		err      error
	)
	switch strings.ToLower(ext) {
	case ".wav":
		streamer, format, err = wav.Decode(bytes.NewReader(data))
	case ".mp3":
		streamer, format, err = mp3.Decode(io.NopCloser(bytes.NewReader(data)))
	case ".ogg":
		streamer, format, err = vorbis.Decode(io.NopCloser(bytes.NewReader(data)))
	case ".flac":
		streamer, format, err = flac.Decode(bytes.NewReader(data))
	default:
		return nil, beep.Format{}, fmt.Errorf("%w: %q (supported: .wav, .mp3, .ogg, .flac)", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, beep.Format{}, fmt.Errorf("failed to decode audio file: %w", err)
	}
	return streamer, format, nil
}

// play cancels any current playback and starts streamer on a new device.
// closer, when set, is closed once playback ends.
func (p *MalgoPlayer) play(streamer beep.Streamer, closer io.Closer) {
	p.playbackMu.Lock()
	if p.currentCancel != nil {
		p.currentCancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.currentCancel = cancel
	p.playbackGen++
	thisGen := p.playbackGen
	p.playbackMu.Unlock()

	go func() {
		defer func() {
			if closer != nil {
				if err := closer.Close(); err != nil {
					log.Warn().Err(err).Msg("failed to close audio streamer")
				}
			}
			p.playbackMu.Lock()
			if p.playbackGen == thisGen {
				p.currentCancel = nil
			}
			p.playbackMu.Unlock()
			cancel()
		}()

		if err := playWithMalgo(ctx, streamer); err != nil {
			if !errors.Is(err, context.Canceled) {
				log.Warn().Err(err).Msg("failed to play audio")
			}
			return
		}
		log.Debug().Msg("completed audio playback")
	}()
}

func (p *MalgoPlayer) readFileWithCache(path string) ([]byte, error) {
	p.fileCacheMu.RLock()
	if cached, ok := p.fileCache[path]; ok {
		p.fileCacheMu.RUnlock()
		return cached, nil
	}
	p.fileCacheMu.RUnlock()

	//nolint:gosec // G304: paths come from the user's own config
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	p.fileCacheMu.Lock()
	p.fileCache[path] = data
	p.fileCacheMu.Unlock()

	return data, nil
}

// playWithMalgo blocks until streamer is drained or ctx is cancelled.
func playWithMalgo(ctx context.Context, streamer beep.Streamer) error {
	malgoCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("failed to initialize malgo context: %w", err)
	}
	if malgoCtx == nil {
		return errors.New("malgo context is nil after initialization")
	}
	defer func() {
		_ = malgoCtx.Uninit()
		malgoCtx.Free()
	}()

	// F32 avoids the S16->S32 conversion bug in miniaudio on PulseAudio.
	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatF32
	deviceConfig.Playback.Channels = 2
	deviceConfig.SampleRate = uint32(SampleRate)
	deviceConfig.Alsa.NoMMap = 1

	done := make(chan struct{})

	var (
		mu       syncutil.Mutex
		finished bool
		samples  [][2]float64
	)

	onSamples := func(out, _ []byte, frameCount uint32) {
		mu.Lock()
		defer mu.Unlock()

		if finished {
			return
		}
		if ctx.Err() != nil {
			finished = true
			close(done)
			return
		}

		if len(samples) < int(frameCount) {
			samples = make([][2]float64, frameCount)
		}

		n, ok := streamer.Stream(samples[:frameCount])
		if !ok || n == 0 {
			finished = true
			close(done)
			return
		}

		offset := encodeF32(out, samples[:n])
		for i := offset; i < len(out); i++ {
			out[i] = 0
		}
	}

	device, err := malgo.InitDevice(malgoCtx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: onSamples,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize audio device: %w", err)
	}
	defer device.Uninit()

	if err := device.Start(); err != nil {
		return fmt.Errorf("failed to start audio device: %w", err)
	}

	select {
	case <-done:
	case <-ctx.Done():
		mu.Lock()
		finished = true
		mu.Unlock()
	}

	if err := device.Stop(); err != nil {
		log.Warn().Err(err).Msg("failed to stop audio device")
	}

	return ctx.Err() //nolint:wrapcheck // plain cancellation
}

// encodeF32 writes stereo samples as interleaved little-endian float32 and
// returns the number of bytes written.
func encodeF32(out []byte, samples [][2]float64) int {
	offset := 0
	for _, s := range samples {
		if offset+8 > len(out) {
			break
		}
		binary.LittleEndian.PutUint32(out[offset:], math.Float32bits(float32(s[0])))
		binary.LittleEndian.PutUint32(out[offset+4:], math.Float32bits(float32(s[1])))
		offset += 8
	}
	return offset
}
