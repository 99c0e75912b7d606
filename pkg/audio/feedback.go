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
	"github.com/oxrlauncher/oxrlauncher/pkg/launcher"
	"github.com/rs/zerolog/log"
)

// Sounds overrides the synthesized cues with audio files. Empty paths use
// the built-in tones.
type Sounds struct {
	Running string
	Failed  string
}

// Feedback returns a frame observer that plays a cue when a launch reaches
// Running or ends in NotStarted. Playback is asynchronous so the observer
// returns immediately.
func Feedback(p Player, sounds Sounds) func(launcher.Notification, launcher.State) {
	return func(n launcher.Notification, _ launcher.State) {
		var (
			cue  Cue
			path string
		)
		switch n.Kind {
		case launcher.NotifyRunning:
			cue, path = CueRunning, sounds.Running
		case launcher.NotifyNotStarted:
			cue, path = CueFailed, sounds.Failed
		default:
			return
		}

		if path != "" {
			err := p.PlayFile(path)
			if err == nil {
				return
			}
			log.Warn().Err(err).Str("path", path).Msg("custom sound failed, using built-in cue")
		}
		if err := p.PlayCue(cue); err != nil {
			log.Warn().Err(err).Stringer("cue", cue).Msg("failed to play cue")
		}
	}
}
