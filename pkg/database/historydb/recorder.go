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

package historydb

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oxrlauncher/oxrlauncher/pkg/catalog"
	"github.com/oxrlauncher/oxrlauncher/pkg/launcher"
	"github.com/rs/zerolog/log"
)

// DefaultQueueSize bounds the writes waiting for the writer goroutine.
const DefaultQueueSize = 64

const writeTimeout = 5 * time.Second

type store interface {
	InsertStart(ctx context.Context, e *Entry) error
	MarkRunning(ctx context.Context, attempt string, pid int, at time.Time) error
	MarkEnded(ctx context.Context, attempt, outcome, reason string, at time.Time) error
}

// Recorder implements launcher.Recorder. Calls queue a write and return at
// once; a single goroutine applies writes in order. When the queue is full
// the write is dropped and logged.
type Recorder struct {
	db     store
	ops    chan func(ctx context.Context) error
	done   chan struct{}
	mu     sync.Mutex
	closed bool
}

var _ launcher.Recorder = (*Recorder)(nil)

// NewRecorder starts the writer goroutine. Call Close to stop it.
func NewRecorder(db store, queueSize int) *Recorder {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	r := &Recorder{
		db:   db,
		ops:  make(chan func(ctx context.Context) error, queueSize),
		done: make(chan struct{}),
	}
	go r.run()
	return r
}

func (r *Recorder) run() {
	defer close(r.done)
	for op := range r.ops {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		if err := op(ctx); err != nil {
			log.Error().Err(err).Msg("failed to write launch history")
		}
		cancel()
	}
}

func (r *Recorder) enqueue(op func(ctx context.Context) error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	select {
	case r.ops <- op:
	default:
		log.Warn().Msg("launch history queue full, dropping write")
	}
}

func (r *Recorder) RecordStart(attempt uuid.UUID, title catalog.Title, at time.Time) {
	e := &Entry{
		Attempt:   attempt.String(),
		TitleID:   title.ID,
		TitleName: title.Name,
		Kind:      title.Kind.String(),
		StartedAt: at,
	}
	r.enqueue(func(ctx context.Context) error { return r.db.InsertStart(ctx, e) })
}

func (r *Recorder) RecordRunning(attempt uuid.UUID, pid int, at time.Time) {
	r.enqueue(func(ctx context.Context) error { return r.db.MarkRunning(ctx, attempt.String(), pid, at) })
}

func (r *Recorder) RecordEnd(attempt uuid.UUID, outcome launcher.Outcome, reason string, at time.Time) {
	r.enqueue(func(ctx context.Context) error {
		return r.db.MarkEnded(ctx, attempt.String(), string(outcome), reason, at)
	})
}

// Close stops accepting writes and waits for queued ones to finish.
func (r *Recorder) Close() {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.ops)
	}
	r.mu.Unlock()
	<-r.done
}
