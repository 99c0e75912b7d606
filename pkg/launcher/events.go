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

package launcher

import (
	"context"

	"github.com/google/uuid"
)

// DefaultEventBuffer bounds the events waiting for the next frame.
const DefaultEventBuffer = 32

// EventKind is what a background task observed.
type EventKind int

const (
	EventFound EventKind = iota
	EventTimedOut
	EventExited
	EventTerminated
	EventTableUnavailable
)

func (k EventKind) String() string {
	switch k {
	case EventFound:
		return "found"
	case EventTimedOut:
		return "timed_out"
	case EventExited:
		return "exited"
	case EventTerminated:
		return "terminated"
	case EventTableUnavailable:
		return "table_unavailable"
	default:
		return "unknown"
	}
}

// Event carries a background result to the frame loop.
type Event struct {
	Err     error
	Handle  ProcessHandle
	Kind    EventKind
	Attempt uuid.UUID
}

// Publisher is the one-way queue from background tasks to the frame loop.
type Publisher struct {
	ch chan Event
}

// NewPublisher creates a publisher holding at most size pending events.
func NewPublisher(size int) *Publisher {
	if size <= 0 {
		size = DefaultEventBuffer
	}
	return &Publisher{ch: make(chan Event, size)}
}

// Publish queues ev, waiting for room if the frame loop is behind. It fails
// only when ctx is done.
func (p *Publisher) Publish(ctx context.Context, ev Event) error {
	select {
	case p.ch <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err() //nolint:wrapcheck // plain cancellation
	}
}

// Drain returns every queued event without blocking, in publish order.
func (p *Publisher) Drain() []Event {
	var out []Event
	for {
		select {
		case ev := <-p.ch:
			out = append(out, ev)
		default:
			return out
		}
	}
}
