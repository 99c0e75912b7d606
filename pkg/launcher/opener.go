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
	"errors"
	"fmt"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/oxrlauncher/oxrlauncher/pkg/helpers/command"
)

// CommandOpener opens URLs by running a helper program such as xdg-open or
// the steam binary.
type CommandOpener struct {
	exec    command.Executor
	program string
}

// NewCommandOpener creates an opener running program with the URL as its
// only argument.
func NewCommandOpener(exec command.Executor, program string) *CommandOpener {
	if program == "" {
		program = "xdg-open"
	}
	return &CommandOpener{exec: exec, program: program}
}

// Open starts the helper without waiting for it, since the steam binary
// stays in the foreground when the client was not already running.
func (o *CommandOpener) Open(ctx context.Context, url string) error {
	if err := o.exec.Start(ctx, o.program, url); err != nil {
		return fmt.Errorf("%s %s: %w", o.program, url, err)
	}
	return nil
}

const (
	portalDest    = "org.freedesktop.portal.Desktop"
	portalPath    = dbus.ObjectPath("/org/freedesktop/portal/desktop")
	portalOpenURI = "org.freedesktop.portal.OpenURI.OpenURI"
	// portalCallLimit bounds the OpenURI round trip, which runs on the
	// frame loop. The portal replies with a request handle at once.
	portalCallLimit = 500 * time.Millisecond
)

// portalObject is the part of dbus.BusObject the portal opener needs.
type portalObject interface {
	CallWithContext(ctx context.Context, method string, flags dbus.Flags, args ...any) *dbus.Call
}

// PortalOpener opens URLs through the XDG desktop portal, which works from
// inside Flatpak and other sandboxes where xdg-open is missing.
type PortalOpener struct {
	connect func() (portalObject, error)
}

// NewPortalOpener creates an opener using the session bus.
func NewPortalOpener() *PortalOpener {
	return &PortalOpener{connect: func() (portalObject, error) {
		conn, err := dbus.SessionBus()
		if err != nil {
			return nil, fmt.Errorf("connect to session bus: %w", err)
		}
		return conn.Object(portalDest, portalPath), nil
	}}
}

// Open asks the portal to open url. The portal returns a request handle
// immediately; the actual launch happens asynchronously.
func (o *PortalOpener) Open(ctx context.Context, url string) error {
	obj, err := o.connect()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, portalCallLimit)
	defer cancel()

	call := obj.CallWithContext(ctx, portalOpenURI, 0, "", url, map[string]dbus.Variant{})
	if call == nil {
		return errors.New("portal OpenURI: no reply")
	}
	if call.Err != nil {
		return fmt.Errorf("portal OpenURI %s: %w", url, call.Err)
	}
	return nil
}
