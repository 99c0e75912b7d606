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

package tui

import (
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// Page is a bordered box with a breadcrumb title, a content area, a status
// line and key hints drawn into the bottom border.
type Page struct {
	*tview.Box
	content tview.Primitive
	status  *tview.TextView
	hints   string
}

func NewPage() *Page {
	p := &Page{
		Box: tview.NewBox(),
		status: tview.NewTextView().
			SetDynamicColors(true).
			SetTextAlign(tview.AlignLeft),
	}
	p.SetBorder(true)
	return p
}

// SetTitle sets a breadcrumb title, e.g. " Titles > VR ".
func (p *Page) SetTitle(path ...string) *Page {
	p.Box.SetTitle(" " + strings.Join(path, " > ") + " ")
	return p
}

func (p *Page) SetContent(content tview.Primitive) *Page {
	p.content = content
	return p
}

func (p *Page) SetHints(hints string) *Page {
	p.hints = hints
	return p
}

// Status is the text view below the content.
func (p *Page) Status() *tview.TextView {
	return p.status
}

func (p *Page) Draw(screen tcell.Screen) {
	p.DrawForSubclass(screen, p)

	x, y, width, height := p.GetInnerRect()
	if width <= 0 || height <= 0 {
		return
	}

	statusHeight := 2
	contentHeight := max(height-statusHeight, 1)
	if p.content != nil {
		p.content.SetRect(x, y, width, contentHeight)
		p.content.Draw(screen)
	}
	p.status.SetRect(x, y+contentHeight, width, statusHeight)
	p.status.Draw(screen)

	p.drawHints(screen)
}

func (p *Page) drawHints(screen tcell.Screen) {
	outerX, outerY, outerWidth, outerHeight := p.GetRect()
	if p.hints == "" || outerWidth <= 4 || outerHeight <= 2 {
		return
	}
	bottomY := outerY + outerHeight - 1

	hints := []rune(p.hints)
	if avail := outerWidth - 4; len(hints) > avail {
		hints = hints[:avail]
	}
	startX := outerX + (outerWidth-len(hints))/2
	style := tcell.StyleDefault.
		Foreground(tview.Styles.BorderColor).
		Background(tview.Styles.PrimitiveBackgroundColor)

	for i := startX - 1; i < startX+len(hints)+1; i++ {
		screen.SetContent(i, bottomY, ' ', nil, style)
	}
	for i, r := range hints {
		screen.SetContent(startX+i, bottomY, r, nil, style)
	}
}

func (p *Page) Focus(delegate func(p tview.Primitive)) {
	if p.content != nil {
		delegate(p.content)
		return
	}
	p.Box.Focus(delegate)
}

func (p *Page) HasFocus() bool {
	if p.content != nil {
		return p.content.HasFocus()
	}
	return p.Box.HasFocus()
}

func (p *Page) InputHandler() func(event *tcell.EventKey, setFocus func(p tview.Primitive)) {
	return p.WrapInputHandler(func(event *tcell.EventKey, setFocus func(p tview.Primitive)) {
		if p.content != nil && p.content.HasFocus() {
			if handler := p.content.InputHandler(); handler != nil {
				handler(event, setFocus)
			}
		}
	})
}

func (p *Page) MouseHandler() func(
	action tview.MouseAction,
	event *tcell.EventMouse,
	setFocus func(p tview.Primitive),
) (consumed bool, capture tview.Primitive) {
	return p.WrapMouseHandler(func(
		action tview.MouseAction,
		event *tcell.EventMouse,
		setFocus func(p tview.Primitive),
	) (consumed bool, capture tview.Primitive) {
		if p.content != nil {
			return p.content.MouseHandler()(action, event, setFocus)
		}
		return false, nil
	})
}
