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

package mocks

import (
	"testing"

	"github.com/stretchr/testify/mock"
)

// MockSignaler is a testify mock for proctree.Signaler.
type MockSignaler struct {
	mock.Mock
}

// NewMockSignaler creates a MockSignaler whose expectations are asserted
// when the test ends.
func NewMockSignaler(t *testing.T) *MockSignaler {
	t.Helper()
	m := &MockSignaler{}
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockSignaler) Kill(pid int) error {
	//nolint:wrapcheck // mock returns are wrapped by the caller
	return m.Called(pid).Error(0)
}
