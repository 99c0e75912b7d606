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
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	testsqlmock "github.com/oxrlauncher/oxrlauncher/pkg/testing/sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSqlInsertStart_Error(t *testing.T) {
	t.Parallel()
	db, mock := testsqlmock.New(t)

	at := time.UnixMilli(1_700_000_000_000)
	mock.ExpectExec(`insert into launches`).
		WithArgs("a1", "620980", "Beat Saber", "indirect", at.UnixMilli()).
		WillReturnError(errors.New("disk I/O error"))

	err := sqlInsertStart(context.Background(), db, &Entry{
		Attempt: "a1", TitleID: "620980", TitleName: "Beat Saber", Kind: "indirect", StartedAt: at,
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to insert launch")
}

func TestSqlMarkRunning_NoRows(t *testing.T) {
	t.Parallel()
	db, mock := testsqlmock.New(t)

	mock.ExpectExec(`update launches set pid`).
		WithArgs(4242, sqlmock.AnyArg(), "a1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := sqlMarkRunning(context.Background(), db, "a1", 4242, time.Now())

	require.ErrorIs(t, err, ErrUnknownAttempt)
}

func TestSqlRecent_QueryError(t *testing.T) {
	t.Parallel()
	db, mock := testsqlmock.New(t)

	mock.ExpectQuery(`select .* from launches`).WithArgs(MaxRecent).WillReturnError(errors.New("locked"))

	_, err := sqlRecent(context.Background(), db, 100000)

	require.Error(t, err)
}

func TestSqlRecent_ScanError(t *testing.T) {
	t.Parallel()
	db, mock := testsqlmock.New(t)

	rows := sqlmock.NewRows([]string{"id"}).AddRow(1)
	mock.ExpectQuery(`select .* from launches`).WithArgs(5).WillReturnRows(rows)

	_, err := sqlRecent(context.Background(), db, 5)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to scan launch")
}

func TestSqlCleanup_Error(t *testing.T) {
	t.Parallel()
	db, mock := testsqlmock.New(t)

	mock.ExpectExec(`delete from launches`).WillReturnError(errors.New("readonly"))

	_, err := sqlCleanup(context.Background(), db, 30, time.Now())

	require.Error(t, err)
}
