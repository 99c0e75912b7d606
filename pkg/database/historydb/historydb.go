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

// Package historydb stores one row per launch attempt in SQLite.
package historydb

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/oxrlauncher/oxrlauncher/pkg/database"
)

var ErrNullSQL = errors.New("history database is not connected")

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Entry is one launch attempt. Zero times mean the phase was never reached.
type Entry struct {
	StartedAt time.Time `json:"startedAt"`
	RunningAt time.Time `json:"runningAt,omitzero"`
	EndedAt   time.Time `json:"endedAt,omitzero"`
	Attempt   string    `json:"attempt"`
	TitleID   string    `json:"titleId"`
	TitleName string    `json:"titleName"`
	Kind      string    `json:"kind"`
	Outcome   string    `json:"outcome,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	ID        int64     `json:"id"`
	PID       int       `json:"pid,omitempty"`
}

type HistoryDB struct {
	sql *sql.DB
}

// Open opens or creates the database at path and applies migrations.
func Open(ctx context.Context, path string) (*HistoryDB, error) {
	sqlDB, err := database.OpenSQLite(path)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}
	db, err := New(ctx, sqlDB)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// New wraps an open connection and applies migrations.
func New(ctx context.Context, sqlDB *sql.DB) (*HistoryDB, error) {
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := database.MigrateUp(ctx, sqlDB, migrationFiles, "migrations"); err != nil {
		return nil, fmt.Errorf("failed to run history database migrations: %w", err)
	}
	return &HistoryDB{sql: sqlDB}, nil
}

func (db *HistoryDB) Close() error {
	if db.sql == nil {
		return nil
	}
	if err := db.sql.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

func (db *HistoryDB) InsertStart(ctx context.Context, e *Entry) error {
	if db.sql == nil {
		return ErrNullSQL
	}
	return sqlInsertStart(ctx, db.sql, e)
}

func (db *HistoryDB) MarkRunning(ctx context.Context, attempt string, pid int, at time.Time) error {
	if db.sql == nil {
		return ErrNullSQL
	}
	return sqlMarkRunning(ctx, db.sql, attempt, pid, at)
}

func (db *HistoryDB) MarkEnded(ctx context.Context, attempt, outcome, reason string, at time.Time) error {
	if db.sql == nil {
		return ErrNullSQL
	}
	return sqlMarkEnded(ctx, db.sql, attempt, outcome, reason, at)
}

// Recent lists the newest launches first.
func (db *HistoryDB) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if db.sql == nil {
		return nil, ErrNullSQL
	}
	return sqlRecent(ctx, db.sql, limit)
}

// Cleanup deletes launches started more than retentionDays before now.
func (db *HistoryDB) Cleanup(ctx context.Context, retentionDays int, now time.Time) (int64, error) {
	if db.sql == nil {
		return 0, ErrNullSQL
	}
	return sqlCleanup(ctx, db.sql, retentionDays, now)
}
