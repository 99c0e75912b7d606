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
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// MaxRecent caps the rows Recent returns.
const MaxRecent = 500

var ErrUnknownAttempt = errors.New("no launch recorded for attempt")

func sqlInsertStart(ctx context.Context, db *sql.DB, e *Entry) error {
	res, err := db.ExecContext(ctx, `
		insert into launches (attempt, title_id, title_name, kind, started_at)
		values (?, ?, ?, ?, ?);`,
		e.Attempt, e.TitleID, e.TitleName, e.Kind, e.StartedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert launch: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get launch id: %w", err)
	}
	e.ID = id
	return nil
}

func sqlMarkRunning(ctx context.Context, db *sql.DB, attempt string, pid int, at time.Time) error {
	res, err := db.ExecContext(ctx,
		`update launches set pid = ?, running_at = ? where attempt = ?;`,
		pid, at.UnixMilli(), attempt,
	)
	if err != nil {
		return fmt.Errorf("failed to mark launch running: %w", err)
	}
	return expectOneRow(res, attempt)
}

func sqlMarkEnded(ctx context.Context, db *sql.DB, attempt, outcome, reason string, at time.Time) error {
	res, err := db.ExecContext(ctx,
		`update launches set outcome = ?, reason = ?, ended_at = ? where attempt = ? and ended_at is null;`,
		outcome, reason, at.UnixMilli(), attempt,
	)
	if err != nil {
		return fmt.Errorf("failed to mark launch ended: %w", err)
	}
	return expectOneRow(res, attempt)
}

func expectOneRow(res sql.Result, attempt string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrUnknownAttempt, attempt)
	}
	return nil
}

func sqlRecent(ctx context.Context, db *sql.DB, limit int) ([]Entry, error) {
	if limit <= 0 || limit > MaxRecent {
		limit = MaxRecent
	}
	rows, err := db.QueryContext(ctx, `
		select id, attempt, title_id, title_name, kind, pid,
			started_at, running_at, ended_at, outcome, reason
		from launches
		order by started_at desc, id desc
		limit ?;`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query launches: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close rows")
		}
	}()

	var entries []Entry
	for rows.Next() {
		var (
			e              Entry
			pid            sql.NullInt64
			started        int64
			running, ended sql.NullInt64
			outcome        sql.NullString
		)
		err := rows.Scan(&e.ID, &e.Attempt, &e.TitleID, &e.TitleName, &e.Kind, &pid,
			&started, &running, &ended, &outcome, &e.Reason)
		if err != nil {
			return nil, fmt.Errorf("failed to scan launch: %w", err)
		}
		e.PID = int(pid.Int64)
		e.StartedAt = time.UnixMilli(started)
		if running.Valid {
			e.RunningAt = time.UnixMilli(running.Int64)
		}
		if ended.Valid {
			e.EndedAt = time.UnixMilli(ended.Int64)
		}
		e.Outcome = outcome.String
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate launches: %w", err)
	}
	return entries, nil
}

func sqlCleanup(ctx context.Context, db *sql.DB, retentionDays int, now time.Time) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	cutoff := now.AddDate(0, 0, -retentionDays).UnixMilli()

	res, err := db.ExecContext(ctx, `delete from launches where started_at < ?;`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to execute history cleanup: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n > 0 {
		log.Info().Int64("rows", n).Int("retentionDays", retentionDays).Msg("cleaned up launch history")
	}
	return n, nil
}
