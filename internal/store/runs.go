package store

import (
	"context"
	"fmt"
	"time"
)

// Run is the bookkeeping row of one finished reconciliation.
type Run struct {
	ID          string
	ProjectKey  int
	Attempt     int
	StartedAt   time.Time
	FinishedAt  time.Time
	Created     int
	Deleted     int
	Resurrected int
	Reused      int
	NoMatch     int
}

// RecordRun stores a finished run. Recording the same run id again replaces it.
func (s *Store) RecordRun(ctx context.Context, run Run) error {
	ctx = ensureContext(ctx)
	err := retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, `INSERT INTO id_runs (
                run_id, project_key, attempt, started_at, finished_at,
                created, deleted, resurrected, reused, no_match
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
            ON CONFLICT (run_id) DO UPDATE SET
                finished_at = excluded.finished_at, created = excluded.created,
                deleted = excluded.deleted, resurrected = excluded.resurrected,
                reused = excluded.reused, no_match = excluded.no_match`,
			run.ID, run.ProjectKey, run.Attempt,
			formatTime(run.StartedAt), formatTime(run.FinishedAt),
			run.Created, run.Deleted, run.Resurrected, run.Reused, run.NoMatch,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("record run %s: %w", run.ID, err)
	}
	return nil
}

// ListRuns returns the most recent runs first. projectKey 0 lists all
// projects; limit <= 0 lists everything.
func (s *Store) ListRuns(ctx context.Context, projectKey, limit int) ([]Run, error) {
	query := `SELECT run_id, project_key, attempt, started_at, finished_at,
            created, deleted, resurrected, reused, no_match FROM id_runs`
	var args []any
	if projectKey != 0 {
		query += ` WHERE project_key = ?`
		args = append(args, projectKey)
	}
	query += ` ORDER BY finished_at DESC, run_id`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run                   Run
			startedRaw, finishRaw string
		)
		if err := rows.Scan(&run.ID, &run.ProjectKey, &run.Attempt, &startedRaw, &finishRaw,
			&run.Created, &run.Deleted, &run.Resurrected, &run.Reused, &run.NoMatch); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if t, err := parseTimeString(startedRaw); err == nil {
			run.StartedAt = t
		}
		if t, err := parseTimeString(finishRaw); err == nil {
			run.FinishedAt = t
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
