package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// IDMapWriter writes the stable id map of a project in explicit
// transactions. Rows written since the last Commit are discarded by Close.
type IDMapWriter struct {
	db         *sql.DB
	projectKey int
	tx         *sql.Tx
	stmt       *sql.Stmt
	closed     bool
}

// OpenIDMap starts a write session for the id map of a project.
func (s *Store) OpenIDMap(ctx context.Context, projectKey int) (*IDMapWriter, error) {
	w := &IDMapWriter{db: s.db, projectKey: projectKey}
	if err := w.begin(ensureContext(ctx)); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *IDMapWriter) begin(ctx context.Context) error {
	if w.closed {
		return errors.New("id map writer is closed")
	}
	if w.tx != nil {
		return nil
	}
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin id map tx: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO id_map (dataset_key, usage_id, stable_id) VALUES (?, ?, ?)
        ON CONFLICT (dataset_key, usage_id) DO UPDATE SET stable_id = excluded.stable_id`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare id map upsert: %w", err)
	}
	w.tx, w.stmt = tx, stmt
	return nil
}

// Clear removes the previous mapping of the project.
func (w *IDMapWriter) Clear(ctx context.Context) error {
	if err := w.begin(ctx); err != nil {
		return err
	}
	if _, err := w.tx.ExecContext(ctx, `DELETE FROM id_map WHERE dataset_key = ?`, w.projectKey); err != nil {
		return fmt.Errorf("clear id map of %d: %w", w.projectKey, err)
	}
	return nil
}

// Map upserts the stable id of a project usage.
func (w *IDMapWriter) Map(ctx context.Context, usageID, stableID string) error {
	if err := w.begin(ctx); err != nil {
		return err
	}
	if _, err := w.stmt.ExecContext(ctx, w.projectKey, usageID, stableID); err != nil {
		return fmt.Errorf("map usage %s to %s: %w", usageID, stableID, err)
	}
	return nil
}

// Commit makes all rows written so far durable. Later writes open a new
// transaction.
func (w *IDMapWriter) Commit(ctx context.Context) error {
	if w.tx == nil {
		return nil
	}
	_ = w.stmt.Close()
	err := retryOnBusy(ensureContext(ctx), w.tx.Commit)
	w.tx, w.stmt = nil, nil
	if err != nil {
		return fmt.Errorf("commit id map: %w", err)
	}
	return nil
}

// Close rolls back uncommitted rows.
func (w *IDMapWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if w.tx == nil {
		return nil
	}
	_ = w.stmt.Close()
	err := w.tx.Rollback()
	w.tx, w.stmt = nil, nil
	if err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rollback id map: %w", err)
	}
	return nil
}

// ReadIDMap returns the usage id to stable id mapping of a project.
func (s *Store) ReadIDMap(ctx context.Context, projectKey int) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT usage_id, stable_id FROM id_map WHERE dataset_key = ? ORDER BY usage_id`, projectKey)
	if err != nil {
		return nil, fmt.Errorf("query id map: %w", err)
	}
	defer rows.Close()

	mapping := make(map[string]string)
	for rows.Next() {
		var usageID, stableID string
		if err := rows.Scan(&usageID, &stableID); err != nil {
			return nil, fmt.Errorf("scan id map: %w", err)
		}
		mapping[usageID] = stableID
	}
	return mapping, rows.Err()
}

// SnapshotRelease copies the project usages into a new release dataset,
// replacing every mapped usage id by its stable id. Unmapped usages keep
// their project id. It returns the number of copied usages.
func (s *Store) SnapshotRelease(ctx context.Context, projectKey int, release Dataset) (int, error) {
	ctx = ensureContext(ctx)
	release.SourceKey = &projectKey
	if release.Attempt == nil {
		return 0, fmt.Errorf("snapshot release %d: attempt is required", release.Key)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin snapshot tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO datasets (key, title, source_key, attempt, created) VALUES (?, ?, ?, ?, ?)`,
		release.Key, release.Title, projectKey, *release.Attempt, formatTime(release.Created),
	); err != nil {
		return 0, fmt.Errorf("insert release %d: %w", release.Key, err)
	}
	res, err := tx.ExecContext(ctx, `INSERT INTO name_usages (dataset_key, `+usageColumns+`)
        SELECT ?, COALESCE(m.stable_id, u.id), u.name, u.authorship, u.phrase, u.rank, u.status,
               COALESCE(pm.stable_id, u.parent_id), u.nidx_id, u.canonical_nidx_id, u.match_type
        FROM name_usages u
        LEFT JOIN id_map m ON m.dataset_key = u.dataset_key AND m.usage_id = u.id
        LEFT JOIN id_map pm ON pm.dataset_key = u.dataset_key AND pm.usage_id = u.parent_id
        WHERE u.dataset_key = ?`, release.Key, projectKey)
	if err != nil {
		return 0, fmt.Errorf("copy usages into release %d: %w", release.Key, err)
	}
	copied, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count copied usages: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit snapshot: %w", err)
	}
	return int(copied), nil
}
