package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"taxonid/internal/taxon"
)

// InsertUsages upserts usages into a dataset in one transaction.
func (s *Store) InsertUsages(ctx context.Context, datasetKey int, usages []taxon.SimpleName) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin usage tx: %w", err)
		}
		defer func() {
			_ = tx.Rollback()
		}()

		stmt, err := tx.PrepareContext(ctx, `INSERT INTO name_usages (dataset_key, `+usageColumns+`)
            VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
            ON CONFLICT (dataset_key, id) DO UPDATE SET
                name = excluded.name, authorship = excluded.authorship, phrase = excluded.phrase,
                rank = excluded.rank, status = excluded.status, parent_id = excluded.parent_id,
                nidx_id = excluded.nidx_id, canonical_nidx_id = excluded.canonical_nidx_id,
                match_type = excluded.match_type`)
		if err != nil {
			return fmt.Errorf("prepare usage insert: %w", err)
		}
		defer stmt.Close()

		for _, u := range usages {
			if _, err := stmt.ExecContext(ctx,
				datasetKey,
				u.ID,
				u.Name,
				nullableString(u.Authorship),
				nullableString(u.Phrase),
				nullableString(string(u.Rank)),
				nullableString(string(u.Status)),
				nullableString(u.Parent),
				nullableUint32(u.ClusterID),
				nullableUint32(u.CanonicalID),
				nullableString(string(u.MatchType)),
			); err != nil {
				return fmt.Errorf("insert usage %s: %w", u.ID, err)
			}
		}
		return tx.Commit()
	})
}

// ProcessReleaseUsages streams all usages of a release ordered by id.
func (s *Store) ProcessReleaseUsages(ctx context.Context, datasetKey int, fn func(taxon.SimpleName) error) error {
	return s.processUsages(ctx, `SELECT `+usageColumns+` FROM name_usages WHERE dataset_key = ? ORDER BY id`, fn, datasetKey)
}

// ProcessCandidates streams the usages of a project ordered by group key
// (canonical names index id, falling back to the names index id), then
// names index id and usage id. Missing keys sort last. Parent ids are
// translated to stable ids through the id map of the previous
// reconciliation, so that they compare with the parents of released usages.
func (s *Store) ProcessCandidates(ctx context.Context, projectKey int, fn func(taxon.SimpleName) error) error {
	return s.processUsages(ctx, `SELECT u.id, u.name, u.authorship, u.phrase, u.rank, u.status,
            COALESCE(pm.stable_id, u.parent_id), u.nidx_id, u.canonical_nidx_id, u.match_type
        FROM name_usages u
        LEFT JOIN id_map pm ON pm.dataset_key = u.dataset_key AND pm.usage_id = u.parent_id
        WHERE u.dataset_key = ?
        ORDER BY COALESCE(u.canonical_nidx_id, u.nidx_id) IS NULL, COALESCE(u.canonical_nidx_id, u.nidx_id),
                 u.nidx_id IS NULL, u.nidx_id, u.id`, fn, projectKey)
}

func (s *Store) processUsages(ctx context.Context, query string, fn func(taxon.SimpleName) error, args ...any) error {
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return fmt.Errorf("query usages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		sn, err := scanUsage(rows)
		if err != nil {
			return fmt.Errorf("scan usage: %w", err)
		}
		if err := fn(sn); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate usages: %w", err)
	}
	return nil
}

// UsageByID looks up a single usage of a dataset.
func (s *Store) UsageByID(ctx context.Context, datasetKey int, id string) (taxon.SimpleName, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+usageColumns+` FROM name_usages WHERE dataset_key = ? AND id = ?`, datasetKey, id)
	return singleUsage(row, "usage by id")
}

// UsageByIDMap looks up the project usage currently mapped to a stable id.
func (s *Store) UsageByIDMap(ctx context.Context, projectKey int, stableID string) (taxon.SimpleName, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT u.id, u.name, u.authorship, u.phrase, u.rank, u.status, u.parent_id,
            u.nidx_id, u.canonical_nidx_id, u.match_type
        FROM id_map m JOIN name_usages u ON u.dataset_key = m.dataset_key AND u.id = m.usage_id
        WHERE m.dataset_key = ? AND m.stable_id = ?
        ORDER BY u.id LIMIT 1`, projectKey, stableID)
	return singleUsage(row, "usage by id map")
}

func singleUsage(row *sql.Row, what string) (taxon.SimpleName, bool, error) {
	sn, err := scanUsage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return taxon.SimpleName{}, false, nil
	}
	if err != nil {
		return taxon.SimpleName{}, false, fmt.Errorf("%s: %w", what, err)
	}
	return sn, true, nil
}
