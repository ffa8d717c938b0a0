package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"taxonid/internal/releasedid"
)

// Dataset is a project or one of its releases. Releases carry the key of
// their project in SourceKey and the release attempt.
type Dataset struct {
	Key       int
	Title     string
	SourceKey *int
	Attempt   *int
	Created   time.Time
}

// IsRelease reports whether the dataset was released from a project.
func (d Dataset) IsRelease() bool {
	return d.SourceKey != nil
}

// CreateDataset inserts a dataset. A zero Created time means now.
func (s *Store) CreateDataset(ctx context.Context, d Dataset) error {
	ctx = ensureContext(ctx)
	err := retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO datasets (key, title, source_key, attempt, created) VALUES (?, ?, ?, ?, ?)`,
			d.Key, d.Title, nullableInt(d.SourceKey), nullableInt(d.Attempt), formatTime(d.Created),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("insert dataset %d: %w", d.Key, err)
	}
	return nil
}

// GetDataset returns nil when the dataset does not exist.
func (s *Store) GetDataset(ctx context.Context, key int) (*Dataset, error) {
	row := s.db.QueryRowContext(ctx, `SELECT key, title, source_key, attempt, created FROM datasets WHERE key = ?`, key)
	d, err := scanDataset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get dataset %d: %w", key, err)
	}
	return d, nil
}

// Releases lists the releases of a project ordered by dataset key.
func (s *Store) Releases(ctx context.Context, projectKey int) ([]releasedid.Release, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, title, source_key, attempt, created FROM datasets WHERE source_key = ? ORDER BY key`,
		projectKey,
	)
	if err != nil {
		return nil, fmt.Errorf("query releases: %w", err)
	}
	defer rows.Close()

	var releases []releasedid.Release
	for rows.Next() {
		d, err := scanDataset(rows)
		if err != nil {
			return nil, fmt.Errorf("scan release: %w", err)
		}
		releases = append(releases, releasedid.Release{DatasetKey: d.Key, Attempt: d.Attempt, Created: d.Created})
	}
	return releases, rows.Err()
}

// NextAttempt returns one more than the highest attempt of the project's releases.
func (s *Store) NextAttempt(ctx context.Context, projectKey int) (int, error) {
	var latest sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(attempt) FROM datasets WHERE source_key = ?`, projectKey).Scan(&latest); err != nil {
		return 0, fmt.Errorf("query max attempt: %w", err)
	}
	return int(latest.Int64) + 1, nil
}

func scanDataset(scanner interface{ Scan(dest ...any) error }) (*Dataset, error) {
	var (
		d          Dataset
		sourceKey  sql.NullInt64
		attempt    sql.NullInt64
		createdRaw string
	)
	if err := scanner.Scan(&d.Key, &d.Title, &sourceKey, &attempt, &createdRaw); err != nil {
		return nil, err
	}
	if sourceKey.Valid {
		v := int(sourceKey.Int64)
		d.SourceKey = &v
	}
	if attempt.Valid {
		v := int(attempt.Int64)
		d.Attempt = &v
	}
	created, err := parseTimeString(createdRaw)
	if err != nil {
		return nil, fmt.Errorf("dataset %d created %q: %w", d.Key, createdRaw, err)
	}
	d.Created = created
	return &d, nil
}
