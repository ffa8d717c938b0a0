package releasedid

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"taxonid/internal/logging"
	"taxonid/internal/taxon"
)

// ErrMissingAttempt means a release has no attempt number. Release metadata
// is corrupt and loading must not continue.
var ErrMissingAttempt = errors.New("release has no attempt")

// Release describes one published release of a project.
type Release struct {
	DatasetKey int
	Attempt    *int
	Created    time.Time
}

// HistorySource yields the releases of a project and streams their usages.
type HistorySource interface {
	Releases(ctx context.Context, projectKey int) ([]Release, error)
	ProcessReleaseUsages(ctx context.Context, datasetKey int, fn func(taxon.SimpleName) error) error
}

// LoadStats counts what happened to the usages of one release.
type LoadStats struct {
	Usages    int
	NoMatch   int
	Temporary int
	Added     int
}

func (s LoadStats) String() string {
	return fmt.Sprintf("%d usages with %d temporary ids and %d missing matches", s.Usages, s.Temporary, s.NoMatch)
}

// Load builds the index from all releases of a project, newest attempt
// first. Releases created before since are ignored when since is set.
// Attempts are validated before anything is read.
func Load(ctx context.Context, src HistorySource, projectKey int, since time.Time, logger *slog.Logger) (*Index, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	releases, err := src.Releases(ctx, projectKey)
	if err != nil {
		return nil, fmt.Errorf("list releases of project %d: %w", projectKey, err)
	}

	selected := make([]Release, 0, len(releases))
	for _, rel := range releases {
		if !since.IsZero() && rel.Created.Before(since) {
			logger.Info("ignore release created before cutoff",
				logging.Int(logging.FieldDatasetKey, rel.DatasetKey),
				logging.String("since", since.Format(time.RFC3339)),
			)
			continue
		}
		if rel.Attempt == nil {
			return nil, fmt.Errorf("%w: release %d of project %d", ErrMissingAttempt, rel.DatasetKey, projectKey)
		}
		selected = append(selected, rel)
	}
	slices.SortStableFunc(selected, func(a, b Release) int {
		if c := cmp.Compare(*b.Attempt, *a.Attempt); c != 0 {
			return c
		}
		return cmp.Compare(b.DatasetKey, a.DatasetKey)
	})

	idx := NewIndex()
	for _, rel := range selected {
		attempt := *rel.Attempt
		idx.AddRelease(attempt, rel.DatasetKey)
		var stats LoadStats
		err := src.ProcessReleaseUsages(ctx, rel.DatasetKey, func(sn taxon.SimpleName) error {
			addUsage(idx, sn, attempt, &stats, logger, rel.DatasetKey)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("read release %d: %w", rel.DatasetKey, err)
		}
		logger.Info("loaded previous release",
			logging.Int(logging.FieldAttempt, attempt),
			logging.Int(logging.FieldDatasetKey, rel.DatasetKey),
			logging.String("stats", stats.String()),
			logging.Int("added", stats.Added),
			logging.Int("total", idx.Len()),
		)
	}
	return idx, nil
}

func addUsage(idx *Index, sn taxon.SimpleName, attempt int, stats *LoadStats, logger *slog.Logger, datasetKey int) {
	stats.Usages++
	rid, err := New(sn, attempt)
	switch {
	case errors.Is(err, ErrNoCluster):
		stats.NoMatch++
		logger.Debug("released usage without names index id",
			logging.Int(logging.FieldDatasetKey, datasetKey),
			logging.String("usage_id", sn.ID),
		)
		return
	case err != nil:
		// temporary, non-stable ids of unreleased usages
		stats.Temporary++
		return
	}
	if idx.Add(rid) {
		stats.Added++
	}
}
