package idprovider

import (
	"errors"
	"fmt"
	"time"

	"taxonid/internal/config"
)

const defaultBatchSize = 10000

// Options configures one reconciliation of a project release attempt.
type Options struct {
	ProjectKey int
	Attempt    int
	// ReleaseKey is the dataset key the release will be published under.
	// Only used to label created ids in the reports.
	ReleaseKey int
	// Restart ignores every previously released id.
	Restart bool
	// Since ignores releases created before it. Zero keeps all releases.
	Since time.Time
	// Start is the lowest value the id sequence is seeded with.
	Start             uint32
	NidxDeduplication bool
	// BatchSize is the number of id map rows per committed transaction.
	BatchSize int
	// LockDir holds the per-project run lock. Empty disables locking.
	LockDir string
}

// OptionsFromConfig derives run options from the release section of cfg.
func OptionsFromConfig(cfg *config.Config, projectKey, attempt int) (Options, error) {
	if cfg == nil {
		return Options{}, errors.New("config is required")
	}
	since, err := cfg.SinceTime()
	if err != nil {
		return Options{}, fmt.Errorf("release since: %w", err)
	}
	return Options{
		ProjectKey:        projectKey,
		Attempt:           attempt,
		Restart:           cfg.Release.Restart,
		Since:             since,
		Start:             cfg.Release.Start,
		NidxDeduplication: cfg.Release.NidxDeduplication,
		BatchSize:         cfg.Release.BatchSize,
		LockDir:           cfg.Paths.ReportDir,
	}, nil
}

func (o *Options) normalize() error {
	if o.ProjectKey <= 0 {
		return fmt.Errorf("project key must be positive, got %d", o.ProjectKey)
	}
	if o.Attempt <= 0 {
		return fmt.Errorf("attempt must be positive, got %d", o.Attempt)
	}
	if o.BatchSize <= 0 {
		o.BatchSize = defaultBatchSize
	}
	return nil
}
