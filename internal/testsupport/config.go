package testsupport

import (
	"path/filepath"
	"testing"

	"taxonid/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp paths per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.Database = filepath.Join(base, "catalogue.db")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.ReportDir = filepath.Join(base, "reports")
	cfg.Logging.Format = config.LogFormatConsole

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithBatchSize overrides the id map batch size.
func WithBatchSize(size int) ConfigOption {
	return func(c *config.Config) {
		c.Release.BatchSize = size
	}
}

// WithStart overrides the lowest sequence value.
func WithStart(start uint32) ConfigOption {
	return func(c *config.Config) {
		c.Release.Start = start
	}
}

// WithDeduplication enables the names index deduplication pass.
func WithDeduplication() ConfigOption {
	return func(c *config.Config) {
		c.Release.NidxDeduplication = true
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.Database)
}
