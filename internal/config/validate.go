package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateRelease(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.Database == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/taxonid/config.toml"
		}
		return fmt.Errorf("paths.database is required. Set %s or edit %s (create with 'taxonid config init')", DatabaseEnv, defaultPath)
	}
	if c.Paths.ReportDir == "" {
		return errors.New("paths.report_dir must be set")
	}
	return nil
}

func (c *Config) validateRelease() error {
	if c.Release.BatchSize <= 0 {
		return errors.New("release.batch_size must be positive")
	}
	if _, err := c.SinceTime(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case LogFormatConsole, LogFormatJSON, LogFormatAuto:
	default:
		return fmt.Errorf("logging.format must be one of console, json or auto, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn or error, got %q", c.Logging.Level)
	}
	return nil
}
