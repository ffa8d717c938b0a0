package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"taxonid/internal/config"
	"taxonid/internal/logging"
	"taxonid/internal/store"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configSeen bool
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config, c.configPath, c.configSeen = cfg, resolved, exists
	})
	return c.config, c.configErr
}

// session loads config, logger and store for commands that touch the
// catalogue. The caller closes the store.
func (c *commandContext) session() (cfg *config.Config, logger *slog.Logger, st *store.Store, err error) {
	cfg, err = c.ensureConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	logger, err = logging.NewFromConfig(cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}
	st, err = store.Open(cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open catalogue: %w", err)
	}
	return cfg, logger, st, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
