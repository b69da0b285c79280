package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"deckhand/internal/config"
	"deckhand/internal/logging"
)

type commandContext struct {
	configFlag *string
	urlFlag    *string
	indexFlag  *int

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag, urlFlag *string, indexFlag *int) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		urlFlag:    urlFlag,
		indexFlag:  indexFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		// Flag overrides apply before validation so `deckhand -u <ip>`
		// works without any config file.
		override := func(cfg *config.Config) {
			if c.urlFlag != nil && strings.TrimSpace(*c.urlFlag) != "" {
				cfg.Deck.URL = strings.TrimSpace(*c.urlFlag)
			}
			if c.indexFlag != nil && *c.indexFlag >= 0 {
				cfg.Deck.TransportIndex = *c.indexFlag
			}
		}
		cfg, _, _, err := config.LoadWithOverrides(path, override)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			c.loggerErr = fmt.Errorf("init logger: %w", err)
			return
		}
		c.logger = logger
	})
	return c.logger, c.loggerErr
}

func (c *commandContext) transportIndex() int {
	cfg, err := c.ensureConfig()
	if err != nil {
		return 0
	}
	return cfg.Deck.TransportIndex
}
