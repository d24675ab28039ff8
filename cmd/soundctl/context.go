package main

import (
	"sync"

	"github.com/KeiShiba/tiktok-sound-video-analytics/internal/config"
	"github.com/KeiShiba/tiktok-sound-video-analytics/internal/tiktok"
)

type commandContext struct {
	configOnce sync.Once
	config     *config.Config
	configErr  error

	// opener replaces the configured platform in tests.
	opener tiktok.Opener
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		c.config, c.configErr = config.Load()
	})
	return c.config, c.configErr
}

func (c *commandContext) platform(cfg *config.Config) tiktok.Opener {
	if c.opener != nil {
		return c.opener
	}
	return tiktok.NewOpener(cfg)
}
