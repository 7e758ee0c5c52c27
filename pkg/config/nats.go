package config

import (
	"fmt"
	"time"
)

type NATSConfig struct {
	Enabled bool          `koanf:"enabled"`
	Url     string        `koanf:"url"`
	Timeout time.Duration `koanf:"timeout"`
}

func (c *NATSConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Url == "" {
		return fmt.Errorf("NATS URL is not configured")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("nats dial timeout is not configured")
	}
	return nil
}
