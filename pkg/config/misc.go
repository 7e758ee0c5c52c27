package config

import (
	"fmt"
	"time"
)

type LogConfig struct {
	Level string `koanf:"level"`
}

func (c *LogConfig) Validate() error {
	return nil
}

type PProfConfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`
}

func (c *PProfConfig) Validate() error {
	if c.Enabled && c.Addr == "" {
		return fmt.Errorf("pprof is enabled but address is not configured")
	}
	return nil
}

type ShutdownConfig struct {
	Timeout time.Duration `koanf:"timeout"`
}

func (c *ShutdownConfig) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("shutdown timeout is not configured")
	}
	return nil
}
