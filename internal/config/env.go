package config

import (
	"fmt"
	"os"
	"strconv"
)

// applyEnvOverrides overrides config values with environment variables if set
func applyEnvOverrides(cfg *Config) error {
	if addr := os.Getenv("MOMO_ADDRESS"); addr != "" {
		cfg.Server.Address = addr
	}
	if src := os.Getenv("MOMO_DATA_SOURCE"); src != "" {
		cfg.Data.Source = src
	}
	if strict := os.Getenv("MOMO_STRICT_SCHEMA"); strict != "" {
		b, err := strconv.ParseBool(strict)
		if err != nil {
			return fmt.Errorf("invalid MOMO_STRICT_SCHEMA %q: %w", strict, err)
		}
		cfg.Store.StrictSchema = b
	}
	if url := os.Getenv("MOMO_NATS_URL"); url != "" {
		cfg.Events.NATSURL = url
	}
	if target := os.Getenv("MOMO_EXPORT_ON_SHUTDOWN"); target != "" {
		cfg.Export.OnShutdown = target
	}
	if level := os.Getenv("MOMO_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	return nil
}
