package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateRepository(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateRepository() error {
	switch c.Repository.Kind {
	case KindMemory, KindFile, KindSQLite:
	default:
		return fmt.Errorf("repository.kind: unsupported value %q (want %s, %s, or %s)", c.Repository.Kind, KindMemory, KindFile, KindSQLite)
	}
	if c.Repository.DataDir == "" && c.Repository.Kind != KindMemory {
		return errors.New("repository.data_dir must be set")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
