package config

import (
	"fmt"
	"os"
	"strings"
)

const (
	envDataDir        = "INPAINT_DATA_DIR"
	envRepositoryKind = "INPAINT_REPOSITORY_KIND"
	envLogLevel       = "INPAINT_LOG_LEVEL"
)

func (c *Config) normalize() error {
	c.applyEnv()
	if err := c.normalizeRepository(); err != nil {
		return err
	}
	return c.normalizeLogging()
}

func (c *Config) applyEnv() {
	if value, ok := os.LookupEnv(envDataDir); ok && strings.TrimSpace(value) != "" {
		c.Repository.DataDir = strings.TrimSpace(value)
	}
	if value, ok := os.LookupEnv(envRepositoryKind); ok && strings.TrimSpace(value) != "" {
		c.Repository.Kind = value
	}
	if value, ok := os.LookupEnv(envLogLevel); ok && strings.TrimSpace(value) != "" {
		c.Logging.Level = value
	}
}

func (c *Config) normalizeRepository() error {
	c.Repository.Kind = strings.ToLower(strings.TrimSpace(c.Repository.Kind))
	switch c.Repository.Kind {
	case "":
		c.Repository.Kind = defaultRepositoryKind
	case "in_memory", "in-memory":
		c.Repository.Kind = KindMemory
	}
	if strings.TrimSpace(c.Repository.DataDir) == "" {
		c.Repository.DataDir = defaultDataDir
	}
	var err error
	if c.Repository.DataDir, err = expandPath(strings.TrimSpace(c.Repository.DataDir)); err != nil {
		return fmt.Errorf("repository.data_dir: %w", err)
	}
	if c.Repository.MinFreeMiB < 0 {
		c.Repository.MinFreeMiB = 0
	}
	return nil
}

func (c *Config) normalizeLogging() error {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	var err error
	if c.Logging.Dir, err = expandPath(strings.TrimSpace(c.Logging.Dir)); err != nil {
		return fmt.Errorf("logging.dir: %w", err)
	}
	return nil
}

// ApplyOverrides replaces the data directory and repository kind when the
// values are non-empty, then normalizes and validates the repository section
// again. Command-line flags go through here.
func (c *Config) ApplyOverrides(dataDir, kind string) error {
	if strings.TrimSpace(dataDir) != "" {
		c.Repository.DataDir = dataDir
	}
	if strings.TrimSpace(kind) != "" {
		c.Repository.Kind = kind
	}
	if err := c.normalizeRepository(); err != nil {
		return err
	}
	return c.validateRepository()
}
