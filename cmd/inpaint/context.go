package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"inpaint/internal/catalog"
	"inpaint/internal/config"
	"inpaint/internal/logging"
	"inpaint/internal/preflight"
	"inpaint/internal/repository"
)

type rootFlags struct {
	config  string
	dataDir string
	kind    string
	json    bool
}

type commandContext struct {
	flags    *rootFlags
	registry *repository.Registry

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(flags *rootFlags, registry *repository.Registry) *commandContext {
	return &commandContext{
		flags:    flags,
		registry: registry,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(strings.TrimSpace(c.flags.config))
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.ApplyOverrides(c.flags.dataDir, c.flags.kind); err != nil {
			c.configErr = err
			return
		}
		if cfg.Repository.Kind != config.KindMemory {
			if err := cfg.EnsureDirectories(); err != nil {
				c.configErr = err
				return
			}
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
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

func (c *commandContext) jsonOutput() bool {
	return c.flags != nil && c.flags.json
}

// commandCtx tags the command's context with its name and a correlation id.
func commandCtx(cmd *cobra.Command) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = logging.WithCommand(ctx, cmd.CommandPath())
	return logging.WithRequestID(ctx, logging.NewSessionID())
}

// openRepository runs preflight for persistent backends and opens the
// configured repository through the registry.
func (c *commandContext) openRepository(ctx context.Context) (repository.Repository, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	backend, err := repository.ParseBackend(cfg.Repository.Kind)
	if err != nil {
		return nil, err
	}
	if failure, failed := preflight.FirstFailure(preflight.RunAll(ctx, cfg)); failed {
		return nil, fmt.Errorf("preflight %s: %s (run `inpaint check` for details)", strings.ToLower(failure.Name), failure.Detail)
	}

	factory := repository.NewFactory(
		repository.WithRegistry(c.registry),
		repository.WithLogger(logger),
		repository.WithStrictPersistence(cfg.Repository.StrictPersistence),
	)
	return factory.Create(backend, cfg.Repository.DataDir)
}

// withRepository opens the repository, runs fn, and closes everything the
// registry holds afterwards.
func (c *commandContext) withRepository(cmd *cobra.Command, fn func(context.Context, repository.Repository) error) (err error) {
	ctx := commandCtx(cmd)
	repo, err := c.openRepository(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := c.registry.CloseAll(); err == nil && closeErr != nil {
			err = closeErr
		}
	}()
	return fn(ctx, repo)
}

// withService is withRepository with a catalog service on top.
func (c *commandContext) withService(cmd *cobra.Command, fn func(context.Context, *catalog.Service) error) error {
	return c.withRepository(cmd, func(ctx context.Context, repo repository.Repository) error {
		return fn(ctx, catalog.New(repo, c.logger))
	})
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func changedWord(changed bool) string {
	if changed {
		return "updated"
	}
	return "unchanged"
}
