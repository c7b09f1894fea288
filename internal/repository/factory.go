package repository

import (
	"log/slog"
	"strings"
)

// Backend selects a Repository implementation.
type Backend string

const (
	BackendInMemory Backend = "IN_MEMORY"
	BackendFile     Backend = "FILE"
	BackendSQLite   Backend = "SQLITE"
)

// Backends lists every supported backend.
func Backends() []Backend {
	return []Backend{BackendInMemory, BackendFile, BackendSQLite}
}

func (b Backend) String() string { return string(b) }

// ParseBackend accepts the canonical names and the lower-case config spellings
// ("memory", "file", "sqlite").
func ParseBackend(value string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "in_memory", "in-memory", "memory":
		return BackendInMemory, nil
	case "file":
		return BackendFile, nil
	case "sqlite":
		return BackendSQLite, nil
	default:
		return "", wrap(ErrInvalidArgument, "unknown repository backend %q", value)
	}
}

// Factory builds repositories. Persistent backends are shared through its
// Registry.
type Factory struct {
	registry *Registry
	logger   *slog.Logger
	strict   bool
}

// FactoryOption customizes a Factory.
type FactoryOption func(*Factory)

// WithRegistry makes the factory use g instead of the process-wide registry.
func WithRegistry(g *Registry) FactoryOption {
	return func(f *Factory) { f.registry = g }
}

// WithLogger sets the logger handed to persistent backends.
func WithLogger(logger *slog.Logger) FactoryOption {
	return func(f *Factory) { f.logger = logger }
}

// WithStrictPersistence makes file backends surface snapshot write failures.
func WithStrictPersistence(strict bool) FactoryOption {
	return func(f *Factory) { f.strict = strict }
}

// NewFactory returns a factory backed by DefaultRegistry unless overridden.
func NewFactory(opts ...FactoryOption) *Factory {
	f := &Factory{}
	for _, opt := range opts {
		opt(f)
	}
	if f.registry == nil {
		f.registry = DefaultRegistry()
	}
	return f
}

// Create returns a repository of the requested backend. FILE and SQLITE take
// the data directory as their single argument; IN_MEMORY takes none and
// always returns a fresh instance.
func (f *Factory) Create(backend Backend, args ...any) (Repository, error) {
	switch backend {
	case BackendInMemory:
		return NewMemoryRepository(), nil
	case BackendFile:
		dir, err := dirArgument(backend, args)
		if err != nil {
			return nil, err
		}
		repo, err := f.registry.OpenFile(dir, FileOptions{Logger: f.logger, StrictPersistence: f.strict})
		if err != nil {
			return nil, err
		}
		return repo, nil
	case BackendSQLite:
		dir, err := dirArgument(backend, args)
		if err != nil {
			return nil, err
		}
		repo, err := f.registry.OpenSQLite(dir, SQLiteOptions{Logger: f.logger})
		if err != nil {
			return nil, err
		}
		return repo, nil
	default:
		return nil, wrap(ErrInvalidArgument, "unknown repository backend %q", string(backend))
	}
}

func dirArgument(backend Backend, args []any) (string, error) {
	if len(args) == 0 {
		return "", wrap(ErrInvalidArgument, "%s repository requires a data directory argument", backend)
	}
	dir, ok := args[0].(string)
	if !ok {
		return "", wrap(ErrInvalidArgument, "%s repository: data directory must be a string, got %T", backend, args[0])
	}
	return dir, nil
}
