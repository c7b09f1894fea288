package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"inpaint/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config whose data and log directories live under a
// per-test temp directory. The directories exist when NewConfig returns.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Repository.DataDir = filepath.Join(base, "data")
	cfgVal.Repository.MinFreeMiB = 0
	cfgVal.Logging.Dir = filepath.Join(base, "logs")
	cfgVal.Logging.Level = "debug"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("create test directories: %v", err)
	}
	return builder.cfg
}

// WithKind selects the repository backend.
func WithKind(kind string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Repository.Kind = kind
	}
}

// WithStrictPersistence makes snapshot write failures surface as errors.
func WithStrictPersistence() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Repository.StrictPersistence = true
	}
}

// WithoutLogDir disables the log file.
func WithoutLogDir() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Logging.Dir = ""
	}
}

// WriteConfigFile renders cfg's repository and logging sections to a TOML
// file in the config's base directory and returns its path.
func WriteConfigFile(t testing.TB, cfg *config.Config) string {
	t.Helper()

	path := filepath.Join(BaseDir(cfg), "config.toml")
	body := "[repository]\n" +
		"kind = \"" + cfg.Repository.Kind + "\"\n" +
		"data_dir = \"" + cfg.Repository.DataDir + "\"\n" +
		"min_free_mib = 0\n\n" +
		"[logging]\n" +
		"level = \"" + cfg.Logging.Level + "\"\n" +
		"dir = \"" + cfg.Logging.Dir + "\"\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Repository.DataDir)
}
