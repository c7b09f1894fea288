package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"inpaint/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("INPAINT_DATA_DIR", "")
	t.Setenv("INPAINT_REPOSITORY_KIND", "")
	t.Setenv("INPAINT_LOG_LEVEL", "")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if want := filepath.Join(tempHome, ".config", "inpaint", "config.toml"); resolved != want {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, want)
	}
	if want := filepath.Join(tempHome, ".local", "share", "inpaint"); cfg.Repository.DataDir != want {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Repository.DataDir, want)
	}
	if cfg.Repository.Kind != config.KindFile {
		t.Fatalf("expected file repository by default, got %q", cfg.Repository.Kind)
	}
	if cfg.Repository.StrictPersistence {
		t.Fatal("expected strict persistence disabled by default")
	}
	if cfg.Logging.Format != "console" || cfg.Logging.Level != "info" {
		t.Fatalf("unexpected logging defaults: %+v", cfg.Logging)
	}
	if cfg.MinFreeBytes() != 64<<20 {
		t.Fatalf("unexpected min free bytes: %d", cfg.MinFreeBytes())
	}
}

func TestLoadCustomPathAndNormalization(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	configPath := filepath.Join(t.TempDir(), "config.toml")
	content := `
[repository]
kind = " SQLite "
data_dir = "~/catalog"
strict_persistence = true
min_free_mib = -5

[logging]
format = "JSON"
level = "Debug"
dir = "~/logs"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected existing config at %q, got %q (exists=%v)", configPath, resolved, exists)
	}
	if cfg.Repository.Kind != config.KindSQLite {
		t.Fatalf("expected sqlite kind, got %q", cfg.Repository.Kind)
	}
	if cfg.Repository.DataDir != filepath.Join(tempHome, "catalog") {
		t.Fatalf("unexpected data dir %q", cfg.Repository.DataDir)
	}
	if !cfg.Repository.StrictPersistence {
		t.Fatal("expected strict persistence enabled")
	}
	if cfg.MinFreeBytes() != 0 {
		t.Fatalf("negative min_free_mib should clamp to zero, got %d", cfg.MinFreeBytes())
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging normalization: %+v", cfg.Logging)
	}
	if cfg.Logging.Dir != filepath.Join(tempHome, "logs") {
		t.Fatalf("unexpected log dir %q", cfg.Logging.Dir)
	}
}

func TestLoadAppliesEnvironmentOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dataDir := t.TempDir()
	t.Setenv("INPAINT_DATA_DIR", dataDir)
	t.Setenv("INPAINT_REPOSITORY_KIND", "in-memory")
	t.Setenv("INPAINT_LOG_LEVEL", "warn")

	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Repository.DataDir != dataDir {
		t.Fatalf("expected data dir from env, got %q", cfg.Repository.DataDir)
	}
	if cfg.Repository.Kind != config.KindMemory {
		t.Fatalf("expected memory kind from env, got %q", cfg.Repository.Kind)
	}
	if cfg.Logging.Level != "warn" {
		t.Fatalf("expected warn level from env, got %q", cfg.Logging.Level)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("INPAINT_REPOSITORY_KIND", "")
	t.Setenv("INPAINT_LOG_LEVEL", "")

	cases := map[string]string{
		"unknown kind":   "[repository]\nkind = \"postgres\"\n",
		"unknown format": "[logging]\nformat = \"xml\"\n",
		"unknown level":  "[logging]\nlevel = \"trace\"\n",
		"unknown field":  "[repository]\nflavour = \"vanilla\"\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			if _, _, _, err := config.Load(path); err == nil {
				t.Fatalf("expected error for %s", name)
			}
		})
	}
}

func TestCreateSampleProducesLoadableConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("INPAINT_DATA_DIR", "")
	t.Setenv("INPAINT_REPOSITORY_KIND", "")
	t.Setenv("INPAINT_LOG_LEVEL", "")

	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var decoded config.Config
	if err := toml.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("sample is not valid TOML: %v", err)
	}
	if decoded.Repository.Kind != config.KindFile {
		t.Fatalf("sample kind = %q", decoded.Repository.Kind)
	}
	if !strings.Contains(config.SampleConfig(), "[repository]") {
		t.Fatal("embedded sample missing repository section")
	}

	if _, _, exists, err := config.Load(path); err != nil || !exists {
		t.Fatalf("sample failed to load: exists=%v err=%v", exists, err)
	}
}

func TestExpandPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := config.ExpandPath("~/a/../b")
	if err != nil {
		t.Fatalf("ExpandPath: %v", err)
	}
	if got != filepath.Join(home, "b") {
		t.Fatalf("unexpected expansion %q", got)
	}
	if got, _ := config.ExpandPath(""); got != "" {
		t.Fatalf("empty path should stay empty, got %q", got)
	}
}

func TestApplyOverrides(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg := config.Default()
	if err := cfg.ApplyOverrides("~/catalog", "In-Memory"); err != nil {
		t.Fatalf("ApplyOverrides: %v", err)
	}
	if cfg.Repository.Kind != config.KindMemory {
		t.Fatalf("kind = %q", cfg.Repository.Kind)
	}
	if cfg.Repository.DataDir != filepath.Join(home, "catalog") {
		t.Fatalf("data dir = %q", cfg.Repository.DataDir)
	}

	if err := cfg.ApplyOverrides("", "postgres"); err == nil {
		t.Fatal("expected unsupported kind to be rejected")
	}
}
