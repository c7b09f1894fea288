package config

const (
	defaultConfigPath     = "~/.config/inpaint/config.toml"
	defaultDataDir        = "~/.local/share/inpaint"
	defaultRepositoryKind = KindFile
	defaultMinFreeMiB     = 64
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
)

// Repository kinds accepted in the [repository] section.
const (
	KindMemory = "memory"
	KindFile   = "file"
	KindSQLite = "sqlite"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Repository: Repository{
			Kind:       defaultRepositoryKind,
			DataDir:    defaultDataDir,
			MinFreeMiB: defaultMinFreeMiB,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
