package repository

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// prepareDataDir resolves dir to a clean absolute path and makes sure it is a
// directory, creating it (with parents) when absent.
func prepareDataDir(dir string) (string, error) {
	if strings.TrimSpace(dir) == "" {
		return "", wrap(ErrInvalidArgument, "data directory is empty")
	}
	abs, err := canonicalDir(dir)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	switch {
	case err == nil:
		if !info.IsDir() {
			return "", wrap(ErrInvalidArgument, "%s is not a directory", abs)
		}
	case errors.Is(err, fs.ErrNotExist):
		if err := os.MkdirAll(abs, 0o755); err != nil {
			return "", wrapIO("create data directory", err)
		}
	default:
		return "", wrapIO("stat data directory", err)
	}
	return abs, nil
}

func canonicalDir(dir string) (string, error) {
	abs, err := filepath.Abs(filepath.Clean(dir))
	if err != nil {
		return "", wrap(ErrInvalidArgument, "resolve %q: %v", dir, err)
	}
	return abs, nil
}
