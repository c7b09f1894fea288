package imagescan

import (
	"context"
	"fmt"
	stdimage "image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"
)

var extensions = []string{".png", ".jpg", ".jpeg"}

// Entry describes one image file.
type Entry struct {
	Path   string
	Format string
	Width  int
	Height int
}

// Failure records a file that looked like an image but could not be read.
type Failure struct {
	Path string
	Err  error
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s: %v", f.Path, f.Err)
}

// Result lists scanned images and per-file failures, both sorted by path.
type Result struct {
	Images   []Entry
	Failures []Failure
}

// Options tunes Scan.
type Options struct {
	// Workers bounds concurrent header reads. Zero uses GOMAXPROCS.
	Workers int
}

// IsImage reports whether path has a supported image extension.
func IsImage(path string) bool {
	return slices.Contains(extensions, strings.ToLower(filepath.Ext(path)))
}

// Scan lists dir (non-recursively). Only a missing or unreadable directory is
// returned as an error; individual files that fail to decode are collected in
// Result.Failures.
func Scan(ctx context.Context, dir string, opts Options) (Result, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Result{}, fmt.Errorf("read image directory: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !IsImage(entry.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	slices.Sort(paths)

	images := make([]Entry, len(paths))
	failures := make([]error, len(paths))

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(workers)
	for i, path := range paths {
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			entry, err := ReadFile(path)
			if err != nil {
				failures[i] = err
				return nil
			}
			images[i] = entry
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return Result{}, err
	}

	var result Result
	for i, path := range paths {
		if failures[i] != nil {
			result.Failures = append(result.Failures, Failure{Path: path, Err: failures[i]})
			continue
		}
		result.Images = append(result.Images, images[i])
	}
	return result, nil
}

// ReadFile reads the header of a single image file.
func ReadFile(path string) (Entry, error) {
	file, err := os.Open(path)
	if err != nil {
		return Entry{}, err
	}
	defer file.Close()

	cfg, format, err := stdimage.DecodeConfig(file)
	if err != nil {
		return Entry{}, fmt.Errorf("decode header: %w", err)
	}
	return Entry{Path: path, Format: format, Width: cfg.Width, Height: cfg.Height}, nil
}
