package repository

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"

	"inpaint/internal/fileutil"
	"inpaint/internal/image"
	"inpaint/internal/logging"
)

const (
	// SnapshotFileName is the snapshot written inside the data directory.
	SnapshotFileName = "images-repository.dat"
	// LockFileName guards the data directory against a second process.
	LockFileName = SnapshotFileName + ".lock"
)

// FileOptions configures a FileRepository.
type FileOptions struct {
	Logger *slog.Logger
	// StrictPersistence turns snapshot write failures into ErrIO results.
	// By default they are logged and the in-memory change stands.
	StrictPersistence bool
}

// FileRepository is a MemoryRepository whose whole state is rewritten to
// images-repository.dat after every mutation that changed something.
type FileRepository struct {
	mu      sync.RWMutex
	dir     string
	path    string
	inner   *MemoryRepository
	lock    *flock.Flock
	logger  *slog.Logger
	strict  bool
	closed  bool
	dumps   int
	onClose func()
}

// OpenFileRepository opens (or initializes) the snapshot in dir. Most callers
// should go through Registry or Factory so one directory maps to one instance.
func OpenFileRepository(dir string, opts FileOptions) (*FileRepository, error) {
	abs, err := prepareDataDir(dir)
	if err != nil {
		return nil, err
	}
	logger := logging.NewComponentLogger(opts.Logger, "repository").With(
		logging.Backend(string(BackendFile)),
	)

	lock := flock.New(filepath.Join(abs, LockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, wrapIO("lock data directory", err)
	}
	if !locked {
		return nil, wrap(ErrLocked, "%s is in use by another process", abs)
	}

	repo := &FileRepository{
		dir:    abs,
		path:   filepath.Join(abs, SnapshotFileName),
		inner:  NewMemoryRepository(),
		lock:   lock,
		logger: logger,
		strict: opts.StrictPersistence,
	}
	if err := repo.load(); err != nil {
		_ = lock.Unlock()
		return nil, err
	}
	return repo, nil
}

func (r *FileRepository) load() error {
	file, err := os.OpenFile(r.path, os.O_RDONLY|os.O_CREATE, 0o644)
	if err != nil {
		return wrapIO("open snapshot", err)
	}
	_ = file.Close()

	data, err := os.ReadFile(r.path)
	if err != nil {
		return wrapIO("read snapshot", err)
	}
	snapshot, err := DecodeSnapshot(data)
	if err != nil {
		return err
	}
	inner, err := NewMemoryRepositoryFromSnapshot(snapshot)
	if err != nil {
		return wrapIO("restore snapshot", err)
	}
	r.inner = inner
	r.logger.Debug("snapshot loaded",
		logging.Path(r.path),
		logging.Int("sources", len(snapshot.Sources)),
		logging.Int("targets", len(snapshot.Targets)),
	)
	return nil
}

// Dir returns the absolute data directory.
func (r *FileRepository) Dir() string { return r.dir }

// Path returns the snapshot file path.
func (r *FileRepository) Path() string { return r.path }

func (r *FileRepository) CreateSource(ctx context.Context, src *image.Source) (*image.Source, error) {
	var out *image.Source
	err := r.mutate(ctx, "create_source", func() (bool, error) {
		var err error
		out, err = r.inner.CreateSource(ctx, src)
		return out != nil, err
	})
	return result(out, err)
}

func (r *FileRepository) CreateTarget(ctx context.Context, src *image.Source, tgt *image.Target) (*image.Target, error) {
	var out *image.Target
	err := r.mutate(ctx, "create_target", func() (bool, error) {
		var err error
		out, err = r.inner.CreateTarget(ctx, src, tgt)
		return out != nil, err
	})
	return result(out, err)
}

func (r *FileRepository) ReadSourceOf(ctx context.Context, tgt *image.Target) (*image.Source, error) {
	if err := r.readable(); err != nil {
		return nil, err
	}
	defer r.mu.RUnlock()
	return r.inner.ReadSourceOf(ctx, tgt)
}

func (r *FileRepository) ReadSource(ctx context.Context, name string) (*image.Source, error) {
	if err := r.readable(); err != nil {
		return nil, err
	}
	defer r.mu.RUnlock()
	return r.inner.ReadSource(ctx, name)
}

func (r *FileRepository) ReadSources(ctx context.Context) ([]*image.Source, error) {
	if err := r.readable(); err != nil {
		return nil, err
	}
	defer r.mu.RUnlock()
	return r.inner.ReadSources(ctx)
}

func (r *FileRepository) ReadTargets(ctx context.Context, src *image.Source) ([]*image.Target, error) {
	if err := r.readable(); err != nil {
		return nil, err
	}
	defer r.mu.RUnlock()
	return r.inner.ReadTargets(ctx, src)
}

func (r *FileRepository) ReadTarget(ctx context.Context, name string) (*image.Target, error) {
	if err := r.readable(); err != nil {
		return nil, err
	}
	defer r.mu.RUnlock()
	return r.inner.ReadTarget(ctx, name)
}

func (r *FileRepository) UpdateSource(ctx context.Context, src *image.Source) (*image.Source, error) {
	var out *image.Source
	err := r.mutate(ctx, "update_source", func() (bool, error) {
		var err error
		out, err = r.inner.UpdateSource(ctx, src)
		return out != nil, err
	})
	return result(out, err)
}

func (r *FileRepository) UpdateTarget(ctx context.Context, tgt *image.Target) (*image.Target, error) {
	var out *image.Target
	err := r.mutate(ctx, "update_target", func() (bool, error) {
		var err error
		out, err = r.inner.UpdateTarget(ctx, tgt)
		return out != nil, err
	})
	return result(out, err)
}

func (r *FileRepository) DeleteSource(ctx context.Context, src *image.Source) (*image.Source, error) {
	var out *image.Source
	err := r.mutate(ctx, "delete_source", func() (bool, error) {
		var err error
		out, err = r.inner.DeleteSource(ctx, src)
		return out != nil, err
	})
	return result(out, err)
}

func (r *FileRepository) DeleteTarget(ctx context.Context, tgt *image.Target) (*image.Target, error) {
	var out *image.Target
	err := r.mutate(ctx, "delete_target", func() (bool, error) {
		var err error
		out, err = r.inner.DeleteTarget(ctx, tgt)
		return out != nil, err
	})
	return result(out, err)
}

func (r *FileRepository) DeleteTargets(ctx context.Context, src *image.Source) ([]*image.Target, error) {
	var out []*image.Target
	err := r.mutate(ctx, "delete_targets", func() (bool, error) {
		var err error
		out, err = r.inner.DeleteTargets(ctx, src)
		return len(out) > 0, err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Snapshot exports the current in-memory state.
func (r *FileRepository) Snapshot(ctx context.Context) (Snapshot, error) {
	if err := r.readable(); err != nil {
		return Snapshot{}, err
	}
	defer r.mu.RUnlock()
	return r.inner.Snapshot(ctx)
}

// Reset swaps in an empty repository and writes it out immediately.
func (r *FileRepository) Reset(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return errClosed()
	}
	r.inner = NewMemoryRepository()
	return r.dumpLocked(ctx, "reset")
}

// Close releases the directory lock. The repository is unusable afterwards.
func (r *FileRepository) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	onClose := r.onClose
	err := r.lock.Unlock()
	r.mu.Unlock()

	if onClose != nil {
		onClose()
	}
	if err != nil {
		return wrapIO("unlock data directory", err)
	}
	return nil
}

// readable takes the read lock and leaves it held on success.
func (r *FileRepository) readable() error {
	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		return errClosed()
	}
	return nil
}

func (r *FileRepository) mutate(ctx context.Context, operation string, apply func() (bool, error)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return errClosed()
	}
	changed, err := apply()
	if err != nil || !changed {
		return err
	}
	return r.dumpLocked(ctx, operation)
}

func (r *FileRepository) dumpLocked(ctx context.Context, operation string) error {
	snapshot, err := r.inner.Snapshot(ctx)
	if err == nil {
		var data []byte
		if data, err = EncodeSnapshot(snapshot); err == nil {
			err = fileutil.WriteFileAtomic(r.path, data, 0o644)
		}
		if err == nil {
			r.dumps++
			logging.WithContext(ctx, r.logger).Debug("snapshot written",
				logging.String("operation", operation),
				logging.Path(r.path),
				logging.Int("bytes", len(data)),
			)
			return nil
		}
	}

	if r.strict {
		if errors.Is(err, ErrIO) {
			return err
		}
		return wrapIO("write snapshot", err)
	}
	hint := "check free space and permissions on the data directory"
	if errors.Is(err, fs.ErrPermission) {
		hint = "make the data directory writable"
	}
	logging.WarnWithContext(logging.WithContext(ctx, r.logger), "snapshot write failed", "snapshot_write_failed",
		logging.String("operation", operation),
		logging.Path(r.path),
		logging.Error(err),
		logging.Hint(hint),
		logging.String(logging.FieldImpact, "the change is kept in memory but missing from disk until the next successful write"),
	)
	return nil
}

func errClosed() error { return wrap(ErrInvalidArgument, "repository closed") }

// result drops value whenever err is set.
func result[T any](value *T, err error) (*T, error) {
	if err != nil {
		return nil, err
	}
	return value, nil
}
