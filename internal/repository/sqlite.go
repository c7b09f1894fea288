package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"inpaint/internal/image"
	"inpaint/internal/logging"
)

// DatabaseFileName is the SQLite database inside the data directory.
const DatabaseFileName = "images-repository.db"

//go:embed sqlite_schema.sql
var sqliteSchema string

// sqliteSchemaVersion changes only together with sqlite_schema.sql. Older
// databases are rejected rather than migrated.
const sqliteSchemaVersion = 1

// SQLiteOptions configures a SQLiteRepository.
type SQLiteOptions struct {
	Logger *slog.Logger
}

// SQLiteRepository stores the catalog in a SQLite database. Every compound
// operation runs in one transaction over a single connection.
type SQLiteRepository struct {
	mu      sync.RWMutex
	db      *sql.DB
	dir     string
	path    string
	logger  *slog.Logger
	closed  bool
	onClose func()
}

// OpenSQLiteRepository opens or initializes images-repository.db in dir.
func OpenSQLiteRepository(dir string, opts SQLiteOptions) (*SQLiteRepository, error) {
	abs, err := prepareDataDir(dir)
	if err != nil {
		return nil, err
	}
	dbPath := filepath.Join(abs, DatabaseFileName)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, wrapIO("open sqlite db", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, wrapIO(fmt.Sprintf("apply pragma %q", pragma), execErr)
		}
	}

	repo := &SQLiteRepository{
		db:   db,
		dir:  abs,
		path: dbPath,
		logger: logging.NewComponentLogger(opts.Logger, "repository").With(
			logging.Backend(string(BackendSQLite)),
		),
	}
	if err := repo.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	repo.logger.Debug("sqlite repository opened", logging.Path(dbPath))
	return repo, nil
}

func (r *SQLiteRepository) initSchema(ctx context.Context) error {
	var tableExists int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return wrapIO("check schema_version table", err)
	}

	if tableExists == 0 {
		return r.withTx(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, sqliteSchema); err != nil {
				return wrapIO("create schema", err)
			}
			if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", sqliteSchemaVersion); err != nil {
				return wrapIO("record schema version", err)
			}
			return nil
		})
	}

	var version int
	if err := r.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return wrapIO("read schema version", err)
	}
	if version != sqliteSchemaVersion {
		return wrap(ErrIO, "schema version mismatch: database has version %d, expected %d (delete %s to start over)",
			version, sqliteSchemaVersion, r.path)
	}
	return nil
}

// Dir returns the absolute data directory.
func (r *SQLiteRepository) Dir() string { return r.dir }

// Path returns the database file path.
func (r *SQLiteRepository) Path() string { return r.path }

func (r *SQLiteRepository) CreateSource(ctx context.Context, src *image.Source) (*image.Source, error) {
	if src == nil {
		return nil, errNullSource()
	}
	if err := src.Validate(); err != nil {
		return nil, wrap(ErrInvalidArgument, "%v", err)
	}
	var out *image.Source
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		existing, err := loadSource(ctx, tx, src.Name)
		if err != nil {
			return err
		}
		if existing != nil {
			if existing.Equal(src) {
				return nil
			}
			return wrap(ErrAlreadyExists, "duplicate source %q; use update to replace it", src.Name)
		}
		if err := insertSource(ctx, tx, src); err != nil {
			return err
		}
		out = src.Clone()
		return nil
	})
	return result(out, err)
}

func (r *SQLiteRepository) CreateTarget(ctx context.Context, src *image.Source, tgt *image.Target) (*image.Target, error) {
	if src == nil {
		return nil, errNullSource()
	}
	if tgt == nil {
		return nil, errNullTarget()
	}
	if err := tgt.Validate(); err != nil {
		return nil, wrap(ErrInvalidArgument, "%v", err)
	}
	var out *image.Target
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		owner, err := loadSource(ctx, tx, src.Name)
		if err != nil {
			return err
		}
		if owner == nil {
			return wrap(ErrNotFound, "unknown source %q", src.Name)
		}
		existing, err := loadTarget(ctx, tx, tgt.Name)
		if err != nil {
			return err
		}
		if existing != nil {
			if !existing.Equal(tgt) {
				return wrap(ErrAlreadyExists, "duplicate target %q; use update to replace it", tgt.Name)
			}
			current, err := ownerOf(ctx, tx, tgt.Name)
			if err != nil {
				return err
			}
			switch current {
			case src.Name:
				return nil
			case "":
				if err := appendAssignment(ctx, tx, src.Name, tgt.Name); err != nil {
					return err
				}
				out = existing
				return nil
			default:
				return wrap(ErrAlreadyExists, "target %q assigned to another source %q; delete the target before assigning it to %q", tgt.Name, current, src.Name)
			}
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO targets (`+targetColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			tgt.Name, nullableString(tgt.Description), tgt.Width, tgt.Height, tgt.Rating,
			string(tgt.Sampler), string(tgt.Checkpoint),
		); err != nil {
			return wrapIO("insert target", err)
		}
		if err := appendAssignment(ctx, tx, src.Name, tgt.Name); err != nil {
			return err
		}
		out = tgt.Clone()
		return nil
	})
	return result(out, err)
}

func (r *SQLiteRepository) ReadSourceOf(ctx context.Context, tgt *image.Target) (*image.Source, error) {
	if tgt == nil {
		return nil, errNullTarget()
	}
	var out *image.Source
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		existing, err := loadTarget(ctx, tx, tgt.Name)
		if err != nil {
			return err
		}
		if existing == nil {
			return wrap(ErrNotFound, "unknown target %q", tgt.Name)
		}
		owner, err := ownerOf(ctx, tx, tgt.Name)
		if err != nil {
			return err
		}
		if owner == "" {
			return wrap(ErrNotFound, "target %q is not assigned to any source", tgt.Name)
		}
		out, err = loadSource(ctx, tx, owner)
		return err
	})
	return result(out, err)
}

func (r *SQLiteRepository) ReadSource(ctx context.Context, name string) (*image.Source, error) {
	var out *image.Source
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		if out, err = loadSource(ctx, tx, name); err != nil {
			return err
		}
		if out == nil {
			return wrap(ErrNotFound, "unknown source %q", name)
		}
		return nil
	})
	return result(out, err)
}

func (r *SQLiteRepository) ReadSources(ctx context.Context) ([]*image.Source, error) {
	var out []*image.Source
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		out, err = loadSources(ctx, tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *SQLiteRepository) ReadTargets(ctx context.Context, src *image.Source) ([]*image.Target, error) {
	if src == nil {
		return nil, errNullSource()
	}
	var out []*image.Target
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		owner, err := loadSource(ctx, tx, src.Name)
		if err != nil {
			return err
		}
		if owner == nil {
			return wrap(ErrNotFound, "unknown source %q", src.Name)
		}
		out, err = targetsOf(ctx, tx, src.Name)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *SQLiteRepository) ReadTarget(ctx context.Context, name string) (*image.Target, error) {
	var out *image.Target
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		if out, err = loadTarget(ctx, tx, name); err != nil {
			return err
		}
		if out == nil {
			return wrap(ErrNotFound, "unknown target %q", name)
		}
		return nil
	})
	return result(out, err)
}

func (r *SQLiteRepository) UpdateSource(ctx context.Context, src *image.Source) (*image.Source, error) {
	if src == nil {
		return nil, errNullSource()
	}
	if err := src.Validate(); err != nil {
		return nil, wrap(ErrInvalidArgument, "%v", err)
	}
	var out *image.Source
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		existing, err := loadSource(ctx, tx, src.Name)
		if err != nil {
			return err
		}
		if existing == nil {
			return wrap(ErrNotFound, "unknown source %q", src.Name)
		}
		if existing.Equal(src) {
			return nil
		}
		tags, err := encodeTags(src.Tags)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE sources SET description = ?, width = ?, height = ?, tags_json = ? WHERE name = ?`,
			nullableString(src.Description), src.Width, src.Height, tags, src.Name,
		); err != nil {
			return wrapIO("update source", err)
		}
		out = src.Clone()
		return nil
	})
	return result(out, err)
}

func (r *SQLiteRepository) UpdateTarget(ctx context.Context, tgt *image.Target) (*image.Target, error) {
	if tgt == nil {
		return nil, errNullTarget()
	}
	if err := tgt.Validate(); err != nil {
		return nil, wrap(ErrInvalidArgument, "%v", err)
	}
	var out *image.Target
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		existing, err := loadTarget(ctx, tx, tgt.Name)
		if err != nil {
			return err
		}
		if existing == nil {
			return wrap(ErrNotFound, "unknown target %q", tgt.Name)
		}
		if existing.Equal(tgt) {
			return nil
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE targets SET description = ?, width = ?, height = ?, rating = ?, sampler = ?, checkpoint = ? WHERE name = ?`,
			nullableString(tgt.Description), tgt.Width, tgt.Height, tgt.Rating,
			string(tgt.Sampler), string(tgt.Checkpoint), tgt.Name,
		); err != nil {
			return wrapIO("update target", err)
		}
		out = tgt.Clone()
		return nil
	})
	return result(out, err)
}

func (r *SQLiteRepository) DeleteSource(ctx context.Context, src *image.Source) (*image.Source, error) {
	if src == nil {
		return nil, errNullSource()
	}
	var out *image.Source
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		existing, err := loadSource(ctx, tx, src.Name)
		if err != nil || existing == nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM assignments WHERE source_name = ?`, src.Name); err != nil {
			return wrapIO("delete assignments", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM sources WHERE name = ?`, src.Name); err != nil {
			return wrapIO("delete source", err)
		}
		out = existing
		return nil
	})
	return result(out, err)
}

func (r *SQLiteRepository) DeleteTarget(ctx context.Context, tgt *image.Target) (*image.Target, error) {
	if tgt == nil {
		return nil, errNullTarget()
	}
	var out *image.Target
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		existing, err := loadTarget(ctx, tx, tgt.Name)
		if err != nil || existing == nil {
			return err
		}
		if err := deleteTargetRows(ctx, tx, tgt.Name); err != nil {
			return err
		}
		out = existing
		return nil
	})
	return result(out, err)
}

func (r *SQLiteRepository) DeleteTargets(ctx context.Context, src *image.Source) ([]*image.Target, error) {
	if src == nil {
		return nil, errNullSource()
	}
	var out []*image.Target
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		owner, err := loadSource(ctx, tx, src.Name)
		if err != nil {
			return err
		}
		if owner == nil {
			return wrap(ErrNotFound, "unknown source %q", src.Name)
		}
		if out, err = targetsOf(ctx, tx, src.Name); err != nil {
			return err
		}
		for _, tgt := range out {
			if err := deleteTargetRows(ctx, tx, tgt.Name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Snapshot exports the database contents in the snapshot layout.
func (r *SQLiteRepository) Snapshot(ctx context.Context) (Snapshot, error) {
	s := Snapshot{Format: snapshotFormat, Version: snapshotVersion}
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		if s.Sources, err = loadSources(ctx, tx); err != nil {
			return err
		}
		if s.Targets, err = loadTargets(ctx, tx); err != nil {
			return err
		}
		for _, src := range s.Sources {
			targets, err := targetsOf(ctx, tx, src.Name)
			if err != nil {
				return err
			}
			names := make([]string, 0, len(targets))
			for _, tgt := range targets {
				names = append(names, tgt.Name)
			}
			s.Assignments = append(s.Assignments, Assignment{Source: src.Name, Targets: names})
		}
		return nil
	})
	if err != nil {
		return Snapshot{}, err
	}
	sortSnapshot(&s)
	return s, nil
}

// Reset deletes every row.
func (r *SQLiteRepository) Reset(ctx context.Context) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		for _, table := range []string{"assignments", "targets", "sources"} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return wrapIO("reset "+table, err)
			}
		}
		return nil
	})
}

// Close closes the database. The repository is unusable afterwards.
func (r *SQLiteRepository) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	onClose := r.onClose
	err := r.db.Close()
	r.mu.Unlock()

	if onClose != nil {
		onClose()
	}
	if err != nil {
		return wrapIO("close sqlite db", err)
	}
	return nil
}

func (r *SQLiteRepository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	ctx = ensureContext(ctx)
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return errClosed()
	}
	return retryOnBusy(ctx, func() error {
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return wrapIO("begin transaction", err)
		}
		if err := fn(tx); err != nil {
			_ = tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return wrapIO("commit transaction", err)
		}
		return nil
	})
}

func loadSource(ctx context.Context, q querier, name string) (*image.Source, error) {
	src, err := scanSource(q.QueryRowContext(ctx, `SELECT `+sourceColumns+` FROM sources WHERE name = ?`, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapIO("load source", err)
	}
	return src, nil
}

func loadTarget(ctx context.Context, q querier, name string) (*image.Target, error) {
	tgt, err := scanTarget(q.QueryRowContext(ctx, `SELECT `+targetColumns+` FROM targets WHERE name = ?`, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapIO("load target", err)
	}
	return tgt, nil
}

func loadSources(ctx context.Context, q querier) ([]*image.Source, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+sourceColumns+` FROM sources ORDER BY name`)
	if err != nil {
		return nil, wrapIO("list sources", err)
	}
	defer rows.Close()

	out := []*image.Source{}
	for rows.Next() {
		src, err := scanSource(rows)
		if err != nil {
			return nil, wrapIO("scan source", err)
		}
		out = append(out, src)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapIO("list sources", err)
	}
	return out, nil
}

func loadTargets(ctx context.Context, q querier) ([]*image.Target, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+targetColumns+` FROM targets ORDER BY name`)
	if err != nil {
		return nil, wrapIO("list targets", err)
	}
	defer rows.Close()

	out := []*image.Target{}
	for rows.Next() {
		tgt, err := scanTarget(rows)
		if err != nil {
			return nil, wrapIO("scan target", err)
		}
		out = append(out, tgt)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapIO("list targets", err)
	}
	return out, nil
}

func targetsOf(ctx context.Context, q querier, source string) ([]*image.Target, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT t.name, t.description, t.width, t.height, t.rating, t.sampler, t.checkpoint
         FROM assignments a JOIN targets t ON t.name = a.target_name
         WHERE a.source_name = ?
         ORDER BY a.seq`,
		source,
	)
	if err != nil {
		return nil, wrapIO("list targets of "+source, err)
	}
	defer rows.Close()

	out := []*image.Target{}
	for rows.Next() {
		tgt, err := scanTarget(rows)
		if err != nil {
			return nil, wrapIO("scan target", err)
		}
		out = append(out, tgt)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapIO("list targets of "+source, err)
	}
	return out, nil
}

func ownerOf(ctx context.Context, q querier, target string) (string, error) {
	var owner string
	err := q.QueryRowContext(ctx, `SELECT source_name FROM assignments WHERE target_name = ?`, target).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", wrapIO("find owner", err)
	}
	return owner, nil
}

func insertSource(ctx context.Context, q querier, src *image.Source) error {
	tags, err := encodeTags(src.Tags)
	if err != nil {
		return err
	}
	if _, err := q.ExecContext(ctx,
		`INSERT INTO sources (`+sourceColumns+`) VALUES (?, ?, ?, ?, ?)`,
		src.Name, nullableString(src.Description), src.Width, src.Height, tags,
	); err != nil {
		return wrapIO("insert source", err)
	}
	return nil
}

func appendAssignment(ctx context.Context, q querier, source, target string) error {
	if _, err := q.ExecContext(ctx,
		`INSERT INTO assignments (source_name, target_name) VALUES (?, ?)`, source, target,
	); err != nil {
		return wrapIO("assign target", err)
	}
	return nil
}

func deleteTargetRows(ctx context.Context, q querier, name string) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM assignments WHERE target_name = ?`, name); err != nil {
		return wrapIO("delete assignment", err)
	}
	if _, err := q.ExecContext(ctx, `DELETE FROM targets WHERE name = ?`, name); err != nil {
		return wrapIO("delete target", err)
	}
	return nil
}
