package repository

import (
	"errors"
	"sync"
)

// Registry hands out one persistent repository per data directory and
// backend. Opening a directory that is already open returns the existing
// instance; the options passed on later calls are ignored.
type Registry struct {
	mu     sync.Mutex
	files  map[string]*FileRepository
	sqlite map[string]*SQLiteRepository
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		files:  make(map[string]*FileRepository),
		sqlite: make(map[string]*SQLiteRepository),
	}
}

var processRegistry = sync.OnceValue(NewRegistry)

// DefaultRegistry returns the process-wide registry, creating it on first use.
func DefaultRegistry() *Registry {
	return processRegistry()
}

// OpenFile returns the FileRepository for dir.
func (g *Registry) OpenFile(dir string, opts FileOptions) (*FileRepository, error) {
	key, err := canonicalDir(dir)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if repo, ok := g.files[key]; ok {
		return repo, nil
	}
	repo, err := OpenFileRepository(key, opts)
	if err != nil {
		return nil, err
	}
	repo.onClose = func() { g.forgetFile(key, repo) }
	g.files[key] = repo
	return repo, nil
}

// OpenSQLite returns the SQLiteRepository for dir.
func (g *Registry) OpenSQLite(dir string, opts SQLiteOptions) (*SQLiteRepository, error) {
	key, err := canonicalDir(dir)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if repo, ok := g.sqlite[key]; ok {
		return repo, nil
	}
	repo, err := OpenSQLiteRepository(key, opts)
	if err != nil {
		return nil, err
	}
	repo.onClose = func() { g.forgetSQLite(key, repo) }
	g.sqlite[key] = repo
	return repo, nil
}

// Len reports how many repositories are open.
func (g *Registry) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.files) + len(g.sqlite)
}

// CloseAll closes and forgets every open repository.
func (g *Registry) CloseAll() error {
	g.mu.Lock()
	files := g.files
	sqlite := g.sqlite
	g.files = make(map[string]*FileRepository)
	g.sqlite = make(map[string]*SQLiteRepository)
	g.mu.Unlock()

	var errs []error
	for _, repo := range files {
		errs = append(errs, repo.Close())
	}
	for _, repo := range sqlite {
		errs = append(errs, repo.Close())
	}
	return errors.Join(errs...)
}

func (g *Registry) forgetFile(key string, repo *FileRepository) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.files[key] == repo {
		delete(g.files, key)
	}
}

func (g *Registry) forgetSQLite(key string, repo *SQLiteRepository) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sqlite[key] == repo {
		delete(g.sqlite, key)
	}
}
