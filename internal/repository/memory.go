package repository

import (
	"context"
	"slices"
	"sync"

	"inpaint/internal/image"
)

// MemoryRepository keeps the whole catalog in process memory. One RWMutex
// guards all three maps, so every operation observes a consistent state.
type MemoryRepository struct {
	mu          sync.RWMutex
	sources     map[string]*image.Source
	targets     map[string]*image.Target
	assignments map[string][]string // source name -> target names in assignment order
}

// NewMemoryRepository returns an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		sources:     make(map[string]*image.Source),
		targets:     make(map[string]*image.Target),
		assignments: make(map[string][]string),
	}
}

// NewMemoryRepositoryFromSnapshot rebuilds a repository from s after checking
// its referential integrity.
func NewMemoryRepositoryFromSnapshot(s Snapshot) (*MemoryRepository, error) {
	if err := s.validate(); err != nil {
		return nil, wrap(ErrInvalidArgument, "restore snapshot: %v", err)
	}
	r := NewMemoryRepository()
	for _, src := range s.Sources {
		r.sources[src.Name] = src.Clone()
		r.assignments[src.Name] = []string{}
	}
	for _, tgt := range s.Targets {
		r.targets[tgt.Name] = tgt.Clone()
	}
	for _, a := range s.Assignments {
		r.assignments[a.Source] = slices.Clone(a.Targets)
	}
	return r, nil
}

func (r *MemoryRepository) CreateSource(_ context.Context, src *image.Source) (*image.Source, error) {
	if src == nil {
		return nil, errNullSource()
	}
	if err := src.Validate(); err != nil {
		return nil, wrap(ErrInvalidArgument, "%v", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.sources[src.Name]; ok {
		if existing.Equal(src) {
			return nil, nil
		}
		return nil, wrap(ErrAlreadyExists, "duplicate source %q; use update to replace it", src.Name)
	}
	r.sources[src.Name] = src.Clone()
	r.assignments[src.Name] = []string{}
	return src.Clone(), nil
}

func (r *MemoryRepository) CreateTarget(_ context.Context, src *image.Source, tgt *image.Target) (*image.Target, error) {
	if src == nil {
		return nil, errNullSource()
	}
	if tgt == nil {
		return nil, errNullTarget()
	}
	if err := tgt.Validate(); err != nil {
		return nil, wrap(ErrInvalidArgument, "%v", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sources[src.Name]; !ok {
		return nil, wrap(ErrNotFound, "unknown source %q", src.Name)
	}
	if existing, ok := r.targets[tgt.Name]; ok {
		if !existing.Equal(tgt) {
			return nil, wrap(ErrAlreadyExists, "duplicate target %q; use update to replace it", tgt.Name)
		}
		switch owner := r.ownerLocked(tgt.Name); owner {
		case src.Name:
			return nil, nil
		case "":
			// An orphan left behind by DeleteSource is adopted.
			r.assignments[src.Name] = append(r.assignments[src.Name], tgt.Name)
			return existing.Clone(), nil
		default:
			return nil, wrap(ErrAlreadyExists, "target %q assigned to another source %q; delete the target before assigning it to %q", tgt.Name, owner, src.Name)
		}
	}
	r.targets[tgt.Name] = tgt.Clone()
	r.assignments[src.Name] = append(r.assignments[src.Name], tgt.Name)
	return tgt.Clone(), nil
}

func (r *MemoryRepository) ReadSourceOf(_ context.Context, tgt *image.Target) (*image.Source, error) {
	if tgt == nil {
		return nil, errNullTarget()
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.targets[tgt.Name]; !ok {
		return nil, wrap(ErrNotFound, "unknown target %q", tgt.Name)
	}
	owner := r.ownerLocked(tgt.Name)
	if owner == "" {
		return nil, wrap(ErrNotFound, "target %q is not assigned to any source", tgt.Name)
	}
	return r.sources[owner].Clone(), nil
}

func (r *MemoryRepository) ReadSource(_ context.Context, name string) (*image.Source, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	src, ok := r.sources[name]
	if !ok {
		return nil, wrap(ErrNotFound, "unknown source %q", name)
	}
	return src.Clone(), nil
}

func (r *MemoryRepository) ReadSources(_ context.Context) ([]*image.Source, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*image.Source, 0, len(r.sources))
	for _, name := range sortedKeys(r.sources) {
		out = append(out, r.sources[name].Clone())
	}
	return out, nil
}

func (r *MemoryRepository) ReadTargets(_ context.Context, src *image.Source) ([]*image.Target, error) {
	if src == nil {
		return nil, errNullSource()
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	names, ok := r.assignments[src.Name]
	if _, known := r.sources[src.Name]; !known || !ok {
		return nil, wrap(ErrNotFound, "unknown source %q", src.Name)
	}
	out := make([]*image.Target, 0, len(names))
	for _, name := range names {
		out = append(out, r.targets[name].Clone())
	}
	return out, nil
}

func (r *MemoryRepository) ReadTarget(_ context.Context, name string) (*image.Target, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tgt, ok := r.targets[name]
	if !ok {
		return nil, wrap(ErrNotFound, "unknown target %q", name)
	}
	return tgt.Clone(), nil
}

func (r *MemoryRepository) UpdateSource(_ context.Context, src *image.Source) (*image.Source, error) {
	if src == nil {
		return nil, errNullSource()
	}
	if err := src.Validate(); err != nil {
		return nil, wrap(ErrInvalidArgument, "%v", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.sources[src.Name]
	if !ok {
		return nil, wrap(ErrNotFound, "unknown source %q", src.Name)
	}
	if existing.Equal(src) {
		return nil, nil
	}
	r.sources[src.Name] = src.Clone()
	return src.Clone(), nil
}

func (r *MemoryRepository) UpdateTarget(_ context.Context, tgt *image.Target) (*image.Target, error) {
	if tgt == nil {
		return nil, errNullTarget()
	}
	if err := tgt.Validate(); err != nil {
		return nil, wrap(ErrInvalidArgument, "%v", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.targets[tgt.Name]
	if !ok {
		return nil, wrap(ErrNotFound, "unknown target %q", tgt.Name)
	}
	if existing.Equal(tgt) {
		return nil, nil
	}
	r.targets[tgt.Name] = tgt.Clone()
	return tgt.Clone(), nil
}

func (r *MemoryRepository) DeleteSource(_ context.Context, src *image.Source) (*image.Source, error) {
	if src == nil {
		return nil, errNullSource()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	removed, ok := r.sources[src.Name]
	if !ok {
		return nil, nil
	}
	delete(r.assignments, src.Name)
	delete(r.sources, src.Name)
	return removed.Clone(), nil
}

func (r *MemoryRepository) DeleteTarget(_ context.Context, tgt *image.Target) (*image.Target, error) {
	if tgt == nil {
		return nil, errNullTarget()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	removed, ok := r.targets[tgt.Name]
	if !ok {
		return nil, nil
	}
	for owner, names := range r.assignments {
		r.assignments[owner] = slices.DeleteFunc(names, func(name string) bool { return name == tgt.Name })
	}
	delete(r.targets, tgt.Name)
	return removed.Clone(), nil
}

func (r *MemoryRepository) DeleteTargets(_ context.Context, src *image.Source) ([]*image.Target, error) {
	if src == nil {
		return nil, errNullSource()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	names, ok := r.assignments[src.Name]
	if _, known := r.sources[src.Name]; !known || !ok {
		return nil, wrap(ErrNotFound, "unknown source %q", src.Name)
	}
	removed := make([]*image.Target, 0, len(names))
	for _, name := range names {
		if tgt, ok := r.targets[name]; ok {
			removed = append(removed, tgt.Clone())
			delete(r.targets, name)
		}
	}
	r.assignments[src.Name] = []string{}
	return removed, nil
}

// Snapshot exports the full state.
func (r *MemoryRepository) Snapshot(_ context.Context) (Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshotLocked(), nil
}

func (r *MemoryRepository) snapshotLocked() Snapshot {
	s := Snapshot{
		Format:      snapshotFormat,
		Version:     snapshotVersion,
		Sources:     make([]*image.Source, 0, len(r.sources)),
		Targets:     make([]*image.Target, 0, len(r.targets)),
		Assignments: make([]Assignment, 0, len(r.assignments)),
	}
	for _, src := range r.sources {
		s.Sources = append(s.Sources, src.Clone())
	}
	for _, tgt := range r.targets {
		s.Targets = append(s.Targets, tgt.Clone())
	}
	for owner, names := range r.assignments {
		s.Assignments = append(s.Assignments, Assignment{Source: owner, Targets: slices.Clone(names)})
	}
	sortSnapshot(&s)
	return s
}

// Reset discards all state.
func (r *MemoryRepository) Reset(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources = make(map[string]*image.Source)
	r.targets = make(map[string]*image.Target)
	r.assignments = make(map[string][]string)
	return nil
}

// ownerLocked returns the source whose list holds target name, or "".
func (r *MemoryRepository) ownerLocked(name string) string {
	for owner, names := range r.assignments {
		if slices.Contains(names, name) {
			return owner
		}
	}
	return ""
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}
