package repository

import (
	"context"

	"inpaint/internal/image"
)

// Repository stores sources, targets, and the ordered assignment of targets to
// sources.
//
// Records crossing the boundary are copies: mutating an argument after a call,
// or a returned value, never changes stored state. Mutations that find the
// requested state already in place return (nil, nil); callers treat a nil
// result as "nothing changed".
type Repository interface {
	// CreateSource inserts src. An equal record already stored is a no-op; a
	// different record with the same name fails with ErrAlreadyExists.
	CreateSource(ctx context.Context, src *image.Source) (*image.Source, error)
	// CreateTarget inserts tgt and appends it to src's target list. An equal
	// target already in src's list is a no-op, and one owned by another source
	// or differing from the stored record fails with ErrAlreadyExists.
	//
	// An equal target left without an owner by DeleteSource is adopted: it is
	// appended to src's list and returned. It is not reported as an unchanged
	// (nil, nil) no-op that leaves the target unassigned.
	CreateTarget(ctx context.Context, src *image.Source, tgt *image.Target) (*image.Target, error)
	// ReadSourceOf returns the source owning tgt.
	ReadSourceOf(ctx context.Context, tgt *image.Target) (*image.Source, error)
	ReadSource(ctx context.Context, name string) (*image.Source, error)
	// ReadSources returns every source ordered by name.
	ReadSources(ctx context.Context) ([]*image.Source, error)
	// ReadTargets returns src's targets in assignment order.
	ReadTargets(ctx context.Context, src *image.Source) ([]*image.Target, error)
	ReadTarget(ctx context.Context, name string) (*image.Target, error)
	UpdateSource(ctx context.Context, src *image.Source) (*image.Source, error)
	UpdateTarget(ctx context.Context, tgt *image.Target) (*image.Target, error)
	// DeleteSource removes src and its target list. The targets themselves
	// stay stored without an owner.
	DeleteSource(ctx context.Context, src *image.Source) (*image.Source, error)
	DeleteTarget(ctx context.Context, tgt *image.Target) (*image.Target, error)
	// DeleteTargets removes every target assigned to src and returns them in
	// assignment order.
	DeleteTargets(ctx context.Context, src *image.Source) ([]*image.Target, error)
}

// Resetter is implemented by backends that can discard all state at once.
type Resetter interface {
	Reset(ctx context.Context) error
}

// Snapshotter is implemented by backends that can export their full state.
type Snapshotter interface {
	Snapshot(ctx context.Context) (Snapshot, error)
}
