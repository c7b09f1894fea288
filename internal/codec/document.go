package codec

import (
	"context"
	"errors"
	"fmt"

	"inpaint/internal/image"
	"inpaint/internal/repository"
)

// Document is the exported catalog: every source with its targets in
// assignment order. Targets without an owner are not part of a document.
type Document struct {
	Sources []SourceEntry `json:"sources" yaml:"sources"`
}

// SourceEntry is a source followed by its targets.
type SourceEntry struct {
	image.Source `yaml:",inline"`
	Targets      []image.Target `json:"targets" yaml:"targets"`
}

// Export reads the whole catalog from repo.
func Export(ctx context.Context, repo repository.Repository) (Document, error) {
	sources, err := repo.ReadSources(ctx)
	if err != nil {
		return Document{}, err
	}
	doc := Document{Sources: make([]SourceEntry, 0, len(sources))}
	for _, src := range sources {
		targets, err := repo.ReadTargets(ctx, src)
		if err != nil {
			return Document{}, err
		}
		entry := SourceEntry{Source: *src, Targets: make([]image.Target, 0, len(targets))}
		for _, tgt := range targets {
			entry.Targets = append(entry.Targets, *tgt)
		}
		doc.Sources = append(doc.Sources, entry)
	}
	return doc, nil
}

// ImportOptions controls how Import treats records that already exist with
// different content.
type ImportOptions struct {
	// Replace updates differing records instead of failing with
	// repository.ErrAlreadyExists. Targets owned by another source are still
	// rejected.
	Replace bool
}

// ImportStats counts what Import changed.
type ImportStats struct {
	SourcesCreated int
	SourcesUpdated int
	TargetsCreated int
	TargetsUpdated int
	Unchanged      int
}

// Import writes doc into repo. Loading the same document twice changes
// nothing the second time.
func Import(ctx context.Context, repo repository.Repository, doc Document, opts ImportOptions) (ImportStats, error) {
	var stats ImportStats
	for i := range doc.Sources {
		entry := &doc.Sources[i]
		src := entry.Source.Clone()
		created, err := repo.CreateSource(ctx, src)
		switch {
		case errors.Is(err, repository.ErrAlreadyExists) && opts.Replace:
			updated, err := repo.UpdateSource(ctx, src)
			if err != nil {
				return stats, fmt.Errorf("source %q: %w", src.Name, err)
			}
			if updated != nil {
				stats.SourcesUpdated++
			}
		case err != nil:
			return stats, fmt.Errorf("source %q: %w", src.Name, err)
		case created != nil:
			stats.SourcesCreated++
		default:
			stats.Unchanged++
		}

		for j := range entry.Targets {
			tgt := entry.Targets[j].Clone()
			if err := importTarget(ctx, repo, src, tgt, opts, &stats); err != nil {
				return stats, fmt.Errorf("source %q target %q: %w", src.Name, tgt.Name, err)
			}
		}
	}
	return stats, nil
}

func importTarget(ctx context.Context, repo repository.Repository, src *image.Source, tgt *image.Target, opts ImportOptions, stats *ImportStats) error {
	created, err := repo.CreateTarget(ctx, src, tgt)
	if err == nil {
		if created != nil {
			stats.TargetsCreated++
		} else {
			stats.Unchanged++
		}
		return nil
	}
	if !errors.Is(err, repository.ErrAlreadyExists) || !opts.Replace {
		return err
	}

	owner, ownerErr := repo.ReadSourceOf(ctx, tgt)
	switch {
	case ownerErr == nil && owner.Name != src.Name:
		return err
	case ownerErr != nil && !errors.Is(ownerErr, repository.ErrNotFound):
		return ownerErr
	}
	if _, err := repo.UpdateTarget(ctx, tgt); err != nil {
		return err
	}
	stats.TargetsUpdated++
	if ownerErr != nil {
		// Orphan: now equal, so CreateTarget adopts it.
		if _, err := repo.CreateTarget(ctx, src, tgt); err != nil {
			return err
		}
	}
	return nil
}
