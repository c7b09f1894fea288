package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/text/unicode/norm"

	"inpaint/internal/image"
	"inpaint/internal/logging"
	"inpaint/internal/repository"
)

// Service wraps a repository with catalog operations.
type Service struct {
	repo   repository.Repository
	logger *slog.Logger
}

// New constructs a Service. A nil logger discards output.
func New(repo repository.Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{repo: repo, logger: logging.NewComponentLogger(logger, "catalog")}
}

// Repository exposes the underlying store.
func (s *Service) Repository() repository.Repository {
	return s.repo
}

// Assign adds tgt to src's target list. Assigning a target src already owns
// reports false.
func (s *Service) Assign(ctx context.Context, src *image.Source, tgt *image.Target) (bool, error) {
	created, err := s.repo.CreateTarget(ctx, src, tgt)
	if err != nil {
		return false, err
	}
	if created != nil {
		logging.WithContext(ctx, s.logger).Info("target assigned",
			logging.Source(src.Name),
			logging.Target(tgt.Name),
		)
	}
	return created != nil, nil
}

// AssignAll assigns every target in order and stops at the first error.
func (s *Service) AssignAll(ctx context.Context, src *image.Source, targets ...*image.Target) (bool, error) {
	return eachTarget(targets, func(tgt *image.Target) (bool, error) {
		return s.Assign(ctx, src, tgt)
	})
}

// Reassign moves tgt to src. A target owned by another source is deleted
// there first and then appended to src's list. The two steps are separate
// repository calls; a failure in between leaves tgt removed.
func (s *Service) Reassign(ctx context.Context, src *image.Source, tgt *image.Target) (bool, error) {
	if src == nil {
		return false, fmt.Errorf("%w: source is nil", repository.ErrNullInput)
	}
	if tgt == nil {
		return false, fmt.Errorf("%w: target is nil", repository.ErrNullInput)
	}
	owner, err := s.repo.ReadSourceOf(ctx, tgt)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		// Unknown targets are created; unowned ones take the new fields and
		// are adopted.
		if _, err := s.repo.UpdateTarget(ctx, tgt); err != nil && !errors.Is(err, repository.ErrNotFound) {
			return false, err
		}
	case err != nil:
		return false, err
	case owner.Name == src.Name:
		return s.updateOwned(ctx, tgt)
	default:
		if _, err := s.repo.DeleteTarget(ctx, tgt); err != nil {
			return false, err
		}
		logging.WithContext(ctx, s.logger).Info("target detached for reassignment",
			logging.Target(tgt.Name),
			logging.String("previous_source", owner.Name),
		)
	}
	return s.Assign(ctx, src, tgt)
}

// updateOwned applies tgt's fields when it is already owned by the requested
// source.
func (s *Service) updateOwned(ctx context.Context, tgt *image.Target) (bool, error) {
	updated, err := s.repo.UpdateTarget(ctx, tgt)
	if err != nil {
		return false, err
	}
	return updated != nil, nil
}

// ReassignAll reassigns every target in order and stops at the first error.
func (s *Service) ReassignAll(ctx context.Context, src *image.Source, targets ...*image.Target) (bool, error) {
	return eachTarget(targets, func(tgt *image.Target) (bool, error) {
		return s.Reassign(ctx, src, tgt)
	})
}

// Deassign deletes tgt, which must belong to src.
func (s *Service) Deassign(ctx context.Context, src *image.Source, tgt *image.Target) error {
	if src == nil {
		return fmt.Errorf("%w: source is nil", repository.ErrNullInput)
	}
	owner, err := s.repo.ReadSourceOf(ctx, tgt)
	if err != nil {
		return err
	}
	if owner.Name != src.Name {
		return fmt.Errorf("%w: target %q belongs to %q, not %q", repository.ErrNotFound, tgt.Name, owner.Name, src.Name)
	}
	if _, err := s.repo.DeleteTarget(ctx, tgt); err != nil {
		return err
	}
	logging.WithContext(ctx, s.logger).Info("target deassigned",
		logging.Source(src.Name),
		logging.Target(tgt.Name),
	)
	return nil
}

// DeassignAll deletes the listed targets of src. With no targets listed it
// clears src's whole list and returns what was removed.
func (s *Service) DeassignAll(ctx context.Context, src *image.Source, targets ...*image.Target) ([]*image.Target, error) {
	if len(targets) == 0 {
		removed, err := s.repo.DeleteTargets(ctx, src)
		if err != nil {
			return nil, err
		}
		if len(removed) > 0 {
			logging.WithContext(ctx, s.logger).Info("targets cleared",
				logging.Source(src.Name),
				logging.Int("count", len(removed)),
			)
		}
		return removed, nil
	}
	removed := make([]*image.Target, 0, len(targets))
	for _, tgt := range targets {
		if err := s.Deassign(ctx, src, tgt); err != nil {
			return removed, err
		}
		removed = append(removed, tgt)
	}
	return removed, nil
}

// NormalizeTags NFC-normalizes and trims each tag, drops blanks, and removes
// duplicates while keeping first-seen order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(norm.NFC.String(tag))
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// SetTags replaces the tags of the named source.
func (s *Service) SetTags(ctx context.Context, name string, tags ...string) (bool, error) {
	return s.editSource(ctx, name, func(b *image.SourceBuilder) {
		b.Tags(NormalizeTags(tags)...)
	})
}

// AddTags appends tags the named source does not carry yet.
func (s *Service) AddTags(ctx context.Context, name string, tags ...string) (bool, error) {
	return s.editSource(ctx, name, func(b *image.SourceBuilder) {
		for _, tag := range NormalizeTags(tags) {
			b.AddTag(tag)
		}
	})
}

func (s *Service) DescribeSource(ctx context.Context, name, description string) (bool, error) {
	return s.editSource(ctx, name, func(b *image.SourceBuilder) {
		b.Description(strings.TrimSpace(description))
	})
}

func (s *Service) DescribeTarget(ctx context.Context, name, description string) (bool, error) {
	return s.editTarget(ctx, name, func(b *image.TargetBuilder) {
		b.Description(strings.TrimSpace(description))
	})
}

func (s *Service) SetSampler(ctx context.Context, name string, sampler image.Sampler) (bool, error) {
	if !sampler.Valid() {
		return false, fmt.Errorf("%w: unknown sampler %q", repository.ErrInvalidArgument, sampler)
	}
	return s.editTarget(ctx, name, func(b *image.TargetBuilder) { b.Sampler(sampler) })
}

func (s *Service) SetCheckpoint(ctx context.Context, name string, checkpoint image.Checkpoint) (bool, error) {
	if !checkpoint.Valid() {
		return false, fmt.Errorf("%w: unknown checkpoint %q", repository.ErrInvalidArgument, checkpoint)
	}
	return s.editTarget(ctx, name, func(b *image.TargetBuilder) { b.Checkpoint(checkpoint) })
}

// Rate stores a rating between MinRating and MaxRating.
func (s *Service) Rate(ctx context.Context, name string, rating int) (bool, error) {
	if rating < MinRating || rating > MaxRating {
		return false, fmt.Errorf("%w: rating %d outside %d..%d", repository.ErrInvalidArgument, rating, MinRating, MaxRating)
	}
	return s.editTarget(ctx, name, func(b *image.TargetBuilder) { b.Rating(rating) })
}

const (
	MinRating = 0
	MaxRating = 5
)

// Samplers lists the supported samplers, default first.
func Samplers() []image.Sampler { return image.Samplers() }

// Checkpoints lists the supported checkpoints, default first.
func Checkpoints() []image.Checkpoint { return image.Checkpoints() }

func (s *Service) editSource(ctx context.Context, name string, edit func(*image.SourceBuilder)) (bool, error) {
	current, err := s.repo.ReadSource(ctx, name)
	if err != nil {
		return false, err
	}
	builder := image.SourceBuilderFrom(current)
	edit(builder)
	updated, err := s.repo.UpdateSource(ctx, builder.Build())
	if err != nil {
		return false, err
	}
	if updated != nil {
		logging.WithContext(ctx, s.logger).Debug("source updated", logging.Source(name))
	}
	return updated != nil, nil
}

func (s *Service) editTarget(ctx context.Context, name string, edit func(*image.TargetBuilder)) (bool, error) {
	current, err := s.repo.ReadTarget(ctx, name)
	if err != nil {
		return false, err
	}
	builder := image.TargetBuilderFrom(current)
	edit(builder)
	updated, err := s.repo.UpdateTarget(ctx, builder.Build())
	if err != nil {
		return false, err
	}
	if updated != nil {
		logging.WithContext(ctx, s.logger).Debug("target updated", logging.Target(name))
	}
	return updated != nil, nil
}

func eachTarget(targets []*image.Target, fn func(*image.Target) (bool, error)) (bool, error) {
	changed := false
	for _, tgt := range targets {
		ok, err := fn(tgt)
		if err != nil {
			return changed, err
		}
		changed = changed || ok
	}
	return changed, nil
}
