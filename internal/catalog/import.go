package catalog

import (
	"context"
	"errors"

	"inpaint/internal/image"
	"inpaint/internal/imagescan"
	"inpaint/internal/logging"
	"inpaint/internal/repository"
)

// ImportReport summarizes a directory import. Names are image paths.
type ImportReport struct {
	Created   []string
	Updated   []string
	Unchanged []string
	Failures  []imagescan.Failure
}

func (r *ImportReport) record(path string, existed, changed bool) {
	switch {
	case !changed:
		r.Unchanged = append(r.Unchanged, path)
	case existed:
		r.Updated = append(r.Updated, path)
	default:
		r.Created = append(r.Created, path)
	}
}

// ImportSources registers every image in dir as a source named by its path.
// Files already registered with the same dimensions are left alone.
func (s *Service) ImportSources(ctx context.Context, dir string) (ImportReport, error) {
	scan, err := imagescan.Scan(ctx, dir, imagescan.Options{})
	if err != nil {
		return ImportReport{}, err
	}
	report := ImportReport{Failures: scan.Failures}
	for _, entry := range scan.Images {
		existing, err := s.repo.ReadSource(ctx, entry.Path)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return report, err
		}
		var stored *image.Source
		if existing != nil {
			src := image.SourceBuilderFrom(existing).Width(entry.Width).Height(entry.Height).Build()
			stored, err = s.repo.UpdateSource(ctx, src)
		} else {
			src := image.NewSourceBuilder(entry.Path).Width(entry.Width).Height(entry.Height).Build()
			stored, err = s.repo.CreateSource(ctx, src)
		}
		if err != nil {
			return report, err
		}
		report.record(entry.Path, existing != nil, stored != nil)
	}
	s.logImport(ctx, "sources imported", dir, report)
	return report, nil
}

// ImportTargets registers every image in dir as a target of the named source.
func (s *Service) ImportTargets(ctx context.Context, sourceName, dir string) (ImportReport, error) {
	src, err := s.repo.ReadSource(ctx, sourceName)
	if err != nil {
		return ImportReport{}, err
	}
	scan, err := imagescan.Scan(ctx, dir, imagescan.Options{})
	if err != nil {
		return ImportReport{}, err
	}
	report := ImportReport{Failures: scan.Failures}
	for _, entry := range scan.Images {
		existing, err := s.repo.ReadTarget(ctx, entry.Path)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return report, err
		}
		builder := image.NewTargetBuilder(entry.Path)
		if existing != nil {
			builder = image.TargetBuilderFrom(existing)
		}
		changed, err := s.Reassign(ctx, src, builder.Width(entry.Width).Height(entry.Height).Build())
		if err != nil {
			return report, err
		}
		report.record(entry.Path, existing != nil, changed)
	}
	s.logImport(ctx, "targets imported", dir, report, logging.Source(sourceName))
	return report, nil
}

func (s *Service) logImport(ctx context.Context, msg, dir string, report ImportReport, extra ...logging.Attr) {
	logger := logging.WithContext(ctx, s.logger)
	attrs := append([]logging.Attr{
		logging.Path(dir),
		logging.Int("created", len(report.Created)),
		logging.Int("updated", len(report.Updated)),
		logging.Int("unchanged", len(report.Unchanged)),
		logging.Int("failed", len(report.Failures)),
	}, extra...)
	logger.Info(msg, logging.Args(attrs...)...)
	for _, failure := range report.Failures {
		logging.WarnWithContext(logger, "image skipped", "image_unreadable",
			logging.Path(failure.Path),
			logging.Error(failure.Err),
			logging.Hint("check that the file is a valid PNG or JPEG"),
		)
	}
}
