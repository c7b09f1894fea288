package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"inpaint/internal/image"
	"inpaint/internal/repository"
	"inpaint/internal/testsupport"
)

func newService(t *testing.T) (*Service, repository.Repository) {
	t.Helper()
	repo := repository.NewMemoryRepository()
	return New(repo, nil), repo
}

func mustCreateSource(t *testing.T, repo repository.Repository, name string) *image.Source {
	t.Helper()
	src := image.NewSourceBuilder(name).Width(64).Height(64).Build()
	if _, err := repo.CreateSource(context.Background(), src); err != nil {
		t.Fatalf("create source %s: %v", name, err)
	}
	return src
}

func targetNames(t *testing.T, repo repository.Repository, src *image.Source) []string {
	t.Helper()
	targets, err := repo.ReadTargets(context.Background(), src)
	if err != nil {
		t.Fatalf("read targets of %s: %v", src.Name, err)
	}
	names := make([]string, 0, len(targets))
	for _, tgt := range targets {
		names = append(names, tgt.Name)
	}
	return names
}

func TestAssignReportsChanges(t *testing.T) {
	ctx := context.Background()
	svc, repo := newService(t)
	src := mustCreateSource(t, repo, "S")
	tgt := image.NewTargetBuilder("T").Build()

	changed, err := svc.Assign(ctx, src, tgt)
	if err != nil || !changed {
		t.Fatalf("first assign = %v, %v", changed, err)
	}
	changed, err = svc.Assign(ctx, src, tgt)
	if err != nil || changed {
		t.Fatalf("repeat assign = %v, %v", changed, err)
	}

	other := mustCreateSource(t, repo, "O")
	if _, err := svc.Assign(ctx, other, tgt); !errors.Is(err, repository.ErrAlreadyExists) {
		t.Fatalf("assign to second source: %v", err)
	}

	changed, err = svc.AssignAll(ctx, src, tgt, image.NewTargetBuilder("U").Build())
	if err != nil || !changed {
		t.Fatalf("AssignAll = %v, %v", changed, err)
	}
	if got := targetNames(t, repo, src); !slices.Equal(got, []string{"T", "U"}) {
		t.Fatalf("targets = %v", got)
	}
}

func TestReassignMovesTarget(t *testing.T) {
	ctx := context.Background()
	svc, repo := newService(t)
	from := mustCreateSource(t, repo, "A")
	to := mustCreateSource(t, repo, "B")
	tgt := image.NewTargetBuilder("T").Build()
	if _, err := svc.Assign(ctx, from, tgt); err != nil {
		t.Fatal(err)
	}

	moved := image.TargetBuilderFrom(tgt).Rating(4).Build()
	changed, err := svc.Reassign(ctx, to, moved)
	if err != nil || !changed {
		t.Fatalf("Reassign = %v, %v", changed, err)
	}
	if got := targetNames(t, repo, from); len(got) != 0 {
		t.Fatalf("old owner still lists %v", got)
	}
	owner, err := repo.ReadSourceOf(ctx, moved)
	if err != nil || owner.Name != "B" {
		t.Fatalf("owner = %v, %v", owner, err)
	}
	stored, _ := repo.ReadTarget(ctx, "T")
	if stored.Rating != 4 {
		t.Fatalf("reassigned target lost new fields: %+v", stored)
	}

	changed, err = svc.Reassign(ctx, to, moved)
	if err != nil || changed {
		t.Fatalf("reassign to current owner = %v, %v", changed, err)
	}
}

func TestReassignAdoptsOrphanWithNewFields(t *testing.T) {
	ctx := context.Background()
	svc, repo := newService(t)
	gone := mustCreateSource(t, repo, "Gone")
	keep := mustCreateSource(t, repo, "Keep")
	tgt := image.NewTargetBuilder("T").Build()
	if _, err := svc.Assign(ctx, gone, tgt); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.DeleteSource(ctx, gone); err != nil {
		t.Fatal(err)
	}

	changed, err := svc.ReassignAll(ctx, keep, image.TargetBuilderFrom(tgt).Description("kept").Build())
	if err != nil || !changed {
		t.Fatalf("ReassignAll = %v, %v", changed, err)
	}
	stored, err := repo.ReadTarget(ctx, "T")
	if err != nil || stored.Description != "kept" {
		t.Fatalf("stored = %+v, %v", stored, err)
	}
	if got := targetNames(t, repo, keep); !slices.Equal(got, []string{"T"}) {
		t.Fatalf("targets = %v", got)
	}
}

func TestDeassign(t *testing.T) {
	ctx := context.Background()
	svc, repo := newService(t)
	a := mustCreateSource(t, repo, "A")
	b := mustCreateSource(t, repo, "B")
	t1 := image.NewTargetBuilder("T1").Build()
	t2 := image.NewTargetBuilder("T2").Build()
	t3 := image.NewTargetBuilder("T3").Build()
	if _, err := svc.AssignAll(ctx, a, t1, t2); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Assign(ctx, b, t3); err != nil {
		t.Fatal(err)
	}

	if err := svc.Deassign(ctx, a, t3); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("deassign foreign target: %v", err)
	}
	if err := svc.Deassign(ctx, a, t1); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.ReadTarget(ctx, "T1"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("deassigned target should be deleted: %v", err)
	}

	removed, err := svc.DeassignAll(ctx, a)
	if err != nil || len(removed) != 1 || removed[0].Name != "T2" {
		t.Fatalf("DeassignAll = %v, %v", removed, err)
	}
	removed, err = svc.DeassignAll(ctx, b, t3)
	if err != nil || len(removed) != 1 {
		t.Fatalf("DeassignAll with list = %v, %v", removed, err)
	}
}

func TestNormalizeTags(t *testing.T) {
	decomposed := "cafe\u0301"
	composed := "caf\u00e9"
	got := NormalizeTags([]string{" sky ", decomposed, "", composed, "sky", "  "})
	if !slices.Equal(got, []string{"sky", composed}) {
		t.Fatalf("NormalizeTags = %q", got)
	}
}

func TestEditOperations(t *testing.T) {
	ctx := context.Background()
	svc, repo := newService(t)
	src := mustCreateSource(t, repo, "S")
	if _, err := svc.Assign(ctx, src, image.NewTargetBuilder("T").Build()); err != nil {
		t.Fatal(err)
	}

	steps := []struct {
		name string
		run  func() (bool, error)
		want bool
	}{
		{"set tags", func() (bool, error) { return svc.SetTags(ctx, "S", "b", "a", "b") }, true},
		{"same tags", func() (bool, error) { return svc.SetTags(ctx, "S", "b", "a") }, false},
		{"add tags", func() (bool, error) { return svc.AddTags(ctx, "S", "a", "c") }, true},
		{"describe source", func() (bool, error) { return svc.DescribeSource(ctx, "S", " beach ") }, true},
		{"describe target", func() (bool, error) { return svc.DescribeTarget(ctx, "T", "night") }, true},
		{"sampler", func() (bool, error) { return svc.SetSampler(ctx, "T", image.SamplerDDIM) }, true},
		{"checkpoint", func() (bool, error) { return svc.SetCheckpoint(ctx, "T", image.CheckpointSDXL) }, true},
		{"rate", func() (bool, error) { return svc.Rate(ctx, "T", 5) }, true},
		{"rate again", func() (bool, error) { return svc.Rate(ctx, "T", 5) }, false},
	}
	for _, step := range steps {
		got, err := step.run()
		if err != nil || got != step.want {
			t.Fatalf("%s = %v, %v; want %v", step.name, got, err, step.want)
		}
	}

	stored, _ := repo.ReadSource(ctx, "S")
	if !slices.Equal(stored.Tags, []string{"b", "a", "c"}) || stored.Description != "beach" {
		t.Fatalf("source = %+v", stored)
	}
	tgt, _ := repo.ReadTarget(ctx, "T")
	if tgt.Description != "night" || tgt.Sampler != image.SamplerDDIM || tgt.Checkpoint != image.CheckpointSDXL || tgt.Rating != 5 {
		t.Fatalf("target = %+v", tgt)
	}

	if _, err := svc.Rate(ctx, "T", 9); !errors.Is(err, repository.ErrInvalidArgument) {
		t.Fatalf("out-of-range rating: %v", err)
	}
	if _, err := svc.SetSampler(ctx, "T", "WARP"); !errors.Is(err, repository.ErrInvalidArgument) {
		t.Fatalf("unknown sampler: %v", err)
	}
	if _, err := svc.DescribeSource(ctx, "missing", "x"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("missing source: %v", err)
	}
	if Samplers()[0] != image.DefaultSampler || Checkpoints()[0] != image.DefaultCheckpoint {
		t.Fatal("enum listings should start with the defaults")
	}
}

func TestImportSourcesAndTargets(t *testing.T) {
	ctx := context.Background()
	svc, repo := newService(t)
	sources := t.TempDir()
	testsupport.WritePNG(t, filepath.Join(sources, "one.png"), 10, 20)
	testsupport.WritePNG(t, filepath.Join(sources, "two.png"), 30, 40)
	if err := os.WriteFile(filepath.Join(sources, "bad.png"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	report, err := svc.ImportSources(ctx, sources)
	if err != nil {
		t.Fatalf("ImportSources: %v", err)
	}
	if len(report.Created) != 2 || len(report.Failures) != 1 {
		t.Fatalf("report = %+v", report)
	}
	one := filepath.Join(sources, "one.png")
	src, err := repo.ReadSource(ctx, one)
	if err != nil || src.Width != 10 || src.Height != 20 {
		t.Fatalf("imported source = %+v, %v", src, err)
	}

	if _, err := svc.SetTags(ctx, one, "kept"); err != nil {
		t.Fatal(err)
	}
	report, err = svc.ImportSources(ctx, sources)
	if err != nil || len(report.Unchanged) != 2 || len(report.Created) != 0 {
		t.Fatalf("re-import = %+v, %v", report, err)
	}
	if src, _ := repo.ReadSource(ctx, one); !src.HasTag("kept") {
		t.Fatal("re-import dropped existing tags")
	}

	targets := t.TempDir()
	testsupport.WritePNG(t, filepath.Join(targets, "t1.png"), 10, 20)
	report, err = svc.ImportTargets(ctx, one, targets)
	if err != nil || len(report.Created) != 1 {
		t.Fatalf("ImportTargets = %+v, %v", report, err)
	}
	if got := targetNames(t, repo, src); len(got) != 1 || filepath.Base(got[0]) != "t1.png" {
		t.Fatalf("targets = %v", got)
	}

	if _, err := svc.ImportTargets(ctx, "missing", targets); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("import into missing source: %v", err)
	}
}
