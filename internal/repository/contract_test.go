package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"inpaint/internal/image"
)

type repoFactory func(t *testing.T) Repository

func backends() map[string]repoFactory {
	return map[string]repoFactory{
		"memory": func(t *testing.T) Repository { return NewMemoryRepository() },
		"file": func(t *testing.T) Repository {
			repo, err := OpenFileRepository(t.TempDir(), FileOptions{})
			if err != nil {
				t.Fatalf("open file repository: %v", err)
			}
			t.Cleanup(func() { _ = repo.Close() })
			return repo
		},
		"sqlite": func(t *testing.T) Repository {
			repo, err := OpenSQLiteRepository(t.TempDir(), SQLiteOptions{})
			if err != nil {
				t.Fatalf("open sqlite repository: %v", err)
			}
			t.Cleanup(func() { _ = repo.Close() })
			return repo
		},
	}
}

func forEachBackend(t *testing.T, test func(t *testing.T, repo Repository)) {
	t.Helper()
	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			test(t, factory(t))
		})
	}
}

func sourceNamed(i int) *image.Source {
	return image.NewSourceBuilder(fmt.Sprintf("S#%d", i)).
		Description(fmt.Sprintf("source %d", i)).
		Width(100 + i).
		Height(200 + i).
		AddTag("tag").
		Build()
}

func targetNamed(i, j int) *image.Target {
	return image.NewTargetBuilder(fmt.Sprintf("T#%d of S#%d", j, i)).
		Width(10 + j).
		Height(20 + j).
		Rating(j).
		Build()
}

// populate creates sources S#0..S#(n-1), each with m targets.
func populate(t *testing.T, repo Repository, n, m int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < n; i++ {
		src := sourceNamed(i)
		if _, err := repo.CreateSource(ctx, src); err != nil {
			t.Fatalf("create %s: %v", src.Name, err)
		}
		for j := 0; j < m; j++ {
			tgt := targetNamed(i, j)
			if _, err := repo.CreateTarget(ctx, src, tgt); err != nil {
				t.Fatalf("create %s: %v", tgt.Name, err)
			}
		}
	}
}

func expectKind(t *testing.T, err error, sentinel error) {
	t.Helper()
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected %v, got %v", sentinel, err)
	}
}

func targetNames(targets []*image.Target) []string {
	names := make([]string, 0, len(targets))
	for _, tgt := range targets {
		names = append(names, tgt.Name)
	}
	return names
}

func TestContractCreateSource(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		src := sourceNamed(1)

		created, err := repo.CreateSource(ctx, src)
		if err != nil {
			t.Fatalf("CreateSource: %v", err)
		}
		if !created.Equal(src) {
			t.Fatalf("created %+v differs from input %+v", created, src)
		}

		again, err := repo.CreateSource(ctx, src.Clone())
		if err != nil || again != nil {
			t.Fatalf("equal duplicate should be a no-op, got %v, %v", again, err)
		}

		differing := image.SourceBuilderFrom(src).Width(1).Build()
		_, err = repo.CreateSource(ctx, differing)
		expectKind(t, err, ErrAlreadyExists)

		_, err = repo.CreateSource(ctx, nil)
		expectKind(t, err, ErrNullInput)

		_, err = repo.CreateSource(ctx, image.NewSourceBuilder(" ").Build())
		expectKind(t, err, ErrInvalidArgument)

		stored, err := repo.ReadSource(ctx, src.Name)
		if err != nil || !stored.Equal(src) {
			t.Fatalf("stored source = %+v, %v", stored, err)
		}
		targets, err := repo.ReadTargets(ctx, src)
		if err != nil || len(targets) != 0 {
			t.Fatalf("new source should own no targets, got %v, %v", targets, err)
		}
	})
}

func TestContractCreateTarget(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		populate(t, repo, 2, 0)
		s0, s1 := sourceNamed(0), sourceNamed(1)
		tgt := targetNamed(0, 0)

		_, err := repo.CreateTarget(ctx, sourceNamed(9), tgt)
		expectKind(t, err, ErrNotFound)

		created, err := repo.CreateTarget(ctx, s0, tgt)
		if err != nil || !created.Equal(tgt) {
			t.Fatalf("CreateTarget = %+v, %v", created, err)
		}

		again, err := repo.CreateTarget(ctx, s0, tgt.Clone())
		if err != nil || again != nil {
			t.Fatalf("equal duplicate under same source should be a no-op, got %v, %v", again, err)
		}

		_, err = repo.CreateTarget(ctx, s1, tgt.Clone())
		expectKind(t, err, ErrAlreadyExists)

		differing := image.TargetBuilderFrom(tgt).Rating(99).Build()
		_, err = repo.CreateTarget(ctx, s0, differing)
		expectKind(t, err, ErrAlreadyExists)

		_, err = repo.CreateTarget(ctx, nil, tgt)
		expectKind(t, err, ErrNullInput)
		_, err = repo.CreateTarget(ctx, s0, nil)
		expectKind(t, err, ErrNullInput)
		_, err = repo.CreateTarget(ctx, s0, image.NewTargetBuilder("T#x").Sampler("NOPE").Build())
		expectKind(t, err, ErrInvalidArgument)

		owner, err := repo.ReadSourceOf(ctx, tgt)
		if err != nil || owner.Name != s0.Name {
			t.Fatalf("owner = %v, %v", owner, err)
		}
	})
}

func TestContractReadTargetsPreservesInsertionOrder(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		src := sourceNamed(0)
		if _, err := repo.CreateSource(ctx, src); err != nil {
			t.Fatal(err)
		}
		want := []string{"zeta", "alpha", "mid"}
		for _, name := range want {
			if _, err := repo.CreateTarget(ctx, src, image.NewTargetBuilder(name).Build()); err != nil {
				t.Fatal(err)
			}
		}
		targets, err := repo.ReadTargets(ctx, src)
		if err != nil {
			t.Fatal(err)
		}
		got := targetNames(targets)
		if fmt.Sprint(got) != fmt.Sprint(want) {
			t.Fatalf("order = %v, want %v", got, want)
		}

		_, err = repo.ReadTargets(ctx, sourceNamed(5))
		expectKind(t, err, ErrNotFound)
		_, err = repo.ReadTargets(ctx, nil)
		expectKind(t, err, ErrNullInput)
	})
}

func TestContractReads(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		populate(t, repo, 3, 2)

		sources, err := repo.ReadSources(ctx)
		if err != nil || len(sources) != 3 {
			t.Fatalf("ReadSources = %d, %v", len(sources), err)
		}
		for i, src := range sources {
			if !src.Equal(sourceNamed(i)) {
				t.Fatalf("source %d = %+v", i, src)
			}
		}

		tgt, err := repo.ReadTarget(ctx, "T#1 of S#2")
		if err != nil || !tgt.Equal(targetNamed(2, 1)) {
			t.Fatalf("ReadTarget = %+v, %v", tgt, err)
		}
		_, err = repo.ReadTarget(ctx, "missing")
		expectKind(t, err, ErrNotFound)
		_, err = repo.ReadSource(ctx, "missing")
		expectKind(t, err, ErrNotFound)

		for i := 0; i < 3; i++ {
			for j := 0; j < 2; j++ {
				owner, err := repo.ReadSourceOf(ctx, targetNamed(i, j))
				if err != nil || !owner.Equal(sourceNamed(i)) {
					t.Fatalf("owner of T#%d of S#%d = %v, %v", j, i, owner, err)
				}
			}
		}
		_, err = repo.ReadSourceOf(ctx, image.NewTargetBuilder("missing").Build())
		expectKind(t, err, ErrNotFound)
		_, err = repo.ReadSourceOf(ctx, nil)
		expectKind(t, err, ErrNullInput)
	})
}

func TestContractDefensiveCopies(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		src := image.NewSourceBuilder("S#0").AddTag("a").Build()
		created, err := repo.CreateSource(ctx, src)
		if err != nil {
			t.Fatal(err)
		}

		src.Tags[0] = "mutated-input"
		created.Tags[0] = "mutated-output"
		read, err := repo.ReadSource(ctx, "S#0")
		if err != nil {
			t.Fatal(err)
		}
		read.Tags = append(read.Tags, "extra")
		read.Description = "changed"

		again, err := repo.ReadSource(ctx, "S#0")
		if err != nil {
			t.Fatal(err)
		}
		if len(again.Tags) != 1 || again.Tags[0] != "a" || again.Description != "" {
			t.Fatalf("stored source changed through a copy: %+v", again)
		}

		tgt := image.NewTargetBuilder("T#0").Build()
		if _, err := repo.CreateTarget(ctx, again, tgt); err != nil {
			t.Fatal(err)
		}
		tgt.Rating = 5
		stored, err := repo.ReadTarget(ctx, "T#0")
		if err != nil || stored.Rating != 0 {
			t.Fatalf("stored target changed through input: %+v, %v", stored, err)
		}
	})
}

func TestContractUpdates(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		populate(t, repo, 1, 1)
		src := sourceNamed(0)
		tgt := targetNamed(0, 0)

		same, err := repo.UpdateSource(ctx, src.Clone())
		if err != nil || same != nil {
			t.Fatalf("equal update should be a no-op, got %v, %v", same, err)
		}
		changed := image.SourceBuilderFrom(src).AddTag("new").Build()
		updated, err := repo.UpdateSource(ctx, changed)
		if err != nil || !updated.Equal(changed) {
			t.Fatalf("UpdateSource = %+v, %v", updated, err)
		}
		read, _ := repo.ReadSource(ctx, src.Name)
		if !read.Equal(changed) {
			t.Fatalf("update not stored: %+v", read)
		}
		_, err = repo.UpdateSource(ctx, sourceNamed(7))
		expectKind(t, err, ErrNotFound)
		_, err = repo.UpdateSource(ctx, nil)
		expectKind(t, err, ErrNullInput)

		same2, err := repo.UpdateTarget(ctx, tgt.Clone())
		if err != nil || same2 != nil {
			t.Fatalf("equal target update should be a no-op, got %v, %v", same2, err)
		}
		rerendered := image.TargetBuilderFrom(tgt).Sampler(image.SamplerDDIM).Checkpoint(image.CheckpointSDXL).Build()
		updatedTarget, err := repo.UpdateTarget(ctx, rerendered)
		if err != nil || !updatedTarget.Equal(rerendered) {
			t.Fatalf("UpdateTarget = %+v, %v", updatedTarget, err)
		}
		owner, err := repo.ReadSourceOf(ctx, rerendered)
		if err != nil || owner.Name != src.Name {
			t.Fatalf("update should keep assignment, got %v, %v", owner, err)
		}
		_, err = repo.UpdateTarget(ctx, targetNamed(4, 4))
		expectKind(t, err, ErrNotFound)
	})
}

func TestContractDeleteSourceKeepsTargets(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		populate(t, repo, 2, 2)
		s0 := sourceNamed(0)

		removed, err := repo.DeleteSource(ctx, s0)
		if err != nil || !removed.Equal(s0) {
			t.Fatalf("DeleteSource = %+v, %v", removed, err)
		}
		again, err := repo.DeleteSource(ctx, s0)
		if err != nil || again != nil {
			t.Fatalf("deleting an absent source should be a no-op, got %v, %v", again, err)
		}
		_, err = repo.DeleteSource(ctx, nil)
		expectKind(t, err, ErrNullInput)

		_, err = repo.ReadSource(ctx, s0.Name)
		expectKind(t, err, ErrNotFound)
		_, err = repo.ReadTargets(ctx, s0)
		expectKind(t, err, ErrNotFound)

		orphan := targetNamed(0, 0)
		if _, err := repo.ReadTarget(ctx, orphan.Name); err != nil {
			t.Fatalf("orphaned target should remain readable: %v", err)
		}
		_, err = repo.ReadSourceOf(ctx, orphan)
		expectKind(t, err, ErrNotFound)

		// Re-creating the source starts with an empty list; an equal orphan is adopted.
		if _, err := repo.CreateSource(ctx, s0); err != nil {
			t.Fatal(err)
		}
		adopted, err := repo.CreateTarget(ctx, s0, orphan)
		if err != nil || adopted == nil {
			t.Fatalf("orphan adoption = %v, %v", adopted, err)
		}
		targets, _ := repo.ReadTargets(ctx, s0)
		if len(targets) != 1 || targets[0].Name != orphan.Name {
			t.Fatalf("targets after adoption = %v", targetNames(targets))
		}
		owner, err := repo.ReadSourceOf(ctx, orphan)
		if err != nil || owner.Name != s0.Name {
			t.Fatalf("adopted target owner = %v, %v", owner, err)
		}
		if again, err := repo.CreateTarget(ctx, s0, orphan); err != nil || again != nil {
			t.Fatalf("creating an adopted target again should be a no-op, got %v, %v", again, err)
		}
	})
}

func TestContractDeleteTarget(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		populate(t, repo, 1, 3)
		src := sourceNamed(0)
		middle := targetNamed(0, 1)

		removed, err := repo.DeleteTarget(ctx, middle)
		if err != nil || !removed.Equal(middle) {
			t.Fatalf("DeleteTarget = %+v, %v", removed, err)
		}
		again, err := repo.DeleteTarget(ctx, middle)
		if err != nil || again != nil {
			t.Fatalf("deleting an absent target should be a no-op, got %v, %v", again, err)
		}
		_, err = repo.DeleteTarget(ctx, nil)
		expectKind(t, err, ErrNullInput)

		targets, err := repo.ReadTargets(ctx, src)
		if err != nil {
			t.Fatal(err)
		}
		if got := targetNames(targets); fmt.Sprint(got) != fmt.Sprint([]string{"T#0 of S#0", "T#2 of S#0"}) {
			t.Fatalf("remaining targets = %v", got)
		}
		_, err = repo.ReadTarget(ctx, middle.Name)
		expectKind(t, err, ErrNotFound)
	})
}

func TestContractDeleteTargets(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		populate(t, repo, 2, 3)
		s0 := sourceNamed(0)

		removed, err := repo.DeleteTargets(ctx, s0)
		if err != nil {
			t.Fatal(err)
		}
		if got := targetNames(removed); fmt.Sprint(got) != fmt.Sprint([]string{"T#0 of S#0", "T#1 of S#0", "T#2 of S#0"}) {
			t.Fatalf("removed = %v", got)
		}
		for _, tgt := range removed {
			if _, err := repo.ReadTarget(ctx, tgt.Name); !errors.Is(err, ErrNotFound) {
				t.Fatalf("%s should be gone, got %v", tgt.Name, err)
			}
		}
		left, err := repo.ReadTargets(ctx, s0)
		if err != nil || len(left) != 0 {
			t.Fatalf("source list should be empty, got %v, %v", left, err)
		}
		others, err := repo.ReadTargets(ctx, sourceNamed(1))
		if err != nil || len(others) != 3 {
			t.Fatalf("other source untouched, got %d, %v", len(others), err)
		}

		empty, err := repo.DeleteTargets(ctx, s0)
		if err != nil || len(empty) != 0 {
			t.Fatalf("second DeleteTargets = %v, %v", empty, err)
		}
		_, err = repo.DeleteTargets(ctx, sourceNamed(8))
		expectKind(t, err, ErrNotFound)
		_, err = repo.DeleteTargets(ctx, nil)
		expectKind(t, err, ErrNullInput)
	})
}

func TestContractEndToEndScenario(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		const n, m = 4, 3
		populate(t, repo, n, m)

		sources, err := repo.ReadSources(ctx)
		if err != nil || len(sources) != n {
			t.Fatalf("ReadSources = %d, %v", len(sources), err)
		}
		for i := 0; i < n; i++ {
			targets, err := repo.ReadTargets(ctx, sourceNamed(i))
			if err != nil || len(targets) != m {
				t.Fatalf("S#%d targets = %d, %v", i, len(targets), err)
			}
			for j, tgt := range targets {
				if !tgt.Equal(targetNamed(i, j)) {
					t.Fatalf("S#%d target %d = %+v", i, j, tgt)
				}
			}
		}

		// Moving a target requires deleting it first.
		moving := targetNamed(0, 0)
		_, err = repo.CreateTarget(ctx, sourceNamed(1), moving)
		expectKind(t, err, ErrAlreadyExists)
		if _, err := repo.DeleteTarget(ctx, moving); err != nil {
			t.Fatal(err)
		}
		if _, err := repo.CreateTarget(ctx, sourceNamed(1), moving); err != nil {
			t.Fatalf("reassignment after delete: %v", err)
		}
		owner, err := repo.ReadSourceOf(ctx, moving)
		if err != nil || owner.Name != "S#1" {
			t.Fatalf("owner after move = %v, %v", owner, err)
		}
		targets, _ := repo.ReadTargets(ctx, sourceNamed(1))
		if len(targets) != m+1 || targets[m].Name != moving.Name {
			t.Fatalf("moved target should be appended, got %v", targetNames(targets))
		}
	})
}

func TestContractResetAndSnapshot(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		populate(t, repo, 2, 2)

		snapshotter, ok := repo.(Snapshotter)
		if !ok {
			t.Fatalf("%T should export snapshots", repo)
		}
		snapshot, err := snapshotter.Snapshot(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(snapshot.Sources) != 2 || len(snapshot.Targets) != 4 || len(snapshot.Assignments) != 2 {
			t.Fatalf("unexpected snapshot %+v", snapshot)
		}
		if snapshot.Assignments[0].Source != "S#0" || len(snapshot.Assignments[0].Targets) != 2 {
			t.Fatalf("unexpected first assignment %+v", snapshot.Assignments[0])
		}

		resetter, ok := repo.(Resetter)
		if !ok {
			t.Fatalf("%T should support reset", repo)
		}
		if err := resetter.Reset(ctx); err != nil {
			t.Fatal(err)
		}
		sources, err := repo.ReadSources(ctx)
		if err != nil || len(sources) != 0 {
			t.Fatalf("after reset: %v, %v", sources, err)
		}
		if _, err := repo.ReadTarget(ctx, "T#0 of S#0"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("targets should be gone after reset, got %v", err)
		}
	})
}
