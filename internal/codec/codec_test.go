package codec

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"inpaint/internal/image"
	"inpaint/internal/repository"
)

func seededRepository(t *testing.T) *repository.MemoryRepository {
	t.Helper()
	ctx := context.Background()
	repo := repository.NewMemoryRepository()
	beach := image.NewSourceBuilder("beach.png").Description("sunset").Width(512).Height(512).Tags("sea", "sky").Build()
	city := image.NewSourceBuilder("city.png").Width(640).Height(480).Build()
	for _, src := range []*image.Source{beach, city} {
		if _, err := repo.CreateSource(ctx, src); err != nil {
			t.Fatal(err)
		}
	}
	for _, name := range []string{"beach-2.png", "beach-1.png"} {
		tgt := image.NewTargetBuilder(name).Width(512).Height(512).Rating(3).Sampler(image.SamplerDDIM).Build()
		if _, err := repo.CreateTarget(ctx, beach, tgt); err != nil {
			t.Fatal(err)
		}
	}
	return repo
}

func TestExportKeepsAssignmentOrder(t *testing.T) {
	doc, err := Export(context.Background(), seededRepository(t))
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.Sources) != 2 || doc.Sources[0].Name != "beach.png" || doc.Sources[1].Name != "city.png" {
		t.Fatalf("unexpected sources %+v", doc.Sources)
	}
	targets := doc.Sources[0].Targets
	if len(targets) != 2 || targets[0].Name != "beach-2.png" || targets[1].Name != "beach-1.png" {
		t.Fatalf("targets out of order: %+v", targets)
	}
	if doc.Sources[1].Targets == nil {
		t.Fatal("empty target list should encode as []")
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	ctx := context.Background()
	doc, err := Export(ctx, seededRepository(t))
	if err != nil {
		t.Fatal(err)
	}
	for _, format := range []Format{FormatJSON, FormatYAML} {
		t.Run(string(format), func(t *testing.T) {
			var buf bytes.Buffer
			if err := Encode(&buf, doc, format); err != nil {
				t.Fatal(err)
			}
			decoded, err := Decode(&buf, format)
			if err != nil {
				t.Fatal(err)
			}

			fresh := repository.NewMemoryRepository()
			stats, err := Import(ctx, fresh, decoded, ImportOptions{})
			if err != nil {
				t.Fatal(err)
			}
			if stats.SourcesCreated != 2 || stats.TargetsCreated != 2 {
				t.Fatalf("stats = %+v", stats)
			}
			again, err := Export(ctx, fresh)
			if err != nil {
				t.Fatal(err)
			}
			var want, got bytes.Buffer
			_ = Encode(&want, doc, FormatJSON)
			_ = Encode(&got, again, FormatJSON)
			if want.String() != got.String() {
				t.Fatalf("round trip changed the catalog:\nwant %s\ngot  %s", want.String(), got.String())
			}
		})
	}
}

func TestImportIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := seededRepository(t)
	doc, err := Export(ctx, repo)
	if err != nil {
		t.Fatal(err)
	}
	stats, err := Import(ctx, repo, doc, ImportOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if stats.Unchanged != 4 || stats.SourcesCreated+stats.TargetsCreated != 0 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestImportConflicts(t *testing.T) {
	ctx := context.Background()
	repo := seededRepository(t)
	doc, err := Export(ctx, repo)
	if err != nil {
		t.Fatal(err)
	}
	doc.Sources[0].Description = "changed"
	doc.Sources[0].Targets[1].Rating = 5

	if _, err := Import(ctx, repo, doc, ImportOptions{}); !errors.Is(err, repository.ErrAlreadyExists) {
		t.Fatalf("expected conflict, got %v", err)
	}
	stats, err := Import(ctx, repo, doc, ImportOptions{Replace: true})
	if err != nil {
		t.Fatal(err)
	}
	if stats.SourcesUpdated != 1 || stats.TargetsUpdated != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	stored, _ := repo.ReadTarget(ctx, "beach-1.png")
	if stored.Rating != 5 {
		t.Fatalf("replace did not update target: %+v", stored)
	}

	moved := Document{Sources: []SourceEntry{{
		Source:  *image.NewSourceBuilder("city.png").Width(640).Height(480).Build(),
		Targets: []image.Target{*stored},
	}}}
	if _, err := Import(ctx, repo, moved, ImportOptions{Replace: true}); !errors.Is(err, repository.ErrAlreadyExists) {
		t.Fatalf("target owned elsewhere must be rejected, got %v", err)
	}
}

func TestDecodeYAMLDefaultsAndStrictness(t *testing.T) {
	input := `
sources:
  - name: a.png
    width: 4
    height: 4
    targets:
      - name: a-1.png
        width: 4
        height: 4
`
	doc, err := Decode(strings.NewReader(input), FormatYAML)
	if err != nil {
		t.Fatal(err)
	}
	src := doc.Sources[0]
	if src.Tags == nil || src.Targets[0].Sampler != image.DefaultSampler || src.Targets[0].Checkpoint != image.DefaultCheckpoint {
		t.Fatalf("defaults not applied: %+v", src)
	}

	if _, err := Decode(strings.NewReader("sources:\n  - name: a\n    colour: red\n"), FormatYAML); err == nil {
		t.Fatal("unknown yaml field should be rejected")
	}
	if _, err := Decode(strings.NewReader(`{"sources":[],"extra":1}`), FormatJSON); err == nil {
		t.Fatal("unknown json field should be rejected")
	}
}

func TestFormats(t *testing.T) {
	if f, err := ParseFormat("YML"); err != nil || f != FormatYAML {
		t.Fatalf("ParseFormat = %q, %v", f, err)
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Fatal("expected error for xml")
	}
	if FormatForPath("out.yaml") != FormatYAML || FormatForPath("out.txt") != FormatJSON {
		t.Fatal("FormatForPath picked the wrong format")
	}
}
