package imagescan

import (
	"context"
	stdimage "image"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"inpaint/internal/testsupport"
)

func writeJPEG(t *testing.T, path string, width, height int) {
	t.Helper()
	img := stdimage.NewGray(stdimage.Rect(0, 0, width, height))
	file, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()
	if err := jpeg.Encode(file, img, nil); err != nil {
		t.Fatal(err)
	}
}

func TestScanReadsHeadersInPathOrder(t *testing.T) {
	dir := t.TempDir()
	testsupport.WritePNG(t, filepath.Join(dir, "b.png"), 3, 2)
	writeJPEG(t, filepath.Join(dir, "a.JPG"), 8, 5)
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(dir, "nested.png"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "broken.jpeg"), []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}

	result, err := Scan(context.Background(), dir, Options{Workers: 2})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(result.Images) != 2 {
		t.Fatalf("expected 2 images, got %+v", result.Images)
	}
	first, second := result.Images[0], result.Images[1]
	if filepath.Base(first.Path) != "a.JPG" || first.Width != 8 || first.Height != 5 || first.Format != "jpeg" {
		t.Fatalf("unexpected first entry %+v", first)
	}
	if filepath.Base(second.Path) != "b.png" || second.Width != 3 || second.Height != 2 || second.Format != "png" {
		t.Fatalf("unexpected second entry %+v", second)
	}
	if len(result.Failures) != 1 || filepath.Base(result.Failures[0].Path) != "broken.jpeg" {
		t.Fatalf("expected broken.jpeg failure, got %+v", result.Failures)
	}
}

func TestScanMissingDirectory(t *testing.T) {
	if _, err := Scan(context.Background(), filepath.Join(t.TempDir(), "missing"), Options{}); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestScanHonorsCancellation(t *testing.T) {
	dir := t.TempDir()
	testsupport.WritePNG(t, filepath.Join(dir, "a.png"), 1, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Scan(ctx, dir, Options{}); err == nil {
		t.Fatal("expected cancellation error")
	}
}

func TestIsImage(t *testing.T) {
	for path, want := range map[string]bool{
		"x.png": true, "x.JPEG": true, "x.jpg": true, "x.gif": false, "png": false,
	} {
		if got := IsImage(path); got != want {
			t.Fatalf("IsImage(%q) = %v, want %v", path, got, want)
		}
	}
}
