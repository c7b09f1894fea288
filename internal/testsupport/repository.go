package testsupport

import (
	"testing"

	"inpaint/internal/repository"
)

// MustOpenFile opens a FileRepository in dir and closes it when the test ends.
func MustOpenFile(t testing.TB, dir string) *repository.FileRepository {
	t.Helper()

	repo, err := repository.OpenFileRepository(dir, repository.FileOptions{})
	if err != nil {
		t.Fatalf("OpenFileRepository: %v", err)
	}
	t.Cleanup(func() {
		_ = repo.Close()
	})
	return repo
}

// MustOpenSQLite opens a SQLiteRepository in dir and closes it when the test
// ends.
func MustOpenSQLite(t testing.TB, dir string) *repository.SQLiteRepository {
	t.Helper()

	repo, err := repository.OpenSQLiteRepository(dir, repository.SQLiteOptions{})
	if err != nil {
		t.Fatalf("OpenSQLiteRepository: %v", err)
	}
	t.Cleanup(func() {
		_ = repo.Close()
	})
	return repo
}
