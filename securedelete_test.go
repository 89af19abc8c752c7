package scanvault

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeTempFile(t *testing.T, name string, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, make([]byte, size), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestSecureDeleteFile_DestroysFile(t *testing.T) {
	t.Parallel()
	d := NewSecureFileDeleter()

	tests := []struct {
		name string
		size int
	}{
		{"empty file", 0},
		{"small file", 100},
		{"chunk boundary", shredChunkSize},
		{"multi-chunk", shredChunkSize*2 + 17},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTempFile(t, "victim", tt.size)

			deleted, err := d.SecureDeleteFile(path)
			if err != nil {
				t.Fatalf("SecureDeleteFile() error = %v", err)
			}
			if !deleted {
				t.Fatal("SecureDeleteFile() = false, want true")
			}
			if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
				t.Error("file still exists after secure deletion")
			}
		})
	}
}

func TestSecureDeleteFile_MissingIsNoOp(t *testing.T) {
	t.Parallel()
	d := NewSecureFileDeleter()

	deleted, err := d.SecureDeleteFile(filepath.Join(t.TempDir(), "never-existed"))
	if err != nil {
		t.Fatalf("SecureDeleteFile() error = %v", err)
	}
	if deleted {
		t.Error("SecureDeleteFile() = true for a missing file")
	}
}

func TestSecureDeleteFile_Directory(t *testing.T) {
	t.Parallel()
	d := NewSecureFileDeleter()

	deleted, err := d.SecureDeleteFile(t.TempDir())
	if deleted {
		t.Error("SecureDeleteFile() = true for a directory")
	}
	if !errors.Is(err, ErrSecureDeleteFailed) {
		t.Errorf("error = %v, want ErrSecureDeleteFailed", err)
	}

	var delErr *SecureDeleteError
	if !errors.As(err, &delErr) {
		t.Errorf("error %v is not *SecureDeleteError", err)
	}
}

func TestSecureDeleteFiles_ContinuesPastFailures(t *testing.T) {
	t.Parallel()
	d := NewSecureFileDeleter()

	existing := writeTempFile(t, "a", 64)
	missing := filepath.Join(t.TempDir(), "missing")
	dir := t.TempDir()
	alsoExisting := writeTempFile(t, "b", 64)

	results := d.SecureDeleteFiles([]string{existing, missing, dir, alsoExisting})

	want := map[string]bool{existing: true, missing: false, dir: false, alsoExisting: true}
	for path, wantDeleted := range want {
		if results[path] != wantDeleted {
			t.Errorf("results[%s] = %v, want %v", path, results[path], wantDeleted)
		}
	}
	if _, err := os.Stat(alsoExisting); !errors.Is(err, os.ErrNotExist) {
		t.Error("later file survived an earlier failure")
	}
}

func TestWithDeletePasses(t *testing.T) {
	t.Parallel()
	if d := NewSecureFileDeleter(WithDeletePasses(5)); d.passes != 5 {
		t.Errorf("passes = %d, want 5", d.passes)
	}
	// Below the minimum stays at the two-pass default.
	if d := NewSecureFileDeleter(WithDeletePasses(1)); d.passes != defaultDeletePasses {
		t.Errorf("passes = %d, want %d", d.passes, defaultDeletePasses)
	}
}
