package scanvault

import (
	"bytes"
	"errors"
	"os"
	"testing"
)

func newTestStore(t *testing.T) *DocumentStore {
	t.Helper()
	store, err := NewDocumentStore(t.TempDir(), newTestService(t))
	if err != nil {
		t.Fatal(err)
	}
	return store
}

func TestStorePage_RoundTrip(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	plaintext := []byte("scanned page pixels")

	path, err := store.StorePage("doc-1", 0, plaintext)
	if err != nil {
		t.Fatalf("StorePage() error = %v", err)
	}

	// Only ciphertext may reach disk.
	onDisk, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Contains(onDisk, plaintext) {
		t.Error("plaintext found inside the stored envelope")
	}

	got, err := store.DecryptedPageBytes("doc-1", 0)
	if err != nil {
		t.Fatalf("DecryptedPageBytes() error = %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Error("round trip mismatch")
	}
}

func TestStorePage_OverwritesPrior(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	first, err := store.StorePage("doc-1", 3, []byte("first scan"))
	if err != nil {
		t.Fatal(err)
	}
	second, err := store.StorePage("doc-1", 3, []byte("rescan"))
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Fatalf("path changed on overwrite: %q then %q", first, second)
	}

	got, err := store.DecryptedPageBytes("doc-1", 3)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, []byte("rescan")) {
		t.Errorf("DecryptedPageBytes() = %q, want %q", got, "rescan")
	}
}

func TestStoreThumbnail_SeparateFromPage(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	pagePath, err := store.StorePage("doc-1", 0, []byte("full page"))
	if err != nil {
		t.Fatal(err)
	}
	thumbPath, err := store.StoreThumbnail("doc-1", 0, []byte("tiny preview"))
	if err != nil {
		t.Fatal(err)
	}
	if pagePath == thumbPath {
		t.Fatal("page and thumbnail share a path")
	}

	page, err := store.DecryptedPageBytes("doc-1", 0)
	if err != nil {
		t.Fatal(err)
	}
	thumb, err := store.DecryptedThumbnailBytes("doc-1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(page, []byte("full page")) || !bytes.Equal(thumb, []byte("tiny preview")) {
		t.Error("page/thumbnail round trip mismatch")
	}
}

func TestDecryptedPageBytes_NotFound(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	_, err := store.DecryptedPageBytes("doc-1", 7)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}

	var nfErr *NotFoundError
	if !errors.As(err, &nfErr) {
		t.Fatalf("error %v is not *NotFoundError", err)
	}
	if nfErr.DocumentID != "doc-1" || nfErr.PageIndex != 7 || nfErr.Kind != "page" {
		t.Errorf("NotFoundError = %+v", nfErr)
	}
}

func TestDecryptedPageBytes_TamperedEnvelopePropagates(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	path, err := store.StorePage("doc-1", 0, []byte("original content"))
	if err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	data[20] ^= 0x01
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	// The integrity error must pass through unchanged, never masked.
	if _, err := store.DecryptedPageBytes("doc-1", 0); !errors.Is(err, ErrIntegrityCheckFailed) {
		t.Errorf("error = %v, want ErrIntegrityCheckFailed", err)
	}
}

func TestDecryptedPagePath_TempLifecycle(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	plaintext := []byte("page for OCR export")

	if _, err := store.StorePage("doc-1", 0, plaintext); err != nil {
		t.Fatal(err)
	}

	path, err := store.DecryptedPagePath("doc-1", 0)
	if err != nil {
		t.Fatalf("DecryptedPagePath() error = %v", err)
	}

	onDisk, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(onDisk, plaintext) {
		t.Error("temp file content mismatch")
	}
	if store.TempFileCount() != 1 {
		t.Errorf("TempFileCount() = %d, want 1", store.TempFileCount())
	}

	store.CleanupTempFiles()

	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Error("temp file survived cleanup")
	}
	if store.TempFileCount() != 0 {
		t.Errorf("TempFileCount() after cleanup = %d, want 0", store.TempFileCount())
	}
}

// Two decrypt-to-path calls around a cleanup return distinct paths, and
// the first no longer exists afterward.
func TestDecryptedPagePath_FreshPathAfterCleanup(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	if _, err := store.StorePage("doc-1", 0, []byte("page")); err != nil {
		t.Fatal(err)
	}

	first, err := store.DecryptedPagePath("doc-1", 0)
	if err != nil {
		t.Fatal(err)
	}

	store.CleanupTempFiles()

	second, err := store.DecryptedPagePath("doc-1", 0)
	if err != nil {
		t.Fatal(err)
	}

	if first == second {
		t.Error("paths must be distinct across a cleanup boundary")
	}
	if _, err := os.Stat(first); !errors.Is(err, os.ErrNotExist) {
		t.Error("first path still exists after cleanup")
	}
	if _, err := os.Stat(second); err != nil {
		t.Error("second path should exist until the next cleanup")
	}
}

func TestCleanupTempFiles_Idempotent(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	// Cleanup on an empty registry completes without error.
	store.CleanupTempFiles()

	if _, err := store.StorePage("doc-1", 0, []byte("page")); err != nil {
		t.Fatal(err)
	}
	if _, err := store.DecryptedPagePath("doc-1", 0); err != nil {
		t.Fatal(err)
	}

	store.CleanupTempFiles()
	store.CleanupTempFiles()

	if store.TempFileCount() != 0 {
		t.Errorf("TempFileCount() = %d, want 0", store.TempFileCount())
	}
}

func TestCleanupTempFiles_SwallowsMissingFiles(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	if _, err := store.StorePage("doc-1", 0, []byte("page")); err != nil {
		t.Fatal(err)
	}
	path, err := store.DecryptedPagePath("doc-1", 0)
	if err != nil {
		t.Fatal(err)
	}

	// A collaborator removed the temp file behind our back; cleanup must
	// not panic or fail.
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	store.CleanupTempFiles()

	if store.TempFileCount() != 0 {
		t.Errorf("TempFileCount() = %d, want 0", store.TempFileCount())
	}
}

func TestDocumentStore_InvalidDocumentID(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	tests := []string{"", "../escape", "a/b", ".hidden", "null\x00byte"}
	for _, id := range tests {
		if _, err := store.StorePage(id, 0, []byte("x")); !errors.Is(err, ErrInvalidDocumentID) {
			t.Errorf("StorePage(%q) error = %v, want ErrInvalidDocumentID", id, err)
		}
	}

	if _, err := store.StorePage("ok", -1, []byte("x")); !errors.Is(err, ErrInvalidDocumentID) {
		t.Errorf("negative page index error = %v, want ErrInvalidDocumentID", err)
	}
}

func TestHasPage(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	if store.HasPage("doc-1", 0) {
		t.Error("HasPage() = true before storing")
	}
	if _, err := store.StorePage("doc-1", 0, []byte("page")); err != nil {
		t.Fatal(err)
	}
	if !store.HasPage("doc-1", 0) {
		t.Error("HasPage() = false after storing")
	}
}

func TestDeletePage(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	if _, err := store.StorePage("doc-1", 0, []byte("page")); err != nil {
		t.Fatal(err)
	}
	if _, err := store.StoreThumbnail("doc-1", 0, []byte("thumb")); err != nil {
		t.Fatal(err)
	}

	if err := store.DeletePage("doc-1", 0); err != nil {
		t.Fatalf("DeletePage() error = %v", err)
	}
	if store.HasPage("doc-1", 0) {
		t.Error("page still present after DeletePage")
	}
	if _, err := store.DecryptedThumbnailBytes("doc-1", 0); !errors.Is(err, ErrNotFound) {
		t.Error("thumbnail still present after DeletePage")
	}

	if err := store.DeletePage("doc-1", 0); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeletePage() of missing page error = %v, want ErrNotFound", err)
	}
}

func TestDeleteDocument(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	for page := 0; page < 3; page++ {
		if _, err := store.StorePage("doc-1", page, []byte("page")); err != nil {
			t.Fatal(err)
		}
	}

	if err := store.DeleteDocument("doc-1"); err != nil {
		t.Fatalf("DeleteDocument() error = %v", err)
	}
	for page := 0; page < 3; page++ {
		if store.HasPage("doc-1", page) {
			t.Errorf("page %d survived DeleteDocument", page)
		}
	}

	// A document with no stored data is a no-op.
	if err := store.DeleteDocument("doc-1"); err != nil {
		t.Errorf("DeleteDocument() of absent document error = %v", err)
	}
}

func TestRewriteLegacy(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	plaintext := []byte("pre-auth era page")

	path, err := store.StorePage("doc-1", 0, plaintext)
	if err != nil {
		t.Fatal(err)
	}

	// Rewrite the file into the legacy shape by stripping its tag.
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	legacy := data[:len(data)-32]
	if !IsLegacy(legacy) {
		t.Fatal("stripped envelope should be legacy-shaped")
	}
	if err := os.WriteFile(path, legacy, 0o600); err != nil {
		t.Fatal(err)
	}

	if err := store.RewriteLegacy("doc-1", 0); err != nil {
		t.Fatalf("RewriteLegacy() error = %v", err)
	}

	migrated, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if IsLegacy(migrated) {
		t.Error("envelope still legacy-shaped after migration")
	}
	got, err := store.DecryptedPageBytes("doc-1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Error("plaintext changed during migration")
	}

	// Already-authenticated pages are left untouched.
	before, _ := os.ReadFile(path)
	if err := store.RewriteLegacy("doc-1", 0); err != nil {
		t.Fatal(err)
	}
	after, _ := os.ReadFile(path)
	if !bytes.Equal(before, after) {
		t.Error("RewriteLegacy rewrote an authenticated envelope")
	}

	if err := store.RewriteLegacy("doc-1", 9); !errors.Is(err, ErrNotFound) {
		t.Errorf("RewriteLegacy() of missing page error = %v, want ErrNotFound", err)
	}
}

func TestWithTempDir(t *testing.T) {
	t.Parallel()
	tempDir := t.TempDir()
	store, err := NewDocumentStore(t.TempDir(), newTestService(t), WithTempDir(tempDir))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := store.StorePage("doc-1", 0, []byte("page")); err != nil {
		t.Fatal(err)
	}
	path, err := store.DecryptedPagePath("doc-1", 0)
	if err != nil {
		t.Fatal(err)
	}

	if !bytes.HasPrefix([]byte(path), []byte(tempDir)) {
		t.Errorf("temp file %q not under configured dir %q", path, tempDir)
	}
}
