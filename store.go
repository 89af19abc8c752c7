package scanvault

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/google/uuid"
)

// Kinds of stored blobs.
const (
	kindPage      = "page"
	kindThumbnail = "thumbnail"
)

// documentIDPattern restricts document IDs to characters that form safe
// storage paths on every platform the vault runs on.
var documentIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// tempFile is an in-memory record of a decrypted plaintext file awaiting
// secure destruction.
type tempFile struct {
	path       string
	documentID string
	pageIndex  int
	kind       string
}

// DocumentStore persists and retrieves per-page and per-thumbnail
// encrypted files and owns the registry of decrypted temp files that
// CleanupTempFiles drains.
//
// The store is not internally synchronized for document data: concurrent
// StorePage and decrypt calls for the same (documentID, pageIndex) require
// external serialization by the caller. The temp-file registry is guarded
// so decrypt-to-path calls for different pages may race a cleanup safely.
type DocumentStore struct {
	root    string
	tempDir string
	enc     *EncryptionService
	deleter *SecureFileDeleter
	log     *slog.Logger

	mu   sync.Mutex
	temp []tempFile
}

// StoreOption configures a DocumentStore.
type StoreOption func(*DocumentStore)

// WithTempDir overrides the directory decrypted temp files are created in.
// It must be app-private; the default is <root>/tmp.
func WithTempDir(dir string) StoreOption {
	return func(s *DocumentStore) {
		s.tempDir = dir
	}
}

// WithLogger sets the logger used by the cleanup path. The default
// discards everything.
func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *DocumentStore) {
		s.log = logger
	}
}

// WithSecureFileDeleter sets the deleter CleanupTempFiles drains the
// registry through.
func WithSecureFileDeleter(deleter *SecureFileDeleter) StoreOption {
	return func(s *DocumentStore) {
		s.deleter = deleter
	}
}

// NewDocumentStore creates a store rooted at root, creating the root and
// temp directories if needed.
func NewDocumentStore(root string, enc *EncryptionService, opts ...StoreOption) (*DocumentStore, error) {
	s := &DocumentStore{
		root:    root,
		tempDir: filepath.Join(root, "tmp"),
		enc:     enc,
		deleter: NewSecureFileDeleter(),
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, dir := range []string{s.root, s.tempDir} {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create vault directory: %w", err)
		}
	}
	return s, nil
}

// StorePage encrypts plaintext and writes it to the deterministic path for
// (documentID, pageIndex), overwriting any prior file. The ciphertext is
// assembled fully in memory first, so no file is ever half-written.
func (s *DocumentStore) StorePage(documentID string, pageIndex int, plaintext []byte) (string, error) {
	return s.store(documentID, pageIndex, kindPage, plaintext)
}

// StoreThumbnail is StorePage for the page's thumbnail envelope.
func (s *DocumentStore) StoreThumbnail(documentID string, pageIndex int, plaintext []byte) (string, error) {
	return s.store(documentID, pageIndex, kindThumbnail, plaintext)
}

// DecryptedPageBytes reads, verifies, and decrypts a page entirely in
// memory, for display and preview use. No plaintext touches the
// filesystem.
func (s *DocumentStore) DecryptedPageBytes(documentID string, pageIndex int) ([]byte, error) {
	return s.decryptedBytes(documentID, pageIndex, kindPage)
}

// DecryptedThumbnailBytes is DecryptedPageBytes for the thumbnail
// envelope.
func (s *DocumentStore) DecryptedThumbnailBytes(documentID string, pageIndex int) ([]byte, error) {
	return s.decryptedBytes(documentID, pageIndex, kindThumbnail)
}

// DecryptedPagePath decrypts a page into a fresh temp file in the store's
// app-private temp directory, registers the file for secure destruction,
// and returns its path — for collaborators that require a filesystem path
// (export, OCR). The file exists until CleanupTempFiles runs; callers must
// not cache the path across a cleanup boundary.
func (s *DocumentStore) DecryptedPagePath(documentID string, pageIndex int) (string, error) {
	return s.decryptedPath(documentID, pageIndex, kindPage)
}

// DecryptedThumbnailPath is DecryptedPagePath for the thumbnail envelope.
func (s *DocumentStore) DecryptedThumbnailPath(documentID string, pageIndex int) (string, error) {
	return s.decryptedPath(documentID, pageIndex, kindThumbnail)
}

// HasPage reports whether a page has a backing ciphertext file.
func (s *DocumentStore) HasPage(documentID string, pageIndex int) bool {
	path, err := s.blobPath(documentID, pageIndex, kindPage)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// DeletePage removes the ciphertext files for a page and, if present, its
// thumbnail. A missing page is *NotFoundError.
func (s *DocumentStore) DeletePage(documentID string, pageIndex int) error {
	pagePath, err := s.blobPath(documentID, pageIndex, kindPage)
	if err != nil {
		return err
	}
	if err := os.Remove(pagePath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &NotFoundError{DocumentID: documentID, PageIndex: pageIndex, Kind: kindPage}
		}
		return fmt.Errorf("delete page: %w", err)
	}

	thumbPath, err := s.blobPath(documentID, pageIndex, kindThumbnail)
	if err != nil {
		return err
	}
	if err := os.Remove(thumbPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete thumbnail: %w", err)
	}
	return nil
}

// DeleteDocument removes every stored page and thumbnail of a document.
// Deleting a document with no stored data is a no-op.
func (s *DocumentStore) DeleteDocument(documentID string) error {
	dir, err := s.documentDir(documentID)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

// RewriteLegacy migrates a page's legacy (unauthenticated) envelope to the
// authenticated format in place. Pages already in the authenticated format
// are left untouched. The replacement is written fully before renaming
// over the old file.
func (s *DocumentStore) RewriteLegacy(documentID string, pageIndex int) error {
	path, err := s.blobPath(documentID, pageIndex, kindPage)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &NotFoundError{DocumentID: documentID, PageIndex: pageIndex, Kind: kindPage}
		}
		return fmt.Errorf("read page: %w", err)
	}

	if !IsLegacy(data) {
		return nil
	}

	plaintext, err := s.enc.Decrypt(data)
	if err != nil {
		return err
	}
	reencrypted, err := s.enc.Encrypt(plaintext)
	if err != nil {
		return err
	}
	return writeFileAtomic(path, reencrypted)
}

// CleanupTempFiles drains the temp-file registry, securely destroying
// every registered plaintext file. It is idempotent; a second call with an
// empty registry performs no deletions. Individual deletion failures are
// logged and swallowed — one failing file never blocks the rest and never
// propagates to the caller.
func (s *DocumentStore) CleanupTempFiles() {
	s.mu.Lock()
	pending := s.temp
	s.temp = nil
	s.mu.Unlock()

	for _, tf := range pending {
		deleted, err := s.deleter.SecureDeleteFile(tf.path)
		switch {
		case err != nil:
			s.log.Warn("secure deletion failed",
				slog.String("path", tf.path),
				slog.String("document", tf.documentID),
				slog.Int("page", tf.pageIndex),
				slog.String("kind", tf.kind),
				slog.Any("error", err))
		case !deleted:
			s.log.Debug("temp file already gone", slog.String("path", tf.path))
		}
	}
}

// TempFileCount returns the number of registered temp files awaiting
// cleanup.
func (s *DocumentStore) TempFileCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.temp)
}

func (s *DocumentStore) store(documentID string, pageIndex int, kind string, plaintext []byte) (string, error) {
	path, err := s.blobPath(documentID, pageIndex, kind)
	if err != nil {
		return "", err
	}

	data, err := s.enc.Encrypt(plaintext)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", fmt.Errorf("create document directory: %w", err)
	}
	if err := writeFileAtomic(path, data); err != nil {
		return "", err
	}
	return path, nil
}

func (s *DocumentStore) decryptedBytes(documentID string, pageIndex int, kind string) ([]byte, error) {
	path, err := s.blobPath(documentID, pageIndex, kind)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &NotFoundError{DocumentID: documentID, PageIndex: pageIndex, Kind: kind}
		}
		return nil, fmt.Errorf("read %s: %w", kind, err)
	}

	return s.enc.Decrypt(data)
}

func (s *DocumentStore) decryptedPath(documentID string, pageIndex int, kind string) (string, error) {
	plaintext, err := s.decryptedBytes(documentID, pageIndex, kind)
	if err != nil {
		return "", err
	}

	path := filepath.Join(s.tempDir, fmt.Sprintf("%s-%s", kind, uuid.NewString()))
	if err := os.WriteFile(path, plaintext, 0o600); err != nil {
		return "", fmt.Errorf("write temp %s: %w", kind, err)
	}

	s.mu.Lock()
	s.temp = append(s.temp, tempFile{
		path:       path,
		documentID: documentID,
		pageIndex:  pageIndex,
		kind:       kind,
	})
	s.mu.Unlock()

	return path, nil
}

func (s *DocumentStore) documentDir(documentID string) (string, error) {
	if !documentIDPattern.MatchString(documentID) {
		return "", fmt.Errorf("%w: %q", ErrInvalidDocumentID, documentID)
	}
	return filepath.Join(s.root, "documents", documentID), nil
}

func (s *DocumentStore) blobPath(documentID string, pageIndex int, kind string) (string, error) {
	dir, err := s.documentDir(documentID)
	if err != nil {
		return "", err
	}
	if pageIndex < 0 {
		return "", fmt.Errorf("%w: negative page index %d", ErrInvalidDocumentID, pageIndex)
	}
	return filepath.Join(dir, fmt.Sprintf("%s_%04d.enc", kind, pageIndex)), nil
}

// writeFileAtomic writes data to a temp file in path's directory and
// renames it into place, so readers never observe a partial envelope.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".blob-*")
	if err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}
