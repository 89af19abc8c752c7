package scanvault

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is() checks
var (
	// ErrKeyStorage is returned when the secure-storage backing the master
	// key is unavailable or the persisted key is corrupt.
	ErrKeyStorage = errors.New("secure key storage failed")

	// ErrMalformedEnvelope is returned when encrypted data does not match
	// any known envelope shape.
	ErrMalformedEnvelope = errors.New("malformed cipher envelope")

	// ErrIntegrityCheckFailed is returned when an authenticated envelope's
	// tag does not verify, or its padding is invalid after a verified
	// decrypt. It indicates tampering or a wrong key; the data must not
	// be used.
	ErrIntegrityCheckFailed = errors.New("integrity check failed")

	// ErrNotFound is returned when a requested page or thumbnail has no
	// backing file.
	ErrNotFound = errors.New("document data not found")

	// ErrSecureDeleteFailed is returned when a secure deletion pass hits
	// an I/O error.
	ErrSecureDeleteFailed = errors.New("secure file deletion failed")

	// ErrInvalidDocumentID is returned when a document ID contains
	// characters that cannot form a safe storage path.
	ErrInvalidDocumentID = errors.New("invalid document ID")

	// ErrInvalidPassphrase is returned when a file keystore cannot be
	// unsealed, either because the passphrase is wrong or the keystore
	// file is corrupt.
	ErrInvalidPassphrase = errors.New("invalid keystore passphrase or corrupt keystore")

	// ErrAwaitTimeout is returned by DecryptFuture.AwaitWithTimeout when
	// the decryption does not complete in time.
	ErrAwaitTimeout = errors.New("decrypt await timed out")
)

// VaultError is implemented by all scanvault errors.
type VaultError interface {
	error
	VaultError() // marker method
}

// KeyManagerError represents a failure to read, write, or decode the
// master key in secure storage. The key manager never retries; the caller
// decides whether the condition is recoverable.
type KeyManagerError struct {
	Op  string // "read", "write", "decode", "generate"
	Err error
}

func (e *KeyManagerError) Error() string {
	return fmt.Sprintf("key manager %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *KeyManagerError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is for sentinel error matching.
func (e *KeyManagerError) Is(target error) bool {
	return target == ErrKeyStorage
}

// VaultError implements the VaultError interface.
func (e *KeyManagerError) VaultError() {}

// EncryptionError represents a structurally invalid envelope: too short,
// not block-aligned, or a legacy envelope whose padding cannot be parsed.
type EncryptionError struct {
	Reason string
}

func (e *EncryptionError) Error() string {
	return fmt.Sprintf("encryption error: %s", e.Reason)
}

// Is implements errors.Is for sentinel error matching.
func (e *EncryptionError) Is(target error) bool {
	return target == ErrMalformedEnvelope
}

// VaultError implements the VaultError interface.
func (e *EncryptionError) VaultError() {}

// IntegrityError indicates tampering or a wrong key. A collaborator
// receiving it must treat the affected document as unreadable; there is no
// fallback or partial-recovery path.
type IntegrityError struct {
	Reason string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity error: %s", e.Reason)
}

// Is implements errors.Is for sentinel error matching.
func (e *IntegrityError) Is(target error) bool {
	return target == ErrIntegrityCheckFailed
}

// VaultError implements the VaultError interface.
func (e *IntegrityError) VaultError() {}

// NotFoundError is returned when a page or thumbnail has no backing file.
type NotFoundError struct {
	DocumentID string
	PageIndex  int
	Kind       string // "page" or "thumbnail"
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d of document %q not found", e.Kind, e.PageIndex, e.DocumentID)
}

// Is implements errors.Is for sentinel error matching.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// VaultError implements the VaultError interface.
func (e *NotFoundError) VaultError() {}

// SecureDeleteError represents an I/O failure while overwriting or
// unlinking a plaintext file. The document store treats these as non-fatal
// during cleanup.
type SecureDeleteError struct {
	Path string
	Err  error
}

func (e *SecureDeleteError) Error() string {
	return fmt.Sprintf("secure delete %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *SecureDeleteError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is for sentinel error matching.
func (e *SecureDeleteError) Is(target error) bool {
	return target == ErrSecureDeleteFailed
}

// VaultError implements the VaultError interface.
func (e *SecureDeleteError) VaultError() {}
