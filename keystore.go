package scanvault

import (
	"bytes"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// File keystore format:
//
//	magic(4) "SVKS" || version(1) || salt(16) || nonce(24) || sealed payload
//
// The payload is a JSON map of storage keys to values, sealed with
// XChaCha20-Poly1305 under an Argon2id-derived key. Salt and nonce are
// regenerated on every write.
var keystoreMagic = []byte{'S', 'V', 'K', 'S'}

const (
	keystoreVersion   = 1
	keystoreSaltSize  = 16
	keystoreHeaderLen = len("SVKS") + 1 + keystoreSaltSize + chacha20poly1305.NonceSizeX
)

// Argon2id parameters for the keystore sealing key.
const (
	keystoreArgonTime    = 3
	keystoreArgonMemory  = 64 * 1024
	keystoreArgonThreads = 4
)

// FileSecureStorage is a SecureStorage backed by a single passphrase-sealed
// file, for hosts without a platform keystore. Every write reseals the
// whole file with a fresh salt and nonce and replaces it atomically.
type FileSecureStorage struct {
	path       string
	passphrase []byte

	mu sync.Mutex
}

// NewFileSecureStorage opens or prepares a keystore file at path. The file
// is created lazily on first Write; a missing file reads as empty. The
// passphrase is retained for resealing and must not be mutated by the
// caller.
func NewFileSecureStorage(path string, passphrase []byte) (*FileSecureStorage, error) {
	if len(passphrase) == 0 {
		return nil, fmt.Errorf("%w: empty passphrase", ErrInvalidPassphrase)
	}

	s := &FileSecureStorage{path: path, passphrase: passphrase}

	// Fail fast on a wrong passphrase instead of at first vault use.
	if _, err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Read returns the value stored under key, if any.
func (s *FileSecureStorage) Read(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return "", false, err
	}
	v, ok := values[key]
	return v, ok, nil
}

// Write stores value under key and reseals the keystore file.
func (s *FileSecureStorage) Write(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return err
	}
	values[key] = value
	return s.save(values)
}

// Delete removes the value stored under key. Deleting a missing key is a
// no-op and does not rewrite the file.
func (s *FileSecureStorage) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := values[key]; !ok {
		return nil
	}
	delete(values, key)
	return s.save(values)
}

func (s *FileSecureStorage) load() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return make(map[string]string), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read keystore: %w", err)
	}

	if len(data) < keystoreHeaderLen || !bytes.Equal(data[:4], keystoreMagic) {
		return nil, fmt.Errorf("%w: bad header", ErrInvalidPassphrase)
	}
	if data[4] != keystoreVersion {
		return nil, fmt.Errorf("%w: unsupported keystore version %d", ErrInvalidPassphrase, data[4])
	}

	salt := data[5 : 5+keystoreSaltSize]
	nonce := data[5+keystoreSaltSize : keystoreHeaderLen]
	sealed := data[keystoreHeaderLen:]

	aead, err := chacha20poly1305.NewX(s.sealingKey(salt))
	if err != nil {
		return nil, fmt.Errorf("open keystore: %w", err)
	}

	plaintext, err := aead.Open(nil, nonce, sealed, keystoreMagic)
	if err != nil {
		return nil, fmt.Errorf("%w: unseal failed", ErrInvalidPassphrase)
	}

	values := make(map[string]string)
	if err := json.Unmarshal(plaintext, &values); err != nil {
		return nil, fmt.Errorf("%w: corrupt payload", ErrInvalidPassphrase)
	}
	return values, nil
}

func (s *FileSecureStorage) save(values map[string]string) error {
	plaintext, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("encode keystore: %w", err)
	}

	salt := make([]byte, keystoreSaltSize)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("keystore salt: %w", err)
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("keystore nonce: %w", err)
	}

	aead, err := chacha20poly1305.NewX(s.sealingKey(salt))
	if err != nil {
		return fmt.Errorf("seal keystore: %w", err)
	}

	out := make([]byte, 0, keystoreHeaderLen+len(plaintext)+aead.Overhead())
	out = append(out, keystoreMagic...)
	out = append(out, keystoreVersion)
	out = append(out, salt...)
	out = append(out, nonce...)
	out = aead.Seal(out, nonce, plaintext, keystoreMagic)

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".keystore-*")
	if err != nil {
		return fmt.Errorf("write keystore: %w", err)
	}
	if _, err := tmp.Write(out); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write keystore: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write keystore: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write keystore: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write keystore: %w", err)
	}
	return nil
}

func (s *FileSecureStorage) sealingKey(salt []byte) []byte {
	return argon2.IDKey(s.passphrase, salt, keystoreArgonTime, keystoreArgonMemory, keystoreArgonThreads, chacha20poly1305.KeySize)
}
