package scanvault

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"sync"
)

// MasterKeySize is the master key length in bytes (AES-256).
const MasterKeySize = 32

// defaultStorageKey is the fixed secure-storage key name the base64-encoded
// master key is persisted under.
const defaultStorageKey = "scanvault.master_key"

// Subkey contexts. Derivation is HMAC-SHA256(masterKey, context), so the
// two subkeys always differ as long as the contexts do.
const (
	// SubkeyEncryption derives the AES-256 encryption key.
	SubkeyEncryption = "enc"
	// SubkeyMAC derives the HMAC-SHA256 authentication key.
	SubkeyMAC = "mac"
)

// DerivedKeys holds the per-operation subkeys. They are recomputed on
// demand and never persisted.
type DerivedKeys struct {
	// Encryption is the AES-256 key derived with the "enc" context.
	Encryption []byte
	// MAC is the HMAC-SHA256 key derived with the "mac" context.
	MAC []byte
}

// KeyManager obtains and persists the master key and derives
// purpose-specific subkeys from it. The master key is generated once,
// persisted base64-encoded through the injected SecureStorage, and is
// immutable for the lifetime of the process.
type KeyManager struct {
	storage    SecureStorage
	storageKey string

	mu     sync.Mutex
	master []byte
}

// KeyManagerOption configures a KeyManager.
type KeyManagerOption func(*KeyManager)

// WithStorageKeyName overrides the secure-storage key name the master key
// is persisted under.
func WithStorageKeyName(name string) KeyManagerOption {
	return func(m *KeyManager) {
		m.storageKey = name
	}
}

// NewKeyManager creates a key manager over the given secure-storage
// capability.
func NewKeyManager(storage SecureStorage, opts ...KeyManagerOption) *KeyManager {
	m := &KeyManager{
		storage:    storage,
		storageKey: defaultStorageKey,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// EnsureKeyInitialized loads the master key from secure storage,
// generating and persisting a fresh one if none exists. It is idempotent;
// once a key is loaded further calls are no-ops. Storage failures surface
// as *KeyManagerError and are never retried automatically.
func (m *KeyManager) EnsureKeyInitialized() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ensureLocked()
}

func (m *KeyManager) ensureLocked() error {
	if m.master != nil {
		return nil
	}

	encoded, ok, err := m.storage.Read(m.storageKey)
	if err != nil {
		return &KeyManagerError{Op: "read", Err: err}
	}

	if ok {
		key, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return &KeyManagerError{Op: "decode", Err: err}
		}
		if len(key) != MasterKeySize {
			return &KeyManagerError{Op: "decode", Err: fmt.Errorf("master key is %d bytes, want %d", len(key), MasterKeySize)}
		}
		m.master = key
		return nil
	}

	key := make([]byte, MasterKeySize)
	if _, err := rand.Read(key); err != nil {
		return &KeyManagerError{Op: "generate", Err: err}
	}
	if err := m.storage.Write(m.storageKey, base64.StdEncoding.EncodeToString(key)); err != nil {
		return &KeyManagerError{Op: "write", Err: err}
	}

	m.master = key
	return nil
}

// MasterKey returns a copy of the 32-byte master key, initializing it if
// absent.
func (m *KeyManager) MasterKey() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ensureLocked(); err != nil {
		return nil, err
	}
	key := make([]byte, MasterKeySize)
	copy(key, m.master)
	return key, nil
}

// DeriveSubkey computes HMAC-SHA256(masterKey, context). The derivation is
// deterministic: the same master key and context always yield the same
// 32-byte subkey, across calls and restarts.
func (m *KeyManager) DeriveSubkey(context string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ensureLocked(); err != nil {
		return nil, err
	}

	mac := hmac.New(sha256.New, m.master)
	mac.Write([]byte(context))
	return mac.Sum(nil), nil
}

// DerivedKeys returns the encryption and MAC subkeys, recomputed from the
// master key. The pair is never cached or persisted.
func (m *KeyManager) DerivedKeys() (DerivedKeys, error) {
	enc, err := m.DeriveSubkey(SubkeyEncryption)
	if err != nil {
		return DerivedKeys{}, err
	}
	mac, err := m.DeriveSubkey(SubkeyMAC)
	if err != nil {
		return DerivedKeys{}, err
	}
	return DerivedKeys{Encryption: enc, MAC: mac}, nil
}
