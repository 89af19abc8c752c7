package scanvault

import "sync"

// SecureStorage is the key-value capability KeyManager persists the master
// key through. Implementations are expected to be backed by a
// platform-protected store (OS keychain, hardware-backed keystore); this
// package ships a passphrase-sealed file implementation for hosts without
// one, and an in-memory implementation for tests.
//
// Read reports ok=false when no value exists under key; that is not an
// error.
type SecureStorage interface {
	Read(key string) (value string, ok bool, err error)
	Write(key, value string) error
	Delete(key string) error
}

// MemorySecureStorage is a map-backed SecureStorage for tests and
// ephemeral vaults. Values are lost when the process exits.
type MemorySecureStorage struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemorySecureStorage creates an empty in-memory storage.
func NewMemorySecureStorage() *MemorySecureStorage {
	return &MemorySecureStorage{values: make(map[string]string)}
}

// Read returns the value stored under key, if any.
func (s *MemorySecureStorage) Read(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok, nil
}

// Write stores value under key, replacing any previous value.
func (s *MemorySecureStorage) Write(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

// Delete removes the value stored under key. Deleting a missing key is a
// no-op.
func (s *MemorySecureStorage) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}
