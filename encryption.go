package scanvault

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"github.com/scanvault/vault-go/internal/envelope"
)

// EncryptionService performs authenticated encryption of opaque byte
// buffers using subkeys derived by a KeyManager.
//
// Envelopes are encrypt-then-MAC: the HMAC-SHA256 tag covers
// IV || ciphertext and is verified in constant time BEFORE any decryption
// is attempted, so a tampered envelope is rejected without ever running
// AES on attacker-controlled input.
//
// Encrypt and Decrypt perform no file I/O and have no side effects beyond
// their return value; they are safe to run concurrently for different
// inputs.
type EncryptionService struct {
	keys *KeyManager
}

// NewEncryptionService creates an encryption service over the given key
// manager.
func NewEncryptionService(keys *KeyManager) *EncryptionService {
	return &EncryptionService{keys: keys}
}

// Encrypt encrypts plaintext into an authenticated envelope:
//
//	IV(16) || AES-256-CBC(PKCS#7(plaintext)) || HMAC-SHA256(IV||ciphertext)
//
// A fresh random IV is generated per call. The authenticated shape is the
// only one Encrypt ever produces.
func (s *EncryptionService) Encrypt(plaintext []byte) ([]byte, error) {
	keys, err := s.keys.DerivedKeys()
	if err != nil {
		return nil, err
	}

	iv := make([]byte, envelope.IVSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("generate IV: %w", err)
	}

	ciphertext, err := envelope.EncryptCBC(keys.Encryption, iv, envelope.Pad(plaintext))
	if err != nil {
		return nil, err
	}

	tag := authenticationTag(keys.MAC, iv, ciphertext)
	return envelope.Join(iv, ciphertext, tag), nil
}

// Decrypt verifies and decrypts an envelope produced by Encrypt, or a
// legacy envelope written before authentication existed.
//
// The shape is classified by length before any cryptography runs. On the
// authenticated path the tag is recomputed and compared in constant time;
// a mismatch returns *IntegrityError and decryption is never attempted.
// The legacy path exists solely to read pre-authentication data and offers
// no tamper detection.
func (s *EncryptionService) Decrypt(data []byte) ([]byte, error) {
	if len(data) < envelope.MinSize {
		return nil, &EncryptionError{Reason: "data too short"}
	}

	format, err := envelope.Classify(len(data))
	if err != nil {
		return nil, &EncryptionError{Reason: err.Error()}
	}

	parts, err := envelope.Split(data, format)
	if err != nil {
		return nil, &EncryptionError{Reason: err.Error()}
	}

	keys, err := s.keys.DerivedKeys()
	if err != nil {
		return nil, err
	}

	if format == envelope.FormatAuthenticated {
		expected := authenticationTag(keys.MAC, parts.IV, parts.Ciphertext)
		if !hmac.Equal(expected, parts.Tag) {
			return nil, &IntegrityError{Reason: "authentication tag mismatch"}
		}
	}

	padded, err := envelope.DecryptCBC(keys.Encryption, parts.IV, parts.Ciphertext)
	if err != nil {
		return nil, &EncryptionError{Reason: err.Error()}
	}

	plaintext, err := envelope.Unpad(padded)
	if err != nil {
		if format == envelope.FormatAuthenticated {
			return nil, &IntegrityError{Reason: "invalid padding after verified decrypt"}
		}
		return nil, &EncryptionError{Reason: "legacy envelope padding invalid"}
	}

	return plaintext, nil
}

// EncryptString encrypts a text value and returns the envelope as standard
// base64, for settings stored as strings.
func (s *EncryptionService) EncryptString(plaintext string) (string, error) {
	data, err := s.Encrypt([]byte(plaintext))
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// DecryptString reverses EncryptString.
func (s *EncryptionService) DecryptString(encoded string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", &EncryptionError{Reason: "invalid base64 envelope"}
	}
	plaintext, err := s.Decrypt(data)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

// IsLegacy reports whether data has the pre-authentication envelope shape.
// It never runs any cryptography.
func IsLegacy(data []byte) bool {
	format, err := envelope.Classify(len(data))
	return err == nil && format == envelope.FormatLegacy
}

// authenticationTag computes HMAC-SHA256(macKey, iv || ciphertext).
func authenticationTag(macKey, iv, ciphertext []byte) []byte {
	mac := hmac.New(sha256.New, macKey)
	mac.Write(iv)
	mac.Write(ciphertext)
	return mac.Sum(nil)
}
