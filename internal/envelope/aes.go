package envelope

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
)

// KeySize is the AES-256 key size in bytes.
const KeySize = 32

// EncryptCBC encrypts an already-padded plaintext with AES-256-CBC.
func EncryptCBC(key, iv, padded []byte) ([]byte, error) {
	if err := checkBlockArgs(key, iv, padded); err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)
	return ciphertext, nil
}

// DecryptCBC decrypts AES-256-CBC ciphertext. The result still carries
// its PKCS#7 padding; callers validate it with Unpad.
func DecryptCBC(key, iv, ciphertext []byte) ([]byte, error) {
	if err := checkBlockArgs(key, iv, ciphertext); err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	padded := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(padded, ciphertext)
	return padded, nil
}

func checkBlockArgs(key, iv, data []byte) error {
	if len(key) != KeySize {
		return fmt.Errorf("%w: got %d, want %d", ErrInvalidKeySize, len(key), KeySize)
	}
	if len(iv) != IVSize {
		return fmt.Errorf("%w: got %d, want %d", ErrInvalidIVSize, len(iv), IVSize)
	}
	if len(data) == 0 || len(data)%BlockSize != 0 {
		return fmt.Errorf("%w: %d bytes", ErrUnalignedCiphertext, len(data))
	}
	return nil
}
