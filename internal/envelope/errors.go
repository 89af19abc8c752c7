package envelope

import "errors"

var (
	// ErrTooShort is returned when data is shorter than the minimum
	// envelope (IV plus one cipher block).
	ErrTooShort = errors.New("data too short")

	// ErrMalformed is returned when a length matches neither envelope
	// shape.
	ErrMalformed = errors.New("malformed envelope")

	// ErrBadPadding is returned when PKCS#7 padding cannot be validated.
	ErrBadPadding = errors.New("invalid PKCS#7 padding")

	// ErrInvalidKeySize is returned when the AES key is not 32 bytes.
	ErrInvalidKeySize = errors.New("invalid key size")

	// ErrInvalidIVSize is returned when the IV is not one block long.
	ErrInvalidIVSize = errors.New("invalid IV size")

	// ErrUnalignedCiphertext is returned when ciphertext length is not a
	// multiple of the AES block size.
	ErrUnalignedCiphertext = errors.New("ciphertext not block-aligned")
)
