package envelope

import "fmt"

const (
	// IVSize is the AES-CBC initialization vector size in bytes.
	IVSize = 16
	// BlockSize is the AES block size in bytes.
	BlockSize = 16
	// TagSize is the HMAC-SHA256 authentication tag size in bytes.
	TagSize = 32
	// MinSize is the smallest valid envelope: an IV plus one cipher block.
	MinSize = IVSize + BlockSize
)

// Format identifies the shape of a cipher envelope.
type Format int

const (
	// FormatUnknown means the length matches no known shape.
	FormatUnknown Format = iota
	// FormatLegacy is IV || ciphertext with no tag. Read-only; offers no
	// tamper detection.
	FormatLegacy
	// FormatAuthenticated is IV || ciphertext || tag. The only shape ever
	// written.
	FormatAuthenticated
)

// String returns a human-readable format name.
func (f Format) String() string {
	switch f {
	case FormatLegacy:
		return "legacy"
	case FormatAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Classify determines the envelope shape from its total length, before any
// decryption is attempted.
//
// Every length of 64 bytes or more that is a multiple of the block size
// plus an IV is arithmetically valid for both shapes (the 48 bytes of
// IV+tag are themselves block-aligned). The rule is explicit: when both
// shapes fit, the envelope is Authenticated. Only 32- and 48-byte
// envelopes can be Legacy.
func Classify(size int) (Format, error) {
	if size < MinSize {
		return FormatUnknown, fmt.Errorf("%w: %d bytes, need at least %d", ErrTooShort, size, MinSize)
	}

	if ctLen := size - IVSize - TagSize; ctLen >= BlockSize && ctLen%BlockSize == 0 {
		return FormatAuthenticated, nil
	}

	if ctLen := size - IVSize; ctLen%BlockSize == 0 {
		return FormatLegacy, nil
	}

	return FormatUnknown, fmt.Errorf("%w: %d bytes matches no envelope shape", ErrMalformed, size)
}

// Parts holds the framed regions of a classified envelope. Slices alias
// the original buffer.
type Parts struct {
	IV         []byte
	Ciphertext []byte
	Tag        []byte // nil for legacy envelopes
}

// Split frames a classified envelope into its regions. The caller must
// have classified data's length already; Split re-checks only the
// arithmetic it depends on.
func Split(data []byte, format Format) (Parts, error) {
	switch format {
	case FormatAuthenticated:
		if len(data) < IVSize+BlockSize+TagSize {
			return Parts{}, fmt.Errorf("%w: %d bytes", ErrTooShort, len(data))
		}
		tagStart := len(data) - TagSize
		return Parts{
			IV:         data[:IVSize],
			Ciphertext: data[IVSize:tagStart],
			Tag:        data[tagStart:],
		}, nil
	case FormatLegacy:
		if len(data) < MinSize {
			return Parts{}, fmt.Errorf("%w: %d bytes", ErrTooShort, len(data))
		}
		return Parts{
			IV:         data[:IVSize],
			Ciphertext: data[IVSize:],
		}, nil
	default:
		return Parts{}, ErrMalformed
	}
}

// Join assembles an authenticated envelope from its regions.
func Join(iv, ciphertext, tag []byte) []byte {
	out := make([]byte, 0, len(iv)+len(ciphertext)+len(tag))
	out = append(out, iv...)
	out = append(out, ciphertext...)
	out = append(out, tag...)
	return out
}
