package envelope

// Pad appends PKCS#7 padding, extending data to a whole number of AES
// blocks. A full block of padding is added when data is already aligned,
// so padding is always present and unambiguous.
func Pad(data []byte) []byte {
	padLen := BlockSize - len(data)%BlockSize
	out := make([]byte, len(data)+padLen)
	copy(out, data)
	for i := len(data); i < len(out); i++ {
		out[i] = byte(padLen)
	}
	return out
}

// Unpad validates and strips PKCS#7 padding. It fails closed: any
// malformed padding returns ErrBadPadding rather than a truncated or
// garbage result.
func Unpad(data []byte) ([]byte, error) {
	if len(data) == 0 || len(data)%BlockSize != 0 {
		return nil, ErrBadPadding
	}

	padLen := int(data[len(data)-1])
	if padLen < 1 || padLen > BlockSize {
		return nil, ErrBadPadding
	}

	for _, b := range data[len(data)-padLen:] {
		if int(b) != padLen {
			return nil, ErrBadPadding
		}
	}

	return data[:len(data)-padLen], nil
}
