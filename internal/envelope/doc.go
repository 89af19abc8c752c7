// Package envelope implements the on-disk cipher envelope used by the
// vault: frame arithmetic, shape classification, PKCS#7 padding, and the
// AES-256-CBC block layer.
//
// Two envelope shapes exist:
//
//	Authenticated: IV(16) || ciphertext(16k) || tag(32)
//	Legacy:        IV(16) || ciphertext(16k)
//
// The authenticated shape is the only one ever written; the legacy shape
// is accepted read-only for data persisted before authentication existed.
// Classification is purely length-based and happens before any decryption
// attempt, never by catch-and-retry.
package envelope
