// Package scanvault provides an on-device vault for scanned documents.
//
// Page images and thumbnails are persisted only in encrypted form
// (AES-256-CBC with an encrypt-then-MAC HMAC-SHA256 tag), decrypted on
// demand into memory or short-lived temp files, and those temp files are
// securely wiped after use.
//
// Basic usage:
//
//	km := scanvault.NewKeyManager(scanvault.NewMemorySecureStorage())
//	if err := km.EnsureKeyInitialized(); err != nil {
//	    log.Fatal(err)
//	}
//
//	enc := scanvault.NewEncryptionService(km)
//	store, err := scanvault.NewDocumentStore("/data/vault", enc)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.CleanupTempFiles()
//
//	// Persist a scanned page; only ciphertext ever touches disk.
//	if _, err := store.StorePage("doc-42", 0, pageBytes); err != nil {
//	    log.Fatal(err)
//	}
//
//	// Decrypt into memory for display.
//	img, err := store.DecryptedPageBytes("doc-42", 0)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Collaborators that need a filesystem path (export, OCR) use
// DecryptedPagePath, which registers the plaintext temp file so
// CleanupTempFiles can shred it. Paths returned this way must not be
// cached across a cleanup boundary; re-request instead.
package scanvault
