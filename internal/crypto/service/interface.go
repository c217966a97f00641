// Package service provides the cryptographic services of the gateway: HKDF key
// derivation, HMAC-SHA256 request signatures and Fernet payload encryption.
package service

import (
	cryptoDomain "github.com/allisson/envoy-gateway/internal/crypto/domain"
)

// KeyDeriver expands a master secret into purpose-bound subkeys.
type KeyDeriver interface {
	// Derive expands masterSecret with label into a 32-byte key.
	Derive(masterSecret, label []byte) ([]byte, error)

	// DeriveKeySet derives the authentication and encryption keys with their fixed labels.
	DeriveKeySet(masterSecret []byte) (*cryptoDomain.KeySet, error)
}

// Signer computes and verifies request signatures.
type Signer interface {
	// Sign returns the lowercase hex HMAC-SHA256 of body.
	Sign(body []byte) string

	// Verify reports whether signature matches body, in constant time.
	Verify(body []byte, signature string) bool
}

// PayloadCipher encrypts and decrypts opaque payload tokens.
type PayloadCipher interface {
	// Encrypt returns a self-describing token for plaintext.
	Encrypt(plaintext []byte) ([]byte, error)

	// Decrypt verifies token and returns its plaintext. Every failure is ErrDecryptionFailed.
	Decrypt(token []byte) ([]byte, error)
}
