// Package domain defines the key material, labels and errors of the gateway's
// signing and payload encryption scheme.
package domain

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
)

// Context labels scoping each derived key to exactly one purpose. They must stay
// distinct and byte-identical between the gateway and every device.
const (
	AuthKeyLabel       = "envoy-api-hmac-authentication-key"
	EncryptionKeyLabel = "envoy-api-fernet-encryption-key"
)

// DerivedKeySize is the length in bytes of every key expanded from the master secret.
const DerivedKeySize = 32

// KeySet holds the two subkeys derived from the master secret.
//
// A KeySet is built once at startup and is read-only for the rest of the process
// lifetime. Accessors hand out copies so no caller can mutate the shared material.
type KeySet struct {
	authKey       []byte
	encryptionKey string
}

// NewKeySet creates a KeySet from an HMAC authentication key and the URL-safe base64
// text form of the Fernet encryption key.
func NewKeySet(authKey []byte, encryptionKey string) *KeySet {
	return &KeySet{
		authKey:       bytes.Clone(authKey),
		encryptionKey: encryptionKey,
	}
}

// AuthKey returns a copy of the HMAC-SHA256 request signing key.
func (k *KeySet) AuthKey() []byte {
	return bytes.Clone(k.authKey)
}

// EncryptionKey returns the Fernet key text (URL-safe base64 of 32 bytes).
func (k *KeySet) EncryptionKey() string {
	return k.encryptionKey
}

// Close clears the key material held by the set.
func (k *KeySet) Close() {
	Zero(k.authKey)
	k.authKey = nil
	k.encryptionKey = ""
}

// Fingerprints returns short SHA-256 digests of both keys. They are safe to log and let
// operators confirm two instances derived the same keys without exposing them.
func (k *KeySet) Fingerprints() (authKey, encryptionKey string) {
	return fingerprint(k.authKey), fingerprint([]byte(k.encryptionKey))
}

func fingerprint(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:8])
}
