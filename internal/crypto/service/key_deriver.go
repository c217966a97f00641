package service

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	cryptoDomain "github.com/allisson/envoy-gateway/internal/crypto/domain"
)

type hkdfKeyDeriver struct{}

// NewKeyDeriver creates a KeyDeriver using HKDF-SHA256 without salt, the context
// label as the info parameter and a 32-byte output.
func NewKeyDeriver() KeyDeriver {
	return &hkdfKeyDeriver{}
}

// Derive expands masterSecret with label. The same inputs always yield the same key,
// so every instance of the gateway derives identical keys without coordination.
func (d *hkdfKeyDeriver) Derive(masterSecret, label []byte) ([]byte, error) {
	if len(masterSecret) == 0 {
		return nil, cryptoDomain.ErrMasterSecretNotSet
	}

	reader := hkdf.New(sha256.New, masterSecret, nil, label)

	key := make([]byte, cryptoDomain.DerivedKeySize)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("%w: %v", cryptoDomain.ErrKeyDerivation, err)
	}

	return key, nil
}

// DeriveKeySet derives the HMAC authentication key and the Fernet encryption key.
// The encryption key is URL-safe base64 encoded because Fernet expects its key as text.
func (d *hkdfKeyDeriver) DeriveKeySet(masterSecret []byte) (*cryptoDomain.KeySet, error) {
	authKey, err := d.Derive(masterSecret, []byte(cryptoDomain.AuthKeyLabel))
	if err != nil {
		return nil, err
	}
	defer cryptoDomain.Zero(authKey)

	encryptionKey, err := d.Derive(masterSecret, []byte(cryptoDomain.EncryptionKeyLabel))
	if err != nil {
		return nil, err
	}
	defer cryptoDomain.Zero(encryptionKey)

	if hmac.Equal(authKey, encryptionKey) ||
		bytes.Equal(authKey, masterSecret) ||
		bytes.Equal(encryptionKey, masterSecret) {
		return nil, fmt.Errorf("%w: derived keys collide", cryptoDomain.ErrKeyDerivation)
	}

	return cryptoDomain.NewKeySet(authKey, base64.URLEncoding.EncodeToString(encryptionKey)), nil
}
