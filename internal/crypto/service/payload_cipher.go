package service

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/fernet/fernet-go"

	cryptoDomain "github.com/allisson/envoy-gateway/internal/crypto/domain"
)

// FernetCipher implements PayloadCipher with the Fernet token format:
//
//	0x80 || timestamp (8 bytes) || IV (16 bytes) || AES-128-CBC ciphertext || HMAC-SHA256 (32 bytes)
//
// base64url encoded. The HMAC covers the whole token and is checked before any
// plaintext is produced. Tokens are interoperable with the Python cryptography package.
//
// The cipher is stateless and safe for concurrent use.
type FernetCipher struct {
	keys []*fernet.Key
	ttl  time.Duration
}

// NewFernetCipher creates a cipher from the URL-safe base64 key text. A positive ttl
// rejects tokens older than ttl or stamped too far in the future; zero or less ignores
// the token timestamp entirely.
func NewFernetCipher(encryptionKey string, ttl time.Duration) (*FernetCipher, error) {
	key, err := fernet.DecodeKey(encryptionKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", cryptoDomain.ErrInvalidKeySize, err)
	}

	if ttl < 0 {
		ttl = 0
	}

	return &FernetCipher{keys: []*fernet.Key{key}, ttl: ttl}, nil
}

// Encrypt returns a Fernet token embedding the current time and a random IV.
func (f *FernetCipher) Encrypt(plaintext []byte) ([]byte, error) {
	token, err := fernet.EncryptAndSign(plaintext, f.keys[0])
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt payload: %w", err)
	}
	return token, nil
}

// Decrypt verifies token and returns the plaintext. Non-canonical base64 is refused up
// front so no altered encoding of a valid token can decrypt.
func (f *FernetCipher) Decrypt(token []byte) ([]byte, error) {
	if len(token) == 0 || bytes.ContainsAny(token, "\r\n") {
		return nil, cryptoDomain.ErrDecryptionFailed
	}
	if _, err := base64.URLEncoding.Strict().DecodeString(string(token)); err != nil {
		return nil, cryptoDomain.ErrDecryptionFailed
	}

	plaintext := fernet.VerifyAndDecrypt(token, f.ttl, f.keys)
	if plaintext == nil {
		return nil, cryptoDomain.ErrDecryptionFailed
	}

	return plaintext, nil
}
