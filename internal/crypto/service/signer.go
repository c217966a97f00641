package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

type hmacSigner struct {
	key []byte
}

// NewSigner creates a Signer computing hex(HMAC-SHA256(authKey, body)).
func NewSigner(authKey []byte) Signer {
	key := make([]byte, len(authKey))
	copy(key, authKey)
	return &hmacSigner{key: key}
}

// Sign returns the lowercase hex signature of body.
func (s *hmacSigner) Sign(body []byte) string {
	mac := hmac.New(sha256.New, s.key)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify compares the expected signature with the provided one using hmac.Equal,
// whose running time does not depend on the position of the first differing byte.
// An empty or malformed signature never matches.
func (s *hmacSigner) Verify(body []byte, signature string) bool {
	if signature == "" {
		return false
	}
	expected := s.Sign(body)
	return hmac.Equal([]byte(expected), []byte(signature))
}
