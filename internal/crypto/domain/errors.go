package domain

import (
	"github.com/allisson/envoy-gateway/internal/errors"
)

// Cryptographic operation error definitions.
//
// Per-request errors wrap the standard errors from internal/errors so the HTTP
// layer can map them to status codes. None of them say which internal check failed.
var (
	// ErrKeyDerivation indicates the derived key set could not be produced, most often
	// because the master secret is empty. Fatal at startup.
	ErrKeyDerivation = errors.New("key derivation failed")

	// ErrMasterSecretNotSet indicates the configured source yielded no master secret.
	ErrMasterSecretNotSet = errors.Wrap(ErrKeyDerivation, "master secret not set")

	// ErrUnsupportedSecretSource indicates an unknown MASTER_SECRET_SOURCE value.
	ErrUnsupportedSecretSource = errors.New("unsupported master secret source")

	// ErrSignatureMissing indicates the request carried no signature header.
	//
	// HTTP Status: 401 Unauthorized
	ErrSignatureMissing = errors.Wrap(errors.ErrUnauthorized, "signature header missing")

	// ErrSignatureInvalid indicates the signature did not match the request body.
	// The error never distinguishes a wrong key from a modified body.
	//
	// HTTP Status: 403 Forbidden
	ErrSignatureInvalid = errors.Wrap(errors.ErrForbidden, "invalid signature")

	// ErrDecryptionFailed indicates a payload token failed its integrity or format check,
	// was produced with another key, or expired.
	//
	// HTTP Status: 400 Bad Request
	ErrDecryptionFailed = errors.Wrap(errors.ErrBadRequest, "decryption failed")

	// ErrInvalidKeySize indicates a cipher key did not decode to 32 bytes.
	ErrInvalidKeySize = errors.Wrap(ErrKeyDerivation, "invalid key size")
)
