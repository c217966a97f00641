package commands

import (
	"fmt"
	"io"

	cryptoDomain "github.com/allisson/envoy-gateway/internal/crypto/domain"
	cryptoService "github.com/allisson/envoy-gateway/internal/crypto/service"
)

// RunDeriveKeys prints the derivation labels and fingerprints of the derived keys. The keys
// themselves are never printed; comparing fingerprints is enough to confirm a device and
// the gateway share the same master secret.
func RunDeriveKeys(w io.Writer, keys *cryptoDomain.KeySet, format string) error {
	authFingerprint, encryptionFingerprint := keys.Fingerprints()

	switch format {
	case "json":
		return writeJSON(w, map[string]any{
			"auth_key": map[string]string{
				"label":       cryptoDomain.AuthKeyLabel,
				"fingerprint": authFingerprint,
			},
			"encryption_key": map[string]string{
				"label":       cryptoDomain.EncryptionKeyLabel,
				"fingerprint": encryptionFingerprint,
			},
		})
	case "text", "":
		_, err := fmt.Fprintf(w,
			"auth key        label=%s fingerprint=%s\nencryption key  label=%s fingerprint=%s\n",
			cryptoDomain.AuthKeyLabel, authFingerprint,
			cryptoDomain.EncryptionKeyLabel, encryptionFingerprint,
		)
		return err
	default:
		return fmt.Errorf("invalid format: %s (valid options: text, json)", format)
	}
}

// RunSignPayload prints the X-Anchor-Signature value for body, signed over the exact bytes.
func RunSignPayload(w io.Writer, signer cryptoService.Signer, body []byte) error {
	_, err := fmt.Fprintln(w, signer.Sign(body))
	return err
}

// RunEncryptPayload writes the Fernet token for plaintext.
func RunEncryptPayload(w io.Writer, cipher cryptoService.PayloadCipher, plaintext []byte) error {
	token, err := cipher.Encrypt(plaintext)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", token)
	return err
}

// RunDecryptPayload writes the plaintext of a Fernet token. A trailing line ending on the
// token is ignored.
func RunDecryptPayload(w io.Writer, cipher cryptoService.PayloadCipher, token []byte) error {
	plaintext, err := cipher.Decrypt(trimLineEnding(token))
	if err != nil {
		return err
	}
	defer cryptoDomain.Zero(plaintext)

	_, err = w.Write(plaintext)
	return err
}
