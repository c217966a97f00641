package commands

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"

	cryptoDomain "github.com/allisson/envoy-gateway/internal/crypto/domain"
	"github.com/allisson/envoy-gateway/internal/crypto/secretsource"
)

const masterSecretSize = 32

// RunCreateMasterSecret generates a random master secret and prints it as ANCHOR_KEY.
//
// With a keeper URI the secret is encrypted by the KMS keeper first and the base64
// ciphertext is printed instead, along with MASTER_SECRET_KEEPER_URI. The gateway then
// decrypts it at startup. For local development use "base64key://<32-byte-base64-key>";
// production should use gcpkms, awskms, azurekeyvault or hashivault.
//
// The printed plaintext secret must also be provisioned on every device.
func RunCreateMasterSecret(
	ctx context.Context,
	openKeeper secretsource.KeeperOpener,
	logger *slog.Logger,
	w io.Writer,
	keeperURI string,
) error {
	raw := make([]byte, masterSecretSize)
	if _, err := rand.Read(raw); err != nil {
		return fmt.Errorf("failed to generate master secret: %w", err)
	}
	secret := []byte(base64.RawURLEncoding.EncodeToString(raw))
	cryptoDomain.Zero(raw)
	defer cryptoDomain.Zero(secret)

	if keeperURI == "" {
		_, err := fmt.Fprintf(w,
			"# Master secret (provision the same value on every device)\nANCHOR_KEY=\"%s\"\n",
			secret,
		)
		return err
	}

	keeper, err := openKeeper(ctx, keeperURI)
	if err != nil {
		return fmt.Errorf("failed to open KMS keeper: %w", err)
	}
	defer func() {
		if closeErr := keeper.Close(); closeErr != nil {
			logger.Warn("failed to close KMS keeper", slog.Any("error", closeErr))
		}
	}()

	ciphertext, err := keeper.Encrypt(ctx, secret)
	if err != nil {
		return fmt.Errorf("failed to encrypt master secret with KMS: %w", err)
	}

	_, err = fmt.Fprintf(w,
		"# Gateway configuration (KMS mode)\n"+
			"MASTER_SECRET_KEEPER_URI=\"%s\"\n"+
			"ANCHOR_KEY=\"%s\"\n"+
			"\n"+
			"# Device master secret (provision on every device, never on the gateway)\n"+
			"# %s\n",
		keeperURI,
		base64.StdEncoding.EncodeToString(ciphertext),
		secret,
	)
	return err
}
