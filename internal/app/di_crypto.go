package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	cryptoDomain "github.com/allisson/envoy-gateway/internal/crypto/domain"
	"github.com/allisson/envoy-gateway/internal/crypto/secretsource"
	cryptoService "github.com/allisson/envoy-gateway/internal/crypto/service"
)

const masterSecretLoadTimeout = 30 * time.Second

// MasterSecretSource returns the source selected by MASTER_SECRET_SOURCE.
func (c *Container) MasterSecretSource() (secretsource.MasterSecretSource, error) {
	err := c.once(&c.secretSourceInit, "secretSource", func() (err error) {
		c.secretSource, err = secretsource.New(
			c.config.MasterSecretSource,
			c.config.AnchorKey,
			c.config.MasterSecretURL,
			c.config.MasterSecretKeeperURI,
		)
		return err
	})
	if err != nil {
		return nil, err
	}
	return c.secretSource, nil
}

// KeySet returns the keys derived from the master secret. The secret is loaded and
// expanded once; a failure here is fatal for the process.
func (c *Container) KeySet() (*cryptoDomain.KeySet, error) {
	err := c.once(&c.keySetInit, "keySet", func() (err error) {
		c.keySet, err = c.initKeySet()
		return err
	})
	if err != nil {
		return nil, err
	}
	return c.keySet, nil
}

// Signer returns the request signature verifier.
func (c *Container) Signer() (cryptoService.Signer, error) {
	err := c.once(&c.signerInit, "signer", func() error {
		keySet, err := c.KeySet()
		if err != nil {
			return fmt.Errorf("failed to get key set for signer: %w", err)
		}
		c.signer = cryptoService.NewSigner(keySet.AuthKey())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c.signer, nil
}

// PayloadCipher returns the Fernet cipher for ingest payloads.
func (c *Container) PayloadCipher() (*cryptoService.FernetCipher, error) {
	err := c.once(&c.payloadCipherInit, "payloadCipher", func() error {
		keySet, err := c.KeySet()
		if err != nil {
			return fmt.Errorf("failed to get key set for payload cipher: %w", err)
		}
		c.payloadCipher, err = cryptoService.NewFernetCipher(keySet.EncryptionKey(), c.config.IngestTokenTTL)
		return err
	})
	if err != nil {
		return nil, err
	}
	return c.payloadCipher, nil
}

func (c *Container) initKeySet() (*cryptoDomain.KeySet, error) {
	source, err := c.MasterSecretSource()
	if err != nil {
		return nil, fmt.Errorf("failed to get master secret source: %w", err)
	}

	ctx, cancel := context.WithTimeout(c.ctx, masterSecretLoadTimeout)
	defer cancel()

	secret, err := source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load master secret: %w", err)
	}
	defer cryptoDomain.Zero(secret)

	keySet, err := cryptoService.NewKeyDeriver().DeriveKeySet(secret)
	if err != nil {
		return nil, fmt.Errorf("failed to derive keys: %w", err)
	}

	authFingerprint, encryptionFingerprint := keySet.Fingerprints()
	c.Logger().Info("derived gateway keys",
		slog.String("master_secret_source", c.config.MasterSecretSource),
		slog.String("auth_key_fingerprint", authFingerprint),
		slog.String("encryption_key_fingerprint", encryptionFingerprint),
	)

	return keySet, nil
}
