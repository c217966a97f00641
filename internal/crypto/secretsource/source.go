// Package secretsource loads the master secret from the environment or an external
// vault at startup. Sources are selected once; the request path never touches them.
package secretsource

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"gocloud.dev/runtimevar"
	"gocloud.dev/secrets"

	cryptoDomain "github.com/allisson/envoy-gateway/internal/crypto/domain"

	// Register runtimevar drivers for vault-backed master secrets
	_ "gocloud.dev/runtimevar/awssecretsmanager"
	_ "gocloud.dev/runtimevar/constantvar"
	_ "gocloud.dev/runtimevar/filevar"
	_ "gocloud.dev/runtimevar/gcpsecretmanager"

	// Register all KMS provider drivers
	_ "gocloud.dev/secrets/awskms"
	_ "gocloud.dev/secrets/azurekeyvault"
	_ "gocloud.dev/secrets/gcpkms"
	_ "gocloud.dev/secrets/hashivault"
	_ "gocloud.dev/secrets/localsecrets"
)

// MasterSecretSource yields the master secret bytes.
type MasterSecretSource interface {
	Load(ctx context.Context) ([]byte, error)
}

// KeeperOpener opens a KMS keeper for a gocloud secrets URL.
type KeeperOpener func(ctx context.Context, keeperURI string) (cryptoDomain.KMSKeeper, error)

// envSource returns a value read from the process configuration (ANCHOR_KEY).
type envSource struct {
	value string
}

// NewEnvSource creates a source returning value, typically ANCHOR_KEY from the
// environment or a local .env file.
func NewEnvSource(value string) MasterSecretSource {
	return &envSource{value: value}
}

// Load returns the configured value or ErrMasterSecretNotSet when it is empty.
func (s *envSource) Load(ctx context.Context) ([]byte, error) {
	if s.value == "" {
		return nil, fmt.Errorf("%w: ANCHOR_KEY is empty", cryptoDomain.ErrMasterSecretNotSet)
	}
	return []byte(s.value), nil
}

// runtimeVarSource reads the latest value of a gocloud runtimevar.
type runtimeVarSource struct {
	url string
}

// NewRuntimeVarSource creates a source backed by a runtimevar URL such as
// "gcpsecretmanager://projects/p/secrets/ANCHOR_KEY?decoder=string" or
// "awssecretsmanager://ANCHOR_KEY?region=us-east-1&decoder=string".
func NewRuntimeVarSource(url string) MasterSecretSource {
	return &runtimeVarSource{url: url}
}

// Load opens the variable, waits for its first snapshot and closes it again.
// Blocks until the value is available or ctx is done.
func (s *runtimeVarSource) Load(ctx context.Context) (secret []byte, err error) {
	if s.url == "" {
		return nil, fmt.Errorf("%w: MASTER_SECRET_URL is empty", cryptoDomain.ErrMasterSecretNotSet)
	}

	variable, err := runtimevar.OpenVariable(ctx, s.url)
	if err != nil {
		return nil, fmt.Errorf("failed to open master secret variable: %w", err)
	}
	defer func() {
		if closeErr := variable.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close master secret variable: %w", closeErr)
		}
	}()

	snapshot, err := variable.Latest(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read master secret variable: %w", err)
	}

	switch value := snapshot.Value.(type) {
	case string:
		secret = []byte(value)
	case []byte:
		secret = append([]byte(nil), value...)
	default:
		return nil, fmt.Errorf("unsupported master secret variable type %T", snapshot.Value)
	}

	if len(secret) == 0 {
		return nil, fmt.Errorf("%w: master secret variable is empty", cryptoDomain.ErrMasterSecretNotSet)
	}
	return secret, nil
}

// keeperSource unwraps a KMS-encrypted master secret produced by another source.
type keeperSource struct {
	next       MasterSecretSource
	keeperURI  string
	openKeeper KeeperOpener
}

// NewKeeperSource wraps next so its value is treated as base64 ciphertext and decrypted
// with the keeper at keeperURI (gcpkms://, awskms://, azurekeyvault://, hashivault://,
// base64key://).
func NewKeeperSource(next MasterSecretSource, keeperURI string, openKeeper KeeperOpener) MasterSecretSource {
	if openKeeper == nil {
		openKeeper = OpenKeeper
	}
	return &keeperSource{next: next, keeperURI: keeperURI, openKeeper: openKeeper}
}

// Load decrypts the wrapped master secret.
func (s *keeperSource) Load(ctx context.Context) ([]byte, error) {
	wrapped, err := s.next.Load(ctx)
	if err != nil {
		return nil, err
	}
	defer cryptoDomain.Zero(wrapped)

	ciphertext, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(wrapped)))
	if err != nil {
		return nil, fmt.Errorf("failed to decode wrapped master secret: %w", err)
	}

	keeper, err := s.openKeeper(ctx, s.keeperURI)
	if err != nil {
		return nil, err
	}
	defer func() { _ = keeper.Close() }()

	secret, err := keeper.Decrypt(ctx, ciphertext)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt master secret: %w", err)
	}
	if len(secret) == 0 {
		return nil, fmt.Errorf("%w: decrypted master secret is empty", cryptoDomain.ErrMasterSecretNotSet)
	}
	return secret, nil
}

// OpenKeeper opens a secrets.Keeper for keeperURI.
// Supports: gcpkms://, awskms://, azurekeyvault://, hashivault://, base64key://
func OpenKeeper(ctx context.Context, keeperURI string) (cryptoDomain.KMSKeeper, error) {
	keeper, err := secrets.OpenKeeper(ctx, keeperURI)
	if err != nil {
		return nil, fmt.Errorf("failed to open KMS keeper: %w", err)
	}
	return keeper, nil
}

// New selects the master secret source for the configured mode. A non-empty keeperURI
// wraps the selected source with a KMS unwrap step.
func New(source, anchorKey, masterSecretURL, keeperURI string) (MasterSecretSource, error) {
	var base MasterSecretSource
	switch source {
	case "", "env":
		base = NewEnvSource(anchorKey)
	case "runtimevar":
		base = NewRuntimeVarSource(masterSecretURL)
	default:
		return nil, fmt.Errorf("%w: %q", cryptoDomain.ErrUnsupportedSecretSource, source)
	}

	if keeperURI == "" {
		return base, nil
	}
	return NewKeeperSource(base, keeperURI, nil), nil
}
