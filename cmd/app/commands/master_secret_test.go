package commands

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gocloud.dev/secrets/localsecrets"

	cryptoDomain "github.com/allisson/envoy-gateway/internal/crypto/domain"
	"github.com/allisson/envoy-gateway/internal/crypto/secretsource"
)

type MockKMSKeeper struct {
	mock.Mock
}

func (m *MockKMSKeeper) Encrypt(ctx context.Context, plaintext []byte) ([]byte, error) {
	args := m.Called(ctx, plaintext)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockKMSKeeper) Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error) {
	args := m.Called(ctx, ciphertext)
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockKMSKeeper) Close() error {
	return m.Called().Error(0)
}

func TestRunCreateMasterSecret(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("plain", func(t *testing.T) {
		var out bytes.Buffer
		err := RunCreateMasterSecret(ctx, nil, logger, &out, "")
		require.NoError(t, err)
		require.Regexp(t, `ANCHOR_KEY="[A-Za-z0-9_-]{43}"`, out.String())
	})

	t.Run("localsecrets-round-trip", func(t *testing.T) {
		key, err := localsecrets.NewRandomKey()
		require.NoError(t, err)
		keeperURI := "base64key://" + base64.URLEncoding.EncodeToString(key[:])

		var out bytes.Buffer
		require.NoError(t, RunCreateMasterSecret(ctx, secretsource.OpenKeeper, logger, &out, keeperURI))

		wrapped := regexp.MustCompile(`ANCHOR_KEY="([^"]+)"`).FindStringSubmatch(out.String())
		require.Len(t, wrapped, 2)
		device := regexp.MustCompile(`(?m)^# ([A-Za-z0-9_-]{43})$`).FindStringSubmatch(out.String())
		require.Len(t, device, 2)

		source := secretsource.NewKeeperSource(secretsource.NewEnvSource(wrapped[1]), keeperURI, secretsource.OpenKeeper)
		secret, err := source.Load(ctx)
		require.NoError(t, err)
		require.Equal(t, device[1], string(secret))
	})

	t.Run("kms-open-error", func(t *testing.T) {
		openKeeper := func(ctx context.Context, uri string) (cryptoDomain.KMSKeeper, error) {
			return nil, errors.New("kms error")
		}

		err := RunCreateMasterSecret(ctx, openKeeper, logger, &bytes.Buffer{}, "gcpkms://invalid")
		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to open KMS keeper")
	})

	t.Run("kms-encrypt-error", func(t *testing.T) {
		keeper := &MockKMSKeeper{}
		keeper.On("Encrypt", ctx, mock.AnythingOfType("[]uint8")).Return(nil, errors.New("denied"))
		keeper.On("Close").Return(nil)
		openKeeper := func(ctx context.Context, uri string) (cryptoDomain.KMSKeeper, error) {
			return keeper, nil
		}

		err := RunCreateMasterSecret(ctx, openKeeper, logger, &bytes.Buffer{}, "gcpkms://key")
		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to encrypt master secret")
		keeper.AssertExpectations(t)
	})
}
