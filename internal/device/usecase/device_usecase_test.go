package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/allisson/envoy-gateway/internal/crypto/domain"
	deviceDomain "github.com/allisson/envoy-gateway/internal/device/domain"
	deviceUsecaseMocks "github.com/allisson/envoy-gateway/internal/device/usecase/mocks"
	apperrors "github.com/allisson/envoy-gateway/internal/errors"
)

var fixedNow = time.Date(2024, 5, 17, 9, 30, 15, 123456789, time.UTC)

func testOptions() Options {
	return Options{
		BootFlags:           deviceDomain.BootFlags{EnableTelemetry: true, LogLevel: "info"},
		DirectiveAction:     "SYNC_FILES",
		DirectiveTargetPath: "/data/sync",
		IngestPrefix:        "uploads/",
		StorageTimeout:      5 * time.Second,
	}
}

func newTestUseCase(
	bootRepo BootRepository,
	blobRepo BlobRepository,
	cipher PayloadDecrypter,
) *deviceUseCase {
	uc := NewDeviceUseCase(bootRepo, blobRepo, cipher, testOptions()).(*deviceUseCase)
	uc.now = func() time.Time { return fixedNow }
	return uc
}

// hasDeadline matches contexts bounded by the storage timeout.
var hasDeadline = mock.MatchedBy(func(ctx context.Context) bool {
	_, ok := ctx.Deadline()
	return ok
})

func TestDeviceUseCase_BootAnnounce(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		bootRepo := &deviceUsecaseMocks.MockBootRepository{}
		uc := newTestUseCase(bootRepo, nil, nil)

		bootRepo.On("Save", hasDeadline, mock.MatchedBy(func(event *deviceDomain.BootEvent) bool {
			return event.DeviceID == "test-device-001" &&
				event.ConfigVersion == "v2" &&
				event.IPAddress == "10.0.0.7" &&
				event.Timestamp.Equal(fixedNow)
		})).Return(nil).Once()

		ack, err := uc.BootAnnounce(ctx, "test-device-001", "v2", "10.0.0.7")

		require.NoError(t, err)
		assert.Equal(t, deviceDomain.BootStatusAck, ack.Status)
		assert.True(t, ack.Flags.EnableTelemetry)
		assert.Equal(t, "info", ack.Flags.LogLevel)
		bootRepo.AssertExpectations(t)
	})

	t.Run("Success_DefaultDeviceID", func(t *testing.T) {
		bootRepo := &deviceUsecaseMocks.MockBootRepository{}
		uc := newTestUseCase(bootRepo, nil, nil)

		bootRepo.On("Save", hasDeadline, mock.MatchedBy(func(event *deviceDomain.BootEvent) bool {
			return event.DeviceID == deviceDomain.DefaultDeviceID
		})).Return(nil).Once()

		_, err := uc.BootAnnounce(ctx, "", "", "127.0.0.1")

		require.NoError(t, err)
		bootRepo.AssertExpectations(t)
	})

	t.Run("Success_AssignsEventID", func(t *testing.T) {
		bootRepo := &deviceUsecaseMocks.MockBootRepository{}
		uc := newTestUseCase(bootRepo, nil, nil)

		var saved *deviceDomain.BootEvent
		bootRepo.On("Save", hasDeadline, mock.Anything).
			Run(func(args mock.Arguments) {
				saved = args.Get(1).(*deviceDomain.BootEvent)
			}).
			Return(nil).
			Once()

		_, err := uc.BootAnnounce(ctx, "dev", "v1", "127.0.0.1")

		require.NoError(t, err)
		require.NotNil(t, saved)
		assert.NotEqual(t, uuid.Nil, saved.ID)
	})

	t.Run("Error_StorageFailed", func(t *testing.T) {
		bootRepo := &deviceUsecaseMocks.MockBootRepository{}
		uc := newTestUseCase(bootRepo, nil, nil)
		storeErr := errors.New("firestore unavailable")

		bootRepo.On("Save", hasDeadline, mock.Anything).Return(storeErr).Once()

		ack, err := uc.BootAnnounce(ctx, "dev", "v1", "127.0.0.1")

		assert.Nil(t, ack)
		assert.ErrorIs(t, err, deviceDomain.ErrStorageFailed)
		assert.ErrorIs(t, err, storeErr)
	})
}

func TestDeviceUseCase_FetchDirective(t *testing.T) {
	uc := newTestUseCase(nil, nil, nil)

	directive, err := uc.FetchDirective(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "cmd_1715938215", directive.ID)
	assert.Equal(t, "SYNC_FILES", directive.Action)
	assert.Equal(t, map[string]any{"target_path": "/data/sync"}, directive.Payload)
}

func TestDeviceUseCase_Ingest(t *testing.T) {
	ctx := context.Background()
	token := []byte("gAAAAAtoken")
	expectedKey := "uploads/2024-05-17T09:30:15.123456789Z_test_upload.bin"

	t.Run("Success", func(t *testing.T) {
		blobRepo := &deviceUsecaseMocks.MockBlobRepository{}
		cipher := &deviceUsecaseMocks.MockPayloadDecrypter{}
		uc := newTestUseCase(nil, blobRepo, cipher)

		plaintext := []byte("hello sensor data")
		digest := sha256.Sum256(plaintext)
		expectedDigest := hex.EncodeToString(digest[:])

		cipher.On("Decrypt", token).Return(plaintext, nil).Once()
		blobRepo.On("Upload", hasDeadline, mock.MatchedBy(func(object *deviceDomain.StoredObject) bool {
			return object.Key == expectedKey &&
				object.ContentType == "application/octet-stream" &&
				string(object.Data) == string(token) &&
				object.Metadata[MetadataFilename] == "test_upload.bin" &&
				object.Metadata[MetadataPlaintextSize] == "17" &&
				object.Metadata[MetadataPlaintextSHA256] == expectedDigest
		})).Return(nil).Once()
		blobRepo.On("Location", expectedKey).Return("mem://local-bucket/" + expectedKey).Once()

		result, err := uc.Ingest(ctx, &deviceDomain.IngestUpload{
			Filename: "test_upload.bin",
			Token:    token,
		})

		require.NoError(t, err)
		assert.Equal(t, deviceDomain.IngestStatusAck, result.Status)
		assert.Equal(t, "test_upload.bin", result.Filename)
		assert.Equal(t, len(token), result.Size)
		assert.Equal(t, "mem://local-bucket/"+expectedKey, result.Location)
		cipher.AssertExpectations(t)
		blobRepo.AssertExpectations(t)
	})

	t.Run("Success_DefaultsAndContentType", func(t *testing.T) {
		blobRepo := &deviceUsecaseMocks.MockBlobRepository{}
		cipher := &deviceUsecaseMocks.MockPayloadDecrypter{}
		uc := newTestUseCase(nil, blobRepo, cipher)
		key := "uploads/2024-05-17T09:30:15.123456789Z_uploaded.file"

		cipher.On("Decrypt", token).Return([]byte("x"), nil).Once()
		blobRepo.On("Upload", hasDeadline, mock.MatchedBy(func(object *deviceDomain.StoredObject) bool {
			return object.Key == key && object.ContentType == "text/csv"
		})).Return(nil).Once()
		blobRepo.On("Location", key).Return("gs://bucket/" + key).Once()

		result, err := uc.Ingest(ctx, &deviceDomain.IngestUpload{ContentType: "text/csv", Token: token})

		require.NoError(t, err)
		assert.Equal(t, deviceDomain.DefaultFilename, result.Filename)
		assert.Equal(t, len(token), result.Size)
	})

	t.Run("Success_ZeroesPlaintext", func(t *testing.T) {
		blobRepo := &deviceUsecaseMocks.MockBlobRepository{}
		cipher := &deviceUsecaseMocks.MockPayloadDecrypter{}
		uc := newTestUseCase(nil, blobRepo, cipher)

		plaintext := []byte("secret")
		cipher.On("Decrypt", token).Return(plaintext, nil).Once()
		blobRepo.On("Upload", hasDeadline, mock.Anything).Return(nil).Once()
		blobRepo.On("Location", mock.Anything).Return("mem://b/k").Once()

		_, err := uc.Ingest(ctx, &deviceDomain.IngestUpload{Token: token})

		require.NoError(t, err)
		assert.Equal(t, make([]byte, len(plaintext)), plaintext)
	})

	t.Run("Error_DecryptionFailed", func(t *testing.T) {
		blobRepo := &deviceUsecaseMocks.MockBlobRepository{}
		cipher := &deviceUsecaseMocks.MockPayloadDecrypter{}
		uc := newTestUseCase(nil, blobRepo, cipher)

		cipher.On("Decrypt", token).Return(nil, cryptoDomain.ErrDecryptionFailed).Once()

		result, err := uc.Ingest(ctx, &deviceDomain.IngestUpload{Token: token})

		assert.Nil(t, result)
		assert.ErrorIs(t, err, cryptoDomain.ErrDecryptionFailed)
		assert.ErrorIs(t, err, apperrors.ErrBadRequest)
		blobRepo.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
	})

	t.Run("Error_InvalidFilename", func(t *testing.T) {
		for _, filename := range []string{"../escape.bin", "a/b.bin", `a\b.bin`, ".."} {
			blobRepo := &deviceUsecaseMocks.MockBlobRepository{}
			cipher := &deviceUsecaseMocks.MockPayloadDecrypter{}
			uc := newTestUseCase(nil, blobRepo, cipher)

			result, err := uc.Ingest(ctx, &deviceDomain.IngestUpload{Filename: filename, Token: token})

			assert.Nil(t, result)
			assert.ErrorIs(t, err, deviceDomain.ErrInvalidFilename, filename)
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput, filename)
			cipher.AssertNotCalled(t, "Decrypt", mock.Anything)
			blobRepo.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
		}
	})

	t.Run("Error_StorageFailed", func(t *testing.T) {
		blobRepo := &deviceUsecaseMocks.MockBlobRepository{}
		cipher := &deviceUsecaseMocks.MockPayloadDecrypter{}
		uc := newTestUseCase(nil, blobRepo, cipher)
		uploadErr := errors.New("bucket unavailable")

		cipher.On("Decrypt", token).Return([]byte("data"), nil).Once()
		blobRepo.On("Upload", hasDeadline, mock.Anything).Return(uploadErr).Once()

		result, err := uc.Ingest(ctx, &deviceDomain.IngestUpload{Token: token})

		assert.Nil(t, result)
		assert.ErrorIs(t, err, deviceDomain.ErrStorageFailed)
		assert.ErrorIs(t, err, uploadErr)
		assert.False(t, errors.Is(err, apperrors.ErrBadRequest))
		blobRepo.AssertNotCalled(t, "Location", mock.Anything)
	})
}

func TestDeviceUseCase_StorageContext(t *testing.T) {
	t.Run("NoTimeout", func(t *testing.T) {
		uc := &deviceUseCase{}
		ctx, cancel := uc.storageContext(context.Background())
		defer cancel()

		_, ok := ctx.Deadline()
		assert.False(t, ok)
	})

	t.Run("WithTimeout", func(t *testing.T) {
		uc := &deviceUseCase{opts: Options{StorageTimeout: time.Minute}}
		ctx, cancel := uc.storageContext(context.Background())
		defer cancel()

		deadline, ok := ctx.Deadline()
		require.True(t, ok)
		assert.WithinDuration(t, time.Now().Add(time.Minute), deadline, 5*time.Second)
	})
}
