package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	deviceDomain "github.com/allisson/envoy-gateway/internal/device/domain"
	deviceUsecaseMocks "github.com/allisson/envoy-gateway/internal/device/usecase/mocks"
	"github.com/allisson/envoy-gateway/internal/metrics"
)

// mockBusinessMetrics is a mock implementation of metrics.BusinessMetrics for testing.
type mockBusinessMetrics struct {
	mock.Mock
}

func (m *mockBusinessMetrics) RecordOperation(ctx context.Context, domain, operation, status string) {
	m.Called(ctx, domain, operation, status)
}

func (m *mockBusinessMetrics) RecordDuration(
	ctx context.Context,
	domain, operation string,
	duration time.Duration,
	status string,
) {
	m.Called(ctx, domain, operation, duration, status)
}

func (m *mockBusinessMetrics) RecordPayloadSize(ctx context.Context, domain, operation string, size int) {
	m.Called(ctx, domain, operation, size)
}

var _ metrics.BusinessMetrics = (*mockBusinessMetrics)(nil)

func expectMetrics(m *mockBusinessMetrics, ctx context.Context, operation, status string) {
	m.On("RecordOperation", ctx, "device", operation, status).Return().Once()
	m.On("RecordDuration", ctx, "device", operation, mock.AnythingOfType("time.Duration"), status).
		Return().
		Once()
}

// TestNewDeviceUseCaseWithMetrics tests the metrics decorator constructor.
func TestNewDeviceUseCaseWithMetrics(t *testing.T) {
	decorator := NewDeviceUseCaseWithMetrics(&deviceUsecaseMocks.MockDeviceUseCase{}, &mockBusinessMetrics{})

	assert.NotNil(t, decorator)
	assert.Implements(t, (*DeviceUseCase)(nil), decorator)
}

func TestMetricsDecorator_BootAnnounce(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_RecordsSuccessMetrics", func(t *testing.T) {
		mockUseCase := &deviceUsecaseMocks.MockDeviceUseCase{}
		mockMetrics := &mockBusinessMetrics{}
		ack := &deviceDomain.BootAck{Status: deviceDomain.BootStatusAck}

		mockUseCase.On("BootAnnounce", ctx, "dev-1", "v1", "10.0.0.1").Return(ack, nil).Once()
		expectMetrics(mockMetrics, ctx, "boot_announce", "success")

		result, err := NewDeviceUseCaseWithMetrics(mockUseCase, mockMetrics).
			BootAnnounce(ctx, "dev-1", "v1", "10.0.0.1")

		assert.NoError(t, err)
		assert.Equal(t, ack, result)
		mockMetrics.AssertExpectations(t)
	})

	t.Run("Error_RecordsErrorMetrics", func(t *testing.T) {
		mockUseCase := &deviceUsecaseMocks.MockDeviceUseCase{}
		mockMetrics := &mockBusinessMetrics{}

		mockUseCase.On("BootAnnounce", ctx, "dev-1", "v1", "10.0.0.1").
			Return(nil, deviceDomain.ErrStorageFailed).
			Once()
		expectMetrics(mockMetrics, ctx, "boot_announce", "error")

		result, err := NewDeviceUseCaseWithMetrics(mockUseCase, mockMetrics).
			BootAnnounce(ctx, "dev-1", "v1", "10.0.0.1")

		assert.ErrorIs(t, err, deviceDomain.ErrStorageFailed)
		assert.Nil(t, result)
		mockMetrics.AssertExpectations(t)
	})
}

func TestMetricsDecorator_FetchDirective(t *testing.T) {
	ctx := context.Background()
	mockUseCase := &deviceUsecaseMocks.MockDeviceUseCase{}
	mockMetrics := &mockBusinessMetrics{}
	directive := &deviceDomain.Directive{ID: "cmd_1", Action: "SYNC_FILES"}

	mockUseCase.On("FetchDirective", ctx).Return(directive, nil).Once()
	expectMetrics(mockMetrics, ctx, "directive_fetch", "success")

	result, err := NewDeviceUseCaseWithMetrics(mockUseCase, mockMetrics).FetchDirective(ctx)

	assert.NoError(t, err)
	assert.Equal(t, directive, result)
	mockMetrics.AssertExpectations(t)
}

func TestMetricsDecorator_Ingest(t *testing.T) {
	ctx := context.Background()
	upload := &deviceDomain.IngestUpload{Filename: "a.bin", Token: []byte("token")}

	t.Run("Success_RecordsSuccessMetrics", func(t *testing.T) {
		mockUseCase := &deviceUsecaseMocks.MockDeviceUseCase{}
		mockMetrics := &mockBusinessMetrics{}
		expected := &deviceDomain.IngestResult{Status: deviceDomain.IngestStatusAck, Filename: "a.bin", Size: 3}

		mockUseCase.On("Ingest", ctx, upload).Return(expected, nil).Once()
		expectMetrics(mockMetrics, ctx, "file_ingest", "success")
		mockMetrics.On("RecordPayloadSize", ctx, "device", "file_ingest", 3).Return().Once()

		result, err := NewDeviceUseCaseWithMetrics(mockUseCase, mockMetrics).Ingest(ctx, upload)

		assert.NoError(t, err)
		assert.Equal(t, expected, result)
		mockMetrics.AssertExpectations(t)
	})

	t.Run("Error_RecordsErrorMetrics", func(t *testing.T) {
		mockUseCase := &deviceUsecaseMocks.MockDeviceUseCase{}
		mockMetrics := &mockBusinessMetrics{}
		expectedErr := errors.New("decrypt failed")

		mockUseCase.On("Ingest", ctx, upload).Return(nil, expectedErr).Once()
		expectMetrics(mockMetrics, ctx, "file_ingest", "error")

		result, err := NewDeviceUseCaseWithMetrics(mockUseCase, mockMetrics).Ingest(ctx, upload)

		assert.Equal(t, expectedErr, err)
		assert.Nil(t, result)
		mockMetrics.AssertExpectations(t)
	})
}
