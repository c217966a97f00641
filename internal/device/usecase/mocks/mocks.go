// Package mocks provides mock implementations of the device use case collaborators.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	deviceDomain "github.com/allisson/envoy-gateway/internal/device/domain"
)

// MockBootRepository is a mock implementation of BootRepository.
type MockBootRepository struct {
	mock.Mock
}

// Save mocks the Save method of BootRepository.
func (m *MockBootRepository) Save(ctx context.Context, event *deviceDomain.BootEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// MockBlobRepository is a mock implementation of BlobRepository.
type MockBlobRepository struct {
	mock.Mock
}

// Upload mocks the Upload method of BlobRepository.
func (m *MockBlobRepository) Upload(ctx context.Context, object *deviceDomain.StoredObject) error {
	args := m.Called(ctx, object)
	return args.Error(0)
}

// Location mocks the Location method of BlobRepository.
func (m *MockBlobRepository) Location(key string) string {
	args := m.Called(key)
	return args.String(0)
}

// MockPayloadDecrypter is a mock implementation of PayloadDecrypter.
type MockPayloadDecrypter struct {
	mock.Mock
}

// Decrypt mocks the Decrypt method of PayloadDecrypter.
func (m *MockPayloadDecrypter) Decrypt(token []byte) ([]byte, error) {
	args := m.Called(token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// MockDeviceUseCase is a mock implementation of DeviceUseCase.
type MockDeviceUseCase struct {
	mock.Mock
}

// BootAnnounce mocks the BootAnnounce method of DeviceUseCase.
func (m *MockDeviceUseCase) BootAnnounce(
	ctx context.Context,
	deviceID, configVersion, ipAddress string,
) (*deviceDomain.BootAck, error) {
	args := m.Called(ctx, deviceID, configVersion, ipAddress)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*deviceDomain.BootAck), args.Error(1)
}

// FetchDirective mocks the FetchDirective method of DeviceUseCase.
func (m *MockDeviceUseCase) FetchDirective(ctx context.Context) (*deviceDomain.Directive, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*deviceDomain.Directive), args.Error(1)
}

// Ingest mocks the Ingest method of DeviceUseCase.
func (m *MockDeviceUseCase) Ingest(
	ctx context.Context,
	upload *deviceDomain.IngestUpload,
) (*deviceDomain.IngestResult, error) {
	args := m.Called(ctx, upload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*deviceDomain.IngestResult), args.Error(1)
}
