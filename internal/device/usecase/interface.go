package usecase

import (
	"context"

	deviceDomain "github.com/allisson/envoy-gateway/internal/device/domain"
)

// BootRepository persists boot announcements, keyed by device id.
type BootRepository interface {
	Save(ctx context.Context, event *deviceDomain.BootEvent) error
}

// BlobRepository writes ingested objects to blob storage.
type BlobRepository interface {
	Upload(ctx context.Context, object *deviceDomain.StoredObject) error
	// Location returns the externally visible path of key (e.g., "gs://bucket/uploads/x").
	Location(key string) string
}

// PayloadDecrypter opens payload tokens produced with the shared encryption key.
type PayloadDecrypter interface {
	Decrypt(token []byte) ([]byte, error)
}

// DeviceUseCase defines the operations behind the signed device endpoints.
type DeviceUseCase interface {
	BootAnnounce(ctx context.Context, deviceID, configVersion, ipAddress string) (*deviceDomain.BootAck, error)
	FetchDirective(ctx context.Context) (*deviceDomain.Directive, error)
	// Ingest decrypts the verified token and stores it. The stored object is the token
	// itself; the plaintext never leaves the call.
	Ingest(ctx context.Context, upload *deviceDomain.IngestUpload) (*deviceDomain.IngestResult, error)
}
