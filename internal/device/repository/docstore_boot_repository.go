// Package repository implements the storage collaborators for device events:
// boot records in a document store or SQL database, ingested payloads in blob storage.
package repository

import (
	"context"
	"time"

	"gocloud.dev/docstore"

	deviceDomain "github.com/allisson/envoy-gateway/internal/device/domain"
	apperrors "github.com/allisson/envoy-gateway/internal/errors"
)

// bootDocument is the document shape written per device. The collection key field
// must be "device_id".
type bootDocument struct {
	DeviceID      string    `docstore:"device_id"`
	EventID       string    `docstore:"event_id"`
	ConfigVersion string    `docstore:"config_version"`
	IPAddress     string    `docstore:"ip_address"`
	Timestamp     time.Time `docstore:"timestamp"`
}

// DocstoreBootRepository stores boot events in a gocloud docstore collection
// (Firestore in production, memdocstore locally).
type DocstoreBootRepository struct {
	coll *docstore.Collection
}

// Save writes the boot event, replacing any earlier document for the same device.
func (d *DocstoreBootRepository) Save(ctx context.Context, event *deviceDomain.BootEvent) error {
	doc := &bootDocument{
		DeviceID:      event.DeviceID,
		EventID:       event.ID.String(),
		ConfigVersion: event.ConfigVersion,
		IPAddress:     event.IPAddress,
		Timestamp:     event.Timestamp,
	}

	if err := d.coll.Put(ctx, doc); err != nil {
		return apperrors.Wrap(err, "failed to put boot document")
	}
	return nil
}

// NewDocstoreBootRepository creates a new DocstoreBootRepository.
func NewDocstoreBootRepository(coll *docstore.Collection) *DocstoreBootRepository {
	return &DocstoreBootRepository{coll: coll}
}
