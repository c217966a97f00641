// Package domain defines the device-facing models handled by the gateway: boot
// announcements, directives and ingested payloads.
package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultDeviceID is recorded when a boot announcement omits device_id.
	DefaultDeviceID = "unknown_device"
	// DefaultFilename names an ingested payload when the filename query parameter is absent.
	DefaultFilename = "uploaded.file"
	// DefaultContentType is stored for ingested payloads without a Content-Type header.
	DefaultContentType = "application/octet-stream"

	// BootStatusAck is the status returned for an accepted boot announcement.
	BootStatusAck = "boot_ack"
	// IngestStatusAck is the status returned for a stored payload.
	IngestStatusAck = "ingest_ack"
)

// BootEvent is the record written for each boot announcement. Later announcements
// from the same device replace the earlier record.
type BootEvent struct {
	ID            uuid.UUID
	DeviceID      string
	ConfigVersion string
	IPAddress     string
	Timestamp     time.Time
}

// BootFlags are the runtime flags handed back to a device after boot.
type BootFlags struct {
	EnableTelemetry bool
	LogLevel        string
}

// BootAck acknowledges a boot announcement.
type BootAck struct {
	Status string
	Flags  BootFlags
}

// Directive is the command issued to a device that polls for work.
type Directive struct {
	ID      string
	Action  string
	Payload map[string]any
}

// IngestUpload is a verified, still encrypted payload waiting to be stored.
type IngestUpload struct {
	Filename    string
	ContentType string
	Token       []byte
}

// StoredObject describes the object handed to blob storage.
type StoredObject struct {
	Key         string
	ContentType string
	Data        []byte
	Metadata    map[string]string
}

// IngestResult acknowledges a stored payload. Size is the stored (encrypted) object length.
type IngestResult struct {
	Status   string
	Filename string
	Size     int
	Location string
}
