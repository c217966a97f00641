package dto

import (
	deviceDomain "github.com/allisson/envoy-gateway/internal/device/domain"
)

// BootFlagsResponse holds the runtime flags returned to a booting device.
type BootFlagsResponse struct {
	EnableTelemetry bool   `json:"enable_telemetry"`
	LogLevel        string `json:"log_level"`
}

// BootResponse acknowledges a boot announcement.
type BootResponse struct {
	Status string            `json:"status"`
	Flags  BootFlagsResponse `json:"flags"`
}

// MapBootAckToResponse converts a domain boot acknowledgment to an API response.
func MapBootAckToResponse(ack *deviceDomain.BootAck) BootResponse {
	return BootResponse{
		Status: ack.Status,
		Flags: BootFlagsResponse{
			EnableTelemetry: ack.Flags.EnableTelemetry,
			LogLevel:        ack.Flags.LogLevel,
		},
	}
}

// DirectiveResponse carries the directive issued to a device.
type DirectiveResponse struct {
	DirectiveID string         `json:"directive_id"`
	Action      string         `json:"action"`
	Payload     map[string]any `json:"payload"`
}

// MapDirectiveToResponse converts a domain directive to an API response.
func MapDirectiveToResponse(directive *deviceDomain.Directive) DirectiveResponse {
	return DirectiveResponse{
		DirectiveID: directive.ID,
		Action:      directive.Action,
		Payload:     directive.Payload,
	}
}

// IngestResponse acknowledges a stored payload.
// Size is the length in bytes of the stored encrypted payload.
type IngestResponse struct {
	Status   string `json:"status"`
	Filename string `json:"filename"`
	Size     int    `json:"size"`
	GCSPath  string `json:"gcs_path"`
}

// MapIngestResultToResponse converts a domain ingest result to an API response.
func MapIngestResultToResponse(result *deviceDomain.IngestResult) IngestResponse {
	return IngestResponse{
		Status:   result.Status,
		Filename: result.Filename,
		Size:     result.Size,
		GCSPath:  result.Location,
	}
}
