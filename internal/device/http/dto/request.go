// Package dto provides data transfer objects for HTTP request and response handling.
package dto

import (
	"bytes"
	"encoding/json"

	validation "github.com/jellydator/validation"

	customValidation "github.com/allisson/envoy-gateway/internal/validation"
)

// BootRequest is the boot announcement body. Both fields are optional; unknown fields
// such as firmware_version are ignored.
type BootRequest struct {
	DeviceID      string        `json:"device_id"`
	ConfigVersion ConfigVersion `json:"config_version"`
}

// ConfigVersion is the device-reported configuration version. Devices send it either as a
// string ("v2") or as a bare JSON value (5); a string keeps its text, any other value is
// kept as its compact JSON encoding, and null is empty.
type ConfigVersion string

// UnmarshalJSON implements json.Unmarshaler.
func (v *ConfigVersion) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = ConfigVersion(s)
		return nil
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, data); err != nil {
		return err
	}
	*v = ConfigVersion(compact.String())
	return nil
}

// Validate checks if the boot request is valid.
func (r *BootRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.DeviceID,
			validation.Length(0, 255),
			customValidation.NoWhitespace,
			customValidation.Printable,
		),
		validation.Field(&r.ConfigVersion,
			validation.Length(0, 255),
			customValidation.Printable,
		),
	)
}

// IngestQuery holds the ingest query parameters.
type IngestQuery struct {
	Filename string `form:"filename"`
}

// Validate checks if the ingest query is valid.
func (q *IngestQuery) Validate() error {
	return validation.ValidateStruct(q,
		validation.Field(&q.Filename,
			validation.Length(0, 255),
			customValidation.NotBlank,
			customValidation.Printable,
			customValidation.ObjectName,
		),
	)
}
