package commands

import (
	"context"
	"io"

	"github.com/allisson/envoy-gateway/internal/device/client"
	"github.com/allisson/envoy-gateway/internal/device/http/dto"
)

// DeviceClient is the subset of the device client the send-* commands use.
type DeviceClient interface {
	Health(ctx context.Context) (*client.HealthResponse, error)
	Boot(ctx context.Context, deviceID, configVersion string) (*dto.BootResponse, error)
	Directive(ctx context.Context) (*dto.DirectiveResponse, error)
	Ingest(ctx context.Context, filename string, plaintext []byte) (*dto.IngestResponse, error)
}

// RunCheckHealth calls the gateway health endpoint and prints the response.
func RunCheckHealth(ctx context.Context, c DeviceClient, w io.Writer) error {
	response, err := c.Health(ctx)
	if err != nil {
		return err
	}
	return writeJSON(w, response)
}

// RunSendBoot announces a boot and prints the acknowledgment.
func RunSendBoot(ctx context.Context, c DeviceClient, w io.Writer, deviceID, configVersion string) error {
	response, err := c.Boot(ctx, deviceID, configVersion)
	if err != nil {
		return err
	}
	return writeJSON(w, response)
}

// RunSendDirective polls for a directive and prints it.
func RunSendDirective(ctx context.Context, c DeviceClient, w io.Writer) error {
	response, err := c.Directive(ctx)
	if err != nil {
		return err
	}
	return writeJSON(w, response)
}

// RunSendIngest encrypts data and uploads it under filename, printing the acknowledgment.
func RunSendIngest(ctx context.Context, c DeviceClient, w io.Writer, filename string, data []byte) error {
	response, err := c.Ingest(ctx, filename, data)
	if err != nil {
		return err
	}
	return writeJSON(w, response)
}
