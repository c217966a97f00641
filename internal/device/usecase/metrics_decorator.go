package usecase

import (
	"context"
	"time"

	deviceDomain "github.com/allisson/envoy-gateway/internal/device/domain"
	"github.com/allisson/envoy-gateway/internal/metrics"
)

// deviceUseCaseWithMetrics decorates DeviceUseCase with metrics instrumentation.
type deviceUseCaseWithMetrics struct {
	next    DeviceUseCase
	metrics metrics.BusinessMetrics
}

// NewDeviceUseCaseWithMetrics wraps a DeviceUseCase with metrics recording.
func NewDeviceUseCaseWithMetrics(useCase DeviceUseCase, m metrics.BusinessMetrics) DeviceUseCase {
	return &deviceUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// BootAnnounce records metrics for boot announcements.
func (d *deviceUseCaseWithMetrics) BootAnnounce(
	ctx context.Context,
	deviceID, configVersion, ipAddress string,
) (*deviceDomain.BootAck, error) {
	start := time.Now()
	ack, err := d.next.BootAnnounce(ctx, deviceID, configVersion, ipAddress)
	d.record(ctx, "boot_announce", start, err)
	return ack, err
}

// FetchDirective records metrics for directive polling.
func (d *deviceUseCaseWithMetrics) FetchDirective(ctx context.Context) (*deviceDomain.Directive, error) {
	start := time.Now()
	directive, err := d.next.FetchDirective(ctx)
	d.record(ctx, "directive_fetch", start, err)
	return directive, err
}

// Ingest records metrics for payload ingestion.
func (d *deviceUseCaseWithMetrics) Ingest(
	ctx context.Context,
	upload *deviceDomain.IngestUpload,
) (*deviceDomain.IngestResult, error) {
	start := time.Now()
	result, err := d.next.Ingest(ctx, upload)
	d.record(ctx, "file_ingest", start, err)
	if err == nil {
		d.metrics.RecordPayloadSize(ctx, "device", "file_ingest", result.Size)
	}
	return result, err
}

func (d *deviceUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	d.metrics.RecordOperation(ctx, "device", operation, status)
	d.metrics.RecordDuration(ctx, "device", operation, time.Since(start), status)
}
