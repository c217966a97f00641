// Package usecase implements the device operations behind the signed endpoints:
// boot announcements, directive polling and encrypted payload ingestion.
package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	cryptoDomain "github.com/allisson/envoy-gateway/internal/crypto/domain"
	deviceDomain "github.com/allisson/envoy-gateway/internal/device/domain"
)

// Metadata keys attached to stored ingest objects.
const (
	MetadataFilename        = "filename"
	MetadataPlaintextSize   = "plaintext-size"
	MetadataPlaintextSHA256 = "plaintext-sha256"
)

// Options holds the static values returned to devices and the storage settings.
type Options struct {
	BootFlags           deviceDomain.BootFlags
	DirectiveAction     string
	DirectiveTargetPath string
	IngestPrefix        string
	StorageTimeout      time.Duration
}

// deviceUseCase implements the DeviceUseCase interface.
type deviceUseCase struct {
	bootRepo BootRepository
	blobRepo BlobRepository
	cipher   PayloadDecrypter
	opts     Options
	now      func() time.Time
}

// BootAnnounce records the boot event and returns the configured runtime flags.
func (d *deviceUseCase) BootAnnounce(
	ctx context.Context,
	deviceID, configVersion, ipAddress string,
) (*deviceDomain.BootAck, error) {
	if deviceID == "" {
		deviceID = deviceDomain.DefaultDeviceID
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}

	event := &deviceDomain.BootEvent{
		ID:            id,
		DeviceID:      deviceID,
		ConfigVersion: configVersion,
		IPAddress:     ipAddress,
		Timestamp:     d.now().UTC(),
	}

	storageCtx, cancel := d.storageContext(ctx)
	defer cancel()

	if err := d.bootRepo.Save(storageCtx, event); err != nil {
		return nil, fmt.Errorf("%w: boot event: %w", deviceDomain.ErrStorageFailed, err)
	}

	return &deviceDomain.BootAck{
		Status: deviceDomain.BootStatusAck,
		Flags:  d.opts.BootFlags,
	}, nil
}

// FetchDirective returns the current directive. Directive ids are derived from the
// issue time in whole seconds.
func (d *deviceUseCase) FetchDirective(ctx context.Context) (*deviceDomain.Directive, error) {
	return &deviceDomain.Directive{
		ID:     "cmd_" + strconv.FormatInt(d.now().Unix(), 10),
		Action: d.opts.DirectiveAction,
		Payload: map[string]any{
			"target_path": d.opts.DirectiveTargetPath,
		},
	}, nil
}

// Ingest decrypts the token, then stores the token under a timestamped key.
func (d *deviceUseCase) Ingest(
	ctx context.Context,
	upload *deviceDomain.IngestUpload,
) (*deviceDomain.IngestResult, error) {
	filename := upload.Filename
	if filename == "" {
		filename = deviceDomain.DefaultFilename
	}
	if filename == "." || filename == ".." || strings.ContainsAny(filename, `/\`) {
		return nil, deviceDomain.ErrInvalidFilename
	}
	contentType := upload.ContentType
	if contentType == "" {
		contentType = deviceDomain.DefaultContentType
	}

	plaintext, err := d.cipher.Decrypt(upload.Token)
	if err != nil {
		return nil, err
	}
	defer cryptoDomain.Zero(plaintext)

	digest := sha256.Sum256(plaintext)
	key := d.opts.IngestPrefix + d.now().UTC().Format(time.RFC3339Nano) + "_" + filename

	object := &deviceDomain.StoredObject{
		Key:         key,
		ContentType: contentType,
		Data:        upload.Token,
		Metadata: map[string]string{
			MetadataFilename:        filename,
			MetadataPlaintextSize:   strconv.Itoa(len(plaintext)),
			MetadataPlaintextSHA256: hex.EncodeToString(digest[:]),
		},
	}

	storageCtx, cancel := d.storageContext(ctx)
	defer cancel()

	if err := d.blobRepo.Upload(storageCtx, object); err != nil {
		return nil, fmt.Errorf("%w: ingest object: %w", deviceDomain.ErrStorageFailed, err)
	}

	return &deviceDomain.IngestResult{
		Status:   deviceDomain.IngestStatusAck,
		Filename: filename,
		Size:     len(upload.Token),
		Location: d.blobRepo.Location(key),
	}, nil
}

// storageContext bounds a storage write by the configured timeout.
func (d *deviceUseCase) storageContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.opts.StorageTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d.opts.StorageTimeout)
}

// NewDeviceUseCase creates a new DeviceUseCase.
func NewDeviceUseCase(
	bootRepo BootRepository,
	blobRepo BlobRepository,
	cipher PayloadDecrypter,
	opts Options,
) DeviceUseCase {
	return &deviceUseCase{
		bootRepo: bootRepo,
		blobRepo: blobRepo,
		cipher:   cipher,
		opts:     opts,
		now:      time.Now,
	}
}
