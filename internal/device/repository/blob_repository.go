package repository

import (
	"context"
	"net/url"
	"strings"

	"gocloud.dev/blob"

	deviceDomain "github.com/allisson/envoy-gateway/internal/device/domain"
	apperrors "github.com/allisson/envoy-gateway/internal/errors"
)

// BlobRepository writes ingested objects to a gocloud bucket
// (gcsblob, s3blob, fileblob or memblob).
type BlobRepository struct {
	bucket *blob.Bucket
	base   string
}

// Upload writes the object in a single call with its content type and metadata.
func (b *BlobRepository) Upload(ctx context.Context, object *deviceDomain.StoredObject) error {
	opts := &blob.WriterOptions{
		ContentType: object.ContentType,
		Metadata:    object.Metadata,
	}

	if err := b.bucket.WriteAll(ctx, object.Key, object.Data, opts); err != nil {
		return apperrors.Wrapf(err, "failed to write object %q", object.Key)
	}
	return nil
}

// Location returns the bucket URL without query parameters joined with key,
// e.g. "gs://envoy-uploads/uploads/2024-05-17T09:30:15Z_a.bin".
func (b *BlobRepository) Location(key string) string {
	return b.base + "/" + key
}

// NewBlobRepository creates a new BlobRepository. bucketURL is the URL the bucket
// was opened with; it only determines the locations reported to devices.
func NewBlobRepository(bucket *blob.Bucket, bucketURL string) *BlobRepository {
	return &BlobRepository{bucket: bucket, base: locationBase(bucketURL)}
}

// locationBase strips query parameters and trailing slashes from a bucket URL.
func locationBase(bucketURL string) string {
	u, err := url.Parse(bucketURL)
	if err != nil || u.Scheme == "" {
		return strings.TrimSuffix(bucketURL, "/")
	}
	return u.Scheme + "://" + u.Host + strings.TrimSuffix(u.Path, "/")
}
