// internal/adapters/out/gcs/metadata_uploader_gcs.go
package gcs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/zeebo/blake3"
)

// GCSPublicURL is the public object URL format.
const GCSPublicURL = "https://storage.googleapis.com/%s/%s"

// =====================================================
// GCS-based token metadata uploader
// =====================================================

type MetadataUploaderGCS struct {
	Client *storage.Client
	Bucket string
	// Prefix is prepended to object names, e.g. "metadata/".
	Prefix string
}

func NewMetadataUploaderGCS(client *storage.Client, bucket, prefix string) *MetadataUploaderGCS {
	return &MetadataUploaderGCS{
		Client: client,
		Bucket: strings.TrimSpace(bucket),
		Prefix: strings.TrimLeft(strings.TrimSpace(prefix), "/"),
	}
}

// ObjectName is content addressed so re-uploading identical metadata is a no-op.
func (u *MetadataUploaderGCS) ObjectName(data []byte) string {
	sum := blake3.Sum256(data)
	return fmt.Sprintf("%s%x.json", u.Prefix, sum[:16])
}

// UploadMetadata implements usecase.MetadataUploader.
func (u *MetadataUploaderGCS) UploadMetadata(ctx context.Context, data []byte) (string, error) {
	if u.Client == nil {
		return "", errors.New("metadata: GCS client is nil")
	}
	if u.Bucket == "" {
		return "", errors.New("metadata: bucket is empty")
	}
	if len(data) == 0 {
		return "", errors.New("metadata: data is empty")
	}

	name := u.ObjectName(data)
	cctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	w := u.Client.Bucket(u.Bucket).Object(name).NewWriter(cctx)
	w.ContentType = "application/json"
	w.CacheControl = "public, max-age=31536000, immutable"

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("metadata: write gs://%s/%s: %w", u.Bucket, name, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("metadata: close gs://%s/%s: %w", u.Bucket, name, err)
	}

	uri := fmt.Sprintf(GCSPublicURL, u.Bucket, name)
	log.Printf("[gcs] metadata uploaded uri=%s", uri)
	return uri, nil
}
