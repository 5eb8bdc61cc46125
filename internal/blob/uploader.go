package blob

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/astlabs/run-portal/internal/config"
)

// Handle identifies an uploaded object in the blob store.
type Handle struct {
	BlobName string
	URL      string
	ETag     string
}

// Uploader writes run input files to blob storage.
type Uploader interface {
	Upload(ctx context.Context, runID, fileName, fileType string, data []byte) (Handle, error)
}

// MinioUploader stores run input files in an S3-compatible bucket.
type MinioUploader struct {
	client *minio.Client
	bucket string
}

// NewMinioUploader builds a client for the configured endpoint. Credentials
// are validated here so a misconfigured store fails at startup.
func NewMinioUploader(cfg config.StorageConfig) (*MinioUploader, error) {
	if cfg.Endpoint == "" || cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("blob storage connection not configured")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create blob client: %w", err)
	}
	return &MinioUploader{client: client, bucket: cfg.Container}, nil
}

// EnsureBucket creates the input bucket if it does not exist yet.
func (u *MinioUploader) EnsureBucket(ctx context.Context) error {
	exists, err := u.client.BucketExists(ctx, u.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %q: %w", u.bucket, err)
	}
	if exists {
		return nil
	}
	if err := u.client.MakeBucket(ctx, u.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket %q: %w", u.bucket, err)
	}
	return nil
}

// Upload writes the file under the run's derived blob name. One attempt,
// no retry; the name is deterministic per run ID, so a repeat upload for
// the same run overwrites rather than duplicates.
func (u *MinioUploader) Upload(ctx context.Context, runID, fileName, fileType string, data []byte) (Handle, error) {
	name := BlobName(fileName, runID)
	info, err := u.client.PutObject(ctx, u.bucket, name, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: fileType,
	})
	if err != nil {
		return Handle{}, fmt.Errorf("upload %s: %w", name, err)
	}
	return Handle{
		BlobName: name,
		URL:      fmt.Sprintf("%s/%s/%s", u.client.EndpointURL(), u.bucket, name),
		ETag:     info.ETag,
	}, nil
}

// BlobName derives the storage path for a run's input file from the run ID
// and the original file extension, defaulting to a generic binary extension.
func BlobName(fileName, runID string) string {
	ext := "bin"
	if i := strings.LastIndex(fileName, "."); i >= 0 && i < len(fileName)-1 {
		ext = fileName[i+1:]
	}
	return fmt.Sprintf("%s/input-file.%s", runID, ext)
}
