// Package gcs provides a Google Cloud Storage implementation of the storage adapter interfaces.
package gcs

import (
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	storageAdapter "github.com/ulelab/flowAPIscripts/pkg/batch/adapter/storage"
	storageConfig "github.com/ulelab/flowAPIscripts/pkg/batch/adapter/storage/config"
	"github.com/ulelab/flowAPIscripts/pkg/batch/support/util/logger"
)

// ProviderType is the type identifier of the GCS provider.
const ProviderType = "gcs"

type gcsAdapter struct {
	client        *storage.Client
	defaultBucket string
}

var _ storageAdapter.StorageConnection = (*gcsAdapter)(nil)

// NewGCSAdapter creates a connection backed by client. The adapter owns the
// client and closes it on Close.
func NewGCSAdapter(client *storage.Client, defaultBucket string) storageAdapter.StorageConnection {
	return &gcsAdapter{client: client, defaultBucket: defaultBucket}
}

func (a *gcsAdapter) Close() error {
	return a.client.Close()
}

func (a *gcsAdapter) Type() string {
	return ProviderType
}

func (a *gcsAdapter) bucket(name string) (string, error) {
	if name == "" {
		name = a.defaultBucket
	}
	if name == "" {
		return "", fmt.Errorf("gcs: bucket name must be set")
	}
	return name, nil
}

// Upload streams data into gs://bucket/objectName.
func (a *gcsAdapter) Upload(ctx context.Context, bucket, objectName string, data io.Reader, contentType string) error {
	bucket, err := a.bucket(bucket)
	if err != nil {
		return err
	}
	w := a.client.Bucket(bucket).Object(objectName).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, data); err != nil {
		w.Close()
		return fmt.Errorf("gcs: failed to write gs://%s/%s: %w", bucket, objectName, err)
	}
	// The object is only committed once Close succeeds.
	if err := w.Close(); err != nil {
		return fmt.Errorf("gcs: failed to finalize gs://%s/%s: %w", bucket, objectName, err)
	}
	logger.Debugf("Uploaded gs://%s/%s (%s).", bucket, objectName, contentType)
	return nil
}

// GCSProvider opens GCS connections using application default credentials or
// the configured service account key file.
type GCSProvider struct {
	// extra options are appended to every client; tests use them to point at an emulator.
	extra []option.ClientOption
}

// NewGCSProvider creates a GCSProvider.
func NewGCSProvider(opts ...option.ClientOption) *GCSProvider {
	return &GCSProvider{extra: opts}
}

// Open implements storage.StorageProvider.
func (p *GCSProvider) Open(ctx context.Context, cfg storageConfig.StorageConfig) (storageAdapter.StorageConnection, error) {
	opts := append([]option.ClientOption(nil), p.extra...)
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcs: failed to create client: %w", err)
	}
	return NewGCSAdapter(client, cfg.BucketName), nil
}

// Type returns "gcs".
func (p *GCSProvider) Type() string {
	return ProviderType
}

var _ storageAdapter.StorageProvider = (*GCSProvider)(nil)
