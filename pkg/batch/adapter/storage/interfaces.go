// Package storage defines the object storage abstraction used to persist run
// reports. Backends (local file system, GCS) register a StorageProvider and
// are selected by the scheme of the destination URI.
package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	storageConfig "github.com/ulelab/flowAPIscripts/pkg/batch/adapter/storage/config"
)

// StorageExecutor defines generic storage operations.
type StorageExecutor interface {
	// Upload writes data to the given bucket and object name.
	// 'contentType' is the MIME type of the data.
	Upload(ctx context.Context, bucket, objectName string, data io.Reader, contentType string) error
}

// StorageConnection is an open handle on one storage backend.
type StorageConnection interface {
	StorageExecutor
	// Close releases the resources held by the connection.
	Close() error
	// Type returns the backend type, e.g. "local" or "gcs".
	Type() string
}

// StorageProvider opens connections for one backend type.
type StorageProvider interface {
	// Open creates a connection from cfg.
	Open(ctx context.Context, cfg storageConfig.StorageConfig) (StorageConnection, error)
	// Type returns the backend type handled by this provider.
	Type() string
}

// Location is a parsed destination URI.
type Location struct {
	// Type selects the provider: "gcs" for gs:// URIs and "local" otherwise.
	Type   string
	Bucket string
	Object string
}

// String renders the location back as a URI.
func (l Location) String() string {
	if l.Type == "gcs" {
		return "gs://" + l.Bucket + "/" + l.Object
	}
	return l.Object
}

// ParseURI parses "gs://bucket/path/to/object" or a local file path.
func ParseURI(uri string) (Location, error) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return Location{}, fmt.Errorf("storage URI must not be empty")
	}
	if rest, ok := strings.CutPrefix(uri, "gs://"); ok {
		bucket, object, _ := strings.Cut(rest, "/")
		if bucket == "" || object == "" {
			return Location{}, fmt.Errorf("invalid GCS URI %q: expected gs://bucket/object", uri)
		}
		return Location{Type: "gcs", Bucket: bucket, Object: object}, nil
	}
	if strings.Contains(uri, "://") {
		return Location{}, fmt.Errorf("unsupported storage URI scheme in %q", uri)
	}
	return Location{Type: "local", Object: uri}, nil
}

// ProviderMap indexes providers by Type.
func ProviderMap(providers []StorageProvider) map[string]StorageProvider {
	m := make(map[string]StorageProvider, len(providers))
	for _, p := range providers {
		m[p.Type()] = p
	}
	return m
}
