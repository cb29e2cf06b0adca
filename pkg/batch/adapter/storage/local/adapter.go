// Package local provides a local file system implementation of the storage adapter interfaces.
package local

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	storageAdapter "github.com/ulelab/flowAPIscripts/pkg/batch/adapter/storage"
	storageConfig "github.com/ulelab/flowAPIscripts/pkg/batch/adapter/storage/config"
	"github.com/ulelab/flowAPIscripts/pkg/batch/support/util/logger"
)

const (
	// ProviderType defines the type identifier for this local storage provider.
	ProviderType = "local"
)

// localAdapter implements the storage.StorageConnection interface for local file system operations.
type localAdapter struct {
	cfg storageConfig.StorageConfig
}

// Verify that localAdapter implements the storage.StorageConnection interface.
var _ storageAdapter.StorageConnection = (*localAdapter)(nil)

// NewLocalAdapter creates a new localAdapter. An empty BaseDir means object
// names are used as paths as given; otherwise they must stay inside BaseDir,
// which is created if missing.
func NewLocalAdapter(cfg storageConfig.StorageConfig) (storageAdapter.StorageConnection, error) {
	if cfg.BaseDir != "" {
		info, err := os.Stat(cfg.BaseDir)
		switch {
		case os.IsNotExist(err):
			if err := os.MkdirAll(cfg.BaseDir, 0755); err != nil {
				return nil, fmt.Errorf("local storage: failed to create BaseDir '%s': %w", cfg.BaseDir, err)
			}
		case err != nil:
			return nil, fmt.Errorf("local storage: failed to stat BaseDir '%s': %w", cfg.BaseDir, err)
		case !info.IsDir():
			return nil, fmt.Errorf("local storage: BaseDir '%s' is not a directory", cfg.BaseDir)
		}
	}
	return &localAdapter{cfg: cfg}, nil
}

// Close does nothing for the local file system adapter as it holds no special resources.
func (a *localAdapter) Close() error {
	return nil
}

// Type returns the type of the adapter, which is "local".
func (a *localAdapter) Type() string {
	return ProviderType
}

// Upload writes data to bucket/objectName, creating parent directories.
// The file is written to a temporary name first and renamed into place.
func (a *localAdapter) Upload(ctx context.Context, bucket, objectName string, data io.Reader, contentType string) error {
	fullPath, err := a.resolvePath(bucket, objectName)
	if err != nil {
		return fmt.Errorf("failed to resolve path for upload: %w", err)
	}

	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory '%s': %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(fullPath)+".*")
	if err != nil {
		return fmt.Errorf("failed to create file in '%s': %w", dir, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write data to '%s': %w", fullPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close '%s': %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), fullPath); err != nil {
		return fmt.Errorf("failed to move data into '%s': %w", fullPath, err)
	}
	logger.Debugf("Wrote '%s' (%s).", fullPath, contentType)
	return nil
}

// resolvePath joins BaseDir, bucket and objectName. With a BaseDir set, the
// result must not escape it.
func (a *localAdapter) resolvePath(bucket, objectName string) (string, error) {
	if objectName == "" {
		return "", fmt.Errorf("object name must not be empty")
	}
	if bucket == "" {
		bucket = a.cfg.BucketName
	}
	baseDir := a.cfg.BaseDir
	if baseDir == "" {
		return filepath.Join(bucket, objectName), nil
	}

	fullPath := filepath.Join(baseDir, bucket, objectName)
	absBaseDir, err := filepath.Abs(baseDir)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path for BaseDir '%s': %w", baseDir, err)
	}
	absFullPath, err := filepath.Abs(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path for '%s': %w", fullPath, err)
	}
	if absFullPath != absBaseDir && !strings.HasPrefix(absFullPath, absBaseDir+string(filepath.Separator)) {
		return "", fmt.Errorf("resolved path '%s' is outside of BaseDir '%s'", fullPath, baseDir)
	}
	return fullPath, nil
}

// LocalProvider opens local file system connections.
type LocalProvider struct{}

// NewLocalProvider creates a new LocalProvider instance.
func NewLocalProvider() *LocalProvider {
	return &LocalProvider{}
}

// Open implements storage.StorageProvider.
func (p *LocalProvider) Open(ctx context.Context, cfg storageConfig.StorageConfig) (storageAdapter.StorageConnection, error) {
	return NewLocalAdapter(cfg)
}

// Type returns the type of resource handled by this provider, which is "local".
func (p *LocalProvider) Type() string {
	return ProviderType
}

var _ storageAdapter.StorageProvider = (*LocalProvider)(nil)
