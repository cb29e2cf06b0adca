package gcs

import (
	"go.uber.org/fx"

	storageAdapter "github.com/ulelab/flowAPIscripts/pkg/batch/adapter/storage"
)

// Module registers the GCS provider in the storage_providers group.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		func() *GCSProvider { return NewGCSProvider() },
		fx.As(new(storageAdapter.StorageProvider)),
		fx.ResultTags(`group:"storage_providers"`),
	)),
)
