package local

import (
	"go.uber.org/fx"

	storageAdapter "github.com/ulelab/flowAPIscripts/pkg/batch/adapter/storage"
)

// Module is the Fx module for the Local storage adapter.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewLocalProvider,
		fx.As(new(storageAdapter.StorageProvider)),
		fx.ResultTags(`group:"storage_providers"`),
	)),
)
