package local

import (
	"go.uber.org/fx"

	storageAdapter "github.com/tigerroll/weatheretl/pkg/batch/adapter/storage"
)

// Module provides the local StorageProvider into the storage_providers group.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewLocalProvider,
		fx.ResultTags(`group:"`+storageAdapter.StorageProviderGroup+`"`),
	)),
)
