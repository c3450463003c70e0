package gorm

import (
	"context"

	"go.uber.org/fx"

	"github.com/tigerroll/weatheretl/pkg/batch/adapter/database"
	coreAdapter "github.com/tigerroll/weatheretl/pkg/batch/core/adapter"
	"github.com/tigerroll/weatheretl/pkg/batch/support/util/logger"
)

// Module provides the connection resolver and closes every pooled connection on stop.
// Concrete DBProviders are supplied by the dialect packages.
var Module = fx.Options(
	fx.Provide(NewGormDBConnectionResolver),
	fx.Provide(
		func(r *GormDBConnectionResolver) database.DBConnectionResolver { return r },
		func(r *GormDBConnectionResolver) coreAdapter.ResourceConnectionResolver { return r },
	),
	fx.Invoke(func(lc fx.Lifecycle, r *GormDBConnectionResolver) {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				logger.Debugf("Closing all database connections.")
				return r.CloseAll()
			},
		})
	}),
)
