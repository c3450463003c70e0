package postgres

import (
	"go.uber.org/fx"

	"github.com/tigerroll/weatheretl/pkg/batch/adapter/database"
)

// Module provides the PostgreSQL DBProvider into the db_providers group.
var Module = fx.Options(
	fx.Provide(
		fx.Annotate(
			NewProvider,
			fx.ResultTags(`group:"`+database.DBProviderGroup+`"`),
		),
	),
)
