package migration

import (
	"io/fs"

	"go.uber.org/fx"

	database "github.com/tigerroll/weatheretl/pkg/batch/adapter/database"
	"github.com/tigerroll/weatheretl/pkg/batch/core/config/jsl"
)

// TaskletRef is the tasklet ref used in job.yaml.
const TaskletRef = "migrationTasklet"

type builderParams struct {
	fx.In
	Resolver    database.DBConnectionResolver
	MigrationFS fs.FS `name:"migrationFS"`
}

func provideTaskletBuilder(p builderParams) jsl.NamedTaskletBuilder {
	return jsl.NamedTaskletBuilder{Ref: TaskletRef, Builder: NewTaskletBuilder(p.Resolver, p.MigrationFS)}
}

// Module registers the migration tasklet builder. The application supplies the
// migration FS as a value named "migrationFS".
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		provideTaskletBuilder,
		fx.ResultTags(`group:"`+jsl.TaskletBuilderGroup+`"`),
	)),
)
