package migration

import (
	"context"
	"io/fs"

	database "github.com/tigerroll/weatheretl/pkg/batch/adapter/database"
	dbconfig "github.com/tigerroll/weatheretl/pkg/batch/adapter/database/config"
	port "github.com/tigerroll/weatheretl/pkg/batch/core/application/port"
	config "github.com/tigerroll/weatheretl/pkg/batch/core/config"
	model "github.com/tigerroll/weatheretl/pkg/batch/core/domain/model"
	"github.com/tigerroll/weatheretl/pkg/batch/support/util/configbinder"
	"github.com/tigerroll/weatheretl/pkg/batch/support/util/exception"
	"github.com/tigerroll/weatheretl/pkg/batch/support/util/logger"
)

const moduleName = "migration_tasklet"

// ExecutionContext key holding the schema version after the tasklet ran.
const VersionKey = "migration.version"

// TaskletProperties are bound from the step's tasklet properties in job.yaml.
type TaskletProperties struct {
	// DBRef names the database connection to migrate.
	DBRef string `yaml:"dbRef"`
	// MigrationDir is the directory inside the migration FS. Defaults to the database type.
	MigrationDir string `yaml:"migrationDir"`
	// Command is "up" (default) or "down".
	Command string `yaml:"command"`
	// Table overrides the schema version table name.
	Table string `yaml:"table"`
}

// MigratorFactory creates a Migrator for one database configuration.
type MigratorFactory func(dbConfig dbconfig.DatabaseConfig) Migrator

// MigrationTasklet applies the embedded schema migrations to a named database.
type MigrationTasklet struct {
	props           TaskletProperties
	resolver        database.DBConnectionResolver
	migrationFS     fs.FS
	migratorFactory MigratorFactory
	ec              model.ExecutionContext
}

// NewMigrationTasklet creates a MigrationTasklet. A nil factory uses NewMigrator.
func NewMigrationTasklet(props TaskletProperties, resolver database.DBConnectionResolver, migrationFS fs.FS, factory MigratorFactory) (*MigrationTasklet, error) {
	if props.DBRef == "" {
		return nil, exception.NewBatchErrorf(moduleName, "property 'dbRef' is required")
	}
	if migrationFS == nil {
		return nil, exception.NewBatchErrorf(moduleName, "no migration filesystem provided")
	}
	if props.Command == "" {
		props.Command = "up"
	}
	if props.Table == "" {
		props.Table = FixedAppMigrationsTable
	}
	if factory == nil {
		factory = NewMigrator
	}
	return &MigrationTasklet{
		props:           props,
		resolver:        resolver,
		migrationFS:     migrationFS,
		migratorFactory: factory,
		ec:              model.NewExecutionContext(),
	}, nil
}

// Execute resolves the database, then runs the configured command against its migration directory.
func (t *MigrationTasklet) Execute(ctx context.Context, stepExecution *model.StepExecution) (model.ExitStatus, error) {
	conn, err := t.resolver.ResolveDBConnection(ctx, t.props.DBRef)
	if err != nil {
		return model.ExitStatusFailed, exception.NewBatchError(moduleName, "failed to resolve database '"+t.props.DBRef+"'", err, false, false)
	}
	dbConfig := conn.Config()

	dir := t.props.MigrationDir
	if dir == "" {
		dir = dbConfig.Type
	}
	if _, err := fs.Stat(t.migrationFS, dir); err != nil {
		return model.ExitStatusFailed, exception.NewBatchError(moduleName, "migration directory '"+dir+"' not found", err, false, false)
	}

	migrator := t.migratorFactory(dbConfig)
	switch t.props.Command {
	case "up":
		err = migrator.Up(ctx, t.migrationFS, dir, t.props.Table)
	case "down":
		err = migrator.Down(ctx, t.migrationFS, dir, t.props.Table)
	default:
		return model.ExitStatusFailed, exception.NewBatchErrorf(moduleName, "unsupported migration command '%s'", t.props.Command)
	}
	if err != nil {
		return model.ExitStatusFailed, exception.NewBatchError(moduleName, "migration failed", err, false, false)
	}

	version, dirty, err := migrator.Version(ctx, t.migrationFS, dir, t.props.Table)
	if err != nil {
		logger.Warnf("Could not read schema version of '%s': %v", t.props.DBRef, err)
	} else {
		t.ec.PutNested(VersionKey, int(version))
		logger.Infof("Database '%s' (%s) is at schema version %d (dirty: %t).", t.props.DBRef, dbConfig.Type, version, dirty)
	}
	return model.ExitStatusCompleted, nil
}

func (t *MigrationTasklet) Close(ctx context.Context) error { return nil }

func (t *MigrationTasklet) SetExecutionContext(ctx context.Context, ec model.ExecutionContext) error {
	if ec != nil {
		t.ec = ec
	}
	return nil
}

func (t *MigrationTasklet) GetExecutionContext(ctx context.Context) (model.ExecutionContext, error) {
	return t.ec, nil
}

var _ port.Tasklet = (*MigrationTasklet)(nil)

// NewTaskletBuilder returns the builder registered as "migrationTasklet".
func NewTaskletBuilder(resolver database.DBConnectionResolver, migrationFS fs.FS) func(cfg *config.Config, properties map[string]string) (port.Tasklet, error) {
	return func(cfg *config.Config, properties map[string]string) (port.Tasklet, error) {
		var props TaskletProperties
		if err := configbinder.BindProperties(properties, &props); err != nil {
			return nil, exception.NewBatchError(moduleName, "failed to bind migration tasklet properties", err, false, false)
		}
		return NewMigrationTasklet(props, resolver, migrationFS, nil)
	}
}
