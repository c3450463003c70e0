// Package migration runs golang-migrate schema migrations as a batch tasklet.
package migration

import (
	"context"
	"io/fs"
)

// FixedAppMigrationsTable records the applied application schema version.
const FixedAppMigrationsTable = "weather_schema_migrations"

// MigrationFSTag is the fx tag of the embedded migration files.
const MigrationFSTag = `name:"migrationFS"`

// Migrator applies migrations from an fs.FS directory.
type Migrator interface {
	// Up applies all pending migrations. An up-to-date schema is not an error.
	Up(ctx context.Context, migrationFS fs.FS, path string, tableName string) error
	// Down reverts all applied migrations.
	Down(ctx context.Context, migrationFS fs.FS, path string, tableName string) error
	// Version returns the current schema version and whether it is dirty. Zero means none applied.
	Version(ctx context.Context, migrationFS fs.FS, path string, tableName string) (uint, bool, error)
}
