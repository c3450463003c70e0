package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	dbconfig "github.com/tigerroll/weatheretl/pkg/batch/adapter/database/config"
	gormadapter "github.com/tigerroll/weatheretl/pkg/batch/adapter/database/gorm"
	"github.com/tigerroll/weatheretl/pkg/batch/support/util/logger"
)

// migratorImpl opens a dedicated connection per run, because closing a
// migrate instance also closes the *sql.DB it was given.
type migratorImpl struct {
	dbConfig dbconfig.DatabaseConfig
}

// NewMigrator creates a Migrator for the database described by dbConfig.
func NewMigrator(dbConfig dbconfig.DatabaseConfig) Migrator {
	return &migratorImpl{dbConfig: dbConfig}
}

func (m *migratorImpl) databaseDriver(sqlDB *sql.DB, tableName string) (database.Driver, error) {
	switch m.dbConfig.Type {
	case "postgres":
		return postgres.WithInstance(sqlDB, &postgres.Config{MigrationsTable: tableName})
	case "mysql":
		return mysql.WithInstance(sqlDB, &mysql.Config{MigrationsTable: tableName})
	case "sqlite":
		return sqlite3.WithInstance(sqlDB, &sqlite3.Config{MigrationsTable: tableName})
	default:
		return nil, fmt.Errorf("unsupported database type for migration: %s", m.dbConfig.Type)
	}
}

func (m *migratorImpl) open(migrationFS fs.FS, path string, tableName string) (*migrate.Migrate, error) {
	gormDB, err := gormadapter.Open(m.dbConfig)
	if err != nil {
		return nil, err
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sourceDriver, err := iofs.New(migrationFS, path)
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to create iofs source driver for path %s: %w", path, err)
	}
	dbDriver, err := m.databaseDriver(sqlDB, tableName)
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to create database driver: %w", err)
	}
	mInstance, err := migrate.NewWithInstance("iofs", sourceDriver, m.dbConfig.Type, dbDriver)
	if err != nil {
		dbDriver.Close()
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return mInstance, nil
}

func (m *migratorImpl) run(migrationFS fs.FS, path string, tableName string, command string) error {
	logger.Infof("Executing migration '%s' (Path: %s, Table: %s)", command, path, tableName)

	mInstance, err := m.open(migrationFS, path, tableName)
	if err != nil {
		return err
	}
	defer closeMigrate(mInstance)

	switch command {
	case "up":
		err = mInstance.Up()
	case "down":
		err = mInstance.Down()
	default:
		return fmt.Errorf("unsupported migration command: %s", command)
	}

	if errors.Is(err, migrate.ErrNoChange) {
		logger.Infof("Migration '%s': no change.", command)
		return nil
	}
	if err != nil {
		return fmt.Errorf("migration failed for command '%s' (DB: %s, Path: %s): %w", command, m.dbConfig.Type, path, err)
	}
	logger.Infof("Migration '%s' completed successfully.", command)
	return nil
}

func closeMigrate(mInstance *migrate.Migrate) {
	srcErr, dbErr := mInstance.Close()
	if srcErr != nil {
		logger.Warnf("Failed to close migration source: %v", srcErr)
	}
	if dbErr != nil {
		logger.Warnf("Failed to close migration database: %v", dbErr)
	}
}

func (m *migratorImpl) Up(ctx context.Context, migrationFS fs.FS, path string, tableName string) error {
	return m.run(migrationFS, path, tableName, "up")
}

func (m *migratorImpl) Down(ctx context.Context, migrationFS fs.FS, path string, tableName string) error {
	return m.run(migrationFS, path, tableName, "down")
}

func (m *migratorImpl) Version(ctx context.Context, migrationFS fs.FS, path string, tableName string) (uint, bool, error) {
	mInstance, err := m.open(migrationFS, path, tableName)
	if err != nil {
		return 0, false, err
	}
	defer closeMigrate(mInstance)

	version, dirty, err := mInstance.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}
