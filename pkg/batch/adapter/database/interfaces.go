// Package database defines the database adapter contracts used by batch components.
package database

import (
	"context"
	"database/sql"

	dbconfig "github.com/tigerroll/weatheretl/pkg/batch/adapter/database/config"
	coreAdapter "github.com/tigerroll/weatheretl/pkg/batch/core/adapter"
	tx "github.com/tigerroll/weatheretl/pkg/batch/core/tx"
)

// DBExecutor defines the read and write operations available on a connection.
type DBExecutor interface {
	tx.TxExecutor

	// ExecuteQuery selects rows matching query into target, ordered by orderBy when non-empty.
	ExecuteQuery(ctx context.Context, target interface{}, query map[string]interface{}, orderBy string) error

	// Count counts the number of records matching the query.
	Count(ctx context.Context, model interface{}, query map[string]interface{}) (int64, error)
}

// DBConnection is a named, closable database connection.
type DBConnection interface {
	coreAdapter.ResourceConnection
	DBExecutor

	// IsTableNotExistError reports whether err means the queried table is missing.
	IsTableNotExistError(err error) bool
	// RefreshConnection pings the database.
	RefreshConnection(ctx context.Context) error
	// Config returns the database configuration associated with this connection.
	Config() dbconfig.DatabaseConfig
	// GetSQLDB returns the underlying *sql.DB connection.
	GetSQLDB() (*sql.DB, error)
	// TransactionManager returns a manager that opens transactions on this connection.
	TransactionManager() tx.TransactionManager
}

// DBConnectionResolver resolves a healthy database connection by name.
type DBConnectionResolver interface {
	coreAdapter.ResourceConnectionResolver

	// ResolveDBConnection returns the named connection, reconnecting when the ping fails.
	ResolveDBConnection(ctx context.Context, name string) (DBConnection, error)
}

// DBProvider opens and caches connections for one database type.
type DBProvider interface {
	// GetConnection retrieves a database connection with the specified name.
	GetConnection(name string) (DBConnection, error)
	// CloseAll closes all connections managed by this provider.
	CloseAll() error
	// Type returns the database type handled by this provider (e.g., "sqlite").
	Type() string
	// ForceReconnect closes and re-opens the named connection.
	ForceReconnect(name string) (DBConnection, error)
}

// DBProviderGroup is the fx value group all DBProvider implementations are provided into.
const DBProviderGroup = "db_providers"
