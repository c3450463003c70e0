// Package tx abstracts database transactions so that components can write
// through the same interface regardless of the backing driver.
package tx

import (
	"context"
	"database/sql"
)

// TxExecutor defines the write operations available both on a connection and inside a transaction.
type TxExecutor interface {
	// ExecuteUpdate performs "CREATE", "UPDATE" or "DELETE" of model on tableName.
	// For UPDATE and DELETE, query holds column/value conditions joined by AND.
	// Returns the number of affected rows.
	ExecuteUpdate(ctx context.Context, model interface{}, operation string, tableName string, query map[string]interface{}) (rowsAffected int64, err error)

	// ExecuteUpsert inserts model into tableName. Rows that collide on conflictColumns
	// have updateColumns overwritten; when updateColumns is empty the colliding rows are
	// left untouched (insert-or-ignore). Returns the number of affected rows.
	ExecuteUpsert(ctx context.Context, model interface{}, tableName string, conflictColumns []string, updateColumns []string) (rowsAffected int64, err error)
}

// Tx represents an ongoing database transaction.
type Tx interface {
	TxExecutor

	// Savepoint creates a named savepoint within the transaction.
	Savepoint(name string) error
	// RollbackToSavepoint undoes changes made after the named savepoint.
	RollbackToSavepoint(name string) error
}

// TransactionManager manages the lifecycle of database transactions.
type TransactionManager interface {
	// Begin starts a new transaction. opts may carry an isolation level.
	Begin(ctx context.Context, opts ...*sql.TxOptions) (Tx, error)
	Commit(tx Tx) error
	Rollback(tx Tx) error
}
