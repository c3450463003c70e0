package gorm

import (
	"context"
	"database/sql"
	"fmt"

	"gorm.io/gorm"

	tx "github.com/tigerroll/weatheretl/pkg/batch/core/tx"
)

// GormTxAdapter is a tx.Tx over a gorm transaction.
type GormTxAdapter struct {
	db *gorm.DB
}

var _ tx.Tx = (*GormTxAdapter)(nil)

// ExecuteUpdate runs operation inside the transaction.
func (t *GormTxAdapter) ExecuteUpdate(ctx context.Context, model interface{}, operation string, tableName string, query map[string]interface{}) (int64, error) {
	return update(t.db.WithContext(ctx), model, operation, tableName, query)
}

// ExecuteUpsert runs an INSERT ... ON CONFLICT inside the transaction.
func (t *GormTxAdapter) ExecuteUpsert(ctx context.Context, model interface{}, tableName string, conflictColumns []string, updateColumns []string) (int64, error) {
	return upsert(t.db.WithContext(ctx), model, tableName, conflictColumns, updateColumns)
}

// Savepoint creates a named savepoint.
func (t *GormTxAdapter) Savepoint(name string) error {
	return t.db.SavePoint(name).Error
}

// RollbackToSavepoint rolls back to a named savepoint.
func (t *GormTxAdapter) RollbackToSavepoint(name string) error {
	return t.db.RollbackTo(name).Error
}

// GormTransactionManager opens transactions on one *gorm.DB.
type GormTransactionManager struct {
	db *gorm.DB
}

var _ tx.TransactionManager = (*GormTransactionManager)(nil)

// NewGormTransactionManager creates a transaction manager for db.
func NewGormTransactionManager(db *gorm.DB) *GormTransactionManager {
	return &GormTransactionManager{db: db}
}

// Begin starts a transaction. Only the first opts entry is used.
func (m *GormTransactionManager) Begin(ctx context.Context, opts ...*sql.TxOptions) (tx.Tx, error) {
	var txOpts *sql.TxOptions
	if len(opts) > 0 && opts[0] != nil {
		txOpts = opts[0]
	}
	gormTx := m.db.WithContext(ctx).Begin(txOpts)
	if gormTx.Error != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", gormTx.Error)
	}
	return &GormTxAdapter{db: gormTx}, nil
}

// Commit commits t.
func (m *GormTransactionManager) Commit(t tx.Tx) error {
	gormTx, ok := t.(*GormTxAdapter)
	if !ok {
		return fmt.Errorf("invalid transaction type: expected *GormTxAdapter, got %T", t)
	}
	return gormTx.db.Commit().Error
}

// Rollback rolls t back.
func (m *GormTransactionManager) Rollback(t tx.Tx) error {
	gormTx, ok := t.(*GormTxAdapter)
	if !ok {
		return fmt.Errorf("invalid transaction type: expected *GormTxAdapter, got %T", t)
	}
	return gormTx.db.Rollback().Error
}
