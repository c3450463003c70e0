// Package repository persists weather observations.
package repository

import (
	"context"
	"time"

	"github.com/tigerroll/weatheretl/internal/domain/entity"
	"github.com/tigerroll/weatheretl/pkg/batch/adapter/database"
	"github.com/tigerroll/weatheretl/pkg/batch/support/util/exception"
	"github.com/tigerroll/weatheretl/pkg/batch/support/util/logger"
)

const moduleName = "loader"

// ObservationRepository writes observations through a database connection it does not own.
type ObservationRepository struct {
	conn database.DBConnection
}

// NewObservationRepository creates a repository on conn.
func NewObservationRepository(conn database.DBConnection) *ObservationRepository {
	return &ObservationRepository{conn: conn}
}

// Load inserts rows in a single transaction, ignoring rows whose UTC timestamp
// is already stored. Any failure rolls the whole batch back.
// Returns the number of rows actually inserted.
func (r *ObservationRepository) Load(ctx context.Context, rows []entity.Observation) (int64, error) {
	tm := r.conn.TransactionManager()
	tx, err := tm.Begin(ctx)
	if err != nil {
		return 0, exception.NewBatchError(moduleName, "failed to begin transaction", err, false, exception.IsTemporary(err))
	}

	var inserted int64
	for i := range rows {
		row := rows[i]
		row.ObsTimestampUTC = row.ObsTimestampUTC.UTC()
		n, err := tx.ExecuteUpsert(ctx, &row, entity.TableName, []string{entity.KeyColumn}, nil)
		if err != nil {
			if rbErr := tm.Rollback(tx); rbErr != nil {
				logger.Errorf("Rollback after failed insert of %s: %v", row.ObsTimestampUTC.Format(time.RFC3339), rbErr)
			}
			return 0, exception.NewBatchError(moduleName,
				"failed to insert observation "+row.ObsTimestampUTC.Format(time.RFC3339), err, false, false)
		}
		inserted += n
	}

	if err := tm.Commit(tx); err != nil {
		return 0, exception.NewBatchError(moduleName, "failed to commit observations", err, false, false)
	}
	logger.Debugf("Loaded %d of %d observation(s) into %s.", inserted, len(rows), entity.TableName)
	return inserted, nil
}

// Count returns the number of stored observations.
func (r *ObservationRepository) Count(ctx context.Context) (int64, error) {
	return r.conn.Count(ctx, &entity.Observation{}, nil)
}

// FindByTimestamp returns the observation stored under utc, or nil.
func (r *ObservationRepository) FindByTimestamp(ctx context.Context, utc time.Time) (*entity.Observation, error) {
	var found []entity.Observation
	if err := r.conn.ExecuteQuery(ctx, &found, map[string]interface{}{entity.KeyColumn: utc.UTC()}, ""); err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, nil
	}
	return &found[0], nil
}
