package gorm

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	dbconfig "github.com/tigerroll/weatheretl/pkg/batch/adapter/database/config"
)

type upsertRow struct {
	Key   string  `gorm:"primaryKey;column:key"`
	Value float64 `gorm:"column:value"`
}

func (upsertRow) TableName() string { return "upsert_rows" }

func newMockAdapter(t *testing.T) (*GormDBAdapter, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{Logger: NewGormLogger("SILENT")})
	require.NoError(t, err)

	a, err := NewGormDBAdapter(db, dbconfig.DatabaseConfig{Type: "postgres"}, "workload")
	require.NoError(t, err)
	return a, mock
}

func TestExecuteUpsert_DoNothing(t *testing.T) {
	a, mock := newMockAdapter(t)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "upsert_rows"`) + `.*` + regexp.QuoteMeta(`ON CONFLICT ("key") DO NOTHING`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := a.ExecuteUpsert(context.Background(), &upsertRow{Key: "a", Value: 1}, "upsert_rows", []string{"key"}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteUpsert_DoUpdate(t *testing.T) {
	a, mock := newMockAdapter(t)

	mock.ExpectExec(regexp.QuoteMeta(`ON CONFLICT ("key") DO UPDATE SET "value"`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	_, err := a.ExecuteUpsert(context.Background(), &upsertRow{Key: "a", Value: 2}, "upsert_rows", []string{"key"}, []string{"value"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteUpsert_RequiresConflictColumns(t *testing.T) {
	a, _ := newMockAdapter(t)
	_, err := a.ExecuteUpsert(context.Background(), &upsertRow{Key: "a"}, "upsert_rows", nil, nil)
	assert.Error(t, err)
}

func TestExecuteUpdate_Unsupported(t *testing.T) {
	a, _ := newMockAdapter(t)
	_, err := a.ExecuteUpdate(context.Background(), &upsertRow{Key: "a"}, "MERGE", "", nil)
	assert.Error(t, err)
}

func TestTransactionManager_CommitAndRollback(t *testing.T) {
	a, mock := newMockAdapter(t)
	tm := a.TransactionManager()
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`ON CONFLICT ("key") DO NOTHING`)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	txn, err := tm.Begin(ctx)
	require.NoError(t, err)
	_, err = txn.ExecuteUpsert(ctx, &upsertRow{Key: "a"}, "upsert_rows", []string{"key"}, nil)
	require.NoError(t, err)
	require.NoError(t, tm.Commit(txn))

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO`).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	txn, err = tm.Begin(ctx)
	require.NoError(t, err)
	_, err = txn.ExecuteUpsert(ctx, &upsertRow{Key: "b"}, "upsert_rows", []string{"key"}, nil)
	require.Error(t, err)
	require.NoError(t, tm.Rollback(txn))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsTableNotExistError(t *testing.T) {
	assert.True(t, isTableNotExistError(errors.New("no such table: weather_observation")))
	assert.True(t, isTableNotExistError(errors.New(`ERROR: relation "weather_observation" does not exist`)))
	assert.True(t, isTableNotExistError(errors.New("Error 1146 (42S02): Table 'weather.weather_observation' doesn't exist")))
	assert.False(t, isTableNotExistError(errors.New("connection refused")))
	assert.False(t, isTableNotExistError(nil))
}

func TestGetDialectorFactory_Unknown(t *testing.T) {
	_, err := GetDialectorFactory("oracle")
	assert.Error(t, err)
}
