package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/weatheretl/pkg/batch/adapter/database"
	gormadapter "github.com/tigerroll/weatheretl/pkg/batch/adapter/database/gorm"
	"github.com/tigerroll/weatheretl/pkg/batch/core/config"
)

type kv struct {
	K string `gorm:"primaryKey;column:k"`
	V string `gorm:"column:v"`
}

func (kv) TableName() string { return "kv" }

func newConfig(t *testing.T) *config.Config {
	cfg := config.NewConfig()
	cfg.Surfin.AdapterConfigs["workload"] = map[string]interface{}{
		"type":     Type,
		"database": filepath.Join(t.TempDir(), "nested", "test.db"),
	}
	cfg.Surfin.AdapterConfigs["other"] = map[string]interface{}{"type": "postgres", "host": "x", "database": "y"}
	return cfg
}

func TestProvider_UpsertIsIdempotent(t *testing.T) {
	p := NewProvider(newConfig(t))
	defer p.CloseAll()

	conn, err := p.GetConnection("workload")
	require.NoError(t, err)
	assert.Equal(t, Type, conn.Type())
	assert.Equal(t, "workload", conn.Name())

	again, err := p.GetConnection("workload")
	require.NoError(t, err)
	assert.Same(t, conn, again)

	sqlDB, err := conn.GetSQLDB()
	require.NoError(t, err)
	_, err = sqlDB.Exec(`CREATE TABLE kv (k TEXT PRIMARY KEY, v TEXT)`)
	require.NoError(t, err)

	ctx := context.Background()
	n, err := conn.ExecuteUpsert(ctx, &kv{K: "a", V: "1"}, "kv", []string{"k"}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = conn.ExecuteUpsert(ctx, &kv{K: "a", V: "2"}, "kv", []string{"k"}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	count, err := conn.Count(ctx, &kv{}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	var rows []kv
	require.NoError(t, conn.ExecuteQuery(ctx, &rows, map[string]interface{}{"k": "a"}, "k"))
	require.Len(t, rows, 1)
	assert.Equal(t, "1", rows[0].V)
}

func TestProvider_MissingTableIsDetected(t *testing.T) {
	p := NewProvider(newConfig(t))
	defer p.CloseAll()

	conn, err := p.GetConnection("workload")
	require.NoError(t, err)

	_, err = conn.Count(context.Background(), &kv{}, nil)
	require.Error(t, err)
	assert.True(t, conn.IsTableNotExistError(err))
}

func TestProvider_TypeMismatchAndUnknownName(t *testing.T) {
	p := NewProvider(newConfig(t))

	_, err := p.GetConnection("other")
	assert.Error(t, err)

	_, err = p.GetConnection("missing")
	assert.Error(t, err)
}

func TestResolver_ResolvesByConfiguredType(t *testing.T) {
	cfg := newConfig(t)
	resolver := gormadapter.NewGormDBConnectionResolver(gormadapter.ResolverParams{
		DBProviders: []database.DBProvider{NewProvider(cfg)},
		Cfg:         cfg,
	})
	defer resolver.CloseAll()

	conn, err := resolver.ResolveDBConnection(context.Background(), "workload")
	require.NoError(t, err)
	assert.Equal(t, Type, conn.Type())

	_, err = resolver.ResolveDBConnection(context.Background(), "other")
	assert.Error(t, err)
}
