package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/weatheretl/internal/domain/entity"
	"github.com/tigerroll/weatheretl/pkg/batch/adapter/database"
	"github.com/tigerroll/weatheretl/pkg/batch/adapter/database/gorm/sqlite"
	"github.com/tigerroll/weatheretl/pkg/batch/core/config"
)

const createTable = `CREATE TABLE weather_observation (
	obs_timestamp_utc   TIMESTAMP PRIMARY KEY,
	obs_timestamp_local TIMESTAMP NOT NULL,
	temp                REAL CHECK (temp IS NULL OR temp < 100),
	feels_like          REAL,
	humidity            REAL,
	wind_speed          REAL,
	visibility          REAL,
	pressure            REAL,
	weather_main        TEXT,
	cloudiness          REAL,
	rain_mm             REAL
)`

func newConn(t *testing.T) database.DBConnection {
	t.Helper()
	cfg := config.NewConfig()
	cfg.Surfin.AdapterConfigs["workload"] = map[string]interface{}{
		"type":     sqlite.Type,
		"database": filepath.Join(t.TempDir(), "weather.db"),
	}
	p := sqlite.NewProvider(cfg)
	t.Cleanup(func() { _ = p.CloseAll() })

	conn, err := p.GetConnection("workload")
	require.NoError(t, err)
	sqlDB, err := conn.GetSQLDB()
	require.NoError(t, err)
	_, err = sqlDB.Exec(createTable)
	require.NoError(t, err)
	return conn
}

func observation(utc time.Time, temp float64) entity.Observation {
	return entity.Observation{
		ObsTimestampUTC:   utc,
		ObsTimestampLocal: utc.In(time.FixedZone("", -7*3600)),
		Temp:              entity.Float(temp),
		Humidity:          entity.Float(40),
		WeatherMain:       entity.String("Clear"),
	}
}

func TestLoad_IsIdempotent(t *testing.T) {
	repo := NewObservationRepository(newConn(t))
	ctx := context.Background()
	utc := time.Unix(1700000000, 0).UTC()

	n, err := repo.Load(ctx, []entity.Observation{observation(utc, 28.5)})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = repo.Load(ctx, []entity.Observation{observation(utc, 30)})
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	found, err := repo.FindByTimestamp(ctx, utc)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, 28.5, *found.Temp, "existing row is left untouched")
	assert.Nil(t, found.RainMM)
}

func TestLoad_FailureRollsBackBatch(t *testing.T) {
	repo := NewObservationRepository(newConn(t))
	ctx := context.Background()
	utc := time.Unix(1700000000, 0).UTC()

	_, err := repo.Load(ctx, []entity.Observation{
		observation(utc, 20),
		observation(utc.Add(time.Hour), 250),
	})
	require.Error(t, err)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestLoad_MissingTable(t *testing.T) {
	conn := newConn(t)
	sqlDB, err := conn.GetSQLDB()
	require.NoError(t, err)
	_, err = sqlDB.Exec(`DROP TABLE weather_observation`)
	require.NoError(t, err)

	_, err = NewObservationRepository(conn).Load(context.Background(), []entity.Observation{observation(time.Now().UTC(), 1)})
	assert.Error(t, err)
}
