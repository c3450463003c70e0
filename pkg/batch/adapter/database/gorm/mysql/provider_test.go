package mysql

import (
	"testing"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbconfig "github.com/tigerroll/weatheretl/pkg/batch/adapter/database/config"
)

func TestConnectionString(t *testing.T) {
	dsn := ConnectionString(dbconfig.DatabaseConfig{
		Host: "db", User: "etl", Password: "pw", Database: "weather",
	})

	parsed, err := gomysql.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "etl", parsed.User)
	assert.Equal(t, "pw", parsed.Passwd)
	assert.Equal(t, "db:3306", parsed.Addr)
	assert.Equal(t, "weather", parsed.DBName)
	assert.True(t, parsed.ParseTime)
}
