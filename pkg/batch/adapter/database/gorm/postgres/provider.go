// Package postgres provides the gorm DBProvider for PostgreSQL databases.
package postgres

import (
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/tigerroll/weatheretl/pkg/batch/adapter/database"
	dbconfig "github.com/tigerroll/weatheretl/pkg/batch/adapter/database/config"
	gormadapter "github.com/tigerroll/weatheretl/pkg/batch/adapter/database/gorm"
	"github.com/tigerroll/weatheretl/pkg/batch/core/config"
)

// Type is the database type handled by this package.
const Type = "postgres"

func init() {
	gormadapter.RegisterDialector(Type, func(cfg dbconfig.DatabaseConfig) (gorm.Dialector, error) {
		if cfg.Host == "" || cfg.Database == "" {
			return nil, fmt.Errorf("PostgreSQL connection requires host and database")
		}
		return postgres.Open(ConnectionString(cfg)), nil
	})
}

// ConnectionString builds a libpq key/value DSN.
func ConnectionString(c dbconfig.DatabaseConfig) string {
	port := c.Port
	if port == 0 {
		port = 5432
	}
	sslmode := c.Sslmode
	if sslmode == "" {
		sslmode = "disable"
	}
	parts := []string{
		fmt.Sprintf("host=%s", c.Host),
		fmt.Sprintf("port=%d", port),
		fmt.Sprintf("user=%s", c.User),
		fmt.Sprintf("password=%s", c.Password),
		fmt.Sprintf("dbname=%s", c.Database),
		fmt.Sprintf("sslmode=%s", sslmode),
	}
	if c.Schema != "" {
		parts = append(parts, fmt.Sprintf("search_path=%s", c.Schema))
	}
	return strings.Join(parts, " ")
}

// PostgresDBProvider implements database.DBProvider for PostgreSQL connections.
type PostgresDBProvider struct {
	*gormadapter.BaseProvider
}

// NewProvider creates the PostgreSQL DBProvider.
func NewProvider(cfg *config.Config) database.DBProvider {
	return &PostgresDBProvider{BaseProvider: gormadapter.NewBaseProvider(cfg, Type)}
}
