// Package mysql provides the gorm DBProvider for MySQL databases.
package mysql

import (
	"fmt"
	"net"
	"strconv"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/tigerroll/weatheretl/pkg/batch/adapter/database"
	dbconfig "github.com/tigerroll/weatheretl/pkg/batch/adapter/database/config"
	gormadapter "github.com/tigerroll/weatheretl/pkg/batch/adapter/database/gorm"
	"github.com/tigerroll/weatheretl/pkg/batch/core/config"
)

// Type is the database type handled by this package.
const Type = "mysql"

func init() {
	gormadapter.RegisterDialector(Type, func(cfg dbconfig.DatabaseConfig) (gorm.Dialector, error) {
		if cfg.Host == "" || cfg.Database == "" {
			return nil, fmt.Errorf("MySQL connection requires host and database")
		}
		return mysql.Open(ConnectionString(cfg)), nil
	})
}

// ConnectionString builds a go-sql-driver DSN. Times are parsed as UTC.
func ConnectionString(c dbconfig.DatabaseConfig) string {
	port := c.Port
	if port == 0 {
		port = 3306
	}
	mc := gomysql.NewConfig()
	mc.User = c.User
	mc.Passwd = c.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(c.Host, strconv.Itoa(port))
	mc.DBName = c.Database
	mc.ParseTime = true
	mc.Loc = time.UTC
	if c.Sslmode != "" && c.Sslmode != "disable" {
		mc.TLSConfig = "true"
	}
	return mc.FormatDSN()
}

// MySQLDBProvider implements database.DBProvider for MySQL connections.
type MySQLDBProvider struct {
	*gormadapter.BaseProvider
}

// NewProvider creates the MySQL DBProvider.
func NewProvider(cfg *config.Config) database.DBProvider {
	return &MySQLDBProvider{BaseProvider: gormadapter.NewBaseProvider(cfg, Type)}
}
