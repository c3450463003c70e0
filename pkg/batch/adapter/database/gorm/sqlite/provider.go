// Package sqlite provides the gorm DBProvider for SQLite databases.
package sqlite

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tigerroll/weatheretl/pkg/batch/adapter/database"
	dbconfig "github.com/tigerroll/weatheretl/pkg/batch/adapter/database/config"
	gormadapter "github.com/tigerroll/weatheretl/pkg/batch/adapter/database/gorm"
	"github.com/tigerroll/weatheretl/pkg/batch/core/config"
)

// Type is the database type handled by this package.
const Type = "sqlite"

func init() {
	gormadapter.RegisterDialector(Type, func(cfg dbconfig.DatabaseConfig) (gorm.Dialector, error) {
		if cfg.Database == "" {
			return nil, errors.New("SQLite database path cannot be empty")
		}
		if err := ensureDir(cfg.Database); err != nil {
			return nil, err
		}
		return sqlite.Open(ConnectionString(cfg)), nil
	})
}

// ConnectionString returns the file path, which is what the sqlite dialector expects.
func ConnectionString(c dbconfig.DatabaseConfig) string {
	return c.Database
}

// ensureDir creates the parent directory of a file database.
func ensureDir(path string) error {
	if path == ":memory:" || strings.HasPrefix(path, "file:") {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory for SQLite database %s: %w", path, err)
	}
	return nil
}

// SQLiteDBProvider implements database.DBProvider for SQLite connections.
type SQLiteDBProvider struct {
	*gormadapter.BaseProvider
}

// NewProvider creates the SQLite DBProvider.
func NewProvider(cfg *config.Config) database.DBProvider {
	return &SQLiteDBProvider{BaseProvider: gormadapter.NewBaseProvider(cfg, Type)}
}
