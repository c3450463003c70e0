package gorm

import (
	"fmt"
	"strings"
	"time"

	gormlogger "gorm.io/gorm/logger"

	config "github.com/tigerroll/weatheretl/pkg/batch/core/config"
	"github.com/tigerroll/weatheretl/pkg/batch/support/util/logger"
)

// NewGormLogger returns a gorm logger writing through the framework logger.
// Unknown levels silence gorm.
func NewGormLogger(level string) gormlogger.Interface {
	var gormLevel gormlogger.LogLevel
	switch config.LogLevel(strings.ToUpper(level)) {
	case config.LogLevelError:
		gormLevel = gormlogger.Error
	case config.LogLevelWarn:
		gormLevel = gormlogger.Warn
	case config.LogLevelInfo, config.LogLevelDebug, config.LogLevelTrace:
		gormLevel = gormlogger.Info
	default:
		gormLevel = gormlogger.Silent
	}

	return gormlogger.New(
		NewGormWriter(),
		gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormLevel,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}

// GormWriter forwards gorm output to the framework logger.
// SQL statements go to DEBUG, everything else to INFO.
type GormWriter struct{}

// NewGormWriter creates a GormWriter.
func NewGormWriter() *GormWriter {
	return &GormWriter{}
}

// Printf implements gorm's logger.Writer.
func (w *GormWriter) Printf(format string, v ...interface{}) {
	msg := strings.TrimSpace(fmt.Sprintf(format, v...))
	if isStatement(msg) {
		logger.Debugf("[GORM] %s", msg)
		return
	}
	logger.Infof("[GORM] %s", msg)
}

func isStatement(msg string) bool {
	for _, kw := range []string{"SELECT", "INSERT", "UPDATE", "DELETE", "CREATE"} {
		if strings.Contains(msg, kw) {
			return true
		}
	}
	return false
}
