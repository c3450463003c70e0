// Package logger provides levelled logging for the batch framework.
// It wraps the standard `log` package and filters messages by level.
package logger

import (
	"fmt"
	"io"
	"log"
	"strings"
	"sync/atomic"
)

// LogLevel is a type representing the logging level.
type LogLevel int32

const (
	// LevelTrace is the most verbose level. It also enables SQL statement logging.
	LevelTrace LogLevel = iota
	// LevelDebug is used for detailed debugging information.
	LevelDebug
	// LevelInfo is used for general informational messages.
	LevelInfo
	// LevelWarn is used for potential issues.
	LevelWarn
	// LevelError is used for error messages.
	LevelError
	// LevelFatal is used for messages that terminate the application.
	LevelFatal
	// LevelSilent suppresses all output.
	LevelSilent
)

var levelNames = map[LogLevel]string{
	LevelTrace:  "TRACE",
	LevelDebug:  "DEBUG",
	LevelInfo:   "INFO",
	LevelWarn:   "WARN",
	LevelError:  "ERROR",
	LevelFatal:  "FATAL",
	LevelSilent: "SILENT",
}

// String returns the upper-case name of the level.
func (l LogLevel) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("LogLevel(%d)", int32(l))
}

// logLevel is the current global level. Messages below it are dropped.
var logLevel atomic.Int32

func init() {
	logLevel.Store(int32(LevelInfo))
}

// ParseLogLevel converts a case-insensitive level name to a LogLevel.
func ParseLogLevel(level string) (LogLevel, bool) {
	upper := strings.ToUpper(strings.TrimSpace(level))
	for l, name := range levelNames {
		if name == upper {
			return l, true
		}
	}
	return LevelInfo, false
}

// SetLogLevel sets the global log level.
// Valid values are TRACE, DEBUG, INFO, WARN, ERROR, FATAL and SILENT (case-insensitive).
// An unknown value falls back to INFO and prints a warning.
func SetLogLevel(level string) {
	l, ok := ParseLogLevel(level)
	if !ok {
		fmt.Printf("Unknown log level '%s' specified. Defaulting to INFO level.\n", level)
	}
	logLevel.Store(int32(l))
}

// GetLogLevel returns the current global log level.
func GetLogLevel() LogLevel {
	return LogLevel(logLevel.Load())
}

// IsEnabled reports whether messages at the given level are written.
func IsEnabled(level LogLevel) bool {
	return GetLogLevel() <= level
}

// SetOutput redirects all log output to w.
func SetOutput(w io.Writer) {
	log.SetOutput(w)
}

func output(level LogLevel, format string, v ...interface{}) {
	if !IsEnabled(level) {
		return
	}
	log.Printf("["+level.String()+"] "+format, v...)
}

// Tracef formats and outputs a TRACE level message.
func Tracef(format string, v ...interface{}) { output(LevelTrace, format, v...) }

// Debugf formats and outputs a DEBUG level message.
//
// format: A format string in the same format as `fmt.Printf`.
// v: Arguments to pass to the format string.
func Debugf(format string, v ...interface{}) { output(LevelDebug, format, v...) }

// Infof formats and outputs an INFO level message.
//
// format: A format string in the same format as `fmt.Printf`.
// v: Arguments to pass to the format string.
func Infof(format string, v ...interface{}) { output(LevelInfo, format, v...) }

// Warnf formats and outputs a WARN level message.
func Warnf(format string, v ...interface{}) { output(LevelWarn, format, v...) }

// Errorf formats and outputs an ERROR level message.
func Errorf(format string, v ...interface{}) { output(LevelError, format, v...) }
