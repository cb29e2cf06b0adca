// Package logger provides the leveled console logger used throughout flowrun.
// It wraps the standard `log` package and renders every line as
// "timestamp | LEVEL    | message" so operator output stays greppable.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

// LogLevel is a type representing the logging level.
type LogLevel int

const (
	// LevelDebug is used for detailed diagnostic output (page fetches, request payloads).
	LevelDebug LogLevel = iota
	// LevelInfo is used for normal progress messages.
	LevelInfo
	// LevelWarn is used for recoverable problems.
	LevelWarn
	// LevelError is used for failures, including per-batch submission errors.
	LevelError
	// LevelFatal is used for messages that terminate the process.
	LevelFatal
)

// String returns the upper-case level name used in the rendered line.
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARNING"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

const timeLayout = "2006-01-02 15:04:05"

var (
	mu       sync.RWMutex
	logLevel = LevelInfo
	std      = log.New(os.Stderr, "", 0)
	now      = time.Now
)

// SetLogLevel sets the global log level.
// Valid values are "DEBUG", "INFO", "WARN"/"WARNING", "ERROR", "FATAL"/"CRITICAL" (case-insensitive).
// An unknown value falls back to INFO and prints a warning.
func SetLogLevel(level string) {
	parsed, ok := ParseLevel(level)
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown log level '%s' specified. Defaulting to INFO level.\n", level)
	}
	mu.Lock()
	logLevel = parsed
	mu.Unlock()
}

// ParseLevel converts a level name into a LogLevel. The boolean is false
// when the name is not recognised, in which case LevelInfo is returned.
func ParseLevel(level string) (LogLevel, bool) {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return LevelDebug, true
	case "INFO":
		return LevelInfo, true
	case "WARN", "WARNING":
		return LevelWarn, true
	case "ERROR":
		return LevelError, true
	case "FATAL", "CRITICAL":
		return LevelFatal, true
	default:
		return LevelInfo, false
	}
}

// CurrentLevel returns the active log level.
func CurrentLevel() LogLevel {
	mu.RLock()
	defer mu.RUnlock()
	return logLevel
}

// SetOutput redirects all log output to w. Tests use it to capture lines.
func SetOutput(w io.Writer) {
	std.SetOutput(w)
}

func enabled(level LogLevel) bool {
	mu.RLock()
	defer mu.RUnlock()
	return logLevel <= level
}

func output(level LogLevel, format string, v ...interface{}) {
	std.Printf("%s | %-8s | %s", now().Format(timeLayout), level.String(), fmt.Sprintf(format, v...))
}

// Debugf formats and outputs a DEBUG level log message.
func Debugf(format string, v ...interface{}) {
	if enabled(LevelDebug) {
		output(LevelDebug, format, v...)
	}
}

// Infof formats and outputs an INFO level log message.
func Infof(format string, v ...interface{}) {
	if enabled(LevelInfo) {
		output(LevelInfo, format, v...)
	}
}

// Warnf formats and outputs a WARN level log message.
func Warnf(format string, v ...interface{}) {
	if enabled(LevelWarn) {
		output(LevelWarn, format, v...)
	}
}

// Errorf formats and outputs an ERROR level log message.
func Errorf(format string, v ...interface{}) {
	if enabled(LevelError) {
		output(LevelError, format, v...)
	}
}

// Fatalf formats and outputs a FATAL level log message,
// then terminates the program by calling os.Exit(1).
func Fatalf(format string, v ...interface{}) {
	output(LevelFatal, format, v...)
	os.Exit(1)
}
