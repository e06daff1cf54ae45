package log

import (
	"os"
	"strings"
	"sync"

	charmlog "github.com/charmbracelet/log"
)

type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

var (
	logger     *charmlog.Logger
	loggerOnce sync.Once
)

// initLogger initializes the global logger to write to stderr with timestamps.
func initLogger() {
	loggerOnce.Do(func() {
		logger = charmlog.NewWithOptions(os.Stderr, charmlog.Options{
			ReportTimestamp: true,
			TimeFormat:      "2006-01-02T15:04:05.000Z07:00",
			Level:           charmlog.InfoLevel,
		})
	})
}

func SetLevel(l Level) {
	initLogger()
	logger.SetLevel(toCharmLevel(l))
}

// ParseLevel maps config/flag spellings ("debug", "info", ...) to a Level.
// Unknown values fall back to INFO.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

func Debug(msg string, kv ...any) {
	initLogger()
	logger.Debug(msg, kv...)
}

func Info(msg string, kv ...any) {
	initLogger()
	logger.Info(msg, kv...)
}

func Warn(msg string, kv ...any) {
	initLogger()
	logger.Warn(msg, kv...)
}

func Error(msg string, err error, kv ...any) {
	initLogger()
	// Prepend error into key-value list.
	extended := append([]any{"err", err}, kv...)
	logger.Error(msg, extended...)
}

func toCharmLevel(l Level) charmlog.Level {
	switch l {
	case LevelDebug:
		return charmlog.DebugLevel
	case LevelWarn:
		return charmlog.WarnLevel
	case LevelError:
		return charmlog.ErrorLevel
	default:
		return charmlog.InfoLevel
	}
}
