package infra

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogOptions controls the optional rotated file sink.
type LogOptions struct {
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// LogOptionsFromConfig extracts the file sink settings.
func LogOptionsFromConfig(cfg *Config) LogOptions {
	return LogOptions{
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogFileMaxMB,
		MaxBackups: cfg.LogFileMaxBackups,
		MaxAgeDays: cfg.LogFileMaxAgeDays,
	}
}

// NewLogger constructs a zerolog.Logger with sane defaults for the service.
func NewLogger(appEnv string, opts ...LogOptions) zerolog.Logger {
	return newLogger(os.Stdout, appEnv, opts...)
}

func newLogger(stdout io.Writer, appEnv string, opts ...LogOptions) zerolog.Logger {
	level := zerolog.InfoLevel
	if appEnv == "development" {
		level = zerolog.DebugLevel
	}

	var out io.Writer = stdout
	if appEnv == "development" {
		out = zerolog.ConsoleWriter{Out: stdout, TimeFormat: time.RFC3339}
	}

	if len(opts) > 0 && opts[0].File != "" {
		file := &lumberjack.Logger{
			Filename:   opts[0].File,
			MaxSize:    opts[0].MaxSizeMB,
			MaxBackups: opts[0].MaxBackups,
			MaxAge:     opts[0].MaxAgeDays,
			Compress:   true,
		}
		out = zerolog.MultiLevelWriter(out, file)
	}

	return zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// NewConsoleLogger writes human readable lines to w, for command line tools.
func NewConsoleLogger(w io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// NopLogger returns a logger that discards everything.
func NopLogger() *Logger {
	l := zerolog.Nop()
	return &l
}

// Logger aliases the zerolog.Logger so callers outside the infra package can
// depend on the logging contract without importing the third-party module
// directly.
type Logger = zerolog.Logger
