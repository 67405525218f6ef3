// Package logger holds the process-wide structured logger.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	globalLogger = zap.NewNop()
	fileWriter   *lumberjack.Logger
	mu           sync.Mutex
)

// Config controls logger output.
type Config struct {
	Level      string    // debug, info, warn, error
	File       string    // optional JSON log file, rotated
	MaxSizeMB  int       // rotate after this size
	MaxBackups int       // rotated files to keep
	MaxAgeDays int       // days to keep rotated files
	Console    io.Writer // nil = stderr
	NoConsole  bool
}

// Init initializes the global logger. Calling it again replaces the previous logger.
func Init(cfg Config) error {
	mu.Lock()
	defer mu.Unlock()

	level := zap.NewAtomicLevelAt(zap.InfoLevel)
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(strings.ToLower(cfg.Level))); err != nil {
			return fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000000")

	var cores []zapcore.Core
	if !cfg.NoConsole {
		console := cfg.Console
		if console == nil {
			console = os.Stderr
		}
		consoleCfg := encCfg
		consoleCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), zapcore.AddSync(console), level))
	}

	if fileWriter != nil {
		fileWriter.Close()
		fileWriter = nil
	}
	if cfg.File != "" {
		fileWriter = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    orDefault(cfg.MaxSizeMB, 10),
			MaxBackups: orDefault(cfg.MaxBackups, 3),
			MaxAge:     orDefault(cfg.MaxAgeDays, 14),
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(fileWriter), level))
	}

	if len(cores) == 0 {
		globalLogger = zap.NewNop()
		return nil
	}
	globalLogger = zap.New(zapcore.NewTee(cores...)).Named("pageflow")
	return nil
}

// Close flushes and closes the log file.
func Close() {
	mu.Lock()
	defer mu.Unlock()

	_ = globalLogger.Sync()
	if fileWriter != nil {
		fileWriter.Close()
		fileWriter = nil
	}
	globalLogger = zap.NewNop()
}

// L returns the global logger. It is a no-op logger until Init is called.
func L() *zap.Logger {
	mu.Lock()
	defer mu.Unlock()
	return globalLogger
}

// Named returns a child of the global logger for one component.
func Named(name string) *zap.Logger {
	return L().Named(name)
}

// Info logs an info message.
func Info(format string, v ...interface{}) {
	L().Sugar().Infof(format, v...)
}

// Debug logs a debug message.
func Debug(format string, v ...interface{}) {
	L().Sugar().Debugf(format, v...)
}

// Error logs an error message.
func Error(format string, v ...interface{}) {
	L().Sugar().Errorf(format, v...)
}

// Warn logs a warning message.
func Warn(format string, v ...interface{}) {
	L().Sugar().Warnf(format, v...)
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
