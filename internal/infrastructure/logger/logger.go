package logger

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger wraps a sugared zap logger that writes human-readable output to
// stdout and, when a log file is configured, rotating JSON lines to disk.
type Logger struct {
	*zap.SugaredLogger
}

const (
	rotateMaxSizeMB  = 50
	rotateMaxBackups = 5
	rotateMaxAgeDays = 30
)

// New builds a Logger at the given level. An empty logFile disables the
// file sink; unrecognized levels fall back to info.
func New(logLevel, logFile string) (*Logger, error) {
	if logFile != "" {
		if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
	}

	level := zapcore.InfoLevel
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		level = zapcore.InfoLevel
	}

	zl := zap.New(buildCore(level, logFile), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	return &Logger{zl.Sugar()}, nil
}

func buildCore(level zapcore.Level, logFile string) zapcore.Core {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	consoleCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.AddSync(os.Stdout),
		level,
	)
	if logFile == "" {
		return consoleCore
	}

	fileCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(encCfg),
		zapcore.AddSync(&lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    rotateMaxSizeMB,
			MaxBackups: rotateMaxBackups,
			MaxAge:     rotateMaxAgeDays,
			Compress:   true,
		}),
		level,
	)
	return zapcore.NewTee(consoleCore, fileCore)
}

// Close flushes any buffered log entries.
func (l *Logger) Close() {
	_ = l.Sync()
}
