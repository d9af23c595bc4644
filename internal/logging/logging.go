package logging

import (
	"fmt"
	"os"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	defaultMaxSizeMB  = 10
	defaultMaxBackups = 3
	defaultMaxAgeDays = 28
)

// Options controls logger construction.
type Options struct {
	Debug bool
	// File, when set, receives a copy of every entry with size based rotation.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// New creates a structured logger configured for JSON output on stderr and,
// optionally, a rotated log file.
func New(opts Options) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.StacktraceKey = "stacktrace"
	cfg.DisableStacktrace = false
	if opts.Debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		cfg.Development = true
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	if opts.File == "" {
		return logger, nil
	}

	fileCore, err := newFileCore(opts, cfg.EncoderConfig, cfg.Level)
	if err != nil {
		return nil, err
	}
	return logger.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, fileCore)
	})), nil
}

func newFileCore(opts Options, encCfg zapcore.EncoderConfig, level zapcore.LevelEnabler) (zapcore.Core, error) {
	if info, err := os.Stat(opts.File); err == nil && info.IsDir() {
		return nil, fmt.Errorf("log file %s is a directory", opts.File)
	}

	writer := &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    withDefault(opts.MaxSizeMB, defaultMaxSizeMB),
		MaxBackups: withDefault(opts.MaxBackups, defaultMaxBackups),
		MaxAge:     withDefault(opts.MaxAgeDays, defaultMaxAgeDays),
	}
	return zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(writer), level), nil
}

func withDefault(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
}
