// Package logging builds the program's file logger.
package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls where and how much the logger writes.
type Options struct {
	Path       string
	Level      zapcore.Level
	MaxSizeMB  int
	MaxBackups int
}

// New returns a JSON logger writing to a size-rotated file. The returned
// close function flushes buffered entries and closes the file.
func New(opts Options) (*zap.Logger, func() error, error) {
	if opts.Path == "" {
		return nil, nil, fmt.Errorf("log path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	if opts.MaxSizeMB <= 0 {
		opts.MaxSizeMB = 5
	}
	if opts.MaxBackups <= 0 {
		opts.MaxBackups = 3
	}

	sink := &lumberjack.Logger{
		Filename:   opts.Path,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
	}
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(sink), opts.Level)
	logger := zap.New(core, zap.AddCaller()).Named("prompter")

	closeFn := func() error {
		// Sync on a plain file never fails in a way the caller can act on.
		_ = logger.Sync()
		return sink.Close()
	}
	return logger, closeFn, nil
}
