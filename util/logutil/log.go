// Copyright 2025 Ekjot Singh
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// See the License for the specific language governing permissions and
// limitations under the License.

// Package logutil provides the structured, zap-based logger the tuner
// packages log through. Configuration loading and CLI plumbing are out of
// scope (spec §1); this carries forward only the call-site idiom
// (logutil.Logger(ctx).Info("[tuner] ...", zap.String(...))) the teacher
// uses throughout ddl and statistics.
package logutil

import (
	"context"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

type ctxKey struct{}

var globalLogger = zap.NewNop()

// FileLogConfig optionally rotates logs to disk via lumberjack, mirroring
// the teacher's file-log configuration in spirit without the configuration
// loader this spec puts out of scope.
type FileLogConfig struct {
	Filename   string
	MaxSize    int // megabytes
	MaxBackups int
	MaxAge     int // days
}

// Config selects the logger's level and optional file sink.
type Config struct {
	Level string
	File  *FileLogConfig
}

// InitLogger installs the process-wide logger used by Logger and BgLogger.
func InitLogger(cfg Config) error {
	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return err
	}

	var core zapcore.Core
	encoder := zapcore.NewConsoleEncoder(zap.NewProductionEncoderConfig())
	if cfg.File != nil {
		sink := zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.File.Filename,
			MaxSize:    cfg.File.MaxSize,
			MaxBackups: cfg.File.MaxBackups,
			MaxAge:     cfg.File.MaxAge,
		})
		core = zapcore.NewCore(encoder, sink, level)
	} else {
		core = zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(os.Stdout)), level)
	}
	globalLogger = zap.New(core)
	return nil
}

// WithKeyValue attaches a key/value pair to ctx so Logger(ctx) can include it
// in every subsequent call, matching logutil.WithKeyValue in the teacher.
func WithKeyValue(ctx context.Context, key, value string) context.Context {
	l := Logger(ctx).With(zap.String(key, value))
	return context.WithValue(ctx, ctxKey{}, l)
}

// Logger returns the logger bound to ctx, or the global logger if none was
// attached via WithKeyValue.
func Logger(ctx context.Context) *zap.Logger {
	if ctx == nil {
		return globalLogger
	}
	if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok {
		return l
	}
	return globalLogger
}

// BgLogger returns the process-wide logger for call sites with no context,
// matching the teacher's logutil.BgLogger() used by background workers.
func BgLogger() *zap.Logger {
	return globalLogger
}
