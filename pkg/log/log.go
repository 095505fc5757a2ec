// Copyright 2020 Anapaya Systems
// Copyright 2025 OpenOptics Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package log is a thin wrapper around zap. It offers key/value style logging
// (log.Info("msg", "key", value)) on a process-wide root logger, and a Logger
// interface that components can carry around or store in a context.
package log

import (
	"fmt"
	"os"
	"runtime/debug"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mpi-ncs/openoptics/pkg/private/serrors"
)

// Level of a log entry.
type Level int8

const (
	DebugLevel = Level(zapcore.DebugLevel)
	InfoLevel  = Level(zapcore.InfoLevel)
	ErrorLevel = Level(zapcore.ErrorLevel)
)

// Logger describes the logger interface.
type Logger interface {
	New(ctx ...any) Logger
	Debug(msg string, ctx ...any)
	Info(msg string, ctx ...any)
	Error(msg string, ctx ...any)
	Enabled(lvl Level) bool
}

var (
	// ConsoleLevel is the level of the console logger. It can be changed at
	// runtime, the management API exposes it.
	ConsoleLevel = zap.NewAtomicLevelAt(zapcore.InfoLevel)
)

// Setup configures the root logger according to cfg. Setup must be called
// before any other goroutine logs.
func Setup(cfg Config, opts ...Option) error {
	cfg.InitDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}
	o := applyOptions(opts)
	lvl, err := parseLevel(cfg.Console.Level)
	if err != nil {
		return serrors.Wrap("parsing console level", err, "level", cfg.Console.Level)
	}
	var zapOpts []zap.Option
	if cfg.Console.StacktraceLevel != "none" {
		stackLvl, err := parseLevel(cfg.Console.StacktraceLevel)
		if err != nil {
			return serrors.Wrap("parsing stacktrace level", err,
				"level", cfg.Console.StacktraceLevel)
		}
		zapOpts = append(zapOpts, zap.AddStacktrace(stackLvl))
	}
	ConsoleLevel.SetLevel(lvl)

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	var enc zapcore.Encoder
	switch cfg.Console.Format {
	case "json":
		enc = zapcore.NewJSONEncoder(encCfg)
	default:
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	}
	core := zapcore.NewCore(enc, zapcore.Lock(os.Stderr), ConsoleLevel)
	zapOpts = append(zapOpts, o.zapOptions()...)
	if !cfg.Console.DisableCaller {
		zapOpts = append(zapOpts, zap.AddCaller(), zap.AddCallerSkip(1))
	}
	zap.ReplaceGlobals(zap.New(core, zapOpts...))
	return nil
}

// Flush writes buffered log entries. It should be called before the process
// exits.
func Flush() {
	_ = zap.L().Sync()
}

// HandlePanic catches panics and logs them before re-panicking. It must be
// deferred at the top of every goroutine.
func HandlePanic() {
	if msg := recover(); msg != nil {
		zap.L().Error("Panic", zap.Any("msg", msg), zap.ByteString("stack", debug.Stack()))
		zap.L().Error("=====================> Service panicked!")
		Flush()
		panic(msg)
	}
}

// Debug logs at debug level.
func Debug(msg string, ctx ...any) {
	if !ConsoleLevel.Enabled(zapcore.DebugLevel) {
		return
	}
	zap.L().Debug(msg, convertCtx(ctx)...)
}

// Info logs at info level.
func Info(msg string, ctx ...any) {
	zap.L().Info(msg, convertCtx(ctx)...)
}

// Error logs at error level.
func Error(msg string, ctx ...any) {
	zap.L().Error(msg, convertCtx(ctx)...)
}

// New creates a logger with the given context.
func New(ctx ...any) Logger {
	return &logger{logger: zap.L().With(convertCtx(ctx)...)}
}

// Root returns the root logger. It's a logger without any context.
func Root() Logger {
	return &logger{logger: zap.L()}
}

// FromZap wraps an existing zap logger. Tests use it to log through zaptest.
func FromZap(l *zap.Logger) Logger {
	return &logger{logger: l}
}

// Discard sets the root logger up to discard all log entries. This is useful
// for testing.
func Discard() {
	zap.ReplaceGlobals(zap.NewNop())
}

type logger struct {
	logger *zap.Logger
}

func (l *logger) New(ctx ...any) Logger {
	return &logger{logger: l.logger.With(convertCtx(ctx)...)}
}

func (l *logger) Debug(msg string, ctx ...any) {
	l.logger.Debug(msg, convertCtx(ctx)...)
}

func (l *logger) Info(msg string, ctx ...any) {
	l.logger.Info(msg, convertCtx(ctx)...)
}

func (l *logger) Error(msg string, ctx ...any) {
	l.logger.Error(msg, convertCtx(ctx)...)
}

func (l *logger) Enabled(lvl Level) bool {
	return l.logger.Core().Enabled(zapcore.Level(lvl))
}

func convertCtx(ctx []any) []zap.Field {
	fields := make([]zap.Field, 0, len(ctx)/2)
	for i := 0; i+1 < len(ctx); i += 2 {
		fields = append(fields, zap.Any(fmt.Sprint(ctx[i]), ctx[i+1]))
	}
	return fields
}

func parseLevel(lvl string) (zapcore.Level, error) {
	var l zapcore.Level
	err := l.UnmarshalText([]byte(strings.ToLower(lvl)))
	return l, err
}
