// Package mzap implements mlog.Logger on top of go.uber.org/zap.
package mzap

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/shoreline-pay/ledgercore/internal/platform/mlog"
)

// ZapLogger wraps a zap.SugaredLogger behind the mlog.Logger interface.
type ZapLogger struct {
	sugar *zap.SugaredLogger
}

// New builds a ZapLogger at the given level, JSON-encoded to stdout/stderr.
func New(level mlog.LogLevel) (*ZapLogger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(toZapLevel(level))
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}

	return &ZapLogger{sugar: logger.Sugar()}, nil
}

func toZapLevel(l mlog.LogLevel) zapcore.Level {
	switch l {
	case mlog.DebugLevel:
		return zapcore.DebugLevel
	case mlog.InfoLevel:
		return zapcore.InfoLevel
	case mlog.WarnLevel:
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}

func (l *ZapLogger) Info(args ...any)                  { l.sugar.Info(args...) }
func (l *ZapLogger) Infof(format string, args ...any)  { l.sugar.Infof(format, args...) }
func (l *ZapLogger) Error(args ...any)                 { l.sugar.Error(args...) }
func (l *ZapLogger) Errorf(format string, args ...any) { l.sugar.Errorf(format, args...) }
func (l *ZapLogger) Warn(args ...any)                  { l.sugar.Warn(args...) }
func (l *ZapLogger) Warnf(format string, args ...any)  { l.sugar.Warnf(format, args...) }
func (l *ZapLogger) Debug(args ...any)                 { l.sugar.Debug(args...) }
func (l *ZapLogger) Debugf(format string, args ...any) { l.sugar.Debugf(format, args...) }

func (l *ZapLogger) Sync() error { return l.sugar.Sync() }

// WithFields returns a child logger carrying the given key/value pairs on
// every subsequent entry.
//
//nolint:ireturn
func (l *ZapLogger) WithFields(fields ...any) mlog.Logger {
	return &ZapLogger{sugar: l.sugar.With(fields...)}
}
