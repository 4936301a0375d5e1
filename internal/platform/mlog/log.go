// Package mlog defines the structured logging interface shared by every
// component of the ledger service.
package mlog

import (
	"context"
	"fmt"
	"log"
	"strings"
)

// Logger is the common interface for log implementations used across the service.
type Logger interface {
	Info(args ...any)
	Infof(format string, args ...any)

	Error(args ...any)
	Errorf(format string, args ...any)

	Warn(args ...any)
	Warnf(format string, args ...any)

	Debug(args ...any)
	Debugf(format string, args ...any)

	WithFields(fields ...any) Logger

	Sync() error
}

// LogLevel represents a logging verbosity level.
type LogLevel int8

const (
	// ErrorLevel logs only errors.
	ErrorLevel LogLevel = iota
	// WarnLevel logs warnings and above.
	WarnLevel
	// InfoLevel logs general operational entries.
	InfoLevel
	// DebugLevel logs everything, including verbose diagnostics.
	DebugLevel
)

// ParseLevel parses a level name into a LogLevel.
func ParseLevel(lvl string) (LogLevel, error) {
	switch strings.ToLower(lvl) {
	case "error":
		return ErrorLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "info", "":
		return InfoLevel, nil
	case "debug":
		return DebugLevel, nil
	}

	var l LogLevel

	return l, fmt.Errorf("not a valid LogLevel: %q", lvl)
}

// NoneLogger discards everything; used as the zero-value fallback when no
// logger has been placed in context.
type NoneLogger struct{}

func (l *NoneLogger) Info(args ...any)                 {}
func (l *NoneLogger) Infof(format string, args ...any) {}
func (l *NoneLogger) Error(args ...any)                {}
func (l *NoneLogger) Errorf(format string, args ...any){}
func (l *NoneLogger) Warn(args ...any)                 {}
func (l *NoneLogger) Warnf(format string, args ...any) {}
func (l *NoneLogger) Debug(args ...any)                {}
func (l *NoneLogger) Debugf(format string, args ...any){}
func (l *NoneLogger) Sync() error                      { return nil }

//nolint:ireturn
func (l *NoneLogger) WithFields(fields ...any) Logger { return l }

// GoLogger is a stdlib-backed implementation, used by tests and by cmd/ledgerd
// when zap initialization is explicitly disabled.
type GoLogger struct {
	Level  LogLevel
	fields []any
}

func (l *GoLogger) enabled(lvl LogLevel) bool { return l.Level >= lvl }

func (l *GoLogger) Info(args ...any) {
	if l.enabled(InfoLevel) {
		log.Print(append(l.fields, args...)...)
	}
}

func (l *GoLogger) Infof(format string, args ...any) {
	if l.enabled(InfoLevel) {
		log.Printf(format, args...)
	}
}

func (l *GoLogger) Error(args ...any) {
	if l.enabled(ErrorLevel) {
		log.Print(append(l.fields, args...)...)
	}
}

func (l *GoLogger) Errorf(format string, args ...any) {
	if l.enabled(ErrorLevel) {
		log.Printf(format, args...)
	}
}

func (l *GoLogger) Warn(args ...any) {
	if l.enabled(WarnLevel) {
		log.Print(append(l.fields, args...)...)
	}
}

func (l *GoLogger) Warnf(format string, args ...any) {
	if l.enabled(WarnLevel) {
		log.Printf(format, args...)
	}
}

func (l *GoLogger) Debug(args ...any) {
	if l.enabled(DebugLevel) {
		log.Print(append(l.fields, args...)...)
	}
}

func (l *GoLogger) Debugf(format string, args ...any) {
	if l.enabled(DebugLevel) {
		log.Printf(format, args...)
	}
}

func (l *GoLogger) Sync() error { return nil }

//nolint:ireturn
func (l *GoLogger) WithFields(fields ...any) Logger {
	return &GoLogger{Level: l.Level, fields: append(append([]any{}, l.fields...), fields...)}
}

type loggerContextKey string

const loggerKey loggerContextKey = "logger"

// ContextWithLogger returns a context carrying logger.
func ContextWithLogger(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// NewLoggerFromContext extracts the Logger placed by ContextWithLogger,
// falling back to NoneLogger when absent.
//
//nolint:ireturn
func NewLoggerFromContext(ctx context.Context) Logger {
	if v := ctx.Value(loggerKey); v != nil {
		if l, ok := v.(Logger); ok {
			return l
		}
	}

	return &NoneLogger{}
}
