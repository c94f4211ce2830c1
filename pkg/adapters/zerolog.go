// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-s3mcp.
//
// go-s3mcp is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package adapters

import (
	"context"
	"io"

	"github.com/rs/zerolog"
)

// ZerologLogger implements Logger on top of rs/zerolog. The server
// binary uses it; the slog-backed DefaultLogger remains the library
// default so importers carry no logging dependency they did not ask
// for.
type ZerologLogger struct {
	logger zerolog.Logger
	level  LogLevel
}

// NewZerologLogger creates a zerolog-backed logger writing to w.
func NewZerologLogger(w io.Writer, level LogLevel) Logger {
	l := zerolog.New(w).With().Timestamp().Logger()
	return &ZerologLogger{logger: l, level: level}
}

// Debug logs a debug-level message.
func (l *ZerologLogger) Debug(ctx context.Context, msg string, fields ...Field) {
	l.emit(l.logger.Debug(), DebugLevel, msg, fields)
}

// Info logs an info-level message.
func (l *ZerologLogger) Info(ctx context.Context, msg string, fields ...Field) {
	l.emit(l.logger.Info(), InfoLevel, msg, fields)
}

// Warn logs a warning-level message.
func (l *ZerologLogger) Warn(ctx context.Context, msg string, fields ...Field) {
	l.emit(l.logger.Warn(), WarnLevel, msg, fields)
}

// Error logs an error-level message.
func (l *ZerologLogger) Error(ctx context.Context, msg string, fields ...Field) {
	l.emit(l.logger.Error(), ErrorLevel, msg, fields)
}

// WithFields returns a new logger with additional fields.
func (l *ZerologLogger) WithFields(fields ...Field) Logger {
	c := l.logger.With()
	for _, f := range fields {
		c = c.Interface(f.Key, f.Value)
	}
	return &ZerologLogger{logger: c.Logger(), level: l.level}
}

// SetLevel sets the minimum log level.
func (l *ZerologLogger) SetLevel(level LogLevel) {
	l.level = level
}

// GetLevel returns the current log level.
func (l *ZerologLogger) GetLevel() LogLevel {
	return l.level
}

func (l *ZerologLogger) emit(e *zerolog.Event, level LogLevel, msg string, fields []Field) {
	if level < l.level {
		return
	}
	for _, f := range fields {
		e = e.Interface(f.Key, f.Value)
	}
	e.Msg(msg)
}
