// Package logging provides the key/value Logger used by the client, the
// transport and the stock plugins, backed by zerolog.
package logging

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Logger is the structured logger consumed throughout the module. Arguments
// after msg are alternating key/value pairs.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// ZerologLogger adapts a zerolog.Logger to Logger.
type ZerologLogger struct {
	logger zerolog.Logger
}

// NewZerolog wraps an existing zerolog logger.
func NewZerolog(logger zerolog.Logger) *ZerologLogger {
	return &ZerologLogger{logger: logger}
}

// Zerolog exposes the wrapped logger.
func (l *ZerologLogger) Zerolog() zerolog.Logger {
	return l.logger
}

// Debug logs at debug level.
func (l *ZerologLogger) Debug(msg string, keysAndValues ...any) {
	write(l.logger.Debug(), msg, keysAndValues)
}

// Info logs at info level.
func (l *ZerologLogger) Info(msg string, keysAndValues ...any) {
	write(l.logger.Info(), msg, keysAndValues)
}

// Warn logs at warn level.
func (l *ZerologLogger) Warn(msg string, keysAndValues ...any) {
	write(l.logger.Warn(), msg, keysAndValues)
}

// Error logs at error level.
func (l *ZerologLogger) Error(msg string, keysAndValues ...any) {
	write(l.logger.Error(), msg, keysAndValues)
}

func write(event *zerolog.Event, msg string, keysAndValues []any) {
	if event == nil {
		return
	}
	for i := 0; i < len(keysAndValues); i += 2 {
		key := fmt.Sprint(keysAndValues[i])
		if i+1 >= len(keysAndValues) {
			event = event.Interface(key, nil)
			break
		}
		switch v := keysAndValues[i+1].(type) {
		case error:
			event = event.AnErr(key, v)
		case string:
			event = event.Str(key, v)
		case int:
			event = event.Int(key, v)
		case bool:
			event = event.Bool(key, v)
		default:
			event = event.Interface(key, v)
		}
	}
	event.Msg(msg)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// Nop returns a Logger that discards everything.
func Nop() Logger {
	return nopLogger{}
}
