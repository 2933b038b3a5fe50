// Package logger is the structured logging facade used by drivers and
// services. Interrupt handlers never log.
//
// Levels follow slog: Debug < Info < Warn < Error.
package logger

// Level indicates the logging severity level.
type Level int8

const (
	DebugLevel Level = iota - 1
	InfoLevel
	WarnLevel
	ErrorLevel
)

// Logger is the logging surface taken by driver and service configs.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
	// With returns a child logger carrying keyValues on every record.
	With(keyValues ...any) Logger
	Level() Level
	SetLevel(level Level)
}
