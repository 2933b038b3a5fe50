package logger

import "sync/atomic"

var defLogger atomic.Value // Logger

func init() { defLogger.Store(holder{NewSlog(InfoLevel)}) }

// holder keeps the stored dynamic type constant for atomic.Value.
type holder struct{ Logger }

func Default() Logger { return defLogger.Load().(holder).Logger }

// SetDefault replaces the package logger. nil is ignored.
func SetDefault(l Logger) {
	if l != nil {
		defLogger.Store(holder{l})
	}
}

// OrDefault returns l, or the package logger when l is nil.
func OrDefault(l Logger) Logger {
	if l == nil {
		return Default()
	}
	return l
}

func Debug(msg string, keysAndValues ...any) { Default().Debug(msg, keysAndValues...) }
func Info(msg string, keysAndValues ...any)  { Default().Info(msg, keysAndValues...) }
func Warn(msg string, keysAndValues ...any)  { Default().Warn(msg, keysAndValues...) }
func Error(msg string, keysAndValues ...any) { Default().Error(msg, keysAndValues...) }

func With(keyValues ...any) Logger { return Default().With(keyValues...) }
