package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewNop returns a Logger that discards everything. Use it in tests.
func NewNop() Logger {
	return &zapLogger{logger: zap.NewNop()}
}

// NewWithCore wraps an arbitrary zapcore.Core, e.g. an in-memory core in tests.
func NewWithCore(core zapcore.Core) Logger {
	return &zapLogger{logger: zap.New(core)}
}
