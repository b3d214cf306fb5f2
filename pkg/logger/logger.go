// Package logger builds the structured logger every EmberDB subsystem is
// handed through its Config struct. The entry point in pkg/emberdb has
// always imported this package; this is the implementation for it.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New constructs a production-mode *zap.SugaredLogger tagged with the
// service name, so every log line emitted by the engine, an index, or the
// record store carries "service" as a queryable field.
func New(service string) *zap.SugaredLogger {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	base, err := cfg.Build()
	if err != nil {
		// Fall back to a minimal logger rather than leaving the caller with
		// a nil logger; subsystems dereference this unconditionally.
		base = zap.NewNop()
	}

	return base.Sugar().With("service", service)
}

// NewDevelopment builds a human-readable logger for local development and
// tests, where a JSON production encoder is needless noise.
func NewDevelopment(service string) *zap.SugaredLogger {
	base, err := zap.NewDevelopment()
	if err != nil {
		base = zap.NewNop()
	}
	return base.Sugar().With("service", service)
}
