package utils

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger returns a zap logger writing to stderr so stdout stays free for
// JSON responses. When debug is true, uses development config (console
// encoding, debug level); otherwise uses production config (JSON, info level).
func NewLogger(debug bool) (*zap.Logger, error) {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}

// MustLogger is NewLogger falling back to a no-op logger on error.
func MustLogger(debug bool) *zap.Logger {
	logger, err := NewLogger(debug)
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
