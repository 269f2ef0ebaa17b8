// Package observ builds the process logger.
package observ

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger returns the process-wide logger. Production gets JSON lines with
// ISO8601 timestamps and no sampling, so bursts of job logs during a
// reminder fan-out are kept whole. Any other env gets colored console
// output. An unparseable level means info.
//
// Every entry carries service and env. opts are applied before those fields
// are attached.
func NewLogger(service, env, level string, opts ...zap.Option) (*zap.Logger, error) {
	var cfg zap.Config

	if env == "production" {
		cfg = zap.NewProductionConfig()
		cfg.Sampling = nil
		cfg.EncoderConfig.TimeKey = "timestamp"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	logger, err := cfg.Build(opts...)
	if err != nil {
		return nil, err
	}
	if env == "" {
		env = "development"
	}
	return logger.With(zap.String("service", service), zap.String("env", env)), nil
}
