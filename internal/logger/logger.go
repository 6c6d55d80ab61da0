package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLoggerWithVerbose creates the process-wide zap logger with separate
// debug and verbose toggles. Verbose keeps info-level output; debug
// enables debug-level output as well.
func NewLoggerWithVerbose(debug bool, verbose bool) *zap.Logger {
	config := zap.NewProductionConfig()

	switch {
	case debug:
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case verbose:
		config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	default:
		config.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}

	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	config.DisableStacktrace = true

	logger, err := config.Build()
	if err != nil {
		panic("failed to initialize logging: " + err.Error())
	}

	return logger
}
