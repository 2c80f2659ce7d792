package utils

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// VerboseEnvironmentVariable switches the application logger to debug level when set to a true value.
const VerboseEnvironmentVariable = "REPOCTX_DEBUG"

// NewApplicationLogger constructs a zap logger configured for human-readable console output.
// Debug level is enabled when verbose is true.
func NewApplicationLogger(verbose bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.Encoding = "console"
	config.DisableCaller = true
	config.DisableStacktrace = true
	config.OutputPaths = []string{"stderr"}
	config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	config.EncoderConfig.TimeKey = ""
	config.EncoderConfig.NameKey = ""
	config.EncoderConfig.CallerKey = ""
	config.EncoderConfig.MessageKey = "message"
	config.EncoderConfig.StacktraceKey = ""
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return config.Build()
}

