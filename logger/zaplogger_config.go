// zaplogger_config.go
package logger

// Ref: https://betterstack.com/community/guides/logging/go/zap/#logging-errors-with-zap

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// BuildLogger creates and returns a new zap logger instance.
// It configures the logger with the requested encoding ("json" or "console") and writes to stdout.
// The function panics if the logger cannot be initialized.
func BuildLogger(logLevel LogLevel, encoding string, logConsoleSeparator string) Logger {

	// Set up custom encoder configuration
	encoderCfg := zap.NewProductionEncoderConfig()

	// Time settings
	encoderCfg.TimeKey = "timestamp"                   // Key for enabling serialized time field.
	encoderCfg.EncodeTime = zapcore.RFC3339TimeEncoder // Encodes time in RFC3339 format, which is fully compatible with ISO8601 and more precise.

	// Log level settings
	encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	// Additional settings
	encoderCfg.MessageKey = "msg"                             // Key for the log message.
	encoderCfg.LevelKey = "level"                             // Key for the log level.
	encoderCfg.NameKey = "logger"                             // Key for the logger name.
	encoderCfg.StacktraceKey = "stacktrace"                   // Key for the stack trace field in case of errors or panics.
	encoderCfg.LineEnding = zapcore.DefaultLineEnding         // Specifies the line ending character(s), defaulting to a newline.
	encoderCfg.EncodeDuration = zapcore.StringDurationEncoder // Encodes durations in a human-readable string format.
	encoderCfg.EncodeName = zapcore.FullNameEncoder           // Encodes the logger's name as-is, without any modifications.

	if encoding == "console" {
		encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoderCfg.ConsoleSeparator = logConsoleSeparator
	} else {
		encoding = "json"
	}

	config := zap.Config{
		Level:             zap.NewAtomicLevelAt(convertToZapLevel(logLevel)),
		Development:       false,
		Encoding:          encoding,
		DisableCaller:     true,
		DisableStacktrace: true,
		Sampling:          nil,
		EncoderConfig:     encoderCfg,
		OutputPaths:       []string{"stdout"},
		ErrorOutputPaths:  []string{"stderr"}, // zap's internal errors only
	}

	return &defaultLogger{
		logger:   zap.Must(config.Build()),
		logLevel: logLevel,
	}
}

// convertToZapLevel converts the custom LogLevel to a zapcore.Level
func convertToZapLevel(level LogLevel) zapcore.Level {
	switch level {
	case LogLevelDebug:
		return zap.DebugLevel
	case LogLevelInfo:
		return zap.InfoLevel
	case LogLevelWarn:
		return zap.WarnLevel
	case LogLevelError:
		return zap.ErrorLevel
	case LogLevelNone:
		return zap.FatalLevel
	default:
		return zap.InfoLevel // Default to InfoLevel
	}
}

// convertFromZapLevel maps a zap level back onto the package levels.
func convertFromZapLevel(level zapcore.Level) LogLevel {
	switch {
	case level <= zapcore.DebugLevel:
		return LogLevelDebug
	case level == zapcore.InfoLevel:
		return LogLevelInfo
	case level == zapcore.WarnLevel:
		return LogLevelWarn
	default:
		return LogLevelError
	}
}
