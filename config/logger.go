package config

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// loggerName labels every entry so statschat output is distinguishable
// when the process shares a stream with the database or a supervisor.
const loggerName = "statschat"

var globalLogger *zap.Logger

// InitLogger builds the process logger at the given level. Unknown level
// strings fall back to info rather than failing bootstrap, since the
// level may come from an unvalidated environment variable.
func InitLogger(logLevelStr string) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(logLevelStr))

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	logger = logger.Named(loggerName)

	// Store for cleanup purposes
	globalLogger = logger

	return logger, nil
}

func parseLevel(s string) zapcore.Level {
	// "warning" is accepted for compatibility with older deployments.
	if strings.EqualFold(s, "warning") {
		return zap.WarnLevel
	}
	level, err := zapcore.ParseLevel(strings.ToLower(s))
	if err != nil {
		return zap.InfoLevel
	}
	return level
}

// Cleanup flushes any buffered log entries
func Cleanup() {
	if globalLogger != nil {
		globalLogger.Sync()
	}
}
