// Package util provides environment variable parsing helpers shared across components.
package util

import (
	"log/slog"
	"os"
	"strings"
)

// ParseBoolEnv parses a boolean environment variable with a default value.
// Accepts: true/1/yes/on and false/0/no/off (case-insensitive). Invalid values return default.
func ParseBoolEnv(key string, defaultValue bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	switch strings.ToLower(strings.TrimSpace(val)) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		slog.Warn("ParseBoolEnv: invalid boolean value, using default", "key", key, "value", val, "default", defaultValue)
		return defaultValue
	}
}

// ParseLevelEnv parses a log level environment variable with a default value.
// Accepts: debug/info/warn/error (case-insensitive). Invalid values return default.
func ParseLevelEnv(key string, defaultValue slog.Level) slog.Level {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	switch strings.ToLower(strings.TrimSpace(val)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		slog.Warn("ParseLevelEnv: invalid log level, using default", "key", key, "value", val, "default", defaultValue)
		return defaultValue
	}
}
