package logger

import "strings"

const (
	// LevelDebug represents the debug severity level name.
	LevelDebug = "DEBUG"
	// LevelInfo represents the info severity level name.
	LevelInfo = "INFO"
	// LevelWarn represents the warning severity level name.
	LevelWarn = "WARN"
	// LevelError represents the error severity level name.
	LevelError = "ERROR"
)

var allowedLevels = map[string]string{
	"debug":   LevelDebug,
	"info":    LevelInfo,
	"warn":    LevelWarn,
	"warning": LevelWarn,
	"error":   LevelError,
}

var allowedStatus = map[string]string{
	"ok":           "ok",
	"fail":         "fail",
	"skip":         "skip",
	"retry":        "retry",
	"rate_limited": "rate_limited",
	"cancelled":    "cancelled",
}

// allowedTarget lists the pack targets a session may carry.
var allowedTarget = map[string]string{
	"new":      "new",
	"existing": "existing",
}

var allowedDriver = map[string]string{
	"sqlite":   "sqlite",
	"postgres": "postgres",
	"pogreb":   "pogreb",
	"memory":   "memory",
}

func normalizeLevel(level string) string {
	if level == "" {
		return LevelInfo
	}
	if mapped, ok := allowedLevels[strings.ToLower(level)]; ok {
		return mapped
	}
	return strings.ToUpper(level)
}

func normalizeEnum(allowed map[string]string, v string) (string, bool) {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return "", false
	}
	if mapped, ok := allowed[v]; ok {
		return mapped, true
	}
	return v, false
}

var defaultKeyOrder = []string{
	"ts",
	"level",
	"component",
	"event",
	"status",
	"rid",
	"rid_full",
	"ts_unix_nano",
	"update_id",
	"user_id",
	"chat_id",
	"chat_type",
	"handler",
	"state",
	"from",
	"to",
	"trigger",
	"target",
	"pack",
	"kind",
	"duration_ms",
	"messages",
	"kb",
	"raw_bytes",
	"png_bytes",
	"bytes",
	"driver",
	"path",
	"job",
	"queue_size",
	"mode",
	"listen",
	"public_url",
	"http_code",
	"db",
	"host",
	"port",
	"err",
	"err_code",
	"error",
	"error_kind",
	"cause",
	"retryable",
	"attempts",
	"backoff_ms",
}
