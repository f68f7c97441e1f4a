package logger

import "strings"

var levelNames = map[string]string{
	"debug":   "DEBUG",
	"info":    "INFO",
	"warn":    "WARN",
	"warning": "WARN",
	"error":   "ERROR",
}

var statusNames = map[string]struct{}{
	"ok":           {},
	"fail":         {},
	"skip":         {},
	"denied":       {},
	"invalid":      {},
	"not_found":    {},
	"rate_limited": {},
}

var outcomeNames = map[string]struct{}{
	"ok":        {},
	"fail":      {},
	"kept":      {},
	"replaced":  {},
	"cleared":   {},
	"cancelled": {},
}

func normalizeLevel(level string) string {
	if level == "" {
		return "INFO"
	}
	if mapped, ok := levelNames[strings.ToLower(level)]; ok {
		return mapped
	}
	return strings.ToUpper(level)
}

func normalizeEnum(value string, allowed map[string]struct{}) (string, bool) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return "", false
	}
	_, ok := allowed[value]
	return value, ok
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
	"mode",
	"stage",
	"cb_key",
	"outcome",
	"duration_ms",
	"actions",
	"vision_id",
	"category",
	"episode",
	"count",
	"payload",
	"username",
	"listen",
	"public_url",
	"driver",
	"host",
	"db",
	"task_id",
	"err",
	"err_code",
	"cause",
	"attempts",
}
