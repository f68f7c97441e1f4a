package logger

import (
	"log/slog"
	"strings"
	"time"
)

// RoundMS rounds d to whole milliseconds; negative durations become zero.
func RoundMS(d time.Duration) time.Duration {
	return max(d, 0).Round(time.Millisecond)
}

// Preview renders a bounded list as "<key>_total", "<key>_preview" and, when
// values were cut, "<key>_truncated".
func Preview(key string, values []string, limit int) []any {
	attrs := []any{slog.Int(key+"_total", len(values))}
	if len(values) == 0 || limit <= 0 {
		return attrs
	}
	shown := values[:min(limit, len(values))]
	attrs = append(attrs, slog.String(key+"_preview", strings.Join(shown, ", ")))
	if len(shown) < len(values) {
		attrs = append(attrs, slog.Bool(key+"_truncated", true))
	}
	return attrs
}
