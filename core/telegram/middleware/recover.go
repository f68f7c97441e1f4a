package middleware

import (
	"fmt"
	"log/slog"
	"runtime/debug"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/storybot/core/logger"
	"github.com/m3rciful/storybot/core/metrics"
	tghelpers "github.com/m3rciful/storybot/core/telegram/helpers"
)

// RecoverMiddleware catches panics in handlers so one update cannot take the bot down.
func RecoverMiddleware(m *metrics.Metrics) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					m.Panic()
					logger.TG.ErrorContext(tghelpers.Request(c), "panic recovered",
						slog.String("event", "tg.panic"),
						slog.Any("err", r),
						slog.String("stack", string(debug.Stack())),
					)
					err = fmt.Errorf("panic: %v", r)
				}
			}()
			return next(c)
		}
	}
}
