package middleware

import (
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/storybot/core/metrics"
)

// MetricsMiddleware counts every update by kind.
func MetricsMiddleware(m *metrics.Metrics) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			m.Update(UpdateKind(c.Update()))
			return next(c)
		}
	}
}
