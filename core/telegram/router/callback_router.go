package router

import (
	"log/slog"

	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/storybot/core/telegram"
	"github.com/m3rciful/storybot/core/telegram/callbacks"
)

// CallbackRoute acknowledges every button press and hands it to handler.
// Undecodable data is answered and dropped.
func CallbackRoute(handler tele.HandlerFunc, opts Options) tg.Route {
	h := func(c tele.Context) error {
		cb := c.Callback()
		if cb == nil {
			return nil
		}
		_ = c.Respond()

		tok, err := callbacks.Parse(cb.Data)
		if err != nil {
			logHandlerSummary(c, opts, "callback.invalid", updateStart(c), nil,
				slog.String("reason", "invalid_token"))
			return nil
		}
		name := "callback." + normalizeHandlerName(tok.Key())
		return handleWithSummary(c, opts, name, func() error { return handler(c) },
			slog.String("cb_key", tok.Key()))
	}
	return tg.Route{Endpoint: tele.OnCallback, Handler: h}
}
