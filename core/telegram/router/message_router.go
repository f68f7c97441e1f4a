package router

import (
	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/storybot/core/telegram"
)

// MessageRoutes sends free text, photos and any other media to handler.
// Unregistered slash commands arrive here as text too.
func MessageRoutes(handler tele.HandlerFunc, opts Options) []tg.Route {
	if handler == nil {
		return nil
	}
	named := func(name string) tele.HandlerFunc {
		return func(c tele.Context) error {
			return handleWithSummary(c, opts, name, func() error { return handler(c) })
		}
	}
	return []tg.Route{
		{Endpoint: tele.OnText, Handler: named("text")},
		{Endpoint: tele.OnPhoto, Handler: named("photo")},
		{Endpoint: tele.OnMedia, Handler: named("media")},
	}
}
